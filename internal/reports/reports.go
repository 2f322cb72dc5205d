package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nawader/farmshop/internal/models"
)

// Service is a read-only aggregation layer over committed sales and orders.
// It never writes back into the core.
type Service struct {
	db            *gorm.DB
	lowStockUnder int
}

func NewService(db *gorm.DB, lowStockThreshold int) *Service {
	if lowStockThreshold <= 0 {
		lowStockThreshold = 5
	}
	return &Service{db: db, lowStockUnder: lowStockThreshold}
}

// DashboardStats backs the operator home page.
type DashboardStats struct {
	TotalProducts    int64
	SalesToday       int64
	RevenueToday     decimal.Decimal
	LowStockCount    int64
	LowStockProducts []models.Product
}

func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{RevenueToday: decimal.Zero}
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}

	dayStart := startOfDay(time.Now())
	var todays []models.Sale
	if err := db.Preload("Product").
		Where("created_at >= ?", dayStart).
		Find(&todays).Error; err != nil {
		return nil, err
	}
	stats.SalesToday = int64(len(todays))
	for _, sale := range todays {
		stats.RevenueToday = stats.RevenueToday.Add(sale.Total())
	}

	if err := db.Model(&models.Product{}).
		Where("quantity <= ?", s.lowStockUnder).
		Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}
	if err := db.Where("quantity <= ?", s.lowStockUnder).
		Order("quantity asc").
		Limit(5).
		Find(&stats.LowStockProducts).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// startOfDay is local midnight of the day t names. Day boundaries follow the
// server's timezone, matching what the operator means by "today"; parsed
// report dates carry UTC and still land on the local day they name.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// SalesReport is a date-ranged listing with a recomputed grand total.
type SalesReport struct {
	Sales []models.Sale
	Total decimal.Decimal
}

// SalesBetween lists sales newest first. Nil bounds leave that side open;
// the upper bound is inclusive of the whole day it names.
func (s *Service) SalesBetween(ctx context.Context, from, to *time.Time) (*SalesReport, error) {
	q := s.db.WithContext(ctx).Preload("Product").Order("created_at desc")
	if from != nil {
		q = q.Where("created_at >= ?", startOfDay(*from))
	}
	if to != nil {
		q = q.Where("created_at < ?", startOfDay(*to).Add(24*time.Hour))
	}
	report := &SalesReport{Total: decimal.Zero}
	if err := q.Find(&report.Sales).Error; err != nil {
		return nil, err
	}
	for _, sale := range report.Sales {
		report.Total = report.Total.Add(sale.Total())
	}
	return report, nil
}
