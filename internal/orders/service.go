package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nawader/farmshop/internal/models"
	"github.com/nawader/farmshop/internal/stock"
	"github.com/nawader/farmshop/internal/validation"
)

var (
	// ErrNoItems rejects a submission where no product had a positive quantity.
	ErrNoItems = errors.New("select at least one product")
	// ErrUnknownStatus rejects a status outside the order vocabulary.
	ErrUnknownStatus = errors.New("unknown order status")
)

// ValidationError carries the per-field violations of an order submission.
type ValidationError struct {
	Fields validation.Violations
}

func (e *ValidationError) Error() string { return "order validation failed" }

// Line is one requested product/quantity pair of a submission.
type Line struct {
	ProductID uint
	Quantity  int
}

// Input is a public order submission after the verification gate passed.
// Phone is the verified number when token verification is in use.
type Input struct {
	CustomerName string
	Email        string
	Phone        string
	Region       string
	City         string
	Notes        string
	Lines        []Line
}

// ListFilter narrows the operator order listing.
type ListFilter struct {
	Status string
	Region string
}

// Service implements the order lifecycle: the atomic creation protocol and
// the status machine whose only stock side effect is cancellation.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Create runs the whole order-creation protocol in one transaction: field
// validation, order shell, per-line stock reservation, at-least-one-line
// rule. Any line failing on stock aborts everything and the error names the
// offending product.
func (s *Service) Create(ctx context.Context, in Input) (*models.Order, error) {
	v := validation.Violations{}
	validation.Required("name", in.CustomerName, v)
	validation.Required("region", in.Region, v)
	validation.Required("city", in.City, v)
	validation.Required("phone", in.Phone, v)
	if !v.Empty() {
		return nil, &ValidationError{Fields: v}
	}

	order := &models.Order{
		Reference:    uuid.NewString(),
		CustomerName: strings.TrimSpace(in.CustomerName),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Region:       strings.TrimSpace(in.Region),
		City:         strings.TrimSpace(in.City),
		Notes:        in.Notes,
		Status:       models.OrderPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		reserved := false
		for _, line := range in.Lines {
			if line.Quantity <= 0 {
				continue
			}
			var product models.Product
			if err := tx.First(&product, line.ProductID).Error; err != nil {
				return err
			}
			item, err := stock.ReserveForOrder(tx, order, &product, line.Quantity, product.SalePrice)
			if err != nil {
				return err
			}
			item.Product = product
			order.Items = append(order.Items, *item)
			reserved = true
		}
		if !reserved {
			return ErrNoItems
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus persists a status transition. Moving into cancelled restores
// the stock of every line exactly once: the guarded status flip is the
// idempotency check, and the restoration shares its transaction.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, newStatus string) error {
	if !models.ValidOrderStatus(newStatus) {
		return ErrUnknownStatus
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}
		if newStatus != models.OrderCancelled {
			return tx.Model(&order).Update("status", newStatus).Error
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status <> ?", orderID, models.OrderCancelled).
			Update("status", models.OrderCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// already cancelled; stock was restored on the first transition
			return nil
		}
		var items []models.OrderItem
		if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			return err
		}
		return stock.RestoreForOrder(tx, items)
	})
}

// Get loads one order with its lines and their products.
func (s *Service) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		First(&order, orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns orders newest first, optionally filtered by status and region.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Order, error) {
	q := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Order("created_at desc")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Region != "" {
		q = q.Where("region = ?", f.Region)
	}
	var list []models.Order
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Regions returns the distinct regions present in orders, for the list filter.
func (s *Service) Regions(ctx context.Context) ([]string, error) {
	var regions []string
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Distinct("region").
		Order("region").
		Pluck("region", &regions).Error
	return regions, err
}
