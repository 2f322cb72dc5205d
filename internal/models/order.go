package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order lifecycle statuses. New orders always start as pending; only the
// transition into cancelled carries a stock side effect.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderCancelled = "cancelled"
	OrderCompleted = "completed"
)

// ValidOrderStatus reports whether s belongs to the status vocabulary.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderCancelled, OrderCompleted:
		return true
	}
	return false
}

// Order groups reserved line items under a customer identity. It owns its
// items (cascade delete); products are only referenced.
type Order struct {
	ID           uint   `gorm:"primaryKey"`
	Reference    string `gorm:"size:36;not null;uniqueIndex"` // public uuid, safe to put in mails/exports
	CustomerName string `gorm:"not null"`
	Email        string
	Phone        string `gorm:"not null"`
	Region       string `gorm:"not null"`
	City         string `gorm:"not null"`
	Status       string `gorm:"size:20;not null;default:'pending'"`
	Notes        string
	Items        []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Total sums the line totals. Items must be loaded.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Total())
	}
	return total
}

// OrderItem is one reserved line of an order. Price is captured at order
// time so later product price changes never affect historical totals.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   uint            `gorm:"not null;index"`
	ProductID uint            `gorm:"not null;index"`
	Product   Product         `gorm:"foreignKey:ProductID"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time
}

func (it *OrderItem) Total() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}
