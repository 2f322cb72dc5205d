package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase records a restock: quantity received into inventory for one
// product. The product quantity increase and the row are committed in the
// same transaction; rows are immutable after creation.
type Purchase struct {
	ID        uint    `gorm:"primaryKey"`
	ProductID uint    `gorm:"not null;index"`
	Product   Product `gorm:"foreignKey:ProductID"`
	Quantity  int     `gorm:"not null"`
	CreatedAt time.Time
}

// Sale records a point-of-sale transaction for one product.
type Sale struct {
	ID        uint    `gorm:"primaryKey"`
	ProductID uint    `gorm:"not null;index"`
	Product   Product `gorm:"foreignKey:ProductID"`
	Quantity  int     `gorm:"not null"`
	CreatedAt time.Time
}

// Total is always recomputed from the product's current sale price, never
// stored. Product must be preloaded.
func (s *Sale) Total() decimal.Decimal {
	return s.Product.SalePrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}
