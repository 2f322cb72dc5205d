package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item with a price pair and the quantity on hand.
// Quantity is only ever mutated through the stock ledger operations so the
// non-negativity invariant holds at every commit point.
type Product struct {
	ID            uint            `gorm:"primaryKey"`
	Name          string          `gorm:"not null"`
	Quantity      int             `gorm:"not null;default:0;check:quantity >= 0"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Description   string

	// Image payload stored on the row itself; lifecycle follows the product.
	ImageData []byte `gorm:"type:bytea" json:"-"`
	ImageName string
	ImageType string // image/jpeg, image/png, ...

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Product) HasImage() bool { return len(p.ImageData) > 0 }
