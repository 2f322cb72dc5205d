package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nawader/farmshop/internal/models"
)

// ErrInvalidQuantity rejects non-positive quantities before any row is touched.
var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// InsufficientStockError reports that a requested quantity exceeds what is
// on hand for a product. The enclosing transaction is rolled back entirely.
type InsufficientStockError struct {
	Product string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.Product)
}

// Ledger owns the three stock mutation primitives. Each one runs as a
// single transaction so a caller never observes a mutated quantity without
// the matching ledger record, or vice versa.
//
// Availability checks are folded into the UPDATE itself
// (quantity >= requested as a WHERE guard, verified via RowsAffected), so
// two concurrent writers on the same product row cannot both pass the check
// and drive the quantity negative.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger { return &Ledger{db: db} }

// Restock increases a product's quantity and records the purchase.
func (l *Ledger) Restock(ctx context.Context, productID uint, qty int) (*models.Purchase, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	purchase := &models.Purchase{ProductID: productID, Quantity: qty}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).
			Where("id = ?", productID).
			Update("quantity", gorm.Expr("quantity + ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(purchase).Error
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

// Sell decrements a product's quantity and records the sale. It fails with
// InsufficientStockError, persisting nothing, when qty exceeds availability.
func (l *Ledger) Sell(ctx context.Context, productID uint, qty int) (*models.Sale, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	sale := &models.Sale{ProductID: productID, Quantity: qty}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			return err
		}
		ok, err := decrement(tx, productID, qty)
		if err != nil {
			return err
		}
		if !ok {
			return &InsufficientStockError{Product: product.Name}
		}
		if err := tx.Create(sale).Error; err != nil {
			return err
		}
		sale.Product = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// ReserveForOrder decrements stock and persists an order line carrying the
// captured price. It runs inside the caller's order-creation transaction,
// so successive reservations for the same product within one order see each
// other's decrement.
func ReserveForOrder(tx *gorm.DB, order *models.Order, product *models.Product, qty int, price decimal.Decimal) (*models.OrderItem, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	ok, err := decrement(tx, product.ID, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &InsufficientStockError{Product: product.Name}
	}
	item := &models.OrderItem{OrderID: order.ID, ProductID: product.ID, Quantity: qty, Price: price}
	if err := tx.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// RestoreForOrder puts back the stock consumed by the given order lines.
// The caller guards against double restoration (idempotent cancel).
func RestoreForOrder(tx *gorm.DB, items []models.OrderItem) error {
	for _, it := range items {
		res := tx.Model(&models.Product{}).
			Where("id = ?", it.ProductID).
			Update("quantity", gorm.Expr("quantity + ?", it.Quantity))
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

// decrement applies the guarded decrement; false means insufficient stock
// (or a missing product row).
func decrement(tx *gorm.DB, productID uint, qty int) (bool, error) {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", productID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	return res.RowsAffected > 0, res.Error
}
