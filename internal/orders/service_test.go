package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nawader/farmshop/internal/models"
	"github.com/nawader/farmshop/internal/stock"
)

func setupOrderDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Purchase{}, &models.Sale{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, qty int, salePrice string) models.Product {
	t.Helper()
	price, err := decimal.NewFromString(salePrice)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	p := models.Product{Name: name, Quantity: qty, SalePrice: price}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func productQuantity(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p models.Product
	if err := db.First(&p, id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return p.Quantity
}

func validInput(lines ...Line) Input {
	return Input{
		CustomerName: "Amina K",
		Email:        "amina@example.com",
		Phone:        "+21620123456",
		Region:       "Jendouba",
		City:         "Tabarka",
		Lines:        lines,
	}
}

func TestCreateReservesStockAndCapturesPrice(t *testing.T) {
	db := setupOrderDB(t)
	p := seedProduct(t, db, "Olive tree", 10, "15.00")
	svc := NewService(db)

	order, err := svc.Create(context.Background(), validInput(Line{ProductID: p.ID, Quantity: 2}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Status != models.OrderPending {
		t.Fatalf("status = %q, want pending", order.Status)
	}
	if order.Reference == "" {
		t.Fatal("reference not assigned")
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
	if got := productQuantity(t, db, p.ID); got != 8 {
		t.Fatalf("quantity = %d, want 8", got)
	}

	// A later price change must not touch the amount captured on the line.
	if err := db.Model(&models.Product{}).Where("id = ?", p.ID).
		Update("sale_price", decimal.RequireFromString("99.00")).Error; err != nil {
		t.Fatalf("reprice: %v", err)
	}
	reloaded, err := svc.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := reloaded.Total().StringFixed(2); got != "30.00" {
		t.Fatalf("total = %s, want 30.00", got)
	}
}

func TestCreateInsufficientLineAbortsWholeOrder(t *testing.T) {
	db := setupOrderDB(t)
	a := seedProduct(t, db, "Fig tree", 10, "12.00")
	b := seedProduct(t, db, "Almond tree", 2, "20.00")
	svc := NewService(db)

	_, err := svc.Create(context.Background(), validInput(
		Line{ProductID: a.ID, Quantity: 3},
		Line{ProductID: b.ID, Quantity: 5},
	))
	var insufficient *stock.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if insufficient.Product != "Almond tree" {
		t.Fatalf("error names %q, want Almond tree", insufficient.Product)
	}
	if got := productQuantity(t, db, a.ID); got != 10 {
		t.Fatalf("first product quantity = %d, want 10 after rollback", got)
	}
	var orderCount, itemCount int64
	db.Model(&models.Order{}).Count(&orderCount)
	db.Model(&models.OrderItem{}).Count(&itemCount)
	if orderCount != 0 || itemCount != 0 {
		t.Fatalf("persisted rows after failed create: orders=%d items=%d", orderCount, itemCount)
	}
}

func TestCreateRequiresCustomerFields(t *testing.T) {
	db := setupOrderDB(t)
	p := seedProduct(t, db, "Cactus", 5, "7.50")
	svc := NewService(db)

	in := validInput(Line{ProductID: p.ID, Quantity: 1})
	in.City = "  "
	_, err := svc.Create(context.Background(), in)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if _, ok := ve.Fields["city"]; !ok {
		t.Fatalf("violations = %v, want city flagged", ve.Fields)
	}
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("order rows = %d, want 0", count)
	}
	if got := productQuantity(t, db, p.ID); got != 5 {
		t.Fatalf("quantity = %d, want 5", got)
	}
}

func TestCreateRequiresAtLeastOneLine(t *testing.T) {
	db := setupOrderDB(t)
	p := seedProduct(t, db, "Vine", 5, "4.00")
	svc := NewService(db)

	_, err := svc.Create(context.Background(), validInput(Line{ProductID: p.ID, Quantity: 0}))
	if !errors.Is(err, ErrNoItems) {
		t.Fatalf("err = %v, want ErrNoItems", err)
	}
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("order rows = %d, want 0", count)
	}
}

func TestCancelRestoresStockExactlyOnce(t *testing.T) {
	db := setupOrderDB(t)
	p := seedProduct(t, db, "Lemon tree", 10, "15.00")
	svc := NewService(db)
	ctx := context.Background()

	order, err := svc.Create(ctx, validInput(Line{ProductID: p.ID, Quantity: 2}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := productQuantity(t, db, p.ID); got != 8 {
		t.Fatalf("quantity = %d, want 8", got)
	}

	if err := svc.UpdateStatus(ctx, order.ID, models.OrderCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := productQuantity(t, db, p.ID); got != 10 {
		t.Fatalf("quantity = %d, want 10 after cancel", got)
	}

	// Cancelling again is a no-op, not a second restoration.
	if err := svc.UpdateStatus(ctx, order.ID, models.OrderCancelled); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if got := productQuantity(t, db, p.ID); got != 10 {
		t.Fatalf("quantity = %d, want 10 after repeated cancel", got)
	}
}

func TestNonCancelTransitionsLeaveStockAlone(t *testing.T) {
	db := setupOrderDB(t)
	p := seedProduct(t, db, "Pomegranate", 6, "8.00")
	svc := NewService(db)
	ctx := context.Background()

	order, err := svc.Create(ctx, validInput(Line{ProductID: p.ID, Quantity: 3}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, status := range []string{models.OrderConfirmed, models.OrderCompleted} {
		if err := svc.UpdateStatus(ctx, order.ID, status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
		if got := productQuantity(t, db, p.ID); got != 3 {
			t.Fatalf("after %s: quantity = %d, want 3", status, got)
		}
	}
}

func TestCancelFromConfirmedRestores(t *testing.T) {
	db := setupOrderDB(t)
	p := seedProduct(t, db, "Orange tree", 4, "18.00")
	svc := NewService(db)
	ctx := context.Background()

	order, err := svc.Create(ctx, validInput(Line{ProductID: p.ID, Quantity: 4}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.UpdateStatus(ctx, order.ID, models.OrderConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := svc.UpdateStatus(ctx, order.ID, models.OrderCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := productQuantity(t, db, p.ID); got != 4 {
		t.Fatalf("quantity = %d, want 4", got)
	}
}

func TestUpdateStatusRejectsUnknownAndMissing(t *testing.T) {
	db := setupOrderDB(t)
	p := seedProduct(t, db, "Peach tree", 5, "14.00")
	svc := NewService(db)
	ctx := context.Background()

	order, err := svc.Create(ctx, validInput(Line{ProductID: p.ID, Quantity: 1}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.UpdateStatus(ctx, order.ID, "shipped"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("err = %v, want ErrUnknownStatus", err)
	}
	if err := svc.UpdateStatus(ctx, order.ID+100, models.OrderConfirmed); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v, want record not found", err)
	}
}

func TestListFiltersAndRegions(t *testing.T) {
	db := setupOrderDB(t)
	p := seedProduct(t, db, "Apple tree", 20, "10.00")
	svc := NewService(db)
	ctx := context.Background()

	mk := func(region string) *models.Order {
		in := validInput(Line{ProductID: p.ID, Quantity: 1})
		in.Region = region
		order, err := svc.Create(ctx, in)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return order
	}
	north := mk("Bizerte")
	mk("Sfax")
	if err := svc.UpdateStatus(ctx, north.ID, models.OrderConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	confirmed, err := svc.List(ctx, ListFilter{Status: models.OrderConfirmed})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(confirmed) != 1 || confirmed[0].ID != north.ID {
		t.Fatalf("confirmed filter returned %d orders", len(confirmed))
	}

	byRegion, err := svc.List(ctx, ListFilter{Region: "Sfax"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byRegion) != 1 || byRegion[0].Region != "Sfax" {
		t.Fatalf("region filter returned %+v", byRegion)
	}

	regions, err := svc.Regions(ctx)
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	if len(regions) != 2 || regions[0] != "Bizerte" || regions[1] != "Sfax" {
		t.Fatalf("regions = %v", regions)
	}
}
