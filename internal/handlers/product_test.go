package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/nawader/farmshop/internal/models"
)

func TestCreateProductJSON(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewProductHandler(db)

	body := `{"name":"Olive tree","quantity":10,"purchase_price":"8.00","sale_price":"15.00","description":"two year graft"}`
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var p models.Product
	if err := db.First(&p).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if p.Name != "Olive tree" || p.Quantity != 10 {
		t.Fatalf("unexpected product: %+v", p)
	}
	if got := p.SalePrice.StringFixed(2); got != "15.00" {
		t.Fatalf("sale price = %s, want 15.00", got)
	}
}

func TestCreateProductJSONValidation(t *testing.T) {
	db := setupHandlerDB(t)
	h := NewProductHandler(db)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"name":"  ","quantity":1,"purchase_price":"1.00","sale_price":"2.00"}`},
		{"negative quantity", `{"name":"Fig","quantity":-1,"purchase_price":"1.00","sale_price":"2.00"}`},
		{"malformed price", `{"name":"Fig","quantity":1,"purchase_price":"abc","sale_price":"2.00"}`},
		{"negative price", `{"name":"Fig","quantity":1,"purchase_price":"1.00","sale_price":"-2.00"}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", tc.name, rec.Code)
		}
	}
	var count int64
	db.Model(&models.Product{}).Count(&count)
	if count != 0 {
		t.Fatalf("product rows = %d, want 0", count)
	}
}

func TestListProductsJSON(t *testing.T) {
	db := setupHandlerDB(t)
	seedHandlerProduct(t, db, "Fig tree", 4, "12.00")
	seedHandlerProduct(t, db, "Almond tree", 2, "20.00")
	h := NewProductHandler(db)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Items []models.Product `json:"items"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Total != 2 || len(out.Items) != 2 {
		t.Fatalf("total = %d items = %d, want 2", out.Total, len(out.Items))
	}
	// listing is ordered by name
	if out.Items[0].Name != "Almond tree" {
		t.Fatalf("first item = %q, want Almond tree", out.Items[0].Name)
	}
}

func TestProductImageServing(t *testing.T) {
	db := setupHandlerDB(t)
	p := seedHandlerProduct(t, db, "Cactus", 1, "7.50")
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	if err := db.Model(&p).Updates(map[string]any{
		"image_data": payload,
		"image_name": "cactus.png",
		"image_type": "image/png",
	}).Error; err != nil {
		t.Fatalf("store image: %v", err)
	}
	h := NewProductHandler(db)

	req := httptest.NewRequest(http.MethodGet, "/products/image?id=1", nil)
	rec := httptest.NewRecorder()
	h.Image(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	if rec.Body.Len() != len(payload) {
		t.Fatalf("body length = %d, want %d", rec.Body.Len(), len(payload))
	}

	bare := seedHandlerProduct(t, db, "Vine", 1, "4.00")
	req = httptest.NewRequest(http.MethodGet, "/products/image?id="+strconv.Itoa(int(bare.ID)), nil)
	rec = httptest.NewRecorder()
	h.Image(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for product without image", rec.Code)
	}
}

func TestImageContentTypeByExtension(t *testing.T) {
	cases := map[string]string{
		"a.png":  "image/png",
		"a.webp": "image/webp",
		"a.GIF":  "image/gif",
		"a.jpg":  "image/jpeg",
		"a":      "image/jpeg",
	}
	for name, want := range cases {
		if got := imageContentType(name); got != want {
			t.Fatalf("%s: got %s, want %s", name, got, want)
		}
	}
}
