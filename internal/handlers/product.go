package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/nawader/farmshop/internal/httpx"
	"github.com/nawader/farmshop/internal/models"
	"github.com/nawader/farmshop/internal/validation"
)

// maxImageBytes caps product image uploads (stored on the product row).
const maxImageBytes = 5 << 20

type ProductHandler struct {
	DB *gorm.DB
}

func NewProductHandler(db *gorm.DB) *ProductHandler { return &ProductHandler{DB: db} }

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	var products []models.Product
	if err := h.DB.Order("name").Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": len(products)})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderTemplate(w, r, "products", map[string]any{"Products": products})
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var input struct {
			Name          string `json:"name"`
			Quantity      int    `json:"quantity"`
			PurchasePrice string `json:"purchase_price"`
			SalePrice     string `json:"sale_price"`
			Description   string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		purchase, perr := validation.ParsePrice(input.PurchasePrice)
		sale, serr := validation.ParsePrice(input.SalePrice)
		v := validation.Violations{}
		validation.Required("name", input.Name, v)
		if perr != nil {
			v["purchase_price"] = "malformed"
		}
		if serr != nil {
			v["sale_price"] = "malformed"
		}
		if input.Quantity < 0 {
			v["quantity"] = "must_not_be_negative"
		}
		validation.NonNegativeDecimal("purchase_price", purchase, v)
		validation.NonNegativeDecimal("sale_price", sale, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		p := models.Product{
			Name:          strings.TrimSpace(input.Name),
			Quantity:      input.Quantity,
			PurchasePrice: purchase,
			SalePrice:     sale,
			Description:   input.Description,
		}
		if err := h.DB.Create(&p).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "product_create_failed", nil)
			return
		}
		httpx.JSON(w, http.StatusCreated, p)
		return
	}

	// HTML form path (multipart because of the image)
	if r.Method == http.MethodGet {
		renderTemplate(w, r, "product_form", nil)
		return
	}
	p, v := h.productFromForm(r, &models.Product{})
	if !v.Empty() {
		w.WriteHeader(http.StatusBadRequest)
		renderTemplate(w, r, "product_form", map[string]any{"Errors": v, "Product": p})
		return
	}
	if err := h.DB.Create(p).Error; err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("db error")); werr != nil {
			_ = werr
		}
		return
	}
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

// Edit serves the edit form and applies updates. Quantity edits here set the
// absolute value; routine stock increases go through /products/restock so a
// purchase record is kept.
func (h *ProductHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(firstOf(r.URL.Query().Get("id"), r.FormValue("id")))
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var p models.Product
	if err := h.DB.First(&p, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if r.Method == http.MethodGet {
		renderTemplate(w, r, "product_form", map[string]any{"Product": &p})
		return
	}
	updated, v := h.productFromForm(r, &p)
	if !v.Empty() {
		w.WriteHeader(http.StatusBadRequest)
		renderTemplate(w, r, "product_form", map[string]any{"Errors": v, "Product": updated})
		return
	}
	if err := h.DB.Save(updated).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, updated)
		return
	}
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

// Image serves the stored image payload with its captured content type.
func (h *ProductHandler) Image(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.URL.Query().Get("id"))
	if id <= 0 {
		http.NotFound(w, r)
		return
	}
	var p models.Product
	if err := h.DB.Select("id", "image_data", "image_type").First(&p, id).Error; err != nil || !p.HasImage() {
		http.NotFound(w, r)
		return
	}
	ctype := p.ImageType
	if ctype == "" {
		ctype = "image/jpeg"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(p.ImageData); err != nil {
		_ = err
	}
}

// productFromForm fills p from a (possibly multipart) HTML form and returns
// field violations. The image is only replaced when a new file is uploaded.
func (h *ProductHandler) productFromForm(r *http.Request, p *models.Product) (*models.Product, validation.Violations) {
	v := validation.Violations{}
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		if err := r.ParseForm(); err != nil {
			v["form"] = "invalid"
			return p, v
		}
	}
	p.Name = strings.TrimSpace(r.FormValue("name"))
	p.Description = strings.TrimSpace(r.FormValue("description"))
	if qty := r.FormValue("quantity"); qty != "" {
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil || n < 0 {
			v["quantity"] = "must_not_be_negative"
		} else {
			p.Quantity = n
		}
	}
	purchase, perr := validation.ParsePrice(r.FormValue("purchase_price"))
	if perr != nil {
		v["purchase_price"] = "malformed"
	} else {
		p.PurchasePrice = purchase
	}
	sale, serr := validation.ParsePrice(r.FormValue("sale_price"))
	if serr != nil {
		v["sale_price"] = "malformed"
	} else {
		p.SalePrice = sale
	}
	validation.Required("name", p.Name, v)
	validation.NonNegativeDecimal("purchase_price", p.PurchasePrice, v)
	validation.NonNegativeDecimal("sale_price", p.SalePrice, v)

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		data, rerr := io.ReadAll(io.LimitReader(file, maxImageBytes))
		if rerr != nil {
			v["image"] = "unreadable"
		} else {
			p.ImageData = data
			p.ImageName = header.Filename
			p.ImageType = imageContentType(header.Filename)
		}
	}
	return p, v
}

func imageContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
