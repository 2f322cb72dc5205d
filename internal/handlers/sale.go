package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/nawader/farmshop/internal/httpx"
	"github.com/nawader/farmshop/internal/models"
	"github.com/nawader/farmshop/internal/stock"
)

// SaleHandler is the point-of-sale screen: a sale decrements stock and
// records the transaction atomically; insufficient stock persists nothing.
type SaleHandler struct {
	DB     *gorm.DB
	Ledger *stock.Ledger
}

func NewSaleHandler(db *gorm.DB, ledger *stock.Ledger) *SaleHandler {
	return &SaleHandler{DB: db, Ledger: ledger}
}

func (h *SaleHandler) NewSale(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.renderForm(w, r, "")
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	productID, _ := strconv.Atoi(r.FormValue("product_id"))
	qty, qerr := strconv.Atoi(r.FormValue("quantity"))
	if productID <= 0 {
		h.fail(w, r, http.StatusBadRequest, "select a product")
		return
	}
	if qerr != nil || qty <= 0 {
		h.fail(w, r, http.StatusBadRequest, "enter a valid quantity")
		return
	}

	sale, err := h.Ledger.Sell(r.Context(), uint(productID), qty)
	if err != nil {
		var insufficient *stock.InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			h.fail(w, r, http.StatusConflict, insufficient.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			h.fail(w, r, http.StatusNotFound, "unknown product")
		case errors.Is(err, stock.ErrInvalidQuantity):
			h.fail(w, r, http.StatusBadRequest, "enter a valid quantity")
		default:
			h.fail(w, r, http.StatusInternalServerError, "sale failed")
		}
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, map[string]any{
			"id":       sale.ID,
			"quantity": sale.Quantity,
			"total":    sale.Total().StringFixed(2),
		})
		return
	}
	h.renderForm(w, r, fmt.Sprintf("sale recorded, total %s", sale.Total().StringFixed(2)))
}

func (h *SaleHandler) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, status, msg, nil)
		return
	}
	w.WriteHeader(status)
	h.render(w, r, map[string]any{"Error": msg})
}

func (h *SaleHandler) renderForm(w http.ResponseWriter, r *http.Request, success string) {
	data := map[string]any{}
	if success != "" {
		data["Success"] = success
	}
	h.render(w, r, data)
}

func (h *SaleHandler) render(w http.ResponseWriter, r *http.Request, data map[string]any) {
	var products []models.Product
	_ = h.DB.Where("quantity > 0").Order("name").Find(&products).Error
	data["Products"] = products
	renderTemplate(w, r, "new_sale", data)
}
