package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/nawader/farmshop/internal/httpx"
	"github.com/nawader/farmshop/internal/models"
	"github.com/nawader/farmshop/internal/stock"
)

// StockHandler serves the restock form and applies restocks through the
// ledger so every quantity increase leaves a purchase record.
type StockHandler struct {
	DB     *gorm.DB
	Ledger *stock.Ledger
}

func NewStockHandler(db *gorm.DB, ledger *stock.Ledger) *StockHandler {
	return &StockHandler{DB: db, Ledger: ledger}
}

func (h *StockHandler) Restock(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.Atoi(firstOf(r.URL.Query().Get("id"), r.FormValue("id")))
	if productID <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}

	if r.Method == http.MethodGet {
		renderTemplate(w, r, "restock", map[string]any{"Product": &product})
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
	qty, err := strconv.Atoi(r.FormValue("quantity"))
	if err != nil || qty <= 0 {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusBadRequest, "quantity_must_be_positive", nil)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		renderTemplate(w, r, "restock", map[string]any{
			"Product": &product,
			"Error":   "enter a valid quantity",
		})
		return
	}

	purchase, err := h.Ledger.Restock(r.Context(), product.ID, qty)
	if err != nil {
		if errors.Is(err, stock.ErrInvalidQuantity) {
			httpx.JSONError(w, http.StatusBadRequest, "quantity_must_be_positive", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "restock_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, purchase)
		return
	}
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}
