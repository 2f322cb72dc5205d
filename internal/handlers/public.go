package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/nawader/farmshop/internal/httpx"
	"github.com/nawader/farmshop/internal/models"
	"github.com/nawader/farmshop/internal/notify"
	"github.com/nawader/farmshop/internal/orders"
	"github.com/nawader/farmshop/internal/stock"
	"github.com/nawader/farmshop/internal/verify"
)

// PublicHandler serves the anonymous storefront: catalog, product detail,
// cart, and the verified order form. Nothing here requires a session.
type PublicHandler struct {
	DB       *gorm.DB
	Orders   *orders.Service
	Verifier verify.Verifier
	Mode     string // verification mode, rendered into the form
	Mailer   *notify.Mailer
}

func NewPublicHandler(db *gorm.DB, svc *orders.Service, verifier verify.Verifier, mode string, mailer *notify.Mailer) *PublicHandler {
	return &PublicHandler{DB: db, Orders: svc, Verifier: verifier, Mode: mode, Mailer: mailer}
}

func (h *PublicHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	var products []models.Product
	if err := h.DB.Order("name").Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": products})
		return
	}
	renderTemplate(w, r, "catalog", map[string]any{"Products": products})
}

func (h *PublicHandler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.URL.Query().Get("id"))
	if id <= 0 {
		http.NotFound(w, r)
		return
	}
	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		http.NotFound(w, r)
		return
	}
	var similar []models.Product
	_ = h.DB.Where("id <> ?", product.ID).Order("name").Limit(6).Find(&similar).Error
	renderTemplate(w, r, "product_detail", map[string]any{
		"Product": &product,
		"Similar": similar,
	})
}

// Cart is rendered entirely client side (localStorage); the server only
// serves the page.
func (h *PublicHandler) Cart(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "cart", nil)
}

// OrderForm is the public submission surface. GET renders the form; POST
// runs the verification gate and, only on success, the order-creation
// protocol. Every failure path re-renders the same form with one inline
// message and mutates nothing.
func (h *PublicHandler) OrderForm(w http.ResponseWriter, r *http.Request) {
	var products []models.Product
	if err := h.DB.Order("name").Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	ctx := map[string]any{
		"Products":         products,
		"VerificationMode": h.Mode,
	}

	if r.Method == http.MethodGet {
		renderTemplate(w, r, "public_order", ctx)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		ctx["Error"] = "invalid form submission"
		w.WriteHeader(http.StatusBadRequest)
		renderTemplate(w, r, "public_order", ctx)
		return
	}

	phone, err := h.Verifier.Verify(r.Context(), verify.Submission{
		Phone: r.FormValue("phone"),
		Code:  r.FormValue("verification_code"),
		Token: r.FormValue("firebase_id_token"),
	})
	if err != nil {
		if h.Mode == verify.ModeStaticCode {
			ctx["Error"] = "incorrect verification code"
		} else {
			ctx["Error"] = "could not verify phone number, please try again"
		}
		w.WriteHeader(http.StatusOK)
		renderTemplate(w, r, "public_order", ctx)
		return
	}

	input := orders.Input{
		CustomerName: r.FormValue("name"),
		Email:        strings.TrimSpace(r.FormValue("email")),
		Phone:        phone,
		Region:       r.FormValue("region"),
		City:         r.FormValue("city"),
		Notes:        r.FormValue("notes"),
	}
	for _, p := range products {
		qty := r.FormValue(fmt.Sprintf("product_%d", p.ID))
		if qty == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil || n <= 0 {
			continue
		}
		input.Lines = append(input.Lines, orders.Line{ProductID: p.ID, Quantity: n})
	}

	order, err := h.Orders.Create(r.Context(), input)
	if err != nil {
		var fieldErr *orders.ValidationError
		var insufficient *stock.InsufficientStockError
		switch {
		case errors.As(err, &fieldErr):
			ctx["Error"] = "please fill in all required fields"
		case errors.Is(err, orders.ErrNoItems):
			ctx["Error"] = "please select at least one product"
		case errors.As(err, &insufficient):
			ctx["Error"] = fmt.Sprintf("requested quantity of %s is not available", insufficient.Product)
		default:
			ctx["Error"] = "something went wrong, please try again"
		}
		w.WriteHeader(http.StatusOK)
		renderTemplate(w, r, "public_order", ctx)
		return
	}

	if h.Mailer != nil {
		h.Mailer.OrderConfirmationAsync(order)
	}
	http.Redirect(w, r, "/order/sent?ref="+url.QueryEscape(order.Reference), http.StatusSeeOther)
}

// OrderSent confirms a successful submission.
func (h *PublicHandler) OrderSent(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "order_sent", map[string]any{
		"Reference": r.URL.Query().Get("ref"),
	})
}
