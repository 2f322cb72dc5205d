package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/nawader/farmshop/internal/export"
	"github.com/nawader/farmshop/internal/httpx"
	"github.com/nawader/farmshop/internal/orders"
)

// OrderHandler covers the operator order screens: listing with filters,
// status transitions, and the transporter spreadsheet export.
type OrderHandler struct {
	Orders   *orders.Service
	Exporter *export.Exporter
}

func NewOrderHandler(s *orders.Service, e *export.Exporter) *OrderHandler {
	return &OrderHandler{Orders: s, Exporter: e}
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := orders.ListFilter{
		Status: r.URL.Query().Get("status"),
		Region: r.URL.Query().Get("region"),
	}
	list, err := h.Orders.List(r.Context(), filter)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_orders", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "total": len(list)})
		return
	}
	regions, _ := h.Orders.Regions(r.Context())
	renderTemplate(w, r, "orders", map[string]any{
		"Orders":  list,
		"Regions": regions,
		"Status":  filter.Status,
		"Region":  filter.Region,
	})
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	orderID, _ := strconv.Atoi(firstOf(r.URL.Query().Get("id"), r.FormValue("id")))
	if orderID <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	newStatus := r.FormValue("status")

	err := h.Orders.UpdateStatus(r.Context(), uint(orderID), newStatus)
	switch {
	case err == nil:
	case errors.Is(err, orders.ErrUnknownStatus):
		httpx.JSONError(w, http.StatusBadRequest, "unknown_status", nil)
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "status_update_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"id": orderID, "status": newStatus})
		return
	}
	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

// Export streams the selected orders as a spreadsheet for the transporter.
func (h *OrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/orders", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	var ids []uint
	for _, raw := range r.Form["order_ids"] {
		if id, err := strconv.Atoi(raw); err == nil && id > 0 {
			ids = append(ids, uint(id))
		}
	}
	if len(ids) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "select_at_least_one_order", nil)
		return
	}
	filename := fmt.Sprintf("orders_export_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := h.Exporter.Orders(r.Context(), ids, w); err != nil {
		// headers already sent, nothing better than closing the stream
		_ = err
	}
}
