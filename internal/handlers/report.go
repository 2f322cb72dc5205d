package handlers

import (
	"net/http"
	"time"

	"github.com/nawader/farmshop/internal/httpx"
	"github.com/nawader/farmshop/internal/reports"
)

type ReportHandler struct {
	Reports *reports.Service
}

func NewReportHandler(s *reports.Service) *ReportHandler { return &ReportHandler{Reports: s} }

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reports.Dashboard(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "dashboard_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"total_products": stats.TotalProducts,
			"sales_today":    stats.SalesToday,
			"revenue_today":  stats.RevenueToday.StringFixed(2),
			"low_stock":      stats.LowStockCount,
		})
		return
	}
	renderTemplate(w, r, "dashboard", map[string]any{"Stats": stats})
}

func (h *ReportHandler) SalesReport(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time
	fromStr := r.URL.Query().Get("date_from")
	toStr := r.URL.Query().Get("date_to")
	if t, err := time.Parse("2006-01-02", fromStr); err == nil {
		from = &t
	}
	if t, err := time.Parse("2006-01-02", toStr); err == nil {
		to = &t
	}
	report, err := h.Reports.SalesBetween(r.Context(), from, to)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "report_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"count": len(report.Sales),
			"total": report.Total.StringFixed(2),
		})
		return
	}
	renderTemplate(w, r, "sales_report", map[string]any{
		"Sales":    report.Sales,
		"Total":    report.Total.StringFixed(2),
		"DateFrom": fromStr,
		"DateTo":   toStr,
	})
}
