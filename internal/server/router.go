package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nawader/farmshop/internal/auth"
	"github.com/nawader/farmshop/internal/config"
	"github.com/nawader/farmshop/internal/export"
	"github.com/nawader/farmshop/internal/handlers"
	"github.com/nawader/farmshop/internal/httpx"
	"github.com/nawader/farmshop/internal/models"
	"github.com/nawader/farmshop/internal/notify"
	"github.com/nawader/farmshop/internal/orders"
	"github.com/nawader/farmshop/internal/reports"
	"github.com/nawader/farmshop/internal/stock"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg config.Config, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Configure a user verifier so RequireOperator can ensure the operator still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	//revive:disable:unused-parameter simple handlers intentionally ignore *http.Request
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	//revive:enable:unused-parameter

	ledger := stock.NewLedger(db)
	orderSvc := orders.NewService(db)
	reportSvc := reports.NewService(db, cfg.LowStockThreshold)
	exporter := export.NewExporter(db)
	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, log)

	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	operator := func(h http.HandlerFunc) http.Handler {
		return auth.RequireOperator(h)
	}

	ph := handlers.NewProductHandler(db)
	mux.Handle("/products", operator(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ph.List(w, r)
		case http.MethodPost:
			ph.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}))
	mux.Handle("/products/new", operator(ph.Create))
	mux.Handle("/products/edit", operator(ph.Edit))
	// image serving is public: the catalog shows product pictures
	mux.HandleFunc("/products/image", ph.Image)

	sh := handlers.NewStockHandler(db, ledger)
	mux.Handle("/products/restock", operator(sh.Restock))

	saleHandler := handlers.NewSaleHandler(db, ledger)
	mux.Handle("/sales/new", operator(saleHandler.NewSale))

	rh := handlers.NewReportHandler(reportSvc)
	mux.Handle("/dashboard", operator(rh.Dashboard))
	mux.Handle("/sales/report", operator(rh.SalesReport))

	oh := handlers.NewOrderHandler(orderSvc, exporter)
	mux.Handle("/orders", operator(oh.List))
	mux.Handle("/orders/status", operator(oh.UpdateStatus))
	mux.Handle("/orders/export", operator(oh.Export))

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	pub := handlers.NewPublicHandler(db, orderSvc, cfg.Verifier(), cfg.VerificationMode, mailer)
	mux.HandleFunc("/catalog", pub.Catalog)
	mux.HandleFunc("/product", pub.ProductDetail)
	mux.HandleFunc("/cart", pub.Cart)
	mux.HandleFunc("/order", pub.OrderForm)
	mux.HandleFunc("/order/sent", pub.OrderSent)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/catalog", http.StatusSeeOther)
	})

	return auth.Middleware(withRecover(withLogging(mux, log), log))
}

func withLogging(next http.Handler, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func withRecover(next http.Handler, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
