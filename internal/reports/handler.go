package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/sales-summary", h.salesSummary)
		r.Get("/top-products", h.topProducts)
		r.Get("/low-stock", h.lowStock)
	})
}

// dateRange defaults to the trailing 30 days when the query omits bounds.
func dateRange(r *http.Request) (time.Time, time.Time) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30).Truncate(24 * time.Hour)
	to := now

	if raw := r.URL.Query().Get("start_date"); raw != "" {
		if ts, err := time.Parse("2006-01-02", raw); err == nil {
			from = ts
		}
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		if ts, err := time.Parse("2006-01-02", raw); err == nil {
			to = ts.AddDate(0, 0, 1)
		}
	}
	return from, to
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

func (h *Handler) salesSummary(w http.ResponseWriter, r *http.Request) {
	from, to := dateRange(r)
	summary, err := h.service.SalesSummary(r.Context(), from, to)
	if err != nil {
		h.logger.Error("sales summary failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="sales_summary.csv"`)
		if err := WriteSalesSummaryCSV(w, summary); err != nil {
			h.logger.Error("write summary csv failed", "error", err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Data: summary})
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	from, to := dateRange(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	products, err := h.service.TopProducts(r.Context(), from, to, limit)
	if err != nil {
		h.logger.Error("top products failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="top_products.csv"`)
		if err := WriteTopProductsCSV(w, products); err != nil {
			h.logger.Error("write top products csv failed", "error", err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Data: products})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	levels, err := h.service.LowStock(r.Context())
	if err != nil {
		h.logger.Error("low stock report failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="low_stock.csv"`)
		if err := WriteLowStockCSV(w, levels); err != nil {
			h.logger.Error("write low stock csv failed", "error", err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Data: levels})
}
