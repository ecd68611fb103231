package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
)

// Handler exposes inventory endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/levels", h.ListLevels)
	r.Get("/movements", h.ListMovements)
	r.Post("/adjustments", h.Adjust)
}

// ListLevels returns stock levels with status classification.
func (h *Handler) ListLevels(w http.ResponseWriter, r *http.Request) {
	filter := LevelFilter{
		Status: Status(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}

	levels, err := h.service.Levels(r.Context(), filter)
	if err != nil {
		h.logger.Error("list levels failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Data: levels})
}

// ListMovements returns the stock movement history.
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	filter := MovementFilter{}
	if id, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64); err == nil {
		filter.ProductID = id
	}
	if t, err := time.Parse("2006-01-02", r.URL.Query().Get("from")); err == nil {
		filter.From = t
	}
	if t, err := time.Parse("2006-01-02", r.URL.Query().Get("to")); err == nil {
		filter.To = t.Add(24 * time.Hour)
	}

	movements, err := h.service.Movements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Data: movements})
}

type adjustRequest struct {
	ProductID int64  `json:"product_id"`
	Qty       int    `json:"qty"`
	Note      string `json:"note"`
}

// Adjust posts a manual stock correction.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	movement, err := h.service.PostAdjustment(r.Context(), MovementInput{
		ProductID: req.ProductID,
		Qty:       req.Qty,
		RefModule: "INVENTORY",
		Note:      req.Note,
	})
	if err != nil {
		h.logger.Error("post adjustment failed", slog.Any("error", err), slog.Int64("product_id", req.ProductID))
		respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, httpx.Envelope{Data: movement})
}

func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrNegativeStock):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
