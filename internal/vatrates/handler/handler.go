package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"euvat/internal/vatrates"
	"euvat/pkg/platform/httputil"
	"euvat/pkg/requestcontext"
)

type Service interface {
	Rates(ctx context.Context) (vatrates.Table, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/vat/rates", h.HandleRates)
}

// RatesResponse is the normalized table plus its validity. An invalid table
// is still served so callers can see what the feed returned.
type RatesResponse struct {
	vatrates.Table
	Valid bool `json:"valid"`
}

// HandleRates handles GET /vat/rates.
func (h *Handler) HandleRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	table, err := h.service.Rates(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "VAT rates unavailable",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	valid := table.Valid()
	if !valid {
		h.logger.WarnContext(ctx, "serving invalid VAT rates table",
			"request_id", requestcontext.RequestID(ctx),
			"countries", len(table.Rates),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, &RatesResponse{Table: table, Valid: valid})
}
