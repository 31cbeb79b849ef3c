package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"euvat/internal/evidence/vies"
	dErrors "euvat/pkg/domain-errors"
	"euvat/pkg/platform/httputil"
	"euvat/pkg/requestcontext"
)

// Validator is the adapter the lookup endpoint exposes.
type Validator interface {
	Validate(ctx context.Context, country, vatNumber string) vies.Result
}

type Handler struct {
	validator Validator
	logger    *slog.Logger
}

func New(validator Validator, logger *slog.Logger) *Handler {
	return &Handler{validator: validator, logger: logger}
}

// Register mounts the lookup endpoint. Callers wrap the router with the
// per-IP rate limiter before registering.
func (h *Handler) Register(r chi.Router) {
	r.Get("/vat/validate", h.HandleValidate)
}

// HandleValidate handles GET /vat/validate?country=&vat_number=. The body is
// the adapter result after the busy override and result filters.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	country := strings.TrimSpace(r.URL.Query().Get("country"))
	vatNumber := strings.TrimSpace(r.URL.Query().Get("vat_number"))

	if country == "" || vatNumber == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "country and vat_number are required"))
		return
	}

	result := h.validator.Validate(ctx, country, vatNumber)
	h.logger.InfoContext(ctx, "VAT number looked up",
		"request_id", requestcontext.RequestID(ctx),
		"country", country,
		"result", result.Outcome.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}
