package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"euvat/internal/ordervat"
	"euvat/pkg/platform/httputil"
	"euvat/pkg/requestcontext"
)

// Service defines the order VAT operations exposed over HTTP.
type Service interface {
	Get(ctx context.Context, orderID string) (*ordervat.OrderVAT, error)
	CollectManual(ctx context.Context, orderID string) (*ordervat.OrderVAT, error)
	CopyToRenewal(ctx context.Context, originalID, renewalID string) (*ordervat.OrderVAT, error)
}

// Handler wires order VAT endpoints to the recorder.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the storefront endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/orders/{orderID}/vat", h.HandleGet)
}

// RegisterAdmin mounts the shop manager endpoints. The caller applies the
// admin middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/orders/{orderID}/vat/collect", h.HandleCollect)
	r.Post("/admin/orders/{orderID}/renewals/{renewalID}", h.HandleCopyToRenewal)
}

// HandleGet handles GET /orders/{orderID}/vat.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "orderID")

	info, err := h.service.Get(ctx, orderID)
	if err != nil {
		h.fail(ctx, w, "failed to load order VAT data", orderID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

// HandleCollect handles POST /admin/orders/{orderID}/vat/collect.
func (h *Handler) HandleCollect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "orderID")

	info, err := h.service.CollectManual(ctx, orderID)
	if err != nil {
		h.fail(ctx, w, "manual VAT collection failed", orderID, err)
		return
	}
	h.logger.InfoContext(ctx, "manual order VAT data collected",
		"request_id", requestcontext.RequestID(ctx),
		"order_id", orderID,
	)
	httputil.WriteJSON(w, http.StatusOK, info)
}

// HandleCopyToRenewal handles POST /admin/orders/{orderID}/renewals/{renewalID}.
func (h *Handler) HandleCopyToRenewal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "orderID")
	renewalID := chi.URLParam(r, "renewalID")

	info, err := h.service.CopyToRenewal(ctx, orderID, renewalID)
	if err != nil {
		h.fail(ctx, w, "renewal VAT copy failed", orderID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg, orderID string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"order_id", orderID,
		"error", err,
	)
	httputil.WriteError(w, err)
}
