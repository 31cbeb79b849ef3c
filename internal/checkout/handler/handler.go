package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"euvat/internal/checkout"
	"euvat/internal/evidence/location"
	"euvat/pkg/platform/httputil"
	"euvat/pkg/requestcontext"
)

// Service defines the gatekeeper operations exposed over HTTP.
type Service interface {
	Evaluate(ctx context.Context, sub checkout.Submission) checkout.Outcome
	Review(ctx context.Context, in checkout.ReviewInput) checkout.ReviewResult
	EvidenceCheck(claim location.Claim) location.Verdict
	VATNumberRequired(country, company string) bool
}

// Handler wires checkout endpoints to the gatekeeper.
type Handler struct {
	service  Service
	resolver location.Resolver
	logger   *slog.Logger
}

// New constructs a checkout handler. The resolver supplies the IP country
// evidence; it is never taken from the request body.
func New(service Service, resolver location.Resolver, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		resolver: resolver,
		logger:   logger,
	}
}

// Register mounts checkout endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/checkout/review", h.HandleReview)
	r.Post("/checkout/submit", h.HandleSubmit)
	r.Get("/vat/required", h.HandleRequired)
	r.Post("/evidence/check", h.HandleEvidence)
}

// HandleSubmit handles POST /checkout/submit. A rejected attempt is a normal
// answer and returns 200 with allowed=false.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	out := h.service.Evaluate(ctx, req.Submission(h.ipCountry(ctx, r)))

	h.logger.InfoContext(ctx, "checkout submitted",
		"request_id", requestID,
		"order_id", req.OrderID,
		"allowed", out.Allowed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleReview handles POST /checkout/review.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	res := h.service.Review(ctx, checkout.ReviewInput{
		BillingCountry:         req.BillingCountry,
		ShippingCountry:        req.ShippingCountry,
		ShipToDifferentAddress: req.ShipToDifferentAddress,
		IPCountry:              h.ipCountry(ctx, r),
		Company:                req.Company,
		VATNumber:              req.VATNumber,
	})
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleRequired handles GET /vat/required?country=&company=.
func (h *Handler) HandleRequired(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	httputil.WriteJSON(w, http.StatusOK, RequiredResponse{
		Required: h.service.VATNumberRequired(q.Get("country"), q.Get("company")),
	})
}

// HandleEvidence handles POST /evidence/check.
func (h *Handler) HandleEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[EvidenceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	verdict := h.service.EvidenceCheck(location.Claim{
		BillingCountry:         req.BillingCountry,
		ShippingCountry:        req.ShippingCountry,
		ShipToDifferentAddress: req.ShipToDifferentAddress,
		IPCountry:              h.ipCountry(ctx, r),
	})
	httputil.WriteJSON(w, http.StatusOK, verdict)
}

func (h *Handler) ipCountry(ctx context.Context, r *http.Request) string {
	if h.resolver == nil {
		return ""
	}
	return h.resolver.Resolve(ctx, r).String()
}
