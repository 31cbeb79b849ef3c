// Package admin serves the shop manager's view of the VAT audit trail.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	dErrors "euvat/pkg/domain-errors"
	"euvat/pkg/platform/audit"
	"euvat/pkg/platform/httputil"
	"euvat/pkg/requestcontext"
)

// AuditReader lists recorded events by subject.
type AuditReader interface {
	List(ctx context.Context, subject string) ([]audit.Event, error)
}

type Handler struct {
	reader AuditReader
	logger *slog.Logger
}

func New(reader AuditReader, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, logger: logger}
}

// RegisterAdmin mounts the audit endpoint. The caller applies the admin
// middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/audit/{subject}", h.HandleAuditTrail)
}

// HandleAuditTrail handles GET /admin/audit/{subject}. The subject is an
// order ID or, before an order exists, the checkout session.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := strings.TrimSpace(chi.URLParam(r, "subject"))
	if subject == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "subject is required"))
		return
	}

	events, err := h.reader.List(ctx, subject)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", requestcontext.RequestID(ctx),
			"subject", subject,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditTrail(subject, events))
}
