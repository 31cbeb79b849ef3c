package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	dErrors "euvat/pkg/domain-errors"
	"euvat/pkg/platform/httputil"
	"euvat/pkg/requestcontext"
)

// Converter is the currency conversion the endpoint exposes.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, decimals int32) (decimal.Decimal, error)
	VATCurrency() string
}

type Handler struct {
	converter Converter
	logger    *slog.Logger
}

func New(converter Converter, logger *slog.Logger) *Handler {
	return &Handler{converter: converter, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/currency/convert", h.HandleConvert)
}

// ConvertResponse echoes the request with the converted amount.
type ConvertResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Converted decimal.Decimal `json:"converted"`
}

// HandleConvert handles GET /currency/convert?amount=&from=&to=. An omitted
// "to" converts into the VAT reporting currency.
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	amount, err := decimal.NewFromString(strings.TrimSpace(q.Get("amount")))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "amount must be a number"))
		return
	}
	from := strings.ToUpper(strings.TrimSpace(q.Get("from")))
	if from == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "from is required"))
		return
	}
	to := strings.ToUpper(strings.TrimSpace(q.Get("to")))
	if to == "" {
		to = h.converter.VATCurrency()
	}

	converted, err := h.converter.Convert(ctx, amount, from, to, -1)
	if err != nil {
		h.logger.WarnContext(ctx, "currency conversion failed",
			"request_id", requestcontext.RequestID(ctx),
			"from", from,
			"to", to,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ConvertResponse{
		Amount:    amount,
		From:      from,
		To:        to,
		Converted: converted,
	})
}
