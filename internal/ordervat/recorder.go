package ordervat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/mssola/useragent"
	"github.com/shopspring/decimal"

	"euvat/internal/exemption"
	"euvat/pkg/domain"
	dErrors "euvat/pkg/domain-errors"
	"euvat/pkg/platform/audit"
	"euvat/pkg/platform/sentinel"
	"euvat/pkg/requestcontext"
)

// renewalKeys are copied from an original order to its renewals.
var renewalKeys = []string{
	MetaEvidence,
	MetaVATNumber,
	MetaVATCountry,
	MetaValidationState,
	MetaSelfCertified,
}

// Recorder writes checkout decisions to the order store.
type Recorder struct {
	store          Store
	rates          RateSource
	renewalFilters []RenewalFilter
	manualEnabled  bool
	logger         *slog.Logger
	auditor        audit.Emitter
}

type Option func(*Recorder)

func WithRenewalFilter(f RenewalFilter) Option {
	return func(r *Recorder) {
		if f != nil {
			r.renewalFilters = append(r.renewalFilters, f)
		}
	}
}

// WithRateSource stores the VAT currency exchange rate with each order.
func WithRateSource(rates RateSource) Option {
	return func(r *Recorder) {
		r.rates = rates
	}
}

// WithManualCollection enables collecting VAT data for orders entered by
// shop staff.
func WithManualCollection(enabled bool) Option {
	return func(r *Recorder) {
		r.manualEnabled = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithAuditor(a audit.Emitter) Option {
	return func(r *Recorder) {
		r.auditor = a
	}
}

func NewRecorder(store Store, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("order store is required")
	}
	r := &Recorder{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record persists a finished checkout bundle. A VAT number that cannot be
// parsed is stored blank. An order that already carries a verdict is refused
// with CodeConflict and nothing is written.
func (r *Recorder) Record(ctx context.Context, b Bundle) error {
	return r.record(ctx, b, false)
}

// record writes order and customer meta in one transaction. overwrite lets
// shop staff replace a recorded verdict.
func (r *Recorder) record(ctx context.Context, b Bundle, overwrite bool) error {
	if strings.TrimSpace(b.OrderID) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "order id is required")
	}

	fullNumber := r.fullVATNumber(ctx, b)
	meta := map[string]string{
		MetaVATNumber:       fullNumber,
		MetaVATCountry:      b.Country,
		MetaValidationState: string(b.ValidationState),
		MetaSelfCertified:   yesNo(b.SelfCertified),
	}
	if b.BillingCountry != "" {
		meta[MetaBillingCountry] = b.BillingCountry
	}
	if b.Evidence != nil {
		payload, err := json.Marshal(b.Evidence)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode evidence")
		}
		meta[MetaEvidence] = string(payload)
	}
	if b.Currency != "" {
		meta[MetaOrderCurrency] = strings.ToUpper(b.Currency)
		if rate, ok := r.exchangeRate(ctx, b.Currency); ok {
			meta[MetaExchangeRate] = rate.String()
		}
	}

	var customer map[string]string
	if b.CustomerID != "" {
		customer = map[string]string{
			MetaVATNumber:       fullNumber,
			MetaVATCountry:      b.Country,
			MetaValidationState: string(b.ValidationState),
		}
		if b.BillingCountry != "" {
			customer[MetaBillingCountry] = b.BillingCountry
		}
	}

	err := r.store.RunInTx(ctx, func(st MetaStore) error {
		if !overwrite {
			if err := verdictOpen(ctx, st, b.OrderID); err != nil {
				return err
			}
		}
		if err := st.SetOrderMeta(ctx, b.OrderID, meta); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store order VAT data")
		}
		if customer != nil {
			if err := st.SetCustomerMeta(ctx, b.CustomerID, customer); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store customer VAT data")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "order VAT data recorded",
		"order_id", b.OrderID,
		"customer_id", b.CustomerID,
		"vat_country", b.Country,
		"vat_number", fullNumber,
		"validation_state", b.ValidationState,
	)
	r.emit(ctx, audit.EventOrderVATRecorded, b.OrderID, b.Country, fullNumber, string(b.ValidationState))
	if b.ValidationState == exemption.StateNotValid && fullNumber != "" {
		r.emit(ctx, audit.EventInvalidVATStored, b.OrderID, b.Country, fullNumber, string(b.ValidationState))
	}
	return nil
}

// verdictOpen fails when the order already carries a validation state.
func verdictOpen(ctx context.Context, st MetaStore, orderID string) error {
	existing, err := st.OrderMeta(ctx, orderID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order")
	}
	if existing[MetaValidationState] != "" {
		return dErrors.New(dErrors.CodeConflict, "order VAT verdict is already recorded")
	}
	return nil
}

func (r *Recorder) fullVATNumber(ctx context.Context, b Bundle) string {
	if strings.TrimSpace(b.VATNumber) == "" {
		return ""
	}
	full, err := domain.FullVATNumber(domain.ParseCountryCode(b.Country), b.VATNumber)
	if err != nil {
		r.logger.ErrorContext(ctx, "invalid VAT number parsed",
			"order_id", b.OrderID,
			"vat_number", b.VATNumber,
			"error", err,
		)
		return ""
	}
	return full
}

func (r *Recorder) exchangeRate(ctx context.Context, currency string) (decimal.Decimal, bool) {
	if r.rates == nil {
		return decimal.Zero, false
	}
	rate, err := r.rates.Rate(ctx, currency, r.rates.VATCurrency())
	if err != nil {
		r.logger.WarnContext(ctx, "no VAT exchange rate for order currency", "currency", currency, "error", err)
		return decimal.Zero, false
	}
	return rate, true
}

// Get returns the stored VAT information of an order.
func (r *Recorder) Get(ctx context.Context, orderID string) (*OrderVAT, error) {
	meta, err := r.orderMeta(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return fromMeta(ctx, r.logger, orderID, meta), nil
}

// ExchangeRate returns the VAT currency exchange rate stored with an order,
// or def when none was stored.
func (r *Recorder) ExchangeRate(ctx context.Context, orderID string, def decimal.Decimal) decimal.Decimal {
	meta, err := r.store.OrderMeta(ctx, orderID)
	if err != nil {
		return def
	}
	rate, err := decimal.NewFromString(meta[MetaExchangeRate])
	if err != nil {
		return def
	}
	return rate
}

// CollectManual re-records an order entered by shop staff, replacing any
// recorded verdict. The stored number and billing country are kept, falling
// back to the VAT country when no billing country was stored; the number is
// marked as not validated.
func (r *Recorder) CollectManual(ctx context.Context, orderID string) (*OrderVAT, error) {
	if !r.manualEnabled {
		return nil, dErrors.New(dErrors.CodeForbidden, "VAT collection for manual orders is disabled")
	}
	meta, err := r.orderMeta(ctx, orderID)
	if err != nil {
		return nil, err
	}
	current := fromMeta(ctx, r.logger, orderID, meta)

	country := meta[MetaBillingCountry]
	if country == "" {
		country = meta[MetaVATCountry]
	}
	b := Bundle{
		OrderID:         orderID,
		Country:         country,
		VATNumber:       meta[MetaVATNumber],
		ValidationState: exemption.StateEnteredManually,
		SelfCertified:   current.SelfCertified,
		BillingCountry:  meta[MetaBillingCountry],
		Currency:        meta[MetaOrderCurrency],
		Evidence:        current.Evidence,
	}
	if err := r.record(ctx, b, true); err != nil {
		return nil, err
	}
	r.emit(ctx, audit.EventManualCollection, orderID, b.Country, meta[MetaVATNumber], string(b.ValidationState))
	return r.Get(ctx, orderID)
}

// CopyToRenewal copies the VAT data of an original order to a renewal order
// without validating the number again.
func (r *Recorder) CopyToRenewal(ctx context.Context, originalID, renewalID string) (*OrderVAT, error) {
	if strings.TrimSpace(renewalID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "renewal order id is required")
	}
	original, err := r.orderMeta(ctx, originalID)
	if err != nil {
		return nil, err
	}

	copied := make(map[string]string, len(renewalKeys))
	for _, key := range renewalKeys {
		copied[key] = original[key]
	}
	for _, f := range r.renewalFilters {
		copied = f(copied)
	}

	if err := r.store.SetOrderMeta(ctx, renewalID, copied); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store renewal VAT data")
	}
	r.logger.InfoContext(ctx, "VAT data copied to renewal order",
		"original_order_id", originalID,
		"renewal_order_id", renewalID,
	)
	r.emit(ctx, audit.EventRenewalCopied, renewalID, copied[MetaVATCountry], copied[MetaVATNumber], copied[MetaValidationState])
	return fromMeta(ctx, r.logger, renewalID, copied), nil
}

// CustomerBillingCountry returns the billing country on the customer record.
func (r *Recorder) CustomerBillingCountry(ctx context.Context, customerID string) (string, error) {
	meta, err := r.store.CustomerMeta(ctx, customerID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load customer")
	}
	return meta[MetaBillingCountry], nil
}

func (r *Recorder) orderMeta(ctx context.Context, orderID string) (map[string]string, error) {
	meta, err := r.store.OrderMeta(ctx, orderID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order")
	}
	return meta, nil
}

func (r *Recorder) emit(ctx context.Context, action audit.AuditEvent, orderID, country, vatNumber, decision string) {
	if r.auditor == nil {
		return
	}
	if err := r.auditor.Emit(ctx, audit.Event{
		Action:    string(action),
		Subject:   orderID,
		Country:   country,
		VATNumber: vatNumber,
		Decision:  decision,
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		r.logger.WarnContext(ctx, "failed to emit order audit event", "action", action, "error", err)
	}
}

func fromMeta(ctx context.Context, logger *slog.Logger, orderID string, meta map[string]string) *OrderVAT {
	v := &OrderVAT{
		OrderID:         orderID,
		VATNumber:       meta[MetaVATNumber],
		Country:         meta[MetaVATCountry],
		ValidationState: exemption.ValidationState(meta[MetaValidationState]),
		SelfCertified:   meta[MetaSelfCertified] == Yes,
	}
	if raw := meta[MetaExchangeRate]; raw != "" {
		if rate, err := decimal.NewFromString(raw); err == nil {
			v.ExchangeRate = &rate
		}
	}
	if raw := meta[MetaEvidence]; raw != "" {
		var ev Evidence
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			logger.WarnContext(ctx, "stored evidence is not valid JSON", "order_id", orderID, "error", err)
		} else {
			v.Evidence = &ev
		}
	}
	return v
}

// ParseUserAgent summarizes a User-Agent header for the evidence snapshot.
func ParseUserAgent(raw string) UserAgent {
	if raw == "" {
		return UserAgent{}
	}
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	return UserAgent{
		Raw:            raw,
		Browser:        browser,
		BrowserVersion: version,
		OS:             ua.OS(),
		Mobile:         ua.Mobile(),
		Bot:            ua.Bot(),
	}
}

func yesNo(b bool) string {
	if b {
		return Yes
	}
	return No
}
