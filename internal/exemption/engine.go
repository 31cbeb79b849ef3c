// Package exemption decides whether a customer is exempt from EU VAT and how
// their VAT number is classified.
package exemption

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"euvat/internal/evidence/vies"
	"euvat/internal/platform/config"
	"euvat/pkg/domain"
	"euvat/pkg/platform/audit"
	"euvat/pkg/platform/tracing"
	"euvat/pkg/requestcontext"
)

// Validator is the VAT number validator adapter.
type Validator interface {
	Validate(ctx context.Context, country, vatNumber string) vies.Result
}

// InvariantViolation is the panic value raised in strict mode when a filter
// marks a customer exempt without a valid number.
type InvariantViolation struct {
	Verdict Verdict
}

func (v InvariantViolation) Error() string {
	return fmt.Sprintf("exemption granted with validation state %s", v.Verdict.ValidationState)
}

// Engine computes exemption verdicts. It keeps no per-request state.
type Engine struct {
	validator Validator
	settings  config.VAT
	eu        domain.CountrySet
	filters   []ExemptionFilter
	countries []CountriesFilter
	strict    bool
	logger    *slog.Logger
	auditor   audit.Emitter
	metrics   *Metrics
	tracer    trace.Tracer
}

type Option func(*Engine)

// WithExemptionFilter appends a filter; filters run in registration order.
func WithExemptionFilter(f ExemptionFilter) Option {
	return func(e *Engine) {
		if f != nil {
			e.filters = append(e.filters, f)
		}
	}
}

// WithCountriesFilter adjusts the EU VAT country list.
func WithCountriesFilter(f CountriesFilter) Option {
	return func(e *Engine) {
		if f != nil {
			e.countries = append(e.countries, f)
		}
	}
}

// WithStrictInvariants makes invariant violations panic instead of being
// corrected and logged.
func WithStrictInvariants(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithAuditor(a audit.Emitter) Option {
	return func(e *Engine) {
		e.auditor = a
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func New(validator Validator, settings config.VAT, opts ...Option) (*Engine, error) {
	if validator == nil {
		return nil, errors.New("validator is required")
	}
	e := &Engine{
		validator: validator,
		settings:  settings,
		logger:    slog.Default(),
		tracer:    tracing.Tracer("exemption"),
	}
	for _, opt := range opts {
		opt(e)
	}

	countries := append([]string{}, settings.EUCountries...)
	if len(countries) == 0 {
		countries = append(countries, domain.DefaultEUVATCountries...)
	}
	for _, f := range e.countries {
		countries = f(countries)
	}
	e.eu = domain.NewCountrySet(countries...)
	if e.eu.Len() == 0 {
		return nil, errors.New("EU VAT country list is empty")
	}
	return e, nil
}

// Settings returns the settings snapshot the engine was built with.
func (e *Engine) Settings() config.VAT {
	return e.settings
}

// IsEUCountry reports whether EU VAT rules apply to a country.
func (e *Engine) IsEUCountry(country string) bool {
	return e.eu.Contains(domain.ParseCountryCode(country))
}

// EUCountries returns the effective EU VAT country list, sorted.
func (e *Engine) EUCountries() []string {
	return e.eu.Codes()
}

// Decide computes the verdict for a customer country and VAT number. It
// never fails: registry problems become COULD_NOT_VALIDATE.
func (e *Engine) Decide(ctx context.Context, country, vatNumber string) Verdict {
	country = strings.ToUpper(strings.TrimSpace(country))
	vatNumber = strings.TrimSpace(vatNumber)

	ctx, span := e.tracer.Start(ctx, "exemption.Decide", trace.WithAttributes(attribute.String("vat.country", country)))
	defer span.End()

	e.logger.DebugContext(ctx, "setting customer vat exemption", "country", country, "vat_number", vatNumber)

	c := classify(e.settings, e.eu, country, vatNumber)
	v := c.verdict
	if c.askRegistry {
		v = applyRegistry(e.settings, v, e.validator.Validate(ctx, country, vatNumber))
		if v.ValidationState == StateCouldNotValidate {
			e.logger.WarnContext(ctx, "vat number could not be validated",
				"country", country,
				"vat_number", vatNumber,
				"errors", v.Registry.Errors,
			)
		}
	}

	for _, f := range e.filters {
		v.Exempt = f(v.Exempt, v, v.Registry)
	}
	v = e.enforceInvariants(ctx, v)

	e.metrics.ObserveDecision(v)
	span.SetAttributes(
		attribute.String("vat.validation_state", string(v.ValidationState)),
		attribute.Bool("vat.exempt", v.Exempt),
	)
	e.logger.InfoContext(ctx, "vat exemption check completed",
		"country", country,
		"vat_number", vatNumber,
		"validation_state", v.ValidationState,
		"exempt", v.Exempt,
		"result", v.Result,
		"short_circuit", c.shortCircuit,
	)
	e.emit(ctx, audit.EventExemptionDecided, v, c.shortCircuit)
	return v
}

func (e *Engine) enforceInvariants(ctx context.Context, v Verdict) Verdict {
	if !v.Exempt || v.ValidationState == StateValid {
		return v
	}
	violation := InvariantViolation{Verdict: v}
	e.metrics.IncInvariantViolation()
	e.emit(ctx, audit.EventInvariantViolation, v, violation.Error())
	if e.strict {
		panic(violation)
	}
	e.logger.ErrorContext(ctx, "exemption invariant violated, exemption revoked",
		"country", v.Country,
		"validation_state", v.ValidationState,
	)
	v.Exempt = false
	return v
}

func (e *Engine) emit(ctx context.Context, action audit.AuditEvent, v Verdict, reason string) {
	if e.auditor == nil {
		return
	}
	decision := "not_exempt"
	if v.Exempt {
		decision = "exempt"
	}
	if err := e.auditor.Emit(ctx, audit.Event{
		Action:    string(action),
		Subject:   requestcontext.SessionID(ctx),
		Country:   v.Country,
		VATNumber: v.VATNumber,
		Decision:  decision,
		Reason:    strings.TrimSpace(string(v.ValidationState) + " " + reason),
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		e.logger.WarnContext(ctx, "failed to emit exemption audit event", "error", err)
	}
}
