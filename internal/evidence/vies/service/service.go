// Package service is the VAT number validator adapter: it puts the session
// memo, circuit breaker, server-busy policy, audit log and result filters
// around the raw registry client.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"euvat/internal/evidence/vies"
	"euvat/internal/evidence/vies/store"
	"euvat/pkg/domain"
	"euvat/pkg/platform/audit"
	"euvat/pkg/platform/circuit"
	"euvat/pkg/platform/sentinel"
	"euvat/pkg/platform/tracing"
	"euvat/pkg/requestcontext"
)

// RegistryClient is the remote validation capability.
type RegistryClient interface {
	Check(ctx context.Context, country domain.CountryCode, number string) (vies.Result, error)
}

// MemoStore keeps the last definitive answer per checkout session.
type MemoStore interface {
	Find(ctx context.Context, sessionID string) (store.Memo, error)
	Save(ctx context.Context, sessionID string, memo store.Memo) error
}

// Service validates VAT numbers. It never returns an error: every failure
// resolves to an unknown result.
type Service struct {
	client         RegistryClient
	memo           MemoStore
	breaker        *circuit.Breaker
	acceptWhenBusy bool
	timeout        time.Duration
	filters        []vies.ResultFilter
	logger         *slog.Logger
	auditor        audit.Emitter
	metrics        *Metrics
	tracer         trace.Tracer
	now            func() time.Time
}

type Option func(*Service)

// WithAcceptWhenServerBusy sets the outcome used when the registry reports
// SERVER_BUSY: true treats the number as valid, false as invalid.
func WithAcceptWhenServerBusy(accept bool) Option {
	return func(s *Service) {
		s.acceptWhenBusy = accept
	}
}

func WithMemo(memo MemoStore) Option {
	return func(s *Service) {
		s.memo = memo
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

// WithTimeout bounds each registry round-trip.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithResultFilter appends a filter; filters run in registration order.
func WithResultFilter(f vies.ResultFilter) Option {
	return func(s *Service) {
		if f != nil {
			s.filters = append(s.filters, f)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(client RegistryClient, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, errors.New("registry client is required")
	}
	s := &Service{
		client:         client,
		acceptWhenBusy: true,
		timeout:        5 * time.Second,
		logger:         slog.Default(),
		tracer:         tracing.Tracer("vies"),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Validate checks a VAT number for a country. The number may carry its
// country prefix and separators.
func (s *Service) Validate(ctx context.Context, country, vatNumber string) vies.Result {
	ctx, span := s.tracer.Start(ctx, "vies.Validate", trace.WithAttributes(attribute.String("vat.country", country)))
	defer span.End()

	result, source := s.lookup(ctx, country, vatNumber)

	if result.Outcome == vies.OutcomeUnknown && result.IsServerBusy() {
		result = s.busyOverride(result)
		source = "busy_override"
	}

	s.record(ctx, country, vatNumber, result, source)

	for _, f := range s.filters {
		result = f(result, country, vatNumber)
	}
	span.SetAttributes(attribute.String("vat.outcome", result.Outcome.String()), attribute.String("vat.source", source))
	return result
}

func (s *Service) lookup(ctx context.Context, rawCountry, rawNumber string) (vies.Result, string) {
	country := domain.ParseCountryCode(rawCountry)
	if country == "" {
		return vies.Result{Outcome: vies.OutcomeInvalid, Errors: []string{vies.ErrCodeInvalidInput}}, "input"
	}
	number, err := domain.ParseVATNumberFor(country, rawNumber)
	if err != nil {
		s.logger.InfoContext(ctx, "vat number rejected before registry lookup",
			"country", string(country),
			"error", err,
		)
		return vies.Result{Outcome: vies.OutcomeInvalid, Errors: []string{vies.ErrCodeInvalidInput}}, "input"
	}

	sessionID := requestcontext.SessionID(ctx)
	if memo, ok := s.findMemo(ctx, sessionID); ok && memo.Matches(string(country), number) {
		s.metrics.IncMemoHit()
		return memo.Result, "memo"
	} else if s.memo != nil && sessionID != "" {
		s.metrics.IncMemoMiss()
	}

	if s.breaker != nil && !s.breaker.Allow() {
		return vies.Unknown(vies.ErrCodeMSUnavailable), "circuit_open"
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := s.now()
	result, err := s.client.Check(callCtx, country, number)
	s.metrics.ObserveLatency(s.now().Sub(start))
	if err != nil {
		s.logger.WarnContext(ctx, "vat registry call failed",
			"country", string(country),
			"category", vies.GetCategory(err),
			"retryable", vies.IsRetryable(err),
			"error", err,
		)
		result = vies.ResultForError(err)
	}

	s.recordBreaker(ctx, result)

	if result.Outcome != vies.OutcomeUnknown && sessionID != "" && s.memo != nil {
		memo := store.Memo{Country: string(country), VATNumber: number, Result: result, CheckedAt: s.now()}
		if err := s.memo.Save(ctx, sessionID, memo); err != nil {
			s.logger.WarnContext(ctx, "failed to save validation memo", "error", err)
		}
	}
	return result, "registry"
}

func (s *Service) findMemo(ctx context.Context, sessionID string) (store.Memo, bool) {
	if s.memo == nil || sessionID == "" {
		return store.Memo{}, false
	}
	memo, err := s.memo.Find(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "validation memo unavailable", "error", err)
		}
		return store.Memo{}, false
	}
	return memo, true
}

func (s *Service) recordBreaker(ctx context.Context, result vies.Result) {
	if s.breaker == nil {
		return
	}
	var change circuit.StateChange
	if result.Outcome == vies.OutcomeUnknown {
		_, change = s.breaker.RecordFailure()
	} else {
		_, change = s.breaker.RecordSuccess()
	}
	switch {
	case change.Opened:
		s.logger.WarnContext(ctx, "vat registry circuit opened", "breaker", s.breaker.Name())
		s.metrics.SetCircuitOpen(true)
	case change.Closed:
		s.logger.InfoContext(ctx, "vat registry circuit closed", "breaker", s.breaker.Name())
		s.metrics.SetCircuitOpen(false)
	}
}

// busyOverride keeps the registry's errors so the audit trail shows why the
// number was accepted or refused.
func (s *Service) busyOverride(result vies.Result) vies.Result {
	overridden := result
	if s.acceptWhenBusy {
		overridden.Outcome = vies.OutcomeValid
	} else {
		overridden.Outcome = vies.OutcomeInvalid
	}
	return overridden
}

func (s *Service) record(ctx context.Context, country, vatNumber string, result vies.Result, source string) {
	s.metrics.IncOutcome(result.Outcome.String(), source)

	raw, err := json.Marshal(result)
	if err != nil {
		raw = []byte(fmt.Sprintf("%q", err.Error()))
	}
	s.logger.InfoContext(ctx, "vat number validation response",
		"country", country,
		"vat_number", vatNumber,
		"source", source,
		"raw_result", string(raw),
		"request_id", requestcontext.RequestID(ctx),
	)

	if s.auditor == nil {
		return
	}
	subject := requestcontext.SessionID(ctx)
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:    string(audit.EventVATNumberValidated),
		Subject:   subject,
		Country:   country,
		VATNumber: vatNumber,
		Decision:  result.Outcome.String(),
		Reason:    source,
		RequestID: requestcontext.RequestID(ctx),
		Payload:   string(raw),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit validation audit event", "error", err)
	}
}
