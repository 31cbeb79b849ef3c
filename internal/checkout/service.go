package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"euvat/internal/checkout/metrics"
	"euvat/internal/evidence/location"
	"euvat/internal/exemption"
	"euvat/internal/ordervat"
	"euvat/internal/platform/config"
	dErrors "euvat/pkg/domain-errors"
	"euvat/pkg/platform/audit"
	"euvat/pkg/platform/tracing"
	"euvat/pkg/requestcontext"
)

// Decider computes the exemption verdict.
type Decider interface {
	Decide(ctx context.Context, country, vatNumber string) exemption.Verdict
}

// RequirementChecker reports whether a VAT number is mandatory.
type RequirementChecker interface {
	Required(country, company string) bool
}

// EvidenceCollector checks location evidence.
type EvidenceCollector interface {
	Collect(claim location.Claim, shippingAsEvidence bool) location.Verdict
}

// CustomerDirectory returns the billing country on a customer record.
type CustomerDirectory interface {
	CustomerBillingCountry(ctx context.Context, customerID string) (string, error)
}

// Recorder persists an accepted attempt against its order.
type Recorder interface {
	Record(ctx context.Context, b ordervat.Bundle) error
}

// Service evaluates checkout attempts. It holds no per-attempt state.
type Service struct {
	decider     Decider
	requirement RequirementChecker
	evidence    EvidenceCollector
	settings    config.VAT
	customers   CustomerDirectory
	recorder    Recorder
	logger      *slog.Logger
	metrics     *metrics.Metrics
	auditor     audit.Emitter
	tracer      trace.Tracer
}

type Option func(*Service)

func WithCustomerDirectory(d CustomerDirectory) Option {
	return func(s *Service) {
		s.customers = d
	}
}

// WithRecorder stores accepted attempts that carry an order ID.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func New(decider Decider, requirement RequirementChecker, evidence EvidenceCollector, settings config.VAT, opts ...Option) (*Service, error) {
	if decider == nil {
		return nil, errors.New("exemption decider is required")
	}
	if requirement == nil {
		return nil, errors.New("requirement checker is required")
	}
	if evidence == nil {
		return nil, errors.New("evidence collector is required")
	}
	s := &Service{
		decider:     decider,
		requirement: requirement,
		evidence:    evidence,
		settings:    settings,
		logger:      slog.Default(),
		tracer:      tracing.Tracer("checkout"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Evaluate is the authoritative gate run at final submission.
// Rule order:
//  1. Resolve the customer country, posted billing first.
//  2. Decide the exemption.
//  3. Evaluate the VAT number requirement.
//  4. A required number that is not VALID rejects and ends evaluation.
//  5. An invalid number rejects unless invalid numbers may be stored.
//  6. Insufficient location evidence rejects unless the number is VALID or
//     the customer self-certified.
func (s *Service) Evaluate(ctx context.Context, sub Submission) Outcome {
	start := time.Now()
	ctx, end := tracing.Start(ctx, s.tracer, "checkout.Evaluate")
	defer end(nil)

	country := s.resolveCountry(ctx, sub)

	var verdict exemption.Verdict
	var evidence location.Verdict
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		verdict = s.decider.Decide(gctx, country, sub.VATNumber)
		return nil
	})
	g.Go(func() error {
		evidence = s.evidence.Collect(sub.claim(), s.settings.ShippingAsEvidence)
		return nil
	})
	_ = g.Wait()

	out := Outcome{
		Allowed:         true,
		State:           StateAccepted,
		Errors:          []string{},
		Exempt:          verdict.Exempt,
		Country:         verdict.Country,
		VATNumber:       verdict.VATNumber,
		ValidationState: verdict.ValidationState,
		SelfCertified:   sub.SelfCertified,
		Evidence:        evidence,
	}

	out.VATRequired = s.requirement.Required(country, sub.Company)
	if out.VATRequired && verdict.ValidationState != exemption.StateValid {
		out.reject(RejectVATNumberRequired, sub.VATNumber)
		return s.finish(ctx, sub, out, start)
	}

	if verdict.Result == exemption.ResultInvalidVATNumber && !s.settings.StoreInvalidNumbers {
		out.reject(RejectVATNumberInvalid, sub.VATNumber)
	}

	if s.locationUnconfirmed(verdict, evidence, sub.SelfCertified) {
		out.reject(RejectLocationEvidence, sub.VATNumber)
	}

	return s.finish(ctx, sub, out, start)
}

// locationUnconfirmed applies the self-certification rule.
func (s *Service) locationUnconfirmed(verdict exemption.Verdict, evidence location.Verdict, selfCertified bool) bool {
	if s.settings.SelfCertification == config.SelfCertNo {
		return false
	}
	if verdict.Exempt && s.settings.HideSelfCertWhenVATValid {
		return false
	}
	if evidence.Sufficient || verdict.ValidationState == exemption.StateValid {
		return false
	}
	return s.settings.SelfCertRequiredOnConflict && !selfCertified
}

// resolveCountry prefers the billing country posted with this attempt, which
// is what the customer record holds once the checkout form is saved. The
// stored record is only consulted when nothing was posted.
func (s *Service) resolveCountry(ctx context.Context, sub Submission) string {
	if country := strings.ToUpper(strings.TrimSpace(sub.BillingCountry)); country != "" {
		return country
	}

	if s.customers != nil && sub.CustomerID != "" {
		country, err := s.customers.CustomerBillingCountry(ctx, sub.CustomerID)
		if err != nil {
			s.logger.WarnContext(ctx, "customer lookup failed",
				"customer_id", sub.CustomerID,
				"error", err,
			)
		}
		if country = strings.TrimSpace(country); country != "" {
			return strings.ToUpper(country)
		}
	}

	s.logger.WarnContext(ctx, "no customer country was posted during checkout, VAT exemption cannot be applied correctly",
		"customer_id", sub.CustomerID,
		"order_id", sub.OrderID,
	)
	return ""
}

func (s *Service) finish(ctx context.Context, sub Submission, out Outcome, start time.Time) Outcome {
	if out.Allowed && sub.OrderID != "" && s.recorder != nil {
		err := s.recorder.Record(ctx, s.bundle(ctx, sub, out))
		switch {
		case dErrors.HasCode(err, dErrors.CodeConflict):
			s.logger.WarnContext(ctx, "order already carries a VAT verdict, keeping it",
				"request_id", requestcontext.RequestID(ctx),
				"order_id", sub.OrderID,
			)
		case err != nil:
			s.logger.ErrorContext(ctx, "failed to record order VAT data",
				"order_id", sub.OrderID,
				"error", err,
			)
		default:
			out.Recorded = true
		}
	}

	s.metrics.IncrementAttempt(string(out.State))
	for _, r := range out.Reasons {
		s.metrics.IncrementRejection(string(r))
	}
	s.metrics.ObserveEvaluateLatency(time.Since(start))
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("checkout.state", string(out.State)),
		attribute.String("vat.validation_state", string(out.ValidationState)),
	)

	s.logger.InfoContext(ctx, "checkout evaluated",
		"request_id", requestcontext.RequestID(ctx),
		"order_id", sub.OrderID,
		"state", out.State,
		"reasons", out.Reasons,
		"vat_country", out.Country,
		"validation_state", out.ValidationState,
		"exempt", out.Exempt,
		"evidence_sufficient", out.Evidence.Sufficient,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	action := audit.EventCheckoutAccepted
	if !out.Allowed {
		action = audit.EventCheckoutRejected
	}
	if s.auditor != nil {
		reasons := make([]string, 0, len(out.Reasons))
		for _, r := range out.Reasons {
			reasons = append(reasons, string(r))
		}
		subject := sub.OrderID
		if subject == "" {
			subject = requestcontext.SessionID(ctx)
		}
		if err := s.auditor.Emit(ctx, audit.Event{
			Action:    string(action),
			Subject:   subject,
			Country:   out.Country,
			VATNumber: out.VATNumber,
			Decision:  string(out.State),
			Reason:    strings.Join(reasons, ","),
			RequestID: requestcontext.RequestID(ctx),
			ActorID:   sub.CustomerID,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to emit checkout audit event", "error", err)
		}
	}
	return out
}

func (s *Service) bundle(ctx context.Context, sub Submission, out Outcome) ordervat.Bundle {
	return ordervat.Bundle{
		OrderID:         sub.OrderID,
		CustomerID:      sub.CustomerID,
		Country:         out.Country,
		VATNumber:       out.VATNumber,
		ValidationState: out.ValidationState,
		SelfCertified:   sub.SelfCertified,
		BillingCountry:  strings.ToUpper(strings.TrimSpace(sub.BillingCountry)),
		Currency:        sub.Currency,
		Evidence: &ordervat.Evidence{
			BillingCountry:  sub.BillingCountry,
			ShippingCountry: sub.claim().EffectiveShippingCountry(),
			IPAddress:       requestcontext.ClientIP(ctx),
			IPCountry:       sub.IPCountry,
			SelfCertified:   sub.SelfCertified,
			UserAgent:       ordervat.ParseUserAgent(requestcontext.UserAgent(ctx)),
			CollectedAt:     requestcontext.Now(ctx),
		},
	}
}

// Review runs during order review. The tax country follows the configured
// tax basis; an empty billing country skips the review.
func (s *Service) Review(ctx context.Context, in ReviewInput) ReviewResult {
	billing := strings.ToUpper(strings.TrimSpace(in.BillingCountry))
	if billing == "" {
		return ReviewResult{Skipped: true}
	}

	country := billing
	if s.settings.TaxBasedOn == config.TaxBasedOnShipping && in.ShipToDifferentAddress {
		if shipping := strings.ToUpper(strings.TrimSpace(in.ShippingCountry)); shipping != "" {
			country = shipping
		}
	}

	verdict := s.decider.Decide(ctx, country, in.VATNumber)
	evidence := s.evidence.Collect(location.Claim{
		BillingCountry:         billing,
		ShippingCountry:        in.ShippingCountry,
		ShipToDifferentAddress: in.ShipToDifferentAddress,
		IPCountry:              in.IPCountry,
	}, s.settings.ShippingAsEvidence)

	return ReviewResult{
		TaxCountry:            country,
		Verdict:               verdict,
		VATRequired:           s.requirement.Required(country, in.Company),
		Evidence:              evidence,
		ShowSelfCertification: s.showSelfCertification(verdict, evidence),
	}
}

func (s *Service) showSelfCertification(verdict exemption.Verdict, evidence location.Verdict) bool {
	if verdict.ValidationState == exemption.StateValid && s.settings.HideSelfCertWhenVATValid {
		return false
	}
	switch s.settings.SelfCertification {
	case config.SelfCertYes:
		return true
	case config.SelfCertConflictOnly:
		return !evidence.Sufficient
	default:
		return false
	}
}

// EvidenceCheck reports whether the claim carries enough location evidence.
func (s *Service) EvidenceCheck(claim location.Claim) location.Verdict {
	return s.evidence.Collect(claim, s.settings.ShippingAsEvidence)
}

// VATNumberRequired reports whether a VAT number is mandatory.
func (s *Service) VATNumberRequired(country, company string) bool {
	return s.requirement.Required(country, company)
}
