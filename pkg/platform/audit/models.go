package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers records a tax authority may ask for: exemption
	// decisions and the VAT data stored against orders.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers back-office actions and abuse signals.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers registry traffic useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// Subject is the order ID when one exists, otherwise the checkout session.
	Subject   string
	Country   string
	VATNumber string
	Decision  string
	Reason    string
	RequestID string
	// ActorID identifies the shop manager for back-office actions.
	ActorID string
	// Payload carries the serialized registry result or evidence snapshot.
	Payload string
}

type AuditEvent string

const (
	EventVATNumberValidated AuditEvent = "vat_number_validated"
	EventExemptionDecided   AuditEvent = "vat_exemption_decided"
	EventCheckoutAccepted   AuditEvent = "checkout_accepted"
	EventCheckoutRejected   AuditEvent = "checkout_rejected"
	EventOrderVATRecorded   AuditEvent = "order_vat_recorded"
	EventInvalidVATStored   AuditEvent = "invalid_vat_number_stored"
	EventManualCollection   AuditEvent = "order_vat_collected_manually"
	EventRenewalCopied      AuditEvent = "renewal_vat_copied"
	EventInvariantViolation AuditEvent = "exemption_invariant_violation"
	EventRateLimitExceeded  AuditEvent = "rate_limit_exceeded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventExemptionDecided:   CategoryCompliance,
	EventOrderVATRecorded:   CategoryCompliance,
	EventInvalidVATStored:   CategoryCompliance,
	EventRenewalCopied:      CategoryCompliance,
	EventInvariantViolation: CategoryCompliance,

	EventManualCollection:  CategorySecurity,
	EventRateLimitExceeded: CategorySecurity,

	EventVATNumberValidated: CategoryOperations,
	EventCheckoutAccepted:   CategoryOperations,
	EventCheckoutRejected:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

// Sink forwards events to an external system after they are stored.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
