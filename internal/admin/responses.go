package admin

import (
	"time"

	"euvat/pkg/platform/audit"
)

// EventResponse is one audit record as shown to a shop manager.
type EventResponse struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Country   string    `json:"country,omitempty"`
	VATNumber string    `json:"vat_number,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Payload   string    `json:"payload,omitempty"`
}

// AuditTrailResponse wraps the events recorded for one order or session.
type AuditTrailResponse struct {
	Subject string           `json:"subject"`
	Events  []*EventResponse `json:"events"`
	Total   int              `json:"total"`
}

func toAuditTrail(subject string, events []audit.Event) *AuditTrailResponse {
	resp := &AuditTrailResponse{Subject: subject, Events: make([]*EventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, &EventResponse{
			ID:        e.ID,
			Category:  string(e.Category),
			Timestamp: e.Timestamp,
			Action:    e.Action,
			Country:   e.Country,
			VATNumber: e.VATNumber,
			Decision:  e.Decision,
			Reason:    e.Reason,
			RequestID: e.RequestID,
			Payload:   e.Payload,
		})
	}
	resp.Total = len(resp.Events)
	return resp
}
