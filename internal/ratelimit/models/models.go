// Package models holds the rate limit result shared by the store and the
// middleware.
package models

import "time"

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is in seconds; set only when the request is refused.
	RetryAfter int
}

// ExceededResponse is the body returned with 429.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}
