// Package vies talks to the EU VAT Information Exchange System and models
// its answers as a three-valued outcome.
package vies

import (
	"encoding/json"
	"strings"
)

// Outcome is the registry's verdict on a VAT number.
type Outcome int

const (
	// OutcomeUnknown means the registry could not be asked or did not answer.
	OutcomeUnknown Outcome = iota
	OutcomeValid
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Registry error codes. Most mirror the VIES userError values.
const (
	ErrCodeServerBusy      = "SERVER_BUSY"
	ErrCodeMSUnavailable   = "MS_UNAVAILABLE"
	ErrCodeServiceDown     = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInvalidResponse = "INVALID_RESPONSE"
	ErrCodeRateLimited     = "MS_MAX_CONCURRENT_REQ"
)

// Result is what the validator adapter hands to the exemption engine.
type Result struct {
	Outcome Outcome
	Errors  []string
	// Name and Address are returned by some member states for valid numbers.
	Name    string
	Address string
}

// FirstError returns the first error code, or "".
func (r Result) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0]
}

// IsServerBusy reports whether the registry asked us to come back later.
func (r Result) IsServerBusy() bool {
	return strings.EqualFold(r.FirstError(), ErrCodeServerBusy)
}

// Valid renders the outcome as true, false or nil.
func (r Result) Valid() *bool {
	var v bool
	switch r.Outcome {
	case OutcomeValid:
		v = true
	case OutcomeInvalid:
		v = false
	default:
		return nil
	}
	return &v
}

type resultJSON struct {
	Valid   *bool    `json:"valid"`
	Errors  []string `json:"errors"`
	Name    string   `json:"name,omitempty"`
	Address string   `json:"address,omitempty"`
}

// MarshalJSON keeps the wire shape {"valid": true|false|null, "errors": [...]}.
func (r Result) MarshalJSON() ([]byte, error) {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return json.Marshal(resultJSON{Valid: r.Valid(), Errors: errs, Name: r.Name, Address: r.Address})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result{Errors: raw.Errors, Name: raw.Name, Address: raw.Address}
	switch {
	case raw.Valid == nil:
		r.Outcome = OutcomeUnknown
	case *raw.Valid:
		r.Outcome = OutcomeValid
	default:
		r.Outcome = OutcomeInvalid
	}
	return nil
}

// Unknown builds an unknown result carrying one error code.
func Unknown(code string) Result {
	return Result{Outcome: OutcomeUnknown, Errors: []string{code}}
}

// ResultFilter adjusts a registry result before it reaches the engine.
type ResultFilter func(result Result, country, vatNumber string) Result
