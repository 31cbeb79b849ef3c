package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, registry clients and feed
// fetchers return these (optionally wrapped) so services can translate them
// into domain errors or verdict states.
//
// - ErrNotFound: record or meta key does not exist in the store
// - ErrExpired: cached entry is past its TTL
// - ErrUnavailable: remote service or store temporarily unavailable
// - ErrBadData: remote service answered with something we cannot parse
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
	ErrBadData     = errors.New("bad data")
)
