package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and platform adapters return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store or on the platform
// - ErrConflict: a write lost against a concurrent or existing record
// - ErrInvalidState: entity in wrong state for requested operation
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)
