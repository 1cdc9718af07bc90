package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and key backends return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: duplicate item already present under the same tag/key
// - ErrExpired: credential or request past its validity window
// - ErrAlreadyUsed: resource (presentation request state) already consumed
// - ErrInteractionRequired: key item exists but needs an interactive unlock
// - ErrUnavailable: backend (secure element, store) temporarily unusable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrExpired             = errors.New("expired")
	ErrAlreadyUsed         = errors.New("already used")
	ErrInteractionRequired = errors.New("interaction required")
	ErrUnavailable         = errors.New("unavailable")
)
