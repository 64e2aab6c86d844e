package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and collaborator clients
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the store or provider
// - ErrConflict: a row for the same key already exists
// - ErrIDTaken: the member-ID unique constraint specifically was violated
// - ErrUnavailable: collaborator temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrIDTaken     = errors.New("member id taken")
	ErrUnavailable = errors.New("unavailable")
)
