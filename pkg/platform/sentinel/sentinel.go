package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors with codes.
//
// These represent factual states about stored records, not validation failures:
// - ErrNotFound: slot, version, or dispatch record does not exist
// - ErrConflict: unique constraint hit (e.g. duplicate request id append)
// - ErrStaleTarget: the version named as close target was already closed
// - ErrLockTimeout: slot lock not acquired within the configured wait
// - ErrUnavailable: backing storage temporarily unreachable
//
// For validation errors (bad input, unknown kinds), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrStaleTarget = errors.New("stale close target")
	ErrLockTimeout = errors.New("lock timeout")
	ErrUnavailable = errors.New("unavailable")
)
