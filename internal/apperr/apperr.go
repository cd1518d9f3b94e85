// Package apperr defines the error-kind taxonomy from spec §7. Kinds, not
// concrete types per collaborator: callers compare with errors.Is against
// the sentinel for the kind, then wrap with context via fmt.Errorf("...: %w").
package apperr

import "errors"

var (
	// ConfigInvalid: settings fail validation at startup. Fatal.
	ConfigInvalid = errors.New("config invalid")

	// ExternalTransient: HTTP 5xx/429, timeouts, connection errors.
	// Surfaced to the worker which yields no result.
	ExternalTransient = errors.New("external transient failure")

	// ExternalPermanent: HTTP 4xx other than 429. Item is marked Failed or
	// the offending stream is blacklisted.
	ExternalPermanent = errors.New("external permanent failure")

	// IntegrityDuplicate: unique constraint violation. Benign no-op.
	IntegrityDuplicate = errors.New("integrity duplicate")

	// NotFound: target row missing on update.
	NotFound = errors.New("not found")

	// CacheIOFailure: read or write to the chunk cache failed.
	CacheIOFailure = errors.New("cache io failure")

	// LogicGate: precondition failure (scrape gate closed, item paused,
	// parent blocked). Silent dedupe/skip.
	LogicGate = errors.New("logic gate closed")
)

// Transient reports whether err (or anything it wraps) is an
// ExternalTransient failure, the only kind the retry machinery in
// internal/shared/httpclient acts on directly.
func Transient(err error) bool {
	return errors.Is(err, ExternalTransient)
}
