package domain

import "errors"

// Failure categories surfaced to callers. Wrapped with context via %w so the
// API layer can map them to a status without leaking internals.
var (
	// ErrInvalidInput rejects a request before any upstream call is made.
	ErrInvalidInput = errors.New("invalid input")
	// ErrFetchFailed is a total upstream failure with no partial result.
	ErrFetchFailed = errors.New("upstream fetch failed")
	// ErrPageFetch marks an aggregation that terminated early on repeated
	// page failures; a partial result accompanies it.
	ErrPageFetch = errors.New("page fetch failed")
	// ErrNoReviews signals an export request for an app with zero reviews.
	ErrNoReviews = errors.New("no reviews to export")
	// ErrExport is a filesystem failure while persisting an export.
	ErrExport = errors.New("export failed")
)
