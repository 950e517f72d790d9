package domain

import "context"

// FetchRequest describes one aggregation run against a single platform.
type FetchRequest struct {
	AppID   string
	Lang    string
	Country string
	Sort    string
	Count   int // target review count, >= 1, no upper bound
}

// Page is the outcome of a single upstream fetch.
type Page struct {
	Reviews []Review
	// Next is the cursor for the following page. Nil for token sources means
	// the source signaled exhaustion; page-index sources always set it.
	Next *Cursor
	// Size is the nominal size of this page (what was requested from the
	// source, or its fixed page size). A page shorter than Size means no
	// further pages exist.
	Size int
}

// ReviewSource is a single-page fetch capability for one platform. It keeps
// no state between calls and performs no retries of its own beyond transport
// level ones; pagination policy lives in the aggregator.
type ReviewSource interface {
	Platform() Platform
	// PageCeiling is the maximum review count one fetch can return.
	PageCeiling() int
	// FirstCursor is the cursor for the first page.
	FirstCursor() Cursor
	// FetchPage requests up to count reviews at the given cursor position.
	FetchPage(ctx context.Context, req FetchRequest, cur Cursor, count int) (Page, error)
}

// DetailsSource fetches the storefront listing for an app.
type DetailsSource interface {
	Details(ctx context.Context, appID, lang, country string) (AppDetails, error)
}

// PageEvent is the diagnostic record of one page attempt.
type PageEvent struct {
	Attempt   int    `json:"attempt"`
	Requested int    `json:"requested"`
	Returned  int    `json:"returned"`
	Err       string `json:"error,omitempty"`
}

// Result is an aggregation outcome. Reviews keep upstream order; the
// aggregator never re-sorts.
type Result struct {
	Reviews       []Review    `json:"reviews"`
	ReachedTarget bool        `json:"reachedTarget"`
	Exhausted     bool        `json:"exhausted"`
	// Partial reports that page failures left the run short of its target.
	Partial bool        `json:"partial"`
	Events  []PageEvent `json:"-"`
}

// Cache is a TTL'd response cache.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
