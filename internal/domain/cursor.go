package domain

// CursorKind distinguishes the two pagination mechanisms upstream sources use.
type CursorKind int

const (
	// CursorToken is an opaque server-issued continuation token, passed back
	// verbatim. An absent next token means the source is exhausted.
	CursorToken CursorKind = iota + 1
	// CursorPageIndex is a client-incremented 1-based page number. Exhaustion
	// is inferred from a short or empty page, never signaled by the source.
	CursorPageIndex
)

// Cursor is the position marker for the next page of reviews.
type Cursor struct {
	Kind  CursorKind
	Token string
	Page  int
}

func TokenCursor(token string) Cursor { return Cursor{Kind: CursorToken, Token: token} }

func PageCursor(n int) Cursor { return Cursor{Kind: CursorPageIndex, Page: n} }
