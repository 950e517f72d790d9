package export

import (
	"strconv"
	"strings"

	"review_scraper/internal/domain"
)

// Delimiter separates fields in exported files. Two characters on purpose:
// review text is full of plain commas, and encoding/csv cannot emit a
// multi-byte separator anyway.
const Delimiter = ";;"

// Schema fixes the field names, order and row mapping for one platform.
type Schema struct {
	Platform domain.Platform
	Header   []string
	row      func(domain.Review) []string
}

var PlaySchema = Schema{
	Platform: domain.GooglePlay,
	Header:   []string{"id", "userName", "content", "score", "date", "thumbsUp", "version"},
	row: func(r domain.Review) []string {
		return []string{
			quoteField(SanitizeValue(r.ID)),
			quoteField(SanitizeValue(r.Author)),
			quoteField(SanitizeValue(r.Body)),
			strconv.Itoa(r.Rating),
			quoteField(SanitizeValue(r.SubmittedAt)),
			strconv.Itoa(r.ThumbsUp),
			quoteField(sanitizeOptional(r.Version)),
		}
	},
}

var AppStoreSchema = Schema{
	Platform: domain.AppStore,
	Header:   []string{"id", "userName", "title", "content", "score", "version", "date"},
	row: func(r domain.Review) []string {
		return []string{
			quoteField(SanitizeValue(r.ID)),
			quoteField(SanitizeValue(r.Author)),
			quoteField(SanitizeValue(r.Title)),
			quoteField(SanitizeValue(r.Body)),
			strconv.Itoa(r.Rating),
			quoteField(sanitizeOptional(r.Version)),
			quoteField(SanitizeValue(r.SubmittedAt)),
		}
	},
}

// SchemaFor returns the platform's schema, defaulting to Play's.
func SchemaFor(p domain.Platform) Schema {
	if p == domain.AppStore {
		return AppStoreSchema
	}
	return PlaySchema
}

// Serialize renders records into delimiter-joined rows in input order:
// header, one row per record, trailing newline. Numeric fields are plain
// digits; text fields are sanitized and quoted where they would collide with
// the delimiter, a quote or a newline.
func Serialize(records []domain.Review, s Schema) string {
	var b strings.Builder
	b.WriteString(strings.Join(s.Header, Delimiter))
	b.WriteByte('\n')
	for _, r := range records {
		b.WriteString(strings.Join(s.row(r), Delimiter))
		b.WriteByte('\n')
	}
	return b.String()
}

// Optional fields map absence (empty after the upstream mapping) to "Null"
// rather than the blank sentinel.
func sanitizeOptional(s string) string {
	if s == "" {
		return SentinelNull
	}
	return SanitizeValue(s)
}

// quoteField applies standard flat-file quoting: values containing the
// delimiter, a quote or a newline are wrapped in quotes with embedded quotes
// doubled.
func quoteField(s string) string {
	if !strings.Contains(s, Delimiter) && !strings.ContainsAny(s, "\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
