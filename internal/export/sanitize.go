package export

import (
	"strings"
	"unicode"
)

// Sentinel tokens substituted for missing and blank values in exports.
const (
	SentinelNull = "Null"
	SentinelNan  = "Nan"
)

// Pictographs, emoji, variation selectors and joiners stripped from exported
// text. Review bodies are full of them and they wreck downstream flat-file
// consumers.
var strippedRunes = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200D, Hi: 0x200D, Stride: 1}, // zero-width joiner
		{Lo: 0x2600, Hi: 0x26FF, Stride: 1}, // misc symbols
		{Lo: 0x2700, Hi: 0x27BF, Stride: 1}, // dingbats
		{Lo: 0x2B00, Hi: 0x2BFF, Stride: 1}, // misc symbols and arrows
		{Lo: 0xFE00, Hi: 0xFE0F, Stride: 1}, // variation selectors
	},
	R32: []unicode.Range32{
		{Lo: 0x1F1E6, Hi: 0x1F1FF, Stride: 1}, // regional indicators (flags)
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1}, // misc symbols and pictographs
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1}, // emoticons
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1}, // transport and map
		{Lo: 0x1F700, Hi: 0x1F77F, Stride: 1}, // alchemical
		{Lo: 0x1F780, Hi: 0x1F8FF, Stride: 1}, // geometric ext, arrows-c
		{Lo: 0x1F900, Hi: 0x1F9FF, Stride: 1}, // supplemental symbols
		{Lo: 0x1FA00, Hi: 0x1FAFF, Stride: 1}, // symbols and pictographs ext-a
	},
}

// SanitizeField normalizes one text field for export. Absent values become
// "Null", blank values become "Nan", and surviving text has pictographs
// stripped and whitespace runs collapsed. Text that was nothing but
// pictographs collapses to "" — deliberately distinct from the blank
// sentinel, so scrubbed content is tellable from originally-empty content.
func SanitizeField(v *string) string {
	if v == nil {
		return SentinelNull
	}
	return SanitizeValue(*v)
}

// SanitizeValue is SanitizeField for values known to be present.
func SanitizeValue(s string) string {
	if strings.TrimSpace(s) == "" {
		return SentinelNan
	}
	stripped := strings.Map(func(r rune) rune {
		if unicode.Is(strippedRunes, r) {
			return -1
		}
		return r
	}, s)
	// Collapse internal whitespace runs and trim in one pass.
	return strings.Join(strings.Fields(stripped), " ")
}
