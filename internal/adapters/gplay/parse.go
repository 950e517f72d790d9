package gplay

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"review_scraper/internal/domain"
)

// The batchexecute envelope: an anti-JSON prefix, then a JSON array whose
// first chunk carries the RPC payload as a string at index 2. The payload
// itself is nested positional arrays; review fields live at fixed indices.
const envelopePrefix = ")]}'"

// review item indices within the payload
const (
	idxID        = 0
	idxAuthor    = 1 // [1][0]
	idxRating    = 2
	idxBody      = 4
	idxDate      = 5 // [5][0] = unix seconds
	idxThumbsUp  = 6
	idxReply     = 7 // [7][1] = text, [7][2][0] = unix seconds
	idxVersion   = 10
	payloadIdx   = 2
	tokenChunk   = 1 // payload[1][1] = continuation token
	reviewsChunk = 0
)

func parseReviewsPayload(raw []byte) ([]domain.Review, string, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(raw)), envelopePrefix))
	var env []any
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, "", fmt.Errorf("gplay: malformed envelope: %w", err)
	}
	if len(env) == 0 {
		return nil, "", fmt.Errorf("gplay: empty envelope")
	}
	payload, ok := at(env, 0, payloadIdx).(string)
	if !ok {
		// an RPC-level error chunk has no payload string
		return nil, "", fmt.Errorf("gplay: envelope carries no payload")
	}
	if payload == "" || payload == "null" {
		return nil, "", nil
	}

	var data []any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, "", fmt.Errorf("gplay: malformed payload: %w", err)
	}
	items, _ := at(data, reviewsChunk).([]any)
	reviews := make([]domain.Review, 0, len(items))
	for _, it := range items {
		item, ok := it.([]any)
		if !ok {
			continue
		}
		reviews = append(reviews, mapReview(item))
	}
	token, _ := at(data, tokenChunk, 1).(string)
	return reviews, token, nil
}

func mapReview(item []any) domain.Review {
	return domain.Review{
		ID:          str(at(item, idxID)),
		Author:      str(at(item, idxAuthor, 0)),
		Body:        str(at(item, idxBody)),
		Rating:      num(at(item, idxRating)),
		SubmittedAt: epochString(at(item, idxDate, 0)),
		Version:     str(at(item, idxVersion)),
		ThumbsUp:    num(at(item, idxThumbsUp)),
		ReplyBody:   str(at(item, idxReply, 1)),
		ReplyAt:     epochString(at(item, idxReply, 2, 0)),
	}
}

// at walks nested positional arrays, returning nil when any hop is missing.
func at(v any, path ...int) any {
	cur := v
	for _, i := range path {
		arr, ok := cur.([]any)
		if !ok || i < 0 || i >= len(arr) {
			return nil
		}
		cur = arr[i]
	}
	return cur
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

// epochString renders a unix-seconds value as RFC3339, or "" when absent.
func epochString(v any) string {
	sec, ok := v.(float64)
	if !ok || sec <= 0 {
		return ""
	}
	return time.Unix(int64(sec), 0).UTC().Format(time.RFC3339)
}
