package gplay

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_scraper/internal/adapters/observability"
	"review_scraper/internal/domain"
)

const (
	// pageCeiling is the most reviews a single batchexecute call returns.
	pageCeiling = 200

	batchPath   = "/_/PlayStoreUi/data/batchexecute"
	reviewsRPC  = "UsvDTd"
	detailsPath = "/store/apps/details"
)

var sortCodes = map[string]int{
	domain.SortNewest:      2,
	domain.SortRating:      3,
	domain.SortHelpfulness: 1,
}

// Client fetches review pages from a Play-store-like backend. Stateless
// between calls; pagination state travels in the token cursor.
type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
	ua   string
}

func New(base string, rps int) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
		ua:   "review-scraper/1.0",
	}
}

func (c *Client) Platform() domain.Platform { return domain.GooglePlay }

func (c *Client) PageCeiling() int { return pageCeiling }

func (c *Client) FirstCursor() domain.Cursor { return domain.TokenCursor("") }

// FetchPage requests min(count, 200) reviews at the token position. The
// returned cursor is absent once the backend stops issuing tokens.
func (c *Client) FetchPage(ctx context.Context, req domain.FetchRequest, cur domain.Cursor, count int) (domain.Page, error) {
	if cur.Kind != domain.CursorToken {
		return domain.Page{}, fmt.Errorf("gplay: unsupported cursor kind %d", cur.Kind)
	}
	sort, ok := sortCodes[req.Sort]
	if !ok {
		sort = sortCodes[domain.SortNewest]
	}
	if count > pageCeiling {
		count = pageCeiling
	}

	body, err := reviewsForm(req.AppID, sort, count, cur.Token)
	if err != nil {
		return domain.Page{}, err
	}
	raw, err := c.post(ctx, body, req.Lang, req.Country)
	if err != nil {
		return domain.Page{}, err
	}
	reviews, token, err := parseReviewsPayload(raw)
	if err != nil {
		return domain.Page{}, err
	}

	page := domain.Page{Reviews: reviews, Size: count}
	if token != "" {
		next := domain.TokenCursor(token)
		page.Next = &next
	}
	return page, nil
}

// reviewsForm builds the urlencoded f.req body for one reviews RPC.
func reviewsForm(appID string, sort, count int, token string) (string, error) {
	var tok any
	if token != "" {
		tok = token
	}
	inner, err := json.Marshal([]any{nil, nil, []any{2, sort, []any{count, nil, tok}}, []any{appID, 7}})
	if err != nil {
		return "", err
	}
	outer, err := json.Marshal([]any{[]any{[]any{reviewsRPC, string(inner), nil, "generic"}}})
	if err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("f.req", string(outer))
	return v.Encode(), nil
}

// post sends the RPC with client-side rate limiting and bounded retries on
// 429/5xx, honoring Retry-After when provided.
func (c *Client) post(ctx context.Context, form, lang, country string) ([]byte, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s%s?rpcids=%s&hl=%s&gl=%s", c.base, batchPath, reviewsRPC, url.QueryEscape(lang), url.QueryEscape(country))

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
		req.Header.Set("User-Agent", c.ua)

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return nil, lastErr
		}
		observability.ObserveExternal("google-play", "reviews", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			b, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			return b, err

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("gplay: remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("gplay: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return nil, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles per attempt (200ms, 400ms, 800ms...) with up to +50%
// crypto/rand jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
