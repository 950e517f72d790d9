package appstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"review_scraper/internal/adapters/observability"
	"review_scraper/internal/domain"
)

// fixedPageSize is the page size of the customer-reviews feed. Not
// negotiable: every page carries up to 50 entries regardless of what the
// caller wants.
const fixedPageSize = 50

var sortPaths = map[string]string{
	domain.SortMostRecent:  "mostrecent",
	domain.SortMostHelpful: "mosthelpful",
}

// Client fetches review pages from an App-store-like customer-reviews feed.
// The cursor is a 1-based page number the aggregator increments; the feed
// never signals exhaustion itself, a short page does.
type Client struct {
	rc *resty.Client
}

func New(base string) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(20 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		}).
		SetHeader("User-Agent", "review-scraper/1.0")
	return &Client{rc: rc}
}

func (c *Client) Platform() domain.Platform { return domain.AppStore }

func (c *Client) PageCeiling() int { return fixedPageSize }

func (c *Client) FirstCursor() domain.Cursor { return domain.PageCursor(1) }

// FetchPage requests one feed page. count is ignored; the feed's page size
// is fixed. Next always advances the page index — exhaustion is the
// aggregator's call.
func (c *Client) FetchPage(ctx context.Context, req domain.FetchRequest, cur domain.Cursor, count int) (domain.Page, error) {
	if cur.Kind != domain.CursorPageIndex || cur.Page < 1 {
		return domain.Page{}, fmt.Errorf("appstore: bad cursor (kind=%d page=%d)", cur.Kind, cur.Page)
	}
	if _, err := strconv.ParseInt(req.AppID, 10, 64); err != nil {
		return domain.Page{}, fmt.Errorf("%w: app id %q is not numeric", domain.ErrInvalidInput, req.AppID)
	}
	sort, ok := sortPaths[req.Sort]
	if !ok {
		sort = sortPaths[domain.SortMostRecent]
	}
	country := req.Country
	if country == "" {
		country = "us"
	}

	var feed feedDocument
	start := time.Now()
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&feed).
		SetPathParams(map[string]string{
			"country": country,
			"page":    strconv.Itoa(cur.Page),
			"id":      req.AppID,
			"sort":    sort,
		}).
		Get("/{country}/rss/customerreviews/page={page}/id={id}/sortby={sort}/json")
	if err != nil {
		return domain.Page{}, fmt.Errorf("appstore: %w", err)
	}
	observability.ObserveExternal("app-store", "reviews", resp.StatusCode(), time.Since(start))

	next := domain.PageCursor(cur.Page + 1)
	// The feed 404s past its last page; that's plain exhaustion.
	if resp.StatusCode() == 404 {
		return domain.Page{Size: fixedPageSize, Next: &next}, nil
	}
	if resp.IsError() {
		return domain.Page{}, fmt.Errorf("appstore: remote %d", resp.StatusCode())
	}

	reviews := make([]domain.Review, 0, len(feed.Feed.Entry))
	for _, e := range feed.Feed.Entry {
		reviews = append(reviews, e.review())
	}
	return domain.Page{Reviews: reviews, Size: fixedPageSize, Next: &next}, nil
}

// feed document shapes; every scalar hides behind a {"label": ...} wrapper.

type label struct {
	Label string `json:"label"`
}

type feedDocument struct {
	Feed struct {
		Entry []feedEntry `json:"entry"`
	} `json:"feed"`
}

type feedEntry struct {
	ID      label `json:"id"`
	Author  struct {
		Name label `json:"name"`
	} `json:"author"`
	Title   label `json:"title"`
	Content label `json:"content"`
	Rating  label `json:"im:rating"`
	Version label `json:"im:version"`
	Updated label `json:"updated"`
	Link    struct {
		Attributes struct {
			Href string `json:"href"`
		} `json:"attributes"`
	} `json:"link"`
}

func (e feedEntry) review() domain.Review {
	rating, _ := strconv.Atoi(e.Rating.Label)
	return domain.Review{
		ID:          e.ID.Label,
		Author:      e.Author.Name.Label,
		Title:       e.Title.Label,
		Body:        e.Content.Label,
		Rating:      rating,
		Version:     e.Version.Label,
		SubmittedAt: e.Updated.Label,
		Permalink:   e.Link.Attributes.Href,
	}
}
