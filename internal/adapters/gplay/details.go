package gplay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"review_scraper/internal/adapters/observability"
	"review_scraper/internal/domain"
)

// Details scrapes the storefront listing page for an app. Used to validate
// an app id before a large aggregation and to serve the app-details endpoint.
func (c *Client) Details(ctx context.Context, appID, lang, country string) (domain.AppDetails, error) {
	if strings.TrimSpace(appID) == "" {
		return domain.AppDetails{}, fmt.Errorf("%w: app id is required", domain.ErrInvalidInput)
	}
	if err := c.rl.Wait(ctx); err != nil {
		return domain.AppDetails{}, err
	}

	q := url.Values{}
	q.Set("id", appID)
	if lang != "" {
		q.Set("hl", lang)
	}
	if country != "" {
		q.Set("gl", country)
	}
	u := fmt.Sprintf("%s%s?%s", c.base, detailsPath, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.AppDetails{}, err
	}
	req.Header.Set("User-Agent", c.ua)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.AppDetails{}, ctx.Err()
		}
		return domain.AppDetails{}, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("google-play", "details", resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.AppDetails{}, fmt.Errorf("%w: app %s not found", domain.ErrFetchFailed, appID)
	case resp.StatusCode != http.StatusOK:
		return domain.AppDetails{}, fmt.Errorf("%w: details status %d", domain.ErrFetchFailed, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.AppDetails{}, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	d := domain.AppDetails{
		AppID:     appID,
		Title:     strings.TrimSpace(doc.Find(`h1[itemprop="name"]`).First().Text()),
		Developer: strings.TrimSpace(doc.Find(`a[href^="/store/apps/dev"]`).First().Text()),
		Genre:     strings.TrimSpace(doc.Find(`a[itemprop="genre"]`).First().Text()),
	}
	if v, ok := doc.Find(`div[itemprop="starRating"] div[role="img"]`).First().Attr("aria-label"); ok {
		d.Score = strings.TrimSpace(v)
	}
	if d.Title == "" {
		return domain.AppDetails{}, fmt.Errorf("%w: listing for %s has no title", domain.ErrFetchFailed, appID)
	}
	return d, nil
}
