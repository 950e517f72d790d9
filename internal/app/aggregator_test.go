package app_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_scraper/internal/app"
	"review_scraper/internal/domain"
)

// ---- fake sources ----

func makeReviews(n int) []domain.Review {
	out := make([]domain.Review, n)
	for i := range out {
		out[i] = domain.Review{ID: fmt.Sprintf("r-%d", i+1), Author: "a", Rating: 5}
	}
	return out
}

type fetchCall struct {
	token string
	page  int
	count int
}

// tokenSource mimics a Play-like backend: the token encodes the offset, an
// absent next token means exhausted.
type tokenSource struct {
	reviews  []domain.Review
	calls    []fetchCall
	failures map[int]bool // call index -> fail
}

func (s *tokenSource) Platform() domain.Platform  { return domain.GooglePlay }
func (s *tokenSource) PageCeiling() int           { return 200 }
func (s *tokenSource) FirstCursor() domain.Cursor { return domain.TokenCursor("") }

func (s *tokenSource) FetchPage(_ context.Context, _ domain.FetchRequest, cur domain.Cursor, count int) (domain.Page, error) {
	idx := len(s.calls)
	s.calls = append(s.calls, fetchCall{token: cur.Token, count: count})
	if s.failures[idx] {
		return domain.Page{}, errors.New("boom")
	}
	off := 0
	if cur.Token != "" {
		off, _ = strconv.Atoi(strings.TrimPrefix(cur.Token, "tok-"))
	}
	end := off + count
	if end > len(s.reviews) {
		end = len(s.reviews)
	}
	page := domain.Page{Reviews: s.reviews[off:end], Size: count}
	if end < len(s.reviews) {
		next := domain.TokenCursor(fmt.Sprintf("tok-%d", end))
		page.Next = &next
	}
	return page, nil
}

// pageSource mimics an App-store-like feed: fixed 50-entry pages, cursor is a
// 1-based page index and the next cursor always advances.
type pageSource struct {
	reviews []domain.Review
	calls   []fetchCall
}

func (s *pageSource) Platform() domain.Platform  { return domain.AppStore }
func (s *pageSource) PageCeiling() int           { return 50 }
func (s *pageSource) FirstCursor() domain.Cursor { return domain.PageCursor(1) }

func (s *pageSource) FetchPage(_ context.Context, _ domain.FetchRequest, cur domain.Cursor, count int) (domain.Page, error) {
	s.calls = append(s.calls, fetchCall{page: cur.Page, count: count})
	off := (cur.Page - 1) * 50
	if off > len(s.reviews) {
		off = len(s.reviews)
	}
	end := off + 50
	if end > len(s.reviews) {
		end = len(s.reviews)
	}
	next := domain.PageCursor(cur.Page + 1)
	return domain.Page{Reviews: s.reviews[off:end], Size: 50, Next: &next}, nil
}

func req(count int) domain.FetchRequest {
	return domain.FetchRequest{AppID: "app", Lang: "en", Country: "us", Sort: "newest", Count: count}
}

// ---- tests ----

func TestAggregate_PlayTwoPages_200Then50(t *testing.T) {
	src := &tokenSource{reviews: makeReviews(500)}
	agg := app.NewAggregator(0, 3)

	res, err := agg.Aggregate(context.Background(), src, req(250))
	require.NoError(t, err)

	require.Len(t, src.calls, 2)
	assert.Equal(t, fetchCall{token: "", count: 200}, src.calls[0])
	assert.Equal(t, fetchCall{token: "tok-200", count: 50}, src.calls[1])

	assert.Len(t, res.Reviews, 250)
	assert.True(t, res.ReachedTarget)
	assert.False(t, res.Exhausted)
	assert.False(t, res.Partial)
	// upstream order preserved
	assert.Equal(t, "r-1", res.Reviews[0].ID)
	assert.Equal(t, "r-250", res.Reviews[249].ID)
}

func TestAggregate_SinglePagePath(t *testing.T) {
	src := &pageSource{reviews: makeReviews(100)}
	agg := app.NewAggregator(0, 3)

	res, err := agg.Aggregate(context.Background(), src, req(30))
	require.NoError(t, err)

	require.Len(t, src.calls, 1, "count <= page size must not loop")
	assert.Equal(t, 1, src.calls[0].page)
	assert.Len(t, res.Reviews, 30)
	assert.True(t, res.ReachedTarget)
	assert.False(t, res.Exhausted)
	assert.Equal(t, "r-30", res.Reviews[29].ID)
}

func TestAggregate_AppStoreThreePages(t *testing.T) {
	src := &pageSource{reviews: makeReviews(200)}
	agg := app.NewAggregator(0, 3)

	res, err := agg.Aggregate(context.Background(), src, req(120))
	require.NoError(t, err)

	require.Len(t, src.calls, 3)
	assert.Equal(t, fetchCall{page: 1, count: 50}, src.calls[0])
	assert.Equal(t, fetchCall{page: 2, count: 50}, src.calls[1])
	assert.Equal(t, fetchCall{page: 3, count: 20}, src.calls[2])

	assert.Len(t, res.Reviews, 120)
	assert.True(t, res.ReachedTarget)
	// trailing excess of the last page dropped, earliest records kept
	assert.Equal(t, "r-120", res.Reviews[119].ID)
}

func TestAggregate_ExhaustedShortPage(t *testing.T) {
	src := &tokenSource{reviews: makeReviews(70)}
	agg := app.NewAggregator(0, 3)

	res, err := agg.Aggregate(context.Background(), src, req(250))
	require.NoError(t, err)

	assert.Len(t, res.Reviews, 70)
	assert.False(t, res.ReachedTarget)
	assert.True(t, res.Exhausted)
	assert.False(t, res.Partial)
}

func TestAggregate_ExhaustedEmptySource(t *testing.T) {
	src := &pageSource{}
	agg := app.NewAggregator(0, 3)

	res, err := agg.Aggregate(context.Background(), src, req(120))
	require.NoError(t, err)
	assert.Empty(t, res.Reviews)
	assert.True(t, res.Exhausted)
}

func TestAggregate_NoDuplicatePages(t *testing.T) {
	src := &tokenSource{reviews: makeReviews(650)}
	agg := app.NewAggregator(0, 3)

	res, err := agg.Aggregate(context.Background(), src, req(650))
	require.NoError(t, err)
	require.Len(t, res.Reviews, 650)

	seen := make(map[string]bool, len(res.Reviews))
	for _, r := range res.Reviews {
		require.False(t, seen[r.ID], "review %s fetched twice", r.ID)
		seen[r.ID] = true
	}
}

func TestAggregate_FailureRetriesSameToken(t *testing.T) {
	src := &tokenSource{reviews: makeReviews(500), failures: map[int]bool{1: true}}
	agg := app.NewAggregator(0, 3)

	res, err := agg.Aggregate(context.Background(), src, req(250))
	require.NoError(t, err)

	// call 1 fails, call 2 retries the same logical page
	require.Len(t, src.calls, 3)
	assert.Equal(t, src.calls[1].token, src.calls[2].token)

	assert.Len(t, res.Reviews, 250)
	assert.True(t, res.ReachedTarget)
	assert.False(t, res.Partial, "target met, result is not partial")
	require.Len(t, res.Events, 3)
	assert.NotEmpty(t, res.Events[1].Err)
}

func TestAggregate_ConsecutiveFailureCap(t *testing.T) {
	src := &tokenSource{
		reviews:  makeReviews(500),
		failures: map[int]bool{1: true, 2: true},
	}
	agg := app.NewAggregator(0, 2)

	res, err := agg.Aggregate(context.Background(), src, req(250))
	require.ErrorIs(t, err, domain.ErrPageFetch)

	// the first page still came back before the failures started
	assert.Len(t, res.Reviews, 200)
	assert.True(t, res.Partial)
	assert.False(t, res.ReachedTarget)
	require.Len(t, src.calls, 3)
}

func TestAggregate_TotalFailureSinglePage(t *testing.T) {
	src := &tokenSource{reviews: makeReviews(10), failures: map[int]bool{0: true}}
	agg := app.NewAggregator(0, 3)

	_, err := agg.Aggregate(context.Background(), src, req(10))
	require.ErrorIs(t, err, domain.ErrFetchFailed)
}

func TestAggregate_CountLowerBound(t *testing.T) {
	src := &tokenSource{reviews: makeReviews(10)}
	agg := app.NewAggregator(0, 3)

	_, err := agg.Aggregate(context.Background(), src, req(0))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, src.calls)
}

func TestAggregate_SinglePageEquivalence(t *testing.T) {
	direct := &tokenSource{reviews: makeReviews(300)}
	page, err := direct.FetchPage(context.Background(), req(40), direct.FirstCursor(), 40)
	require.NoError(t, err)

	src := &tokenSource{reviews: makeReviews(300)}
	res, err := app.NewAggregator(0, 3).Aggregate(context.Background(), src, req(40))
	require.NoError(t, err)

	assert.Equal(t, page.Reviews[:40], res.Reviews)
	require.Len(t, src.calls, 1)
}
