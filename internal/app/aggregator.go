package app

import (
	"context"
	"fmt"
	"time"

	"review_scraper/internal/domain"
)

// Aggregator drives a ReviewSource page by page until the requested count is
// met or the source runs dry. One aggregation is strictly sequential: a page
// fetch and its pacing delay complete before the next fetch starts.
type Aggregator struct {
	// Delay is the pause between successful page fetches. Skipped on the
	// single-page path.
	Delay time.Duration
	// MaxConsecutiveFailures bounds the skip-and-continue tolerance for
	// failed page fetches. Once exceeded the run stops and returns whatever
	// was accumulated alongside the error.
	MaxConsecutiveFailures int
}

func NewAggregator(delay time.Duration, maxFailures int) Aggregator {
	if maxFailures < 1 {
		maxFailures = 3
	}
	return Aggregator{Delay: delay, MaxConsecutiveFailures: maxFailures}
}

// Aggregate returns up to req.Count reviews in upstream order. The result is
// a pure fold over page fetches; per-attempt diagnostics land in
// Result.Events and logging is left to the caller.
func (a Aggregator) Aggregate(ctx context.Context, src domain.ReviewSource, req domain.FetchRequest) (domain.Result, error) {
	if req.Count < 1 {
		return domain.Result{}, fmt.Errorf("%w: count must be >= 1", domain.ErrInvalidInput)
	}

	ceiling := src.PageCeiling()
	cur := src.FirstCursor()

	// Requests that fit in one page skip the loop and its delay entirely.
	if req.Count <= ceiling {
		page, err := src.FetchPage(ctx, req, cur, req.Count)
		if err != nil {
			return domain.Result{}, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
		}
		res := domain.Result{
			Events: []domain.PageEvent{{Attempt: 1, Requested: req.Count, Returned: len(page.Reviews)}},
		}
		res.Reviews = truncate(page.Reviews, req.Count)
		res.ReachedTarget = len(res.Reviews) == req.Count
		res.Exhausted = len(page.Reviews) < page.Size || (cur.Kind == domain.CursorToken && page.Next == nil)
		return res, nil
	}

	var (
		res     domain.Result
		reviews []domain.Review
		attempt int
		consec  int
	)
	for {
		size := req.Count - len(reviews)
		if size > ceiling {
			size = ceiling
		}
		attempt++

		page, err := src.FetchPage(ctx, req, cur, size)
		if err != nil {
			res.Events = append(res.Events, domain.PageEvent{
				Attempt: attempt, Requested: size, Err: err.Error(),
			})
			consec++
			if consec >= a.MaxConsecutiveFailures {
				res.Reviews = reviews
				res.Partial = true
				return res, fmt.Errorf("%w: %d consecutive failures, last: %v", domain.ErrPageFetch, consec, err)
			}
			// Token cursors stay put so the same logical page is retried;
			// page indices advance regardless.
			if cur.Kind == domain.CursorPageIndex {
				cur = domain.PageCursor(cur.Page + 1)
			}
			continue
		}
		consec = 0
		res.Events = append(res.Events, domain.PageEvent{
			Attempt: attempt, Requested: size, Returned: len(page.Reviews),
		})

		if len(page.Reviews) == 0 {
			res.Exhausted = true
			break
		}
		reviews = append(reviews, page.Reviews...)
		if len(reviews) >= req.Count {
			// Drop the trailing excess of the final page, never earlier records.
			reviews = truncate(reviews, req.Count)
			res.ReachedTarget = true
			break
		}
		if len(page.Reviews) < page.Size {
			res.Exhausted = true
			break
		}
		if page.Next == nil {
			res.Exhausted = true
			break
		}
		cur = *page.Next

		if !sleepCtx(ctx, a.Delay) {
			res.Reviews = reviews
			res.Partial = true
			return res, ctx.Err()
		}
	}

	res.Reviews = reviews
	res.Partial = hadFailures(res.Events) && !res.ReachedTarget
	return res, nil
}

func truncate(rs []domain.Review, n int) []domain.Review {
	if len(rs) <= n {
		return rs
	}
	return rs[:n:n]
}

func hadFailures(events []domain.PageEvent) bool {
	for _, e := range events {
		if e.Err != "" {
			return true
		}
	}
	return false
}

// sleepCtx waits for d or returns false once ctx is done.
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
