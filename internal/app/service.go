package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_scraper/internal/adapters/observability"
	"review_scraper/internal/domain"
	"review_scraper/internal/export"
)

// ReviewService validates requests, runs aggregations and serves exports.
// Each call is an isolated run; the Redis-backed response cache is the only
// thing shared across them.
type ReviewService struct {
	sources  map[domain.Platform]domain.ReviewSource
	agg      Aggregator
	cache    domain.Cache // nil disables caching
	store    *export.Store
	cacheTTL time.Duration
}

func NewReviewService(sources []domain.ReviewSource, agg Aggregator, cache domain.Cache, store *export.Store, ttl time.Duration) *ReviewService {
	m := make(map[domain.Platform]domain.ReviewSource, len(sources))
	for _, s := range sources {
		m[s.Platform()] = s
	}
	return &ReviewService{sources: m, agg: agg, cache: cache, store: store, cacheTTL: ttl}
}

// Fetch aggregates reviews for one platform. Successful results are cached;
// partial or failed runs are not.
func (s *ReviewService) Fetch(ctx context.Context, p domain.Platform, req domain.FetchRequest) (domain.Result, error) {
	src, ok := s.sources[p]
	if !ok {
		return domain.Result{}, fmt.Errorf("%w: unknown platform %q", domain.ErrInvalidInput, p)
	}
	if err := validate(req); err != nil {
		return domain.Result{}, err
	}

	key := cacheKey(p, req)
	var cached domain.Result
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	res, err := s.agg.Aggregate(ctx, src, req)
	logEvents(p, req, res.Events)
	if err != nil {
		return res, err
	}

	if s.cache != nil && !res.Partial {
		// size guard: don't stuff huge aggregations into redis
		if b, _ := json.Marshal(res); len(b) < 4_000_000 {
			_ = s.cache.Set(ctx, key, res, int(s.cacheTTL.Seconds()))
		}
	}
	return res, nil
}

// Export aggregates, sanitizes, serializes and persists reviews as a CSV
// file, returning the artifact metadata. Zero reviews is not a fetch error
// but there is nothing to write.
func (s *ReviewService) Export(ctx context.Context, p domain.Platform, req domain.FetchRequest) (export.Artifact, error) {
	res, err := s.Fetch(ctx, p, req)
	if err != nil {
		return export.Artifact{}, err
	}
	if len(res.Reviews) == 0 {
		return export.Artifact{}, fmt.Errorf("%w: app %s has no reviews", domain.ErrNoReviews, req.AppID)
	}
	data := export.Serialize(res.Reviews, export.SchemaFor(p))
	art, err := s.store.Write(p, req.AppID, data)
	if err != nil {
		return export.Artifact{}, err
	}
	observability.ObserveExport(string(p), art.Bytes)
	log.Info().
		Str("platform", string(p)).
		Str("app_id", req.AppID).
		Int("rows", art.Rows).
		Str("file", art.Name).
		Msg("export written")
	return art, nil
}

func validate(req domain.FetchRequest) error {
	if strings.TrimSpace(req.AppID) == "" {
		return fmt.Errorf("%w: app id is required", domain.ErrInvalidInput)
	}
	if req.Count < 1 {
		return fmt.Errorf("%w: count must be >= 1", domain.ErrInvalidInput)
	}
	return nil
}

func cacheKey(p domain.Platform, req domain.FetchRequest) string {
	return fmt.Sprintf("reviews:%s:%s:%s:%s:%s:%d", p, req.AppID, req.Lang, req.Country, req.Sort, req.Count)
}

// logEvents turns the aggregator's diagnostic fold into log lines and
// metrics, one per page attempt.
func logEvents(p domain.Platform, req domain.FetchRequest, events []domain.PageEvent) {
	for _, e := range events {
		if e.Err != "" {
			observability.ObservePage(string(p), "error")
			log.Warn().
				Str("platform", string(p)).
				Str("app_id", req.AppID).
				Int("attempt", e.Attempt).
				Str("error", e.Err).
				Msg("page fetch failed")
			continue
		}
		observability.ObservePage(string(p), "ok")
		log.Debug().
			Str("platform", string(p)).
			Str("app_id", req.AppID).
			Int("attempt", e.Attempt).
			Int("requested", e.Requested).
			Int("returned", e.Returned).
			Msg("page fetched")
	}
}
