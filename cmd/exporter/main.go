package main

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_scraper/internal/adapters/appstore"
	"review_scraper/internal/adapters/gplay"
	"review_scraper/internal/adapters/observability"
	"review_scraper/internal/app"
	"review_scraper/internal/domain"
	"review_scraper/internal/export"
	"review_scraper/internal/shared"
)

// Bulk CSV exporter. Each argument is platform:appID, e.g.
//
//	exporter google-play:com.whatsapp app-store:310633997
//
// Apps are exported concurrently up to EXPORT_WORKERS, each as its own
// isolated aggregation run.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	targets := os.Args[1:]
	if len(targets) == 0 {
		log.Fatal().Msg("usage: exporter <platform:appID> [...]")
	}

	play := gplay.New(cfg.GPlayBase, cfg.UpstreamRPS)
	appStore := appstore.New(cfg.AppStoreBase)
	store := export.NewStore(cfg.ExportDir)
	agg := app.NewAggregator(cfg.PageDelay, cfg.MaxPageFailures)
	// no cache here: a one-shot bulk export has nothing to reuse
	svc := app.NewReviewService([]domain.ReviewSource{play, appStore}, agg, nil, store, 0)

	log.Info().
		Int("apps", len(targets)).
		Int("workers", cfg.ExportWorkers).
		Int("count", cfg.DefaultCount).
		Msg("exporter starting")

	sem := semaphore.NewWeighted(int64(cfg.ExportWorkers))
	var wg sync.WaitGroup

	for _, t := range targets {
		platform, appID, ok := strings.Cut(t, ":")
		if !ok || appID == "" {
			log.Warn().Str("target", t).Msg("skipping malformed target, want platform:appID")
			continue
		}
		p := domain.Platform(platform)
		if p != domain.GooglePlay && p != domain.AppStore {
			log.Warn().Str("target", t).Msg("skipping unknown platform")
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}
		wg.Add(1)
		go func(p domain.Platform, appID string) {
			defer wg.Done()
			defer sem.Release(1)

			req := domain.FetchRequest{
				AppID:   appID,
				Lang:    "en",
				Country: "us",
				Sort:    defaultSort(p),
				Count:   cfg.DefaultCount,
			}
			art, err := svc.Export(ctx, p, req)
			if err != nil {
				log.Warn().Str("platform", string(p)).Str("app_id", appID).Err(err).Msg("export failed")
				return
			}
			log.Info().
				Str("platform", string(p)).
				Str("app_id", appID).
				Str("file", art.Name).
				Int("rows", art.Rows).
				Str("size", art.Size).
				Msg("export ok")
		}(p, appID)
	}

	wg.Wait()
	log.Info().Msg("exports completed")
}

func defaultSort(p domain.Platform) string {
	if p == domain.AppStore {
		return domain.SortMostRecent
	}
	return domain.SortNewest
}
