package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"review_scraper/internal/adapters/appstore"
	"review_scraper/internal/adapters/gplay"
	server "review_scraper/internal/adapters/http_server"
	"review_scraper/internal/adapters/observability"
	redisad "review_scraper/internal/adapters/redis"
	"review_scraper/internal/app"
	"review_scraper/internal/domain"
	"review_scraper/internal/export"
	"review_scraper/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// deps
	play := gplay.New(cfg.GPlayBase, cfg.UpstreamRPS)
	appStore := appstore.New(cfg.AppStoreBase)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	store := export.NewStore(cfg.ExportDir)
	agg := app.NewAggregator(cfg.PageDelay, cfg.MaxPageFailures)
	svc := app.NewReviewService([]domain.ReviewSource{play, appStore}, agg, cache, store, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Svc: svc, Details: play, DefaultCount: cfg.DefaultCount})

	log.Info().Str("addr", cfg.HTTPAddr).Str("export_dir", cfg.ExportDir).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
