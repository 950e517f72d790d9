package shared

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	GPlayBase    string
	AppStoreBase string
	UpstreamRPS  int

	PageDelay       time.Duration
	MaxPageFailures int
	DefaultCount    int

	ExportDir     string
	ExportWorkers int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	return Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 600)) * time.Second,

		GPlayBase:    env("GPLAY_BASE_URL", "https://play.google.com"),
		AppStoreBase: env("APPSTORE_BASE_URL", "https://itunes.apple.com"),
		UpstreamRPS:  atoi("UPSTREAM_RPS", 5),

		PageDelay:       time.Duration(atoi("AGG_PAGE_DELAY_MS", 500)) * time.Millisecond,
		MaxPageFailures: atoi("AGG_MAX_PAGE_FAILURES", 3),
		DefaultCount:    atoi("DEFAULT_REVIEW_COUNT", 100),

		ExportDir:     env("EXPORT_DIR", "exports"),
		ExportWorkers: atoi("EXPORT_WORKERS", 4),
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
