package cmd

import (
	"time"

	"usenet-scout/internal/aggregate"
	"usenet-scout/internal/analyze"
	"usenet-scout/internal/catalog"
	"usenet-scout/internal/config"
	"usenet-scout/internal/nntp"
	"usenet-scout/internal/redisclient"
	"usenet-scout/internal/relevance"
	"usenet-scout/internal/semantic"
	"usenet-scout/internal/service"
	"usenet-scout/internal/source"
	"usenet-scout/internal/storage"

	"github.com/redis/go-redis/v9"
)

// app bundles the wired dependency graph behind the service facade. Close
// releases the Redis connection.
type app struct {
	Service *service.Service
	Catalog *catalog.Catalog
	rdb     *redis.Client
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

// buildApp wires the full graph from configuration. The semantic provider
// is constructed once here and injected everywhere it is consumed; without
// an API key every consumer falls back to deterministic matching.
func buildApp(cfg config.Config) *app {
	rdb := redisclient.New(cfg.Redis)
	store := storage.NewRedisStore(rdb)

	fetcher := source.New(nntp.Config{
		Host:     cfg.Provider.Host,
		Port:     cfg.Provider.Port,
		Username: cfg.Provider.Username,
		Password: cfg.Provider.Password,
		UseTLS:   cfg.Provider.UseTLS,
	})

	maxAge := catalog.DefaultMaxAge
	if d, err := time.ParseDuration(cfg.Search.CacheMaxAge); err == nil {
		maxAge = d
	}
	cat := catalog.New(store, fetcher,
		catalog.WithMaxAge(maxAge),
		catalog.WithPageSize(cfg.Search.ListPageSize),
	)

	var provider semantic.Provider
	if cfg.OpenAI.APIKey != "" {
		provider = semantic.NewOpenAI(semantic.Config{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		})
	}

	svc := service.New(
		cat,
		fetcher,
		aggregate.New(fetcher, cfg.Search.MaxWorkers),
		relevance.NewEngine(provider),
		analyze.New(provider),
		cfg.Provider.Configured(),
	)
	return &app{Service: svc, Catalog: cat, rdb: rdb}
}
