package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/transitlab/transit-ratio/internal/cache"
	"github.com/transitlab/transit-ratio/internal/cities"
	"github.com/transitlab/transit-ratio/internal/countries"
	"github.com/transitlab/transit-ratio/internal/metrics"
	"github.com/transitlab/transit-ratio/internal/pipeline"
	"github.com/transitlab/transit-ratio/internal/store"
	"github.com/transitlab/transit-ratio/internal/travel"
	"github.com/transitlab/transit-ratio/pkg/gmaps"
	"github.com/transitlab/transit-ratio/pkg/opendatasoft"
)

// pipelineEnv holds the initialized store, clients and pipeline shared by
// the retrieve/travel/run/report/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Maps     gmaps.Client
	Metrics  *metrics.Metrics
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "transit-ratio.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initCache picks the geocode/directions response cache backend.
func initCache() cache.Cache {
	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	switch cfg.Cache.Backend {
	case "redis":
		zap.L().Info("response cache using redis", zap.String("addr", cfg.Cache.RedisAddr))
		return cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, ttl)
	default:
		return cache.NewMemory(cfg.Cache.MaxEntries, ttl)
	}
}

func initOpendata() opendatasoft.Client {
	return opendatasoft.NewClient(
		opendatasoft.WithBaseURL(cfg.Opendata.BaseURL),
		opendatasoft.WithRateLimit(cfg.Opendata.RateLimit),
		opendatasoft.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Opendata.TimeoutSecs) * time.Second}),
	)
}

// initMaps builds the Google Maps client wrapped in the response cache.
func initMaps(m *metrics.Metrics) gmaps.Client {
	client := gmaps.NewClient(cfg.GMaps.Key,
		gmaps.WithBaseURL(cfg.GMaps.BaseURL),
		gmaps.WithRateLimit(cfg.GMaps.RateLimit),
		gmaps.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.GMaps.TimeoutSecs) * time.Second}),
	)
	return cache.NewMaps(client, initCache(), m)
}

// initPipeline validates the config for the given command mode, sets up
// the store and clients, and builds the Pipeline. Callers should defer
// env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	m := metrics.NewMetrics()

	odsClient := initOpendata()
	directory := countries.NewDirectory(odsClient)
	retriever := cities.NewRetriever(odsClient, directory)

	mapsClient := initMaps(m)
	evaluator := travel.NewEvaluator(mapsClient, cfg.Travel.Concurrency)

	p := pipeline.New(cfg, st, retriever, evaluator, mapsClient, m)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Maps:     mapsClient,
		Metrics:  m,
	}, nil
}
