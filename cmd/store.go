package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/sells-group/underwriting-cli/internal/metrics"
	"github.com/sells-group/underwriting-cli/internal/resilience"
	"github.com/sells-group/underwriting-cli/internal/store"
	"github.com/sells-group/underwriting-cli/internal/underwriting"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "underwrite.db"
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

// serviceEnv bundles the service with the resources it owns.
type serviceEnv struct {
	Store   store.Store
	Metrics *metrics.Collector
	Service *underwriting.Service
}

// Close releases the store.
func (e *serviceEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// openStore connects and migrates, retrying while the database is
// unreachable.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	retry := resilience.ConnectRetryConfig()
	retry.OnRetry = resilience.RetryLogger("store", "open")
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (store.Store, error) {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		return st, nil
	})
}

// initService opens the store and builds the service on it. CLI commands get
// a disabled collector; serve passes its own registry.
func initService(ctx context.Context, reg *prometheus.Registry) (*serviceEnv, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	mcfg := cfg.Metrics
	if reg == nil {
		mcfg.Enabled = false
	}
	m := metrics.NewCollector(mcfg, reg)

	return &serviceEnv{
		Store:   st,
		Metrics: m,
		Service: underwriting.New(st, m),
	}, nil
}
