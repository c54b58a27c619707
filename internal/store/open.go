package store

import (
	"context"
	"fmt"

	"handyvoice/internal/config"
	"handyvoice/internal/store/pg"
	"handyvoice/internal/store/sqlite"
)

// Open connects the configured backend and reconciles its schema.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		st, err = sqlite.Open(ctx, cfg.SQLitePath)
	default:
		pool, perr := pg.NewPool(ctx, cfg.DBDSN, pg.PoolOptions{
			MaxConns:          cfg.DBPoolMaxConns,
			MinConns:          cfg.DBPoolMinConns,
			MaxConnLifetime:   cfg.DBPoolMaxConnLifetime,
			MaxConnIdleTime:   cfg.DBPoolMaxConnIdleTime,
			HealthCheckPeriod: cfg.DBPoolHealthCheckPeriod,
		})
		if perr != nil {
			return nil, perr
		}
		st = pg.New(pool)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Reconcile(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("reconcile schema: %w", err)
	}
	return st, nil
}
