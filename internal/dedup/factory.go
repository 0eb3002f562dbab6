// internal/dedup/factory.go
package dedup

import (
	"fmt"

	"formsync/internal/common/config"
	"formsync/internal/common/database"
	"formsync/internal/common/logger"
)

// Open builds the configured Store and returns it together with a
// close function releasing the underlying connections.
func Open(cfg config.StoreConfig, log logger.Logger) (Store, func() error, error) {
	var (
		store   Store
		closers []func() error
	)

	switch cfg.Backend {
	case config.StoreBackendSQLite:
		client, err := database.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		store = NewSQLiteStore(client.DB)

	case config.StoreBackendPostgres:
		client, err := database.NewPostgres(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		store = NewPostgresStore(client.DB)

	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}

	if cfg.Redis.Enabled {
		client, err := database.NewRedis(cfg.Redis)
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		store = NewCachedStore(store, client.Client, config.GetDuration(cfg.Redis.MembershipTTL), log)
	}

	closeFn := func() error {
		return closeAll(closers)
	}
	return store, closeFn, nil
}

func closeAll(closers []func() error) error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
