// Package state persists assumption sets in a key/value store.
package state

import (
	"context"
	"fmt"

	"vaultScope/internal/config"
	"vaultScope/internal/state/sqlite"
	"vaultScope/internal/storage/postgres"
)

// Store is a string key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open selects the backend: Postgres when a DSN is set, then a JSON file, then sqlite.
func Open(ctx context.Context, cfg config.StateConfig) (Store, error) {
	switch {
	case cfg.PGDSN != "":
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return &DBStore{Store: pg}, nil
	case cfg.StateFile != "":
		return &FileStore{Path: cfg.StateFile}, nil
	case cfg.StateDB != "":
		store, err := sqlite.New(cfg.StateDB)
		if err != nil {
			return nil, fmt.Errorf("open sqlite state: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("no state backend configured")
	}
}
