package state

import (
	"context"

	"vaultScope/internal/storage/postgres"
)

// DBStore stores keys in the vaultscope_kv table.
type DBStore struct {
	Store *postgres.Store
}

func (s *DBStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.Store == nil {
		return "", false, nil
	}
	return s.Store.Get(ctx, key)
}

func (s *DBStore) Set(ctx context.Context, key, value string) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Set(ctx, key, value)
}

func (s *DBStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Delete(ctx, key)
}

func (s *DBStore) Close() error {
	if s != nil && s.Store != nil {
		s.Store.Close()
	}
	return nil
}
