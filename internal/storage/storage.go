package storage

import "vaultScope/internal/model"

// Storage defines a sink for fetched vault snapshots.
type Storage interface {
	PutSnapshots(snaps []model.VaultSnapshot) error
}

// ErrorSink receives vaults that could not be fetched.
type ErrorSink interface {
	PutFetchErrors(errs []model.FetchError) error
}
