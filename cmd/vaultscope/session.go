package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"vaultScope/internal/cluster"
	"vaultScope/internal/config"
	"vaultScope/internal/model"
	"vaultScope/internal/state"
	"vaultScope/internal/storage"
	"vaultScope/internal/vault"
)

// loadSnapshots reads the latest snapshot per vault of a cluster. When no cluster is given
// and every record carries the same tag, that tag names the cluster.
func loadSnapshots(path, clusterName string) ([]model.VaultSnapshot, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("input path is required")
	}
	all, err := storage.ReadSnapshots(path)
	if err != nil {
		return nil, "", err
	}
	recs := storage.Latest(storage.ForCluster(all, clusterName))
	if len(recs) == 0 {
		return nil, "", fmt.Errorf("no snapshots for cluster %s in %s", clusterName, path)
	}
	if clusterName == "" {
		clusterName = commonCluster(recs)
	}
	return recs, clusterName, nil
}

func commonCluster(recs []model.VaultSnapshot) string {
	name := recs[0].Cluster
	for _, r := range recs[1:] {
		if !strings.EqualFold(r.Cluster, name) {
			return ""
		}
	}
	return name
}

// sessionInput configures buildSession.
type sessionInput struct {
	Cluster     string
	Assumptions string
	Yields      vault.YieldLookup
	Observer    cluster.Observer
}

// buildSession loads the vaults and applies the stored assumptions, then the file ones.
// Assumptions naming unknown vaults are logged and ignored.
func buildSession(ctx context.Context, recs []model.VaultSnapshot, in sessionInput, store state.Store, logger *zap.Logger) (*cluster.Session, error) {
	s := cluster.Build(ctx, in.Cluster, recs, cluster.Options{Yields: in.Yields, Observer: in.Observer, Logger: logger})
	if len(s.Vaults()) == 0 {
		return nil, fmt.Errorf("no usable vault in %d snapshots", len(recs))
	}

	stored, err := state.LoadAssumptions(ctx, store, in.Cluster)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyAssumptions(stored); err != nil {
		logger.Warn("stored assumptions not applied", zap.String("cluster", in.Cluster), zap.Error(err))
	}

	fromFile, err := config.LoadAssumptions(in.Assumptions)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyAssumptions(fromFile); err != nil {
		logger.Warn("file assumptions not applied", zap.String("path", in.Assumptions), zap.Error(err))
	}

	logger.Info("session loaded",
		zap.String("cluster", in.Cluster),
		zap.Int("vaults", len(s.Vaults())),
		zap.Int("failures", len(s.Failures())),
		zap.Int("stored_assumptions", len(stored)),
		zap.Int("file_assumptions", len(fromFile)),
	)
	return s, nil
}
