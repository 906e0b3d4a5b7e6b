package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/config"
	"vaultScope/internal/export"
	"vaultScope/internal/llama"
	"vaultScope/internal/model"
	"vaultScope/internal/state"
	"vaultScope/internal/vault"
)

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAnalyze(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	recs, clusterName, err := loadSnapshots(cfg.In, cfg.Cluster)
	if err != nil {
		return err
	}

	store, err := state.Open(ctx, cfg.State)
	if err != nil {
		return err
	}
	defer store.Close()

	var yields vault.YieldLookup
	if !cfg.Offline {
		yields = llama.New(cfg.Llama.URL, cfg.Llama.Timeout, cfg.Llama.TTL, logger)
	}

	logger.Info("analyze start",
		zap.String("in", cfg.In),
		zap.String("cluster", clusterName),
		zap.Int("vaults", len(recs)),
		zap.String("assumptions", cfg.Assumptions),
		zap.String("pg_dsn", redactDSN(cfg.State.PGDSN)),
		zap.Bool("offline", cfg.Offline),
	)

	session, err := buildSession(ctx, recs, sessionInput{
		Cluster:     clusterName,
		Assumptions: cfg.Assumptions,
		Yields:      yields,
	}, store, logger)
	if err != nil {
		return err
	}

	result := session.Analyze()
	for _, sk := range result.Skipped {
		logger.Warn("strategy skipped", zap.String("strategy", sk.Strategy), zap.Error(sk.Err))
	}
	bundle := export.Build(session, result, time.Now())

	if err := export.WriteFile(cfg.Out, bundle, cfg.Format); err != nil {
		return err
	}
	if cfg.Summary {
		if err := export.WriteSummary(os.Stdout, bundle); err != nil {
			return err
		}
	}

	runID, err := persistRun(ctx, store, bundle)
	if err != nil {
		return err
	}

	logger.Info("analyze complete",
		zap.String("out", cfg.Out),
		zap.Int("leveraged", len(bundle.Strategies.Leveraged)),
		zap.Int("single_sided", len(bundle.Strategies.SingleSided)),
		zap.Int("borrow_rates", len(bundle.BorrowRates)),
		zap.Int("skipped", len(bundle.Skipped)),
		zap.Int64("run_id", runID),
	)
	return nil
}

// persistRun saves the bundle when the state store is backed by Postgres. It returns 0 otherwise.
func persistRun(ctx context.Context, store state.Store, bundle model.Export) (int64, error) {
	db, ok := store.(*state.DBStore)
	if !ok || db.Store == nil {
		return 0, nil
	}
	id, err := db.Store.SaveRun(ctx, bundle)
	if err != nil {
		return 0, fmt.Errorf("save run: %w", err)
	}
	return id, nil
}
