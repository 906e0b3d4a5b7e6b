package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vaultScope/internal/config"
	"vaultScope/internal/export"
	"vaultScope/internal/fetcher"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/state"
	"vaultScope/internal/storage"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Fetch.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if cfg.PersistRuns && cfg.State.PGDSN == "" {
		return fmt.Errorf("persist-runs requires pg-dsn")
	}

	ctx, stop := signalContext()
	defer stop()

	deps, err := newFetchDeps(ctx, cfg.Fetch, logger)
	if err != nil {
		return err
	}
	defer deps.chain.Close()

	store, err := state.Open(ctx, cfg.State)
	if err != nil {
		return err
	}
	defer store.Close()

	prom := metrics.NewPrometheus()
	opts := []fetcher.Option{fetcher.WithYieldLookup(deps.yields), fetcher.WithObserver(prom.Metrics)}
	if cfg.Fetch.Out != "" {
		opts = append(opts, fetcher.WithStorage(storage.NewJsonlStorage(cfg.Fetch.Out)))
	}

	ex := &exporter{
		cluster:     deps.run.Cluster,
		assumptions: cfg.Assumptions,
		persist:     cfg.PersistRuns,
		runner:      fetcher.NewRunner(deps.run, deps.lens, logger, opts...),
		store:       store,
		metrics:     prom.Metrics,
		logger:      logger,
	}

	if err := ex.restore(ctx); err != nil {
		logger.Warn("restore last run failed", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", prom.Handler())
	mux.HandleFunc("/export", ex.handleExport)
	server := &http.Server{Addr: cfg.Listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	logger.Info("serve start",
		zap.String("listen", cfg.Listen),
		zap.String("cluster", ex.cluster),
		zap.Duration("interval", cfg.Interval),
		zap.String("pg_dsn", redactDSN(cfg.State.PGDSN)),
		zap.Bool("persist_runs", cfg.PersistRuns),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return ex.loop(gctx, cfg.Interval)
	})

	err = g.Wait()
	logger.Info("serve complete")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runner fetches a cluster. fetcher.Runner satisfies it.
type runner interface {
	Run(ctx context.Context) (fetcher.Result, error)
}

// exporter refreshes the cluster and keeps the latest bundle.
type exporter struct {
	cluster     string
	assumptions string
	persist     bool
	runner      runner
	store       state.Store
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time

	mu     sync.RWMutex
	latest *model.Export
}

// restore publishes the last persisted run of the cluster so /export answers before the first
// refresh completes.
func (e *exporter) restore(ctx context.Context) error {
	db, ok := e.store.(*state.DBStore)
	if !ok || db.Store == nil {
		return nil
	}
	bundle, found, err := db.Store.LatestExport(ctx, e.cluster)
	if err != nil || !found {
		return err
	}
	e.mu.Lock()
	if e.latest == nil {
		e.latest = &bundle
	}
	e.mu.Unlock()
	e.logger.Info("last run restored", zap.String("cluster", e.cluster), zap.String("exported_at", bundle.ExportedAt))
	return nil
}

func (e *exporter) loop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := e.refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Warn("refresh failed", zap.String("cluster", e.cluster), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// refresh fetches, recomputes and publishes one bundle.
func (e *exporter) refresh(ctx context.Context) error {
	res, err := e.runner.Run(ctx)
	if err != nil {
		return err
	}
	if len(res.Snapshots) == 0 {
		return fmt.Errorf("no vault could be fetched (%d failures)", len(res.Failures))
	}

	session, err := buildSession(ctx, res.Snapshots, sessionInput{
		Cluster:     e.cluster,
		Assumptions: e.assumptions,
		Observer:    e.metrics,
	}, e.store, e.logger)
	if err != nil {
		return err
	}

	now := time.Now
	if e.now != nil {
		now = e.now
	}
	bundle := export.Build(session, session.Analyze(), now())
	e.metrics.ObserveExport(bundle)

	e.mu.Lock()
	e.latest = &bundle
	e.mu.Unlock()

	if e.persist {
		id, err := persistRun(ctx, e.store, bundle)
		if err != nil {
			return err
		}
		e.logger.Info("run saved", zap.Int64("run_id", id))
	}
	e.logger.Info("refresh complete",
		zap.String("cluster", e.cluster),
		zap.Int("vaults", len(bundle.Vaults)),
		zap.Int("leveraged", len(bundle.Strategies.Leveraged)),
		zap.Int("skipped", len(bundle.Skipped)),
	)
	return nil
}

func (e *exporter) handleExport(w http.ResponseWriter, r *http.Request) {
	e.mu.RLock()
	latest := e.latest
	e.mu.RUnlock()
	if latest == nil {
		http.Error(w, "no export yet", http.StatusServiceUnavailable)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatJSON
	}
	switch format {
	case export.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	case export.FormatMsgpack:
		w.Header().Set("Content-Type", "application/msgpack")
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
		return
	}
	if err := export.Encode(w, *latest, format); err != nil {
		e.logger.Warn("encode export failed", zap.Error(err))
	}
}
