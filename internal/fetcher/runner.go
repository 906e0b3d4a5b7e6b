// Package fetcher reads every vault of a cluster through the lens and records the snapshots.
package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vaultScope/internal/model"
	"vaultScope/internal/storage"
)

// Target is one vault to fetch.
type Target struct {
	Label   string
	Address common.Address
	Pool    string
	Field   string
}

// VaultReader reads the descaled lens view of a vault. lens.Lens satisfies it.
type VaultReader interface {
	FetchVaultInfo(ctx context.Context, vault common.Address) (model.VaultInfo, error)
}

// YieldLookup resolves a native yield percentage, returning 0 on failure. llama.Client satisfies it.
type YieldLookup interface {
	NativeYield(ctx context.Context, pool, field string) float64
}

// Observer is told about the outcome of every vault fetch.
type Observer interface {
	ObserveFetch(cluster string, ok bool)
}

// RunConfig holds runtime settings for a fetch.
type RunConfig struct {
	Cluster      string
	Targets      []Target
	Concurrency  int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Result is the outcome of a fetch. Snapshots keep target order; a failed vault is absent
// from Snapshots and present in Failures.
type Result struct {
	Snapshots []model.VaultSnapshot
	Failures  []model.FetchError
}

// Runner fetches vault snapshots concurrently and writes them to storage.
type Runner struct {
	cfg      RunConfig
	reader   VaultReader
	yields   YieldLookup
	storage  storage.Storage
	errors   storage.ErrorSink
	observer Observer
	logger   *zap.Logger
	now      func() time.Time
}

// Option customises a Runner.
type Option func(*Runner)

// WithYieldLookup resolves native yields at fetch time.
func WithYieldLookup(y YieldLookup) Option { return func(r *Runner) { r.yields = y } }

// WithStorage appends fetched snapshots to s.
func WithStorage(s storage.Storage) Option { return func(r *Runner) { r.storage = s } }

// WithErrorSink appends failed vaults to s.
func WithErrorSink(s storage.ErrorSink) Option { return func(r *Runner) { r.errors = s } }

// WithObserver reports fetch outcomes to o.
func WithObserver(o Observer) Option { return func(r *Runner) { r.observer = o } }

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, reader VaultReader, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cfg:    cfg,
		reader: reader,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run fetches every target. A vault that still fails after its retries is recorded as a
// failure and does not abort the others; only storage errors and cancellation fail the run.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.reader == nil {
		return Result{}, fmt.Errorf("vault reader is nil")
	}
	if len(r.cfg.Targets) == 0 {
		return Result{}, fmt.Errorf("at least one vault is required")
	}
	limit := r.cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}

	r.logger.Info("fetch start", zap.String("cluster", r.cfg.Cluster), zap.Int("vaults", len(r.cfg.Targets)), zap.Int("concurrency", limit))

	snaps := make([]*model.VaultSnapshot, len(r.cfg.Targets))
	var (
		mu       sync.Mutex
		failures []model.FetchError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, target := range r.cfg.Targets {
		i, target := i, target
		g.Go(func() error {
			snap, attempts, err := r.fetchOne(gctx, target)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.logger.Warn("vault fetch failed", zap.String("vault", target.Address.Hex()), zap.String("label", target.Label), zap.Int("attempts", attempts), zap.Error(err))
				mu.Lock()
				failures = append(failures, model.FetchError{
					Cluster:  r.cfg.Cluster,
					Label:    target.Label,
					Address:  target.Address.Hex(),
					Attempts: attempts,
					Error:    err.Error(),
					At:       r.now().UTC().Format(time.RFC3339),
				})
				mu.Unlock()
				r.observe(false)
				return nil
			}
			snaps[i] = &snap
			r.observe(true)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result := Result{Snapshots: make([]model.VaultSnapshot, 0, len(snaps)), Failures: failures}
	for _, snap := range snaps {
		if snap != nil {
			result.Snapshots = append(result.Snapshots, *snap)
		}
	}

	if r.storage != nil && len(result.Snapshots) > 0 {
		if err := r.storage.PutSnapshots(result.Snapshots); err != nil {
			return result, fmt.Errorf("store snapshots: %w", err)
		}
	}
	if r.errors != nil && len(result.Failures) > 0 {
		if err := r.errors.PutFetchErrors(result.Failures); err != nil {
			return result, fmt.Errorf("store fetch errors: %w", err)
		}
	}

	r.logger.Info("fetch complete", zap.String("cluster", r.cfg.Cluster), zap.Int("fetched", len(result.Snapshots)), zap.Int("failed", len(result.Failures)))
	return result, nil
}

func (r *Runner) fetchOne(ctx context.Context, target Target) (model.VaultSnapshot, int, error) {
	var info model.VaultInfo
	attempts, err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		info, err = r.reader.FetchVaultInfo(ctx, target.Address)
		if err != nil {
			r.logger.Debug("lens call failed", zap.String("vault", target.Address.Hex()), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return model.VaultSnapshot{}, attempts, err
	}

	snap := model.VaultSnapshot{
		Cluster:    r.cfg.Cluster,
		Label:      target.Label,
		Address:    target.Address.Hex(),
		LlamaPool:  target.Pool,
		LlamaField: target.Field,
		Info:       info,
		FetchedAt:  r.now().UTC().Format(time.RFC3339),
	}
	if r.yields != nil && target.Pool != "" && target.Field != "" {
		y := r.yields.NativeYield(ctx, target.Pool, target.Field)
		snap.NativeYield = &y
	}
	return snap, attempts, nil
}

func (r *Runner) observe(ok bool) {
	if r.observer != nil {
		r.observer.ObserveFetch(r.cfg.Cluster, ok)
	}
}
