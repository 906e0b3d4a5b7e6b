package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/config"
	"vaultScope/internal/fetcher"
	"vaultScope/internal/lens"
	"vaultScope/internal/llama"
	"vaultScope/internal/storage"
)

func runFetch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFetch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	ctx, stop := signalContext()
	defer stop()

	deps, err := newFetchDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.chain.Close()

	opts := []fetcher.Option{
		fetcher.WithYieldLookup(deps.yields),
		fetcher.WithStorage(storage.NewJsonlStorage(cfg.Out)),
	}
	if cfg.Errors != "" {
		opts = append(opts, fetcher.WithErrorSink(storage.NewJsonlStorage(cfg.Errors)))
	}

	res, err := fetcher.NewRunner(deps.run, deps.lens, logger, opts...).Run(ctx)
	if err != nil {
		return err
	}
	if len(res.Snapshots) == 0 {
		return fmt.Errorf("no vault could be fetched (%d failures)", len(res.Failures))
	}
	return nil
}

// fetchDeps is a live RPC connection and the run it serves.
type fetchDeps struct {
	chain  *chain.Client
	lens   *lens.Lens
	yields *llama.Client
	run    fetcher.RunConfig
}

func newFetchDeps(ctx context.Context, cfg config.FetchConfig, logger *zap.Logger) (*fetchDeps, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	targets, err := resolveTargets(cfg)
	if err != nil {
		return nil, err
	}

	var lensAddr common.Address
	if cfg.Lens != "" {
		if !common.IsHexAddress(cfg.Lens) {
			return nil, fmt.Errorf("invalid lens address: %s", cfg.Lens)
		}
		lensAddr = common.HexToAddress(cfg.Lens)
	}

	var chainOpts []chain.Option
	if cfg.RPCRPS > 0 {
		chainOpts = append(chainOpts, chain.WithRateLimit(cfg.RPCRPS, cfg.Concurrency))
	}
	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chainOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		chainClient.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	head, err := chainClient.LatestBlockNumber(ctx)
	if err != nil {
		chainClient.Close()
		return nil, fmt.Errorf("get latest block: %w", err)
	}

	binding := lens.New(chainClient, lensAddr)

	logger.Info("fetch configured",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.Uint64("head", head),
		zap.String("lens", binding.Address().Hex()),
		zap.String("cluster", cfg.Cluster),
		zap.Int("vaults", len(targets)),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Float64("rpc_rps", cfg.RPCRPS),
	)

	return &fetchDeps{
		chain:  chainClient,
		lens:   binding,
		yields: llama.New(cfg.Llama.URL, cfg.Llama.Timeout, cfg.Llama.TTL, logger),
		run: fetcher.RunConfig{
			Cluster:      cfg.Cluster,
			Targets:      targets,
			Concurrency:  cfg.Concurrency,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		},
	}, nil
}

// resolveTargets lists the preset vaults of the cluster followed by any extra addresses. A
// cluster missing from the presets is only an error when no extra address is given.
func resolveTargets(cfg config.FetchConfig) ([]fetcher.Target, error) {
	var targets []fetcher.Target
	if cfg.Cluster != "" {
		preset, err := loadClusterPreset(cfg.Presets, cfg.Cluster)
		switch {
		case err == nil:
			if targets, err = fetcher.TargetsFromPreset(preset); err != nil {
				return nil, err
			}
		case len(cfg.Addresses) == 0:
			return nil, err
		}
	}

	extra, err := fetcher.TargetsFromAddresses(cfg.Addresses)
	if err != nil {
		return nil, err
	}
	seen := make(map[common.Address]struct{}, len(targets))
	for _, t := range targets {
		seen[t.Address] = struct{}{}
	}
	for _, t := range extra {
		if _, ok := seen[t.Address]; !ok {
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return nil, errors.New("no vaults to fetch: set --cluster or --address")
	}
	return targets, nil
}

func loadClusterPreset(path, name string) (config.ClusterPreset, error) {
	presets, err := config.LoadPresets(path)
	if err != nil {
		return config.ClusterPreset{}, err
	}
	return presets.Cluster(name)
}
