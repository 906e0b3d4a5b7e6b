package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"vaultScope/internal/cluster"
	"vaultScope/internal/config"
	"vaultScope/internal/state"
	"vaultScope/internal/vault"
)

func newAssumeCmd() *cobra.Command {
	assumeCmd := &cobra.Command{
		Use:   "assume",
		Short: "Manage stored per-vault assumptions of a cluster",
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Merge overrides into a vault's stored assumptions",
		RunE:  runAssumeSet,
	}
	setCmd.Flags().String("vault", "", "vault (address, optics label or symbol)")
	setCmd.Flags().Float64("supply-cap", 0, "supply cap")
	setCmd.Flags().Float64("borrow-cap", 0, "borrow cap")
	setCmd.Flags().Float64("assumed-supply", 0, "assumed total supply")
	setCmd.Flags().Float64("assumed-borrow", 0, "assumed total borrow")
	setCmd.Flags().Float64("native-yield", 0, "native yield in percent")
	setCmd.Flags().Float64("kink", 0, "kink utilization in percent")
	setCmd.Flags().Float64("base-rate", 0, "base rate APY in percent")
	setCmd.Flags().Float64("kink-rate", 0, "APY at the kink in percent")
	setCmd.Flags().Float64("max-rate", 0, "APY at full utilization in percent")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore a vault, or the whole cluster with --all, to on-chain values",
		RunE:  runAssumeReset,
	}
	resetCmd.Flags().String("vault", "", "vault (address, optics label or symbol)")
	resetCmd.Flags().Bool("all", false, "drop every override of the cluster")

	for _, c := range []*cobra.Command{setCmd, resetCmd} {
		c.Flags().String("in", "./data/vaults.jsonl", "snapshot JSONL used to resolve labels and symbols")
		c.Flags().String("presets", "./cluster_presets.json", "cluster presets file used to resolve optics labels")
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored assumptions as an assumption file",
		RunE:  runAssumeShow,
	}

	for _, c := range []*cobra.Command{setCmd, resetCmd, showCmd} {
		c.Flags().String("cluster", "", "cluster name")
		addStateFlags(c)
		c.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
		assumeCmd.AddCommand(c)
	}
	return assumeCmd
}

func loadAssumeConfig(cmd *cobra.Command) (config.AssumeConfig, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAssume(cfgFile, cmd.Flags())
	if err != nil {
		return config.AssumeConfig{}, nil, err
	}
	if cfg.Cluster == "" {
		return config.AssumeConfig{}, nil, fmt.Errorf("cluster is required")
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.AssumeConfig{}, nil, err
	}
	return cfg, logger, nil
}

func runAssumeSet(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadAssumeConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Vault == "" {
		return fmt.Errorf("vault is required")
	}
	if cfg.Assumptions.IsZero() {
		return fmt.Errorf("no override given")
	}

	ctx, stop := signalContext()
	defer stop()

	store, err := state.Open(ctx, cfg.State)
	if err != nil {
		return err
	}
	defer store.Close()

	key, aliases, err := resolveVaultKey(ctx, cfg, logger)
	if err != nil {
		return err
	}
	merged, err := state.SetVaultAssumptions(ctx, store, cfg.Cluster, key, aliases, cfg.Assumptions)
	if err != nil {
		return err
	}
	logger.Info("assumptions stored", zap.String("cluster", cfg.Cluster), zap.String("vault", key))
	return writeAssumptions(map[string]vault.Assumptions{key: merged})
}

func runAssumeReset(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadAssumeConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	all, _ := cmd.Flags().GetBool("all")
	if cfg.Vault == "" && !all {
		return fmt.Errorf("set --vault or --all")
	}

	ctx, stop := signalContext()
	defer stop()

	store, err := state.Open(ctx, cfg.State)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Vault == "" {
		if err := state.ResetCluster(ctx, store, cfg.Cluster); err != nil {
			return err
		}
		logger.Info("cluster reset", zap.String("cluster", cfg.Cluster))
		return nil
	}
	key, aliases, err := resolveVaultKey(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := state.ResetVault(ctx, store, cfg.Cluster, key, aliases); err != nil {
		return err
	}
	logger.Info("vault reset", zap.String("cluster", cfg.Cluster), zap.String("vault", key))
	return nil
}

func runAssumeShow(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadAssumeConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	store, err := state.Open(ctx, cfg.State)
	if err != nil {
		return err
	}
	defer store.Close()

	set, err := state.LoadAssumptions(ctx, store, cfg.Cluster)
	if err != nil {
		return err
	}
	return writeAssumptions(set)
}

// resolveVaultKey maps --vault to the vault's checksummed address, the key overrides are
// stored under, and matches every other key naming the same vault. Labels and symbols are
// resolved through the cluster's snapshots, then its preset.
func resolveVaultKey(ctx context.Context, cfg config.AssumeConfig, logger *zap.Logger) (string, state.Aliases, error) {
	var session *cluster.Session
	if recs, _, err := loadSnapshots(cfg.In, cfg.Cluster); err == nil {
		session = cluster.Build(ctx, cfg.Cluster, recs, cluster.Options{Logger: logger})
	} else {
		logger.Debug("snapshots unavailable for vault lookup", zap.String("path", cfg.In), zap.Error(err))
	}
	var preset config.ClusterPreset
	if p, err := loadClusterPreset(cfg.Presets, cfg.Cluster); err == nil {
		preset = p
	} else {
		logger.Debug("preset unavailable for vault lookup", zap.String("path", cfg.Presets), zap.Error(err))
	}

	var (
		addr   common.Address
		target *vault.State
		found  bool
	)
	if session != nil {
		if v, err := session.Resolve(cfg.Vault); err == nil {
			target, addr, found = v, v.Address(), true
		}
	}
	if !found && common.IsHexAddress(cfg.Vault) {
		addr, found = common.HexToAddress(cfg.Vault), true
	}
	if !found {
		for _, v := range preset.Vaults {
			if strings.EqualFold(strings.TrimSpace(v.Optics), strings.TrimSpace(cfg.Vault)) && common.IsHexAddress(v.Address) {
				addr, found = common.HexToAddress(v.Address), true
				break
			}
		}
	}
	if !found {
		return "", nil, fmt.Errorf("vault %s not found in snapshots or preset of cluster %s", cfg.Vault, cfg.Cluster)
	}

	aliases := func(key string) bool {
		key = strings.TrimSpace(key)
		if common.IsHexAddress(key) && common.HexToAddress(key) == addr {
			return true
		}
		if target != nil && session.Aliases(target, key) {
			return true
		}
		for _, v := range preset.Vaults {
			if strings.EqualFold(strings.TrimSpace(v.Optics), key) && common.IsHexAddress(v.Address) && common.HexToAddress(v.Address) == addr {
				return true
			}
		}
		return false
	}
	return addr.Hex(), aliases, nil
}

// writeAssumptions prints set in the assumption file layout accepted by --assumptions.
func writeAssumptions(set map[string]vault.Assumptions) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(config.AssumptionFile{Vaults: set}); err != nil {
		return fmt.Errorf("encode assumptions: %w", err)
	}
	return enc.Close()
}
