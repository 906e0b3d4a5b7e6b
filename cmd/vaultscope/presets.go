package main

import (
	"errors"
	"fmt"
	"io/fs"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/config"
)

func newPresetsCmd() *cobra.Command {
	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "List and edit cluster presets",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List clusters, or the vaults of --cluster",
		RunE:  runPresetsList,
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a vault in a cluster",
		RunE:  runPresetsAdd,
	}
	addCmd.Flags().String("optics", "", "display label")
	addCmd.Flags().String("address", "", "vault address")
	addCmd.Flags().String("defillama-pool", "", "DeFiLlama pool id for the native yield")
	addCmd.Flags().String("field", "", "DeFiLlama pool field, e.g. apy or apyBase")

	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a vault from a cluster",
		RunE:  runPresetsRemove,
	}
	removeCmd.Flags().String("address", "", "vault address")

	for _, c := range []*cobra.Command{listCmd, addCmd, removeCmd} {
		c.Flags().String("presets", "./cluster_presets.json", "cluster presets file (json or yaml)")
		c.Flags().String("cluster", "", "cluster name")
		c.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
		presetsCmd.AddCommand(c)
	}
	return presetsCmd
}

func runPresetsList(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPresetsCommand(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	presets, err := config.LoadPresets(cfg.Presets)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if cfg.Cluster == "" {
		fmt.Fprintln(tw, "CLUSTER\tVAULTS")
		for _, c := range presets {
			fmt.Fprintf(tw, "%s\t%d\n", c.Name, len(c.Vaults))
		}
		return tw.Flush()
	}

	preset, err := presets.Cluster(cfg.Cluster)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "OPTICS\tADDRESS\tPOOL\tFIELD")
	for _, v := range preset.Vaults {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Optics, v.Address, v.DefiLlamaPool, v.Field)
	}
	return tw.Flush()
}

func runPresetsAdd(cmd *cobra.Command, _ []string) error {
	return editPresets(cmd, func(p config.Presets, cfg config.PresetsCommandConfig) (config.Presets, error) {
		return p.UpsertVault(cfg.Cluster, cfg.Vault)
	})
}

func runPresetsRemove(cmd *cobra.Command, _ []string) error {
	return editPresets(cmd, func(p config.Presets, cfg config.PresetsCommandConfig) (config.Presets, error) {
		return p.RemoveVault(cfg.Cluster, cfg.Vault.Address)
	})
}

// editPresets applies edit to the presets file, starting from an empty list when it does not exist.
func editPresets(cmd *cobra.Command, edit func(config.Presets, config.PresetsCommandConfig) (config.Presets, error)) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPresetsCommand(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Cluster == "" {
		return fmt.Errorf("cluster is required")
	}

	presets, err := config.LoadPresets(cfg.Presets)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		presets = config.Presets{}
	}
	presets, err = edit(presets, cfg)
	if err != nil {
		return err
	}
	if err := config.SavePresets(cfg.Presets, presets); err != nil {
		return err
	}
	logger.Info("presets saved", zap.String("path", cfg.Presets), zap.String("cluster", cfg.Cluster), zap.String("vault", cfg.Vault.Address))
	return nil
}
