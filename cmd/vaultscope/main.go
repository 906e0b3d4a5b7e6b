package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "vaultscope",
		Short:        "Lending vault yield and strategy analysis",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch vault state through the lens into a snapshot JSONL",
		RunE:  runFetch,
	}
	addFetchFlags(fetchCmd)
	fetchCmd.Flags().String("out", "./data/vaults.jsonl", "output snapshot JSONL (appended)")
	fetchCmd.Flags().String("errors", "./data/fetch_errors.jsonl", "fetch errors JSONL (appended)")
	root.AddCommand(fetchCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute scenario APYs and strategy yields for a cluster",
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().String("in", "./data/vaults.jsonl", "input snapshot JSONL")
	analyzeCmd.Flags().String("cluster", "", "cluster name")
	analyzeCmd.Flags().String("assumptions", "", "yaml assumption file applied after stored assumptions")
	addStateFlags(analyzeCmd)
	analyzeCmd.Flags().String("out", "./data/export.json", "export path, - for stdout")
	analyzeCmd.Flags().String("format", "json", "export format (json, msgpack)")
	analyzeCmd.Flags().Bool("summary", false, "print a table summary to stdout")
	analyzeCmd.Flags().Bool("offline", false, "do not look up native yields missing from the snapshots")
	addLlamaFlags(analyzeCmd)
	analyzeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(analyzeCmd)

	surfaceCmd := &cobra.Command{
		Use:   "surface",
		Short: "Sweep a leveraged strategy's yield over both utilizations",
		RunE:  runSurface,
	}
	surfaceCmd.Flags().String("in", "./data/vaults.jsonl", "input snapshot JSONL")
	surfaceCmd.Flags().String("cluster", "", "cluster name")
	surfaceCmd.Flags().String("debt", "", "debt vault (address, optics label or symbol)")
	surfaceCmd.Flags().String("collateral", "", "collateral vault (address, optics label or symbol)")
	surfaceCmd.Flags().String("assumptions", "", "yaml assumption file applied after stored assumptions")
	addStateFlags(surfaceCmd)
	surfaceCmd.Flags().Float64("fixed-debt-util", 0, "debt utilization in percent for the collateral sweep (default current)")
	surfaceCmd.Flags().Float64("fixed-collateral-util", 0, "collateral utilization in percent for the debt sweep (default current)")
	surfaceCmd.Flags().String("out", "./data/surface.jsonl", "output JSONL, - for stdout")
	surfaceCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(surfaceCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode-irm HEX",
		Short: "Decode kink rate model params",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecodeIRM,
	}
	decodeCmd.Flags().Int("type", -1, "lens model type, -1 when unknown")
	root.AddCommand(decodeCmd)

	root.AddCommand(newAssumeCmd())
	root.AddCommand(newPresetsCmd())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Refetch a cluster on an interval and export metrics",
		RunE:  runServe,
	}
	addFetchFlags(serveCmd)
	addStateFlags(serveCmd)
	serveCmd.Flags().String("assumptions", "", "yaml assumption file applied after stored assumptions")
	serveCmd.Flags().String("listen", ":9464", "HTTP listen address")
	serveCmd.Flags().Duration("interval", 5*time.Minute, "refresh interval")
	serveCmd.Flags().Bool("persist-runs", false, "write every run to Postgres (requires --pg-dsn)")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "RPC URL (falls back to RPC_URL)")
	cmd.Flags().String("lens", "", "vault lens address (default deployment when empty)")
	cmd.Flags().String("cluster", "", "cluster preset name")
	cmd.Flags().String("presets", "./cluster_presets.json", "cluster presets file (json or yaml)")
	cmd.Flags().StringSlice("address", nil, "extra vault addresses (comma-separated)")
	cmd.Flags().Int("concurrency", 4, "vaults fetched in parallel")
	cmd.Flags().Float64("rpc-rps", 0, "RPC requests per second, 0 for unlimited")
	cmd.Flags().Int("max-retries", 3, "maximum retry attempts per vault")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	addLlamaFlags(cmd)
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func addLlamaFlags(cmd *cobra.Command) {
	cmd.Flags().String("llama-url", "https://yields.llama.fi", "DeFiLlama yields API base URL")
	cmd.Flags().Duration("llama-timeout", 20*time.Second, "DeFiLlama request timeout")
	cmd.Flags().Duration("llama-ttl", 5*time.Minute, "DeFiLlama pools cache TTL")
}

func addStateFlags(cmd *cobra.Command) {
	cmd.Flags().String("state-db", "./data/vaultscope.db", "sqlite assumption store")
	cmd.Flags().String("state-file", "", "JSON assumption store (overrides --state-db)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN (assumption store and run persistence)")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
