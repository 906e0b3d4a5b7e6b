package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AnalyzeConfig holds configuration for the analyze command.
type AnalyzeConfig struct {
	In          string
	Cluster     string
	Assumptions string
	State       StateConfig
	Out         string
	Format      string
	Summary     bool
	Offline     bool
	Llama       LlamaConfig
	LogLevel    string
}

// LoadAnalyze merges config file, environment variables, and flags into AnalyzeConfig.
func LoadAnalyze(cfgFile string, flags *pflag.FlagSet) (AnalyzeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		setStateDefaults(v)
		v.SetDefault("in", "./data/vaults.jsonl")
		v.SetDefault("out", "./data/export.json")
		v.SetDefault("format", "json")
		v.SetDefault("llama-url", "https://yields.llama.fi")
		v.SetDefault("llama-timeout", 20*time.Second)
		v.SetDefault("llama-ttl", 5*time.Minute)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return AnalyzeConfig{}, err
	}

	return AnalyzeConfig{
		In:          v.GetString("in"),
		Cluster:     v.GetString("cluster"),
		Assumptions: v.GetString("assumptions"),
		State:       stateConfig(v),
		Out:         v.GetString("out"),
		Format:      v.GetString("format"),
		Summary:     v.GetBool("summary"),
		Offline:     v.GetBool("offline"),
		Llama:       llamaConfig(v),
		LogLevel:    v.GetString("log-level"),
	}, nil
}

// SurfaceConfig holds configuration for the surface command.
type SurfaceConfig struct {
	In          string
	Cluster     string
	Debt        string
	Collateral  string
	Assumptions string
	State       StateConfig
	// FixedDebtUtil and FixedCollateralUtil are percentages; nil selects the current utilization.
	FixedDebtUtil       *float64
	FixedCollateralUtil *float64
	Out                 string
	LogLevel            string
}

// LoadSurface merges config file, environment variables, and flags into SurfaceConfig.
func LoadSurface(cfgFile string, flags *pflag.FlagSet) (SurfaceConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		setStateDefaults(v)
		v.SetDefault("in", "./data/vaults.jsonl")
		v.SetDefault("out", "./data/surface.jsonl")
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return SurfaceConfig{}, err
	}

	return SurfaceConfig{
		In:                  v.GetString("in"),
		Cluster:             v.GetString("cluster"),
		Debt:                v.GetString("debt"),
		Collateral:          v.GetString("collateral"),
		Assumptions:         v.GetString("assumptions"),
		State:               stateConfig(v),
		FixedDebtUtil:       getFloatPtr(v, "fixed-debt-util"),
		FixedCollateralUtil: getFloatPtr(v, "fixed-collateral-util"),
		Out:                 v.GetString("out"),
		LogLevel:            v.GetString("log-level"),
	}, nil
}
