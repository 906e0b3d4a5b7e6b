package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vaultScope/internal/vault"
)

// AssumeConfig holds configuration for the assume subcommands.
type AssumeConfig struct {
	Cluster     string
	Vault       string
	In          string
	Presets     string
	State       StateConfig
	Assumptions vault.Assumptions
	LogLevel    string
}

// LoadAssume merges config file, environment variables, and flags into AssumeConfig. Only
// override fields that were explicitly set end up in Assumptions.
func LoadAssume(cfgFile string, flags *pflag.FlagSet) (AssumeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		setStateDefaults(v)
		v.SetDefault("in", "./data/vaults.jsonl")
		v.SetDefault("presets", "./cluster_presets.json")
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return AssumeConfig{}, err
	}

	a := vault.Assumptions{
		SupplyCap:     getFloatPtr(v, "supply-cap"),
		BorrowCap:     getFloatPtr(v, "borrow-cap"),
		AssumedSupply: getFloatPtr(v, "assumed-supply"),
		AssumedBorrow: getFloatPtr(v, "assumed-borrow"),
		NativeYield:   getFloatPtr(v, "native-yield"),
	}
	overrides := vault.IRMOverrides{
		KinkPercent: getFloatPtr(v, "kink"),
		BaseRateApy: getFloatPtr(v, "base-rate"),
		RateAtKink:  getFloatPtr(v, "kink-rate"),
		MaximumRate: getFloatPtr(v, "max-rate"),
	}
	if overrides != (vault.IRMOverrides{}) {
		a.IRM = &overrides
	}

	return AssumeConfig{
		Cluster:     v.GetString("cluster"),
		Vault:       v.GetString("vault"),
		In:          v.GetString("in"),
		Presets:     v.GetString("presets"),
		State:       stateConfig(v),
		Assumptions: a,
		LogLevel:    v.GetString("log-level"),
	}, nil
}
