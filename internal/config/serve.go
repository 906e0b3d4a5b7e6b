package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ServeConfig holds configuration for the serve command.
type ServeConfig struct {
	Fetch       FetchConfig
	Listen      string
	Interval    time.Duration
	Assumptions string
	State       StateConfig
	PersistRuns bool
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		setFetchDefaults(v)
		setStateDefaults(v)
		v.SetDefault("listen", ":9464")
		v.SetDefault("interval", 5*time.Minute)
	})
	if err != nil {
		return ServeConfig{}, err
	}

	return ServeConfig{
		Fetch:       fetchConfig(v),
		Listen:      v.GetString("listen"),
		Interval:    v.GetDuration("interval"),
		Assumptions: v.GetString("assumptions"),
		State:       stateConfig(v),
		PersistRuns: v.GetBool("persist-runs"),
	}, nil
}
