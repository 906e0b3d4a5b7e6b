package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "VAULTSCOPE"

// StateConfig selects where assumption sets are persisted. PGDSN wins over StateFile,
// StateFile over StateDB.
type StateConfig struct {
	StateDB   string
	StateFile string
	PGDSN     string
}

// LlamaConfig configures the native yield lookup.
type LlamaConfig struct {
	URL     string
	Timeout time.Duration
	TTL     time.Duration
}

// FetchConfig holds configuration for the fetch command.
type FetchConfig struct {
	RPCURL       string
	Lens         string
	Cluster      string
	Presets      string
	Addresses    []string
	Out          string
	Errors       string
	Concurrency  int
	RPCRPS       float64
	MaxRetries   int
	RetryBackoff time.Duration
	Llama        LlamaConfig
	LogLevel     string
}

// LoadFetch merges config file, environment variables, and flags into FetchConfig.
func LoadFetch(cfgFile string, flags *pflag.FlagSet) (FetchConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		setFetchDefaults(v)
		v.SetDefault("out", "./data/vaults.jsonl")
		v.SetDefault("errors", "./data/fetch_errors.jsonl")
	})
	if err != nil {
		return FetchConfig{}, err
	}
	return fetchConfig(v), nil
}

func setFetchDefaults(v *viper.Viper) {
	v.SetDefault("presets", "./cluster_presets.json")
	v.SetDefault("concurrency", 4)
	v.SetDefault("rpc-rps", 0.0)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("llama-url", "https://yields.llama.fi")
	v.SetDefault("llama-timeout", 20*time.Second)
	v.SetDefault("llama-ttl", 5*time.Minute)
	v.SetDefault("log-level", "info")
}

func fetchConfig(v *viper.Viper) FetchConfig {
	return FetchConfig{
		RPCURL:       v.GetString("rpc"),
		Lens:         v.GetString("lens"),
		Cluster:      v.GetString("cluster"),
		Presets:      v.GetString("presets"),
		Addresses:    getStringSlice(v, "address"),
		Out:          v.GetString("out"),
		Errors:       v.GetString("errors"),
		Concurrency:  v.GetInt("concurrency"),
		RPCRPS:       v.GetFloat64("rpc-rps"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		Llama:        llamaConfig(v),
		LogLevel:     v.GetString("log-level"),
	}
}

func llamaConfig(v *viper.Viper) LlamaConfig {
	return LlamaConfig{
		URL:     v.GetString("llama-url"),
		Timeout: v.GetDuration("llama-timeout"),
		TTL:     v.GetDuration("llama-ttl"),
	}
}

func setStateDefaults(v *viper.Viper) {
	v.SetDefault("state-db", "./data/vaultscope.db")
}

func stateConfig(v *viper.Viper) StateConfig {
	return StateConfig{
		StateDB:   v.GetString("state-db"),
		StateFile: v.GetString("state-file"),
		PGDSN:     v.GetString("pg-dsn"),
	}
}

// newViper builds a viper instance over env, flags and an optional config file.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("rpc", envPrefix+"_RPC", "RPC_URL"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

// getFloatPtr returns nil unless key was set by a flag, env var or config file.
func getFloatPtr(v *viper.Viper, key string) *float64 {
	if !v.IsSet(key) {
		return nil
	}
	f := v.GetFloat64(key)
	return &f
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
