package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrClusterNotFound is returned when a preset name does not match any cluster.
var ErrClusterNotFound = errors.New("cluster not found")

// VaultPreset is one vault of a cluster preset.
type VaultPreset struct {
	Optics        string `json:"optics" yaml:"optics"`
	Address       string `json:"address" yaml:"address"`
	DefiLlamaPool string `json:"defillama_pool" yaml:"defillama_pool"`
	Field         string `json:"field" yaml:"field"`
}

// ClusterPreset is a named group of vaults analysed together.
type ClusterPreset struct {
	Name   string        `json:"name" yaml:"name"`
	Vaults []VaultPreset `json:"vaults" yaml:"vaults"`
}

// Presets is the preset file. It is stored as a JSON array of clusters; yaml with either a
// top-level list or a clusters key is also accepted.
type Presets []ClusterPreset

type presetsDoc struct {
	Clusters Presets `yaml:"clusters"`
}

// LoadPresets reads a preset file.
func LoadPresets(path string) (Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Presets{}, nil
	}

	var list Presets
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, list.validate()
	}
	var doc presetsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	return doc.Clusters, doc.Clusters.validate()
}

// SavePresets writes presets as indented JSON, or yaml when path ends in .yaml or .yml.
func SavePresets(path string, p Presets) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(p)
	default:
		data, err = json.MarshalIndent(p, "", "    ")
	}
	if err != nil {
		return fmt.Errorf("marshal presets: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create presets dir: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write presets tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename presets: %w", err)
	}
	return nil
}

func (p Presets) validate() error {
	for _, c := range p {
		for _, v := range c.Vaults {
			if !common.IsHexAddress(strings.TrimSpace(v.Address)) {
				return fmt.Errorf("cluster %s: invalid vault address %q", c.Name, v.Address)
			}
		}
	}
	return nil
}

// Cluster returns the preset named name, matched case-insensitively.
func (p Presets) Cluster(name string) (ClusterPreset, error) {
	for _, c := range p {
		if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(name)) {
			return c, nil
		}
	}
	return ClusterPreset{}, fmt.Errorf("%w: %s", ErrClusterNotFound, name)
}

// Names lists the cluster names in file order.
func (p Presets) Names() []string {
	out := make([]string, 0, len(p))
	for _, c := range p {
		out = append(out, c.Name)
	}
	return out
}

// UpsertVault adds v to cluster, replacing an entry with the same address. The cluster is
// created when missing.
func (p Presets) UpsertVault(cluster string, v VaultPreset) (Presets, error) {
	v.Address = strings.TrimSpace(v.Address)
	v.Optics = strings.TrimSpace(v.Optics)
	if v.Optics == "" {
		return p, errors.New("optics label is required")
	}
	if !common.IsHexAddress(v.Address) {
		return p, fmt.Errorf("invalid vault address %q", v.Address)
	}

	for i := range p {
		if !strings.EqualFold(p[i].Name, cluster) {
			continue
		}
		for j := range p[i].Vaults {
			if strings.EqualFold(p[i].Vaults[j].Address, v.Address) {
				p[i].Vaults[j] = v
				return p, nil
			}
		}
		p[i].Vaults = append(p[i].Vaults, v)
		return p, nil
	}
	return append(p, ClusterPreset{Name: cluster, Vaults: []VaultPreset{v}}), nil
}

// RemoveVault drops the entry with address from cluster.
func (p Presets) RemoveVault(cluster, address string) (Presets, error) {
	for i := range p {
		if !strings.EqualFold(p[i].Name, cluster) {
			continue
		}
		kept := p[i].Vaults[:0]
		removed := false
		for _, v := range p[i].Vaults {
			if strings.EqualFold(strings.TrimSpace(v.Address), strings.TrimSpace(address)) {
				removed = true
				continue
			}
			kept = append(kept, v)
		}
		p[i].Vaults = kept
		if !removed {
			return p, fmt.Errorf("vault %s not in cluster %s", address, cluster)
		}
		return p, nil
	}
	return p, fmt.Errorf("%w: %s", ErrClusterNotFound, cluster)
}

// PresetsCommandConfig holds configuration for the presets subcommands.
type PresetsCommandConfig struct {
	Presets  string
	Cluster  string
	Vault    VaultPreset
	LogLevel string
}

// LoadPresetsCommand merges config file, environment variables, and flags into PresetsCommandConfig.
func LoadPresetsCommand(cfgFile string, flags *pflag.FlagSet) (PresetsCommandConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("presets", "./cluster_presets.json")
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return PresetsCommandConfig{}, err
	}
	return PresetsCommandConfig{
		Presets: v.GetString("presets"),
		Cluster: v.GetString("cluster"),
		Vault: VaultPreset{
			Optics:        strings.TrimSpace(v.GetString("optics")),
			Address:       strings.TrimSpace(v.GetString("address")),
			DefiLlamaPool: strings.TrimSpace(v.GetString("defillama-pool")),
			Field:         strings.TrimSpace(v.GetString("field")),
		},
		LogLevel: v.GetString("log-level"),
	}, nil
}
