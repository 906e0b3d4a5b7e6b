package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"vaultScope/internal/vault"
)

// AssumptionFile is a yaml file of per-vault overrides, keyed by vault address or optics label.
type AssumptionFile struct {
	Vaults map[string]vault.Assumptions `yaml:"vaults"`
}

// LoadAssumptions reads an assumption file. An empty path returns no overrides.
func LoadAssumptions(path string) (map[string]vault.Assumptions, error) {
	if path == "" {
		return map[string]vault.Assumptions{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assumptions: %w", err)
	}
	var file AssumptionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse assumptions: %w", err)
	}
	if file.Vaults == nil {
		file.Vaults = map[string]vault.Assumptions{}
	}
	return file.Vaults, nil
}
