package fetcher

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/config"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// TargetsFromPreset lists the vaults of a cluster preset in preset order.
func TargetsFromPreset(cluster config.ClusterPreset) ([]Target, error) {
	targets := make([]Target, 0, len(cluster.Vaults))
	for _, v := range cluster.Vaults {
		addr := strings.TrimSpace(v.Address)
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("cluster %s: invalid address %q", cluster.Name, v.Address)
		}
		targets = append(targets, Target{
			Label:   strings.TrimSpace(v.Optics),
			Address: common.HexToAddress(addr),
			Pool:    strings.TrimSpace(v.DefiLlamaPool),
			Field:   strings.TrimSpace(v.Field),
		})
	}
	return targets, nil
}

// TargetsFromAddresses builds unlabelled targets, skipping duplicates.
func TargetsFromAddresses(inputs []string) ([]Target, error) {
	addresses, err := ParseAddresses(inputs)
	if err != nil {
		return nil, err
	}
	seen := make(map[common.Address]struct{}, len(addresses))
	targets := make([]Target, 0, len(addresses))
	for _, addr := range addresses {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		targets = append(targets, Target{Address: addr})
	}
	return targets, nil
}
