package cluster

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/model"
	"vaultScope/internal/vault"
)

// SnapshotFromModel converts a fetched JSONL record into the vault entity's snapshot.
func SnapshotFromModel(rec model.VaultSnapshot) (vault.Snapshot, error) {
	addr, err := parseAddress(rec.Address)
	if err != nil {
		return vault.Snapshot{}, fmt.Errorf("vault address: %w", err)
	}
	info := rec.Info
	snap := vault.Snapshot{
		Address:       addr,
		VaultName:     info.VaultName,
		VaultSymbol:   info.VaultSymbol,
		VaultDecimals: info.VaultDecimals,
		AssetName:     info.AssetName,
		AssetSymbol:   info.AssetSymbol,
		AssetDecimals: info.AssetDecimals,
		TotalCash:     info.TotalCash,
		TotalAssets:   info.TotalAssets,
		TotalBorrowed: info.TotalBorrowed,
		SupplyCap:     info.SupplyCap,
		BorrowCap:     info.BorrowCap,
		IRMType:       info.IRMType,
		IRMParams:     info.IRMParams,
		YieldSource:   vault.YieldSource{Pool: rec.LlamaPool, Field: rec.LlamaField},
	}
	if strings.TrimSpace(info.Vault) != "" {
		if snap.Vault, err = parseAddress(info.Vault); err != nil {
			return vault.Snapshot{}, fmt.Errorf("lens vault: %w", err)
		}
	}
	if strings.TrimSpace(info.Asset) != "" {
		if snap.Asset, err = parseAddress(info.Asset); err != nil {
			return vault.Snapshot{}, fmt.Errorf("asset: %w", err)
		}
	}
	for _, item := range info.CollateralLTV {
		coll, err := parseAddress(item.Collateral)
		if err != nil {
			return vault.Snapshot{}, fmt.Errorf("collateral: %w", err)
		}
		snap.Collateral = append(snap.Collateral, vault.CollateralLTV{
			Collateral:     coll,
			BorrowLTV:      item.BorrowLTV,
			LiquidationLTV: item.LiquidationLTV,
		})
	}
	return snap, nil
}

func parseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}
