package vault

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/irm"
)

// Snapshot is the descaled on-chain view of a vault as delivered by the data source.
type Snapshot struct {
	// Address is the vault address as configured by the caller.
	Address common.Address
	// Vault is the vault address reported by the lens. Zero when unknown.
	Vault common.Address

	VaultName     string
	VaultSymbol   string
	VaultDecimals uint8
	Asset         common.Address
	AssetName     string
	AssetSymbol   string
	AssetDecimals uint8

	TotalCash     float64
	TotalAssets   float64
	TotalBorrowed float64
	SupplyCap     float64
	BorrowCap     float64

	// IRM, when set, is an already decoded model and takes precedence over IRMParams.
	IRM       *irm.Percent
	IRMType   *uint8
	IRMParams string

	Collateral  []CollateralLTV
	YieldSource YieldSource
}

// CollateralLTV is one accepted collateral of a vault, LTVs as fractions.
type CollateralLTV struct {
	Collateral     common.Address
	BorrowLTV      float64
	LiquidationLTV float64
}

// YieldSource identifies the external native yield of the vault asset.
type YieldSource struct {
	Pool  string
	Field string
}

// YieldLookup resolves a native yield percentage. Implementations return 0 on any failure.
type YieldLookup interface {
	NativeYield(ctx context.Context, pool, field string) float64
}

// YieldLookupFunc adapts a function to YieldLookup.
type YieldLookupFunc func(ctx context.Context, pool, field string) float64

func (f YieldLookupFunc) NativeYield(ctx context.Context, pool, field string) float64 {
	return f(ctx, pool, field)
}

// OnChainParams is the immutable record captured when a snapshot is applied. Reset restores
// the editable fields from it; the "current" scenarios read their values from it.
type OnChainParams struct {
	SupplyCap     float64
	BorrowCap     float64
	IRM           *irm.Percent
	TotalAssets   float64
	TotalBorrowed float64
	NativeYield   float64
	Derived       Derived
}

func (p OnChainParams) clone() OnChainParams {
	p.IRM = clonePercent(p.IRM)
	return p
}

func clonePercent(p *irm.Percent) *irm.Percent {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
