package cluster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/model"
	"vaultScope/internal/vault"
)

const (
	usdcHex = "0x1111111111111111111111111111111111111111"
	wethHex = "0x2222222222222222222222222222222222222222"
	daiHex  = "0x3333333333333333333333333333333333333333"
)

func kinkParams(base, slope1, slope2, kink uint64) string {
	var b strings.Builder
	b.WriteString("0x")
	for _, w := range []uint64{base, slope1, slope2, kink} {
		fmt.Fprintf(&b, "%064x", w)
	}
	return b.String()
}

func kinkType() *uint8 {
	t := uint8(1)
	return &t
}

func records() []model.VaultSnapshot {
	yield := 2.5
	return []model.VaultSnapshot{
		{
			Label:   "USDC Prime",
			Address: usdcHex,
			Info: model.VaultInfo{
				Vault:         usdcHex,
				VaultSymbol:   "eUSDC-1",
				AssetSymbol:   "USDC",
				TotalAssets:   1_000_000,
				TotalBorrowed: 600_000,
				SupplyCap:     2_000_000,
				BorrowCap:     1_800_000,
				IRMType:       kinkType(),
				IRMParams:     kinkParams(0, 500_000_000, 40_000_000_000, 3435973836),
				CollateralLTV: []model.CollateralLTV{{Collateral: wethHex, BorrowLTV: 0.8, LiquidationLTV: 0.85}},
			},
		},
		{
			Label:      "WETH",
			Address:    wethHex,
			LlamaPool:  "pool-weth",
			LlamaField: "apy",
			Info: model.VaultInfo{
				Vault:         wethHex,
				AssetSymbol:   "WETH",
				TotalAssets:   1_000,
				TotalBorrowed: 100,
				SupplyCap:     2_000,
				IRMParams:     kinkParams(0, 400_000_000, 30_000_000_000, 3435973836),
			},
			NativeYield: &yield,
		},
	}
}

type decodeCounter struct{ n int }

func (d *decodeCounter) ObserveDecodeFailure(string) { d.n++ }

func TestSnapshotFromModel(t *testing.T) {
	snap, err := SnapshotFromModel(records()[0])
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(usdcHex), snap.Address)
	require.Equal(t, common.HexToAddress(usdcHex), snap.Vault)
	require.Len(t, snap.Collateral, 1)
	require.Equal(t, common.HexToAddress(wethHex), snap.Collateral[0].Collateral)
	require.Equal(t, uint8(1), *snap.IRMType)

	bad := records()[0]
	bad.Info.CollateralLTV[0].Collateral = "0xnope"
	_, err = SnapshotFromModel(bad)
	require.Error(t, err)
}

func TestBuildUsesRecordedNativeYield(t *testing.T) {
	calls := 0
	lookup := vault.YieldLookupFunc(func(context.Context, string, string) float64 {
		calls++
		return 9
	})
	s := Build(context.Background(), "Prime", records(), Options{Yields: lookup})
	require.Len(t, s.Vaults(), 2)
	require.Empty(t, s.Failures())

	weth, err := s.Resolve("weth")
	require.NoError(t, err)
	require.Equal(t, 2.5, weth.NativeYield())
	// USDC has no pool configured; the lookup is still asked and answers 9.
	usdc, err := s.Resolve("USDC Prime")
	require.NoError(t, err)
	require.Equal(t, 9.0, usdc.NativeYield())
	require.Equal(t, 1, calls)

	_, ok := usdc.IRM()
	require.True(t, ok)
	_, ok = weth.IRM()
	require.True(t, ok)
}

func TestBuildIsolatesFailures(t *testing.T) {
	recs := records()
	recs = append(recs,
		model.VaultSnapshot{Address: "not-an-address"},
		model.VaultSnapshot{Address: daiHex, Info: model.VaultInfo{AssetSymbol: "DAI", IRMType: kinkType(), IRMParams: "0x1234"}},
	)
	obs := &decodeCounter{}
	s := Build(context.Background(), "Prime", recs, Options{Observer: obs})

	require.Len(t, s.Vaults(), 3)
	failures := s.Failures()
	require.Len(t, failures, 2)
	require.False(t, failures[0].Partial)
	require.True(t, failures[1].Partial)
	require.Equal(t, 1, obs.n)

	dai, err := s.Resolve(daiHex)
	require.NoError(t, err)
	_, ok := dai.IRM()
	require.False(t, ok)
	require.Zero(t, dai.Derived().CurrentBorrowApy)
}

func TestResolve(t *testing.T) {
	s := Build(context.Background(), "Prime", records(), Options{})

	for _, key := range []string{usdcHex, strings.ToUpper(usdcHex[2:]), "usdc prime", "USDC", "eusdc-1"} {
		v, err := s.Resolve(key)
		require.NoError(t, err, key)
		require.Equal(t, common.HexToAddress(usdcHex), v.Address(), key)
	}
	_, err := s.Resolve("DAI")
	require.True(t, errors.Is(err, ErrVaultNotFound))
	_, err = s.Resolve(daiHex)
	require.True(t, errors.Is(err, ErrVaultNotFound))
}

func TestApplyAssumptionsAndModifications(t *testing.T) {
	s := Build(context.Background(), "Prime", records(), Options{})
	usdc, err := s.Resolve("USDC")
	require.NoError(t, err)
	before := s.Analyze()
	require.Len(t, before.Leveraged, 1)

	err = s.ApplyAssumptions(map[string]vault.Assumptions{
		"USDC": {AssumedBorrow: vault.Float(1_500_000), AssumedSupply: vault.Float(1_600_000)},
		"DAI":  {SupplyCap: vault.Float(1)},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrVaultNotFound))

	require.Equal(t, 1_500_000.0, usdc.AssumedBorrow())
	changes := Modifications(usdc)
	require.Equal(t, []Change{
		{Field: "assumed_supply", From: 1_000_000, To: 1_600_000},
		{Field: "assumed_borrow", From: 600_000, To: 1_500_000},
	}, changes)

	after := s.Analyze()
	require.Len(t, after.Leveraged, 1)
	require.Equal(t, before.Leveraged[0].Yields.Current, after.Leveraged[0].Yields.Current)
	require.Less(t, after.Leveraged[0].Yields.End, before.Leveraged[0].Yields.End)

	require.NoError(t, s.Reset("USDC"))
	require.Empty(t, Modifications(usdc))

	require.NoError(t, s.ApplyAssumptions(map[string]vault.Assumptions{"WETH": {NativeYield: vault.Float(4)}}))
	weth, err := s.Resolve("WETH")
	require.NoError(t, err)
	require.Equal(t, []Change{{Field: "native_yield_pct", From: 2.5, To: 4}}, Modifications(weth))
	s.ResetAll()
	require.Empty(t, Modifications(weth))
}

func TestApplyAssumptionsMergesAliasesInFixedOrder(t *testing.T) {
	set := map[string]vault.Assumptions{
		"USDC":       {SupplyCap: vault.Float(500_000), BorrowCap: vault.Float(100_000)},
		"usdc prime": {SupplyCap: vault.Float(700_000)},
		usdcHex:      {SupplyCap: vault.Float(900_000)},
		"eUSDC-1":    {AssumedSupply: vault.Float(800_000)},
	}
	for i := 0; i < 50; i++ {
		s := Build(context.Background(), "Prime", records(), Options{})
		require.NoError(t, s.ApplyAssumptions(set))
		usdc, err := s.Resolve(usdcHex)
		require.NoError(t, err)
		require.Equal(t, 900_000.0, usdc.SupplyCap())
		require.Equal(t, 100_000.0, usdc.BorrowCap())
		// one edit: the supply is clamped against the final cap only.
		require.Equal(t, 800_000.0, usdc.AssumedSupply())
		require.Equal(t, 100_000.0, usdc.AssumedBorrow())
	}
}

func TestAliases(t *testing.T) {
	s := Build(context.Background(), "Prime", records(), Options{})
	usdc, err := s.Resolve(usdcHex)
	require.NoError(t, err)
	require.True(t, s.Aliases(usdc, "usdc prime"))
	require.True(t, s.Aliases(usdc, "eusdc-1"))
	require.True(t, s.Aliases(usdc, strings.ToUpper(usdcHex[2:])))
	require.False(t, s.Aliases(usdc, "WETH"))
	require.False(t, s.Aliases(usdc, "DAI"))
}

func TestModificationsIRMOverrideFromZeroCurve(t *testing.T) {
	recs := []model.VaultSnapshot{{Address: daiHex, Info: model.VaultInfo{AssetSymbol: "DAI"}}}
	s := Build(context.Background(), "Prime", recs, Options{})
	dai, err := s.Resolve("DAI")
	require.NoError(t, err)
	dai.SetAssumptions(vault.Assumptions{IRM: &vault.IRMOverrides{MaximumRate: vault.Float(40)}})
	require.Equal(t, []Change{{Field: "max_rate_pct", From: 0, To: 40}}, Modifications(dai))
}
