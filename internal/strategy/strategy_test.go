package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/irm"
	"vaultScope/internal/vault"
)

var (
	usdcAddr    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	wethAddr    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	missingAddr = common.HexToAddress("0x9999999999999999999999999999999999999999")
)

func nativeYields(byPool map[string]float64) vault.YieldLookup {
	return vault.YieldLookupFunc(func(_ context.Context, pool, _ string) float64 {
		return byPool[pool]
	})
}

func usdcSnapshot() vault.Snapshot {
	return vault.Snapshot{
		Address:       usdcAddr,
		Vault:         usdcAddr,
		AssetSymbol:   "USDC",
		TotalAssets:   1_000_000,
		TotalBorrowed: 600_000,
		SupplyCap:     2_000_000,
		BorrowCap:     1_800_000,
		IRM:           &irm.Percent{KinkPercent: 80, BaseRateApy: 1, RateAtKink: 5, MaximumRate: 100},
		Collateral: []vault.CollateralLTV{
			{Collateral: wethAddr, BorrowLTV: 0.8, LiquidationLTV: 0.85},
			{Collateral: wethAddr, BorrowLTV: 0, LiquidationLTV: 0.9},
		},
	}
}

func wethSnapshot() vault.Snapshot {
	return vault.Snapshot{
		Address:     wethAddr,
		Vault:       wethAddr,
		AssetSymbol: "WETH",
		TotalAssets: 1_000,
		SupplyCap:   2_000,
		IRM:         &irm.Percent{KinkPercent: 80, RateAtKink: 4, MaximumRate: 50},
		YieldSource: vault.YieldSource{Pool: "weth", Field: "apy"},
	}
}

func buildSet(t *testing.T, snaps ...vault.Snapshot) *Set {
	t.Helper()
	lookup := nativeYields(map[string]float64{"weth": 3})
	states := make([]*vault.State, 0, len(snaps))
	for _, snap := range snaps {
		s, err := vault.FromSnapshot(context.Background(), snap, lookup)
		require.NoError(t, err, "build vault %s", snap.AssetSymbol)
		states = append(states, s)
	}
	return NewSet(states...)
}

func TestConstructSkipsZeroBorrowLTV(t *testing.T) {
	set := buildSet(t, usdcSnapshot(), wethSnapshot())
	got := Construct(set)
	require.Len(t, got, 1)
	require.Equal(t, usdcAddr, got[0].Debt)
	require.Equal(t, wethAddr, got[0].Collateral)
	require.Equal(t, "USDC → WETH", Name(set, got[0]))
}

func TestSingleSidedExcludesZeroBorrowCap(t *testing.T) {
	set := buildSet(t, usdcSnapshot(), wethSnapshot())
	got := ConstructSingleSided(set)
	require.Equal(t, []SingleSided{{Vault: usdcAddr}}, got)
}

func TestComputeScenarioYields(t *testing.T) {
	set := buildSet(t, usdcSnapshot(), wethSnapshot())
	res := Compute(set)

	require.Empty(t, res.Skipped)
	require.Len(t, res.Leveraged, 1)
	lev := res.Leveraged[0]
	require.Equal(t, "USDC → WETH", lev.Name)
	require.Equal(t, "USDC", lev.DebtAsset)
	require.Equal(t, "WETH", lev.CollateralAsset)

	// gain is the 3% native yield (WETH is unborrowed), cost is the USDC borrow APY
	require.InDelta(t, (3-4*0.8)/0.2, lev.Yields.Current, 1e-9)
	// caps scenarios price at the liquidation LTV
	require.InDelta(t, (3-52.5*0.85)/0.15, lev.Yields.CurrentAtCaps, 1e-9)
	require.InDelta(t, lev.Yields.Current, lev.Yields.End, 1e-12)
	require.InDelta(t, lev.Yields.CurrentAtCaps, lev.Yields.EndAtCaps, 1e-12)

	require.Len(t, res.SingleSided, 1)
	lend := res.SingleSided[0]
	require.Equal(t, "Lend USDC", lend.Name)
	require.Equal(t, 2.16, lend.Yields.Current)
	require.Equal(t, 42.525, lend.Yields.CurrentAtCaps)

	require.Len(t, res.BorrowRates, 1)
	require.Equal(t, ScenarioValues{Current: 4, CurrentAtCaps: 52.5, End: 4, EndAtCaps: 52.5}, res.BorrowRates[0].Rates)
}

func TestEndScenarioFollowsAssumptionsOnly(t *testing.T) {
	set := buildSet(t, usdcSnapshot(), wethSnapshot())
	usdc, _ := set.Get(usdcAddr)
	usdc.SetAssumptions(vault.Assumptions{AssumedBorrow: vault.Float(400_000)})

	res := Compute(set)
	lev := res.Leveraged[0]
	require.InDelta(t, (3-4*0.8)/0.2, lev.Yields.Current, 1e-9)
	// 40% utilization: 1 + 0.5*4 = 3
	require.InDelta(t, (3-3*0.8)/0.2, lev.Yields.End, 1e-9)
	require.Equal(t, 4.0, res.BorrowRates[0].Rates.Current)
	require.Equal(t, 3.0, res.BorrowRates[0].Rates.End)
}

func TestComputeSkipsMissingVault(t *testing.T) {
	snap := usdcSnapshot()
	snap.Collateral = append(snap.Collateral, vault.CollateralLTV{Collateral: missingAddr, BorrowLTV: 0.5, LiquidationLTV: 0.6})
	set := buildSet(t, snap, wethSnapshot())

	res := Compute(set)
	require.Len(t, res.Leveraged, 1)
	require.Len(t, res.Skipped, 1)
	require.Equal(t, "USDC → "+missingAddr.Hex(), res.Skipped[0].Strategy)
	require.True(t, IsMissingVault(res.Skipped[0].Err))

	var missing *MissingVaultError
	require.True(t, errors.As(res.Skipped[0].Err, &missing))
	require.Equal(t, "collateral", missing.Role)
	require.Equal(t, missingAddr, missing.Key)
}

func TestComputeSkipsDegenerateLTV(t *testing.T) {
	snap := usdcSnapshot()
	snap.Collateral = append(snap.Collateral, vault.CollateralLTV{Collateral: wethAddr, BorrowLTV: 0.9, LiquidationLTV: 1})
	set := buildSet(t, snap, wethSnapshot())

	res := Compute(set)
	require.Len(t, res.Leveraged, 1)
	require.Len(t, res.Skipped, 1)
	var degenerate *DegenerateLTVError
	require.True(t, errors.As(res.Skipped[0].Err, &degenerate))
	require.Equal(t, 1.0, degenerate.LTV)
}

func TestNewSetReplacesDuplicateInPlace(t *testing.T) {
	first := buildSet(t, usdcSnapshot(), wethSnapshot()).Vaults()
	again, err := vault.FromSnapshot(context.Background(), usdcSnapshot(), nil)
	require.NoError(t, err)

	set := NewSet(append(first, again)...)
	require.Equal(t, 2, set.Len())
	got, ok := set.Get(usdcAddr)
	require.True(t, ok)
	require.Same(t, again, got)
	require.Same(t, again, set.Vaults()[0])
}

func TestNameFallsBackToAddress(t *testing.T) {
	set := buildSet(t, usdcSnapshot())
	require.Equal(t, "USDC → "+wethAddr.Hex(), Name(set, Leveraged{Debt: usdcAddr, Collateral: wethAddr}))
}
