package postgres

import (
	"testing"

	"vaultScope/internal/model"
)

func TestVaultScenarioRows(t *testing.T) {
	native := 3.0
	export := model.Export{
		Vaults: map[string]model.VaultScenarios{
			"eWETH-1": {Current: model.ScenarioPoint{UtilizationPct: 10, NativeYieldPct: &native}},
			"eUSDC-1": {
				Current:       model.ScenarioPoint{Supply: 1000, Borrow: 600, UtilizationPct: 60, BorrowApyPct: 4, SupplyApyPct: 2.16},
				CurrentAtCaps: model.ScenarioPoint{UtilizationPct: 90, BorrowApyPct: 52.5},
			},
		},
	}

	rows := VaultScenarioRows(export)
	if len(rows) != 8 {
		t.Fatalf("expected 8 rows, got %d", len(rows))
	}
	if rows[0].Vault != "eUSDC-1" || rows[0].Scenario != "current" || rows[0].BorrowApyPct != 4 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Scenario != "current_at_caps" || rows[1].BorrowApyPct != 52.5 {
		t.Fatalf("unexpected caps row: %+v", rows[1])
	}
	if rows[4].Vault != "eWETH-1" || rows[4].NativeYieldPct == nil || *rows[4].NativeYieldPct != 3 {
		t.Fatalf("unexpected weth row: %+v", rows[4])
	}
}

func TestStrategyYieldRows(t *testing.T) {
	export := model.Export{
		BorrowRates: []model.BorrowRateRow{{Asset: "USDC", Rates: model.ScenarioValues{Current: 4}}},
		Strategies: model.Strategies{
			Leveraged:   []model.LeveragedRow{{Name: "USDC → WETH", Yields: model.ScenarioValues{Current: -1, EndAtCaps: 2}}},
			SingleSided: []model.SingleSidedRow{{Name: "Lend USDC", Yields: model.ScenarioValues{End: 2.16}}},
		},
	}

	rows := StrategyYieldRows(export)
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(rows))
	}
	if rows[0].Kind != "leveraged" || rows[0].YieldPct != -1 || rows[3].Scenario != "end_at_caps" || rows[3].YieldPct != 2 {
		t.Fatalf("unexpected leveraged rows: %+v", rows[:4])
	}
	if rows[6].Kind != "single_sided" || rows[6].YieldPct != 2.16 {
		t.Fatalf("unexpected single sided row: %+v", rows[6])
	}
	if rows[8].Kind != "borrow_rate" || rows[8].Strategy != "USDC" || rows[8].YieldPct != 4 {
		t.Fatalf("unexpected borrow rate row: %+v", rows[8])
	}
}
