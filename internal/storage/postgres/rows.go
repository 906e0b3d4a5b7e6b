package postgres

import (
	"sort"

	"vaultScope/internal/model"
)

var scenarioNames = []string{"current", "current_at_caps", "end", "end_at_caps"}

// VaultScenarioRows flattens the vaults of an export into one row per vault and scenario,
// ordered by vault then scenario.
func VaultScenarioRows(export model.Export) []VaultScenarioRow {
	keys := make([]string, 0, len(export.Vaults))
	for k := range export.Vaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]VaultScenarioRow, 0, len(keys)*len(scenarioNames))
	for _, k := range keys {
		v := export.Vaults[k]
		points := []model.ScenarioPoint{v.Current, v.CurrentAtCaps, v.End, v.EndAtCaps}
		for i, p := range points {
			rows = append(rows, VaultScenarioRow{
				Vault:          k,
				Scenario:       scenarioNames[i],
				Supply:         p.Supply,
				Borrow:         p.Borrow,
				UtilizationPct: p.UtilizationPct,
				BorrowApyPct:   p.BorrowApyPct,
				SupplyApyPct:   p.SupplyApyPct,
				NativeYieldPct: p.NativeYieldPct,
			})
		}
	}
	return rows
}

// StrategyYieldRows flattens strategies and borrow rates into one row per scenario.
func StrategyYieldRows(export model.Export) []StrategyYieldRow {
	var rows []StrategyYieldRow
	add := func(name, kind string, v model.ScenarioValues) {
		values := []float64{v.Current, v.CurrentAtCaps, v.End, v.EndAtCaps}
		for i, y := range values {
			rows = append(rows, StrategyYieldRow{Strategy: name, Kind: kind, Scenario: scenarioNames[i], YieldPct: y})
		}
	}
	for _, l := range export.Strategies.Leveraged {
		add(l.Name, "leveraged", l.Yields)
	}
	for _, s := range export.Strategies.SingleSided {
		add(s.Name, "single_sided", s.Yields)
	}
	for _, b := range export.BorrowRates {
		add(b.Asset, "borrow_rate", b.Rates)
	}
	return rows
}
