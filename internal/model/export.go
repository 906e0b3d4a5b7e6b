package model

// Export is the analysis bundle of one cluster.
type Export struct {
	Cluster       string                             `json:"cluster" msgpack:"cluster"`
	ExportedAt    string                             `json:"exported_at" msgpack:"exported_at"`
	Vaults        map[string]VaultScenarios          `json:"vaults" msgpack:"vaults"`
	Modifications map[string]map[string]Modification `json:"modifications" msgpack:"modifications"`
	BorrowRates   []BorrowRateRow                    `json:"borrow_rates" msgpack:"borrow_rates"`
	Strategies    Strategies                         `json:"strategies" msgpack:"strategies"`
	Skipped       []SkippedStrategy                  `json:"skipped,omitempty" msgpack:"skipped,omitempty"`
	// NonFinite names vaults whose rate model overflowed; their infinite values are written as 0.
	NonFinite []string `json:"non_finite,omitempty" msgpack:"non_finite,omitempty"`
}

// VaultScenarios holds a vault evaluated in each scenario.
type VaultScenarios struct {
	Current       ScenarioPoint `json:"current" msgpack:"current"`
	CurrentAtCaps ScenarioPoint `json:"current_at_caps" msgpack:"current_at_caps"`
	End           ScenarioPoint `json:"end" msgpack:"end"`
	EndAtCaps     ScenarioPoint `json:"end_at_caps" msgpack:"end_at_caps"`
}

// ScenarioPoint is one vault in one scenario, percentages on a 0-100 scale. Caps, native
// yield and the rate curve are only reported for the current and end scenarios.
type ScenarioPoint struct {
	Supply         float64     `json:"supply" msgpack:"supply"`
	Borrow         float64     `json:"borrow" msgpack:"borrow"`
	SupplyCap      *float64    `json:"supply_cap,omitempty" msgpack:"supply_cap,omitempty"`
	BorrowCap      *float64    `json:"borrow_cap,omitempty" msgpack:"borrow_cap,omitempty"`
	UtilizationPct float64     `json:"utilization_pct" msgpack:"utilization_pct"`
	BorrowApyPct   float64     `json:"borrow_apy_pct" msgpack:"borrow_apy_pct"`
	SupplyApyPct   float64     `json:"supply_apy_pct" msgpack:"supply_apy_pct"`
	NativeYieldPct *float64    `json:"native_yield_pct,omitempty" msgpack:"native_yield_pct,omitempty"`
	IRM            *IRMPercent `json:"irm,omitempty" msgpack:"irm,omitempty"`
}

// IRMPercent is a kink curve in percent.
type IRMPercent struct {
	KinkPct     float64 `json:"kink_pct" msgpack:"kink_pct"`
	BaseRatePct float64 `json:"base_rate_pct" msgpack:"base_rate_pct"`
	KinkRatePct float64 `json:"kink_rate_pct" msgpack:"kink_rate_pct"`
	MaxRatePct  float64 `json:"max_rate_pct" msgpack:"max_rate_pct"`
}

// Modification is an assumed value that differs from its on-chain counterpart.
type Modification struct {
	From float64 `json:"from" msgpack:"from"`
	To   float64 `json:"to" msgpack:"to"`
}

// ScenarioValues holds one number per scenario.
type ScenarioValues struct {
	Current       float64 `json:"current" msgpack:"current"`
	CurrentAtCaps float64 `json:"current_at_caps" msgpack:"current_at_caps"`
	End           float64 `json:"end" msgpack:"end"`
	EndAtCaps     float64 `json:"end_at_caps" msgpack:"end_at_caps"`
}

// BorrowRateRow is a borrowable vault's borrow APY per scenario.
type BorrowRateRow struct {
	Asset string         `json:"asset" msgpack:"asset"`
	Vault string         `json:"vault" msgpack:"vault"`
	Rates ScenarioValues `json:"rates" msgpack:"rates"`
}

// Strategies groups the strategy rows of an export.
type Strategies struct {
	Leveraged   []LeveragedRow   `json:"leveraged" msgpack:"leveraged"`
	SingleSided []SingleSidedRow `json:"single_sided" msgpack:"single_sided"`
}

// LeveragedRow is a leveraged strategy yield per scenario.
type LeveragedRow struct {
	Name            string         `json:"name" msgpack:"name"`
	DebtAsset       string         `json:"debt_asset" msgpack:"debt_asset"`
	CollateralAsset string         `json:"collateral_asset" msgpack:"collateral_asset"`
	BorrowLTV       float64        `json:"borrow_ltv" msgpack:"borrow_ltv"`
	LiquidationLTV  float64        `json:"liquidation_ltv" msgpack:"liquidation_ltv"`
	MaxLeverage     float64        `json:"max_leverage" msgpack:"max_leverage"`
	Yields          ScenarioValues `json:"yields" msgpack:"yields"`
}

// SingleSidedRow is a lending strategy yield per scenario.
type SingleSidedRow struct {
	Name   string         `json:"name" msgpack:"name"`
	Asset  string         `json:"asset" msgpack:"asset"`
	Yields ScenarioValues `json:"yields" msgpack:"yields"`
}

// SkippedStrategy names a strategy left out of the export.
type SkippedStrategy struct {
	Strategy string `json:"strategy" msgpack:"strategy"`
	Reason   string `json:"reason" msgpack:"reason"`
}
