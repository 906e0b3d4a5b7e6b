package model

// VaultInfo is the descaled lens view of a vault.
type VaultInfo struct {
	Timestamp         uint64          `json:"timestamp"`
	Vault             string          `json:"vault"`
	VaultName         string          `json:"vault_name"`
	VaultSymbol       string          `json:"vault_symbol"`
	VaultDecimals     uint8           `json:"vault_decimals"`
	Asset             string          `json:"asset"`
	AssetName         string          `json:"asset_name"`
	AssetSymbol       string          `json:"asset_symbol"`
	AssetDecimals     uint8           `json:"asset_decimals"`
	TotalCash         float64         `json:"total_cash"`
	TotalBorrowed     float64         `json:"total_borrowed"`
	TotalAssets       float64         `json:"total_assets"`
	SupplyCap         float64         `json:"supply_cap"`
	BorrowCap         float64         `json:"borrow_cap"`
	InterestRateModel string          `json:"interest_rate_model"`
	IRMType           *uint8          `json:"irm_type,omitempty"`
	IRMParams         string          `json:"irm_params,omitempty"`
	CollateralLTV     []CollateralLTV `json:"collateral_ltv"`
}

// CollateralLTV is one accepted collateral, LTVs as fractions.
type CollateralLTV struct {
	Collateral     string  `json:"collateral"`
	BorrowLTV      float64 `json:"borrow_ltv"`
	LiquidationLTV float64 `json:"liquidation_ltv"`
}

// VaultSnapshot is one fetched vault as written to the snapshot JSONL.
type VaultSnapshot struct {
	Cluster    string    `json:"cluster,omitempty"`
	Label      string    `json:"label,omitempty"`
	Address    string    `json:"address"`
	LlamaPool  string    `json:"defillama_pool,omitempty"`
	LlamaField string    `json:"field,omitempty"`
	Info       VaultInfo `json:"info"`
	// NativeYield is the DeFiLlama yield in percent resolved at fetch time, if looked up.
	NativeYield *float64 `json:"native_yield_pct,omitempty"`
	FetchedAt   string   `json:"fetched_at"`
}
