package strategy

// YieldWithLTV is the leveraged yield of a position supplying at gain and borrowing at cost
// against it up to ltv: (gain - cost*ltv) / (1 - ltv). Callers validate ltv < 1.
func YieldWithLTV(gain, cost, ltv float64) float64 {
	return (gain - cost*ltv) / (1 - ltv)
}

// LeveragedYield composes the collateral supply APY and native yield against the debt borrow APY.
func LeveragedYield(collateralSupplyApy, collateralNativeYield, debtBorrowApy, ltv float64) float64 {
	gain := collateralSupplyApy + collateralNativeYield
	return YieldWithLTV(gain, debtBorrowApy, ltv)
}

// SingleSidedYield is the supply APY plus the asset's native yield.
func SingleSidedYield(supplyApy, nativeYield float64) float64 {
	return supplyApy + nativeYield
}

// MaxLeverage is the leverage reached by looping to ltv: 1 / (1 - ltv).
func MaxLeverage(ltv float64) float64 {
	return 1 / (1 - ltv)
}

// YieldWithLeverage is the leveraged yield expressed with an explicit leverage multiple.
func YieldWithLeverage(supplyRate, borrowRate, leverage float64) float64 {
	return leverage*(supplyRate-borrowRate) + borrowRate
}
