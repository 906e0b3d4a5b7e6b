package irm

// SupplySpread is the share of borrow interest passed to suppliers (10% reserve factor).
const SupplySpread = 0.9

// Rates evaluates the kink curve at a utilization fraction. The utilization is clamped
// to [0,1]; p carries percentages and the returned rates use the same units.
func Rates(utilization float64, p Percent) (borrowRate, supplyRate float64) {
	if utilization < 0 {
		utilization = 0
	}
	if utilization > 1 {
		utilization = 1
	}

	kink := p.KinkPercent / 100
	base := p.BaseRateApy
	rateAtKink := p.RateAtKink

	if utilization <= kink {
		if kink > 0 {
			slope := (rateAtKink - base) / kink
			borrowRate = base + slope*utilization
		} else {
			borrowRate = base
		}
	} else {
		if kink < 1 {
			slope := (p.MaximumRate - rateAtKink) / (1 - kink)
			borrowRate = rateAtKink + slope*(utilization-kink)
		} else {
			borrowRate = rateAtKink
		}
	}

	supplyRate = utilization * SupplySpread * borrowRate
	return borrowRate, supplyRate
}

// BorrowRate is Rates without the supply leg.
func BorrowRate(utilization float64, p Percent) float64 {
	borrow, _ := Rates(utilization, p)
	return borrow
}

// SupplyRate is Rates without the borrow leg.
func SupplyRate(utilization float64, p Percent) float64 {
	_, supply := Rates(utilization, p)
	return supply
}
