package vault

import "math"

// Assumptions is a partial edit of a vault's editable fields. Nil or NaN fields are left unchanged.
type Assumptions struct {
	SupplyCap     *float64      `json:"supply_cap,omitempty" yaml:"supply_cap,omitempty"`
	BorrowCap     *float64      `json:"borrow_cap,omitempty" yaml:"borrow_cap,omitempty"`
	AssumedSupply *float64      `json:"assumed_supply,omitempty" yaml:"assumed_supply,omitempty"`
	AssumedBorrow *float64      `json:"assumed_borrow,omitempty" yaml:"assumed_borrow,omitempty"`
	NativeYield   *float64      `json:"native_yield_pct,omitempty" yaml:"native_yield_pct,omitempty"`
	IRM           *IRMOverrides `json:"irm,omitempty" yaml:"irm,omitempty"`
}

// IRMOverrides replaces individual kink model percentages.
type IRMOverrides struct {
	KinkPercent *float64 `json:"kink_pct,omitempty" yaml:"kink_pct,omitempty"`
	BaseRateApy *float64 `json:"base_rate_pct,omitempty" yaml:"base_rate_pct,omitempty"`
	RateAtKink  *float64 `json:"kink_rate_pct,omitempty" yaml:"kink_rate_pct,omitempty"`
	MaximumRate *float64 `json:"max_rate_pct,omitempty" yaml:"max_rate_pct,omitempty"`
}

// Float returns a pointer to v, for building Assumptions literals.
func Float(v float64) *float64 {
	return &v
}

// IsZero reports whether the edit changes nothing.
func (a Assumptions) IsZero() bool {
	return !provided(a.SupplyCap) && !provided(a.BorrowCap) &&
		!provided(a.AssumedSupply) && !provided(a.AssumedBorrow) &&
		!provided(a.NativeYield) && a.IRM.isZero()
}

// Merge overlays other on a; fields provided by other win.
func (a Assumptions) Merge(other Assumptions) Assumptions {
	out := a
	overlay(&out.SupplyCap, other.SupplyCap)
	overlay(&out.BorrowCap, other.BorrowCap)
	overlay(&out.AssumedSupply, other.AssumedSupply)
	overlay(&out.AssumedBorrow, other.AssumedBorrow)
	overlay(&out.NativeYield, other.NativeYield)
	if !other.IRM.isZero() {
		var merged IRMOverrides
		if out.IRM != nil {
			merged = *out.IRM
		}
		overlay(&merged.KinkPercent, other.IRM.KinkPercent)
		overlay(&merged.BaseRateApy, other.IRM.BaseRateApy)
		overlay(&merged.RateAtKink, other.IRM.RateAtKink)
		overlay(&merged.MaximumRate, other.IRM.MaximumRate)
		out.IRM = &merged
	}
	return out
}

func (o *IRMOverrides) isZero() bool {
	return o == nil || (!provided(o.KinkPercent) && !provided(o.BaseRateApy) &&
		!provided(o.RateAtKink) && !provided(o.MaximumRate))
}

func provided(v *float64) bool {
	return v != nil && !math.IsNaN(*v)
}

func overlay(dst **float64, src *float64) {
	if provided(src) {
		v := *src
		*dst = &v
	}
}

func apply(dst *float64, src *float64) {
	if provided(src) {
		*dst = *src
	}
}
