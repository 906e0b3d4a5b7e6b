// Package strategy composes recomputed vaults into leveraged and single-sided strategy
// yields across the four scenarios, and sweeps the leveraged yield over utilization.
package strategy

import (
	"errors"
	"math"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/vault"
)

// Leveraged borrows from Debt against Collateral.
type Leveraged struct {
	Debt           common.Address
	Collateral     common.Address
	BorrowLTV      float64
	LiquidationLTV float64
}

// LTV returns the ratio used in a scenario: the liquidation LTV for the at-caps scenarios,
// the borrow LTV otherwise.
func (l Leveraged) LTV(sc vault.Scenario) float64 {
	if sc.AtCaps() {
		return l.LiquidationLTV
	}
	return l.BorrowLTV
}

// SingleSided lends into one borrowable vault.
type SingleSided struct {
	Vault common.Address
}

// ScenarioValues holds one number per scenario.
type ScenarioValues struct {
	Current       float64 `json:"current"`
	CurrentAtCaps float64 `json:"current_at_caps"`
	End           float64 `json:"end"`
	EndAtCaps     float64 `json:"end_at_caps"`
}

func (v ScenarioValues) Get(sc vault.Scenario) float64 {
	switch sc {
	case vault.Current:
		return v.Current
	case vault.CurrentAtCaps:
		return v.CurrentAtCaps
	case vault.End:
		return v.End
	case vault.EndAtCaps:
		return v.EndAtCaps
	default:
		return 0
	}
}

func (v *ScenarioValues) set(sc vault.Scenario, value float64) {
	switch sc {
	case vault.Current:
		v.Current = value
	case vault.CurrentAtCaps:
		v.CurrentAtCaps = value
	case vault.End:
		v.End = value
	case vault.EndAtCaps:
		v.EndAtCaps = value
	}
}

// LeveragedResult is a leveraged strategy evaluated in every scenario.
type LeveragedResult struct {
	Name            string
	DebtAsset       string
	CollateralAsset string
	Debt            common.Address
	Collateral      common.Address
	BorrowLTV       float64
	LiquidationLTV  float64
	Yields          ScenarioValues
}

// SingleSidedResult is a lending strategy evaluated in every scenario.
type SingleSidedResult struct {
	Name   string
	Asset  string
	Vault  common.Address
	Yields ScenarioValues
}

// BorrowRate is a borrowable vault's borrow APY in every scenario.
type BorrowRate struct {
	Asset string
	Vault common.Address
	Rates ScenarioValues
}

// Skipped records a strategy left out of a batch and why.
type Skipped struct {
	Strategy string
	Err      error
}

// Result is a batch evaluation. Failed strategies are listed in Skipped, never aborting the rest.
type Result struct {
	Leveraged   []LeveragedResult
	SingleSided []SingleSidedResult
	BorrowRates []BorrowRate
	Skipped     []Skipped
}

// Construct lists a leveraged strategy for every collateral item with a positive borrow LTV,
// the listing vault being the debt side.
func Construct(set *Set) []Leveraged {
	var out []Leveraged
	for _, v := range set.Vaults() {
		for _, item := range v.Collateral() {
			if !(item.BorrowLTV > 0) {
				continue
			}
			out = append(out, Leveraged{
				Debt:           v.Key(),
				Collateral:     item.Collateral,
				BorrowLTV:      item.BorrowLTV,
				LiquidationLTV: item.LiquidationLTV,
			})
		}
	}
	return out
}

// ConstructSingleSided lists a lending strategy for every vault with a positive borrow cap.
func ConstructSingleSided(set *Set) []SingleSided {
	var out []SingleSided
	for _, v := range set.Vaults() {
		if v.BorrowCap() > 0 {
			out = append(out, SingleSided{Vault: v.Key()})
		}
	}
	return out
}

// Name renders "{debt} → {collateral}", falling back to addresses for unknown vaults.
func Name(set *Set, l Leveraged) string {
	return symbolFor(set, l.Debt) + " → " + symbolFor(set, l.Collateral)
}

func symbolFor(set *Set, key common.Address) string {
	if v, ok := set.Get(key); ok {
		return v.Symbol()
	}
	return key.Hex()
}

// ValidateLTV rejects ratios the yield formula cannot price.
func ValidateLTV(name string, ltv float64) error {
	if math.IsNaN(ltv) || ltv < 0 || ltv >= 1 {
		return &DegenerateLTVError{Strategy: name, LTV: ltv}
	}
	return nil
}

// EvaluateLeveraged prices l in every scenario. Both vaults must be recomputed beforehand.
func EvaluateLeveraged(set *Set, l Leveraged) (LeveragedResult, error) {
	name := Name(set, l)
	debt, ok := set.Get(l.Debt)
	if !ok {
		return LeveragedResult{}, &MissingVaultError{Key: l.Debt, Role: "debt"}
	}
	coll, ok := set.Get(l.Collateral)
	if !ok {
		return LeveragedResult{}, &MissingVaultError{Key: l.Collateral, Role: "collateral"}
	}
	if err := ValidateLTV(name, l.BorrowLTV); err != nil {
		return LeveragedResult{}, err
	}
	if err := ValidateLTV(name, l.LiquidationLTV); err != nil {
		return LeveragedResult{}, err
	}

	res := LeveragedResult{
		Name:            name,
		DebtAsset:       debt.Symbol(),
		CollateralAsset: coll.Symbol(),
		Debt:            l.Debt,
		Collateral:      l.Collateral,
		BorrowLTV:       l.BorrowLTV,
		LiquidationLTV:  l.LiquidationLTV,
	}
	for _, sc := range vault.Scenarios {
		c := coll.Point(sc)
		d := debt.Point(sc)
		res.Yields.set(sc, LeveragedYield(c.SupplyApy, c.NativeYield, d.BorrowApy, l.LTV(sc)))
	}
	return res, nil
}

// EvaluateSingleSided prices a lending strategy in every scenario.
func EvaluateSingleSided(set *Set, s SingleSided) (SingleSidedResult, error) {
	v, ok := set.Get(s.Vault)
	if !ok {
		return SingleSidedResult{}, &MissingVaultError{Key: s.Vault, Role: "lend"}
	}
	res := SingleSidedResult{
		Name:  "Lend " + v.Symbol(),
		Asset: v.Symbol(),
		Vault: s.Vault,
	}
	for _, sc := range vault.Scenarios {
		p := v.Point(sc)
		res.Yields.set(sc, SingleSidedYield(p.SupplyApy, p.NativeYield))
	}
	return res, nil
}

// BorrowRates lists the borrow APYs of every vault with a positive borrow cap.
func BorrowRates(set *Set) []BorrowRate {
	var out []BorrowRate
	for _, v := range set.Vaults() {
		if v.BorrowCap() <= 0 {
			continue
		}
		row := BorrowRate{Asset: v.Symbol(), Vault: v.Key()}
		for _, sc := range vault.Scenarios {
			row.Rates.set(sc, v.Point(sc).BorrowApy)
		}
		out = append(out, row)
	}
	return out
}

// Compute evaluates every strategy the set supports.
func Compute(set *Set) Result {
	var res Result
	for _, l := range Construct(set) {
		r, err := EvaluateLeveraged(set, l)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Strategy: Name(set, l), Err: err})
			continue
		}
		res.Leveraged = append(res.Leveraged, r)
	}
	for _, s := range ConstructSingleSided(set) {
		r, err := EvaluateSingleSided(set, s)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Strategy: "Lend " + symbolFor(set, s.Vault), Err: err})
			continue
		}
		res.SingleSided = append(res.SingleSided, r)
	}
	res.BorrowRates = BorrowRates(set)
	return res
}

// IsMissingVault reports whether err is a MissingVaultError.
func IsMissingVault(err error) bool {
	var target *MissingVaultError
	return errors.As(err, &target)
}
