// Package export renders an analysed cluster into the export bundle and encodes it.
package export

import (
	"math"
	"sort"
	"strings"
	"time"

	"vaultScope/internal/cluster"
	"vaultScope/internal/irm"
	"vaultScope/internal/model"
	"vaultScope/internal/num"
	"vaultScope/internal/strategy"
	"vaultScope/internal/vault"
)

// VaultKey names a vault in the bundle: vault symbol, else asset symbol, else the first ten
// characters of its configured address.
func VaultKey(v *vault.State) string {
	snap := v.Snapshot()
	switch {
	case snap.VaultSymbol != "":
		return snap.VaultSymbol
	case snap.AssetSymbol != "":
		return snap.AssetSymbol
	default:
		return v.Address().Hex()[:10]
	}
}

// Build assembles the bundle of a session from its strategy result.
func Build(s *cluster.Session, res strategy.Result, now time.Time) model.Export {
	out := model.Export{
		Cluster:       s.Name,
		ExportedAt:    now.UTC().Format(time.RFC3339Nano),
		Vaults:        make(map[string]model.VaultScenarios),
		Modifications: make(map[string]map[string]model.Modification),
		BorrowRates:   []model.BorrowRateRow{},
		Strategies: model.Strategies{
			Leveraged:   []model.LeveragedRow{},
			SingleSided: []model.SingleSidedRow{},
		},
	}

	keys := uniqueKeys(s.Vaults())
	for _, v := range s.Vaults() {
		key := keys[v]
		var r rounder
		out.Vaults[key] = r.vaultScenarios(v)
		if changes := cluster.Modifications(v); len(changes) > 0 {
			mods := make(map[string]model.Modification, len(changes))
			for _, c := range changes {
				mods[c.Field] = model.Modification{From: r.round3(c.From), To: r.round3(c.To)}
			}
			out.Modifications[key] = mods
		}
		if r.nonFinite {
			out.NonFinite = append(out.NonFinite, key)
		}
	}
	sort.Strings(out.NonFinite)

	for _, b := range res.BorrowRates {
		var r rounder
		out.BorrowRates = append(out.BorrowRates, model.BorrowRateRow{
			Asset: b.Asset,
			Vault: b.Vault.Hex(),
			Rates: r.values(b.Rates),
		})
	}
	for _, l := range res.Leveraged {
		var r rounder
		row := model.LeveragedRow{
			Name:            l.Name,
			DebtAsset:       l.DebtAsset,
			CollateralAsset: l.CollateralAsset,
			BorrowLTV:       num.Round(l.BorrowLTV, 4),
			LiquidationLTV:  num.Round(l.LiquidationLTV, 4),
			MaxLeverage:     r.round3(strategy.MaxLeverage(l.BorrowLTV)),
			Yields:          r.values(l.Yields),
		}
		if r.nonFinite {
			out.Skipped = append(out.Skipped, model.SkippedStrategy{Strategy: l.Name, Reason: errNonFiniteYield})
			continue
		}
		out.Strategies.Leveraged = append(out.Strategies.Leveraged, row)
	}
	for _, ss := range res.SingleSided {
		var r rounder
		row := model.SingleSidedRow{
			Name:   ss.Name,
			Asset:  ss.Asset,
			Yields: r.values(ss.Yields),
		}
		if r.nonFinite {
			out.Skipped = append(out.Skipped, model.SkippedStrategy{Strategy: ss.Name, Reason: errNonFiniteYield})
			continue
		}
		out.Strategies.SingleSided = append(out.Strategies.SingleSided, row)
	}
	for _, sk := range res.Skipped {
		out.Skipped = append(out.Skipped, model.SkippedStrategy{Strategy: sk.Strategy, Reason: sk.Err.Error()})
	}
	return out
}

const errNonFiniteYield = "non-finite yield"

// rounder rounds values for the bundle. Infinite and NaN values, which a pathological rate
// model produces and neither encoding accepts, are written as 0 and flagged.
type rounder struct {
	nonFinite bool
}

func (r *rounder) round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		r.nonFinite = true
		return 0
	}
	return num.Round3(v)
}

// uniqueKeys assigns VaultKey to every vault, suffixing the short address when two vaults
// share a symbol.
func uniqueKeys(vaults []*vault.State) map[*vault.State]string {
	count := make(map[string]int, len(vaults))
	for _, v := range vaults {
		count[VaultKey(v)]++
	}
	keys := make(map[*vault.State]string, len(vaults))
	for _, v := range vaults {
		key := VaultKey(v)
		if count[key] > 1 {
			key = key + " " + strings.ToLower(v.Address().Hex()[:10])
		}
		keys[v] = key
	}
	return keys
}

func (r *rounder) vaultScenarios(v *vault.State) model.VaultScenarios {
	oc := v.OnChain()
	current := r.point(v.Point(vault.Current))
	current.SupplyCap = floatPtr(oc.SupplyCap)
	current.BorrowCap = floatPtr(oc.BorrowCap)
	current.NativeYieldPct = floatPtr(r.round3(oc.NativeYield))
	current.IRM = r.curve(oc.IRM)

	end := r.point(v.Point(vault.End))
	end.SupplyCap = floatPtr(v.SupplyCap())
	end.BorrowCap = floatPtr(v.BorrowCap())
	end.NativeYieldPct = floatPtr(r.round3(v.NativeYield()))
	if p, ok := v.IRM(); ok {
		end.IRM = r.curve(&p)
	} else {
		end.IRM = r.curve(nil)
	}

	return model.VaultScenarios{
		Current:       current,
		CurrentAtCaps: r.point(v.Point(vault.CurrentAtCaps)),
		End:           end,
		EndAtCaps:     r.point(v.Point(vault.EndAtCaps)),
	}
}

func (r *rounder) point(p vault.Point) model.ScenarioPoint {
	return model.ScenarioPoint{
		Supply:         p.Supply,
		Borrow:         p.Borrow,
		UtilizationPct: r.round3(p.Utilization),
		BorrowApyPct:   r.round3(p.BorrowApy),
		SupplyApyPct:   r.round3(p.SupplyApy),
	}
}

// curve reports a missing rate model as a zero curve.
func (r *rounder) curve(p *irm.Percent) *model.IRMPercent {
	if p == nil {
		return &model.IRMPercent{}
	}
	return &model.IRMPercent{
		KinkPct:     r.round3(p.KinkPercent),
		BaseRatePct: r.round3(p.BaseRateApy),
		KinkRatePct: r.round3(p.RateAtKink),
		MaxRatePct:  r.round3(p.MaximumRate),
	}
}

func (r *rounder) values(v strategy.ScenarioValues) model.ScenarioValues {
	return model.ScenarioValues{
		Current:       r.round3(v.Current),
		CurrentAtCaps: r.round3(v.CurrentAtCaps),
		End:           r.round3(v.End),
		EndAtCaps:     r.round3(v.EndAtCaps),
	}
}

func floatPtr(v float64) *float64 { return &v }
