// Package vault models one lending vault: its on-chain snapshot, the editable assumptions
// layered on top of it, and the utilizations and APYs derived from both.
package vault

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/irm"
	"vaultScope/internal/num"
)

// Derived holds every field recomputed from the inputs. Utilizations and APYs are percentages.
type Derived struct {
	CurrentUtilization float64 `json:"current_utilization"`
	UtilizationAtCaps  float64 `json:"utilization_at_caps"`
	EndUtilization     float64 `json:"end_utilization"`

	CurrentBorrowApy float64 `json:"current_borrow_apy"`
	CurrentSupplyApy float64 `json:"current_supply_apy"`
	CapsBorrowApy    float64 `json:"caps_borrow_apy"`
	CapsSupplyApy    float64 `json:"caps_supply_apy"`
	EndBorrowApy     float64 `json:"end_borrow_apy"`
	EndSupplyApy     float64 `json:"end_supply_apy"`
}

// State is a vault's on-chain attributes plus editable assumptions. Derived fields are only
// written by recompute, which runs after every mutation.
type State struct {
	snapshot Snapshot
	onChain  OnChainParams

	supplyCap     float64
	borrowCap     float64
	assumedSupply float64
	assumedBorrow float64
	nativeYield   float64
	irm           *irm.Percent

	derived Derived
}

// New returns an empty vault keyed by address. ApplyOnChainSnapshot populates it.
func New(address common.Address) *State {
	return &State{snapshot: Snapshot{Address: address}}
}

// FromSnapshot builds a vault and applies snap. The returned error is the IRM decode failure,
// if any; the vault is usable either way.
func FromSnapshot(ctx context.Context, snap Snapshot, lookup YieldLookup) (*State, error) {
	s := New(snap.Address)
	err := s.ApplyOnChainSnapshot(ctx, snap, lookup)
	return s, err
}

// ApplyOnChainSnapshot replaces the vault's on-chain data, resets the assumptions to it,
// resolves the native yield and captures the on-chain params record.
//
// A params payload that fails to decode leaves the vault without an IRM and is returned as
// an error so callers can still show the rest of the vault.
func (s *State) ApplyOnChainSnapshot(ctx context.Context, snap Snapshot, lookup YieldLookup) error {
	if snap.Address == (common.Address{}) {
		snap.Address = s.snapshot.Address
	}
	snap.Collateral = append([]CollateralLTV(nil), snap.Collateral...)
	snap.IRM = clonePercent(snap.IRM)
	s.snapshot = snap

	s.supplyCap = snap.SupplyCap
	s.borrowCap = snap.BorrowCap
	s.assumedSupply = snap.TotalAssets
	s.assumedBorrow = snap.TotalBorrowed

	s.nativeYield = 0
	if lookup != nil {
		s.nativeYield = sanitize(num.Round3(lookup.NativeYield(ctx, snap.YieldSource.Pool, snap.YieldSource.Field)))
	}

	var decodeErr error
	s.irm = nil
	switch {
	case snap.IRM != nil:
		p := roundPercent(*snap.IRM)
		s.irm = &p
	default:
		p, err := irm.DecodeModel(snap.IRMType, snap.IRMParams)
		if err == nil {
			p = roundPercent(p)
			s.irm = &p
		} else if !errors.Is(err, irm.ErrUnsupportedModel) {
			decodeErr = fmt.Errorf("decode irm for %s: %w", s.Key().Hex(), err)
		}
	}

	s.recompute()

	s.onChain = OnChainParams{
		SupplyCap:     s.supplyCap,
		BorrowCap:     s.borrowCap,
		IRM:           clonePercent(s.irm),
		TotalAssets:   snap.TotalAssets,
		TotalBorrowed: snap.TotalBorrowed,
		NativeYield:   s.nativeYield,
		Derived:       s.derived,
	}
	return decodeErr
}

// SetAssumptions applies an edit. Assumed supply and borrow are clamped to [0, cap] whenever
// the matching cap is positive; the kink is clamped to [0, 100]. IRM overrides on a vault
// without an IRM start from a zero curve.
func (s *State) SetAssumptions(a Assumptions) {
	apply(&s.supplyCap, a.SupplyCap)
	apply(&s.borrowCap, a.BorrowCap)
	apply(&s.assumedSupply, a.AssumedSupply)
	apply(&s.assumedBorrow, a.AssumedBorrow)
	apply(&s.nativeYield, a.NativeYield)

	if !a.IRM.isZero() {
		var p irm.Percent
		if s.irm != nil {
			p = *s.irm
		}
		apply(&p.KinkPercent, a.IRM.KinkPercent)
		apply(&p.BaseRateApy, a.IRM.BaseRateApy)
		apply(&p.RateAtKink, a.IRM.RateAtKink)
		apply(&p.MaximumRate, a.IRM.MaximumRate)
		p.KinkPercent = clamp(p.KinkPercent, 0, 100)
		s.irm = &p
	}

	if s.supplyCap > 0 {
		s.assumedSupply = clamp(s.assumedSupply, 0, s.supplyCap)
	}
	if s.borrowCap > 0 {
		s.assumedBorrow = clamp(s.assumedBorrow, 0, s.borrowCap)
	}

	s.recompute()
}

// ResetToOnChain restores every editable field from the on-chain params record.
func (s *State) ResetToOnChain() {
	s.supplyCap = s.onChain.SupplyCap
	s.borrowCap = s.onChain.BorrowCap
	s.assumedSupply = s.onChain.TotalAssets
	s.assumedBorrow = s.onChain.TotalBorrowed
	s.nativeYield = s.onChain.NativeYield
	s.irm = clonePercent(s.onChain.IRM)
	s.recompute()
}

func (s *State) recompute() {
	var d Derived
	d.CurrentUtilization = ratioPercent(s.snapshot.TotalBorrowed, s.snapshot.TotalAssets)
	d.UtilizationAtCaps = ratioPercent(s.borrowCap, s.supplyCap)
	d.EndUtilization = ratioPercent(s.assumedBorrow, s.assumedSupply)

	if s.irm != nil {
		d.CurrentBorrowApy, d.CurrentSupplyApy = ratesAt(d.CurrentUtilization, *s.irm)
		d.CapsBorrowApy, d.CapsSupplyApy = ratesAt(d.UtilizationAtCaps, *s.irm)
		d.EndBorrowApy, d.EndSupplyApy = ratesAt(d.EndUtilization, *s.irm)
	}
	s.derived = d
}

// ratesAt converts a percentage utilization to the fraction the interpolator expects.
func ratesAt(utilizationPct float64, p irm.Percent) (float64, float64) {
	borrow, supply := irm.Rates(utilizationPct/100, p)
	return num.Round3(borrow), num.Round3(supply)
}

func ratioPercent(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	return num.Round3(numerator / denominator * 100)
}

func roundPercent(p irm.Percent) irm.Percent {
	return irm.Percent{
		KinkPercent: num.Round3(p.KinkPercent),
		BaseRateApy: num.Round3(p.BaseRateApy),
		RateAtKink:  num.Round3(p.RateAtKink),
		MaximumRate: num.Round3(p.MaximumRate),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Key identifies the vault in cross-vault lookups: the lens-reported address, else the configured one.
func (s *State) Key() common.Address {
	if s.snapshot.Vault != (common.Address{}) {
		return s.snapshot.Vault
	}
	return s.snapshot.Address
}

// Address is the configured vault address.
func (s *State) Address() common.Address { return s.snapshot.Address }

// Symbol is the asset symbol, else the vault symbol, else the vault address.
func (s *State) Symbol() string {
	switch {
	case s.snapshot.AssetSymbol != "":
		return s.snapshot.AssetSymbol
	case s.snapshot.VaultSymbol != "":
		return s.snapshot.VaultSymbol
	default:
		return s.Address().Hex()
	}
}

func (s *State) Snapshot() Snapshot {
	snap := s.snapshot
	snap.Collateral = append([]CollateralLTV(nil), snap.Collateral...)
	snap.IRM = clonePercent(snap.IRM)
	return snap
}

func (s *State) OnChain() OnChainParams { return s.onChain.clone() }

func (s *State) Collateral() []CollateralLTV {
	return append([]CollateralLTV(nil), s.snapshot.Collateral...)
}

func (s *State) TotalAssets() float64   { return s.snapshot.TotalAssets }
func (s *State) TotalBorrowed() float64 { return s.snapshot.TotalBorrowed }
func (s *State) SupplyCap() float64     { return s.supplyCap }
func (s *State) BorrowCap() float64     { return s.borrowCap }
func (s *State) AssumedSupply() float64 { return s.assumedSupply }
func (s *State) AssumedBorrow() float64 { return s.assumedBorrow }
func (s *State) NativeYield() float64   { return s.nativeYield }
func (s *State) Derived() Derived       { return s.derived }

// IRM returns the current (possibly overridden) curve.
func (s *State) IRM() (irm.Percent, bool) {
	if s.irm == nil {
		return irm.Percent{}, false
	}
	return *s.irm, true
}
