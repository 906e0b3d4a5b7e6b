// Package cluster coordinates the vaults of one cluster: it builds their states from fetched
// snapshots, layers assumption sets on top and evaluates the strategies once every vault is
// recomputed.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultScope/internal/model"
	"vaultScope/internal/strategy"
	"vaultScope/internal/vault"
)

// ErrVaultNotFound is returned when a key matches no vault of the session.
var ErrVaultNotFound = errors.New("vault not found")

// Observer is told about vaults whose rate model could not be decoded.
type Observer interface {
	ObserveDecodeFailure(cluster string)
}

// VaultError is a vault that could not be loaded, or was loaded without its rate model.
type VaultError struct {
	Address common.Address
	Label   string
	// Partial is set when the vault was kept without its rate model.
	Partial bool
	Err     error
}

func (e VaultError) Error() string {
	return fmt.Sprintf("vault %s: %v", e.Address.Hex(), e.Err)
}

// Options configures Build.
type Options struct {
	// Yields resolves the native yield of vaults without a recorded value. Nil means 0.
	Yields   vault.YieldLookup
	Observer Observer
	Logger   *zap.Logger
}

// Session is one cluster's vaults and their strategy set.
type Session struct {
	Name string

	states   []*vault.State
	labels   map[common.Address]string
	set      *strategy.Set
	failures []VaultError
}

// Build creates a vault state per record. A record that cannot be converted is recorded as a
// failure and left out; a rate model that cannot be decoded leaves the vault without one.
func Build(ctx context.Context, name string, recs []model.VaultSnapshot, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{Name: name, labels: make(map[common.Address]string)}
	for _, rec := range recs {
		snap, err := SnapshotFromModel(rec)
		if err != nil {
			logger.Warn("skip vault", zap.String("vault", rec.Address), zap.Error(err))
			s.failures = append(s.failures, VaultError{Address: common.HexToAddress(rec.Address), Label: rec.Label, Err: err})
			continue
		}
		st, err := vault.FromSnapshot(ctx, snap, recordedYield(rec, opts.Yields))
		if err != nil {
			logger.Warn("vault loaded without rate model", zap.String("vault", snap.Address.Hex()), zap.Error(err))
			s.failures = append(s.failures, VaultError{Address: snap.Address, Label: rec.Label, Partial: true, Err: err})
			if opts.Observer != nil {
				opts.Observer.ObserveDecodeFailure(name)
			}
		}
		s.states = append(s.states, st)
		if rec.Label != "" {
			s.labels[st.Address()] = rec.Label
		}
	}
	s.set = strategy.NewSet(s.states...)
	return s
}

// recordedYield prefers the native yield captured at fetch time over a live lookup.
func recordedYield(rec model.VaultSnapshot, fallback vault.YieldLookup) vault.YieldLookup {
	if rec.NativeYield != nil {
		v := *rec.NativeYield
		return vault.YieldLookupFunc(func(context.Context, string, string) float64 { return v })
	}
	return fallback
}

// Vaults returns the vaults in record order.
func (s *Session) Vaults() []*vault.State { return append([]*vault.State(nil), s.states...) }

// Set returns the strategy set over the session's vaults.
func (s *Session) Set() *strategy.Set { return s.set }

// Failures lists the vaults that were skipped or loaded without a rate model.
func (s *Session) Failures() []VaultError { return append([]VaultError(nil), s.failures...) }

// Label returns the optics label a vault was configured with.
func (s *Session) Label(v *vault.State) string { return s.labels[v.Address()] }

// Resolve finds a vault by configured or lens address, optics label, asset symbol or vault
// symbol, all case-insensitive.
func (s *Session) Resolve(key string) (*vault.State, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrVaultNotFound)
	}
	if common.IsHexAddress(key) {
		addr := common.HexToAddress(key)
		for _, v := range s.states {
			if v.Address() == addr || v.Key() == addr {
				return v, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, key)
	}
	for _, match := range []func(*vault.State) string{
		func(v *vault.State) string { return s.labels[v.Address()] },
		func(v *vault.State) string { return v.Snapshot().AssetSymbol },
		func(v *vault.State) string { return v.Snapshot().VaultSymbol },
	} {
		for _, v := range s.states {
			if strings.EqualFold(match(v), key) {
				return v, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, key)
}

// ApplyAssumptions edits every vault named in set. Keys naming the same vault are merged
// first, labels and symbols in case-insensitive order and addresses last, so an address entry
// wins a conflicting field; each vault then receives one edit. Unknown keys are reported
// together after the known ones have been applied.
func (s *Session) ApplyAssumptions(set map[string]vault.Assumptions) error {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return assumptionKeyLess(keys[i], keys[j]) })

	var errs []error
	merged := make(map[*vault.State]vault.Assumptions, len(keys))
	for _, key := range keys {
		v, err := s.Resolve(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		merged[v] = merged[v].Merge(set[key])
	}
	for _, v := range s.states {
		if a, ok := merged[v]; ok {
			v.SetAssumptions(a)
		}
	}
	return errors.Join(errs...)
}

// Aliases reports whether key resolves to the same vault as target.
func (s *Session) Aliases(target *vault.State, key string) bool {
	v, err := s.Resolve(key)
	return err == nil && v == target
}

func assumptionKeyLess(a, b string) bool {
	aAddr := common.IsHexAddress(strings.TrimSpace(a))
	bAddr := common.IsHexAddress(strings.TrimSpace(b))
	if aAddr != bAddr {
		return bAddr
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

// Reset restores one vault to its on-chain values.
func (s *Session) Reset(key string) error {
	v, err := s.Resolve(key)
	if err != nil {
		return err
	}
	v.ResetToOnChain()
	return nil
}

// ResetAll restores every vault to its on-chain values.
func (s *Session) ResetAll() {
	for _, v := range s.states {
		v.ResetToOnChain()
	}
}

// Analyze evaluates every strategy over the vaults as currently recomputed.
func (s *Session) Analyze() strategy.Result {
	return strategy.Compute(s.set)
}

// ModificationTolerance is the smallest difference reported as a modification.
const ModificationTolerance = 1e-6

// Change is an editable field whose live value differs from the on-chain record.
type Change struct {
	Field string
	From  float64
	To    float64
}

// Modifications lists the editable fields of v that differ from the on-chain record, in a
// fixed field order. A missing rate model compares as a zero curve.
func Modifications(v *vault.State) []Change {
	oc := v.OnChain()
	var ocIRM, liveIRM [4]float64
	if oc.IRM != nil {
		ocIRM = [4]float64{oc.IRM.KinkPercent, oc.IRM.BaseRateApy, oc.IRM.RateAtKink, oc.IRM.MaximumRate}
	}
	if p, ok := v.IRM(); ok {
		liveIRM = [4]float64{p.KinkPercent, p.BaseRateApy, p.RateAtKink, p.MaximumRate}
	}

	candidates := []Change{
		{Field: "supply_cap", From: oc.SupplyCap, To: v.SupplyCap()},
		{Field: "borrow_cap", From: oc.BorrowCap, To: v.BorrowCap()},
		{Field: "assumed_supply", From: oc.TotalAssets, To: v.AssumedSupply()},
		{Field: "assumed_borrow", From: oc.TotalBorrowed, To: v.AssumedBorrow()},
		{Field: "kink_pct", From: ocIRM[0], To: liveIRM[0]},
		{Field: "base_rate_pct", From: ocIRM[1], To: liveIRM[1]},
		{Field: "kink_rate_pct", From: ocIRM[2], To: liveIRM[2]},
		{Field: "max_rate_pct", From: ocIRM[3], To: liveIRM[3]},
		{Field: "native_yield_pct", From: oc.NativeYield, To: v.NativeYield()},
	}
	var out []Change
	for _, c := range candidates {
		if math.Abs(c.To-c.From) > ModificationTolerance {
			out = append(out, c)
		}
	}
	return out
}
