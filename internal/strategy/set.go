package strategy

import (
	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/vault"
)

// Set is a read-only, ordered lookup of recomputed vaults keyed by vault address.
type Set struct {
	order []*vault.State
	byKey map[common.Address]*vault.State
}

// NewSet indexes vaults by Key. A later vault with the same key replaces the earlier one
// in place.
func NewSet(vaults ...*vault.State) *Set {
	s := &Set{byKey: make(map[common.Address]*vault.State, len(vaults))}
	index := make(map[common.Address]int, len(vaults))
	for _, v := range vaults {
		if v == nil {
			continue
		}
		key := v.Key()
		if i, ok := index[key]; ok {
			s.order[i] = v
		} else {
			index[key] = len(s.order)
			s.order = append(s.order, v)
		}
		s.byKey[key] = v
	}
	return s
}

// Get returns the vault for key.
func (s *Set) Get(key common.Address) (*vault.State, bool) {
	v, ok := s.byKey[key]
	return v, ok
}

// Vaults returns the vaults in insertion order.
func (s *Set) Vaults() []*vault.State {
	return append([]*vault.State(nil), s.order...)
}

func (s *Set) Len() int { return len(s.order) }
