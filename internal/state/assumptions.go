package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"vaultScope/internal/vault"
)

const assumptionKeyPrefix = "assumptions:"

// AssumptionKey is the store key of a cluster's assumption set.
func AssumptionKey(cluster string) string {
	return assumptionKeyPrefix + strings.ToLower(strings.TrimSpace(cluster))
}

// LoadAssumptions returns the overrides stored for cluster, keyed by vault label or address.
func LoadAssumptions(ctx context.Context, store Store, cluster string) (map[string]vault.Assumptions, error) {
	out := map[string]vault.Assumptions{}
	if store == nil {
		return out, nil
	}
	raw, ok, err := store.Get(ctx, AssumptionKey(cluster))
	if err != nil {
		return nil, fmt.Errorf("load assumptions: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse assumptions: %w", err)
	}
	return out, nil
}

// SaveAssumptions replaces the overrides stored for cluster. An empty set deletes the key.
func SaveAssumptions(ctx context.Context, store Store, cluster string, set map[string]vault.Assumptions) error {
	if store == nil {
		return nil
	}
	for k, a := range set {
		if a.IsZero() {
			delete(set, k)
		}
	}
	if len(set) == 0 {
		return store.Delete(ctx, AssumptionKey(cluster))
	}
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal assumptions: %w", err)
	}
	return store.Set(ctx, AssumptionKey(cluster), string(payload))
}

// Aliases reports whether a stored key names the vault being edited. A nil Aliases matches
// only the exact key.
type Aliases func(key string) bool

// SetVaultAssumptions merges a onto the overrides stored for one vault of cluster and stores
// them under vaultKey. Entries under other keys matching aliases are folded in first, in
// sorted key order, and removed.
func SetVaultAssumptions(ctx context.Context, store Store, cluster, vaultKey string, aliases Aliases, a vault.Assumptions) (vault.Assumptions, error) {
	set, err := LoadAssumptions(ctx, store, cluster)
	if err != nil {
		return vault.Assumptions{}, err
	}
	var merged vault.Assumptions
	for _, key := range aliasKeys(set, vaultKey, aliases) {
		merged = merged.Merge(set[key])
		delete(set, key)
	}
	merged = merged.Merge(set[vaultKey]).Merge(a)
	set[vaultKey] = merged
	if err := SaveAssumptions(ctx, store, cluster, set); err != nil {
		return vault.Assumptions{}, err
	}
	return merged, nil
}

// ResetVault drops the overrides stored under vaultKey and every key matching aliases,
// restoring the vault to on-chain values.
func ResetVault(ctx context.Context, store Store, cluster, vaultKey string, aliases Aliases) error {
	set, err := LoadAssumptions(ctx, store, cluster)
	if err != nil {
		return err
	}
	drop := aliasKeys(set, vaultKey, aliases)
	if _, ok := set[vaultKey]; ok {
		drop = append(drop, vaultKey)
	}
	if len(drop) == 0 {
		return nil
	}
	for _, key := range drop {
		delete(set, key)
	}
	return SaveAssumptions(ctx, store, cluster, set)
}

// aliasKeys lists the keys of set other than vaultKey that aliases matches, sorted.
func aliasKeys(set map[string]vault.Assumptions, vaultKey string, aliases Aliases) []string {
	if aliases == nil {
		return nil
	}
	var keys []string
	for key := range set {
		if key != vaultKey && aliases(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// ResetCluster drops every override of cluster.
func ResetCluster(ctx context.Context, store Store, cluster string) error {
	if store == nil {
		return nil
	}
	return store.Delete(ctx, AssumptionKey(cluster))
}
