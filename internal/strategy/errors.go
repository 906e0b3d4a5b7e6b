package strategy

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// DegenerateLTVError reports an LTV outside [0, 1); the yield formula divides by 1-ltv.
type DegenerateLTVError struct {
	Strategy string
	LTV      float64
}

func (e *DegenerateLTVError) Error() string {
	return fmt.Sprintf("strategy %s: degenerate ltv %v", e.Strategy, e.LTV)
}

// MissingVaultError reports a strategy leg whose vault is not in the current set.
type MissingVaultError struct {
	Key  common.Address
	Role string
}

func (e *MissingVaultError) Error() string {
	return fmt.Sprintf("missing %s vault %s", e.Role, e.Key.Hex())
}
