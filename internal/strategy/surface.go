package strategy

import (
	"vaultScope/internal/irm"
	"vaultScope/internal/vault"
)

// GridSteps is the number of points on each utilization axis.
const GridSteps = 101

// Surface evaluates a leveraged strategy at hypothetical utilizations, straight from the
// two rate curves rather than the vaults' cached scenario APYs.
type Surface struct {
	Name                  string
	DebtIRM               irm.Percent
	CollateralIRM         irm.Percent
	CollateralNativeYield float64
	LTV                   float64
}

// GridPoint is one surface evaluation. Utilizations are fractions in [0,1], Yield a percentage.
type GridPoint struct {
	CollateralUtilization float64 `json:"collateral_util"`
	DebtUtilization       float64 `json:"debt_util"`
	Yield                 float64 `json:"yield"`
}

// Heatmap is the full grid. Z is indexed [debt][collateral].
type Heatmap struct {
	Axis []float64   `json:"axis"`
	Z    [][]float64 `json:"z"`
}

// Marker places a scenario on the surface, utilizations in percent.
type Marker struct {
	Scenario              string  `json:"scenario"`
	CollateralUtilization float64 `json:"collateral_util_pct"`
	DebtUtilization       float64 `json:"debt_util_pct"`
}

// NewSurface builds the surface for l at its borrow LTV.
func NewSurface(set *Set, l Leveraged) (Surface, error) {
	name := Name(set, l)
	debt, ok := set.Get(l.Debt)
	if !ok {
		return Surface{}, &MissingVaultError{Key: l.Debt, Role: "debt"}
	}
	coll, ok := set.Get(l.Collateral)
	if !ok {
		return Surface{}, &MissingVaultError{Key: l.Collateral, Role: "collateral"}
	}
	if err := ValidateLTV(name, l.BorrowLTV); err != nil {
		return Surface{}, err
	}
	debtIRM, _ := debt.IRM()
	collIRM, _ := coll.IRM()
	return Surface{
		Name:                  name,
		DebtIRM:               debtIRM,
		CollateralIRM:         collIRM,
		CollateralNativeYield: coll.NativeYield(),
		LTV:                   l.BorrowLTV,
	}, nil
}

// YieldAt is the leveraged yield with both utilizations given as fractions.
func (s Surface) YieldAt(debtUtilization, collateralUtilization float64) float64 {
	_, collSupply := irm.Rates(collateralUtilization, s.CollateralIRM)
	debtBorrow := irm.BorrowRate(debtUtilization, s.DebtIRM)
	return LeveragedYield(collSupply, s.CollateralNativeYield, debtBorrow, s.LTV)
}

// Axis returns steps evenly spaced values from 0 to 1 inclusive.
func Axis(steps int) []float64 {
	if steps < 2 {
		return []float64{0}
	}
	out := make([]float64, steps)
	last := float64(steps - 1)
	for i := range out {
		out[i] = float64(i) / last
	}
	return out
}

// Heatmap evaluates the full GridSteps x GridSteps grid.
func (s Surface) Heatmap() Heatmap {
	axis := Axis(GridSteps)
	z := make([][]float64, len(axis))
	for d, du := range axis {
		row := make([]float64, len(axis))
		for c, cu := range axis {
			row[c] = s.YieldAt(du, cu)
		}
		z[d] = row
	}
	return Heatmap{Axis: axis, Z: z}
}

// Points flattens the heatmap into (collateral, debt, yield) triples, debt-major.
func (h Heatmap) Points() []GridPoint {
	out := make([]GridPoint, 0, len(h.Axis)*len(h.Axis))
	for d, row := range h.Z {
		for c, y := range row {
			out = append(out, GridPoint{
				CollateralUtilization: h.Axis[c],
				DebtUtilization:       h.Axis[d],
				Yield:                 y,
			})
		}
	}
	return out
}

// CollateralSweep varies the collateral utilization with the debt utilization fixed.
func (s Surface) CollateralSweep(debtUtilization float64) []GridPoint {
	axis := Axis(GridSteps)
	out := make([]GridPoint, len(axis))
	for i, cu := range axis {
		out[i] = GridPoint{CollateralUtilization: cu, DebtUtilization: debtUtilization, Yield: s.YieldAt(debtUtilization, cu)}
	}
	return out
}

// DebtSweep varies the debt utilization with the collateral utilization fixed.
func (s Surface) DebtSweep(collateralUtilization float64) []GridPoint {
	axis := Axis(GridSteps)
	out := make([]GridPoint, len(axis))
	for i, du := range axis {
		out[i] = GridPoint{CollateralUtilization: collateralUtilization, DebtUtilization: du, Yield: s.YieldAt(du, collateralUtilization)}
	}
	return out
}

// Markers places the four scenarios of the pair on the surface.
func Markers(set *Set, l Leveraged) ([]Marker, error) {
	debt, ok := set.Get(l.Debt)
	if !ok {
		return nil, &MissingVaultError{Key: l.Debt, Role: "debt"}
	}
	coll, ok := set.Get(l.Collateral)
	if !ok {
		return nil, &MissingVaultError{Key: l.Collateral, Role: "collateral"}
	}
	out := make([]Marker, 0, len(vault.Scenarios))
	for _, sc := range vault.Scenarios {
		out = append(out, Marker{
			Scenario:              sc.String(),
			CollateralUtilization: coll.Point(sc).Utilization,
			DebtUtilization:       debt.Point(sc).Utilization,
		})
	}
	return out, nil
}
