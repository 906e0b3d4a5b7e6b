package vault

// Scenario selects one of the four economic states a vault is evaluated in.
type Scenario int

const (
	// Current is the live on-chain state.
	Current Scenario = iota
	// CurrentAtCaps is the on-chain state with both caps fully used.
	CurrentAtCaps
	// End is the assumed state.
	End
	// EndAtCaps is the assumed state with the assumed caps fully used.
	EndAtCaps
)

// Scenarios lists every scenario in presentation order.
var Scenarios = []Scenario{Current, CurrentAtCaps, End, EndAtCaps}

func (sc Scenario) String() string {
	switch sc {
	case Current:
		return "current"
	case CurrentAtCaps:
		return "current_at_caps"
	case End:
		return "end"
	case EndAtCaps:
		return "end_at_caps"
	default:
		return "unknown"
	}
}

// AtCaps reports whether the scenario is a stressed, caps-utilized one.
func (sc Scenario) AtCaps() bool {
	return sc == CurrentAtCaps || sc == EndAtCaps
}

// Point is a vault evaluated in one scenario.
type Point struct {
	Supply      float64
	Borrow      float64
	Utilization float64
	BorrowApy   float64
	SupplyApy   float64
	NativeYield float64
}

// Point returns the scenario values. The current scenarios read the on-chain params record,
// the end scenarios read the assumed state.
func (s *State) Point(sc Scenario) Point {
	oc := s.onChain
	switch sc {
	case Current:
		return Point{
			Supply:      oc.TotalAssets,
			Borrow:      oc.TotalBorrowed,
			Utilization: oc.Derived.CurrentUtilization,
			BorrowApy:   oc.Derived.CurrentBorrowApy,
			SupplyApy:   oc.Derived.CurrentSupplyApy,
			NativeYield: oc.NativeYield,
		}
	case CurrentAtCaps:
		return Point{
			Supply:      oc.SupplyCap,
			Borrow:      oc.BorrowCap,
			Utilization: oc.Derived.UtilizationAtCaps,
			BorrowApy:   oc.Derived.CapsBorrowApy,
			SupplyApy:   oc.Derived.CapsSupplyApy,
			NativeYield: oc.NativeYield,
		}
	case End:
		return Point{
			Supply:      s.assumedSupply,
			Borrow:      s.assumedBorrow,
			Utilization: s.derived.EndUtilization,
			BorrowApy:   s.derived.EndBorrowApy,
			SupplyApy:   s.derived.EndSupplyApy,
			NativeYield: s.nativeYield,
		}
	case EndAtCaps:
		return Point{
			Supply:      s.supplyCap,
			Borrow:      s.borrowCap,
			Utilization: s.derived.UtilizationAtCaps,
			BorrowApy:   s.derived.CapsBorrowApy,
			SupplyApy:   s.derived.CapsSupplyApy,
			NativeYield: s.nativeYield,
		}
	default:
		return Point{}
	}
}
