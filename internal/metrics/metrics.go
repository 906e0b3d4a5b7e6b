// Package metrics exposes fetch outcomes and the latest analysed yields.
package metrics

import "vaultScope/internal/model"

type Counter interface {
	Inc()
}

// GaugeVec is a gauge family set by label values.
type GaugeVec interface {
	Set(value float64, labels ...string)
	Reset()
}

type Metrics struct {
	Fetches           Counter
	FetchFailures     Counter
	DecodeFailures    Counter
	SkippedStrategies Counter

	// VaultAPY is labelled vault, scenario, side (borrow or supply).
	VaultAPY GaugeVec
	// StrategyYield is labelled strategy, kind, scenario.
	StrategyYield GaugeVec
}

type noopCounter struct{}

func (noopCounter) Inc() {}

type noopGaugeVec struct{}

func (noopGaugeVec) Set(float64, ...string) {}
func (noopGaugeVec) Reset()                 {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		Fetches:           n,
		FetchFailures:     n,
		DecodeFailures:    n,
		SkippedStrategies: n,
		VaultAPY:          noopGaugeVec{},
		StrategyYield:     noopGaugeVec{},
	}
}

// ObserveFetch counts one vault fetch.
func (m *Metrics) ObserveFetch(cluster string, ok bool) {
	m.Fetches.Inc()
	if !ok {
		m.FetchFailures.Inc()
	}
}

// ObserveDecodeFailure counts a vault loaded without its rate model.
func (m *Metrics) ObserveDecodeFailure(cluster string) {
	m.DecodeFailures.Inc()
}

// ObserveExport replaces the yield gauges with the values of e and counts its skipped strategies.
func (m *Metrics) ObserveExport(e model.Export) {
	m.VaultAPY.Reset()
	m.StrategyYield.Reset()

	for name, v := range e.Vaults {
		points := []struct {
			scenario string
			p        model.ScenarioPoint
		}{
			{"current", v.Current},
			{"current_at_caps", v.CurrentAtCaps},
			{"end", v.End},
			{"end_at_caps", v.EndAtCaps},
		}
		for _, sp := range points {
			m.VaultAPY.Set(sp.p.BorrowApyPct, name, sp.scenario, "borrow")
			m.VaultAPY.Set(sp.p.SupplyApyPct, name, sp.scenario, "supply")
		}
	}

	setValues := func(name, kind string, v model.ScenarioValues) {
		m.StrategyYield.Set(v.Current, name, kind, "current")
		m.StrategyYield.Set(v.CurrentAtCaps, name, kind, "current_at_caps")
		m.StrategyYield.Set(v.End, name, kind, "end")
		m.StrategyYield.Set(v.EndAtCaps, name, kind, "end_at_caps")
	}
	for _, l := range e.Strategies.Leveraged {
		setValues(l.Name, "leveraged", l.Yields)
	}
	for _, s := range e.Strategies.SingleSided {
		setValues(s.Name, "single_sided", s.Yields)
	}
	for _, b := range e.BorrowRates {
		setValues(b.Asset, "borrow_rate", b.Rates)
	}

	for range e.Skipped {
		m.SkippedStrategies.Inc()
	}
}
