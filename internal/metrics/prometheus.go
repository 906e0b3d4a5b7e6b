package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "vaultscope"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type promGaugeVec struct {
	vec *prometheus.GaugeVec
}

func (p promGaugeVec) Set(value float64, labels ...string) {
	p.vec.WithLabelValues(labels...).Set(value)
}

func (p promGaugeVec) Reset() {
	p.vec.Reset()
}

type Prometheus struct {
	Metrics *Metrics

	registry          *prometheus.Registry
	fetches           prometheus.Counter
	fetchFailures     prometheus.Counter
	decodeFailures    prometheus.Counter
	skippedStrategies prometheus.Counter
	vaultAPY          *prometheus.GaugeVec
	strategyYield     *prometheus.GaugeVec
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	fetches := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "vault_fetches_total",
		Help:      "Total number of vault fetches attempted.",
	})
	fetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "vault_fetch_failures_total",
		Help:      "Total number of vault fetches that failed after retries.",
	})
	decodeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "irm_decode_failures_total",
		Help:      "Total number of vaults loaded without a decodable rate model.",
	})
	skippedStrategies := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "strategies_skipped_total",
		Help:      "Total number of strategies left out of an analysis.",
	})
	vaultAPY := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "vault_apy_percent",
		Help:      "Vault borrow and supply APY per scenario, in percent.",
	}, []string{"vault", "scenario", "side"})
	strategyYield := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "strategy_yield_percent",
		Help:      "Strategy yield or borrow rate per scenario, in percent.",
	}, []string{"strategy", "kind", "scenario"})

	registry.MustRegister(fetches, fetchFailures, decodeFailures, skippedStrategies, vaultAPY, strategyYield)

	m := &Metrics{
		Fetches:           promCounter{fetches},
		FetchFailures:     promCounter{fetchFailures},
		DecodeFailures:    promCounter{decodeFailures},
		SkippedStrategies: promCounter{skippedStrategies},
		VaultAPY:          promGaugeVec{vaultAPY},
		StrategyYield:     promGaugeVec{strategyYield},
	}

	return &Prometheus{
		Metrics:           m,
		registry:          registry,
		fetches:           fetches,
		fetchFailures:     fetchFailures,
		decodeFailures:    decodeFailures,
		skippedStrategies: skippedStrategies,
		vaultAPY:          vaultAPY,
		strategyYield:     strategyYield,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
