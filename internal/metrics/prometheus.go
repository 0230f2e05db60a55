// Package metrics exposes Prometheus instrumentation for the generator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a load-test run.
type Metrics struct {
	// Transactions materialized by the generator, labeled by phase.
	TxGenerated *prometheus.CounterVec

	// Transactions handed to the endpoint, labeled by phase and outcome.
	TxSent *prometheus.CounterVec

	// Contract deployments completed.
	ContractsDeployed prometheus.Counter

	// Chain observations from the newHeads watcher.
	BlockHeight  prometheus.Gauge
	BlockGasUsed prometheus.Gauge
}

// New creates and registers all metrics. A nil registerer uses the default
// registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TxGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txforge_transactions_generated_total",
				Help: "Transactions materialized from the plan, by phase",
			},
			[]string{"phase"},
		),
		TxSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txforge_transactions_sent_total",
				Help: "Transactions submitted to the endpoint, by phase and status",
			},
			[]string{"phase", "status"},
		),
		ContractsDeployed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "txforge_contracts_deployed_total",
				Help: "Create-phase contracts deployed",
			},
		),
		BlockHeight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "txforge_block_height",
				Help: "Latest block number observed via newHeads",
			},
		),
		BlockGasUsed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "txforge_block_gas_used",
				Help: "Gas used by the latest observed block",
			},
		),
	}
}
