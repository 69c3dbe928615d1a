package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/supplychain-scenario-sim/core"
	"github.com/signalsfoundry/supplychain-scenario-sim/kb"
)

// SimulationCollector bundles Prometheus metrics for scenario runs and the
// reference tables they read.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	Runs           *prometheus.CounterVec
	RunDurations   *prometheus.HistogramVec
	RouteStates    *prometheus.GaugeVec
	RevenueLossUSD *prometheus.GaugeVec

	ReferenceRoutes    prometheus.Gauge
	ReferenceTariffs   prometheus.Gauge
	ReferenceMarkets   prometheus.Gauge
	ReferenceScenarios prometheus.Gauge
}

// NewSimulationCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_runs_total",
		Help: "Total number of scenario evaluations, labeled by scenario and outcome.",
	}, []string{"scenario", "outcome"}), "sim_runs_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_run_duration_seconds",
		Help:    "Scenario evaluation latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"scenario"}), "sim_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	states, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_routes",
		Help: "Routes in the latest result table of a scenario, labeled by state (total, blocked, unpriced).",
	}, []string{"scenario", "state"}), "sim_routes")
	if err != nil {
		return nil, err
	}

	loss, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_revenue_loss_usd",
		Help: "Total estimated revenue loss of the latest run of a scenario.",
	}, []string{"scenario"}), "sim_revenue_loss_usd")
	if err != nil {
		return nil, err
	}

	refRoutes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_reference_routes",
		Help: "Routes in the loaded reference data.",
	}), "sim_reference_routes")
	if err != nil {
		return nil, err
	}
	refTariffs, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_reference_tariffs",
		Help: "Distinct tariff triples in the loaded reference data.",
	}), "sim_reference_tariffs")
	if err != nil {
		return nil, err
	}
	refMarkets, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_reference_markets",
		Help: "Markets with a baseline margin row.",
	}), "sim_reference_markets")
	if err != nil {
		return nil, err
	}
	refScenarios, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_reference_scenarios",
		Help: "Scenarios in the loaded catalog.",
	}), "sim_reference_scenarios")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:           gatherer,
		Runs:               runs,
		RunDurations:       durations,
		RouteStates:        states,
		RevenueLossUSD:     loss,
		ReferenceRoutes:    refRoutes,
		ReferenceTariffs:   refTariffs,
		ReferenceMarkets:   refMarkets,
		ReferenceScenarios: refScenarios,
	}, nil
}

// ObserveRun satisfies core.RunMetricsRecorder.
func (c *SimulationCollector) ObserveRun(scenarioID string, elapsed time.Duration, summary core.Summary, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if c.Runs != nil {
		c.Runs.WithLabelValues(scenarioID, outcome).Inc()
	}
	if c.RunDurations != nil {
		c.RunDurations.WithLabelValues(scenarioID).Observe(elapsed.Seconds())
	}
	if err != nil {
		return
	}
	if c.RouteStates != nil {
		c.RouteStates.WithLabelValues(scenarioID, "total").Set(float64(summary.Routes))
		c.RouteStates.WithLabelValues(scenarioID, "blocked").Set(float64(summary.Blocked))
		c.RouteStates.WithLabelValues(scenarioID, "unpriced").Set(float64(summary.Unpriced))
	}
	if c.RevenueLossUSD != nil {
		c.RevenueLossUSD.WithLabelValues(scenarioID).Set(summary.TotalRevenueLossUSD.InexactFloat64())
	}
}

// SetReferenceCounts publishes the sizes of the loaded reference tables.
func (c *SimulationCollector) SetReferenceCounts(s kb.Stats) {
	if c == nil {
		return
	}
	if c.ReferenceRoutes != nil {
		c.ReferenceRoutes.Set(float64(s.Routes))
	}
	if c.ReferenceTariffs != nil {
		c.ReferenceTariffs.Set(float64(s.Tariffs))
	}
	if c.ReferenceMarkets != nil {
		c.ReferenceMarkets.Set(float64(s.Markets))
	}
	if c.ReferenceScenarios != nil {
		c.ReferenceScenarios.Set(float64(s.Scenarios))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
