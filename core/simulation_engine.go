package core

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/supplychain-scenario-sim/internal/logging"
	"github.com/signalsfoundry/supplychain-scenario-sim/kb"
	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

const tracerName = "github.com/signalsfoundry/supplychain-scenario-sim/core"

// RunMetricsRecorder receives the outcome of every scenario evaluation.
type RunMetricsRecorder interface {
	ObserveRun(scenarioID string, elapsed time.Duration, summary Summary, err error)
}

// Run is the outcome of evaluating one scenario against the reference data.
type Run struct {
	ID        string
	Scenario  model.Scenario
	Adjusted  []model.Route
	Results   []model.Result
	Summary   Summary
	StartedAt time.Time
	Elapsed   time.Duration
}

// Engine evaluates scenarios against one KnowledgeBase. It holds no per-run
// state, so Run and RunAll may be called concurrently.
type Engine struct {
	kb      *kb.KnowledgeBase
	pricing Pricing
	policy  BlockedPolicy

	log     logging.Logger
	metrics RunMetricsRecorder
	tracer  trace.Tracer
	now     func() time.Time
	workers int
}

// EngineOption customises Engine construction.
type EngineOption func(*Engine)

// WithBlockedPolicy sets how blocked routes count toward totals.
func WithBlockedPolicy(p BlockedPolicy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithMetricsRecorder attaches an optional recorder for run outcomes.
func WithMetricsRecorder(m RunMetricsRecorder) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithWorkers bounds how many scenarios RunAll evaluates at once.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		e.workers = n
	}
}

// NewEngine validates pricing once and binds it to the reference data.
func NewEngine(store *kb.KnowledgeBase, pricing Pricing, log logging.Logger, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("NewEngine: knowledge base is nil")
	}
	if err := pricing.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Noop()
	}
	e := &Engine{
		kb:      store,
		pricing: pricing,
		policy:  BlockedFullVolume,
		log:     log,
		now:     time.Now,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if _, err := ParseBlockedPolicy(string(e.policy)); err != nil {
		return nil, err
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e, nil
}

// Pricing returns the validated pricing the engine runs with.
func (e *Engine) Pricing() Pricing { return e.pricing }

// Run evaluates the catalog scenario with the given ID.
func (e *Engine) Run(ctx context.Context, scenarioID string) (*Run, error) {
	sc, ok := e.kb.Scenario(scenarioID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrScenarioNotFound, scenarioID)
	}
	return e.RunScenario(ctx, sc)
}

// RunScenario evaluates sc, which need not be in the catalog:
// apply, then calculate margins, then aggregate.
func (e *Engine) RunScenario(ctx context.Context, sc model.Scenario) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, log, runID := logging.WithRunLogger(ctx, e.log)
	log = log.With(logging.String("scenario_id", sc.ID))

	ctx, span := e.tracer.Start(ctx, "simulation.run", trace.WithAttributes(
		attribute.String("scenario.id", sc.ID),
		attribute.String("scenario.name", sc.Name),
		attribute.String("run.id", runID),
	))
	defer span.End()

	start := e.now()
	log.Info(ctx, "scenario run started",
		logging.String("scenario_name", sc.Name),
		logging.String("blocked_policy", string(e.policy)),
		logging.Bool("clamp_margins", e.pricing.ClampMargins),
	)

	run, err := e.evaluate(ctx, sc)
	elapsed := e.now().Sub(start)

	var summary Summary
	if run != nil {
		summary = run.Summary
	}
	if e.metrics != nil {
		e.metrics.ObserveRun(sc.ID, elapsed, summary, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error(ctx, "scenario run failed", logging.Err(err))
		return nil, err
	}

	run.ID = runID
	run.StartedAt = start
	run.Elapsed = elapsed
	span.SetAttributes(
		attribute.Int("routes.total", summary.Routes),
		attribute.Int("routes.blocked", summary.Blocked),
		attribute.Int("routes.unpriced", summary.Unpriced),
	)
	log.Info(ctx, "scenario run finished",
		logging.Int("routes", summary.Routes),
		logging.Int("blocked", summary.Blocked),
		logging.Int("unpriced", summary.Unpriced),
		logging.String("total_revenue_loss_usd", summary.TotalRevenueLossUSD.StringFixed(2)),
		logging.Any("elapsed", elapsed),
	)
	return run, nil
}

func (e *Engine) evaluate(ctx context.Context, sc model.Scenario) (*Run, error) {
	routes := e.kb.Routes()

	_, applySpan := e.tracer.Start(ctx, "scenario.apply")
	adjusted, err := ApplyScenario(routes, e.kb, sc)
	applySpan.End()
	if err != nil {
		return nil, err
	}

	_, calcSpan := e.tracer.Start(ctx, "margins.calculate")
	results, err := CalculateMargins(adjusted, e.kb, e.pricing)
	calcSpan.End()
	if err != nil {
		return nil, err
	}

	summary, err := Aggregate(results, e.policy, e.pricing)
	if err != nil {
		return nil, err
	}
	summary.ScenarioID = sc.ID

	return &Run{
		Scenario: sc,
		Adjusted: adjusted,
		Results:  results,
		Summary:  summary,
	}, nil
}

// RunAll evaluates the given scenario IDs in parallel and returns the runs in
// the same order. An empty ids slice evaluates the whole catalog. The first
// failure cancels the remaining runs.
func (e *Engine) RunAll(ctx context.Context, ids []string) ([]*Run, error) {
	if len(ids) == 0 {
		for _, sc := range e.kb.ListScenarios() {
			ids = append(ids, sc.ID)
		}
	}

	runs := make([]*Run, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, id := range ids {
		g.Go(func() error {
			run, err := e.Run(gctx, id)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", id, err)
			}
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}
