package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/signalsfoundry/supplychain-scenario-sim/core"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/config"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/logging"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/observability"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/refdata"
	"github.com/signalsfoundry/supplychain-scenario-sim/kb"
)

// session is everything one command invocation needs.
type session struct {
	cfg       *config.Config
	log       logging.Logger
	store     *kb.KnowledgeBase
	engine    *core.Engine
	collector *observability.SimulationCollector
	metrics   *http.Server

	shutdownTracing func(context.Context) error
}

// loadConfig resolves the config file, environment and flags, in that order.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("SIM_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg, rootCmd.PersistentFlags())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlagOverrides layers command-line flags over cfg. String flags count
// as set when non-empty; --price and --clamp only when given explicitly, so
// --price 0 reaches validation and --clamp=false can turn clamping off.
func applyFlagOverrides(cfg *config.Config, flags *pflag.FlagSet) {
	if dataDir != "" {
		cfg.Data.Driver = config.DriverFS
		cfg.Data.Dir = dataDir
	}
	if flags.Changed("price") {
		cfg.Simulation.PricePerUnit = pricePerUnit
	}
	if flags.Changed("clamp") {
		cfg.Simulation.ClampMargins = clampMargins
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}
	if blockedPolicy != "" {
		cfg.Simulation.BlockedPolicy = blockedPolicy
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
}

// openSession loads config and reference data and builds the engine. Callers
// must call close.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LoggerConfig())

	shutdown, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: log, shutdownTracing: shutdown}

	collector, err := observability.NewSimulationCollector(prometheus.DefaultRegisterer)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to initialise metrics collector: %w", err)
	}
	s.collector = collector
	s.metrics = serveMetrics(cfg.Metrics.Addr, collector, log)

	if err := s.reload(ctx); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// reload re-reads the reference data and rebuilds the engine around it.
func (s *session) reload(ctx context.Context) error {
	store, err := openStore(ctx, s.cfg, s.log)
	if err != nil {
		return err
	}
	engine, err := newEngine(store, s.cfg, s.log, s.collector)
	if err != nil {
		return err
	}
	s.collector.SetReferenceCounts(store.Stats())
	s.store = store
	s.engine = engine
	return nil
}

func (s *session) close() {
	if s.metrics != nil {
		_ = s.metrics.Close()
	}
	observability.ShutdownWithTimeout(context.Background(), s.shutdownTracing, s.log)
}

func newEngine(store *kb.KnowledgeBase, cfg *config.Config, log logging.Logger, collector *observability.SimulationCollector) (*core.Engine, error) {
	pricing, err := cfg.Pricing()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.BlockedPolicy()
	if err != nil {
		return nil, err
	}
	opts := []core.EngineOption{
		core.WithBlockedPolicy(policy),
		core.WithMetricsRecorder(collector),
	}
	if cfg.Simulation.Workers > 0 {
		opts = append(opts, core.WithWorkers(cfg.Simulation.Workers))
	}
	return core.NewEngine(store, pricing, log, opts...)
}

// openSource returns the object source for the fs and s3 drivers.
func openSource(ctx context.Context, cfg *config.Config) (refdata.Source, error) {
	switch cfg.Data.Driver {
	case config.DriverFS:
		return refdata.NewDirSource(cfg.Data.Dir), nil
	case config.DriverS3:
		return refdata.NewS3Source(ctx, refdata.S3Config{
			Bucket:    cfg.Data.S3.Bucket,
			Region:    cfg.Data.S3.Region,
			Endpoint:  cfg.Data.S3.Endpoint,
			Prefix:    cfg.Data.S3.Prefix,
			PathStyle: cfg.Data.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("data driver %q has no object source", cfg.Data.Driver)
	}
}

// readTables reads the raw reference tables for whichever driver is configured.
func readTables(ctx context.Context, cfg *config.Config) (*refdata.Tables, error) {
	if cfg.Data.Driver == config.DriverSQLite {
		return refdata.ReadSQLite(ctx, cfg.Data.SQLitePath)
	}
	src, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return refdata.Read(ctx, src, refdata.DefaultLayout())
}

func openStore(ctx context.Context, cfg *config.Config, log logging.Logger) (*kb.KnowledgeBase, error) {
	if cfg.Data.Driver == config.DriverSQLite {
		return refdata.LoadSQLite(ctx, cfg.Data.SQLitePath, log)
	}
	src, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return refdata.Load(ctx, src, refdata.DefaultLayout(), log)
}

// serveMetrics starts the /metrics endpoint when addr is set.
func serveMetrics(addr string, collector *observability.SimulationCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
