package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/supplychain-scenario-sim/internal/logging"
	"github.com/signalsfoundry/supplychain-scenario-sim/timectrl"
)

var (
	refreshInterval time.Duration
	refreshCount    int
)

// serveCmd keeps scenario metrics fresh for Prometheus
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Periodically reload reference data, rerun every scenario and serve /metrics",
	Long: `Run as a long-lived process: on every interval, reload the reference data
from the configured source, evaluate the whole scenario catalog, and publish
per-scenario revenue loss and route counts on the Prometheus /metrics endpoint.
A failed refresh is logged and the previous metrics stay in place.`,
	Example: `  simulator serve --metrics-addr :9090 --interval 15m`,
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&refreshInterval, "interval", 5*time.Minute, "Time between refreshes")
	serveCmd.Flags().IntVar(&refreshCount, "refreshes", 0, "Stop after this many refreshes (0 = until interrupted)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if metricsAddr == "" && os.Getenv("SIM_METRICS_ADDR") == "" {
		metricsAddr = ":9090"
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	tc := timectrl.NewTimeController(refreshInterval, timectrl.WithErrorHandler(func(at time.Time, err error) {
		s.log.Error(ctx, "refresh failed", logging.Any("tick", at), logging.Err(err))
	}))
	tc.Immediate = true
	tc.MaxTicks = refreshCount

	// The session already holds freshly loaded data for the first tick.
	tc.AddListener(func(ctx context.Context, at time.Time) error {
		if tc.Ticks() > 1 {
			if err := s.reload(ctx); err != nil {
				return err
			}
		}
		return refresh(ctx, s)
	})

	s.log.Info(ctx, "serving scenario metrics", logging.Any("interval", refreshInterval))
	err = tc.Run(ctx)
	if errors.Is(err, context.Canceled) {
		s.log.Info(context.Background(), "shutting down simulator")
		return nil
	}
	return err
}

// refresh evaluates the whole catalog; the engine's recorder updates metrics.
func refresh(ctx context.Context, s *session) error {
	runs, err := s.engine.RunAll(ctx, nil)
	if err != nil {
		return err
	}
	for _, run := range runs {
		s.log.Debug(ctx, "scenario refreshed",
			logging.String("scenario_id", run.Scenario.ID),
			logging.String("total_revenue_loss_usd", run.Summary.TotalRevenueLossUSD.StringFixed(2)),
		)
	}
	s.log.Info(ctx, "refresh complete", logging.Int("scenarios", len(runs)))
	return nil
}
