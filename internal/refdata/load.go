package refdata

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/supplychain-scenario-sim/core"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/logging"
	"github.com/signalsfoundry/supplychain-scenario-sim/kb"
	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

// Tables is the decoded content of one reference data set.
type Tables struct {
	Routes    []model.Route
	Tariffs   []model.TariffEntry
	Margins   []model.MarginEntry
	Scenarios []model.Scenario
}

// Read fetches the four reference objects from src concurrently and decodes
// them.
func Read(ctx context.Context, src Source, layout Layout) (*Tables, error) {
	names := []string{layout.Routes, layout.Tariffs, layout.Margins, layout.Scenarios}
	raw := make([][]byte, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			rc, err := src.Open(gctx, name)
			if err != nil {
				return err
			}
			defer rc.Close()
			b, err := io.ReadAll(rc)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			raw[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("refdata: %s: %w", src.Describe(), err)
	}

	var (
		t   Tables
		err error
	)
	if t.Routes, err = DecodeRoutes(bytes.NewReader(raw[0])); err != nil {
		return nil, fmt.Errorf("refdata: %s: %w", layout.Routes, err)
	}
	if t.Tariffs, err = DecodeTariffs(bytes.NewReader(raw[1])); err != nil {
		return nil, fmt.Errorf("refdata: %s: %w", layout.Tariffs, err)
	}
	if t.Margins, err = DecodeMargins(bytes.NewReader(raw[2])); err != nil {
		return nil, fmt.Errorf("refdata: %s: %w", layout.Margins, err)
	}
	if t.Scenarios, err = core.LoadScenarios(bytes.NewReader(raw[3])); err != nil {
		return nil, fmt.Errorf("refdata: %s: %w", layout.Scenarios, err)
	}
	return &t, nil
}

// Build validates the tables and populates a new KnowledgeBase. Route rows
// fail fast; a repeated tariff triple keeps its first value and is logged.
func (t *Tables) Build(ctx context.Context, log logging.Logger) (*kb.KnowledgeBase, error) {
	if log == nil {
		log = logging.Noop()
	}
	store := kb.NewKnowledgeBase()

	for i, r := range t.Routes {
		if err := core.ValidateRoute(i, r); err != nil {
			return nil, err
		}
		if err := store.AddRoute(r); err != nil {
			return nil, err
		}
	}
	for _, e := range t.Tariffs {
		if !store.AddTariff(e) {
			log.Warn(ctx, "duplicate tariff row ignored",
				logging.String("origin_country", e.OriginCountry),
				logging.String("destination_country", e.DestinationCountry),
				logging.String("hs_code", e.HSCode),
				logging.Float("tariff_percent", e.TariffPercent),
			)
		}
	}
	for _, m := range t.Margins {
		if err := store.AddMargin(m); err != nil {
			return nil, err
		}
	}
	for _, sc := range t.Scenarios {
		if err := store.AddScenario(sc); err != nil {
			return nil, err
		}
	}

	st := store.Stats()
	log.Info(ctx, "reference data loaded",
		logging.Int("routes", st.Routes),
		logging.Int("tariffs", st.Tariffs),
		logging.Int("duplicate_tariffs", st.DuplicateTariffs),
		logging.Int("markets", st.Markets),
		logging.Int("scenarios", st.Scenarios),
	)
	return store, nil
}

// Load reads src and returns the populated KnowledgeBase.
func Load(ctx context.Context, src Source, layout Layout, log logging.Logger) (*kb.KnowledgeBase, error) {
	t, err := Read(ctx, src, layout)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Noop()
	}
	return t.Build(ctx, log.With(logging.String("source", src.Describe())))
}
