package refdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/signalsfoundry/supplychain-scenario-sim/core"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/logging"
	"github.com/signalsfoundry/supplychain-scenario-sim/kb"
	"github.com/signalsfoundry/supplychain-scenario-sim/model"
)

// sqliteSchema mirrors the CSV columns. List-valued scenario fields are JSON
// arrays; sourcing_restrictions alone may be NULL.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS routes (
		route_id TEXT PRIMARY KEY,
		origin_brewery TEXT NOT NULL,
		destination_market TEXT NOT NULL,
		freight_cost_usd_total REAL NOT NULL,
		tariff_percent REAL NOT NULL,
		blocked INTEGER NOT NULL DEFAULT 0,
		lead_time_days INTEGER NOT NULL DEFAULT 0,
		product_id TEXT,
		mode TEXT,
		region TEXT,
		distance_km REAL,
		origin_latitude REAL,
		origin_longitude REAL,
		destination_latitude REAL,
		destination_longitude REAL
	)`,
	`CREATE TABLE IF NOT EXISTS tariffs (
		origin_country TEXT NOT NULL,
		destination_country TEXT NOT NULL,
		hs_code TEXT NOT NULL,
		tariff_percent REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS margins (
		country TEXT PRIMARY KEY,
		baseline_margin_percent REAL NOT NULL,
		average_volume_units_per_route REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scenarios (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		sourcing_restrictions TEXT,
		route_origin TEXT NOT NULL,
		route_destination TEXT NOT NULL,
		tariff_multiplier REAL NOT NULL,
		freight_multiplier REAL NOT NULL,
		lead_time_delay_days INTEGER NOT NULL
	)`,
}

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

// ReadSQLite decodes the reference tables from a SQLite file. Rows come back
// in insertion order so first-wins tariff handling matches the CSV path.
func ReadSQLite(ctx context.Context, path string) (*Tables, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	var t Tables
	if t.Routes, err = selectRoutes(ctx, db); err != nil {
		return nil, err
	}
	if t.Tariffs, err = selectTariffs(ctx, db); err != nil {
		return nil, err
	}
	if t.Margins, err = selectMargins(ctx, db); err != nil {
		return nil, err
	}
	if t.Scenarios, err = selectScenarios(ctx, db); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadSQLite reads path and returns the populated KnowledgeBase.
func LoadSQLite(ctx context.Context, path string, log logging.Logger) (*kb.KnowledgeBase, error) {
	t, err := ReadSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("refdata: sqlite:%s: %w", path, err)
	}
	if log == nil {
		log = logging.Noop()
	}
	return t.Build(ctx, log.With(logging.String("source", "sqlite:"+path)))
}

func selectRoutes(ctx context.Context, db *sql.DB) ([]model.Route, error) {
	rows, err := db.QueryContext(ctx, `SELECT route_id, origin_brewery, destination_market,
		freight_cost_usd_total, tariff_percent, blocked, lead_time_days,
		product_id, mode, region, distance_km,
		origin_latitude, origin_longitude, destination_latitude, destination_longitude
		FROM routes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("select routes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Route
	for rows.Next() {
		var (
			r                            model.Route
			product, mode, region        sql.NullString
			dist, oLat, oLon, dLat, dLon sql.NullFloat64
		)
		if err := rows.Scan(&r.RouteID, &r.Origin, &r.DestinationMarket,
			&r.FreightCostUSD, &r.TariffPercent, &r.Blocked, &r.LeadTimeDays,
			&product, &mode, &region, &dist,
			&oLat, &oLon, &dLat, &dLon); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		r.ProductID, r.Mode, r.Region = product.String, mode.String, region.String
		r.Distance = nullFloat(dist)
		r.Geo = model.GeoPair{
			OriginLat: nullFloat(oLat),
			OriginLon: nullFloat(oLon),
			DestLat:   nullFloat(dLat),
			DestLon:   nullFloat(dLon),
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func selectTariffs(ctx context.Context, db *sql.DB) ([]model.TariffEntry, error) {
	rows, err := db.QueryContext(ctx, `SELECT origin_country, destination_country, hs_code, tariff_percent
		FROM tariffs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("select tariffs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.TariffEntry
	for rows.Next() {
		var e model.TariffEntry
		if err := rows.Scan(&e.OriginCountry, &e.DestinationCountry, &e.HSCode, &e.TariffPercent); err != nil {
			return nil, fmt.Errorf("scan tariff: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func selectMargins(ctx context.Context, db *sql.DB) ([]model.MarginEntry, error) {
	rows, err := db.QueryContext(ctx, `SELECT country, baseline_margin_percent, average_volume_units_per_route
		FROM margins ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("select margins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.MarginEntry
	for rows.Next() {
		var e model.MarginEntry
		if err := rows.Scan(&e.Country, &e.BaselineMarginPercent, &e.AverageVolumeUnits); err != nil {
			return nil, fmt.Errorf("scan margin: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func selectScenarios(ctx context.Context, db *sql.DB) ([]model.Scenario, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, description, sourcing_restrictions,
		route_origin, route_destination, tariff_multiplier, freight_multiplier, lead_time_delay_days
		FROM scenarios ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("select scenarios: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Scenario
	for rows.Next() {
		var (
			sc                  model.Scenario
			desc, restrictions  sql.NullString
			origin, destination string
		)
		if err := rows.Scan(&sc.ID, &sc.Name, &desc, &restrictions, &origin, &destination,
			&sc.TariffMultiplier, &sc.FreightMultiplier, &sc.LeadTimeDelayDays); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		sc.Description = desc.String
		sc.SourcingRestrictions = []string{}
		lists := []struct {
			field string
			raw   string
			dst   *[]string
		}{
			{"sourcing_restrictions", restrictions.String, &sc.SourcingRestrictions},
			{"route_origin", origin, &sc.RouteOrigin},
			{"route_destination", destination, &sc.RouteDestination},
		}
		for _, l := range lists {
			if l.raw == "" && l.field == "sourcing_restrictions" {
				continue
			}
			if err := json.Unmarshal([]byte(l.raw), l.dst); err != nil {
				return nil, &core.InvalidScenarioError{ScenarioID: sc.ID, Field: l.field, Reason: "is not a JSON array of strings"}
			}
		}
		if sc.SourcingRestrictions == nil {
			sc.SourcingRestrictions = []string{}
		}
		if err := core.ValidateScenario(sc); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// WriteSQLite stores t in a SQLite file at path, replacing any reference
// tables already there.
func WriteSQLite(ctx context.Context, path string, t *Tables) (retErr error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create dirs: %w", err)
	}
	db, err := openSQLite(path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range sqliteSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	for _, table := range []string{"routes", "tariffs", "margins", "scenarios"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, r := range t.Routes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO routes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RouteID, r.Origin, r.DestinationMarket, r.FreightCostUSD, r.TariffPercent, boolInt(r.Blocked), r.LeadTimeDays,
			optString(r.ProductID), optString(r.Mode), optString(r.Region), optFloat(r.Distance),
			optFloat(r.Geo.OriginLat), optFloat(r.Geo.OriginLon), optFloat(r.Geo.DestLat), optFloat(r.Geo.DestLon)); err != nil {
			return fmt.Errorf("insert route %s: %w", r.RouteID, err)
		}
	}
	for _, e := range t.Tariffs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tariffs VALUES (?, ?, ?, ?)`,
			e.OriginCountry, e.DestinationCountry, e.HSCode, e.TariffPercent); err != nil {
			return fmt.Errorf("insert tariff: %w", err)
		}
	}
	for _, e := range t.Margins {
		if _, err := tx.ExecContext(ctx, `INSERT INTO margins VALUES (?, ?, ?)`,
			e.Country, e.BaselineMarginPercent, e.AverageVolumeUnits); err != nil {
			return fmt.Errorf("insert margin %s: %w", e.Country, err)
		}
	}
	for _, sc := range t.Scenarios {
		restrictions, err := json.Marshal(nonNil(sc.SourcingRestrictions))
		if err != nil {
			return err
		}
		origin, err := json.Marshal(sc.RouteOrigin)
		if err != nil {
			return err
		}
		destination, err := json.Marshal(sc.RouteDestination)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO scenarios VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sc.ID, sc.Name, optString(sc.Description), string(restrictions), string(origin), string(destination),
			sc.TariffMultiplier, sc.FreightMultiplier, sc.LeadTimeDelayDays); err != nil {
			return fmt.Errorf("insert scenario %s: %w", sc.ID, err)
		}
	}
	return tx.Commit()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// optString and optFloat bind empty values as NULL.
func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
