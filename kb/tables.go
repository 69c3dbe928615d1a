package kb

import "github.com/signalsfoundry/supplychain-scenario-sim/model"

type tariffKey struct {
	origin string
	dest   string
	hs     string
}

// TariffSchedule indexes tariff entries by (origin, destination, hs_code).
// When the schedule holds duplicate triples the first entry wins.
type TariffSchedule struct {
	entries    map[tariffKey]float64
	duplicates int
}

// NewTariffSchedule builds an index over entries in order.
func NewTariffSchedule(entries []model.TariffEntry) *TariffSchedule {
	ts := &TariffSchedule{entries: make(map[tariffKey]float64, len(entries))}
	for _, e := range entries {
		ts.add(e)
	}
	return ts
}

func (ts *TariffSchedule) add(e model.TariffEntry) bool {
	k := tariffKey{origin: e.OriginCountry, dest: e.DestinationCountry, hs: e.HSCode}
	if _, exists := ts.entries[k]; exists {
		ts.duplicates++
		return false
	}
	ts.entries[k] = e.TariffPercent
	return true
}

// TariffPercent returns the scheduled duty for the triple and whether an
// entry exists.
func (ts *TariffSchedule) TariffPercent(origin, dest, hsCode string) (float64, bool) {
	if ts == nil {
		return 0, false
	}
	v, ok := ts.entries[tariffKey{origin: origin, dest: dest, hs: hsCode}]
	return v, ok
}

// Len returns the number of distinct triples.
func (ts *TariffSchedule) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.entries)
}

// Duplicates returns how many entries were shadowed by an earlier row with
// the same triple.
func (ts *TariffSchedule) Duplicates() int {
	if ts == nil {
		return 0
	}
	return ts.duplicates
}

// MarginTable indexes baseline margins by destination country.
type MarginTable struct {
	rows       map[string]model.MarginEntry
	duplicates int
}

// NewMarginTable builds an index over entries; the first row per country wins.
func NewMarginTable(entries []model.MarginEntry) *MarginTable {
	mt := &MarginTable{rows: make(map[string]model.MarginEntry, len(entries))}
	for _, e := range entries {
		mt.add(e)
	}
	return mt
}

func (mt *MarginTable) add(e model.MarginEntry) bool {
	if _, exists := mt.rows[e.Country]; exists {
		mt.duplicates++
		return false
	}
	mt.rows[e.Country] = e
	return true
}

// Margin returns the baseline row for a market.
func (mt *MarginTable) Margin(country string) (model.MarginEntry, bool) {
	if mt == nil {
		return model.MarginEntry{}, false
	}
	e, ok := mt.rows[country]
	return e, ok
}

// Len returns the number of markets.
func (mt *MarginTable) Len() int {
	if mt == nil {
		return 0
	}
	return len(mt.rows)
}
