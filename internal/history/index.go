// Package history provides an in-memory indexed view of the long-format
// holdings history, keyed by (rebalance date, ticker).
package history

import (
	"sort"
	"time"

	"github.com/buzzindex/buzzboard/internal/models"
)

// Index answers portfolio-by-date and series-by-ticker queries in order.
// It is built once and never mutated, so it is safe for concurrent readers.
type Index struct {
	dates      []time.Time
	portfolios map[time.Time]map[string]float64
	rows       map[time.Time][]models.HistoricalRow // per-date, input row order preserved
	series     map[string][]models.SeriesPoint
}

// NewIndex builds an Index from historical rows. When the same
// (date, ticker) pair appears twice the first row wins.
func NewIndex(rows []models.HistoricalRow) *Index {
	idx := &Index{
		portfolios: make(map[time.Time]map[string]float64),
		rows:       make(map[time.Time][]models.HistoricalRow),
		series:     make(map[string][]models.SeriesPoint),
	}

	for _, row := range rows {
		d := row.RebalanceDate
		p, ok := idx.portfolios[d]
		if !ok {
			p = make(map[string]float64)
			idx.portfolios[d] = p
			idx.dates = append(idx.dates, d)
		}
		if _, dup := p[row.Ticker]; dup {
			continue
		}
		p[row.Ticker] = row.Weight
		idx.rows[d] = append(idx.rows[d], row)
		idx.series[row.Ticker] = append(idx.series[row.Ticker], models.SeriesPoint{
			Date:   d,
			Weight: row.Weight,
			Score:  row.Score,
		})
	}

	sort.Slice(idx.dates, func(i, j int) bool { return idx.dates[i].Before(idx.dates[j]) })
	for _, pts := range idx.series {
		sort.Slice(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
	}

	return idx
}

// Dates returns the unique rebalance dates in ascending order.
func (idx *Index) Dates() []time.Time {
	return idx.dates
}

// Portfolio returns the ticker→weight map for a date, or nil when absent.
func (idx *Index) Portfolio(d time.Time) models.Portfolio {
	return models.Portfolio{Date: d, Weights: idx.portfolios[d]}
}

// Rows returns the historical rows for a date in input order.
// The scan order matters to consumers with first-wins tie-breaks.
func (idx *Index) Rows(d time.Time) []models.HistoricalRow {
	return idx.rows[d]
}

// TickerSeries returns the (date, weight, score) series for a ticker in
// ascending date order, or nil for an unknown ticker.
func (idx *Index) TickerSeries(ticker string) []models.SeriesPoint {
	return idx.series[ticker]
}

// LatestDate returns the most recent rebalance date.
// ok is false when the history is empty.
func (idx *Index) LatestDate() (time.Time, bool) {
	if len(idx.dates) == 0 {
		return time.Time{}, false
	}
	return idx.dates[len(idx.dates)-1], true
}

// PreviousDate returns the second most recent rebalance date.
func (idx *Index) PreviousDate() (time.Time, bool) {
	if len(idx.dates) < 2 {
		return time.Time{}, false
	}
	return idx.dates[len(idx.dates)-2], true
}

// Tickers returns every ticker that ever appeared, sorted alphabetically.
func (idx *Index) Tickers() []string {
	out := make([]string, 0, len(idx.series))
	for t := range idx.series {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
