// Package models defines data structures for Buzzboard
package models

import (
	"time"
)

// Holding is one row of the current index snapshot.
type Holding struct {
	Ticker         string    `json:"ticker"`
	Company        string    `json:"company"`
	Weight         float64   `json:"weight"` // fraction in [0,1]
	MarketValueUSD float64   `json:"market_value_usd"`
	AsOf           time.Time `json:"as_of"`
}

// HistoricalRow is one row of the long-format holdings history.
type HistoricalRow struct {
	RebalanceDate time.Time `json:"rebalance_date"` // month granularity
	Ticker        string    `json:"ticker"`
	Weight        float64   `json:"weight"` // fraction in [0,1]
	Score         float64   `json:"score"`  // sentiment score, larger is stronger
}

// Portfolio maps ticker → weight for a single rebalance date.
type Portfolio struct {
	Date    time.Time          `json:"date"`
	Weights map[string]float64 `json:"weights"`
}

// SeriesPoint is one observation of a ticker's weight and score.
type SeriesPoint struct {
	Date   time.Time `json:"date"`
	Weight float64   `json:"weight"`
	Score  float64   `json:"score"`
}

// TurnoverPoint is one month of the turnover time series.
type TurnoverPoint struct {
	RebalanceDate time.Time `json:"rebalance_date"`
	TurnoverPct   float64   `json:"turnover_pct"`
}

// TurnoverStats summarises the turnover series over a window.
type TurnoverStats struct {
	Window string  `json:"window"`
	Avg    float64 `json:"avg"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// WeightChange describes a month-over-month weight move for one ticker.
type WeightChange struct {
	Ticker     string  `json:"ticker"`
	Company    string  `json:"company"`
	CurrentPct float64 `json:"current_pct"`
	PrevPct    float64 `json:"prev_pct"`
	ChangePct  float64 `json:"change_pct"` // signed, percentage points
}

// CompanyProfile is one row of the company description table.
type CompanyProfile struct {
	Ticker      string `json:"ticker"`
	Company     string `json:"company"`
	Description string `json:"description"`
}
