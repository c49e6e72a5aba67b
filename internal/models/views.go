package models

import "time"

// Tier is the conviction tier derived from rank.
type Tier string

const (
	TierTopConviction    Tier = "TopConviction"
	TierNeutral          Tier = "Neutral"
	TierLowestConviction Tier = "LowestConviction"
)

// RankingEntry is one ticker in the current conviction ranking.
type RankingEntry struct {
	Ticker      string  `json:"ticker"`
	Score       float64 `json:"score"`
	Weight      float64 `json:"weight"`
	Rank        int     `json:"rank"`
	PrevScore   float64 `json:"prev_score,omitempty"`
	HasPrev     bool    `json:"has_prev"`
	ScoreChange float64 `json:"score_change"`
	Tier        Tier    `json:"tier"`
}

// ConvictionKPIs aggregates the latest rebalance for the header row.
type ConvictionKPIs struct {
	AvgScore      float64   `json:"avg_score"`
	TopTicker     string    `json:"top_ticker"`
	TopScore      float64   `json:"top_score"`
	BottomTicker  string    `json:"bottom_ticker"`
	BottomScore   float64   `json:"bottom_score"`
	BiggestRiser  string    `json:"biggest_riser"`
	RiserChange   float64   `json:"riser_change"`
	BiggestFaller string    `json:"biggest_faller"`
	FallerChange  float64   `json:"faller_change"`
	TotalHoldings int       `json:"total_holdings"`
	LatestDate    time.Time `json:"latest_date"`
	PrevDate      time.Time `json:"prev_date,omitempty"`
	HasPrevDate   bool      `json:"has_prev_date"`
}

// RegimePoint records which ticker led the sentiment ranking on a date.
type RegimePoint struct {
	Date   time.Time `json:"date"`
	Leader string    `json:"leader"`
	Score  float64   `json:"score"`
}

// CrownHolder counts how many months a ticker held the top score.
type CrownHolder struct {
	Ticker      string `json:"ticker"`
	MonthsAtTop int    `json:"months_at_top"`
	Rank        int    `json:"rank"`
}

// TenureRange is the all-time weight range for a ticker.
type TenureRange struct {
	MinPct   float64   `json:"min_pct"`
	MinDate  time.Time `json:"min_date"`
	MaxPct   float64   `json:"max_pct"`
	MaxDate  time.Time `json:"max_date"`
	RangeStr string    `json:"range_str"`
}

// SectorAggregate is the weight-weighted daily performance of one sector.
type SectorAggregate struct {
	Sector         string  `json:"sector"`
	TotalWeight    float64 `json:"total_weight"` // percent units
	WeightedAvgPct float64 `json:"weighted_avg_pct"`
}

// TreemapNodes is the flattened hierarchy for a sector treemap:
// root → sector → sector/ticker.
type TreemapNodes struct {
	IDs     []string  `json:"ids"`
	Parents []string  `json:"parents"`
	Values  []float64 `json:"values"`
	Colors  []float64 `json:"colors"`
	Labels  []string  `json:"labels"`
}

// SnapshotView is the full per-ticker page payload.
type SnapshotView struct {
	Ticker string `json:"ticker"`

	// Hero
	Price        float64 `json:"price"`
	DailyChange  float64 `json:"daily_change_pct"`
	PeriodReturn float64 `json:"period_return_pct"`
	Timeframe    string  `json:"timeframe"`

	// Chips
	MarketCap      float64 `json:"market_cap,omitempty"`
	Week52Low      float64 `json:"week_52_low,omitempty"`
	Week52High     float64 `json:"week_52_high,omitempty"`
	Volume         int64   `json:"volume,omitempty"`
	RelativeVolume float64 `json:"relative_volume,omitempty"`

	// Holdings snapshot
	TenureMonths    int        `json:"tenure_months"`
	PctNetAssets    float64    `json:"pct_net_assets"`
	MarketValueUSD  float64    `json:"market_value_usd"`
	FirstAppearance *time.Time `json:"first_appearance,omitempty"`
	WeightRange     *TenureRange `json:"weight_range,omitempty"`

	// Key metrics
	Beta          float64 `json:"beta,omitempty"`
	TrailingPE    float64 `json:"trailing_pe,omitempty"`
	ForwardPE     float64 `json:"forward_pe,omitempty"`
	PriceToSales  float64 `json:"price_to_sales,omitempty"`
	PriceToBook   float64 `json:"price_to_book,omitempty"`
	TrailingEPS   float64 `json:"trailing_eps,omitempty"`
	DividendYield float64 `json:"dividend_yield,omitempty"`

	Description string      `json:"description,omitempty"`
	News        []*NewsItem `json:"news,omitempty"`
	Valid       bool        `json:"valid"`
}

// PerformanceView is the index (or comparison) performance payload.
type PerformanceView struct {
	Symbol       string      `json:"symbol"`
	Price        float64     `json:"price"`
	DailyChange  float64     `json:"daily_change_pct"`
	PeriodReturn float64     `json:"period_return_pct"`
	Timeframe    string      `json:"timeframe"`
	Series       []PriceBar  `json:"series"`
	Comparisons  []Normalized `json:"comparisons,omitempty"`
}

// Normalized is a comparison series rebased to 100 at t=0.
type Normalized struct {
	Symbol string      `json:"symbol"`
	Points []TimeValue `json:"points"`
}

// TimeValue is a single (time, value) observation.
type TimeValue struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// ConvictionView is the conviction page payload.
type ConvictionView struct {
	Ranking    []RankingEntry               `json:"ranking"`
	Tiers      map[Tier][]RankingEntry      `json:"tiers"`
	Sparklines map[string][]float64         `json:"sparklines"`
	KPIs       ConvictionKPIs               `json:"kpis"`
	Regime     []RegimePoint                `json:"regime"`
	Crown      []CrownHolder                `json:"crown_holders"`
}

// TurnoverView is the turnover page payload.
type TurnoverView struct {
	Series     []TurnoverPoint          `json:"series"`
	Stats      map[string]TurnoverStats `json:"stats"`
	TopChanges []WeightChange           `json:"top_changes"`
}

// HeatmapView is the sector heatmap payload.
type HeatmapView struct {
	Nodes          TreemapNodes      `json:"nodes"`
	Aggregates     []SectorAggregate `json:"aggregates"`
	BestPerformer  string            `json:"best_performer"`
	WorstPerformer string            `json:"worst_performer"`
	Gainers        int               `json:"gainers"`
	Losers         int               `json:"losers"`
	Throttled      bool              `json:"throttled"`
}
