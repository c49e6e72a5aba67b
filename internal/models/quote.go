package models

import "time"

// QuoteSnapshot holds live market data for a ticker.
// Every field may be absent; zero values mean "not available".
type QuoteSnapshot struct {
	Ticker          string  `json:"ticker"`
	LastPrice       float64 `json:"last_price,omitempty"`
	PreviousClose   float64 `json:"previous_close,omitempty"`
	ChangePct       float64 `json:"change_pct,omitempty"`
	DayOpen         float64 `json:"day_open,omitempty"`
	DayHigh         float64 `json:"day_high,omitempty"`
	DayLow          float64 `json:"day_low,omitempty"`
	Week52Low       float64 `json:"week_52_low,omitempty"`
	Week52High      float64 `json:"week_52_high,omitempty"`
	MarketCap       float64 `json:"market_cap,omitempty"`
	Volume          int64   `json:"volume,omitempty"`
	AvgVolume       int64   `json:"avg_volume,omitempty"`
	Beta            float64 `json:"beta,omitempty"`
	TrailingPE      float64 `json:"trailing_pe,omitempty"`
	ForwardPE       float64 `json:"forward_pe,omitempty"`
	PriceToSales    float64 `json:"price_to_sales,omitempty"`
	PriceToBook     float64 `json:"price_to_book,omitempty"`
	TrailingEPS     float64 `json:"trailing_eps,omitempty"`
	DividendYield   float64 `json:"dividend_yield,omitempty"`
	ShortName       string  `json:"short_name,omitempty"`
	LongName        string  `json:"long_name,omitempty"`
	Valid           bool    `json:"valid"`
}

// PriceBar is one OHLCV bar from the chart endpoint.
type PriceBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// IntradayResult is the outcome of an intraday price fetch.
type IntradayResult struct {
	Price     float64 `json:"price"`
	PctChange float64 `json:"pct_change"`
	Valid     bool    `json:"valid"`
}

// CalendarEvents holds upcoming corporate events for a ticker.
type CalendarEvents struct {
	EarningsDates  []time.Time `json:"earnings_dates,omitempty"`
	ExDividendDate *time.Time  `json:"ex_dividend_date,omitempty"`
	DividendDate   *time.Time  `json:"dividend_date,omitempty"`
}

// NewsItem represents a news article
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Publisher   string    `json:"publisher"`
	PublishedAt time.Time `json:"published_at"`
}

// BatchChanges is the result of a batch daily-percent-change fetch.
// Throttled signals a non-fatal upstream limit; all changes are zero then.
type BatchChanges struct {
	Changes   map[string]float64 `json:"changes"`
	Throttled bool               `json:"throttled"`
}
