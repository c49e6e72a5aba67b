// Package tenure computes per-ticker membership streaks and all-time
// weight ranges.
package tenure

import (
	"fmt"
	"time"

	"github.com/buzzindex/buzzboard/internal/common"
	"github.com/buzzindex/buzzboard/internal/history"
	"github.com/buzzindex/buzzboard/internal/models"
)

// Consecutive monthly rebalances are 25–35 days apart; anything outside
// that band is a gap and ends the streak.
const (
	minMonthGap = 25 * 24 * time.Hour
	maxMonthGap = 35 * 24 * time.Hour
)

// Service derives tenure views from the historical index.
type Service struct {
	index  *history.Index
	logger *common.Logger
}

// NewService creates a tenure service.
func NewService(index *history.Index, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{index: index, logger: logger}
}

// CurrentTenure counts the consecutive-month streak for a ticker backward
// from the latest rebalance date. A ticker absent from the latest date has
// tenure 0.
func (s *Service) CurrentTenure(ticker string) int {
	latest, ok := s.index.LatestDate()
	if !ok {
		return 0
	}

	series := s.index.TickerSeries(ticker)
	if len(series) == 0 || !series[len(series)-1].Date.Equal(latest) {
		return 0
	}

	streak := 1
	for i := len(series) - 1; i > 0; i-- {
		gap := series[i].Date.Sub(series[i-1].Date)
		if gap < minMonthGap || gap > maxMonthGap {
			break
		}
		streak++
	}
	return streak
}

// HistoricalWeightRange returns the all-time min and max weight for a
// ticker, in percent, with the dates they occurred.
func (s *Service) HistoricalWeightRange(ticker string) (models.TenureRange, error) {
	series := s.index.TickerSeries(ticker)
	if len(series) == 0 {
		return models.TenureRange{}, fmt.Errorf("ticker %s: %w", ticker, common.ErrNotFound)
	}

	r := models.TenureRange{
		MinPct: series[0].Weight * 100, MinDate: series[0].Date,
		MaxPct: series[0].Weight * 100, MaxDate: series[0].Date,
	}
	for _, p := range series[1:] {
		pct := p.Weight * 100
		if pct < r.MinPct {
			r.MinPct, r.MinDate = pct, p.Date
		}
		if pct > r.MaxPct {
			r.MaxPct, r.MaxDate = pct, p.Date
		}
	}
	r.RangeStr = fmt.Sprintf("%.2f%% – %.2f%%", r.MinPct, r.MaxPct)
	return r, nil
}

// FirstAppearance returns the earliest date the ticker held a weight.
// ok is false for unknown tickers.
func (s *Service) FirstAppearance(ticker string) (time.Time, bool) {
	series := s.index.TickerSeries(ticker)
	if len(series) == 0 {
		return time.Time{}, false
	}
	return series[0].Date, true
}
