// Package turnover computes the monthly portfolio turnover series and the
// largest month-over-month weight moves.
package turnover

import (
	"math"
	"sort"
	"time"

	"github.com/buzzindex/buzzboard/internal/common"
	"github.com/buzzindex/buzzboard/internal/history"
	"github.com/buzzindex/buzzboard/internal/models"
)

// Window names an accepted stats window.
type Window string

const (
	Window6M  Window = "6M"
	Window1Y  Window = "1Y"
	WindowYTD Window = "YTD"
	Window3Y  Window = "3Y"
	Window5Y  Window = "5Y"
	WindowAll Window = "ALL"
)

// Windows lists the accepted stats windows in display order.
var Windows = []Window{Window6M, Window1Y, WindowYTD, Window3Y, Window5Y, WindowAll}

// Service derives turnover views from the historical index.
type Service struct {
	index       *history.Index
	precomputed []models.TurnoverPoint
	logger      *common.Logger
	now         func() time.Time // injectable clock for testing
}

// NewService creates a turnover service. precomputed may be nil; when
// present it is preferred over the derived series.
func NewService(index *history.Index, precomputed []models.TurnoverPoint, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		index:       index,
		precomputed: precomputed,
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock overrides the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// MonthlySeries returns (rebalance date, turnover %) for every consecutive
// pair of portfolios. Length is len(Dates())-1. The precomputed CSV series
// is used verbatim when available.
func (s *Service) MonthlySeries() []models.TurnoverPoint {
	if len(s.precomputed) > 0 {
		return s.precomputed
	}
	return s.derivedSeries()
}

// derivedSeries computes turnover_i = 0.5 × Σ|P_i(t) − P_{i-1}(t)| over the
// ticker union, reported as percent rounded to 2 decimals.
func (s *Service) derivedSeries() []models.TurnoverPoint {
	dates := s.index.Dates()
	if len(dates) < 2 {
		return nil
	}

	out := make([]models.TurnoverPoint, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		prev := s.index.Portfolio(dates[i-1]).Weights
		curr := s.index.Portfolio(dates[i]).Weights

		sum := 0.0
		for t, w := range curr {
			sum += math.Abs(w - prev[t])
		}
		for t, w := range prev {
			if _, ok := curr[t]; !ok {
				sum += w
			}
		}

		pct := math.Round(0.5*sum*100*100) / 100
		out = append(out, models.TurnoverPoint{RebalanceDate: dates[i], TurnoverPct: pct})
	}
	return out
}

// Stats summarises the series over a window anchored at the current time.
func (s *Service) Stats(window Window) models.TurnoverStats {
	series := s.MonthlySeries()

	cutoff, bounded := s.cutoff(window)
	stats := models.TurnoverStats{Window: string(window)}

	min := math.Inf(1)
	max := math.Inf(-1)
	sum := 0.0
	for _, p := range series {
		if bounded && p.RebalanceDate.Before(cutoff) {
			continue
		}
		stats.Count++
		sum += p.TurnoverPct
		if p.TurnoverPct < min {
			min = p.TurnoverPct
		}
		if p.TurnoverPct > max {
			max = p.TurnoverPct
		}
	}
	if stats.Count > 0 {
		stats.Avg = math.Round(sum/float64(stats.Count)*100) / 100
		stats.Min = min
		stats.Max = max
	}
	return stats
}

func (s *Service) cutoff(window Window) (time.Time, bool) {
	now := s.now()
	switch window {
	case Window6M:
		return now.AddDate(0, -6, 0), true
	case Window1Y:
		return now.AddDate(-1, 0, 0), true
	case WindowYTD:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), true
	case Window3Y:
		return now.AddDate(-3, 0, 0), true
	case Window5Y:
		return now.AddDate(-5, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// AllStats returns the stats for every window.
func (s *Service) AllStats() map[string]models.TurnoverStats {
	out := make(map[string]models.TurnoverStats, len(Windows))
	for _, w := range Windows {
		out[string(w)] = s.Stats(w)
	}
	return out
}

// TopWeightChanges returns the k tickers with the largest absolute weight
// move between the latest two rebalances, with company names joined from
// the current snapshot (falling back to the prior-month snapshot).
func (s *Service) TopWeightChanges(k int, current, lastMonth []models.Holding) []models.WeightChange {
	latest, ok := s.index.LatestDate()
	if !ok {
		return nil
	}
	prev, ok := s.index.PreviousDate()
	if !ok {
		return nil
	}

	names := make(map[string]string)
	for _, h := range lastMonth {
		names[h.Ticker] = h.Company
	}
	for _, h := range current {
		names[h.Ticker] = h.Company
	}

	currW := s.index.Portfolio(latest).Weights
	prevW := s.index.Portfolio(prev).Weights

	union := make(map[string]struct{}, len(currW)+len(prevW))
	for t := range currW {
		union[t] = struct{}{}
	}
	for t := range prevW {
		union[t] = struct{}{}
	}

	changes := make([]models.WeightChange, 0, len(union))
	for t := range union {
		c := currW[t] * 100
		p := prevW[t] * 100
		if c == p {
			continue
		}
		changes = append(changes, models.WeightChange{
			Ticker:     t,
			Company:    names[t],
			CurrentPct: c,
			PrevPct:    p,
			ChangePct:  c - p,
		})
	}

	sort.Slice(changes, func(i, j int) bool {
		ai, aj := math.Abs(changes[i].ChangePct), math.Abs(changes[j].ChangePct)
		if ai != aj {
			return ai > aj
		}
		return changes[i].Ticker < changes[j].Ticker
	})

	if k > 0 && len(changes) > k {
		changes = changes[:k]
	}
	return changes
}
