// Package conviction ranks constituents by sentiment score and tracks the
// regime leadership history.
package conviction

import (
	"sort"
	"time"

	"github.com/buzzindex/buzzboard/internal/common"
	"github.com/buzzindex/buzzboard/internal/history"
	"github.com/buzzindex/buzzboard/internal/models"
)

// DefaultSparklineLen is the tail length of the score series per ticker.
const DefaultSparklineLen = 12

// DefaultCrownHolders is how many crown holders the timeline reports.
const DefaultCrownHolders = 15

// Service derives conviction views from the historical index.
type Service struct {
	index  *history.Index
	logger *common.Logger
}

// NewService creates a conviction service.
func NewService(index *history.Index, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{index: index, logger: logger}
}

// tierFor assigns a tier from a unique 1..N rank with k = max(3, N/5).
func tierFor(rank, n int) models.Tier {
	k := n / 5
	if k < 3 {
		k = 3
	}
	switch {
	case rank <= k:
		return models.TierTopConviction
	case rank > n-k:
		return models.TierLowestConviction
	default:
		return models.TierNeutral
	}
}

// CurrentRanking ranks the latest portfolio by score descending. Ranks are
// unique integers 1..N; score ties keep insertion order. ScoreChange is the
// delta against the previous rebalance, 0 for new entrants.
func (s *Service) CurrentRanking() []models.RankingEntry {
	latest, ok := s.index.LatestDate()
	if !ok {
		return nil
	}

	prevScores := make(map[string]float64)
	hasPrevDate := false
	if prev, ok := s.index.PreviousDate(); ok {
		hasPrevDate = true
		for _, row := range s.index.Rows(prev) {
			prevScores[row.Ticker] = row.Score
		}
	}

	rows := s.index.Rows(latest)
	entries := make([]models.RankingEntry, len(rows))
	for i, row := range rows {
		entries[i] = models.RankingEntry{
			Ticker: row.Ticker,
			Score:  row.Score,
			Weight: row.Weight,
		}
		if prevScore, held := prevScores[row.Ticker]; hasPrevDate && held {
			entries[i].PrevScore = prevScore
			entries[i].HasPrev = true
			entries[i].ScoreChange = row.Score - prevScore
		}
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })

	n := len(entries)
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Tier = tierFor(i+1, n)
	}
	return entries
}

// TierGroups partitions a ranking by tier.
func TierGroups(ranking []models.RankingEntry) map[models.Tier][]models.RankingEntry {
	out := make(map[models.Tier][]models.RankingEntry, 3)
	for _, e := range ranking {
		out[e.Tier] = append(out[e.Tier], e)
	}
	return out
}

// Sparkline returns the tail of a ticker's score series, at most n points.
func (s *Service) Sparkline(ticker string, n int) []float64 {
	if n <= 0 {
		n = DefaultSparklineLen
	}
	series := s.index.TickerSeries(ticker)
	if len(series) > n {
		series = series[len(series)-n:]
	}
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Score
	}
	return out
}

// RegimeLeaders returns the per-date arg-max of score across all dates,
// ascending. Ties go to the first ticker in scan (input row) order.
func (s *Service) RegimeLeaders() []models.RegimePoint {
	dates := s.index.Dates()
	out := make([]models.RegimePoint, 0, len(dates))
	for _, d := range dates {
		rows := s.index.Rows(d)
		if len(rows) == 0 {
			continue
		}
		leader := rows[0]
		for _, row := range rows[1:] {
			if row.Score > leader.Score {
				leader = row
			}
		}
		out = append(out, models.RegimePoint{Date: d, Leader: leader.Ticker, Score: leader.Score})
	}
	return out
}

// CumulativeCrownHolders counts months at the top per ticker up to a date,
// sorted by months descending then ticker, trimmed to topN.
func (s *Service) CumulativeCrownHolders(upTo time.Time, topN int) []models.CrownHolder {
	if topN <= 0 {
		topN = DefaultCrownHolders
	}

	counts := make(map[string]int)
	for _, p := range s.RegimeLeaders() {
		if !upTo.IsZero() && p.Date.After(upTo) {
			continue
		}
		counts[p.Leader]++
	}

	holders := make([]models.CrownHolder, 0, len(counts))
	for t, months := range counts {
		holders = append(holders, models.CrownHolder{Ticker: t, MonthsAtTop: months})
	}
	sort.Slice(holders, func(i, j int) bool {
		if holders[i].MonthsAtTop != holders[j].MonthsAtTop {
			return holders[i].MonthsAtTop > holders[j].MonthsAtTop
		}
		return holders[i].Ticker < holders[j].Ticker
	})

	if len(holders) > topN {
		holders = holders[:topN]
	}
	for i := range holders {
		holders[i].Rank = i + 1
	}
	return holders
}

// KPIs aggregates the latest ranking into header metrics.
func (s *Service) KPIs() models.ConvictionKPIs {
	ranking := s.CurrentRanking()
	kpis := models.ConvictionKPIs{TotalHoldings: len(ranking)}

	if latest, ok := s.index.LatestDate(); ok {
		kpis.LatestDate = latest
	}
	if prev, ok := s.index.PreviousDate(); ok {
		kpis.PrevDate = prev
		kpis.HasPrevDate = true
	}

	if len(ranking) == 0 {
		return kpis
	}

	sum := 0.0
	for _, e := range ranking {
		sum += e.Score
	}
	kpis.AvgScore = sum / float64(len(ranking))

	top := ranking[0]
	bottom := ranking[len(ranking)-1]
	kpis.TopTicker, kpis.TopScore = top.Ticker, top.Score
	kpis.BottomTicker, kpis.BottomScore = bottom.Ticker, bottom.Score

	for _, e := range ranking {
		if !e.HasPrev {
			continue
		}
		if kpis.BiggestRiser == "" || e.ScoreChange > kpis.RiserChange {
			kpis.BiggestRiser, kpis.RiserChange = e.Ticker, e.ScoreChange
		}
		if kpis.BiggestFaller == "" || e.ScoreChange < kpis.FallerChange {
			kpis.BiggestFaller, kpis.FallerChange = e.Ticker, e.ScoreChange
		}
	}
	return kpis
}
