// Package sector aggregates daily constituent performance by sector and
// builds the treemap hierarchy for the heatmap view.
package sector

import (
	"math"
	"sort"

	"github.com/buzzindex/buzzboard/internal/common"
	"github.com/buzzindex/buzzboard/internal/models"
)

// TreemapRoot is the id of the treemap root node.
const TreemapRoot = "Heatmap"

// colorClamp bounds treemap colors for a diverging scale centered at 0.
const colorClamp = 5.0

// DefaultSector is assigned to tickers missing from the sector table.
const DefaultSector = "Other"

// defaultSectors covers the usual BUZZ constituents when no sectors.csv is
// bundled. The table is data; the CSV overrides it entirely when present.
var defaultSectors = map[string]string{
	"AAPL": "Technology", "MSFT": "Technology", "NVDA": "Technology",
	"AMD": "Technology", "INTC": "Technology", "PLTR": "Technology",
	"CRM": "Technology", "ORCL": "Technology", "SMCI": "Technology",
	"MU": "Technology", "AVGO": "Technology", "QCOM": "Technology",
	"AMZN": "Consumer Discretionary", "TSLA": "Consumer Discretionary",
	"NKE": "Consumer Discretionary", "SBUX": "Consumer Discretionary",
	"MCD": "Consumer Discretionary", "ABNB": "Consumer Discretionary",
	"GME": "Consumer Discretionary", "F": "Consumer Discretionary",
	"GM": "Consumer Discretionary", "RIVN": "Consumer Discretionary",
	"LCID": "Consumer Discretionary",
	"META": "Communication Services", "GOOGL": "Communication Services",
	"GOOG": "Communication Services", "NFLX": "Communication Services",
	"DIS": "Communication Services", "RBLX": "Communication Services",
	"SNAP": "Communication Services", "PINS": "Communication Services",
	"JPM": "Financials", "BAC": "Financials", "GS": "Financials",
	"MS": "Financials", "WFC": "Financials", "C": "Financials",
	"SOFI": "Financials", "COIN": "Financials", "HOOD": "Financials",
	"PYPL": "Financials", "SQ": "Financials", "V": "Financials",
	"MA": "Financials",
	"PFE": "Health Care", "MRNA": "Health Care", "JNJ": "Health Care",
	"UNH": "Health Care", "LLY": "Health Care",
	"XOM": "Energy", "CVX": "Energy", "OXY": "Energy",
	"BA": "Industrials", "CAT": "Industrials", "DE": "Industrials",
	"UBER": "Industrials", "LYFT": "Industrials",
}

// Service joins current weights with live daily changes per sector.
type Service struct {
	sectors map[string]string
	logger  *common.Logger
}

// NewService creates a sector service. table may be nil, in which case the
// compiled-in default table is used.
func NewService(table map[string]string, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if len(table) == 0 {
		table = defaultSectors
	}
	return &Service{sectors: table, logger: logger}
}

// SectorOf returns the sector for a ticker, DefaultSector when unknown.
func (s *Service) SectorOf(ticker string) string {
	if sec, ok := s.sectors[ticker]; ok && sec != "" {
		return sec
	}
	return DefaultSector
}

// Aggregates returns per-sector total weight (percent units) and the
// weight-weighted average daily percent change.
func (s *Service) Aggregates(holdings []models.Holding, pct map[string]float64) []models.SectorAggregate {
	type acc struct {
		weight   float64
		weighted float64
	}
	bySector := make(map[string]*acc)
	for _, h := range holdings {
		sec := s.SectorOf(h.Ticker)
		a, ok := bySector[sec]
		if !ok {
			a = &acc{}
			bySector[sec] = a
		}
		w := h.Weight * 100
		a.weight += w
		a.weighted += w * pct[h.Ticker]
	}

	out := make([]models.SectorAggregate, 0, len(bySector))
	for sec, a := range bySector {
		agg := models.SectorAggregate{Sector: sec, TotalWeight: a.weight}
		if a.weight > 0 {
			agg.WeightedAvgPct = a.weighted / a.weight
		}
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalWeight > out[j].TotalWeight })
	return out
}

// TreemapNodes flattens the sector→ticker hierarchy for a treemap widget.
// Values carry weight; colors carry the daily percent change clamped to
// [-colorClamp, +colorClamp].
func (s *Service) TreemapNodes(holdings []models.Holding, pct map[string]float64) models.TreemapNodes {
	nodes := models.TreemapNodes{
		IDs:     []string{TreemapRoot},
		Parents: []string{""},
		Values:  []float64{0},
		Colors:  []float64{0},
		Labels:  []string{TreemapRoot},
	}

	aggs := s.Aggregates(holdings, pct)
	for _, a := range aggs {
		nodes.IDs = append(nodes.IDs, a.Sector)
		nodes.Parents = append(nodes.Parents, TreemapRoot)
		nodes.Values = append(nodes.Values, a.TotalWeight)
		nodes.Colors = append(nodes.Colors, clamp(a.WeightedAvgPct))
		nodes.Labels = append(nodes.Labels, a.Sector)
	}

	sorted := make([]models.Holding, len(holdings))
	copy(sorted, holdings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight })

	for _, h := range sorted {
		sec := s.SectorOf(h.Ticker)
		nodes.IDs = append(nodes.IDs, sec+"/"+h.Ticker)
		nodes.Parents = append(nodes.Parents, sec)
		nodes.Values = append(nodes.Values, h.Weight*100)
		nodes.Colors = append(nodes.Colors, clamp(pct[h.Ticker]))
		nodes.Labels = append(nodes.Labels, h.Ticker)
	}
	return nodes
}

func clamp(v float64) float64 {
	return math.Max(-colorClamp, math.Min(colorClamp, v))
}

// BestPerformer returns the ticker with the highest daily percent change.
func (s *Service) BestPerformer(pct map[string]float64) (string, float64) {
	return extreme(pct, func(a, b float64) bool { return a > b })
}

// WorstPerformer returns the ticker with the lowest daily percent change.
func (s *Service) WorstPerformer(pct map[string]float64) (string, float64) {
	return extreme(pct, func(a, b float64) bool { return a < b })
}

func extreme(pct map[string]float64, better func(a, b float64) bool) (string, float64) {
	best := ""
	bestVal := 0.0
	// Alphabetical scan keeps the answer deterministic on ties.
	tickers := make([]string, 0, len(pct))
	for t := range pct {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	for _, t := range tickers {
		if best == "" || better(pct[t], bestVal) {
			best, bestVal = t, pct[t]
		}
	}
	return best, bestVal
}

// CountGainers counts tickers with a positive daily change.
func (s *Service) CountGainers(pct map[string]float64) int {
	n := 0
	for _, v := range pct {
		if v > 0 {
			n++
		}
	}
	return n
}

// CountLosers counts tickers with a negative daily change.
func (s *Service) CountLosers(pct map[string]float64) int {
	n := 0
	for _, v := range pct {
		if v < 0 {
			n++
		}
	}
	return n
}
