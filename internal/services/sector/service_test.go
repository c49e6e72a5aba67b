package sector

import (
	"math"
	"testing"

	"github.com/buzzindex/buzzboard/internal/models"
)

func holdings(pairs map[string]float64) []models.Holding {
	out := make([]models.Holding, 0, len(pairs))
	// Deterministic order for treemap assertions.
	for _, t := range []string{"NVDA", "AAPL", "XOM", "ZZZZ"} {
		if w, ok := pairs[t]; ok {
			out = append(out, models.Holding{Ticker: t, Weight: w})
		}
	}
	return out
}

func TestAggregatesWeightedAverage(t *testing.T) {
	// Technology: NVDA 10% at +2.0, AAPL 5% at −1.0
	// → (10×2 + 5×−1)/15 = 1.00
	svc := NewService(nil, nil)
	hs := holdings(map[string]float64{"NVDA": 0.10, "AAPL": 0.05})
	pct := map[string]float64{"NVDA": 2.0, "AAPL": -1.0}

	aggs := svc.Aggregates(hs, pct)
	if len(aggs) != 1 {
		t.Fatalf("expected 1 sector, got %d", len(aggs))
	}
	a := aggs[0]
	if a.Sector != "Technology" {
		t.Errorf("expected Technology, got %s", a.Sector)
	}
	if math.Abs(a.TotalWeight-15) > 1e-9 {
		t.Errorf("expected total weight 15, got %v", a.TotalWeight)
	}
	if math.Abs(a.WeightedAvgPct-1.00) > 1e-9 {
		t.Errorf("expected weighted avg 1.00, got %v", a.WeightedAvgPct)
	}
}

func TestAggregatesSortedByWeight(t *testing.T) {
	svc := NewService(nil, nil)
	hs := holdings(map[string]float64{"NVDA": 0.02, "XOM": 0.10})
	aggs := svc.Aggregates(hs, nil)

	if len(aggs) != 2 || aggs[0].Sector != "Energy" {
		t.Errorf("sectors should sort by total weight descending, got %+v", aggs)
	}
}

func TestSectorOfUnknownTicker(t *testing.T) {
	svc := NewService(nil, nil)
	if got := svc.SectorOf("ZZZZ"); got != DefaultSector {
		t.Errorf("expected %s, got %s", DefaultSector, got)
	}

	custom := NewService(map[string]string{"ZZZZ": "Utilities"}, nil)
	if got := custom.SectorOf("ZZZZ"); got != "Utilities" {
		t.Errorf("custom table should win, got %s", got)
	}
}

func TestTreemapNodesHierarchy(t *testing.T) {
	svc := NewService(nil, nil)
	hs := holdings(map[string]float64{"NVDA": 0.10, "AAPL": 0.05, "XOM": 0.08})
	pct := map[string]float64{"NVDA": 7.5, "AAPL": -1.0, "XOM": 0.5}

	nodes := svc.TreemapNodes(hs, pct)

	// root + 2 sectors + 3 tickers
	if len(nodes.IDs) != 6 {
		t.Fatalf("expected 6 nodes, got %d: %v", len(nodes.IDs), nodes.IDs)
	}
	if nodes.IDs[0] != TreemapRoot || nodes.Parents[0] != "" {
		t.Errorf("first node must be the root, got %s/%s", nodes.IDs[0], nodes.Parents[0])
	}

	idx := make(map[string]int)
	for i, id := range nodes.IDs {
		idx[id] = i
	}
	i, ok := idx["Technology/NVDA"]
	if !ok {
		t.Fatalf("missing ticker node, got %v", nodes.IDs)
	}
	if nodes.Parents[i] != "Technology" {
		t.Errorf("ticker node should parent to its sector, got %s", nodes.Parents[i])
	}
	if math.Abs(nodes.Values[i]-10) > 1e-9 {
		t.Errorf("ticker value should be percent weight, got %v", nodes.Values[i])
	}
	if nodes.Colors[i] != colorClamp {
		t.Errorf("colors should clamp to ±%v, got %v", colorClamp, nodes.Colors[i])
	}
	if nodes.Labels[i] != "NVDA" {
		t.Errorf("ticker label should drop the sector prefix, got %s", nodes.Labels[i])
	}
}

func TestBestWorstPerformerDeterministicTies(t *testing.T) {
	svc := NewService(nil, nil)
	pct := map[string]float64{"BBB": 3.0, "AAA": 3.0, "CCC": -2.0}

	best, v := svc.BestPerformer(pct)
	if best != "AAA" || v != 3.0 {
		t.Errorf("tie should resolve alphabetically, got %s %v", best, v)
	}
	worst, v := svc.WorstPerformer(pct)
	if worst != "CCC" || v != -2.0 {
		t.Errorf("expected CCC -2.0, got %s %v", worst, v)
	}

	if b, _ := svc.BestPerformer(nil); b != "" {
		t.Errorf("empty map should yield empty ticker, got %s", b)
	}
}

func TestGainerLoserCounts(t *testing.T) {
	svc := NewService(nil, nil)
	pct := map[string]float64{"A": 1.0, "B": -0.5, "C": 0, "D": 2.2}

	if got := svc.CountGainers(pct); got != 2 {
		t.Errorf("expected 2 gainers, got %d", got)
	}
	if got := svc.CountLosers(pct); got != 1 {
		t.Errorf("expected 1 loser, got %d", got)
	}
}
