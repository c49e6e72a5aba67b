package loader

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/buzzindex/buzzboard/internal/common"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := common.NewDefaultConfig().Data
	cfg.Dir = dir
	return New(cfg, nil), dir
}

func TestLoadCurrentHoldingsModernShape(t *testing.T) {
	l, dir := newTestLoader(t)
	writeFile(t, dir, "current_holdings.csv",
		"Ticker,Company,Weight,MarketValue\n"+
			"GME,GameStop Corp,0.042,\"$4,200,000\"\n"+
			"amc us,AMC Entertainment,0.031,3100000\n"+
			"BADW,Bad Weight,abc,100\n"+
			"ZERO,Zero Weight,0,100\n")

	holdings, err := l.LoadCurrentHoldings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("expected 2 valid rows, got %d", len(holdings))
	}

	gme := holdings[0]
	if gme.Ticker != "GME" || gme.Weight != 0.042 {
		t.Errorf("unexpected first holding: %+v", gme)
	}
	if gme.MarketValueUSD != 4200000 {
		t.Errorf("currency formatting should be stripped, got %v", gme.MarketValueUSD)
	}
	if holdings[1].Ticker != "AMC" {
		t.Errorf("ticker should uppercase and drop the country suffix, got %q", holdings[1].Ticker)
	}
	if got := l.DroppedRows("current_holdings.csv"); got != 2 {
		t.Errorf("expected 2 dropped rows, got %d", got)
	}
}

func TestLoadCurrentHoldingsPercentHeuristic(t *testing.T) {
	l, dir := newTestLoader(t)
	// Weight above 1 betrays percent units in the modern shape.
	writeFile(t, dir, "current_holdings.csv",
		"Ticker,Company,Weight,MarketValue\n"+
			"GME,GameStop Corp,4.2,0\n")

	holdings, err := l.LoadCurrentHoldings()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(holdings[0].Weight-0.042) > 1e-12 {
		t.Errorf("expected 4.2 to be read as 4.2%%, got %v", holdings[0].Weight)
	}
	// Market value of 0 falls back to weight × assumed fund value.
	want := holdings[0].Weight * 100_000_000
	if math.Abs(holdings[0].MarketValueUSD-want) > 1e-6 {
		t.Errorf("expected assumed market value %v, got %v", want, holdings[0].MarketValueUSD)
	}
}

func TestLoadCurrentHoldingsLegacyShape(t *testing.T) {
	l, dir := newTestLoader(t)
	writeFile(t, dir, "current_holdings.csv",
		"VanEck Fund Export\n"+
			"As of 2024-06-30\n"+
			"Ticker,Holding Name,Asset Class,% of Net Assets,Market Value (US$)\n"+
			"GME US,GameStop Corp,Equity,4.20%,\"4,200,000\"\n"+
			"AMC US,AMC Entertainment,Equity,0.50%,500000\n")

	holdings, err := l.LoadCurrentHoldings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(holdings))
	}
	// Legacy weights are always percent, even when below 1.
	if math.Abs(holdings[0].Weight-0.042) > 1e-12 {
		t.Errorf("expected 4.20%% → 0.042, got %v", holdings[0].Weight)
	}
	if math.Abs(holdings[1].Weight-0.005) > 1e-12 {
		t.Errorf("sub-1%% legacy weight must still divide by 100, got %v", holdings[1].Weight)
	}
}

func TestLoadCurrentHoldingsMissingColumn(t *testing.T) {
	l, dir := newTestLoader(t)
	writeFile(t, dir, "current_holdings.csv",
		"Ticker,Company,Weight\nGME,GameStop,0.042\n")

	_, err := l.LoadCurrentHoldings()
	if !common.IsConfigurationError(err) {
		t.Errorf("expected configuration error for missing column, got %v", err)
	}
}

func TestLoadCurrentHoldingsMissingFile(t *testing.T) {
	l, _ := newTestLoader(t)
	_, err := l.LoadCurrentHoldings()
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAsOfFromFilename(t *testing.T) {
	l, dir := newTestLoader(t)
	cfg := l.cfg
	cfg.CurrentHoldings = "BUZZ_asof_20240131.csv"
	l = New(cfg, nil)
	writeFile(t, dir, "BUZZ_asof_20240131.csv",
		"Ticker,Company,Weight,MarketValue\nGME,GameStop,0.042,100\n")

	holdings, err := l.LoadCurrentHoldings()
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if !holdings[0].AsOf.Equal(want) {
		t.Errorf("expected as-of from filename %v, got %v", want, holdings[0].AsOf)
	}
}

func TestLoadHistoricalRenamesAndDrops(t *testing.T) {
	l, dir := newTestLoader(t)
	writeFile(t, dir, "BuzzIndex_historical.csv",
		"Rebalance_date,Ticker,Weight,Score\n"+
			"15/01/2024,FB,0.05,80\n"+
			"15/01/2024,TWTR,0.04,75\n"+
			"15/01/2024,GME,0.03,\n"+
			"15/01/2024,AMC,0,60\n"+
			"15/01/2024,TSLA,0.06,90\n"+
			"bad-date,NVDA,0.06,90\n")

	rows, err := l.LoadHistorical()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 surviving rows, got %d: %+v", len(rows), rows)
	}
	if rows[0].Ticker != "META" {
		t.Errorf("FB should be renamed to META, got %q", rows[0].Ticker)
	}
	if rows[1].Ticker != "TSLA" {
		t.Errorf("expected TSLA to survive, got %q", rows[1].Ticker)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !rows[0].RebalanceDate.Equal(want) {
		t.Errorf("dates are DD/MM/YYYY: expected %v, got %v", want, rows[0].RebalanceDate)
	}
	if got := l.DroppedRows("BuzzIndex_historical.csv"); got != 4 {
		t.Errorf("expected 4 dropped rows, got %d", got)
	}
}

func TestLoadPrecomputedTurnover(t *testing.T) {
	l, dir := newTestLoader(t)
	writeFile(t, dir, "BUZZ_Monthly_Turnover_Time_Series.csv",
		"Rebalance_date,Monthly_Turnover_Rate_Percent\n"+
			"2024-01-15,22.5\n"+
			"not-a-date,10\n"+
			"2024-02-15,18.25\n")

	points, err := l.LoadPrecomputedTurnover()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].TurnoverPct != 22.5 || points[1].TurnoverPct != 18.25 {
		t.Errorf("unexpected series: %+v", points)
	}
}

func TestLoadDescriptionsAndSectors(t *testing.T) {
	l, dir := newTestLoader(t)
	writeFile(t, dir, "company_description.csv",
		"Ticker,Company,Description\nGME,GameStop Corp, Specialty retailer. \n")
	writeFile(t, dir, "sectors.csv",
		"Ticker,Sector\nGME,Consumer Discretionary\n,Empty Row\n")

	profiles, err := l.LoadDescriptions()
	if err != nil {
		t.Fatal(err)
	}
	if p := profiles["GME"]; p.Description != "Specialty retailer." {
		t.Errorf("description should be trimmed, got %q", p.Description)
	}

	sectors, err := l.LoadSectorMap()
	if err != nil {
		t.Fatal(err)
	}
	if len(sectors) != 1 || sectors["GME"] != "Consumer Discretionary" {
		t.Errorf("unexpected sector map: %v", sectors)
	}
}

func TestLoaderMemoizesByMtime(t *testing.T) {
	l, dir := newTestLoader(t)
	path := filepath.Join(dir, "current_holdings.csv")
	writeFile(t, dir, "current_holdings.csv",
		"Ticker,Company,Weight,MarketValue\nGME,GameStop,0.042,100\n")

	first, err := l.LoadCurrentHoldings()
	if err != nil {
		t.Fatal(err)
	}

	// Rewrite with a different mtime to invalidate the cache.
	writeFile(t, dir, "current_holdings.csv",
		"Ticker,Company,Weight,MarketValue\nGME,GameStop,0.042,100\nAMC,AMC,0.03,100\n")
	newTime := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, newTime, newTime); err != nil {
		t.Fatal(err)
	}

	second, err := l.LoadCurrentHoldings()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || len(second) != 2 {
		t.Errorf("mtime change should invalidate the cache: %d then %d rows", len(first), len(second))
	}
}
