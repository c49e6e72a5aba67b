package history

import (
	"testing"
	"time"

	"github.com/buzzindex/buzzboard/internal/models"
)

func date(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestNewIndexOrdersDates(t *testing.T) {
	rows := []models.HistoricalRow{
		{RebalanceDate: date(2024, 3), Ticker: "AAPL", Weight: 0.5, Score: 80},
		{RebalanceDate: date(2024, 1), Ticker: "AAPL", Weight: 0.4, Score: 70},
		{RebalanceDate: date(2024, 2), Ticker: "AAPL", Weight: 0.6, Score: 75},
	}
	idx := NewIndex(rows)

	dates := idx.Dates()
	if len(dates) != 3 {
		t.Fatalf("expected 3 dates, got %d", len(dates))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i-1].Before(dates[i]) {
			t.Errorf("dates not ascending at %d: %v >= %v", i, dates[i-1], dates[i])
		}
	}

	series := idx.TickerSeries("AAPL")
	if len(series) != 3 {
		t.Fatalf("expected 3 series points, got %d", len(series))
	}
	if series[0].Weight != 0.4 || series[2].Weight != 0.5 {
		t.Errorf("series not sorted by date: %+v", series)
	}
}

func TestNewIndexFirstRowWinsOnDuplicate(t *testing.T) {
	rows := []models.HistoricalRow{
		{RebalanceDate: date(2024, 1), Ticker: "TSLA", Weight: 0.3, Score: 90},
		{RebalanceDate: date(2024, 1), Ticker: "TSLA", Weight: 0.9, Score: 10},
	}
	idx := NewIndex(rows)

	p := idx.Portfolio(date(2024, 1))
	if p.Weights["TSLA"] != 0.3 {
		t.Errorf("expected first duplicate to win, got weight %v", p.Weights["TSLA"])
	}
	if got := len(idx.Rows(date(2024, 1))); got != 1 {
		t.Errorf("expected 1 row after dedup, got %d", got)
	}
}

func TestRowsPreserveInputOrder(t *testing.T) {
	rows := []models.HistoricalRow{
		{RebalanceDate: date(2024, 1), Ticker: "GME", Weight: 0.2, Score: 95},
		{RebalanceDate: date(2024, 1), Ticker: "AMC", Weight: 0.1, Score: 95},
		{RebalanceDate: date(2024, 1), Ticker: "BB", Weight: 0.1, Score: 50},
	}
	idx := NewIndex(rows)

	got := idx.Rows(date(2024, 1))
	want := []string{"GME", "AMC", "BB"}
	for i, w := range want {
		if got[i].Ticker != w {
			t.Errorf("row %d: expected %s, got %s", i, w, got[i].Ticker)
		}
	}
}

func TestLatestAndPreviousDate(t *testing.T) {
	empty := NewIndex(nil)
	if _, ok := empty.LatestDate(); ok {
		t.Error("empty index should have no latest date")
	}
	if _, ok := empty.PreviousDate(); ok {
		t.Error("empty index should have no previous date")
	}

	idx := NewIndex([]models.HistoricalRow{
		{RebalanceDate: date(2024, 1), Ticker: "AAPL", Weight: 1},
		{RebalanceDate: date(2024, 2), Ticker: "AAPL", Weight: 1},
	})

	latest, ok := idx.LatestDate()
	if !ok || !latest.Equal(date(2024, 2)) {
		t.Errorf("expected latest 2024-02, got %v ok=%v", latest, ok)
	}
	prev, ok := idx.PreviousDate()
	if !ok || !prev.Equal(date(2024, 1)) {
		t.Errorf("expected previous 2024-01, got %v ok=%v", prev, ok)
	}
}

func TestTickersSorted(t *testing.T) {
	idx := NewIndex([]models.HistoricalRow{
		{RebalanceDate: date(2024, 1), Ticker: "TSLA", Weight: 0.5},
		{RebalanceDate: date(2024, 1), Ticker: "AAPL", Weight: 0.5},
	})
	got := idx.Tickers()
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "TSLA" {
		t.Errorf("expected sorted tickers [AAPL TSLA], got %v", got)
	}
}
