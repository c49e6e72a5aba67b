package quote

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/buzzindex/buzzboard/internal/clients/yahoo"
	"github.com/buzzindex/buzzboard/internal/interfaces"
	"github.com/buzzindex/buzzboard/internal/models"
)

// --- mock client ---

type mockClient struct {
	quoteSummaryFn func(ctx context.Context, ticker string, modules ...interfaces.QuoteSummaryModule) (map[string]interface{}, error)
	quoteFn        func(ctx context.Context, symbols ...string) (map[string]*models.QuoteSnapshot, error)
	chartFn        func(ctx context.Context, ticker, interval, rng string) ([]models.PriceBar, error)
	calendarFn     func(ctx context.Context, ticker string) (*models.CalendarEvents, error)
	newsFn         func(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error)
}

func (m *mockClient) QuoteSummary(ctx context.Context, ticker string, modules ...interfaces.QuoteSummaryModule) (map[string]interface{}, error) {
	if m.quoteSummaryFn != nil {
		return m.quoteSummaryFn(ctx, ticker, modules...)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClient) Quote(ctx context.Context, symbols ...string) (map[string]*models.QuoteSnapshot, error) {
	if m.quoteFn != nil {
		return m.quoteFn(ctx, symbols...)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClient) Chart(ctx context.Context, ticker, interval, rng string) ([]models.PriceBar, error) {
	if m.chartFn != nil {
		return m.chartFn(ctx, ticker, interval, rng)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClient) Calendar(ctx context.Context, ticker string) (*models.CalendarEvents, error) {
	if m.calendarFn != nil {
		return m.calendarFn(ctx, ticker)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClient) News(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error) {
	if m.newsFn != nil {
		return m.newsFn(ctx, ticker, limit)
	}
	return nil, errors.New("not implemented")
}

func throttledErr() error {
	return &yahoo.APIError{StatusCode: http.StatusTooManyRequests, Message: "rate limited"}
}

func newTestService(client *mockClient) *Service {
	svc := NewService(client, nil, nil)
	svc.SetSleep(func(time.Duration) {})
	return svc
}

// --- tests ---

func TestKeyMetricsFallsBackToQuoteOnThrottle(t *testing.T) {
	client := &mockClient{
		quoteSummaryFn: func(context.Context, string, ...interfaces.QuoteSummaryModule) (map[string]interface{}, error) {
			return nil, throttledErr()
		},
		quoteFn: func(_ context.Context, symbols ...string) (map[string]*models.QuoteSnapshot, error) {
			return map[string]*models.QuoteSnapshot{
				"AAPL": {Ticker: "AAPL", LastPrice: 190, MarketCap: 1.23e12, Valid: true},
			}, nil
		},
	}
	svc := newTestService(client)

	info := svc.KeyMetrics(context.Background(), "AAPL")
	if info["marketCap"] != 1.23e12 {
		t.Errorf("expected marketCap from quote fallback, got %v", info["marketCap"])
	}
}

func TestKeyMetricsFullyDegradedNotCached(t *testing.T) {
	calls := 0
	client := &mockClient{
		quoteSummaryFn: func(context.Context, string, ...interfaces.QuoteSummaryModule) (map[string]interface{}, error) {
			calls++
			return nil, errors.New("down")
		},
		quoteFn: func(context.Context, ...string) (map[string]*models.QuoteSnapshot, error) {
			return nil, errors.New("down")
		},
	}
	svc := newTestService(client)

	info := svc.KeyMetrics(context.Background(), "AAPL")
	if len(info) != 0 {
		t.Errorf("expected empty map when every endpoint fails, got %v", info)
	}
	svc.KeyMetrics(context.Background(), "AAPL")
	if calls != 2 {
		t.Errorf("degraded result must not be cached; expected 2 upstream calls, got %d", calls)
	}
}

func TestKeyMetricsCachedWithinTTL(t *testing.T) {
	calls := 0
	client := &mockClient{
		quoteSummaryFn: func(context.Context, string, ...interfaces.QuoteSummaryModule) (map[string]interface{}, error) {
			calls++
			return map[string]interface{}{"beta": 1.1}, nil
		},
	}
	svc := newTestService(client)

	first := svc.KeyMetrics(context.Background(), "TSLA")
	second := svc.KeyMetrics(context.Background(), "TSLA")
	if calls != 1 {
		t.Errorf("expected one upstream call, got %d", calls)
	}
	if first["beta"] != second["beta"] {
		t.Errorf("cached value should be identical")
	}
}

func TestLiveDataDerivedFromHistory(t *testing.T) {
	bars := []models.PriceBar{
		{Time: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Close: 100, Low: 90, High: 110, Volume: 1000},
		{Time: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), Close: 105, Low: 95, High: 120, Volume: 2000},
	}
	client := &mockClient{
		quoteFn: func(context.Context, ...string) (map[string]*models.QuoteSnapshot, error) {
			return nil, errors.New("down")
		},
		quoteSummaryFn: func(context.Context, string, ...interfaces.QuoteSummaryModule) (map[string]interface{}, error) {
			return nil, errors.New("down")
		},
		chartFn: func(_ context.Context, _, interval, rng string) ([]models.PriceBar, error) {
			if interval == "1d" && rng == "1y" {
				return bars, nil
			}
			return nil, errors.New("down")
		},
	}
	svc := newTestService(client)

	info := svc.LiveData(context.Background(), "GME")
	if info["regularMarketPrice"] != 105.0 {
		t.Errorf("expected last close 105, got %v", info["regularMarketPrice"])
	}
	if info["fiftyTwoWeekLow"] != 90.0 || info["fiftyTwoWeekHigh"] != 120.0 {
		t.Errorf("expected 52w range 90–120, got %v–%v", info["fiftyTwoWeekLow"], info["fiftyTwoWeekHigh"])
	}
	if info["regularMarketPreviousClose"] != 100.0 {
		t.Errorf("expected previous close 100, got %v", info["regularMarketPreviousClose"])
	}
}

func TestGetTickerInfoLiveOverwritesMetrics(t *testing.T) {
	client := &mockClient{
		quoteSummaryFn: func(_ context.Context, _ string, modules ...interfaces.QuoteSummaryModule) (map[string]interface{}, error) {
			return map[string]interface{}{"regularMarketPrice": 100.0, "beta": 1.5}, nil
		},
		quoteFn: func(context.Context, ...string) (map[string]*models.QuoteSnapshot, error) {
			return map[string]*models.QuoteSnapshot{
				"AAPL": {Ticker: "AAPL", LastPrice: 101, Valid: true},
			}, nil
		},
	}
	svc := newTestService(client)

	info := svc.GetTickerInfo(context.Background(), "AAPL")
	if info["regularMarketPrice"] != 101.0 {
		t.Errorf("live price should overwrite metrics price, got %v", info["regularMarketPrice"])
	}
	if info["beta"] != 1.5 {
		t.Errorf("metric fields should survive the merge, got %v", info["beta"])
	}
}

func TestIntradayPrevDayClose(t *testing.T) {
	day1 := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	bars := []models.PriceBar{
		{Time: day1.Add(15 * time.Hour), Close: 100},
		{Time: day1.Add(16 * time.Hour), Close: 102},
		{Time: day2.Add(14 * time.Hour), Close: 105},
		{Time: day2.Add(15 * time.Hour), Close: 110},
	}
	client := &mockClient{
		chartFn: func(_ context.Context, _, interval, _ string) ([]models.PriceBar, error) {
			if interval == "1m" {
				return bars, nil
			}
			return nil, errors.New("unexpected fallback")
		},
	}
	svc := newTestService(client)

	r := svc.Intraday(context.Background(), "GME")
	if !r.Valid {
		t.Fatal("expected valid result")
	}
	if r.Price != 110 {
		t.Errorf("expected price 110, got %v", r.Price)
	}
	// Reference close is the last bar strictly before day2: 102.
	want := (110.0 - 102.0) / 102.0 * 100
	if r.PctChange != want {
		t.Errorf("expected pct change %v, got %v", want, r.PctChange)
	}
}

func TestIntradaySingleDayUsesEarliestBar(t *testing.T) {
	day := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	bars := []models.PriceBar{
		{Time: day.Add(10 * time.Hour), Close: 50},
		{Time: day.Add(15 * time.Hour), Close: 55},
	}
	client := &mockClient{
		chartFn: func(context.Context, string, string, string) ([]models.PriceBar, error) {
			return bars, nil
		},
	}
	svc := newTestService(client)

	r := svc.Intraday(context.Background(), "AMC")
	want := (55.0 - 50.0) / 50.0 * 100
	if r.PctChange != want {
		t.Errorf("expected pct change %v, got %v", want, r.PctChange)
	}
}

func TestIntradayFallsBackToDailyBars(t *testing.T) {
	daily := []models.PriceBar{
		{Time: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Close: 100},
		{Time: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), Close: 103},
	}
	client := &mockClient{
		chartFn: func(_ context.Context, _, interval, rng string) ([]models.PriceBar, error) {
			if interval == "1m" {
				return nil, errors.New("minute data unavailable")
			}
			if interval == "1d" && rng == "5d" {
				return daily, nil
			}
			return nil, errors.New("unexpected request")
		},
	}
	svc := newTestService(client)

	r := svc.Intraday(context.Background(), "GME")
	if !r.Valid || r.Price != 103 {
		t.Errorf("expected fallback to daily bars, got %+v", r)
	}
}

func TestIntradayRetriesThenFails(t *testing.T) {
	var calls int32
	client := &mockClient{
		chartFn: func(context.Context, string, string, string) ([]models.PriceBar, error) {
			atomic.AddInt32(&calls, 1)
			return nil, errors.New("down")
		},
	}
	svc := newTestService(client)

	r := svc.Intraday(context.Background(), "GME")
	if r.Valid {
		t.Error("expected invalid result after exhausting retries")
	}
	// 3 attempts × (1m + 5d fallback) = 6 chart calls.
	if got := atomic.LoadInt32(&calls); got != 6 {
		t.Errorf("expected 6 chart calls, got %d", got)
	}
	if svc.Cache().Len() != 0 {
		t.Error("failed fetch must not be cached")
	}
}

func TestCalendarErrorsNotCached(t *testing.T) {
	calls := 0
	client := &mockClient{
		calendarFn: func(context.Context, string) (*models.CalendarEvents, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("down")
			}
			return &models.CalendarEvents{}, nil
		},
	}
	svc := newTestService(client)

	if _, err := svc.Calendar(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error to propagate")
	}
	if _, err := svc.Calendar(context.Background(), "AAPL"); err != nil {
		t.Fatalf("second call should retry and succeed, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", calls)
	}

	// Third call is served from cache.
	svc.Calendar(context.Background(), "AAPL")
	if calls != 2 {
		t.Errorf("successful result should be cached, got %d calls", calls)
	}
}

func TestNewsEmptyNotCached(t *testing.T) {
	calls := 0
	client := &mockClient{
		newsFn: func(context.Context, string, int) ([]*models.NewsItem, error) {
			calls++
			if calls == 1 {
				return nil, nil
			}
			return []*models.NewsItem{{Title: "Earnings beat"}}, nil
		},
	}
	svc := newTestService(client)

	if got := svc.News(context.Background(), "AAPL"); got != nil {
		t.Errorf("expected nil for empty feed, got %v", got)
	}
	if got := svc.News(context.Background(), "AAPL"); len(got) != 1 {
		t.Errorf("expected retry to return the article, got %v", got)
	}
	svc.News(context.Background(), "AAPL")
	if calls != 2 {
		t.Errorf("non-empty result should be cached, got %d calls", calls)
	}
}

func TestBatchDailyChanges(t *testing.T) {
	day1 := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	client := &mockClient{
		chartFn: func(_ context.Context, ticker, _, _ string) ([]models.PriceBar, error) {
			if ticker == "BAD" {
				return nil, errors.New("down")
			}
			return []models.PriceBar{
				{Time: day1, Close: 100},
				{Time: day2, Close: 110},
			}, nil
		},
	}
	svc := newTestService(client)

	batch := svc.BatchDailyChanges(context.Background(), []string{"AAPL", "BAD"})
	if batch.Throttled {
		t.Error("plain failures must not set Throttled")
	}
	if batch.Changes["BAD"] != 0 {
		t.Errorf("failed ticker should yield 0, got %v", batch.Changes["BAD"])
	}
	if batch.Changes["AAPL"] != 10 {
		t.Errorf("expected +10%% for AAPL, got %v", batch.Changes["AAPL"])
	}
}

func TestBatchDailyChangesThrottled(t *testing.T) {
	day1 := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	client := &mockClient{
		chartFn: func(_ context.Context, ticker, _, _ string) ([]models.PriceBar, error) {
			if ticker == "THROTTLED" {
				return nil, throttledErr()
			}
			return []models.PriceBar{
				{Time: day1, Close: 100},
				{Time: day2, Close: 110},
			}, nil
		},
	}
	svc := newTestService(client)

	batch := svc.BatchDailyChanges(context.Background(), []string{"AAPL", "THROTTLED"})
	if !batch.Throttled {
		t.Fatal("expected Throttled flag")
	}
	for tk, v := range batch.Changes {
		if v != 0 {
			t.Errorf("throttled batch should zero every change, %s=%v", tk, v)
		}
	}
}

func TestSnapshotDerivesChangePct(t *testing.T) {
	client := &mockClient{
		quoteSummaryFn: func(context.Context, string, ...interfaces.QuoteSummaryModule) (map[string]interface{}, error) {
			return map[string]interface{}{
				"regularMarketPrice":         110.0,
				"regularMarketPreviousClose": 100.0,
				"shortName":                  "Acme Corp",
			}, nil
		},
		quoteFn: func(context.Context, ...string) (map[string]*models.QuoteSnapshot, error) {
			return nil, errors.New("down")
		},
		chartFn: func(context.Context, string, string, string) ([]models.PriceBar, error) {
			return nil, errors.New("down")
		},
	}
	svc := newTestService(client)

	snap := svc.Snapshot(context.Background(), "ACME")
	if !snap.Valid {
		t.Fatal("expected valid snapshot")
	}
	if snap.ChangePct != 10 {
		t.Errorf("expected derived change 10%%, got %v", snap.ChangePct)
	}
	if snap.ShortName != "Acme Corp" {
		t.Errorf("expected short name, got %q", snap.ShortName)
	}
}

func TestSnapshotInvalidWhenEverythingFails(t *testing.T) {
	client := &mockClient{}
	svc := newTestService(client)

	snap := svc.Snapshot(context.Background(), "NOPE")
	if snap.Valid {
		t.Error("expected invalid snapshot when all endpoints fail")
	}
	if snap.Ticker != "NOPE" {
		t.Errorf("ticker should be echoed, got %q", snap.Ticker)
	}
}
