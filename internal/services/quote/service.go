// Package quote produces live market data per ticker with tiered caching
// and multi-endpoint fallback. No outage may crash a view: every public
// fetch degrades to partial data or a Valid:false sentinel.
package quote

import (
	"context"
	"sync"
	"time"

	"github.com/buzzindex/buzzboard/internal/clients/yahoo"
	"github.com/buzzindex/buzzboard/internal/common"
	"github.com/buzzindex/buzzboard/internal/interfaces"
	"github.com/buzzindex/buzzboard/internal/models"
)

const (
	intradayAttempts = 3
	backoffStep      = 500 * time.Millisecond
	batchWorkers     = 8
	newsLimit        = 5
)

// Service implements interfaces.QuoteService.
type Service struct {
	client interfaces.QuoteClient
	cache  *Cache
	logger *common.Logger
	sleep  func(d time.Duration) // injectable backoff for testing
}

// NewService creates a quote service around a client and cache.
// cache may be nil, in which case a fresh one is created.
func NewService(client interfaces.QuoteClient, cache *Cache, logger *common.Logger) *Service {
	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		client: client,
		cache:  cache,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// SetSleep overrides the retry backoff. Test hook.
func (s *Service) SetSleep(sleep func(time.Duration)) { s.sleep = sleep }

// Cache exposes the underlying cache, mainly so tests can adjust the clock.
func (s *Service) Cache() *Cache { return s.cache }

// KeyMetrics returns slow-changing fundamentals for a ticker (TTL 6h).
// Fallback order: quoteSummary → quote → empty. Only successful fetches
// are cached; a fully degraded empty map is returned uncached so the next
// call can retry.
func (s *Service) KeyMetrics(ctx context.Context, ticker string) map[string]interface{} {
	key := "keymetrics:" + ticker
	if v, ok := s.cache.Get(key); ok {
		return v.(map[string]interface{})
	}

	info, err := s.client.QuoteSummary(ctx, ticker,
		interfaces.ModuleDefaultKeyStatistics, interfaces.ModuleSummaryDetail)
	if err == nil && len(info) > 0 {
		s.cache.Set(key, info, common.FreshnessKeyMetrics)
		return info
	}
	s.logger.Debug().Err(err).Str("ticker", ticker).Msg("quoteSummary fallback to quote endpoint")

	if snap := s.quoteSnapshot(ctx, ticker); snap != nil {
		info = snapshotToMap(snap)
		s.cache.Set(key, info, common.FreshnessKeyMetrics)
		return info
	}

	return map[string]interface{}{}
}

// LiveData returns the fast-moving quote fields for a ticker (TTL 10m).
// Fallback order: quote → quoteSummary(price) → derived from 1-year daily
// history → empty.
func (s *Service) LiveData(ctx context.Context, ticker string) map[string]interface{} {
	key := "live:" + ticker
	if v, ok := s.cache.Get(key); ok {
		return v.(map[string]interface{})
	}

	if snap := s.quoteSnapshot(ctx, ticker); snap != nil {
		info := snapshotToMap(snap)
		s.cache.Set(key, info, common.FreshnessLiveData)
		return info
	}

	info, err := s.client.QuoteSummary(ctx, ticker,
		interfaces.ModulePrice, interfaces.ModuleSummaryDetail)
	if err == nil && len(info) > 0 {
		s.cache.Set(key, info, common.FreshnessLiveData)
		return info
	}

	if info := s.deriveFromHistory(ctx, ticker); len(info) > 0 {
		s.cache.Set(key, info, common.FreshnessLiveData)
		return info
	}

	s.logger.Warn().Str("ticker", ticker).Msg("All live data endpoints failed")
	return map[string]interface{}{}
}

// GetTickerInfo merges KeyMetrics and LiveData into one map; live fields
// overwrite metric fields on collision.
func (s *Service) GetTickerInfo(ctx context.Context, ticker string) map[string]interface{} {
	merged := make(map[string]interface{})
	for k, v := range s.KeyMetrics(ctx, ticker) {
		merged[k] = v
	}
	for k, v := range s.LiveData(ctx, ticker) {
		merged[k] = v
	}
	return merged
}

// quoteSnapshot fetches the flat quote endpoint for a single ticker.
func (s *Service) quoteSnapshot(ctx context.Context, ticker string) *models.QuoteSnapshot {
	quotes, err := s.client.Quote(ctx, ticker)
	if err != nil {
		s.logger.Debug().Err(err).Str("ticker", ticker).Msg("Quote endpoint failed")
		return nil
	}
	return quotes[ticker]
}

// deriveFromHistory reconstructs a minimal live map from 1-year daily bars:
// 52-week range, last close, previous close, volumes.
func (s *Service) deriveFromHistory(ctx context.Context, ticker string) map[string]interface{} {
	bars, err := s.client.Chart(ctx, ticker, "1d", "1y")
	if err != nil || len(bars) == 0 {
		return nil
	}

	low := bars[0].Low
	high := bars[0].High
	var volumeSum int64
	for _, b := range bars {
		if b.Low > 0 && b.Low < low {
			low = b.Low
		}
		if b.High > high {
			high = b.High
		}
		volumeSum += b.Volume
	}

	last := bars[len(bars)-1]
	info := map[string]interface{}{
		"regularMarketPrice":  last.Close,
		"fiftyTwoWeekLow":     low,
		"fiftyTwoWeekHigh":    high,
		"regularMarketVolume": float64(last.Volume),
		"averageVolume":       float64(volumeSum / int64(len(bars))),
	}
	if len(bars) > 1 {
		prev := bars[len(bars)-2]
		info["regularMarketPreviousClose"] = prev.Close
		if prev.Close > 0 {
			info["regularMarketChangePercent"] = (last.Close - prev.Close) / prev.Close * 100
		}
	}
	return info
}

// Intraday returns the latest price and daily percent change (TTL 10m).
// It fetches 2-day 1-minute bars, falling back to 5-day daily bars, with
// up to 3 attempts and a linear backoff. Failures yield Valid:false and
// are never cached.
func (s *Service) Intraday(ctx context.Context, ticker string) models.IntradayResult {
	key := "intraday:" + ticker
	if v, ok := s.cache.Get(key); ok {
		return v.(models.IntradayResult)
	}

	result, err := s.fetchIntraday(ctx, ticker)
	if err != nil {
		s.logger.Debug().Err(err).Str("ticker", ticker).Msg("Intraday fetch failed")
		return models.IntradayResult{}
	}

	s.cache.Set(key, result, common.FreshnessIntraday)
	return result
}

// fetchIntraday is the uncached intraday computation shared with the batch
// path.
func (s *Service) fetchIntraday(ctx context.Context, ticker string) (models.IntradayResult, error) {
	var lastErr error
	for attempt := 1; attempt <= intradayAttempts; attempt++ {
		bars, err := s.client.Chart(ctx, ticker, "1m", "2d")
		if err != nil || len(bars) < 2 {
			bars, err = s.client.Chart(ctx, ticker, "1d", "5d")
		}
		if err == nil && len(bars) >= 2 {
			return intradayFromBars(bars), nil
		}
		if err == nil {
			lastErr = common.ErrUpstreamUnavailable
		} else {
			lastErr = err
		}
		if yahoo.IsThrottled(err) {
			break // backing off won't help inside one request
		}
		if attempt < intradayAttempts {
			s.sleep(backoffStep * time.Duration(attempt))
		}
	}
	return models.IntradayResult{}, lastErr
}

// intradayFromBars computes price and percent change from a bar series.
// The reference close is the last close on a date strictly earlier than
// the last bar's date; when every bar shares one date, the earliest bar.
func intradayFromBars(bars []models.PriceBar) models.IntradayResult {
	last := bars[len(bars)-1]
	lastDay := last.Time.Truncate(24 * time.Hour)

	prevClose := bars[0].Close
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Time.Truncate(24 * time.Hour).Before(lastDay) {
			prevClose = bars[i].Close
			break
		}
	}

	result := models.IntradayResult{Price: last.Close, Valid: true}
	if prevClose > 0 {
		result.PctChange = (last.Close - prevClose) / prevClose * 100
	}
	return result
}

// Calendar returns upcoming corporate events (TTL 10m). Fetch errors are
// returned to the caller and never cached, so the next render retries.
func (s *Service) Calendar(ctx context.Context, ticker string) (*models.CalendarEvents, error) {
	key := "calendar:" + ticker
	if v, ok := s.cache.Get(key); ok {
		return v.(*models.CalendarEvents), nil
	}

	events, err := s.client.Calendar(ctx, ticker)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, events, common.FreshnessCalendar)
	return events, nil
}

// News returns recent news for a ticker (TTL 10m). Empty results are not
// cached so a temporarily silent feed recovers without waiting out the TTL.
func (s *Service) News(ctx context.Context, ticker string) []*models.NewsItem {
	key := "news:" + ticker
	if v, ok := s.cache.Get(key); ok {
		return v.([]*models.NewsItem)
	}

	news, err := s.client.News(ctx, ticker, newsLimit)
	if err != nil {
		s.logger.Debug().Err(err).Str("ticker", ticker).Msg("News fetch failed")
		return nil
	}
	if len(news) == 0 {
		return nil
	}

	s.cache.Set(key, news, common.FreshnessNews)
	return news
}

// BatchDailyChanges computes daily percent changes for many tickers with a
// bounded concurrent fan-out. Missing or failed tickers yield 0. When the
// host throttles, every change is 0 and Throttled is set so the UI can show
// a single non-blocking warning.
func (s *Service) BatchDailyChanges(ctx context.Context, tickers []string) models.BatchChanges {
	out := models.BatchChanges{Changes: make(map[string]float64, len(tickers))}
	for _, t := range tickers {
		out.Changes[t] = 0
	}
	if len(tickers) == 0 {
		return out
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		throttled bool
		sem       = make(chan struct{}, batchWorkers)
	)

	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			key := "intraday:" + ticker
			if v, ok := s.cache.Get(key); ok {
				r := v.(models.IntradayResult)
				mu.Lock()
				out.Changes[ticker] = r.PctChange
				mu.Unlock()
				return
			}

			result, err := s.fetchIntraday(ctx, ticker)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if yahoo.IsThrottled(err) {
					throttled = true
				}
				return
			}
			s.cache.Set(key, result, common.FreshnessIntraday)
			out.Changes[ticker] = result.PctChange
		}(ticker)
	}
	wg.Wait()

	if throttled {
		s.logger.Warn().Int("tickers", len(tickers)).Msg("Batch quote fetch throttled; returning zeros")
		for t := range out.Changes {
			out.Changes[t] = 0
		}
		out.Throttled = true
	}
	return out
}

// Snapshot assembles a typed QuoteSnapshot from the merged ticker info.
// Valid is false when nothing was retrievable.
func (s *Service) Snapshot(ctx context.Context, ticker string) *models.QuoteSnapshot {
	info := s.GetTickerInfo(ctx, ticker)
	snap := &models.QuoteSnapshot{Ticker: ticker}
	if len(info) == 0 {
		return snap
	}

	snap.LastPrice = getFloat(info, "regularMarketPrice", "currentPrice")
	snap.PreviousClose = getFloat(info, "regularMarketPreviousClose", "previousClose")
	snap.ChangePct = getFloat(info, "regularMarketChangePercent")
	if snap.ChangePct == 0 && snap.PreviousClose > 0 && snap.LastPrice > 0 {
		snap.ChangePct = (snap.LastPrice - snap.PreviousClose) / snap.PreviousClose * 100
	}
	snap.DayOpen = getFloat(info, "regularMarketOpen", "open")
	snap.DayHigh = getFloat(info, "regularMarketDayHigh", "dayHigh")
	snap.DayLow = getFloat(info, "regularMarketDayLow", "dayLow")
	snap.Week52Low = getFloat(info, "fiftyTwoWeekLow")
	snap.Week52High = getFloat(info, "fiftyTwoWeekHigh")
	snap.MarketCap = getFloat(info, "marketCap")
	snap.Volume = int64(getFloat(info, "regularMarketVolume", "volume"))
	snap.AvgVolume = int64(getFloat(info, "averageDailyVolume3Month", "averageVolume"))
	snap.Beta = getFloat(info, "beta")
	snap.TrailingPE = getFloat(info, "trailingPE")
	snap.ForwardPE = getFloat(info, "forwardPE")
	snap.PriceToSales = getFloat(info, "priceToSalesTrailing12Months")
	snap.PriceToBook = getFloat(info, "priceToBook")
	snap.TrailingEPS = getFloat(info, "trailingEps", "epsTrailingTwelveMonths")
	snap.DividendYield = getFloat(info, "dividendYield", "trailingAnnualDividendYield")
	snap.ShortName = getString(info, "shortName")
	snap.LongName = getString(info, "longName")
	snap.Valid = snap.LastPrice > 0
	return snap
}

// snapshotToMap converts a flat quote result into the merged-info key space.
func snapshotToMap(snap *models.QuoteSnapshot) map[string]interface{} {
	info := make(map[string]interface{})
	setFloat := func(key string, v float64) {
		if v != 0 {
			info[key] = v
		}
	}
	setFloat("regularMarketPrice", snap.LastPrice)
	setFloat("regularMarketPreviousClose", snap.PreviousClose)
	setFloat("regularMarketChangePercent", snap.ChangePct)
	setFloat("regularMarketOpen", snap.DayOpen)
	setFloat("regularMarketDayHigh", snap.DayHigh)
	setFloat("regularMarketDayLow", snap.DayLow)
	setFloat("fiftyTwoWeekLow", snap.Week52Low)
	setFloat("fiftyTwoWeekHigh", snap.Week52High)
	setFloat("marketCap", snap.MarketCap)
	setFloat("regularMarketVolume", float64(snap.Volume))
	setFloat("averageDailyVolume3Month", float64(snap.AvgVolume))
	setFloat("trailingPE", snap.TrailingPE)
	setFloat("forwardPE", snap.ForwardPE)
	setFloat("priceToBook", snap.PriceToBook)
	setFloat("epsTrailingTwelveMonths", snap.TrailingEPS)
	setFloat("trailingAnnualDividendYield", snap.DividendYield)
	if snap.ShortName != "" {
		info["shortName"] = snap.ShortName
	}
	if snap.LongName != "" {
		info["longName"] = snap.LongName
	}
	return info
}

func getFloat(info map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := info[k]; ok {
			if f, ok := v.(float64); ok && f != 0 {
				return f
			}
		}
	}
	return 0
}

func getString(info map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := info[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// Ensure Service implements QuoteService
var _ interfaces.QuoteService = (*Service)(nil)
