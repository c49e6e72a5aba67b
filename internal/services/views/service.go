// Package views assembles the read-only page payloads from the underlying
// analytics and quote services. Handlers call one method per page; all
// composition and degradation policy lives here.
package views

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/buzzindex/buzzboard/internal/common"
	"github.com/buzzindex/buzzboard/internal/history"
	"github.com/buzzindex/buzzboard/internal/interfaces"
	"github.com/buzzindex/buzzboard/internal/loader"
	"github.com/buzzindex/buzzboard/internal/models"
	"github.com/buzzindex/buzzboard/internal/services/conviction"
	"github.com/buzzindex/buzzboard/internal/services/sector"
	"github.com/buzzindex/buzzboard/internal/services/tenure"
	"github.com/buzzindex/buzzboard/internal/services/turnover"
)

// DefaultTimeframe is applied when a request omits the timeframe.
const DefaultTimeframe = "6mo"

// topChangesCount is how many weight movers the turnover page lists.
const topChangesCount = 10

// timeframes maps an accepted timeframe to the chart interval and range.
var timeframes = map[string][2]string{
	"1d":  {"5m", "1d"},
	"5d":  {"15m", "5d"},
	"1mo": {"1d", "1mo"},
	"6mo": {"1d", "6mo"},
	"ytd": {"1d", "ytd"},
	"1y":  {"1d", "1y"},
	"5y":  {"1wk", "5y"},
	"max": {"1mo", "max"},
}

// Service builds view payloads. All fields are required except logger.
type Service struct {
	cfg        *common.Config
	loader     *loader.Loader
	index      *history.Index
	turnover   *turnover.Service
	conviction *conviction.Service
	tenure     *tenure.Service
	sector     *sector.Service
	quotes     interfaces.QuoteService
	client     interfaces.QuoteClient
	logger     *common.Logger
}

// NewService wires the view layer over the analytics services.
func NewService(
	cfg *common.Config,
	ld *loader.Loader,
	index *history.Index,
	turnoverSvc *turnover.Service,
	convictionSvc *conviction.Service,
	tenureSvc *tenure.Service,
	sectorSvc *sector.Service,
	quotes interfaces.QuoteService,
	client interfaces.QuoteClient,
	logger *common.Logger,
) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		cfg:        cfg,
		loader:     ld,
		index:      index,
		turnover:   turnoverSvc,
		conviction: convictionSvc,
		tenure:     tenureSvc,
		sector:     sectorSvc,
		quotes:     quotes,
		client:     client,
		logger:     logger,
	}
}

// NormalizeTimeframe lower-cases a timeframe and substitutes the default
// for empty or unknown values.
func NormalizeTimeframe(tf string) string {
	tf = strings.ToLower(strings.TrimSpace(tf))
	if _, ok := timeframes[tf]; !ok {
		return DefaultTimeframe
	}
	return tf
}

// Holdings returns the current snapshot rows sorted by weight descending.
// A non-empty filter keeps rows whose ticker or company name contains it,
// case-insensitively.
func (s *Service) Holdings(filter string) ([]models.Holding, error) {
	holdings, err := s.loader.LoadCurrentHoldings()
	if err != nil {
		return nil, err
	}

	filter = strings.ToLower(strings.TrimSpace(filter))
	out := make([]models.Holding, 0, len(holdings))
	for _, h := range holdings {
		if filter != "" &&
			!strings.Contains(strings.ToLower(h.Ticker), filter) &&
			!strings.Contains(strings.ToLower(h.Company), filter) {
			continue
		}
		out = append(out, h)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out, nil
}

// Snapshot builds the full per-ticker page. Live data degrades to zero
// values; only an unknown ticker is an error.
func (s *Service) Snapshot(ctx context.Context, ticker, timeframe string) (*models.SnapshotView, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	timeframe = NormalizeTimeframe(timeframe)

	holdings, err := s.loader.LoadCurrentHoldings()
	if err != nil {
		return nil, err
	}

	var held *models.Holding
	for i := range holdings {
		if holdings[i].Ticker == ticker {
			held = &holdings[i]
			break
		}
	}
	if held == nil && len(s.index.TickerSeries(ticker)) == 0 {
		return nil, fmt.Errorf("ticker %s: %w", ticker, common.ErrNotFound)
	}

	view := &models.SnapshotView{Ticker: ticker, Timeframe: timeframe}

	snap := s.quotes.Snapshot(ctx, ticker)
	view.Valid = snap.Valid
	view.Price = snap.LastPrice
	view.DailyChange = snap.ChangePct
	view.MarketCap = snap.MarketCap
	view.Week52Low = snap.Week52Low
	view.Week52High = snap.Week52High
	view.Volume = snap.Volume
	if snap.AvgVolume > 0 {
		view.RelativeVolume = float64(snap.Volume) / float64(snap.AvgVolume)
	}
	view.Beta = snap.Beta
	view.TrailingPE = snap.TrailingPE
	view.ForwardPE = snap.ForwardPE
	view.PriceToSales = snap.PriceToSales
	view.PriceToBook = snap.PriceToBook
	view.TrailingEPS = snap.TrailingEPS
	view.DividendYield = snap.DividendYield

	if ret, ok := s.periodReturn(ctx, ticker, timeframe); ok {
		view.PeriodReturn = ret
	}

	view.TenureMonths = s.tenure.CurrentTenure(ticker)
	if held != nil {
		view.PctNetAssets = held.Weight * 100
		view.MarketValueUSD = held.MarketValueUSD
		if view.MarketValueUSD == 0 {
			view.MarketValueUSD = held.Weight * s.cfg.Data.AssumedFundValue
		}
	}
	if first, ok := s.tenure.FirstAppearance(ticker); ok {
		view.FirstAppearance = &first
	}
	if r, err := s.tenure.HistoricalWeightRange(ticker); err == nil {
		view.WeightRange = &r
	}

	if profiles, err := s.loader.LoadDescriptions(); err == nil {
		if p, ok := profiles[ticker]; ok {
			view.Description = p.Description
		}
	}

	view.News = s.quotes.News(ctx, ticker)
	return view, nil
}

// periodReturn computes the percent return over the timeframe from the
// chart endpoint. ok is false when the series is unavailable.
func (s *Service) periodReturn(ctx context.Context, symbol, timeframe string) (float64, bool) {
	bars, err := s.chartSeries(ctx, symbol, timeframe)
	if err != nil || len(bars) < 2 {
		return 0, false
	}
	first := bars[0].Close
	last := bars[len(bars)-1].Close
	if first <= 0 {
		return 0, false
	}
	return (last - first) / first * 100, true
}

func (s *Service) chartSeries(ctx context.Context, symbol, timeframe string) ([]models.PriceBar, error) {
	params := timeframes[NormalizeTimeframe(timeframe)]
	return s.client.Chart(ctx, symbol, params[0], params[1])
}

// IndexPerformance builds the index price page, optionally with comparison
// symbols normalized to 100 at the window start. The index series itself is
// required; a comparison that fails to load is skipped with a log line.
func (s *Service) IndexPerformance(ctx context.Context, timeframe string, compare []string) (*models.PerformanceView, error) {
	timeframe = NormalizeTimeframe(timeframe)
	symbol := s.cfg.IndexSymbol

	bars, err := s.chartSeries(ctx, symbol, timeframe)
	if err != nil {
		return nil, fmt.Errorf("loading %s series: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("loading %s series: %w", symbol, common.ErrUpstreamUnavailable)
	}

	view := &models.PerformanceView{
		Symbol:    symbol,
		Timeframe: timeframe,
		Series:    bars,
	}
	view.Price = bars[len(bars)-1].Close
	if first := bars[0].Close; first > 0 {
		view.PeriodReturn = (view.Price - first) / first * 100
	}
	if r := s.quotes.Intraday(ctx, symbol); r.Valid {
		view.Price = r.Price
		view.DailyChange = r.PctChange
	}

	if len(compare) > 0 {
		view.Comparisons = append(view.Comparisons, normalize(symbol, bars))
		for _, c := range compare {
			c = strings.ToUpper(strings.TrimSpace(c))
			if c == "" || c == symbol {
				continue
			}
			cb, err := s.chartSeries(ctx, c, timeframe)
			if err != nil || len(cb) == 0 {
				s.logger.Warn().Err(err).Str("symbol", c).Msg("Comparison series unavailable; skipping")
				continue
			}
			view.Comparisons = append(view.Comparisons, normalize(c, cb))
		}
	}
	return view, nil
}

// normalize rebases a close series to 100 at its first bar.
func normalize(symbol string, bars []models.PriceBar) models.Normalized {
	out := models.Normalized{Symbol: symbol}
	if len(bars) == 0 || bars[0].Close <= 0 {
		return out
	}
	base := bars[0].Close
	out.Points = make([]models.TimeValue, len(bars))
	for i, b := range bars {
		out.Points[i] = models.TimeValue{Time: b.Time, Value: b.Close / base * 100}
	}
	return out
}

// Conviction builds the sentiment ranking page from history alone.
func (s *Service) Conviction() *models.ConvictionView {
	ranking := s.conviction.CurrentRanking()

	sparklines := make(map[string][]float64, len(ranking))
	for _, e := range ranking {
		sparklines[e.Ticker] = s.conviction.Sparkline(e.Ticker, conviction.DefaultSparklineLen)
	}

	latest, _ := s.index.LatestDate()
	return &models.ConvictionView{
		Ranking:    ranking,
		Tiers:      conviction.TierGroups(ranking),
		Sparklines: sparklines,
		KPIs:       s.conviction.KPIs(),
		Regime:     s.conviction.RegimeLeaders(),
		Crown:      s.conviction.CumulativeCrownHolders(latest, conviction.DefaultCrownHolders),
	}
}

// Turnover builds the turnover page. The snapshot CSVs are optional; the
// top-changes table shrinks to history-only names when they are missing.
func (s *Service) Turnover() (*models.TurnoverView, error) {
	current, err := s.loader.LoadCurrentHoldings()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Current holdings unavailable for top changes")
	}
	lastMonth, err := s.loader.LoadLastMonth()
	if err != nil {
		s.logger.Debug().Err(err).Msg("Last-month holdings unavailable for top changes")
	}

	return &models.TurnoverView{
		Series:     s.turnover.MonthlySeries(),
		Stats:      s.turnover.AllStats(),
		TopChanges: s.turnover.TopWeightChanges(topChangesCount, current, lastMonth),
	}, nil
}

// Heatmap joins current weights with one batched daily-change fetch.
func (s *Service) Heatmap(ctx context.Context) (*models.HeatmapView, error) {
	holdings, err := s.loader.LoadCurrentHoldings()
	if err != nil {
		return nil, err
	}

	tickers := make([]string, len(holdings))
	for i, h := range holdings {
		tickers[i] = h.Ticker
	}
	batch := s.quotes.BatchDailyChanges(ctx, tickers)

	view := &models.HeatmapView{
		Nodes:      s.sector.TreemapNodes(holdings, batch.Changes),
		Aggregates: s.sector.Aggregates(holdings, batch.Changes),
		Throttled:  batch.Throttled,
	}
	view.BestPerformer, _ = s.sector.BestPerformer(batch.Changes)
	view.WorstPerformer, _ = s.sector.WorstPerformer(batch.Changes)
	view.Gainers = s.sector.CountGainers(batch.Changes)
	view.Losers = s.sector.CountLosers(batch.Changes)
	return view, nil
}
