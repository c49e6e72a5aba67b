package app

import (
	"context"
	"time"
)

// runQuoteScheduler refreshes daily changes for the current constituents on
// a fixed interval so the heatmap serves warm data.
func (a *App) runQuoteScheduler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.Logger.Info().Msg("Quote scheduler: stopped")
			return
		case <-ticker.C:
			a.refreshQuotes(ctx)
		}
	}
}

func (a *App) refreshQuotes(ctx context.Context) {
	start := time.Now()

	holdings, err := a.Loader.LoadCurrentHoldings()
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Quote refresh: holdings unavailable")
		return
	}

	tickers := make([]string, 0, len(holdings))
	for _, h := range holdings {
		tickers = append(tickers, h.Ticker)
	}
	if len(tickers) == 0 {
		return
	}

	batch := a.Quotes.BatchDailyChanges(ctx, tickers)
	if batch.Throttled {
		a.Logger.Warn().Int("tickers", len(tickers)).Msg("Quote refresh: throttled by host")
		return
	}

	a.Logger.Info().
		Int("tickers", len(tickers)).
		Dur("elapsed", time.Since(start)).
		Msg("Quote refresh: complete")
}
