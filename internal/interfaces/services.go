package interfaces

import (
	"context"

	"github.com/buzzindex/buzzboard/internal/models"
)

// QuoteService produces live market data with tiered caching and fallback.
// No call returns a transport error to the caller except Calendar, whose
// failures must not be cached (the caller presents "N/A").
type QuoteService interface {
	// KeyMetrics returns slow-changing fundamentals (TTL 6h).
	KeyMetrics(ctx context.Context, ticker string) map[string]interface{}

	// LiveData returns the fast-moving quote fields (TTL 10m).
	LiveData(ctx context.Context, ticker string) map[string]interface{}

	// GetTickerInfo merges KeyMetrics and LiveData; later fields overwrite.
	GetTickerInfo(ctx context.Context, ticker string) map[string]interface{}

	// Intraday returns the latest price and daily percent change (TTL 10m).
	Intraday(ctx context.Context, ticker string) models.IntradayResult

	// Calendar returns upcoming events; errors are propagated, not cached.
	Calendar(ctx context.Context, ticker string) (*models.CalendarEvents, error)

	// News returns recent news; empty results are not cached.
	News(ctx context.Context, ticker string) []*models.NewsItem

	// BatchDailyChanges fetches daily percent changes for many tickers at once.
	// Missing or failed tickers yield 0.
	BatchDailyChanges(ctx context.Context, tickers []string) models.BatchChanges

	// Snapshot assembles a typed QuoteSnapshot from the merged info.
	Snapshot(ctx context.Context, ticker string) *models.QuoteSnapshot
}
