// Package interfaces defines service contracts for Buzzboard
package interfaces

import (
	"context"

	"github.com/buzzindex/buzzboard/internal/models"
)

// QuoteSummaryModule names a quoteSummary module on the quote host.
type QuoteSummaryModule string

const (
	ModuleDefaultKeyStatistics QuoteSummaryModule = "defaultKeyStatistics"
	ModuleSummaryDetail        QuoteSummaryModule = "summaryDetail"
	ModulePrice                QuoteSummaryModule = "price"
	ModuleCalendarEvents       QuoteSummaryModule = "calendarEvents"
)

// QuoteClient is the HTTP client contract for the public quote host.
// Implementations must honour context cancellation and the configured
// wall-clock timeout on every call.
type QuoteClient interface {
	// QuoteSummary fetches the requested quoteSummary modules (endpoint A).
	// Wrapped {raw, fmt} values are flattened to their raw form.
	QuoteSummary(ctx context.Context, ticker string, modules ...QuoteSummaryModule) (map[string]interface{}, error)

	// Quote fetches the flat quote endpoint (endpoint B) for one or more symbols.
	Quote(ctx context.Context, symbols ...string) (map[string]*models.QuoteSnapshot, error)

	// Chart fetches OHLCV bars, e.g. interval "1m" range "2d".
	Chart(ctx context.Context, ticker, interval, rng string) ([]models.PriceBar, error)

	// Calendar fetches upcoming corporate events.
	Calendar(ctx context.Context, ticker string) (*models.CalendarEvents, error)

	// News fetches up to limit recent news items for a ticker.
	News(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error)
}
