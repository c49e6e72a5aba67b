// Package app wires configuration, data loading, and services into the
// shared core used by cmd/buzz-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/buzzindex/buzzboard/internal/clients/yahoo"
	"github.com/buzzindex/buzzboard/internal/common"
	"github.com/buzzindex/buzzboard/internal/history"
	"github.com/buzzindex/buzzboard/internal/interfaces"
	"github.com/buzzindex/buzzboard/internal/loader"
	"github.com/buzzindex/buzzboard/internal/services/conviction"
	"github.com/buzzindex/buzzboard/internal/services/quote"
	"github.com/buzzindex/buzzboard/internal/services/sector"
	"github.com/buzzindex/buzzboard/internal/services/tenure"
	"github.com/buzzindex/buzzboard/internal/services/turnover"
	"github.com/buzzindex/buzzboard/internal/services/views"
)

// App holds all initialized services and clients.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Loader      *loader.Loader
	Index       *history.Index
	QuoteClient interfaces.QuoteClient
	Quotes      interfaces.QuoteService
	Turnover    *turnover.Service
	Conviction  *conviction.Service
	Tenure      *tenure.Service
	Sector      *sector.Service
	Views       *views.Service
	StartupTime time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp loads configuration and the CSV history, then builds every service.
// configPath may be empty, in which case BUZZ_CONFIG and the binary
// directory are checked before falling back to config/buzzboard.toml.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("BUZZ_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "buzzboard.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/buzzboard.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative paths to the binary directory
	if config.Data.Dir != "" && !filepath.IsAbs(config.Data.Dir) {
		if _, err := os.Stat(config.Data.Dir); os.IsNotExist(err) {
			config.Data.Dir = filepath.Join(binDir, config.Data.Dir)
		}
	}
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	ld := loader.New(config.Data, logger)

	rows, err := ld.LoadHistorical()
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings history: %w", err)
	}
	index := history.NewIndex(rows)

	precomputed, err := ld.LoadPrecomputedTurnover()
	if err != nil {
		logger.Warn().Err(err).Msg("Precomputed turnover unavailable; deriving from history")
	}

	sectors, err := ld.LoadSectorMap()
	if err != nil {
		logger.Debug().Err(err).Msg("Sector table unavailable; using built-in defaults")
	}

	quoteClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Quotes.BaseURL),
		yahoo.WithRateLimit(config.Clients.Quotes.RateLimit),
		yahoo.WithTimeout(config.Clients.Quotes.GetTimeout()),
		yahoo.WithLogger(logger),
	)

	quotes := quote.NewService(quoteClient, nil, logger)

	turnoverSvc := turnover.NewService(index, precomputed, logger)
	convictionSvc := conviction.NewService(index, logger)
	tenureSvc := tenure.NewService(index, logger)
	sectorSvc := sector.NewService(sectors, logger)

	viewsSvc := views.NewService(config, ld, index,
		turnoverSvc, convictionSvc, tenureSvc, sectorSvc,
		quotes, quoteClient, logger)

	app := &App{
		Config:      config,
		Logger:      logger,
		Loader:      ld,
		Index:       index,
		QuoteClient: quoteClient,
		Quotes:      quotes,
		Turnover:    turnoverSvc,
		Conviction:  convictionSvc,
		Tenure:      tenureSvc,
		Sector:      sectorSvc,
		Views:       viewsSvc,
		StartupTime: time.Now(),
	}

	latest, _ := index.LatestDate()
	logger.Info().
		Int("rebalances", len(index.Dates())).
		Int("tickers", len(index.Tickers())).
		Str("latest", latest.Format("2006-01-02")).
		Dur("elapsed", time.Since(startupStart)).
		Msg("Application initialized")

	return app, nil
}

// StartScheduler launches the background quote refresh loop.
func (a *App) StartScheduler() {
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	go a.runQuoteScheduler(ctx, a.Config.Clients.Quotes.GetRefreshInterval())
}

// Close stops background work.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
	}
}
