// Package loader reads the bundled BUZZ index CSV files into memory.
//
// Two snapshot shapes are recognised: the modern export with a
// `Ticker,Company,Weight,MarketValue` header on the first line, and the
// legacy fund export with two preamble lines and percent-formatted weights.
// Both map to the same internal schema before anything downstream sees them.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/buzzindex/buzzboard/internal/common"
	"github.com/buzzindex/buzzboard/internal/models"
)

// asOfPattern extracts the snapshot date from filenames like BUZZ_asof_20240131.csv.
var asOfPattern = regexp.MustCompile(`BUZZ_asof_(\d{8})`)

// Loader reads and memoizes the CSV inputs. Results are cached per file
// keyed by mtime, so replacing a file invalidates on next access.
type Loader struct {
	cfg    common.DataConfig
	logger *common.Logger

	mu    sync.Mutex
	cache map[string]*cacheEntry

	droppedMu sync.Mutex
	dropped   map[string]int // file → skipped row count
}

type cacheEntry struct {
	mtime time.Time
	value interface{}
}

// New creates a Loader for the configured data directory.
func New(cfg common.DataConfig, logger *common.Logger) *Loader {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Loader{
		cfg:     cfg,
		logger:  logger,
		cache:   make(map[string]*cacheEntry),
		dropped: make(map[string]int),
	}
}

// DroppedRows returns the number of rows skipped for a file on its last load.
func (l *Loader) DroppedRows(name string) int {
	l.droppedMu.Lock()
	defer l.droppedMu.Unlock()
	return l.dropped[name]
}

func (l *Loader) setDropped(name string, n int) {
	l.droppedMu.Lock()
	l.dropped[name] = n
	l.droppedMu.Unlock()
}

// cached runs load for path unless a cache entry with the same mtime exists.
func (l *Loader) cached(path string, load func(data []byte, mtime time.Time) (interface{}, error)) (interface{}, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, common.ErrNotFound)
	}

	l.mu.Lock()
	if entry, ok := l.cache[path]; ok && entry.mtime.Equal(info.ModTime()) {
		l.mu.Unlock()
		return entry.value, nil
	}
	l.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	value, err := load(data, info.ModTime())
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[path] = &cacheEntry{mtime: info.ModTime(), value: value}
	l.mu.Unlock()

	return value, nil
}

// --- current holdings ---

// modernHoldingRow is the `Ticker,Company,Weight,MarketValue` shape.
type modernHoldingRow struct {
	Ticker      string `csv:"Ticker"`
	Company     string `csv:"Company"`
	Weight      string `csv:"Weight"`
	MarketValue string `csv:"MarketValue"`
}

// legacyHoldingRow is the fund export shape behind two preamble lines.
type legacyHoldingRow struct {
	Ticker      string `csv:"Ticker"`
	HoldingName string `csv:"Holding Name"`
	AssetClass  string `csv:"Asset Class"`
	PctNet      string `csv:"% of Net Assets"`
	MarketValue string `csv:"Market Value (US$)"`
}

// LoadCurrentHoldings reads the current snapshot CSV, detecting its shape
// from the first line.
func (l *Loader) LoadCurrentHoldings() ([]models.Holding, error) {
	path := l.cfg.Path(l.cfg.CurrentHoldings)
	v, err := l.cached(path, func(data []byte, mtime time.Time) (interface{}, error) {
		return l.parseHoldings(path, data, mtime)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Holding), nil
}

// LoadLastMonth reads the optional prior-month snapshot, same shapes as the
// current holdings file. A missing file is not an error for callers that
// treat it as a fallback; they check for common.ErrNotFound.
func (l *Loader) LoadLastMonth() ([]models.Holding, error) {
	path := l.cfg.Path(l.cfg.LastMonth)
	v, err := l.cached(path, func(data []byte, mtime time.Time) (interface{}, error) {
		return l.parseHoldings(path, data, mtime)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Holding), nil
}

func (l *Loader) parseHoldings(path string, data []byte, mtime time.Time) ([]models.Holding, error) {
	asOf := asOfFromName(filepath.Base(path), mtime)
	text := string(data)
	firstLine, _, _ := strings.Cut(text, "\n")

	var holdings []models.Holding
	var skipped int

	if strings.HasPrefix(strings.TrimSpace(firstLine), "Ticker,") {
		var rows []*modernHoldingRow
		if err := gocsv.UnmarshalString(text, &rows); err != nil {
			return nil, common.NewConfigurationError(path, "malformed holdings CSV: %v", err)
		}
		if err := requireColumns(firstLine, "Ticker", "Company", "Weight", "MarketValue"); err != nil {
			return nil, common.NewConfigurationError(path, "%v", err)
		}
		for _, row := range rows {
			h, ok := l.holdingFromCells(row.Ticker, row.Company, row.Weight, row.MarketValue, asOf, false)
			if !ok {
				skipped++
				continue
			}
			holdings = append(holdings, h)
		}
	} else {
		// Legacy shape: two preamble lines before the header.
		lines := strings.SplitN(text, "\n", 3)
		if len(lines) < 3 {
			return nil, common.NewConfigurationError(path, "legacy holdings CSV too short")
		}
		body := lines[2]
		header, _, _ := strings.Cut(body, "\n")
		if err := requireColumns(header, "Ticker", "Holding Name", "% of Net Assets"); err != nil {
			return nil, common.NewConfigurationError(path, "%v", err)
		}
		var rows []*legacyHoldingRow
		if err := gocsv.UnmarshalString(body, &rows); err != nil {
			return nil, common.NewConfigurationError(path, "malformed holdings CSV: %v", err)
		}
		for _, row := range rows {
			h, ok := l.holdingFromCells(row.Ticker, row.HoldingName, row.PctNet, row.MarketValue, asOf, true)
			if !ok {
				skipped++
				continue
			}
			holdings = append(holdings, h)
		}
	}

	l.setDropped(filepath.Base(path), skipped)
	if skipped > 0 {
		l.logger.Warn().Str("file", filepath.Base(path)).Int("skipped", skipped).Msg("Dropped malformed holding rows")
	}
	return holdings, nil
}

func (l *Loader) holdingFromCells(ticker, company, weight, marketValue string, asOf time.Time, percentUnits bool) (models.Holding, bool) {
	t := normalizeTicker(ticker)
	if t == "" {
		return models.Holding{}, false
	}
	w, err := parseNumeric(weight)
	if err != nil || w <= 0 {
		return models.Holding{}, false
	}
	// Legacy `% of Net Assets` is always percent; the modern shape is a
	// fraction unless the value is above 1, which betrays percent units.
	if percentUnits || w > 1 {
		w /= 100
	}
	mv, _ := parseNumeric(marketValue)
	if mv == 0 {
		mv = w * l.cfg.AssumedFundValue
	}
	return models.Holding{
		Ticker:         t,
		Company:        strings.TrimSpace(company),
		Weight:         w,
		MarketValueUSD: mv,
		AsOf:           asOf,
	}, true
}

// --- historical ---

type historicalRow struct {
	RebalanceDate string `csv:"Rebalance_date"`
	Ticker        string `csv:"Ticker"`
	Weight        string `csv:"Weight"`
	Score         string `csv:"Score"`
}

// LoadHistorical reads the long-format history. Dates are DD/MM/YYYY.
// FB is renamed to META; TWTR and rows with zero weight or no score are dropped.
func (l *Loader) LoadHistorical() ([]models.HistoricalRow, error) {
	path := l.cfg.Path(l.cfg.Historical)
	v, err := l.cached(path, func(data []byte, _ time.Time) (interface{}, error) {
		text := string(data)
		header, _, _ := strings.Cut(text, "\n")
		if err := requireColumns(header, "Rebalance_date", "Ticker", "Weight", "Score"); err != nil {
			return nil, common.NewConfigurationError(path, "%v", err)
		}

		var rows []*historicalRow
		if err := gocsv.UnmarshalString(text, &rows); err != nil {
			return nil, common.NewConfigurationError(path, "malformed historical CSV: %v", err)
		}

		var out []models.HistoricalRow
		var skipped int
		for _, row := range rows {
			date, err := time.Parse("02/01/2006", strings.TrimSpace(row.RebalanceDate))
			if err != nil {
				skipped++
				continue
			}
			ticker := normalizeTicker(row.Ticker)
			if ticker == "FB" {
				ticker = "META"
			}
			if ticker == "" || ticker == "TWTR" {
				skipped++
				continue
			}
			weight, err := parseNumeric(row.Weight)
			if err != nil || weight <= 0 {
				skipped++
				continue
			}
			score, err := parseNumeric(row.Score)
			if err != nil || strings.TrimSpace(row.Score) == "" {
				skipped++
				continue
			}
			out = append(out, models.HistoricalRow{
				RebalanceDate: date,
				Ticker:        ticker,
				Weight:        weight,
				Score:         score,
			})
		}

		l.setDropped(filepath.Base(path), skipped)
		if skipped > 0 {
			l.logger.Debug().Str("file", filepath.Base(path)).Int("skipped", skipped).Msg("Dropped historical rows")
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.HistoricalRow), nil
}

// --- precomputed turnover ---

type turnoverRow struct {
	RebalanceDate string `csv:"Rebalance_date"`
	TurnoverPct   string `csv:"Monthly_Turnover_Rate_Percent"`
}

// LoadPrecomputedTurnover reads the optional turnover series CSV (ISO dates).
func (l *Loader) LoadPrecomputedTurnover() ([]models.TurnoverPoint, error) {
	path := l.cfg.Path(l.cfg.Turnover)
	v, err := l.cached(path, func(data []byte, _ time.Time) (interface{}, error) {
		var rows []*turnoverRow
		if err := gocsv.UnmarshalString(string(data), &rows); err != nil {
			return nil, common.NewConfigurationError(path, "malformed turnover CSV: %v", err)
		}
		var out []models.TurnoverPoint
		for _, row := range rows {
			date, err := time.Parse("2006-01-02", strings.TrimSpace(row.RebalanceDate))
			if err != nil {
				continue
			}
			pct, err := parseNumeric(row.TurnoverPct)
			if err != nil {
				continue
			}
			out = append(out, models.TurnoverPoint{RebalanceDate: date, TurnoverPct: pct})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.TurnoverPoint), nil
}

// --- descriptions ---

type descriptionRow struct {
	Ticker      string `csv:"Ticker"`
	Company     string `csv:"Company"`
	Description string `csv:"Description"`
}

// LoadDescriptions reads the company description table keyed by ticker.
func (l *Loader) LoadDescriptions() (map[string]models.CompanyProfile, error) {
	path := l.cfg.Path(l.cfg.Descriptions)
	v, err := l.cached(path, func(data []byte, _ time.Time) (interface{}, error) {
		var rows []*descriptionRow
		if err := gocsv.UnmarshalString(string(data), &rows); err != nil {
			return nil, common.NewConfigurationError(path, "malformed description CSV: %v", err)
		}
		out := make(map[string]models.CompanyProfile, len(rows))
		for _, row := range rows {
			t := normalizeTicker(row.Ticker)
			if t == "" {
				continue
			}
			out[t] = models.CompanyProfile{
				Ticker:      t,
				Company:     strings.TrimSpace(row.Company),
				Description: strings.TrimSpace(row.Description),
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]models.CompanyProfile), nil
}

// --- sector map ---

type sectorRow struct {
	Ticker string `csv:"Ticker"`
	Sector string `csv:"Sector"`
}

// LoadSectorMap reads the ticker→sector table.
func (l *Loader) LoadSectorMap() (map[string]string, error) {
	path := l.cfg.Path(l.cfg.Sectors)
	v, err := l.cached(path, func(data []byte, _ time.Time) (interface{}, error) {
		var rows []*sectorRow
		if err := gocsv.UnmarshalString(string(data), &rows); err != nil {
			return nil, common.NewConfigurationError(path, "malformed sector CSV: %v", err)
		}
		out := make(map[string]string, len(rows))
		for _, row := range rows {
			t := normalizeTicker(row.Ticker)
			if t == "" {
				continue
			}
			out[t] = strings.TrimSpace(row.Sector)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

// --- helpers ---

// normalizeTicker uppercases and strips the country suffix: the ticker is
// the first whitespace-delimited token of the cell ("AAPL US" → "AAPL").
func normalizeTicker(raw string) string {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// parseNumeric strips currency formatting ($, commas, %) before parsing.
func parseNumeric(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "%", "")
	if s == "" {
		return 0, fmt.Errorf("empty numeric cell")
	}
	return strconv.ParseFloat(s, 64)
}

// requireColumns verifies the header line carries every required column.
func requireColumns(header string, cols ...string) error {
	present := make(map[string]bool)
	for _, c := range strings.Split(strings.TrimSpace(header), ",") {
		present[strings.TrimSpace(c)] = true
	}
	for _, c := range cols {
		if !present[c] {
			return fmt.Errorf("missing required column %q", c)
		}
	}
	return nil
}

// asOfFromName derives the snapshot date from a BUZZ_asof_YYYYMMDD filename,
// falling back to the file mtime.
func asOfFromName(name string, mtime time.Time) time.Time {
	if m := asOfPattern.FindStringSubmatch(name); m != nil {
		if d, err := time.Parse("20060102", m[1]); err == nil {
			return d
		}
	}
	return mtime.Truncate(24 * time.Hour)
}
