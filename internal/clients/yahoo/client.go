// Package yahoo provides a client for the public finance quote host.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/buzzindex/buzzboard/internal/common"
	"github.com/buzzindex/buzzboard/internal/interfaces"
	"github.com/buzzindex/buzzboard/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second
	userAgent        = "Mozilla/5.0"
)

// Client implements the QuoteClient interface against the quote host.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new quote host client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a quote host error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quote host error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// IsThrottled reports whether err is an HTTP 429 from the quote host.
func IsThrottled(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug().Str("path", path).Msg("Quote host request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// --- quoteSummary (endpoint A) ---

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]map[string]json.RawMessage `json:"result"`
		Error  *hostError                              `json:"error"`
	} `json:"quoteSummary"`
}

type hostError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// QuoteSummary fetches the requested modules and flattens every field into a
// single map. Numeric nodes arrive as {"raw": n, "fmt": "..."} envelopes and
// are unwrapped to their raw values.
func (c *Client) QuoteSummary(ctx context.Context, ticker string, modules ...interfaces.QuoteSummaryModule) (map[string]interface{}, error) {
	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = string(m)
	}

	params := url.Values{}
	params.Set("modules", strings.Join(names, ","))

	path := fmt.Sprintf("/v10/finance/quoteSummary/%s", url.PathEscape(ticker))

	var resp quoteSummaryResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteSummary.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusBadGateway,
			Message:    resp.QuoteSummary.Error.Description,
			Endpoint:   path,
		}
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("quoteSummary %s: empty result", ticker)
	}

	out := make(map[string]interface{})
	for _, moduleFields := range resp.QuoteSummary.Result[0] {
		for field, raw := range moduleFields {
			if v, ok := unwrapValue(raw); ok {
				out[field] = v
			}
		}
	}
	return out, nil
}

// unwrapValue decodes a quoteSummary field node: either a plain scalar or a
// {"raw": ..., "fmt": ...} envelope.
func unwrapValue(raw json.RawMessage) (interface{}, bool) {
	var envelope struct {
		Raw *json.Number `json:"raw"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Raw != nil {
		if f, err := envelope.Raw.Float64(); err == nil {
			return f, true
		}
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if f, err := num.Float64(); err == nil {
			return f, true
		}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}

	return nil, false
}

// --- quote (endpoint B) ---

type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
		Error  *hostError    `json:"error"`
	} `json:"quoteResponse"`
}

type quoteResult struct {
	Symbol                     string  `json:"symbol"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
	RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
	RegularMarketOpen          float64 `json:"regularMarketOpen"`
	RegularMarketDayHigh       float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow        float64 `json:"regularMarketDayLow"`
	FiftyTwoWeekLow            float64 `json:"fiftyTwoWeekLow"`
	FiftyTwoWeekHigh           float64 `json:"fiftyTwoWeekHigh"`
	MarketCap                  float64 `json:"marketCap"`
	RegularMarketVolume        int64   `json:"regularMarketVolume"`
	AverageDailyVolume3Month   int64   `json:"averageDailyVolume3Month"`
	TrailingPE                 float64 `json:"trailingPE"`
	ForwardPE                  float64 `json:"forwardPE"`
	PriceToBook                float64 `json:"priceToBook"`
	EpsTrailingTwelveMonths    float64 `json:"epsTrailingTwelveMonths"`
	TrailingAnnualDividendYield float64 `json:"trailingAnnualDividendYield"`
	ShortName                  string  `json:"shortName"`
	LongName                   string  `json:"longName"`
}

// Quote fetches the flat quote endpoint for one or more symbols.
func (c *Client) Quote(ctx context.Context, symbols ...string) (map[string]*models.QuoteSnapshot, error) {
	if len(symbols) == 0 {
		return map[string]*models.QuoteSnapshot{}, nil
	}

	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))

	path := "/v7/finance/quote"

	var resp quoteResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteResponse.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusBadGateway,
			Message:    resp.QuoteResponse.Error.Description,
			Endpoint:   path,
		}
	}

	out := make(map[string]*models.QuoteSnapshot, len(resp.QuoteResponse.Result))
	for _, r := range resp.QuoteResponse.Result {
		out[r.Symbol] = &models.QuoteSnapshot{
			Ticker:        r.Symbol,
			LastPrice:     r.RegularMarketPrice,
			PreviousClose: r.RegularMarketPreviousClose,
			ChangePct:     r.RegularMarketChangePercent,
			DayOpen:       r.RegularMarketOpen,
			DayHigh:       r.RegularMarketDayHigh,
			DayLow:        r.RegularMarketDayLow,
			Week52Low:     r.FiftyTwoWeekLow,
			Week52High:    r.FiftyTwoWeekHigh,
			MarketCap:     r.MarketCap,
			Volume:        r.RegularMarketVolume,
			AvgVolume:     r.AverageDailyVolume3Month,
			TrailingPE:    r.TrailingPE,
			ForwardPE:     r.ForwardPE,
			PriceToBook:   r.PriceToBook,
			TrailingEPS:   r.EpsTrailingTwelveMonths,
			DividendYield: r.TrailingAnnualDividendYield,
			ShortName:     r.ShortName,
			LongName:      r.LongName,
			Valid:         true,
		}
	}
	return out, nil
}

// --- chart ---

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *hostError `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

// Chart fetches OHLCV bars, skipping null bars (holidays, halted minutes),
// sorted ascending by time.
func (c *Client) Chart(ctx context.Context, ticker, interval, rng string) ([]models.PriceBar, error) {
	params := url.Values{}
	params.Set("interval", interval)
	params.Set("range", rng)

	path := fmt.Sprintf("/v8/finance/chart/%s", url.PathEscape(ticker))

	var resp chartResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusBadGateway,
			Message:    resp.Chart.Error.Description,
			Endpoint:   path,
		}
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("chart %s: no data returned", ticker)
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart %s: no quote indicators", ticker)
	}
	quote := result.Indicators.Quote[0]

	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		o := toFloat(at(quote.Open, i))
		h := toFloat(at(quote.High, i))
		l := toFloat(at(quote.Low, i))
		cl := toFloat(at(quote.Close, i))
		if o == 0 && h == 0 && l == 0 && cl == 0 {
			continue
		}
		bars = append(bars, models.PriceBar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  cl,
			Volume: int64(toFloat(at(quote.Volume, i))),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func at(vs []interface{}, i int) interface{} {
	if i < 0 || i >= len(vs) {
		return nil
	}
	return vs[i]
}

// --- calendar ---

// Calendar fetches upcoming corporate events via the calendarEvents module.
func (c *Client) Calendar(ctx context.Context, ticker string) (*models.CalendarEvents, error) {
	params := url.Values{}
	params.Set("modules", string(interfaces.ModuleCalendarEvents))

	path := fmt.Sprintf("/v10/finance/quoteSummary/%s", url.PathEscape(ticker))

	var resp struct {
		QuoteSummary struct {
			Result []struct {
				CalendarEvents struct {
					Earnings struct {
						EarningsDate []struct {
							Raw int64 `json:"raw"`
						} `json:"earningsDate"`
					} `json:"earnings"`
					ExDividendDate *struct {
						Raw int64 `json:"raw"`
					} `json:"exDividendDate"`
					DividendDate *struct {
						Raw int64 `json:"raw"`
					} `json:"dividendDate"`
				} `json:"calendarEvents"`
			} `json:"result"`
			Error *hostError `json:"error"`
		} `json:"quoteSummary"`
	}

	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteSummary.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusBadGateway,
			Message:    resp.QuoteSummary.Error.Description,
			Endpoint:   path,
		}
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("calendar %s: empty result", ticker)
	}

	ce := resp.QuoteSummary.Result[0].CalendarEvents
	events := &models.CalendarEvents{}
	for _, d := range ce.Earnings.EarningsDate {
		events.EarningsDates = append(events.EarningsDates, time.Unix(d.Raw, 0).UTC())
	}
	if ce.ExDividendDate != nil {
		t := time.Unix(ce.ExDividendDate.Raw, 0).UTC()
		events.ExDividendDate = &t
	}
	if ce.DividendDate != nil {
		t := time.Unix(ce.DividendDate.Raw, 0).UTC()
		events.DividendDate = &t
	}
	return events, nil
}

// --- news ---

type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Link                string `json:"link"`
		Publisher           string `json:"publisher"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

// News fetches recent news items for a ticker via the search endpoint.
func (c *Client) News(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", ticker)
	params.Set("newsCount", strconv.Itoa(limit))
	params.Set("quotesCount", "0")

	var resp searchResponse
	if err := c.get(ctx, "/v1/finance/search", params, &resp); err != nil {
		return nil, err
	}

	news := make([]*models.NewsItem, 0, len(resp.News))
	for _, item := range resp.News {
		news = append(news, &models.NewsItem{
			Title:       item.Title,
			URL:         item.Link,
			Publisher:   item.Publisher,
			PublishedAt: time.Unix(item.ProviderPublishTime, 0).UTC(),
		})
	}
	if len(news) > limit {
		news = news[:limit]
	}
	return news, nil
}

// Ensure Client implements QuoteClient
var _ interfaces.QuoteClient = (*Client)(nil)
