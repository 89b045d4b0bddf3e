// Package binanceclient implements ports.KlineSource against the Binance
// spot kline endpoint. The response is kept as raw positional rows so the
// strict normalization gate can account for every unparseable cell.
package binanceclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"klineRecon/internal/domain"
	"klineRecon/internal/normalize"
	"klineRecon/internal/ports"

	"github.com/adshao/go-binance/v2/common"
)

const (
	defaultBaseURL = "https://data-api.binance.vision/api/v3/klines"

	// Endpoint hard cap on rows per request.
	maxLimit = 1000

	connectTimeout = 3 * time.Second
	requestTimeout = 10 * time.Second

	// Maximum number of response-body bytes carried in an ErrRemote wrapper.
	bodyPreviewLimit = 500
)

// allowedIntervals is the fixed set of kline granularities the endpoint
// supports, minute through month buckets.
var allowedIntervals = map[string]struct{}{
	"1m": {}, "3m": {}, "5m": {}, "15m": {}, "30m": {},
	"1h": {}, "2h": {}, "4h": {}, "6h": {}, "8h": {}, "12h": {},
	"1d": {}, "3d": {}, "1w": {}, "1M": {},
}

// AllowedIntervals returns the supported interval identifiers, sorted.
func AllowedIntervals() []string {
	out := make([]string, 0, len(allowedIntervals))
	for iv := range allowedIntervals {
		out = append(out, iv)
	}
	sort.Strings(out)
	return out
}

// Client implements the ports.KlineSource interface against the kline
// endpoint for one (symbol, interval, limit) request shape.
type Client struct {
	symbol     string
	interval   string
	limit      int
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
}

// Config holds configuration specific to the kline client adapter.
type Config struct {
	Symbol   string // Trading pair, normalized to upper case
	Interval string // One of the allowed interval identifiers
	Limit    int    // Rows to request; clamped to the endpoint maximum
	BaseURL  string // Optional endpoint override (tests, mirrors)
	Logger   ports.Logger
	// HTTPClient overrides the default transport. The default uses a 3s
	// connect timeout and a 10s overall request timeout.
	HTTPClient *http.Client
}

// New validates the request parameters and creates a kline client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for kline client")
	}

	symbol := strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol must be a non-empty string", ports.ErrInvalidArgument)
	}

	if _, ok := allowedIntervals[cfg.Interval]; !ok {
		return nil, fmt.Errorf("%w: interval %q must be one of: %s",
			ports.ErrInvalidArgument, cfg.Interval, strings.Join(AllowedIntervals(), ", "))
	}

	limit := cfg.Limit
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1, got %d", ports.ErrInvalidArgument, limit)
	}
	if limit > maxLimit {
		cfg.Logger.Warn(context.Background(), "Requested limit exceeds endpoint maximum, clamping",
			map[string]interface{}{"requested": limit, "max": maxLimit})
		limit = maxLimit
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		}
	}

	c := &Client{
		symbol:     symbol,
		interval:   cfg.Interval,
		limit:      limit,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
	c.logger.Info(context.Background(), "Kline client initialized",
		map[string]interface{}{"symbol": c.symbol, "interval": c.interval, "limit": c.limit})
	return c, nil
}

// Symbol returns the normalized trading pair.
func (c *Client) Symbol() string { return c.symbol }

// Interval returns the validated interval identifier.
func (c *Client) Interval() string { return c.interval }

// Limit returns the effective (possibly clamped) row limit.
func (c *Client) Limit() int { return c.limit }

// FetchRaw performs one GET against the kline endpoint and returns the raw
// positional rows. No retry, no backoff: any failure surfaces immediately.
func (c *Client) FetchRaw(ctx context.Context) ([]domain.RawKline, error) {
	op := "FetchRaw"

	reqURL, err := c.requestURL()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w: %w", op, ports.ErrInvalidArgument, err)
	}

	c.logger.Debug(ctx, "Fetching klines",
		map[string]interface{}{"symbol": c.symbol, "interval": c.interval, "limit": c.limit})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w: %w", op, ports.ErrInvalidArgument, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, err, "Kline request failed",
			map[string]interface{}{"symbol": c.symbol, "interval": c.interval, "limit": c.limit})
		return nil, fmt.Errorf("%s failed: %w: %w", op, ports.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.remoteError(ctx, op, resp)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var rows []domain.RawKline
	if err := dec.Decode(&rows); err != nil {
		c.logger.Error(ctx, err, "Kline response body is not a JSON array of rows",
			map[string]interface{}{"symbol": c.symbol, "interval": c.interval})
		return nil, fmt.Errorf("%s failed: %w: decoding response: %w", op, ports.ErrInvalidArgument, err)
	}
	for i, row := range rows {
		if len(row) != domain.WireFieldCount {
			return nil, fmt.Errorf("%s failed: %w: row %d has %d fields, want %d",
				op, ports.ErrInvalidArgument, i, len(row), domain.WireFieldCount)
		}
	}

	c.logger.Info(ctx, "Klines fetched",
		map[string]interface{}{"symbol": c.symbol, "interval": c.interval, "rows": len(rows)})
	return rows, nil
}

// FetchTable composes FetchRaw with strict normalization. Failures from
// either stage propagate unchanged.
func (c *Client) FetchTable(ctx context.Context) (domain.KlineTable, error) {
	rows, err := c.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	table, err := normalize.Table(rows, normalize.Strict)
	if err != nil {
		c.logger.Error(ctx, err, "Kline normalization rejected the batch",
			map[string]interface{}{"symbol": c.symbol, "interval": c.interval, "rows": len(rows)})
		return nil, err
	}
	c.logger.Info(ctx, "Klines normalized",
		map[string]interface{}{"symbol": c.symbol, "interval": c.interval, "rows": len(table)})
	return table, nil
}

func (c *Client) requestURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("symbol", c.symbol)
	q.Set("interval", c.interval)
	q.Set("limit", strconv.Itoa(c.limit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// remoteError builds the ErrRemote wrapper for a non-2xx response, carrying
// the status code and a truncated body preview. When the body parses as a
// Binance API error payload the decoded code/message is logged alongside.
func (c *Client) remoteError(ctx context.Context, op string, resp *http.Response) error {
	preview, readErr := io.ReadAll(io.LimitReader(resp.Body, bodyPreviewLimit))
	if readErr != nil {
		preview = []byte("unreadable response body")
	}

	fields := map[string]interface{}{
		"symbol":   c.symbol,
		"interval": c.interval,
		"limit":    c.limit,
		"status":   resp.StatusCode,
		"body":     string(preview),
	}
	var err error
	var apiErr common.APIError
	if jsonErr := json.Unmarshal(preview, &apiErr); jsonErr == nil && apiErr.Code != 0 {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message
		err = fmt.Errorf("%s failed: %w: HTTP %d: binance code %d: %s", op, ports.ErrRemote, resp.StatusCode, apiErr.Code, apiErr.Message)
	} else {
		err = fmt.Errorf("%s failed: %w: HTTP %d: %s", op, ports.ErrRemote, resp.StatusCode, string(preview))
	}
	c.logger.Error(ctx, err, "Kline endpoint returned an error status", fields)
	return err
}
