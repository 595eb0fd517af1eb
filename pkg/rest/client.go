// Package rest implements the historical and latest market data REST
// client: rate limited, circuit-breaker protected, with a short TTL cache
// for latest-data lookups.
package rest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"marketstream/internal/circuitbreaker"
	internalhttp "marketstream/internal/http"
	"marketstream/internal/ratelimit"
	"marketstream/pkg/marketdata"
)

// Rate limit buckets per endpoint class.
const (
	bucketLatest = "latest"
	bucketBars   = "bars"
)

// Config contains all options for the REST data client.
type Config struct {
	// BaseURL is the data API root.
	BaseURL string `validate:"required,url"`
	// Credentials sign every request.
	Credentials marketdata.Credentials

	Timeout      time.Duration `validate:"min=1ms"`
	MaxRetries   int           `validate:"min=0"`
	RetryWaitMin time.Duration `validate:"min=0"`
	RetryWaitMax time.Duration `validate:"min=0"`

	RateLimitRequests int           `validate:"min=1"`
	RateLimitPeriod   time.Duration `validate:"min=1ms"`

	CacheEnabled bool
	CacheTTL     time.Duration `validate:"min=0"`

	BreakerEnabled          bool
	BreakerFailThreshold    int
	BreakerSuccessThreshold int
	BreakerTimeout          time.Duration
}

// DefaultConfig returns a Config with the broker data API defaults:
// 200 requests/minute, 1s latest-data cache, breaker at 5 failures.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://data.alpaca.markets",
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 1 * time.Second,

		RateLimitRequests: 200,
		RateLimitPeriod:   time.Minute,

		CacheEnabled: true,
		CacheTTL:     1 * time.Second,

		BreakerEnabled:          true,
		BreakerFailThreshold:    5,
		BreakerSuccessThreshold: 2,
		BreakerTimeout:          30 * time.Second,
	}
}

// WithCredentials sets the API key pair and returns the config for
// chaining.
func (c Config) WithCredentials(creds marketdata.Credentials) Config {
	c.Credentials = creds
	return c
}

var validate = validator.New()

// ErrBreakerOpen is returned while the circuit breaker is rejecting
// requests.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// APIError is a non-2xx response from the data API.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Message is the response body.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("data api error (%d): %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying later may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// Client fetches historical and latest market data.
type Client struct {
	config  Config
	http    *internalhttp.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.Breaker
	cache   *cache
	logger  zerolog.Logger
}

// New validates the config and builds a Client.
func New(config Config) (*Client, error) {
	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if config.Credentials.Empty() {
		return nil, marketdata.ErrNoCredentials
	}

	logger := zerolog.Nop()

	httpClient, err := internalhttp.NewClient(&internalhttp.Config{
		BaseURL:      config.BaseURL,
		Timeout:      config.Timeout,
		MaxRetries:   config.MaxRetries,
		RetryWaitMin: config.RetryWaitMin,
		RetryWaitMax: config.RetryWaitMax,
		Headers: map[string]string{
			"APCA-API-KEY-ID":     config.Credentials.Key,
			"APCA-API-SECRET-KEY": config.Credentials.Secret,
		},
	}, logger)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:  config,
		http:    httpClient,
		limiter: ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod),
		logger:  logger,
	}
	if config.BreakerEnabled {
		c.breaker = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    config.BreakerFailThreshold,
			SuccessThreshold: config.BreakerSuccessThreshold,
			Timeout:          config.BreakerTimeout,
		})
	}
	if config.CacheEnabled {
		c.cache = newCache(config.CacheTTL)
	}
	return c, nil
}

// SetLogger configures the logger for the client and its HTTP transport.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
	c.http.SetLogger(logger)
}

// Close releases the underlying transport and clears the cache.
func (c *Client) Close() error {
	if c.cache != nil {
		c.cache.clear()
	}
	return c.http.Close()
}

// LatestTrade fetches the most recent trade for a symbol.
func (c *Client) LatestTrade(ctx context.Context, symbol string) (*marketdata.Trade, error) {
	key := "trades/latest/" + symbol
	if c.cache != nil {
		if v, ok := c.cache.get(key); ok {
			return v.(*marketdata.Trade), nil
		}
	}

	var result struct {
		Symbol string           `json:"symbol"`
		Trade  marketdata.Trade `json:"trade"`
	}
	path := fmt.Sprintf("/v2/stocks/%s/trades/latest", symbol)
	if err := c.do(ctx, bucketLatest, path, nil, &result); err != nil {
		return nil, err
	}

	result.Trade.Symbol = result.Symbol
	if c.cache != nil {
		c.cache.set(key, &result.Trade)
	}
	return &result.Trade, nil
}

// LatestQuote fetches the most recent quote for a symbol.
func (c *Client) LatestQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	key := "quotes/latest/" + symbol
	if c.cache != nil {
		if v, ok := c.cache.get(key); ok {
			return v.(*marketdata.Quote), nil
		}
	}

	var result struct {
		Symbol string           `json:"symbol"`
		Quote  marketdata.Quote `json:"quote"`
	}
	path := fmt.Sprintf("/v2/stocks/%s/quotes/latest", symbol)
	if err := c.do(ctx, bucketLatest, path, nil, &result); err != nil {
		return nil, err
	}

	result.Quote.Symbol = result.Symbol
	if c.cache != nil {
		c.cache.set(key, &result.Quote)
	}
	return &result.Quote, nil
}

// BarsParams selects the interval and range for a historical bars query.
type BarsParams struct {
	// Timeframe is the bar interval (e.g., "1Min", "1Hour", "1Day").
	Timeframe string
	// Start is the inclusive beginning of the range.
	Start time.Time
	// End is the inclusive end of the range.
	End time.Time
	// Limit bounds the total number of bars; zero means no bound.
	Limit int
}

// Bars fetches historical bars for a symbol, following pagination until
// the range or limit is exhausted.
func (c *Client) Bars(ctx context.Context, symbol string, params BarsParams) ([]marketdata.Bar, error) {
	if params.Timeframe == "" {
		params.Timeframe = "1Min"
	}

	query := map[string]string{
		"timeframe": params.Timeframe,
	}
	if !params.Start.IsZero() {
		query["start"] = params.Start.Format(time.RFC3339)
	}
	if !params.End.IsZero() {
		query["end"] = params.End.Format(time.RFC3339)
	}
	if params.Limit > 0 {
		query["limit"] = strconv.Itoa(params.Limit)
	}

	path := fmt.Sprintf("/v2/stocks/%s/bars", symbol)

	var bars []marketdata.Bar
	for {
		var page struct {
			Symbol        string           `json:"symbol"`
			Bars          []marketdata.Bar `json:"bars"`
			NextPageToken string           `json:"next_page_token"`
		}
		if err := c.do(ctx, bucketBars, path, query, &page); err != nil {
			return nil, err
		}

		for i := range page.Bars {
			page.Bars[i].Symbol = page.Symbol
		}
		bars = append(bars, page.Bars...)

		if page.NextPageToken == "" {
			break
		}
		if params.Limit > 0 && len(bars) >= params.Limit {
			break
		}
		query["page_token"] = page.NextPageToken
	}

	if params.Limit > 0 && len(bars) > params.Limit {
		bars = bars[:params.Limit]
	}
	return bars, nil
}

func (c *Client) do(ctx context.Context, bucket, path string, query map[string]string, result any) error {
	if c.breaker != nil && !c.breaker.Allow() {
		return ErrBreakerOpen
	}

	if err := c.limiter.WaitBucket(ctx, bucket); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	opts := []internalhttp.RequestOption{internalhttp.WithResult(result)}
	if query != nil {
		opts = append(opts, internalhttp.WithQueryParams(query))
	}

	resp, err := c.http.Get(ctx, path, opts...)

	success := err == nil && resp != nil && resp.IsSuccess()
	if c.breaker != nil {
		c.breaker.Record(success)
	}

	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		return &APIError{
			StatusCode: resp.StatusCode(),
			Message:    string(resp.Bytes()),
		}
	}
	return nil
}
