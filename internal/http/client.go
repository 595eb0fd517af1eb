// Package http wraps resty with the JSON codec and debug logging used by
// the REST data client.
package http

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"resty.dev/v3"
)

// Config holds HTTP client options.
type Config struct {
	BaseURL      string            `validate:"required,url"`
	Timeout      time.Duration     `validate:"min=1ms"`
	MaxRetries   int               `validate:"min=0"`
	RetryWaitMin time.Duration     `validate:"min=0"`
	RetryWaitMax time.Duration     `validate:"min=0"`
	Headers      map[string]string `validate:"omitempty"`
}

// Client is a thin resty wrapper: sonic JSON codec, default headers,
// request/response debug logging.
type Client struct {
	client *resty.Client

	mu     sync.Mutex
	logger zerolog.Logger
	closed bool
}

// RequestOption customizes a single outbound request.
type RequestOption func(*resty.Request)

// NewClient validates the config and builds a Client.
func NewClient(config *Config, logger zerolog.Logger) (*Client, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := resty.New()
	client.SetBaseURL(config.BaseURL)
	client.SetTimeout(config.Timeout)
	client.SetRetryCount(config.MaxRetries)
	client.SetRetryWaitTime(config.RetryWaitMin)
	client.SetRetryMaxWaitTime(config.RetryWaitMax)
	client.AddContentTypeEncoder("application/json", func(w io.Writer, v any) error {
		data, err := sonic.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	client.AddContentTypeDecoder("application/json", func(r io.Reader, v any) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return sonic.Unmarshal(data, v)
	})

	for k, v := range config.Headers {
		client.SetHeader(k, v)
	}

	c := &Client{client: client, logger: logger}

	// Middleware reads the logger through the client so SetLogger calls
	// after construction take effect.
	client.AddRequestMiddleware(func(_ *resty.Client, req *resty.Request) error {
		logger := c.log()
		logger.Debug().
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("http request")
		return nil
	})

	client.AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
		logger := c.log()
		logger.Debug().
			Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status", resp.StatusCode()).
			Msg("http response")
		return nil
	})

	return c, nil
}

// SetLogger configures the logger used by the debug middleware.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() zerolog.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logger
}

// Get executes a GET against the given path.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*resty.Response, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("client is closed")
	}

	req := c.client.R().SetContext(ctx)
	for _, opt := range opts {
		opt(req)
	}
	return req.Get(path)
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

// WithHeader sets one request header.
func WithHeader(key, value string) RequestOption {
	return func(r *resty.Request) {
		r.SetHeader(key, value)
	}
}

// WithHeaders sets multiple request headers.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *resty.Request) {
		r.SetHeaders(headers)
	}
}

// WithQueryParams sets query string parameters.
func WithQueryParams(params map[string]string) RequestOption {
	return func(r *resty.Request) {
		r.SetQueryParams(params)
	}
}

// WithResult sets the value the response body is decoded into on success.
func WithResult(res any) RequestOption {
	return func(r *resty.Request) {
		r.SetResult(res)
	}
}
