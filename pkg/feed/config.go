package feed

import (
	"time"

	"github.com/go-playground/validator/v10"

	"marketstream/internal/ws"
)

// Config contains all options for a stream client.
type Config struct {
	// MaxReconnectAttempts bounds automatic reconnects after abnormal
	// closures. Once exhausted the client settles into disconnected and
	// waits for an explicit connect.
	MaxReconnectAttempts int `validate:"min=1"`
	// ReconnectBaseWait is the exponential base for the reconnect delay.
	ReconnectBaseWait time.Duration `validate:"min=1ms"`
	// ReconnectMaxWait caps the reconnect delay.
	ReconnectMaxWait time.Duration `validate:"min=1ms"`
	// ReconnectFloor is the minimum reconnect delay after jitter.
	ReconnectFloor time.Duration `validate:"min=0"`
	// DialTimeout is the maximum duration of a single dial attempt.
	DialTimeout time.Duration `validate:"min=1ms"`

	// DisconnectOnRateLimit forces the socket closed when the server
	// reports rate limiting, so recovery goes through the backoff path.
	// When false (the default) rate limit errors are surfaced to status
	// observers only and the server decides whether to drop the socket.
	DisconnectOnRateLimit bool

	// PingInterval is the expected keepalive cadence of the transport.
	PingInterval time.Duration `validate:"min=0"`
	// PongWait is the grace period past a ping before the transport
	// considers the connection dead.
	PongWait time.Duration `validate:"min=0"`

	// Dialer opens the underlying socket. Defaults to the gws transport;
	// tests inject a deterministic fake.
	Dialer ws.Dialer `validate:"-"`
}

// DefaultConfig returns a Config with the defaults used against broker
// feeds: 5 reconnect attempts, 1s base / 30s cap / 500ms floor backoff,
// 10s dial timeout.
func DefaultConfig() Config {
	return Config{
		MaxReconnectAttempts: 5,
		ReconnectBaseWait:    1 * time.Second,
		ReconnectMaxWait:     30 * time.Second,
		ReconnectFloor:       500 * time.Millisecond,
		DialTimeout:          10 * time.Second,
		PingInterval:         10 * time.Second,
		PongWait:             20 * time.Second,
	}
}

var validate = validator.New()

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// WithDialer sets the socket dialer and returns the config for chaining.
func (c Config) WithDialer(d ws.Dialer) Config {
	c.Dialer = d
	return c
}

// WithReconnect sets the backoff parameters and attempt bound and returns
// the config for chaining.
func (c Config) WithReconnect(base, max, floor time.Duration, attempts int) Config {
	c.ReconnectBaseWait = base
	c.ReconnectMaxWait = max
	c.ReconnectFloor = floor
	c.MaxReconnectAttempts = attempts
	return c
}

// WithDisconnectOnRateLimit sets the rate limit escalation policy and
// returns the config for chaining.
func (c Config) WithDisconnectOnRateLimit(enabled bool) Config {
	c.DisconnectOnRateLimit = enabled
	return c
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if c.ReconnectBaseWait == 0 {
		c.ReconnectBaseWait = def.ReconnectBaseWait
	}
	if c.ReconnectMaxWait == 0 {
		c.ReconnectMaxWait = def.ReconnectMaxWait
	}
	if c.ReconnectFloor == 0 {
		c.ReconnectFloor = def.ReconnectFloor
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = def.PingInterval
	}
	if c.PongWait == 0 {
		c.PongWait = def.PongWait
	}
	return c
}
