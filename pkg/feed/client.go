// Package feed implements a streaming market data client: connection
// state machine, authentication handshake, subscription bookkeeping and
// reconnection with capped, jittered backoff.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"marketstream/internal/backoff"
	"marketstream/internal/ws"
	"marketstream/pkg/marketdata"
)

// Client maintains one logical connection to a market data feed. It owns
// at most one socket at a time; a new Connect supersedes any prior socket
// or pending retry. Clients are independently instantiable and safe for
// concurrent use.
type Client struct {
	config  Config
	logger  zerolog.Logger
	dial    ws.Dialer
	bus     *Bus
	backoff backoff.Policy
	state   *State

	mu         sync.Mutex
	sock       ws.Socket
	gen        int
	creds      marketdata.Credentials
	feed       marketdata.Feed
	subs       *registry
	attempts   int
	terminal   bool
	closing    bool
	retryTimer *time.Timer
}

// disconnect reason surfaced when the retry budget runs out.
const reasonMaxAttempts = "max_attempts"

// New creates a stream client. Zero-valued config fields receive
// defaults; the remaining values are validated.
func New(config Config) (*Client, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dial := config.Dialer
	if dial == nil {
		dial = ws.NewDialer(ws.Config{
			PingInterval: config.PingInterval,
			PongWait:     config.PongWait,
		})
	}

	c := &Client{
		config: config,
		logger: zerolog.Nop(),
		dial:   dial,
		bus:    NewBus(),
		backoff: backoff.Policy{
			Base:  config.ReconnectBaseWait,
			Max:   config.ReconnectMaxWait,
			Floor: config.ReconnectFloor,
		},
		state: &State{},
		subs:  newRegistry(),
	}
	c.state.Store(StateDisconnected)
	return c, nil
}

// SetLogger configures the logger for the client.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// OnMessage registers a data observer and returns its unregistration
// function.
func (c *Client) OnMessage(h MessageHandler) func() {
	return c.bus.OnMessage(h)
}

// OnStatus registers a status observer and returns its unregistration
// function.
func (c *Client) OnStatus(h StatusHandler) func() {
	return c.bus.OnStatus(h)
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	return c.state.Load()
}

// IsConnected returns true iff the socket is open and authentication has
// completed.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	open := c.sock != nil
	c.mu.Unlock()

	s := c.state.Load()
	return open && (s == StateAuthenticated || s == StateSubscribed)
}

// Subscriptions returns a defensive copy of the desired subscription set.
func (c *Client) Subscriptions() SubscriptionSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs.desiredSet()
}

// Pending returns the subscriptions the server has not yet acknowledged:
// the replay owed on the next successful authentication.
func (c *Client) Pending() SubscriptionSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs.pending()
}

// Connect opens a connection to the feed with the given credentials. Any
// prior socket or pending retry is superseded, and the retry budget and
// terminal flag are reset. The returned error covers precondition
// violations only; dial and handshake outcomes are reported through
// status observers.
func (c *Client) Connect(ctx context.Context, creds marketdata.Credentials, target marketdata.Feed) error {
	if creds.Empty() {
		return marketdata.ErrNoCredentials
	}
	if !target.Valid() {
		return marketdata.ErrUnknownFeed
	}

	c.mu.Lock()
	c.cancelRetryLocked()
	old := c.sock
	c.sock = nil
	c.creds = creds
	c.feed = target
	c.attempts = 0
	c.terminal = false
	c.closing = false
	c.subs.clearAcked()
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	c.logger.Info().Str("feed", target.String()).Msg("connecting to stream")

	c.state.Store(StateConnecting)
	c.bus.PublishStatus(Status{State: StateConnecting})

	c.dialFeed(ctx)
	return nil
}

// Disconnect closes the connection intentionally: the pending reconnect
// timer is cancelled, the socket is closed with a normal closure code and
// no retry is scheduled. The desired subscription set is preserved so a
// later Connect replays it. Safe to call from any state, repeatedly.
func (c *Client) Disconnect() {
	c.disconnect("")
}

// Subscribe merges the partial into the desired set. When authenticated,
// an incremental subscribe command is sent for only the newly added
// symbols; otherwise the symbols are replayed on the next successful
// authentication. Re-subscribing an existing symbol is a no-op.
func (c *Client) Subscribe(p SubscriptionSet) error {
	// The state snapshot shares the registry's critical section: an
	// authentication landing concurrently either replays the new symbols
	// itself, or this call sees authenticated and sends them. Exactly one
	// wire command per symbol.
	c.mu.Lock()
	added := c.subs.add(p)
	sock := c.sock
	authed := c.authed()
	c.mu.Unlock()

	if added.Empty() || !authed || sock == nil {
		return nil
	}
	return c.sendSubscription(sock, "subscribe", added)
}

// Unsubscribe removes the named symbols from the named channels. When
// authenticated, an unsubscribe command is sent for exactly the requested
// partial.
func (c *Client) Unsubscribe(p SubscriptionSet) error {
	c.mu.Lock()
	c.subs.remove(p)
	sock := c.sock
	authed := c.authed()
	c.mu.Unlock()

	if p.Empty() || !authed || sock == nil {
		return nil
	}
	return c.sendSubscription(sock, "unsubscribe", p)
}

func (c *Client) authed() bool {
	s := c.state.Load()
	return s == StateAuthenticated || s == StateSubscribed
}

func (c *Client) disconnect(reason string) {
	c.mu.Lock()
	c.cancelRetryLocked()
	c.closing = true
	c.gen++
	sock := c.sock
	c.sock = nil
	c.subs.clearAcked()
	c.mu.Unlock()

	if sock != nil {
		_ = sock.Close()
	}

	already := c.state.Load() == StateDisconnected && sock == nil
	c.state.Store(StateDisconnected)
	if !already || reason != "" {
		c.bus.PublishStatus(Status{State: StateDisconnected, Detail: reason})
	}

	c.logger.Info().Str("reason", reason).Msg("stream disconnected")
}

// dialFeed opens a socket for the current generation. A dial failure
// enters the same retry path as an abnormal closure.
func (c *Client) dialFeed(ctx context.Context) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	url := c.feed.URL()
	c.mu.Unlock()

	sock, err := c.dial(ctx, url, &socketEvents{c: c, gen: gen})
	if err != nil {
		c.logger.Error().Err(err).Str("url", url).Msg("dial failed")
		c.scheduleReconnect(gen)
		return
	}

	c.mu.Lock()
	if gen != c.gen || c.closing {
		c.mu.Unlock()
		_ = sock.Close()
		return
	}
	c.sock = sock
	c.mu.Unlock()
}

// socketEvents routes transport callbacks back to the client, tagged with
// the connection generation so events from superseded sockets are
// ignored.
type socketEvents struct {
	c   *Client
	gen int
}

func (e *socketEvents) OnOpen(s ws.Socket)                 { e.c.handleOpen(e.gen, s) }
func (e *socketEvents) OnMessage(s ws.Socket, data []byte) { e.c.handleFrame(e.gen, data) }
func (e *socketEvents) OnClose(s ws.Socket, err error)     { e.c.handleClose(e.gen, err) }

func (c *Client) stale(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.gen || c.closing
}

// handleOpen sends the one credential frame of the session. The frame is
// never retried; a rejected credential comes back as a control error.
func (c *Client) handleOpen(gen int, s ws.Socket) {
	c.mu.Lock()
	if gen != c.gen || c.closing {
		c.mu.Unlock()
		return
	}
	c.sock = s
	creds := c.creds
	c.mu.Unlock()

	c.state.Store(StateAuthenticating)
	c.bus.PublishStatus(Status{State: StateAuthenticating})

	data, err := sonic.Marshal(authRequest{Action: "auth", Key: creds.Key, Secret: creds.Secret})
	if err != nil {
		c.logger.Error().Err(err).Msg("marshal auth frame")
		return
	}
	if err := s.Send(data); err != nil {
		c.logger.Error().Err(err).Msg("send auth frame")
	}
}

func (c *Client) handleClose(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen || c.closing {
		c.mu.Unlock()
		return
	}
	c.sock = nil
	c.subs.clearAcked()
	terminal := c.terminal
	c.mu.Unlock()

	c.logger.Warn().Err(err).Msg("socket closed")

	if terminal {
		c.state.Store(StateDisconnected)
		c.bus.PublishStatus(Status{State: StateDisconnected})
		return
	}
	c.scheduleReconnect(gen)
}

// scheduleReconnect arms a single timer for the next connection attempt,
// or settles into disconnected once the budget is exhausted. The
// connecting status is emitted before the delay elapses so observers see
// the retry intent immediately.
func (c *Client) scheduleReconnect(gen int) {
	c.mu.Lock()
	if gen != c.gen || c.closing || c.terminal {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.config.MaxReconnectAttempts {
		c.mu.Unlock()
		c.logger.Warn().Int("attempts", c.config.MaxReconnectAttempts).Msg("reconnect attempts exhausted")
		c.state.Store(StateDisconnected)
		c.bus.PublishStatus(Status{State: StateDisconnected, Detail: reasonMaxAttempts})
		return
	}
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	delay := c.backoff.Delay(attempt)
	c.logger.Info().
		Dur("wait", delay).
		Int("attempt", attempt).
		Msg("scheduling reconnect")

	c.state.Store(StateConnecting)
	c.bus.PublishStatus(Status{State: StateConnecting})

	c.mu.Lock()
	if gen != c.gen || c.closing {
		c.mu.Unlock()
		return
	}
	c.retryTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.retryTimer = nil
		if gen != c.gen || c.closing || c.terminal {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), c.config.DialTimeout)
		defer cancel()
		c.dialFeed(ctx)
	})
	c.mu.Unlock()
}

func (c *Client) cancelRetryLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

func (c *Client) sendSubscription(sock ws.Socket, action string, set SubscriptionSet) error {
	data, err := sonic.Marshal(subscriptionRequest{
		Action: action,
		Trades: set.Trades,
		Quotes: set.Quotes,
		Bars:   set.Bars,
	})
	if err != nil {
		return err
	}
	if err := sock.Send(data); err != nil {
		c.logger.Error().Err(err).Str("action", action).Msg("send subscription command")
		return err
	}

	c.logger.Debug().
		Str("action", action).
		Strs("trades", set.Trades).
		Strs("quotes", set.Quotes).
		Strs("bars", set.Bars).
		Msg("sent subscription command")
	return nil
}
