package feed

import (
	"encoding/json"

	"github.com/bytedance/sonic"

	"marketstream/pkg/marketdata"
)

// handleFrame parses one inbound frame: a JSON array of tagged objects.
// Data elements go to the bus in arrival order; control elements mutate
// connection state. A malformed element is logged and skipped without
// aborting its siblings.
func (c *Client) handleFrame(gen int, data []byte) {
	if c.stale(gen) {
		return
	}

	var elements []json.RawMessage
	if err := sonic.Unmarshal(data, &elements); err != nil {
		c.logger.Warn().Err(err).Msg("malformed frame")
		return
	}

	for _, raw := range elements {
		c.routeElement(raw)
	}
}

func (c *Client) routeElement(raw json.RawMessage) {
	var probe wireProbe
	if err := sonic.Unmarshal(raw, &probe); err != nil {
		c.logger.Warn().Err(err).Msg("malformed element")
		return
	}

	switch probe.T {
	case tagTrade:
		var trade marketdata.Trade
		if err := sonic.Unmarshal(raw, &trade); err != nil {
			c.logger.Warn().Err(err).Msg("malformed trade")
			return
		}
		c.bus.PublishMessage(trade)

	case tagQuote:
		var quote marketdata.Quote
		if err := sonic.Unmarshal(raw, &quote); err != nil {
			c.logger.Warn().Err(err).Msg("malformed quote")
			return
		}
		c.bus.PublishMessage(quote)

	case tagBar:
		var bar marketdata.Bar
		if err := sonic.Unmarshal(raw, &bar); err != nil {
			c.logger.Warn().Err(err).Msg("malformed bar")
			return
		}
		c.bus.PublishMessage(bar)

	case tagSuccess, tagError, tagSubscription:
		var ctrl controlMessage
		if err := sonic.Unmarshal(raw, &ctrl); err != nil {
			c.logger.Warn().Err(err).Msg("malformed control message")
			return
		}
		ctrl.T = probe.T
		c.handleControl(ctrl)

	default:
		c.logger.Debug().Str("tag", probe.T).Msg("unhandled message tag")
	}
}

func (c *Client) handleControl(ctrl controlMessage) {
	switch ctrl.T {
	case tagSuccess:
		c.handleSuccess(ctrl.Msg)
	case tagError:
		c.handleError(marketdata.NewStreamError(ctrl.Code, ctrl.Msg))
	case tagSubscription:
		c.handleSubscriptionAck(SubscriptionSet{
			Trades: ctrl.Trades,
			Quotes: ctrl.Quotes,
			Bars:   ctrl.Bars,
		})
	}
}

func (c *Client) handleSuccess(msg string) {
	switch msg {
	case msgConnected:
		c.logger.Debug().Msg("stream connected")

	case msgAuthenticated:
		// A successful auth proves the network path is healthy: the retry
		// budget starts over. The state flip and the replay snapshot share
		// one critical section, so a concurrent subscribe lands either in
		// the replay or in its own command, never both.
		c.mu.Lock()
		c.attempts = 0
		c.state.Store(StateAuthenticated)
		replay := SubscriptionSet{}
		if !c.subs.empty() {
			replay = c.subs.desiredSet()
		}
		sock := c.sock
		c.mu.Unlock()

		c.bus.PublishStatus(Status{State: StateAuthenticated})
		c.logger.Info().Msg("stream authenticated")

		if !replay.Empty() && sock != nil {
			_ = c.sendSubscription(sock, "subscribe", replay)
		}

	default:
		c.logger.Debug().Str("msg", msg).Msg("unhandled success message")
	}
}

// handleError applies the classifier's consequences. Only an auth failure
// forces a disconnect from within the client; rate limit and transient
// errors are surfaced and any recovery is driven by the socket's own
// close events.
func (c *Client) handleError(serr *marketdata.StreamError) {
	c.logger.Error().
		Int("code", serr.Code).
		Str("type", serr.Type.String()).
		Str("msg", serr.Msg).
		Msg("stream error")

	switch serr.Type {
	case marketdata.ErrorTypeAuth:
		c.mu.Lock()
		c.terminal = true
		c.mu.Unlock()

		c.state.Store(StateError)
		c.bus.PublishStatus(Status{State: StateError, Detail: serr.Detail()})

		// Disconnect now rather than waiting for the server to drop the
		// socket: a close event after a terminal auth failure must not
		// start a reconnect loop against invalid credentials.
		c.disconnect(marketdata.ErrorTypeAuth.String())

	case marketdata.ErrorTypeRateLimit:
		c.bus.PublishStatus(Status{State: StateError, Detail: serr.Detail()})

		if c.config.DisconnectOnRateLimit {
			c.mu.Lock()
			sock := c.sock
			c.mu.Unlock()
			if sock != nil {
				// Close without the closing flag so the close event takes
				// the normal backoff path.
				_ = sock.Close()
			}
		}

	default:
		c.bus.PublishStatus(Status{State: StateError, Detail: serr.Detail()})
	}
}

func (c *Client) handleSubscriptionAck(set SubscriptionSet) {
	c.mu.Lock()
	c.subs.ack(set)
	ackedEmpty := c.subs.ackedEmpty()
	c.mu.Unlock()

	c.logger.Debug().
		Strs("trades", set.Trades).
		Strs("quotes", set.Quotes).
		Strs("bars", set.Bars).
		Msg("subscription acknowledged")

	if !ackedEmpty {
		if c.state.CompareAndSwap(StateAuthenticated, StateSubscribed) {
			c.bus.PublishStatus(Status{State: StateSubscribed})
		}
		return
	}
	if c.state.CompareAndSwap(StateSubscribed, StateAuthenticated) {
		c.bus.PublishStatus(Status{State: StateAuthenticated})
	}
}
