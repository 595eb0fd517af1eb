// Package bars builds fixed-interval OHLCV bars from a trade stream on
// the client side, for consumers of feeds that do not subscribe to the
// server's bar channel.
package bars

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"marketstream/pkg/marketdata"
)

// Handler receives each completed bar.
type Handler func(bar marketdata.Bar)

// Aggregator folds trades into per-symbol bars of a fixed interval. A bar
// completes when a trade arrives in a later interval; trades older than
// the open bar are dropped. Safe for concurrent use.
type Aggregator struct {
	interval time.Duration
	handler  Handler
	logger   zerolog.Logger

	mu      sync.Mutex
	open    map[string]*openBar
	dropped uint64
}

type openBar struct {
	bar      marketdata.Bar
	notional float64
}

// New creates an aggregator emitting bars of the given interval to
// handler. Intervals below one second are clamped to one second.
func New(interval time.Duration, handler Handler) *Aggregator {
	if interval < time.Second {
		interval = time.Second
	}
	return &Aggregator{
		interval: interval,
		handler:  handler,
		logger:   zerolog.Nop(),
		open:     make(map[string]*openBar),
	}
}

// SetLogger configures the logger for the aggregator.
func (a *Aggregator) SetLogger(logger zerolog.Logger) {
	a.logger = logger
}

// Observe feeds one stream message into the aggregator. Non-trade
// messages are ignored, so it can be registered directly as a stream
// message observer.
func (a *Aggregator) Observe(msg marketdata.Message) {
	trade, ok := msg.(marketdata.Trade)
	if !ok {
		return
	}
	a.Add(trade)
}

// Add folds one trade into its symbol's open bar, completing and emitting
// the prior bar when the trade starts a new interval.
func (a *Aggregator) Add(trade marketdata.Trade) {
	bucket := trade.Timestamp.Truncate(a.interval)

	a.mu.Lock()
	cur, ok := a.open[trade.Symbol]
	if ok && bucket.Before(cur.bar.Timestamp) {
		a.dropped++
		dropped := a.dropped
		a.mu.Unlock()
		a.logger.Debug().
			Str("symbol", trade.Symbol).
			Time("ts", trade.Timestamp).
			Uint64("dropped", dropped).
			Msg("trade older than open bar")
		return
	}

	var completed *marketdata.Bar
	if ok && bucket.After(cur.bar.Timestamp) {
		done := cur.finish()
		completed = &done
		ok = false
	}
	if !ok {
		a.open[trade.Symbol] = newOpenBar(trade, bucket)
	} else {
		cur.fold(trade)
	}
	a.mu.Unlock()

	if completed != nil && a.handler != nil {
		a.handler(*completed)
	}
}

// Flush completes and returns every open bar, ordered by symbol. The
// handler is not invoked; callers drain the partials on shutdown.
func (a *Aggregator) Flush() []marketdata.Bar {
	a.mu.Lock()
	out := make([]marketdata.Bar, 0, len(a.open))
	for _, cur := range a.open {
		out = append(out, cur.finish())
	}
	a.open = make(map[string]*openBar)
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func newOpenBar(trade marketdata.Trade, bucket time.Time) *openBar {
	size := float64(trade.Size)
	return &openBar{
		bar: marketdata.Bar{
			Symbol:     trade.Symbol,
			Open:       trade.Price,
			High:       trade.Price,
			Low:        trade.Price,
			Close:      trade.Price,
			Volume:     uint64(trade.Size),
			TradeCount: 1,
			Timestamp:  bucket,
		},
		notional: trade.Price * size,
	}
}

func (o *openBar) fold(trade marketdata.Trade) {
	if trade.Price > o.bar.High {
		o.bar.High = trade.Price
	}
	if trade.Price < o.bar.Low {
		o.bar.Low = trade.Price
	}
	o.bar.Close = trade.Price
	o.bar.Volume += uint64(trade.Size)
	o.bar.TradeCount++
	o.notional += trade.Price * float64(trade.Size)
}

func (o *openBar) finish() marketdata.Bar {
	bar := o.bar
	if bar.Volume > 0 {
		bar.VWAP = o.notional / float64(bar.Volume)
	}
	return bar
}
