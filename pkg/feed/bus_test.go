package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketstream/pkg/marketdata"
)

func TestBus_PublishMessageFansOut(t *testing.T) {
	bus := NewBus()

	var got1, got2 []string
	bus.OnMessage(func(msg marketdata.Message) {
		got1 = append(got1, msg.(marketdata.Trade).Symbol)
	})
	bus.OnMessage(func(msg marketdata.Message) {
		got2 = append(got2, msg.(marketdata.Trade).Symbol)
	})

	bus.PublishMessage(marketdata.Trade{Symbol: "AAPL"})
	bus.PublishMessage(marketdata.Trade{Symbol: "MSFT"})

	assert.Equal(t, []string{"AAPL", "MSFT"}, got1)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got2)
}

func TestBus_UnregisterStopsDelivery(t *testing.T) {
	bus := NewBus()

	var got []Status
	off := bus.OnStatus(func(s Status) { got = append(got, s) })

	bus.PublishStatus(Status{State: StateConnecting})
	off()
	bus.PublishStatus(Status{State: StateAuthenticated})

	assert.Equal(t, []Status{{State: StateConnecting}}, got)

	// Unregistering twice is harmless.
	off()
}

func TestBus_UnregisterFromInsideHandler(t *testing.T) {
	bus := NewBus()

	var calls int
	var off func()
	off = bus.OnMessage(func(marketdata.Message) {
		calls++
		off()
	})

	bus.PublishMessage(marketdata.Trade{Symbol: "AAPL"})
	bus.PublishMessage(marketdata.Trade{Symbol: "AAPL"})

	assert.Equal(t, 1, calls)
}

func TestBus_PublishWithoutObservers(t *testing.T) {
	bus := NewBus()
	bus.PublishMessage(marketdata.Quote{Symbol: "AAPL"})
	bus.PublishStatus(Status{State: StateDisconnected})
}
