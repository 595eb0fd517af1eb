package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketstream/pkg/marketdata"
)

type messageRecorder struct {
	mu   sync.Mutex
	msgs []marketdata.Message
}

func (r *messageRecorder) record(msg marketdata.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *messageRecorder) all() []marketdata.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]marketdata.Message(nil), r.msgs...)
}

func TestRouter_BatchDeliveredInOrder(t *testing.T) {
	dialer := newFakeDialer()
	client, _ := newTestClient(t, dialer)
	rec := &messageRecorder{}
	client.OnMessage(rec.record)
	sock := connectAndAuth(t, client, dialer)

	sock.deliver(`[
		{"T":"t","S":"AAPL","i":1,"x":"V","p":187.32,"s":100,"c":["@"],"t":"2024-01-02T15:04:05Z","z":"C"},
		{"T":"q","S":"AAPL","bx":"V","bp":187.31,"bs":2,"ax":"V","ap":187.33,"as":3,"t":"2024-01-02T15:04:05Z","z":"C"},
		{"T":"b","S":"AAPL","o":187.0,"h":188.0,"l":186.5,"c":187.5,"v":10000,"t":"2024-01-02T15:04:00Z"}
	]`)

	msgs := rec.all()
	require.Len(t, msgs, 3)

	trade, ok := msgs[0].(marketdata.Trade)
	require.True(t, ok)
	assert.Equal(t, "AAPL", trade.Symbol)
	assert.Equal(t, 187.32, trade.Price)
	assert.Equal(t, uint32(100), trade.Size)
	assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), trade.Timestamp.UTC())

	quote, ok := msgs[1].(marketdata.Quote)
	require.True(t, ok)
	assert.Equal(t, 187.31, quote.BidPrice)
	assert.Equal(t, 187.33, quote.AskPrice)

	bar, ok := msgs[2].(marketdata.Bar)
	require.True(t, ok)
	assert.Equal(t, 187.0, bar.Open)
	assert.Equal(t, uint64(10000), bar.Volume)
}

func TestRouter_MalformedElementSkipped(t *testing.T) {
	dialer := newFakeDialer()
	client, _ := newTestClient(t, dialer)
	rec := &messageRecorder{}
	client.OnMessage(rec.record)
	sock := connectAndAuth(t, client, dialer)

	// The middle element has a string where a number belongs; its siblings
	// must still arrive.
	sock.deliver(`[
		{"T":"t","S":"AAPL","p":187.32,"s":100,"t":"2024-01-02T15:04:05Z"},
		{"T":"t","S":"MSFT","p":"not a number","s":100,"t":"2024-01-02T15:04:05Z"},
		{"T":"t","S":"TSLA","p":240.11,"s":50,"t":"2024-01-02T15:04:05Z"}
	]`)

	msgs := rec.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, "AAPL", msgs[0].(marketdata.Trade).Symbol)
	assert.Equal(t, "TSLA", msgs[1].(marketdata.Trade).Symbol)
}

func TestRouter_UnknownTagIgnored(t *testing.T) {
	dialer := newFakeDialer()
	client, rec := newTestClient(t, dialer)
	msgs := &messageRecorder{}
	client.OnMessage(msgs.record)
	sock := connectAndAuth(t, client, dialer)

	before := len(rec.states())
	sock.deliver(`[{"T":"x","S":"AAPL"}]`)

	assert.Empty(t, msgs.all())
	assert.Len(t, rec.states(), before)
	assert.True(t, client.IsConnected())
}

func TestRouter_NonArrayFrameTolerated(t *testing.T) {
	dialer := newFakeDialer()
	client, _ := newTestClient(t, dialer)
	sock := connectAndAuth(t, client, dialer)

	sock.deliver(`{"T":"t","S":"AAPL"}`)
	sock.deliver(`not json`)

	assert.True(t, client.IsConnected())
}

func TestRouter_ControlAndDataMixedBatch(t *testing.T) {
	dialer := newFakeDialer()
	client, _ := newTestClient(t, dialer)
	rec := &messageRecorder{}
	client.OnMessage(rec.record)

	require.NoError(t, client.Subscribe(SubscriptionSet{Trades: []string{"AAPL"}}))
	require.NoError(t, client.Connect(context.Background(), testCreds, marketdata.FeedIEX))
	sock := dialer.last()
	sock.open()

	// Auth ack, subscription echo and the first trade in one frame.
	sock.deliver(`[
		{"T":"success","msg":"authenticated"},
		{"T":"subscription","trades":["AAPL"],"quotes":[],"bars":[]},
		{"T":"t","S":"AAPL","p":187.32,"s":100,"t":"2024-01-02T15:04:05Z"}
	]`)

	assert.Equal(t, StateSubscribed, client.State())
	require.Len(t, rec.all(), 1)
	assert.True(t, client.Pending().Empty())
}

func TestRouter_ObserverUnregisterMidBatch(t *testing.T) {
	dialer := newFakeDialer()
	client, _ := newTestClient(t, dialer)

	var unregister func()
	first := &messageRecorder{}
	second := &messageRecorder{}

	client.OnMessage(func(msg marketdata.Message) {
		first.record(msg)
		if len(first.all()) == 1 {
			unregister()
		}
	})
	unregister = client.OnMessage(second.record)

	sock := connectAndAuth(t, client, dialer)
	sock.deliver(`[
		{"T":"t","S":"AAPL","p":1,"s":1,"t":"2024-01-02T15:04:05Z"},
		{"T":"t","S":"MSFT","p":2,"s":1,"t":"2024-01-02T15:04:05Z"}
	]`)

	// The second observer was unregistered during the first element's
	// dispatch: it still gets that element, not the next one.
	assert.Len(t, first.all(), 2)
	assert.Len(t, second.all(), 1)
}
