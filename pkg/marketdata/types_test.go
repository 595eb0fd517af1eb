package marketdata

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The wire carries both the "T" discriminant and the "t" timestamp on
// every data message; each must land in its own field.
func TestTrade_UnmarshalWireShape(t *testing.T) {
	raw := `{"T":"t","S":"AAPL","i":7,"x":"V","p":187.32,"s":100,"c":["@"],"t":"2024-01-02T15:04:05Z","z":"C"}`

	var trade Trade
	require.NoError(t, sonic.Unmarshal([]byte(raw), &trade))

	assert.Equal(t, "t", trade.Type)
	assert.Equal(t, "AAPL", trade.Symbol)
	assert.Equal(t, int64(7), trade.ID)
	assert.Equal(t, "V", trade.Exchange)
	assert.Equal(t, 187.32, trade.Price)
	assert.Equal(t, uint32(100), trade.Size)
	assert.Equal(t, []string{"@"}, trade.Conditions)
	assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), trade.Timestamp.UTC())
	assert.Equal(t, "C", trade.Tape)
}

func TestQuote_UnmarshalWireShape(t *testing.T) {
	raw := `{"T":"q","S":"AAPL","bx":"V","bp":187.31,"bs":2,"ax":"V","ap":187.33,"as":3,"c":["R"],"t":"2024-01-02T15:04:05Z","z":"C"}`

	var quote Quote
	require.NoError(t, sonic.Unmarshal([]byte(raw), &quote))

	assert.Equal(t, "q", quote.Type)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, 187.31, quote.BidPrice)
	assert.Equal(t, uint32(2), quote.BidSize)
	assert.Equal(t, 187.33, quote.AskPrice)
	assert.Equal(t, uint32(3), quote.AskSize)
	assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), quote.Timestamp.UTC())
}

func TestBar_UnmarshalWireShape(t *testing.T) {
	raw := `{"T":"b","S":"AAPL","o":187.0,"h":188.0,"l":186.5,"c":187.5,"v":10000,"vw":187.2,"n":42,"t":"2024-01-02T15:04:00Z"}`

	var bar Bar
	require.NoError(t, sonic.Unmarshal([]byte(raw), &bar))

	assert.Equal(t, "b", bar.Type)
	assert.Equal(t, "AAPL", bar.Symbol)
	assert.Equal(t, 187.0, bar.Open)
	assert.Equal(t, 187.5, bar.Close)
	assert.Equal(t, uint64(10000), bar.Volume)
	assert.Equal(t, 187.2, bar.VWAP)
	assert.Equal(t, uint64(42), bar.TradeCount)
	assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 0, 0, time.UTC), bar.Timestamp.UTC())
}
