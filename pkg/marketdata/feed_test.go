package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_URL(t *testing.T) {
	tests := []struct {
		feed Feed
		want string
	}{
		{FeedIEX, "wss://stream.data.alpaca.markets/v2/iex"},
		{FeedSIP, "wss://stream.data.alpaca.markets/v2/sip"},
		{FeedCrypto, "wss://stream.data.alpaca.markets/v1beta3/crypto/us"},
		{FeedTest, "wss://stream.data.alpaca.markets/v2/test"},
	}

	for _, tt := range tests {
		t.Run(tt.feed.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.feed.URL())
		})
	}

	assert.Empty(t, Feed(42).URL())
}

func TestFeed_Valid(t *testing.T) {
	assert.True(t, FeedIEX.Valid())
	assert.True(t, FeedTest.Valid())
	assert.False(t, Feed(-1).Valid())
	assert.False(t, Feed(4).Valid())
}

func TestParseFeed(t *testing.T) {
	for _, name := range []string{"iex", "sip", "crypto", "test"} {
		feed, err := ParseFeed(name)
		require.NoError(t, err)
		assert.Equal(t, name, feed.String())
	}

	_, err := ParseFeed("delayed")
	assert.ErrorIs(t, err, ErrUnknownFeed)
}

func TestCredentials_Empty(t *testing.T) {
	assert.True(t, Credentials{}.Empty())
	assert.True(t, Credentials{Key: "k"}.Empty())
	assert.True(t, Credentials{Secret: "s"}.Empty())
	assert.False(t, Credentials{Key: "k", Secret: "s"}.Empty())
}

func TestCredentials_StringMasksKey(t *testing.T) {
	creds := Credentials{Key: "PKABCDEF12345678", Secret: "supersecret"}

	s := creds.String()
	assert.Equal(t, "Credentials{Key:PKAB****5678}", s)
	assert.NotContains(t, s, "supersecret")

	short := Credentials{Key: "PK123", Secret: "supersecret"}
	assert.Equal(t, "Credentials{Key:****}", short.String())
}
