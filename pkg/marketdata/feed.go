package marketdata

import "fmt"

// Feed identifies a named data stream variant served at a distinct
// endpoint.
type Feed int

// Feed constants define the available stream variants.
const (
	// FeedIEX serves stock data sourced from the IEX exchange only.
	FeedIEX Feed = iota
	// FeedSIP serves consolidated stock data from all US exchanges.
	FeedSIP
	// FeedCrypto serves cryptocurrency data.
	FeedCrypto
	// FeedTest serves a synthetic stream for integration testing.
	FeedTest
)

// String returns the string representation of the feed.
func (f Feed) String() string {
	return [...]string{
		"iex",
		"sip",
		"crypto",
		"test",
	}[f]
}

// Valid returns true if the feed is one of the known variants.
func (f Feed) Valid() bool {
	return f >= FeedIEX && f <= FeedTest
}

// URL returns the websocket endpoint for the feed. The mapping is static;
// there is no runtime negotiation.
func (f Feed) URL() string {
	switch f {
	case FeedIEX:
		return "wss://stream.data.alpaca.markets/v2/iex"
	case FeedSIP:
		return "wss://stream.data.alpaca.markets/v2/sip"
	case FeedCrypto:
		return "wss://stream.data.alpaca.markets/v1beta3/crypto/us"
	case FeedTest:
		return "wss://stream.data.alpaca.markets/v2/test"
	}
	return ""
}

// ParseFeed converts a feed name to its Feed value.
func ParseFeed(s string) (Feed, error) {
	switch s {
	case "iex":
		return FeedIEX, nil
	case "sip":
		return FeedSIP, nil
	case "crypto":
		return FeedCrypto, nil
	case "test":
		return FeedTest, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFeed, s)
}
