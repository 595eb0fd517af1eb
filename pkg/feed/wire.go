package feed

// Wire frames exchanged with the feed. Inbound frames are JSON arrays of
// objects discriminated by the "T" field; outbound frames are single
// objects discriminated by "action".

// Discriminant tags carried on inbound messages.
const (
	tagTrade        = "t"
	tagQuote        = "q"
	tagBar          = "b"
	tagSuccess      = "success"
	tagError        = "error"
	tagSubscription = "subscription"
)

// Control acknowledgement texts on "success" messages.
const (
	msgConnected     = "connected"
	msgAuthenticated = "authenticated"
)

type authRequest struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

type subscriptionRequest struct {
	Action string   `json:"action"`
	Trades []string `json:"trades,omitempty"`
	Quotes []string `json:"quotes,omitempty"`
	Bars   []string `json:"bars,omitempty"`
}

type wireProbe struct {
	T string `json:"T"`
}

// controlMessage covers every non-data inbound shape: success acks, error
// frames and subscription echoes.
type controlMessage struct {
	T      string   `json:"T"`
	Msg    string   `json:"msg"`
	Code   int      `json:"code"`
	Trades []string `json:"trades"`
	Quotes []string `json:"quotes"`
	Bars   []string `json:"bars"`
}
