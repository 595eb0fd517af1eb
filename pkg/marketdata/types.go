package marketdata

import "time"

// Message is the tagged union of data messages delivered by a market data
// stream. The concrete types are Trade, Quote and Bar.
type Message interface {
	message()
}

// Trade is a single execution reported by the feed.
// JSON tags follow the feed's single-letter wire field names. The Type
// field absorbs the "T" discriminant key exactly; without it, "T" would
// fall back to the case-insensitive match on Timestamp's "t" tag and
// break decoding.
type Trade struct {
	// Type is the wire discriminant, "t" for trades.
	Type string `json:"T"`
	// Symbol is the instrument identifier (e.g., "AAPL").
	Symbol string `json:"S"`
	// ID is the feed-assigned trade identifier.
	ID int64 `json:"i"`
	// Exchange is the code of the exchange the trade occurred on.
	Exchange string `json:"x"`
	// Price is the execution price.
	Price float64 `json:"p"`
	// Size is the executed quantity.
	Size uint32 `json:"s"`
	// Conditions carries the trade condition flags.
	Conditions []string `json:"c"`
	// Timestamp is the exchange timestamp of the execution.
	Timestamp time.Time `json:"t"`
	// Tape identifies the reporting tape.
	Tape string `json:"z"`
}

// Quote is a bid/ask update for an instrument.
type Quote struct {
	// Type is the wire discriminant, "q" for quotes.
	Type string `json:"T"`
	// Symbol is the instrument identifier.
	Symbol string `json:"S"`
	// BidExchange is the exchange holding the bid.
	BidExchange string `json:"bx"`
	// BidPrice is the highest price a buyer is willing to pay.
	BidPrice float64 `json:"bp"`
	// BidSize is the quantity available at the bid.
	BidSize uint32 `json:"bs"`
	// AskExchange is the exchange holding the ask.
	AskExchange string `json:"ax"`
	// AskPrice is the lowest price a seller is willing to accept.
	AskPrice float64 `json:"ap"`
	// AskSize is the quantity available at the ask.
	AskSize uint32 `json:"as"`
	// Conditions carries the quote condition flags.
	Conditions []string `json:"c"`
	// Timestamp is the exchange timestamp of the update.
	Timestamp time.Time `json:"t"`
	// Tape identifies the reporting tape.
	Tape string `json:"z"`
}

// Bar is an aggregate of trades over a fixed interval.
type Bar struct {
	// Type is the wire discriminant, "b" for bars.
	Type string `json:"T"`
	// Symbol is the instrument identifier.
	Symbol string `json:"S"`
	// Open is the price at the start of the interval.
	Open float64 `json:"o"`
	// High is the highest price during the interval.
	High float64 `json:"h"`
	// Low is the lowest price during the interval.
	Low float64 `json:"l"`
	// Close is the price at the end of the interval.
	Close float64 `json:"c"`
	// Volume is the total quantity traded during the interval.
	Volume uint64 `json:"v"`
	// VWAP is the volume-weighted average price for the interval.
	VWAP float64 `json:"vw"`
	// TradeCount is the number of trades in the interval.
	TradeCount uint64 `json:"n"`
	// Timestamp is the start of the interval.
	Timestamp time.Time `json:"t"`
}

func (Trade) message() {}
func (Quote) message() {}
func (Bar) message()   {}
