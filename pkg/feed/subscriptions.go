package feed

import "sort"

// SubscriptionSet names symbols per channel. It is used both as the
// request shape for Subscribe/Unsubscribe and as the snapshot returned by
// Subscriptions.
type SubscriptionSet struct {
	Trades []string `json:"trades"`
	Quotes []string `json:"quotes"`
	Bars   []string `json:"bars"`
}

// Empty returns true if no channel names any symbol.
func (s SubscriptionSet) Empty() bool {
	return len(s.Trades) == 0 && len(s.Quotes) == 0 && len(s.Bars) == 0
}

// registry tracks the desired subscription state and the subset the
// server has acknowledged. The desired state outlives individual
// connections so it can be replayed after each authentication; the acked
// state is per-session. Not safe for concurrent use: the owning client
// serializes access.
type registry struct {
	desired channelSets
	acked   channelSets
}

type channelSets struct {
	trades map[string]struct{}
	quotes map[string]struct{}
	bars   map[string]struct{}
}

func newChannelSets() channelSets {
	return channelSets{
		trades: make(map[string]struct{}),
		quotes: make(map[string]struct{}),
		bars:   make(map[string]struct{}),
	}
}

func newRegistry() *registry {
	return &registry{
		desired: newChannelSets(),
		acked:   newChannelSets(),
	}
}

// add merges the partial into the desired sets and returns only the
// symbols that were not already present, per channel. Re-adding an
// existing symbol is a membership no-op and produces no wire traffic.
func (r *registry) add(p SubscriptionSet) SubscriptionSet {
	return SubscriptionSet{
		Trades: addSymbols(r.desired.trades, p.Trades),
		Quotes: addSymbols(r.desired.quotes, p.Quotes),
		Bars:   addSymbols(r.desired.bars, p.Bars),
	}
}

// remove deletes the named symbols from both desired and acked sets.
func (r *registry) remove(p SubscriptionSet) {
	removeSymbols(r.desired.trades, p.Trades)
	removeSymbols(r.desired.quotes, p.Quotes)
	removeSymbols(r.desired.bars, p.Bars)
	removeSymbols(r.acked.trades, p.Trades)
	removeSymbols(r.acked.quotes, p.Quotes)
	removeSymbols(r.acked.bars, p.Bars)
}

// ack replaces the acknowledged sets with the server's subscription echo.
func (r *registry) ack(p SubscriptionSet) {
	r.acked = newChannelSets()
	addSymbols(r.acked.trades, p.Trades)
	addSymbols(r.acked.quotes, p.Quotes)
	addSymbols(r.acked.bars, p.Bars)
}

// clearAcked forgets all server acknowledgements. Called when a session
// ends: the server holds no subscription memory across connections.
func (r *registry) clearAcked() {
	r.acked = newChannelSets()
}

// desiredSet returns a sorted defensive copy of the desired state.
func (r *registry) desiredSet() SubscriptionSet {
	return SubscriptionSet{
		Trades: sortedSymbols(r.desired.trades),
		Quotes: sortedSymbols(r.desired.quotes),
		Bars:   sortedSymbols(r.desired.bars),
	}
}

// pending returns desired minus acknowledged: the replay buffer owed to
// the server.
func (r *registry) pending() SubscriptionSet {
	return SubscriptionSet{
		Trades: diffSymbols(r.desired.trades, r.acked.trades),
		Quotes: diffSymbols(r.desired.quotes, r.acked.quotes),
		Bars:   diffSymbols(r.desired.bars, r.acked.bars),
	}
}

func (r *registry) ackedEmpty() bool {
	return len(r.acked.trades) == 0 && len(r.acked.quotes) == 0 && len(r.acked.bars) == 0
}

func (r *registry) empty() bool {
	return len(r.desired.trades) == 0 && len(r.desired.quotes) == 0 && len(r.desired.bars) == 0
}

func addSymbols(set map[string]struct{}, symbols []string) []string {
	var added []string
	for _, sym := range symbols {
		if _, ok := set[sym]; ok {
			continue
		}
		set[sym] = struct{}{}
		added = append(added, sym)
	}
	sort.Strings(added)
	return added
}

func removeSymbols(set map[string]struct{}, symbols []string) {
	for _, sym := range symbols {
		delete(set, sym)
	}
}

func sortedSymbols(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func diffSymbols(want, have map[string]struct{}) []string {
	var out []string
	for sym := range want {
		if _, ok := have[sym]; !ok {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}
