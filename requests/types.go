// Package requests implements the typed request builders described in
// spec.md §4.7 and §6: one representative builder per plant, each a thin
// struct-to-wire.Record filler. Builders perform no I/O and no validation
// beyond protobuf-level typing, per spec.md §4.7.
package requests

// MarketDataFields is the subscribe/unsubscribe bitmask from spec.md §6.
type MarketDataFields uint32

const (
	LastTrade           MarketDataFields = 1 << 0
	Bbo                 MarketDataFields = 1 << 1
	OrderBook           MarketDataFields = 1 << 2
	Open                MarketDataFields = 1 << 3
	OpeningIndicator    MarketDataFields = 1 << 4
	HighLow             MarketDataFields = 1 << 5
	HighBidLowAsk       MarketDataFields = 1 << 6
	Close               MarketDataFields = 1 << 7
	ClosingIndicator    MarketDataFields = 1 << 8
	Settlement          MarketDataFields = 1 << 9
	MarketMode          MarketDataFields = 1 << 10
	OpenInterest        MarketDataFields = 1 << 11
	MarginRate          MarketDataFields = 1 << 12
	HighPriceLimit      MarketDataFields = 1 << 13
	LowPriceLimit       MarketDataFields = 1 << 14
	ProjectedSettlement MarketDataFields = 1 << 15
)

// BarType distinguishes tick-based from time-based history replay.
type BarType int

const (
	TickBar BarType = iota
	TimeBar
)

// Direction selects which end of a replay range to anchor from.
type Direction int

const (
	First Direction = iota
	Last
)

// TimeOrder selects the delivery order of a replay stream.
type TimeOrder int

const (
	Forwards TimeOrder = iota
	Backwards
)

// OrderSide is the buy/sell discriminator for order builders.
type OrderSide int

const (
	Buy OrderSide = iota
	Sell
)

// OrderType is the order-type discriminator for order builders.
type OrderType int

const (
	Market OrderType = iota
	Limit
	StopMarket
	StopLimit
)

// AccountIdentity carries the fields learned after login (spec.md §3) that
// order/PnL/reference builders must stamp onto outbound requests.
type AccountIdentity struct {
	AccountID string
	FcmID     string
	IbID      string
}

// TimeBarReplayParams is the typed parameter set for ReplayTimeBars.
type TimeBarReplayParams struct {
	Symbol       string
	Exchange     string
	BarTypePeriod int64 // minutes per bar
	StartIndex   int64
	FinishIndex  int64
	Direction    Direction
	TimeOrder    TimeOrder
}

// TickBarReplayParams is the typed parameter set for ReplayTickBars.
type TickBarReplayParams struct {
	Symbol      string
	Exchange    string
	BarSubType  int64 // ticks per bar
	StartIndex  int64
	FinishIndex int64
	Direction   Direction
	TimeOrder   TimeOrder
}

// NewOrderParams is the typed parameter set for NewOrder.
type NewOrderParams struct {
	Symbol   string
	Exchange string
	Side     OrderSide
	Type     OrderType
	Quantity int64
	Price    float64
	Auto     bool
}

// BracketOrderParams adds profit-target/stop-loss offsets to a new order.
type BracketOrderParams struct {
	NewOrderParams
	ProfitTarget float64
	StopLoss     float64
}
