package coinbase

// Message types on the Coinbase Exchange websocket feed.
const (
	TypeTicker        = "ticker"
	TypeHeartbeat     = "heartbeat"
	TypeSubscriptions = "subscriptions"
	TypeError         = "error"
)

// SubscribeRequest is the first frame sent after dialing.
type SubscribeRequest struct {
	Type       string   `json:"type"`        // "subscribe" or "unsubscribe"
	ProductIDs []string `json:"product_ids"` // e.g. ["BTC-USD", "ETH-USD"]
	Channels   []string `json:"channels"`    // e.g. ["ticker", "heartbeat"]
}

// Envelope carries the fields shared by every feed message; used for routing
// before the full payload is decoded.
type Envelope struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
}

// TickerMessage is a "ticker" channel update. Numeric fields arrive as decimal strings.
type TickerMessage struct {
	Type        string `json:"type"`
	Sequence    int64  `json:"sequence"`
	ProductID   string `json:"product_id"`
	Price       string `json:"price"`
	Open24h     string `json:"open_24h"`
	Volume24h   string `json:"volume_24h"`
	Low24h      string `json:"low_24h"`
	High24h     string `json:"high_24h"`
	Volume30d   string `json:"volume_30d"`
	BestBid     string `json:"best_bid"`
	BestBidSize string `json:"best_bid_size"`
	BestAsk     string `json:"best_ask"`
	BestAskSize string `json:"best_ask_size"`
	Side        string `json:"side"`
	Time        string `json:"time"`
	TradeID     int64  `json:"trade_id"`
	LastSize    string `json:"last_size"`
}

// HeartbeatMessage is sent once a second per product on the "heartbeat" channel.
type HeartbeatMessage struct {
	Type        string `json:"type"`
	Sequence    int64  `json:"sequence"`
	LastTradeID int64  `json:"last_trade_id"`
	ProductID   string `json:"product_id"`
	Time        string `json:"time"`
}

// SubscriptionsMessage acknowledges a subscribe request.
type SubscriptionsMessage struct {
	Type     string `json:"type"`
	Channels []struct {
		Name       string   `json:"name"`
		ProductIDs []string `json:"product_ids"`
	} `json:"channels"`
}

// ErrorMessage is sent when a request is rejected.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// Product is an entry of the REST /products listing.
type Product struct {
	ID              string `json:"id"`               // e.g. "BTC-USD"
	BaseCurrency    string `json:"base_currency"`    // e.g. "BTC"
	QuoteCurrency   string `json:"quote_currency"`   // e.g. "USD"
	Status          string `json:"status"`           // "online", "offline", "delisted", ...
	TradingDisabled bool   `json:"trading_disabled"` // halted markets still report status
}

// Online reports whether the product is currently streaming.
func (p Product) Online() bool {
	return p.Status == "online" && !p.TradingDisabled
}
