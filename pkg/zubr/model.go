package zubr

import "encoding/json"

// Instrument describes a tradable contract from the instruments channel.
type Instrument struct {
	ID                int64   `json:"id"`
	Symbol            string  `json:"symbol"`
	Status            string  `json:"status"`
	MinPriceIncrement Decimal `json:"minPriceIncrement"`
	ContractSize      Decimal `json:"contractSize"`
}

// InstrumentsUpdate maps instrument ids to definitions. Keys stay strings
// on the wire.
type InstrumentsUpdate map[string]Instrument

// PriceLevel is one resting level of the book.
type PriceLevel struct {
	Price Decimal `json:"price"`
	Size  int64   `json:"size"`
}

// OrderBookUpdate carries book levels for one instrument. Snapshots replace
// local state, increments patch it level by level.
type OrderBookUpdate struct {
	InstrumentID int64        `json:"instrumentId"`
	IsSnapshot   bool         `json:"isSnapshot"`
	Timestamp    int64        `json:"timestamp"`
	Bids         []PriceLevel `json:"bids"`
	Asks         []PriceLevel `json:"asks"`
}

// Trade is a single public trade.
type Trade struct {
	ID           int64     `json:"id"`
	InstrumentID int64     `json:"instrumentId"`
	Price        Decimal   `json:"price"`
	Size         int64     `json:"size"`
	Side         OrderSide `json:"side"`
	Timestamp    int64     `json:"timestamp"`
}

// LastTrades is the lasttrades channel payload: a snapshot list or a
// single trade, discriminated by type.
type LastTrades struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// LastTrades type discriminators.
const (
	LastTradesSnapshot = "snapshot"
	LastTradesTrade    = "trade"
)

// Snapshot decodes the payload of a snapshot message.
func (l LastTrades) Snapshot() ([]Trade, error) {
	var trades []Trade
	return trades, Result{Value: l.Payload}.Decode(&trades)
}

// Trade decodes the payload of a single-trade message.
func (l LastTrades) Trade() (Trade, error) {
	var trade Trade
	return trade, Result{Value: l.Payload}.Decode(&trade)
}

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      Decimal `json:"open"`
	High      Decimal `json:"high"`
	Low       Decimal `json:"low"`
	Close     Decimal `json:"close"`
	Volume    int64   `json:"volume"`
}

// CandlesUpdate carries bars for one instrument and resolution, from the
// candles channel or a getCandlesRange reply.
type CandlesUpdate struct {
	InstrumentID int64    `json:"instrumentId"`
	Resolution   string   `json:"resolution"`
	Candles      []Candle `json:"candles"`
}

// Order is an order state report from the orders channel or an order rpc
// reply.
type Order struct {
	ID            string      `json:"orderId"`
	InstrumentID  int64       `json:"instrumentId"`
	Side          OrderSide   `json:"side"`
	Type          OrderType   `json:"type"`
	TimeInForce   TimeInForce `json:"timeInForce"`
	Price         Decimal     `json:"price"`
	InitialSize   int64       `json:"initialSize"`
	RemainingSize int64       `json:"remainingSize"`
	Status        string      `json:"status"`
	UpdateTime    int64       `json:"updateTime"`
}

// Fill is an execution report from the orderFills channel.
type Fill struct {
	OrderID      string    `json:"orderId"`
	TradeID      int64     `json:"tradeId"`
	InstrumentID int64     `json:"instrumentId"`
	Side         OrderSide `json:"side"`
	Price        Decimal   `json:"price"`
	Size         int64     `json:"size"`
	Timestamp    int64     `json:"timestamp"`
}

// Balance is an account balance entry from the balance channel.
type Balance struct {
	AccountID int64   `json:"accountId"`
	Currency  string  `json:"currency"`
	Available Decimal `json:"available"`
	Reserved  Decimal `json:"reserved"`
}
