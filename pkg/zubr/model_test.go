package zubr

import (
	"encoding/json"
	"testing"
)

func TestInstrumentsUpdateDecode(t *testing.T) {
	payload := []byte(`{
		"1": {"id":1,"symbol":"BTCUSD","status":"READY_TO_TRADE",
			"minPriceIncrement":{"mantissa":5,"exponent":-1},
			"contractSize":{"mantissa":1,"exponent":-3}}
	}`)
	var update InstrumentsUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		t.Fatalf("decode instruments: %v", err)
	}
	inst, ok := update["1"]
	if !ok {
		t.Fatalf("instrument 1 missing: %+v", update)
	}
	if inst.ID != 1 || inst.Symbol != "BTCUSD" || inst.Status != "READY_TO_TRADE" {
		t.Fatalf("instrument mismatch: %+v", inst)
	}
	if inst.MinPriceIncrement.String() != "0.5" {
		t.Fatalf("min price increment mismatch: got %s", inst.MinPriceIncrement)
	}
	if inst.ContractSize.String() != "0.001" {
		t.Fatalf("contract size mismatch: got %s", inst.ContractSize)
	}
}

func TestOrderBookUpdateDecode(t *testing.T) {
	payload := []byte(`{
		"instrumentId":2,"isSnapshot":true,"timestamp":1594794570947,
		"bids":[{"price":{"mantissa":93205,"exponent":-1},"size":100}],
		"asks":[{"price":{"mantissa":93265,"exponent":-1},"size":5},
			{"price":{"mantissa":93270,"exponent":-1},"size":7}]
	}`)
	var book OrderBookUpdate
	if err := json.Unmarshal(payload, &book); err != nil {
		t.Fatalf("decode orderbook: %v", err)
	}
	if book.InstrumentID != 2 || !book.IsSnapshot || book.Timestamp != 1594794570947 {
		t.Fatalf("header mismatch: %+v", book)
	}
	if len(book.Bids) != 1 || len(book.Asks) != 2 {
		t.Fatalf("level counts mismatch: bids=%d asks=%d", len(book.Bids), len(book.Asks))
	}
	if book.Bids[0].Price.String() != "9320.5" || book.Bids[0].Size != 100 {
		t.Fatalf("bid mismatch: %+v", book.Bids[0])
	}
	if book.Asks[1].Price.String() != "9327" || book.Asks[1].Size != 7 {
		t.Fatalf("ask mismatch: %+v", book.Asks[1])
	}
}

func TestLastTradesDecode(t *testing.T) {
	snapshot := []byte(`{"type":"snapshot","payload":[
		{"id":7,"instrumentId":2,"price":{"mantissa":93205,"exponent":-1},"size":3,"side":"BUY","timestamp":1594794570000},
		{"id":8,"instrumentId":2,"price":{"mantissa":93210,"exponent":-1},"size":1,"side":"SELL","timestamp":1594794571000}
	]}`)
	var lt LastTrades
	if err := json.Unmarshal(snapshot, &lt); err != nil {
		t.Fatalf("decode lasttrades: %v", err)
	}
	if lt.Type != LastTradesSnapshot {
		t.Fatalf("type mismatch: got %s", lt.Type)
	}
	trades, err := lt.Snapshot()
	if err != nil {
		t.Fatalf("decode snapshot payload: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trade count mismatch: got %d", len(trades))
	}
	if trades[0].ID != 7 || trades[0].Side != OrderSideBuy || trades[0].Price.String() != "9320.5" {
		t.Fatalf("trade mismatch: %+v", trades[0])
	}

	single := []byte(`{"type":"trade","payload":
		{"id":9,"instrumentId":2,"price":{"mantissa":93215,"exponent":-1},"size":2,"side":"SELL","timestamp":1594794572000}}`)
	if err := json.Unmarshal(single, &lt); err != nil {
		t.Fatalf("decode single trade: %v", err)
	}
	if lt.Type != LastTradesTrade {
		t.Fatalf("type mismatch: got %s", lt.Type)
	}
	trade, err := lt.Trade()
	if err != nil {
		t.Fatalf("decode trade payload: %v", err)
	}
	if trade.ID != 9 || trade.Side != OrderSideSell || trade.Size != 2 {
		t.Fatalf("trade mismatch: %+v", trade)
	}
}

func TestOrderDecode(t *testing.T) {
	payload := []byte(`{
		"orderId":"797v71oJw1","instrumentId":2,"side":"SELL","type":"LIMIT",
		"timeInForce":"GTC","price":{"mantissa":96055,"exponent":-1},
		"initialSize":10,"remainingSize":10,"status":"NEW","updateTime":1594794571000
	}`)
	var order Order
	if err := json.Unmarshal(payload, &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.ID != "797v71oJw1" || order.InstrumentID != 2 {
		t.Fatalf("identity mismatch: %+v", order)
	}
	if order.Side != OrderSideSell || order.Type != OrderTypeLimit || order.TimeInForce != TimeInForceGTC {
		t.Fatalf("enum mismatch: %+v", order)
	}
	if order.Price.String() != "9605.5" || order.InitialSize != 10 || order.Status != "NEW" {
		t.Fatalf("state mismatch: %+v", order)
	}
}

func TestFillDecode(t *testing.T) {
	payload := []byte(`{
		"orderId":"797v71oJw1","tradeId":11,"instrumentId":2,"side":"SELL",
		"price":{"mantissa":96055,"exponent":-1},"size":4,"timestamp":1594794580000
	}`)
	var fill Fill
	if err := json.Unmarshal(payload, &fill); err != nil {
		t.Fatalf("decode fill: %v", err)
	}
	if fill.OrderID != "797v71oJw1" || fill.TradeID != 11 || fill.Size != 4 {
		t.Fatalf("fill mismatch: %+v", fill)
	}
	if fill.Side != OrderSideSell || fill.Price.String() != "9605.5" {
		t.Fatalf("fill detail mismatch: %+v", fill)
	}
}

func TestBalanceDecode(t *testing.T) {
	payload := []byte(`{
		"accountId":5,"currency":"USD",
		"available":{"mantissa":1000000,"exponent":-2},
		"reserved":{"mantissa":25000,"exponent":-2}
	}`)
	var balance Balance
	if err := json.Unmarshal(payload, &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.AccountID != 5 || balance.Currency != "USD" {
		t.Fatalf("account mismatch: %+v", balance)
	}
	if balance.Available.String() != "10000" || balance.Reserved.String() != "250" {
		t.Fatalf("amount mismatch: available=%s reserved=%s", balance.Available, balance.Reserved)
	}
}

func TestCandlesUpdateDecode(t *testing.T) {
	payload := []byte(`{
		"instrumentId":2,"resolution":"1h","candles":[
			{"timestamp":1594790000000,
			 "open":{"mantissa":93000,"exponent":-1},"high":{"mantissa":93500,"exponent":-1},
			 "low":{"mantissa":92800,"exponent":-1},"close":{"mantissa":93205,"exponent":-1},
			 "volume":120}
	]}`)
	var update CandlesUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		t.Fatalf("decode candles: %v", err)
	}
	if update.InstrumentID != 2 || update.Resolution != "1h" || len(update.Candles) != 1 {
		t.Fatalf("update mismatch: %+v", update)
	}
	bar := update.Candles[0]
	if bar.Open.String() != "9300" || bar.Close.String() != "9320.5" || bar.Volume != 120 {
		t.Fatalf("bar mismatch: %+v", bar)
	}
}
