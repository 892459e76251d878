// Package wire implements the exchange frame encoding: outbound envelopes,
// inbound frame classification, and the login digest.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Method selects the frame family on an outbound envelope.
type Method int

const (
	// MethodChannel manages push channel subscriptions.
	MethodChannel Method = 1
	// MethodRPC invokes a remote procedure.
	MethodRPC Method = 9
)

// Push channel names.
const (
	ChannelInstruments = "instruments"
	ChannelOrderbook   = "orderbook"
	ChannelLastTrades  = "lasttrades"
	ChannelOrders      = "orders"
	ChannelOrderFills  = "orderFills"
	ChannelBalance     = "balance"
)

// Remote procedure names.
const (
	RPCPlaceOrder      = "placeOrder"
	RPCReplaceOrder    = "replaceOrder"
	RPCCancelOrder     = "cancelOrder"
	RPCGetCandlesRange = "getCandlesRange"
	RPCLogin           = "loginSessionByApiToken"
)

// CandlesChannel builds the per-instrument candle channel name.
func CandlesChannel(instrumentID int64, resolution string) string {
	return fmt.Sprintf("candles:%d:%s", instrumentID, resolution)
}

// Envelope is the outbound frame shape.
type Envelope struct {
	ID     int64  `json:"id"`
	Method Method `json:"method"`
	Params any    `json:"params"`
}

type rpcData struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

type rpcParams struct {
	Data rpcData `json:"data"`
}

type channelParams struct {
	Channel string `json:"channel"`
}

// EncodeRPC builds a remote procedure frame. RPC params ride nested under
// a data block on the wire.
func EncodeRPC(id int64, method string, params any) ([]byte, error) {
	return sonic.ConfigFastest.Marshal(Envelope{
		ID:     id,
		Method: MethodRPC,
		Params: rpcParams{Data: rpcData{Method: method, Params: params}},
	})
}

// EncodeSubscribe builds a channel subscription frame.
func EncodeSubscribe(id int64, channel string) ([]byte, error) {
	return sonic.ConfigFastest.Marshal(Envelope{
		ID:     id,
		Method: MethodChannel,
		Params: channelParams{Channel: channel},
	})
}

// Kind tags a classified inbound frame.
type Kind uint8

const (
	// KindUnknown is a well-formed frame no dispatch rule claims.
	KindUnknown Kind = iota
	// KindResult is a reply carrying a correlation id.
	KindResult
	// KindPush is channel data.
	KindPush
	// KindError is a server error frame without a correlation id.
	KindError
)

// ServerError is the error object attached to error frames.
type ServerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// Inbound is a classified inbound frame.
type Inbound struct {
	Kind    Kind
	ID      int64
	Channel string
	// Payload holds the result body for KindResult and the channel data for
	// KindPush.
	Payload json.RawMessage
	Err     *ServerError
	Raw     []byte
}

type inboundProbe struct {
	ID     *int64          `json:"id"`
	Error  *ServerError    `json:"error"`
	Result json.RawMessage `json:"result"`
}

type resultProbe struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// ParseInbound classifies a frame by dispatch precedence: a correlation id
// wins over a server error, which wins over a channel push.
func ParseInbound(payload []byte) (Inbound, error) {
	var probe inboundProbe
	if err := sonic.ConfigFastest.Unmarshal(payload, &probe); err != nil {
		return Inbound{}, fmt.Errorf("wire: parse frame: %w", err)
	}
	in := Inbound{Raw: payload}
	switch {
	case probe.ID != nil:
		in.Kind = KindResult
		in.ID = *probe.ID
		in.Payload = probe.Result
	case probe.Error != nil:
		in.Kind = KindError
		in.Err = probe.Error
	case len(probe.Result) > 0:
		var res resultProbe
		if err := sonic.ConfigFastest.Unmarshal(probe.Result, &res); err != nil {
			return Inbound{}, fmt.Errorf("wire: parse result: %w", err)
		}
		if res.Channel == "" {
			return in, nil
		}
		in.Kind = KindPush
		in.Channel = res.Channel
		in.Payload = res.Data
	}
	return in, nil
}
