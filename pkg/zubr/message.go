package zubr

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Result is the tagged payload the exchange attaches to replies and
// channel data: {"tag":"ok"|"err","value":...}.
type Result struct {
	Tag   string          `json:"tag"`
	Value json.RawMessage `json:"value"`
}

// OK reports whether the server tagged the payload as success.
func (r Result) OK() bool {
	return r.Tag == "ok"
}

// Decode unmarshals the value into v.
func (r Result) Decode(v any) error {
	if len(r.Value) == 0 {
		return fmt.Errorf("zubr: empty result value")
	}
	return sonic.ConfigFastest.Unmarshal(r.Value, v)
}

// decodeResult is lenient the way the dispatch path needs: payloads that
// are not tag/value shaped ride through whole in Value.
func decodeResult(payload []byte) Result {
	if len(payload) == 0 {
		return Result{}
	}
	var res Result
	if err := sonic.ConfigFastest.Unmarshal(payload, &res); err != nil || (res.Tag == "" && len(res.Value) == 0) {
		return Result{Value: payload}
	}
	return res
}

// RPCCallback consumes the reply to a single request. err is set when the
// SDK fails the request locally: connection lost, cancelled at shutdown,
// or timed out. Otherwise res carries the server reply, which may still be
// tagged "err".
type RPCCallback func(res Result, err error)

// ChannelCallback consumes push data for a subscribed channel.
type ChannelCallback func(res Result)

// ServerError is an error frame that carries no correlation id.
type ServerError struct {
	Code    int
	Message string
}

func (e ServerError) Error() string {
	return fmt.Sprintf("zubr: server error %d: %s", e.Code, e.Message)
}

// ErrorCallback consumes server error frames.
type ErrorCallback func(err ServerError)
