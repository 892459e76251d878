package wire

import (
	"encoding/json"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSubscribeShape(t *testing.T) {
	frame, err := EncodeSubscribe(3, ChannelOrderbook)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"method":1,"params":{"channel":"orderbook"}}`, string(frame))
}

func TestEncodeRPCShape(t *testing.T) {
	frame, err := EncodeRPC(7, RPCCancelOrder, "123456789")
	require.NoError(t, err)

	var env struct {
		ID     int64 `json:"id"`
		Method int   `json:"method"`
		Params struct {
			Data struct {
				Method string          `json:"method"`
				Params json.RawMessage `json:"params"`
			} `json:"data"`
		} `json:"params"`
	}
	require.NoError(t, sonic.ConfigFastest.Unmarshal(frame, &env))
	assert.Equal(t, int64(7), env.ID)
	assert.Equal(t, 9, env.Method)
	assert.Equal(t, "cancelOrder", env.Params.Data.Method)
	assert.JSONEq(t, `"123456789"`, string(env.Params.Data.Params))
}

func TestCandlesChannel(t *testing.T) {
	assert.Equal(t, "candles:15:1", CandlesChannel(15, "1"))
	assert.Equal(t, "candles:2:60", CandlesChannel(2, "60"))
}

func TestParseInboundResult(t *testing.T) {
	in, err := ParseInbound([]byte(`{"id":12,"result":{"tag":"ok","value":{"orderId":"5"}}}`))
	require.NoError(t, err)
	assert.Equal(t, KindResult, in.Kind)
	assert.Equal(t, int64(12), in.ID)
	assert.JSONEq(t, `{"tag":"ok","value":{"orderId":"5"}}`, string(in.Payload))
}

func TestParseInboundPush(t *testing.T) {
	in, err := ParseInbound([]byte(`{"result":{"channel":"orderbook","data":{"tag":"ok","value":{"bid":100,"ask":101}}}}`))
	require.NoError(t, err)
	assert.Equal(t, KindPush, in.Kind)
	assert.Equal(t, "orderbook", in.Channel)
	assert.JSONEq(t, `{"tag":"ok","value":{"bid":100,"ask":101}}`, string(in.Payload))
}

func TestParseInboundError(t *testing.T) {
	in, err := ParseInbound([]byte(`{"error":{"code":111,"message":"unauthorized"}}`))
	require.NoError(t, err)
	assert.Equal(t, KindError, in.Kind)
	require.NotNil(t, in.Err)
	assert.Equal(t, 111, in.Err.Code)
	assert.Equal(t, "unauthorized", in.Err.Message)
}

func TestParseInboundPrecedence(t *testing.T) {
	// A correlation id claims the frame even when an error object rides along.
	in, err := ParseInbound([]byte(`{"id":5,"error":{"code":1,"message":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, KindResult, in.Kind)
	assert.Equal(t, int64(5), in.ID)
}

func TestParseInboundUnknown(t *testing.T) {
	in, err := ParseInbound([]byte(`{"result":{"tag":"ok","value":1}}`))
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, in.Kind)

	in, err = ParseInbound([]byte(`{"serverTime":1565107488}`))
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, in.Kind)
}

func TestParseInboundMalformed(t *testing.T) {
	_, err := ParseInbound([]byte(`{"id":`))
	assert.Error(t, err)

	_, err = ParseInbound([]byte(`{"id":"abc"}`))
	assert.Error(t, err)
}
