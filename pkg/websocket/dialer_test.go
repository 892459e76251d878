package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func wsServer(t *testing.T, handler func(conn *gws.Conn)) string {
	t.Helper()
	upgrader := gws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func echoHandler(conn *gws.Conn) {
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(msgType, payload); err != nil {
			return
		}
	}
}

func silentHandler(conn *gws.Conn) {
	// Hold the connection open without ever sending.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestDialWriteRead(t *testing.T) {
	d := NewDialer(DialConfig{URL: wsServer(t, echoHandler)})
	conn, err := d.Dial(t.Context())
	require.NoError(t, err)
	defer func() { _ = conn.Close(CloseNormal, "done") }()

	require.NoError(t, conn.Write(t.Context(), MessageText, []byte(`{"id":1}`)))
	msgType, payload, err := conn.Read(t.Context())
	require.NoError(t, err)
	require.Equal(t, MessageText, msgType)
	require.Equal(t, `{"id":1}`, string(payload))
}

func TestConnReadHonorsContextDeadline(t *testing.T) {
	// The liveness window is long on purpose; the read must still return
	// within the context budget.
	d := NewDialer(DialConfig{URL: wsServer(t, silentHandler), PongWait: time.Minute})
	conn, err := d.Dial(t.Context())
	require.NoError(t, err)
	defer func() { _ = conn.Close(CloseNormal, "done") }()

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err = conn.Read(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestConnReadExpiredContext(t *testing.T) {
	d := NewDialer(DialConfig{URL: wsServer(t, silentHandler)})
	conn, err := d.Dial(t.Context())
	require.NoError(t, err)
	defer func() { _ = conn.Close(CloseNormal, "done") }()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, _, err = conn.Read(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
