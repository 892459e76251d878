package zubr

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zubr-exchange/zubr-sdk/internal/wire"
	"github.com/zubr-exchange/zubr-sdk/pkg/exception"
	"github.com/zubr-exchange/zubr-sdk/pkg/websocket"
)

// Version is the SDK release version, reported in the handshake User-Agent.
const Version = "1.0.0"

const (
	// DefaultURL is the production exchange endpoint.
	DefaultURL = "wss://zubr.io/api/v1/ws"
	// DefaultPingInterval keeps the session alive through idle periods.
	DefaultPingInterval = 15 * time.Second

	userAgent    = "Zubr-SDK-Go/" + Version
	loginTimeout = 10 * time.Second
)

// Config defines the client configuration.
type Config struct {
	// URL is the exchange WebSocket endpoint. Empty means DefaultURL.
	URL string

	// APIKey and APISecret authenticate the session. Leaving both empty
	// runs the client anonymously with public market data only.
	// APISecret is the hex encoded secret from the exchange cabinet.
	APIKey    string
	APISecret string

	// Logger receives client diagnostics. Nil disables logging.
	Logger *zap.Logger

	// PingInterval is the keepalive period. Zero means DefaultPingInterval.
	PingInterval time.Duration

	// Backoff shapes the reconnect delay. Zero value uses defaults.
	Backoff websocket.Backoff

	// MaxReconnectAttempts caps consecutive failed connection attempts.
	// Zero retries forever.
	MaxReconnectAttempts int

	// RequestTimeout fails sent requests whose reply never arrives. Zero
	// disables expiry; entries then live until disconnect or shutdown.
	RequestTimeout time.Duration

	// WriteQueueSize bounds the outbound frame queue.
	WriteQueueSize int

	// DefaultHandler observes well-formed frames no dispatch rule claims.
	DefaultHandler func(payload []byte)

	// OnProtocolError observes frames the client could not parse. The
	// session keeps running either way.
	OnProtocolError func(payload []byte, err error)

	// Dialer overrides the transport. Nil dials URL.
	Dialer websocket.Dialer
}

// Client is an exchange session: one duplex WebSocket carrying remote
// procedure calls and push channel subscriptions. Replies correlate to
// callers by frame id; pushes route by channel name. All methods are safe
// for concurrent use.
type Client struct {
	cfg     Config
	log     *zap.Logger
	table   *correlationTable
	manager *websocket.Manager

	mu      sync.Mutex
	delayed []delayedFrame
	errorCB ErrorCallback
}

// delayedFrame is an encoded request awaiting the next established session.
type delayedFrame struct {
	id      int64
	payload []byte
}

// NewClient validates cfg and builds a client. Requests made before Run
// establishes a session are queued and flushed after the first login.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if (cfg.APIKey == "") != (cfg.APISecret == "") {
		return nil, exception.ErrLoginRequired
	}
	if cfg.APISecret != "" {
		if _, err := hex.DecodeString(cfg.APISecret); err != nil {
			return nil, fmt.Errorf("%w: %w", exception.ErrSecretFormat, err)
		}
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &Client{
		cfg:   cfg,
		log:   cfg.Logger.Named("zubr"),
		table: newCorrelationTable(),
	}

	dialer := cfg.Dialer
	if dialer == nil {
		header := http.Header{}
		header.Set("User-Agent", userAgent)
		dialer = websocket.NewDialer(websocket.DialConfig{
			URL:      cfg.URL,
			Header:   header,
			PongWait: 2*cfg.PingInterval + 10*time.Second,
		})
	}

	manager, err := websocket.NewManager(websocket.Config{
		Dialer:         dialer,
		Handler:        c.handleMessage,
		WriteQueueSize: cfg.WriteQueueSize,
		PingInterval:   cfg.PingInterval,
		Backoff:        cfg.Backoff,
		MaxAttempts:    cfg.MaxReconnectAttempts,
		OnConnect:      c.onConnect,
		OnDisconnect:   c.onDisconnect,
	})
	if err != nil {
		return nil, err
	}
	c.manager = manager
	return c, nil
}

// Run connects and serves the session until ctx is cancelled, the reconnect
// budget is spent, or the exchange rejects the login. Sessions that drop
// reconnect automatically with backoff; requests still pending when Run
// returns fail with exception.ErrCancelled.
func (c *Client) Run(ctx context.Context) error {
	if c.cfg.RequestTimeout > 0 {
		sweepCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go c.sweepLoop(sweepCtx)
	}

	err := c.manager.Run(ctx)

	c.mu.Lock()
	c.delayed = nil
	c.mu.Unlock()
	for _, cb := range c.table.failAll() {
		if cb != nil {
			cb(Result{}, exception.ErrCancelled)
		}
	}
	return err
}

// Connected reports whether a session is currently established.
func (c *Client) Connected() bool {
	return c.manager.Connected()
}

// Pending reports requests awaiting replies, queued requests included.
func (c *Client) Pending() int {
	return c.table.pendingCount()
}

// Subscribe registers cb for a push channel and subscribes on the wire.
// Subscribing an already registered channel replaces the callback without
// touching the wire; the latest registration wins.
func (c *Client) Subscribe(channel string, cb ChannelCallback) error {
	if channel == "" {
		return fmt.Errorf("%w: empty name", exception.ErrSubscriptionInvalid)
	}
	if cb == nil {
		return fmt.Errorf("%w: nil callback for %q", exception.ErrSubscriptionInvalid, channel)
	}
	if !c.table.setChannel(channel, cb) {
		return nil
	}
	return c.sendSubscribe(channel)
}

// Unsubscribe drops the channel registration so later pushes are discarded
// locally. The wire subscription stays; the exchange defines no unsubscribe
// message.
func (c *Client) Unsubscribe(channel string) bool {
	return c.table.removeChannel(channel)
}

// SubscribeInstruments streams the instrument directory.
func (c *Client) SubscribeInstruments(cb ChannelCallback) error {
	return c.Subscribe(wire.ChannelInstruments, cb)
}

// SubscribeOrderbook streams order book snapshots and increments.
func (c *Client) SubscribeOrderbook(cb ChannelCallback) error {
	return c.Subscribe(wire.ChannelOrderbook, cb)
}

// SubscribeLastTrades streams the public trade feed.
func (c *Client) SubscribeLastTrades(cb ChannelCallback) error {
	return c.Subscribe(wire.ChannelLastTrades, cb)
}

// SubscribeCandles streams candles for one instrument at the given
// resolution.
func (c *Client) SubscribeCandles(instrumentID int64, resolution string, cb ChannelCallback) error {
	if resolution == "" {
		return fmt.Errorf("%w: empty resolution", exception.ErrSubscriptionInvalid)
	}
	return c.Subscribe(wire.CandlesChannel(instrumentID, resolution), cb)
}

// SubscribeOrders streams own order state changes. Requires credentials.
func (c *Client) SubscribeOrders(cb ChannelCallback) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	return c.Subscribe(wire.ChannelOrders, cb)
}

// SubscribeOrderFills streams own fills. Requires credentials.
func (c *Client) SubscribeOrderFills(cb ChannelCallback) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	return c.Subscribe(wire.ChannelOrderFills, cb)
}

// SubscribeBalance streams account balance updates. Requires credentials.
func (c *Client) SubscribeBalance(cb ChannelCallback) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	return c.Subscribe(wire.ChannelBalance, cb)
}

// SubscribeErrors registers cb for server error frames carrying no
// correlation id. A nil cb returns such frames to the log.
func (c *Client) SubscribeErrors(cb ErrorCallback) {
	c.mu.Lock()
	c.errorCB = cb
	c.mu.Unlock()
}

// OrderRequest describes a new order.
type OrderRequest struct {
	InstrumentID int64
	Price        Decimal
	Size         int64
	Type         OrderType
	TimeInForce  TimeInForce
	Side         OrderSide
}

func (r OrderRequest) validate() error {
	switch {
	case r.InstrumentID <= 0:
		return fmt.Errorf("%w: instrument id %d", exception.ErrOrderInvalidRequest, r.InstrumentID)
	case r.Size <= 0:
		return fmt.Errorf("%w: size %d", exception.ErrOrderInvalidRequest, r.Size)
	case r.Price.Sign() <= 0:
		return fmt.Errorf("%w: price %s", exception.ErrOrderInvalidRequest, r.Price)
	case !r.Side.IsAvailable():
		return fmt.Errorf("%w: %d", exception.ErrOrderUnsupportedSide, r.Side)
	case !r.Type.IsAvailable():
		return fmt.Errorf("%w: %d", exception.ErrOrderUnsupportedType, r.Type)
	case !r.TimeInForce.IsAvailable():
		return fmt.Errorf("%w: %d", exception.ErrOrderUnsupportedTimeInForce, r.TimeInForce)
	}
	return nil
}

type placeOrderParams struct {
	Instrument  int64       `json:"instrument"`
	Price       Decimal     `json:"price"`
	Size        int64       `json:"size"`
	Type        OrderType   `json:"type"`
	TimeInForce TimeInForce `json:"timeInForce"`
	Side        OrderSide   `json:"side"`
}

type replaceOrderParams struct {
	OrderID string  `json:"orderId"`
	Price   Decimal `json:"price"`
	Size    int64   `json:"size"`
}

type candlesRangeParams struct {
	InstrumentID int64  `json:"instrumentId"`
	Resolution   string `json:"resolution"`
	From         int64  `json:"from"`
	To           int64  `json:"to"`
}

// PlaceOrder submits a new order. The reply carries the assigned order id.
func (c *Client) PlaceOrder(req OrderRequest, cb RPCCallback) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}
	return c.rpc(wire.RPCPlaceOrder, placeOrderParams{
		Instrument:  req.InstrumentID,
		Price:       req.Price,
		Size:        req.Size,
		Type:        req.Type,
		TimeInForce: req.TimeInForce,
		Side:        req.Side,
	}, cb)
}

// Buy submits req with the side forced to buy.
func (c *Client) Buy(req OrderRequest, cb RPCCallback) error {
	req.Side = OrderSideBuy
	return c.PlaceOrder(req, cb)
}

// Sell submits req with the side forced to sell.
func (c *Client) Sell(req OrderRequest, cb RPCCallback) error {
	req.Side = OrderSideSell
	return c.PlaceOrder(req, cb)
}

// ReplaceOrder amends price and size of an open order.
func (c *Client) ReplaceOrder(orderID string, price Decimal, size int64, cb RPCCallback) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	switch {
	case orderID == "":
		return fmt.Errorf("%w: empty order id", exception.ErrOrderInvalidRequest)
	case size <= 0:
		return fmt.Errorf("%w: size %d", exception.ErrOrderInvalidRequest, size)
	case price.Sign() <= 0:
		return fmt.Errorf("%w: price %s", exception.ErrOrderInvalidRequest, price)
	}
	return c.rpc(wire.RPCReplaceOrder, replaceOrderParams{
		OrderID: orderID,
		Price:   price,
		Size:    size,
	}, cb)
}

// CancelOrder cancels an open order by id.
func (c *Client) CancelOrder(orderID string, cb RPCCallback) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	if orderID == "" {
		return fmt.Errorf("%w: empty order id", exception.ErrOrderInvalidRequest)
	}
	// cancelOrder params are the bare order id string.
	return c.rpc(wire.RPCCancelOrder, orderID, cb)
}

// GetCandlesRange fetches historical candles for [from, to]. Works without
// credentials; the exchange rejects it if a session is required.
func (c *Client) GetCandlesRange(instrumentID int64, resolution string, from, to time.Time, cb RPCCallback) error {
	if resolution == "" {
		return fmt.Errorf("%w: empty resolution", exception.ErrOrderInvalidRequest)
	}
	return c.rpc(wire.RPCGetCandlesRange, candlesRangeParams{
		InstrumentID: instrumentID,
		Resolution:   resolution,
		From:         from.Unix(),
		To:           to.Unix(),
	}, cb)
}

func (c *Client) requireLogin() error {
	if c.cfg.APIKey == "" {
		return exception.ErrLoginRequired
	}
	return nil
}

// rpc encodes and dispatches one remote procedure call. While disconnected
// the frame queues for the next established session instead of failing.
func (c *Client) rpc(method string, params any, cb RPCCallback) error {
	id := c.table.allocID()
	frame, err := wire.EncodeRPC(id, method, params)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	now := time.Now()

	c.mu.Lock()
	if !c.manager.Connected() {
		c.table.track(id, cb, false, now)
		c.delayed = append(c.delayed, delayedFrame{id: id, payload: frame})
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.table.track(id, cb, true, now)
	if err := c.manager.Send(websocket.MessageText, frame); err != nil {
		if errors.Is(err, websocket.ErrNotConnected) {
			// The session dropped between the check and the send. Requeue,
			// unless the disconnect already failed this request; resending a
			// request whose callback fired would double-submit it.
			if c.table.markQueued(id) {
				c.mu.Lock()
				c.delayed = append(c.delayed, delayedFrame{id: id, payload: frame})
				c.mu.Unlock()
			}
			return nil
		}
		c.table.remove(id)
		return fmt.Errorf("%w: %s: %w", exception.ErrConnectionFailed, method, err)
	}
	return nil
}

// sendSubscribe writes the subscription frame for an established session.
// The ack is tracked with a nil callback so it resolves silently. While
// disconnected nothing is sent; the next login replays every registration.
func (c *Client) sendSubscribe(channel string) error {
	if !c.manager.Connected() {
		return nil
	}
	id := c.table.allocID()
	frame, err := wire.EncodeSubscribe(id, channel)
	if err != nil {
		return fmt.Errorf("encode subscribe %s: %w", channel, err)
	}
	c.table.track(id, nil, true, time.Now())
	if err := c.manager.Send(websocket.MessageText, frame); err != nil {
		c.table.remove(id)
		if errors.Is(err, websocket.ErrNotConnected) {
			return nil
		}
		return fmt.Errorf("%w: subscribe %s: %w", exception.ErrConnectionFailed, channel, err)
	}
	return nil
}

// handleMessage is the inbound pump. It classifies each frame and routes it
// by dispatch precedence: correlation id, then server error, then channel.
func (c *Client) handleMessage(_ websocket.MessageType, payload []byte) {
	in, err := wire.ParseInbound(payload)
	if err != nil {
		c.protocolError(payload, err)
		return
	}
	c.dispatch(in)
}

func (c *Client) protocolError(payload []byte, err error) {
	err = fmt.Errorf("%w: %w", exception.ErrProtocol, err)
	c.log.Warn("dropping unparseable frame", zap.Error(err), zap.ByteString("frame", payload))
	if c.cfg.OnProtocolError != nil {
		c.cfg.OnProtocolError(payload, err)
	}
}

func (c *Client) dispatch(in wire.Inbound) {
	switch in.Kind {
	case wire.KindResult:
		cb, ok := c.table.resolve(in.ID)
		if !ok {
			c.log.Debug("reply for unknown id",
				zap.Int64("id", in.ID),
				zap.Error(exception.ErrUnknownCorrelation))
			return
		}
		if cb != nil {
			cb(decodeResult(in.Payload), nil)
		}
	case wire.KindPush:
		cb, ok := c.table.channel(in.Channel)
		if !ok {
			c.log.Debug("push for unregistered channel", zap.String("channel", in.Channel))
			return
		}
		cb(decodeResult(in.Payload))
	case wire.KindError:
		c.mu.Lock()
		cb := c.errorCB
		c.mu.Unlock()
		if cb != nil {
			cb(ServerError{Code: in.Err.Code, Message: in.Err.Message})
			return
		}
		c.log.Warn("server error",
			zap.Int("code", in.Err.Code),
			zap.String("message", in.Err.Message))
	default:
		if c.cfg.DefaultHandler != nil {
			c.cfg.DefaultHandler(in.Raw)
			return
		}
		c.log.Debug("unclaimed frame", zap.ByteString("frame", in.Raw))
	}
}

// onConnect runs the session handshake on the fresh connection, before the
// pumps start: login, channel replay, then the queued request flush.
func (c *Client) onConnect(ctx context.Context, conn websocket.Conn) error {
	log := c.log.With(zap.String("session", uuid.NewString()))
	log.Info("connected", zap.String("url", c.cfg.URL))

	if c.cfg.APIKey != "" {
		if err := c.login(ctx, conn, log); err != nil {
			return err
		}
	}
	if err := c.resubscribe(ctx, conn, log); err != nil {
		return err
	}
	return c.flushDelayed(ctx, conn, log)
}

// login sends the signed login frame and blocks until the exchange answers
// it. Frames arriving ahead of the login reply route through the usual
// dispatch so early pushes are not lost.
func (c *Client) login(ctx context.Context, conn websocket.Conn, log *zap.Logger) error {
	id := c.table.allocID()
	frame, err := wire.EncodeLogin(id, c.cfg.APIKey, c.cfg.APISecret, time.Now())
	if err != nil {
		return websocket.Permanent(err)
	}
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("send login: %w", err)
	}

	loginCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()
	for {
		msgType, payload, err := conn.Read(loginCtx)
		if err != nil {
			return fmt.Errorf("await login reply: %w", err)
		}
		if msgType != websocket.MessageText && msgType != websocket.MessageBinary {
			continue
		}
		in, perr := wire.ParseInbound(payload)
		if perr != nil {
			c.protocolError(payload, perr)
			continue
		}
		if in.Kind != wire.KindResult || in.ID != id {
			c.dispatch(in)
			continue
		}
		res := decodeResult(in.Payload)
		if !res.OK() {
			// Bad credentials stay bad; reconnecting cannot help.
			return websocket.Permanent(fmt.Errorf("%w: %s", exception.ErrLoginRejected, res.Value))
		}
		log.Info("login accepted", zap.String("api_key", c.cfg.APIKey))
		return nil
	}
}

// resubscribe replays every registered channel on the fresh session, ahead
// of any queued requests and of the pumps that deliver pushes.
func (c *Client) resubscribe(ctx context.Context, conn websocket.Conn, log *zap.Logger) error {
	channels := c.table.channelNames()
	for _, name := range channels {
		id := c.table.allocID()
		frame, err := wire.EncodeSubscribe(id, name)
		if err != nil {
			return fmt.Errorf("encode subscribe %s: %w", name, err)
		}
		c.table.track(id, nil, true, time.Now())
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			c.table.remove(id)
			return fmt.Errorf("send subscribe %s: %w", name, err)
		}
	}
	if len(channels) > 0 {
		log.Info("resubscribed", zap.Strings("channels", channels))
	}
	return nil
}

// flushDelayed writes requests queued while disconnected, in submit order.
// Holding mu for the whole flush means a concurrent rpc either lands in
// this flush or observes the established session and takes the send path.
func (c *Client) flushDelayed(ctx context.Context, conn websocket.Conn, log *zap.Logger) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	flushed := 0
	for len(c.delayed) > 0 {
		f := c.delayed[0]
		if err := conn.Write(ctx, websocket.MessageText, f.payload); err != nil {
			return fmt.Errorf("flush queued request: %w", err)
		}
		c.delayed = c.delayed[1:]
		c.table.markSent(f.id)
		flushed++
	}
	c.delayed = nil
	if flushed > 0 {
		log.Info("flushed queued requests", zap.Int("count", flushed))
	}
	return nil
}

// onDisconnect fails every wire-sent request; its reply can no longer be
// matched trustworthily. Queued requests survive for the next session.
// Context cancellation is shutdown, not loss; Run fails those pendings.
func (c *Client) onDisconnect(err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	failed := c.table.failSent()
	c.log.Warn("disconnected", zap.Error(err), zap.Int("failed_requests", len(failed)))
	for _, cb := range failed {
		if cb != nil {
			cb(Result{}, exception.ErrConnectionLost)
		}
	}
}

// sweepLoop expires sent requests older than the configured timeout.
func (c *Client) sweepLoop(ctx context.Context) {
	interval := c.cfg.RequestTimeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			expired := c.table.expire(now.Add(-c.cfg.RequestTimeout))
			if len(expired) == 0 {
				continue
			}
			c.log.Warn("requests timed out", zap.Int("count", len(expired)))
			for _, cb := range expired {
				if cb != nil {
					cb(Result{}, exception.ErrRequestTimeout)
				}
			}
		}
	}
}
