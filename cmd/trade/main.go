package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zubr-exchange/zubr-sdk/pkg/zubr"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("trade: %v", err)
		os.Exit(1)
	}
}

type reply struct {
	res zubr.Result
	err error
}

func run() error {
	urlFlag := flag.String("url", zubr.DefaultURL, "exchange websocket endpoint")
	actionFlag := flag.String("action", "place", "action: place|replace|cancel")
	instrumentFlag := flag.Int64("instrument", 0, "instrument id (place)")
	sideFlag := flag.String("side", "buy", "order side: buy|sell (place)")
	priceFlag := flag.String("price", "", "order price, e.g. 9605.5 (place, replace)")
	sizeFlag := flag.Int64("size", 1, "order size in contracts (place, replace)")
	typeFlag := flag.String("type", "limit", "order type: limit|post_only|market (place)")
	tifFlag := flag.String("tif", "gtc", "time in force: gtc|ioc|fok|session (place)")
	orderFlag := flag.String("order-id", "", "order id (replace, cancel)")
	timeoutFlag := flag.Duration("timeout", 10*time.Second, "reply wait budget")
	flag.Parse()

	apiKey := os.Getenv("ZUBR_API_KEY")
	apiSecret := os.Getenv("ZUBR_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		return errors.New("missing credentials; set ZUBR_API_KEY and ZUBR_API_SECRET")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := zubr.NewClient(zubr.Config{
		URL:                  *urlFlag,
		APIKey:               apiKey,
		APISecret:            apiSecret,
		Logger:               logger,
		RequestTimeout:       *timeoutFlag,
		MaxReconnectAttempts: 5,
	})
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}

	replies := make(chan reply, 1)
	callback := func(res zubr.Result, err error) { replies <- reply{res, err} }

	action := strings.ToLower(strings.TrimSpace(*actionFlag))
	switch action {
	case "place":
		req, err := buildOrderRequest(*instrumentFlag, *sideFlag, *priceFlag, *sizeFlag, *typeFlag, *tifFlag)
		if err != nil {
			return err
		}
		if err := client.PlaceOrder(req, callback); err != nil {
			return err
		}
	case "replace":
		if *orderFlag == "" {
			return errors.New("missing order id; use -order-id")
		}
		price, err := zubr.DecimalFromString(*priceFlag)
		if err != nil {
			return err
		}
		if err := client.ReplaceOrder(*orderFlag, price, *sizeFlag, callback); err != nil {
			return err
		}
	case "cancel":
		if *orderFlag == "" {
			return errors.New("missing order id; use -order-id")
		}
		if err := client.CancelOrder(*orderFlag, callback); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown action: %s", *actionFlag)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- client.Run(runCtx) }()

	var outcome reply
	select {
	case outcome = <-replies:
	case err := <-done:
		return fmt.Errorf("client stopped before the reply: %w", err)
	}

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("client stopped", zap.Error(err))
	}

	if outcome.err != nil {
		return fmt.Errorf("%s failed: %w", action, outcome.err)
	}
	if !outcome.res.OK() {
		return fmt.Errorf("exchange rejected %s: %s", action, outcome.res.Value)
	}

	switch action {
	case "place":
		var placed struct {
			OrderID string `json:"orderId"`
		}
		if err := outcome.res.Decode(&placed); err == nil && placed.OrderID != "" {
			logger.Info("order placed", zap.String("order_id", placed.OrderID))
			return nil
		}
	case "replace":
		var replaced struct {
			OrderID string `json:"orderId"`
		}
		if err := outcome.res.Decode(&replaced); err == nil && replaced.OrderID != "" {
			logger.Info("order replaced", zap.String("order_id", replaced.OrderID))
			return nil
		}
	}
	logger.Info("request accepted", zap.ByteString("reply", outcome.res.Value))
	return nil
}

func buildOrderRequest(instrument int64, side, price string, size int64, orderType, tif string) (zubr.OrderRequest, error) {
	var req zubr.OrderRequest
	if instrument <= 0 {
		return req, errors.New("missing instrument; use -instrument")
	}
	parsedPrice, err := zubr.DecimalFromString(price)
	if err != nil {
		return req, err
	}
	parsedSide, err := parseSide(side)
	if err != nil {
		return req, err
	}
	parsedType, err := parseType(orderType)
	if err != nil {
		return req, err
	}
	parsedTIF, err := parseTimeInForce(tif)
	if err != nil {
		return req, err
	}
	return zubr.OrderRequest{
		InstrumentID: instrument,
		Price:        parsedPrice,
		Size:         size,
		Type:         parsedType,
		TimeInForce:  parsedTIF,
		Side:         parsedSide,
	}, nil
}

func parseSide(value string) (zubr.OrderSide, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "buy":
		return zubr.OrderSideBuy, nil
	case "sell":
		return zubr.OrderSideSell, nil
	default:
		return 0, fmt.Errorf("unknown side: %s", value)
	}
}

func parseType(value string) (zubr.OrderType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "limit":
		return zubr.OrderTypeLimit, nil
	case "post_only", "post-only":
		return zubr.OrderTypePostOnly, nil
	case "market":
		return zubr.OrderTypeMarket, nil
	default:
		return 0, fmt.Errorf("unknown order type: %s", value)
	}
}

func parseTimeInForce(value string) (zubr.TimeInForce, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "gtc":
		return zubr.TimeInForceGTC, nil
	case "ioc":
		return zubr.TimeInForceIOC, nil
	case "fok":
		return zubr.TimeInForceFOK, nil
	case "session":
		return zubr.TimeInForceSession, nil
	default:
		return 0, fmt.Errorf("unknown time in force: %s", value)
	}
}
