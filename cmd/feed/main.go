package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/pkg/sys"
	"go.uber.org/zap"

	"github.com/zubr-exchange/zubr-sdk/pkg/zubr"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("feed: %v", err)
		os.Exit(1)
	}
}

type feedStats struct {
	instruments atomic.Uint64
	books       atomic.Uint64
	trades      atomic.Uint64
	candles     atomic.Uint64
}

func run() error {
	urlFlag := flag.String("url", zubr.DefaultURL, "exchange websocket endpoint")
	instrumentFlag := flag.Int64("instrument", 0, "instrument id for candle streaming (0 disables)")
	resolutionFlag := flag.String("resolution", "60", "candle resolution")
	statsFlag := flag.Duration("stats-interval", 15*time.Second, "stats report period (0 disables)")
	pyroscopeFlag := flag.String("pyroscope", "", "pyroscope server address (empty disables profiling)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if *pyroscopeFlag != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "zubr/feed",
			ServerAddress:   *pyroscopeFlag,
			Tags:            map[string]string{"env": "local"},
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return fmt.Errorf("pyroscope start: %w", err)
		}
		defer func() { _ = profiler.Stop() }()
	}

	client, err := zubr.NewClient(zubr.Config{
		URL:       *urlFlag,
		APIKey:    os.Getenv("ZUBR_API_KEY"),
		APISecret: os.Getenv("ZUBR_API_SECRET"),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}

	var stats feedStats

	if err := client.SubscribeInstruments(func(res zubr.Result) {
		stats.instruments.Add(1)
		var update zubr.InstrumentsUpdate
		if err := res.Decode(&update); err != nil {
			logger.Warn("decode instruments", zap.Error(err))
			return
		}
		for id, inst := range update {
			logger.Info("instrument",
				zap.String("id", id),
				zap.String("symbol", inst.Symbol),
				zap.String("status", inst.Status),
				zap.String("tick", inst.MinPriceIncrement.String()))
		}
	}); err != nil {
		return err
	}

	if err := client.SubscribeOrderbook(func(res zubr.Result) {
		stats.books.Add(1)
		var update zubr.OrderBookUpdate
		if err := res.Decode(&update); err != nil {
			logger.Warn("decode orderbook", zap.Error(err))
			return
		}
		logger.Debug("orderbook",
			zap.Int64("instrument", update.InstrumentID),
			zap.Bool("snapshot", update.IsSnapshot),
			zap.Int("bids", len(update.Bids)),
			zap.Int("asks", len(update.Asks)))
	}); err != nil {
		return err
	}

	if err := client.SubscribeLastTrades(func(res zubr.Result) {
		stats.trades.Add(1)
		var update zubr.LastTrades
		if err := res.Decode(&update); err != nil {
			logger.Warn("decode lasttrades", zap.Error(err))
			return
		}
		if update.Type != zubr.LastTradesTrade {
			return
		}
		trade, err := update.Trade()
		if err != nil {
			logger.Warn("decode trade", zap.Error(err))
			return
		}
		logger.Info("trade",
			zap.Int64("instrument", trade.InstrumentID),
			zap.String("side", trade.Side.String()),
			zap.String("price", trade.Price.String()),
			zap.Int64("size", trade.Size))
	}); err != nil {
		return err
	}

	if *instrumentFlag > 0 {
		if err := client.SubscribeCandles(*instrumentFlag, *resolutionFlag, func(res zubr.Result) {
			stats.candles.Add(1)
			var update zubr.CandlesUpdate
			if err := res.Decode(&update); err != nil {
				logger.Warn("decode candles", zap.Error(err))
				return
			}
			for _, bar := range update.Candles {
				logger.Info("candle",
					zap.Int64("instrument", update.InstrumentID),
					zap.Int64("ts", bar.Timestamp),
					zap.String("open", bar.Open.String()),
					zap.String("close", bar.Close.String()),
					zap.Int64("volume", bar.Volume))
			}
		}); err != nil {
			return err
		}
	}

	client.SubscribeErrors(func(err zubr.ServerError) {
		logger.Warn("exchange error", zap.Int("code", err.Code), zap.String("message", err.Message))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *statsFlag > 0 {
		go reportStats(ctx, logger, *statsFlag, client, &stats)
	}

	logger.Info("starting feed", zap.String("url", *urlFlag))
	return client.Run(ctx)
}

func reportStats(ctx context.Context, logger *zap.Logger, interval time.Duration, client *zubr.Client, stats *feedStats) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-sys.Shutdown():
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("feed stats",
				zap.Bool("connected", client.Connected()),
				zap.Int("pending", client.Pending()),
				zap.Uint64("instruments", stats.instruments.Load()),
				zap.Uint64("orderbooks", stats.books.Load()),
				zap.Uint64("trades", stats.trades.Load()),
				zap.Uint64("candles", stats.candles.Load()))
		}
	}
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
