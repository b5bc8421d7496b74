package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/nvkr/aitrade/service"
	"github.com/nvkr/aitrade/shared"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traderCfg := service.TraderConfig{
		InitialFunds: map[shared.AssetType]float64{
			shared.Stock:  cfg.StockFund,
			shared.MCX:    cfg.MCXFund,
			shared.Forex:  cfg.ForexFund,
			shared.Crypto: cfg.CryptoFund,
		},
		LiquidationEpsilon:  cfg.LiquidationEpsilon,
		ReconcileInterval:   time.Duration(cfg.ReconcileIntervalSecs) * time.Second,
		DatabaseEndpoint:    cfg.DatabaseEndpoint,
		DatabaseUser:        cfg.DatabaseUser,
		DatabasePass:        cfg.DatabasePass,
		DhanClientID:        cfg.DhanClientID,
		DhanAccessToken:     cfg.DhanAccessToken,
		ShoonyaUserID:       cfg.ShoonyaUserID,
		ShoonyaSessionToken: cfg.ShoonyaSessionToken,
		BinanceAPIKey:       cfg.BinanceAPIKey,
		BinanceSecret:       cfg.BinanceSecret,
		CoinDCXAPIKey:       cfg.CoinDCXAPIKey,
		CoinDCXSecret:       cfg.CoinDCXSecret,
		CoinSwitchAPIKey:    cfg.CoinSwitchAPIKey,
		Cancel:              cancel,
	}
	trader, err := service.NewTrader(ctx, &traderCfg)
	if err != nil {
		log.Printf("creating trader service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	trader.Run(ctx)
}
