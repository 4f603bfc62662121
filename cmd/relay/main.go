package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/uhyunpark/trading-ducky/params"
	"github.com/uhyunpark/trading-ducky/pkg/relay"
	"github.com/uhyunpark/trading-ducky/pkg/util"
)

func main() {
	// .env in the working directory, then the environment
	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.LogFile)

	if cfg.Relay.CurrentBackendURL() == "" {
		// not fatal: the variable is read per request and may be set later
		sugar.Warn("TRADING_BACKEND_URL is not set; /place-order will answer 500 until it is")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := relay.NewServer(cfg.Relay, nil, sugar)
	sugar.Infow("relay_config", "addr", cfg.Relay.Addr, "timeout_ms", cfg.Relay.Timeout.Milliseconds())
	if err := srv.Start(ctx, cfg.Relay.Addr); err != nil {
		sugar.Fatalw("relay_failed", "err", err)
	}
	sugar.Info("relay_stopped")
}
