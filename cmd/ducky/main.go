package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/uhyunpark/trading-ducky/params"
	"github.com/uhyunpark/trading-ducky/pkg/crypto"
	"github.com/uhyunpark/trading-ducky/pkg/exchange"
	"github.com/uhyunpark/trading-ducky/pkg/relay"
	"github.com/uhyunpark/trading-ducky/pkg/session"
	"github.com/uhyunpark/trading-ducky/pkg/trade"
	"github.com/uhyunpark/trading-ducky/pkg/util"
)

const usage = `usage:
  ducky place  -key KEY -instrument 1 -side b -price 100 -size 1 [-tif GTC] [-market] [-cloid ID] [-via-relay URL]
  ducky cancel -key KEY -oid 123 -instrument 1

KEY defaults to $API_WALLET_KEY. HOTSTUFF_ENV=mainnet selects mainnet; anything else is testnet.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := util.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var out trade.Outcome
	switch os.Args[1] {
	case "place":
		out, err = runPlace(ctx, cfg, sugar, os.Args[2:])
	case "cancel":
		out, err = runCancel(ctx, cfg, sugar, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(out.Echo) > 0 {
		fmt.Println(string(out.Echo))
	}
	if !out.OK() {
		fmt.Fprintf(os.Stderr, "%s\n", out)
		os.Exit(1)
	}
}

func runPlace(ctx context.Context, cfg params.Config, logger *zap.SugaredLogger, args []string) (trade.Outcome, error) {
	fs := flag.NewFlagSet("place", flag.ExitOnError)
	key := fs.String("key", os.Getenv("API_WALLET_KEY"), "API wallet private key (hex)")
	instrument := fs.String("instrument", "1", "instrument id")
	side := fs.String("side", "b", "b|buy or s|sell")
	positionSide := fs.String("position-side", "", "LONG, SHORT or BOTH (default LONG)")
	price := fs.String("price", "", "limit price")
	size := fs.String("size", "", "order size")
	tif := fs.String("tif", "GTC", "GTC, IOC or FOK")
	market := fs.Bool("market", false, "submit as a market order")
	cloid := fs.String("cloid", "", "client order id")
	viaRelay := fs.String("via-relay", "", "relay base URL; orders go through the relay instead of the exchange")
	fs.Parse(args)

	raw := trade.RawOrderFields{
		InstrumentID:  *instrument,
		Side:          *side,
		PositionSide:  *positionSide,
		Price:         *price,
		Size:          *size,
		TimeInForce:   *tif,
		ClientOrderID: *cloid,
	}
	if *market {
		raw.IsMarket = trade.CheckboxOn
	}

	s := newSession(cfg, logger, *viaRelay)
	s.Connect(*key)
	out, err := s.PlaceOrder(ctx, raw)
	fmt.Println(s.Status())
	return out, err
}

func runCancel(ctx context.Context, cfg params.Config, logger *zap.SugaredLogger, args []string) (trade.Outcome, error) {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	key := fs.String("key", os.Getenv("API_WALLET_KEY"), "API wallet private key (hex)")
	oid := fs.String("oid", "", "exchange order id")
	instrument := fs.String("instrument", "1", "instrument id")
	fs.Parse(args)

	s := newSession(cfg, logger, "")
	s.Connect(*key)
	out, err := s.CancelOrder(ctx, trade.RawCancelFields{OrderID: *oid, InstrumentID: *instrument})
	fmt.Println(s.Status())
	return out, err
}

// newSession wires the direct exchange client, or the relay client when a
// relay URL is given. Cancels always go direct.
func newSession(cfg params.Config, logger *zap.SugaredLogger, relayURL string) *session.Session {
	domain := crypto.DomainFromConfig(cfg.Signing)

	ports := func(signer *crypto.Signer) trade.SubmissionPort {
		direct := exchange.NewClient(exchange.Config{
			Signer:   signer,
			Domain:   domain,
			Exchange: cfg.Exchange,
			Logger:   logger,
		})
		if relayURL == "" {
			return direct
		}
		return relay.NewClient(relay.ClientConfig{
			BaseURL: relayURL,
			Signer:  signer,
			Domain:  domain,
			Timeout: cfg.Relay.Timeout,
			Cancels: direct,
			Logger:  logger,
		})
	}
	return session.New(ports, util.RealClock{}, logger)
}
