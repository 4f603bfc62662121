package exchange

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/uhyunpark/trading-ducky/params"
	"github.com/uhyunpark/trading-ducky/pkg/crypto"
	"github.com/uhyunpark/trading-ducky/pkg/metrics"
	"github.com/uhyunpark/trading-ducky/pkg/trade"
	"github.com/uhyunpark/trading-ducky/pkg/util"
)

// ExchangePath is the trading endpoint below the network base URL.
const ExchangePath = "/exchange"

type Config struct {
	Signer     *crypto.Signer
	Domain     crypto.EIP712Domain
	Exchange   params.Exchange // network is resolved from this on every call
	HTTPClient *http.Client
	Clock      util.Clock
	Logger     *zap.SugaredLogger
}

// Client signs trading actions with an API wallet and submits them straight
// to the exchange.
type Client struct {
	signer   *crypto.Signer
	actions  *crypto.ActionSigner
	exchange params.Exchange
	http     *http.Client
	clock    util.Clock
	log      *zap.SugaredLogger
}

func NewClient(cfg Config) *Client {
	if cfg.Clock == nil {
		cfg.Clock = util.RealClock{}
	}
	if cfg.Domain.ChainID == nil {
		cfg.Domain = crypto.DefaultDomain()
	}
	return &Client{
		signer:   cfg.Signer,
		actions:  crypto.NewActionSigner(cfg.Domain),
		exchange: cfg.Exchange,
		http:     cfg.HTTPClient,
		clock:    cfg.Clock,
		log:      util.OrNop(cfg.Logger),
	}
}

// PlaceOrder signs req as a one-order batch and sends it.
func (c *Client) PlaceOrder(ctx context.Context, req trade.OrderRequest) trade.Outcome {
	if c.signer == nil {
		return trade.Failure(trade.NotConnected, "no API wallet connected")
	}
	env, err := SignOrder(c.actions, c.signer, req, c.clock.Now())
	if err != nil {
		return c.finish(trade.ActionPlaceOrder, trade.Failure(trade.UnexpectedFault, err.Error()), "")
	}
	return c.submit(ctx, trade.ActionPlaceOrder, env)
}

// CancelByOid signs req as a one-cancel batch and sends it.
func (c *Client) CancelByOid(ctx context.Context, req trade.CancelRequest) trade.Outcome {
	if c.signer == nil {
		return trade.Failure(trade.NotConnected, "no API wallet connected")
	}
	env, err := SignCancel(c.actions, c.signer, req, c.clock.Now())
	if err != nil {
		return c.finish(trade.ActionCancelByOid, trade.Failure(trade.UnexpectedFault, err.Error()), "")
	}
	return c.submit(ctx, trade.ActionCancelByOid, env)
}

func (c *Client) submit(ctx context.Context, action string, env Envelope) trade.Outcome {
	network := c.exchange.ResolveNetwork()
	url := strings.TrimRight(network.BaseURL, "/") + ExchangePath

	out := PostJSON(ctx, c.http, url, env, c.exchange.Timeout)
	return c.finish(action, out, network.Name)
}

func (c *Client) finish(action string, out trade.Outcome, network string) trade.Outcome {
	metrics.Submissions.WithLabelValues(action, out.Kind.String()).Inc()
	if out.OK() {
		c.log.Infow("action_submitted", "action", action, "network", network, "signer", c.signer.String(), "status", out.Status)
	} else {
		c.log.Warnw("action_submit_failed", "action", action, "network", network, "kind", out.Kind.String(), "status", out.Status, "err", out.Message)
	}
	return out
}

var _ trade.SubmissionPort = (*Client)(nil)
