package relay

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/trading-ducky/pkg/crypto"
	"github.com/uhyunpark/trading-ducky/pkg/exchange"
	"github.com/uhyunpark/trading-ducky/pkg/metrics"
	"github.com/uhyunpark/trading-ducky/pkg/trade"
	"github.com/uhyunpark/trading-ducky/pkg/util"
)

type ClientConfig struct {
	BaseURL    string // relay origin, e.g. http://localhost:3000
	Signer     *crypto.Signer
	Domain     crypto.EIP712Domain
	Timeout    time.Duration
	HTTPClient *http.Client
	Clock      util.Clock
	// Cancels handles cancellation, which the relay does not route.
	Cancels trade.SubmissionPort
	Logger  *zap.SugaredLogger
}

// Client submits signed orders through a relay instead of calling the
// exchange directly. The payload is signed locally exactly as the direct
// client signs it; the relay only forwards it.
type Client struct {
	base    string
	signer  *crypto.Signer
	actions *crypto.ActionSigner
	timeout time.Duration
	http    *http.Client
	clock   util.Clock
	cancels trade.SubmissionPort
	log     *zap.SugaredLogger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Clock == nil {
		cfg.Clock = util.RealClock{}
	}
	if cfg.Domain.ChainID == nil {
		cfg.Domain = crypto.DefaultDomain()
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		signer:  cfg.Signer,
		actions: crypto.NewActionSigner(cfg.Domain),
		timeout: cfg.Timeout,
		http:    cfg.HTTPClient,
		clock:   cfg.Clock,
		cancels: cfg.Cancels,
		log:     util.OrNop(cfg.Logger),
	}
}

func (c *Client) PlaceOrder(ctx context.Context, req trade.OrderRequest) trade.Outcome {
	if c.signer == nil {
		return trade.Failure(trade.NotConnected, "no API wallet connected")
	}
	if c.base == "" {
		return trade.Failure(trade.Misconfigured, "relay URL is not configured")
	}

	env, err := exchange.SignOrder(c.actions, c.signer, req, c.clock.Now())
	if err != nil {
		return trade.Failure(trade.UnexpectedFault, err.Error())
	}

	out := exchange.PostJSON(ctx, c.http, c.base+PlaceOrderPath, env, c.timeout)
	metrics.Submissions.WithLabelValues(trade.ActionPlaceOrder, out.Kind.String()).Inc()
	if !out.OK() {
		c.log.Warnw("relay_submit_failed", "kind", out.Kind.String(), "status", out.Status, "err", out.Message)
	}
	return out
}

func (c *Client) CancelByOid(ctx context.Context, req trade.CancelRequest) trade.Outcome {
	if c.cancels == nil {
		return trade.Failure(trade.Misconfigured, "relay does not route cancels and no direct client is configured")
	}
	return c.cancels.CancelByOid(ctx, req)
}

var _ trade.SubmissionPort = (*Client)(nil)
