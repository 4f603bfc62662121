package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/trading-ducky/params"
	"github.com/uhyunpark/trading-ducky/pkg/exchange"
	"github.com/uhyunpark/trading-ducky/pkg/metrics"
	"github.com/uhyunpark/trading-ducky/pkg/trade"
	"github.com/uhyunpark/trading-ducky/pkg/util"
)

// PlaceOrderPath is both the relay route and the upstream path.
const PlaceOrderPath = "/place-order"

// Error messages returned in the {"error": ...} envelope.
const (
	MsgNoBackend      = "TRADING_BACKEND_URL is not set on the server."
	MsgUpstreamFailed = "Upstream place-order failed."
	MsgForwardFailed  = "Failed to place order."
)

const maxBodyBytes = 1 << 20

// Server is a same-origin relay that forwards already-built order payloads
// to the configured trading backend.
type Server struct {
	cfg    params.Relay
	http   *http.Client
	router *mux.Router
	log    *zap.SugaredLogger
}

// NewServer creates a relay. httpClient may be nil.
func NewServer(cfg params.Relay, httpClient *http.Client, logger *zap.SugaredLogger) *Server {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	s := &Server{
		cfg:    cfg,
		http:   httpClient,
		router: mux.NewRouter(),
		log:    util.OrNop(logger),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc(PlaceOrderPath, s.handlePlaceOrder).Methods("POST")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("relay_server_starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Forward relays payload to the backend's place-order endpoint. The returned
// Outcome always carries the HTTP status the relay should answer with.
func (s *Server) Forward(ctx context.Context, payload []byte) trade.Outcome {
	backend := s.cfg.CurrentBackendURL()
	if backend == "" {
		return withStatus(trade.Failure(trade.Misconfigured, MsgNoBackend), http.StatusInternalServerError)
	}

	var body json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		return fault(err)
	}

	target, err := upstreamURL(backend)
	if err != nil {
		return fault(err)
	}

	status, respBody, err := exchange.Post(ctx, s.http, target, body, s.cfg.Timeout)
	if err != nil {
		out := exchange.FailureFromError(err, s.cfg.Timeout)
		out.Message = err.Error()
		return withStatus(out, http.StatusInternalServerError)
	}

	if status < 200 || status > 299 {
		return withStatus(trade.Failure(trade.UpstreamRejected, upstreamError(respBody)), status)
	}
	return trade.Success(http.StatusOK, exchange.ObjectOrEmpty(respBody))
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var out trade.Outcome
	if err != nil {
		out = fault(err)
	} else {
		out = s.Forward(r.Context(), payload)
	}

	metrics.RelayRequests.WithLabelValues(resultLabel(out)).Inc()

	if out.OK() {
		respondRaw(w, out.Status, out.Echo)
		return
	}

	switch out.Kind {
	case trade.UpstreamRejected:
		s.log.Warnw("relay_upstream_rejected", "status", out.Status, "err", out.Message)
	default:
		s.log.Errorw("relay_forward_failed", "kind", out.Kind.String(), "err", out.Message)
	}
	respondError(w, out.Status, out.Message)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body, _ := json.Marshal(map[string]bool{"ok": true, "backendConfigured": s.cfg.CurrentBackendURL() != ""})
	respondRaw(w, http.StatusOK, body)
}

// upstreamURL resolves the absolute place-order path against the backend,
// replacing any path the backend URL carries.
func upstreamURL(backend string) (string, error) {
	base, err := url.Parse(backend)
	if err != nil {
		return "", err
	}
	if base.Scheme == "" || base.Host == "" {
		return "", errors.New("invalid TRADING_BACKEND_URL: " + backend)
	}
	return base.ResolveReference(&url.URL{Path: PlaceOrderPath}).String(), nil
}

// upstreamError extracts the backend's "error" field, falling back to a
// generic message for empty or non-JSON bodies.
func upstreamError(body []byte) string {
	var eb struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Error) == 0 || string(eb.Error) == "null" {
		return MsgUpstreamFailed
	}
	var msg string
	if err := json.Unmarshal(eb.Error, &msg); err == nil {
		return msg
	}
	return string(eb.Error)
}

func fault(err error) trade.Outcome {
	msg := MsgForwardFailed
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return withStatus(trade.Failure(trade.UnexpectedFault, msg), http.StatusInternalServerError)
}

func withStatus(out trade.Outcome, status int) trade.Outcome {
	out.Status = status
	return out
}

func resultLabel(out trade.Outcome) string {
	switch out.Kind {
	case trade.KindNone:
		return "ok"
	case trade.Misconfigured:
		return "misconfigured"
	case trade.UpstreamRejected:
		return "upstream_rejected"
	default:
		return "fault"
	}
}

func respondRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// ErrorResponse is returned for all relay errors
type ErrorResponse struct {
	Error string `json:"error"`
}
