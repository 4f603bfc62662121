package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/uhyunpark/trading-ducky/params"
	"github.com/uhyunpark/trading-ducky/pkg/crypto"
	"github.com/uhyunpark/trading-ducky/pkg/exchange"
	"github.com/uhyunpark/trading-ducky/pkg/trade"
)

type recordingPort struct {
	cancels []trade.CancelRequest
}

func (p *recordingPort) PlaceOrder(context.Context, trade.OrderRequest) trade.Outcome {
	return trade.Failure(trade.UnexpectedFault, "not used")
}

func (p *recordingPort) CancelByOid(_ context.Context, req trade.CancelRequest) trade.Outcome {
	p.cancels = append(p.cancels, req)
	return trade.Success(http.StatusOK, json.RawMessage(`{}`))
}

func buildOrder(t *testing.T) trade.OrderRequest {
	t.Helper()
	req, err := trade.Build(trade.RawOrderFields{InstrumentID: "2", Side: "s", Price: "10", Size: "3"}, time.Now)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return req
}

// The relay client talks to a real relay server which forwards to a fake
// backend; the backend sees a verifiable signed envelope.
func TestClientThroughRelay(t *testing.T) {
	signer, _ := crypto.GenerateKey()

	var received exchange.Envelope
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer backend.Close()

	t.Setenv("TRADING_BACKEND_URL", "")
	relaySrv := httptest.NewServer(NewServer(params.Relay{BackendURL: backend.URL, Timeout: time.Second}, nil, nil).Handler())
	defer relaySrv.Close()

	c := NewClient(ClientConfig{BaseURL: relaySrv.URL + "/", Signer: signer, Timeout: time.Second})
	out := c.PlaceOrder(context.Background(), buildOrder(t))
	if !out.OK() {
		t.Fatalf("place via relay failed: %s", out)
	}
	if string(out.Echo) != `{"status":"accepted"}` {
		t.Errorf("echo = %s", out.Echo)
	}

	addr, err := exchange.Recover(crypto.NewActionSigner(crypto.DefaultDomain()), received)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if addr != signer.Address().Hex() {
		t.Errorf("backend saw signer %s, want %s", addr, signer.Address().Hex())
	}
}

func TestClientSurfacesRelayError(t *testing.T) {
	signer, _ := crypto.GenerateKey()

	t.Setenv("TRADING_BACKEND_URL", "")
	relaySrv := httptest.NewServer(NewServer(params.Relay{}, nil, nil).Handler())
	defer relaySrv.Close()

	c := NewClient(ClientConfig{BaseURL: relaySrv.URL, Signer: signer, Timeout: time.Second})
	out := c.PlaceOrder(context.Background(), buildOrder(t))
	if out.Kind != trade.UpstreamRejected || out.Status != http.StatusInternalServerError {
		t.Fatalf("got %s status %d", out, out.Status)
	}
	if out.Message != MsgNoBackend {
		t.Errorf("message = %q, want %q", out.Message, MsgNoBackend)
	}
}

func TestClientGuards(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://relay.invalid"})
	if out := c.PlaceOrder(context.Background(), buildOrder(t)); out.Kind != trade.NotConnected {
		t.Errorf("no signer: kind = %s", out.Kind)
	}

	signer, _ := crypto.GenerateKey()
	c = NewClient(ClientConfig{Signer: signer})
	if out := c.PlaceOrder(context.Background(), buildOrder(t)); out.Kind != trade.Misconfigured {
		t.Errorf("no relay url: kind = %s", out.Kind)
	}
	if out := c.CancelByOid(context.Background(), trade.CancelRequest{OrderID: 1}); out.Kind != trade.Misconfigured {
		t.Errorf("cancel without direct port: kind = %s", out.Kind)
	}
}

func TestClientDelegatesCancels(t *testing.T) {
	direct := &recordingPort{}
	c := NewClient(ClientConfig{BaseURL: "http://relay.invalid", Cancels: direct})

	out := c.CancelByOid(context.Background(), trade.CancelRequest{OrderID: 9, InstrumentID: 1})
	if !out.OK() || len(direct.cancels) != 1 || direct.cancels[0].OrderID != 9 {
		t.Fatalf("cancel was not delegated: %s %+v", out, direct.cancels)
	}
}
