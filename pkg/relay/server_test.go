package relay

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/uhyunpark/trading-ducky/params"
)

// countingTransport counts outbound requests made by the relay.
type countingTransport struct {
	calls int32
	next  http.RoundTripper
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.next.RoundTrip(r)
}

func newRelay(t *testing.T, backend string) (*Server, *countingTransport) {
	t.Helper()
	t.Setenv("TRADING_BACKEND_URL", "")
	ct := &countingTransport{next: http.DefaultTransport}
	cfg := params.Relay{BackendURL: backend, Timeout: 2 * time.Second}
	return NewServer(cfg, &http.Client{Transport: ct}, nil), ct
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, PlaceOrderPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("relay answered non-JSON %q: %v", rec.Body.String(), err)
	}
	return rec, decoded
}

func TestMissingBackendIsMisconfigured(t *testing.T) {
	s, ct := newRelay(t, "")

	rec, body := post(t, s.Handler(), `{"orders":[]}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if body["error"] != MsgNoBackend {
		t.Errorf("error = %v, want %q", body["error"], MsgNoBackend)
	}
	if n := atomic.LoadInt32(&ct.calls); n != 0 {
		t.Errorf("relay made %d outbound calls, want 0", n)
	}
}

func TestForwardsPayloadAndPassesThroughSuccess(t *testing.T) {
	var gotPath, gotType, gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`{"status":"ok","oid":7}`))
	}))
	defer upstream.Close()

	// any path on the backend URL is replaced by /place-order
	s, _ := newRelay(t, upstream.URL+"/ignored/prefix")
	payload := `{"action":{"type":"order"},"nonce":1,"signature":"0xab"}`

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, PlaceOrderPath, strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != `{"status":"ok","oid":7}` {
		t.Errorf("body = %s, want upstream body verbatim", rec.Body.String())
	}
	if gotPath != PlaceOrderPath {
		t.Errorf("upstream path = %s", gotPath)
	}
	if gotType != "application/json" {
		t.Errorf("upstream content-type = %q", gotType)
	}
	if gotBody != payload {
		t.Errorf("upstream body = %s, want %s", gotBody, payload)
	}
}

func TestUpstreamErrorPropagation(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantError string
	}{
		{"error message kept", http.StatusBadRequest, `{"error":"bad size"}`, "bad size"},
		{"empty body falls back", http.StatusBadGateway, ``, MsgUpstreamFailed},
		{"non-JSON body falls back", http.StatusBadGateway, `<html>bad gateway</html>`, MsgUpstreamFailed},
		{"JSON without error falls back", http.StatusServiceUnavailable, `{"detail":"down"}`, MsgUpstreamFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer upstream.Close()

			s, _ := newRelay(t, upstream.URL)
			rec, body := post(t, s.Handler(), `{}`)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if len(body) != 1 || body["error"] != tt.wantError {
				t.Errorf("body = %v, want {error: %q}", body, tt.wantError)
			}
		})
	}
}

func TestUnparsableSuccessBodyBecomesEmptyObject(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer upstream.Close()

	s, _ := newRelay(t, upstream.URL)
	rec, body := post(t, s.Handler(), `{}`)
	if rec.Code != http.StatusOK || len(body) != 0 {
		t.Fatalf("got %d %v, want 200 {}", rec.Code, body)
	}
}

func TestMalformedRequestBody(t *testing.T) {
	s, ct := newRelay(t, "http://backend.invalid")

	rec, body := post(t, s.Handler(), `{"orders":`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if msg, _ := body["error"].(string); msg == "" {
		t.Errorf("expected an error message, got %v", body)
	}
	if ct.calls != 0 {
		t.Errorf("malformed body was forwarded")
	}
}

func TestUnreachableBackendIsFault(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := upstream.URL
	upstream.Close()

	s, _ := newRelay(t, url)
	rec, body := post(t, s.Handler(), `{}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if msg, _ := body["error"].(string); msg == "" {
		t.Errorf("expected an error message, got %v", body)
	}
}

func TestBackendURLReadPerRequest(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	s, _ := newRelay(t, "")
	if rec, _ := post(t, s.Handler(), `{}`); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d before backend configured", rec.Code)
	}

	t.Setenv("TRADING_BACKEND_URL", upstream.URL)
	if rec, _ := post(t, s.Handler(), `{}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d after backend configured", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newRelay(t, "")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"backendConfigured":false`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}

	post(t, s.Handler(), `{}`)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "ducky_relay_requests_total") {
		t.Errorf("metrics output missing relay counter")
	}
}

func TestGetPlaceOrderNotAllowed(t *testing.T) {
	s, _ := newRelay(t, "")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PlaceOrderPath, nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
