package trade

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var fixedNow = time.UnixMilli(1_731_000_000_000)

func clock() time.Time { return fixedNow }

func TestBuildRoundTrip(t *testing.T) {
	req, err := Build(RawOrderFields{
		InstrumentID: "5",
		Side:         "s",
		Price:        "100",
		Size:         "2",
	}, clock)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	want := OrderRequest{
		InstrumentID: 5,
		Side:         Sell,
		PositionSide: Long,
		Price:        "100",
		Size:         "2",
		TimeInForce:  GoodTillCancel,
		ExpiresAt:    fixedNow.Add(time.Hour).UnixMilli(),
	}
	if req != want {
		t.Errorf("Build() = %+v, want %+v", req, want)
	}
	if req.Side.String() != "sell" {
		t.Errorf("side = %s, want sell", req.Side)
	}
}

func TestBuildExpiryHorizons(t *testing.T) {
	order, err := Build(RawOrderFields{Price: "1", Size: "1"}, clock)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := order.ExpiresAt - fixedNow.UnixMilli(); got != 3_600_000 {
		t.Errorf("order expiry delta = %d ms, want 3600000", got)
	}

	cancel, err := BuildCancel(RawCancelFields{OrderID: "9"}, clock)
	if err != nil {
		t.Fatalf("build cancel: %v", err)
	}
	if got := cancel.ExpiresAt - fixedNow.UnixMilli(); got != 300_000 {
		t.Errorf("cancel expiry delta = %d ms, want 300000", got)
	}
}

func TestBuildLenientDefaults(t *testing.T) {
	tests := []struct {
		name string
		raw  RawOrderFields
	}{
		{"absent", RawOrderFields{Price: "10", Size: "1"}},
		{"unparsable", RawOrderFields{InstrumentID: "abc", Side: "x", PositionSide: "sideways", TimeInForce: "GTD", Price: "10", Size: "1"}},
		{"negative id", RawOrderFields{InstrumentID: "-4", Price: "10", Size: "1"}},
		{"fractional id", RawOrderFields{InstrumentID: "1.5", Price: "10", Size: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Build(tt.raw, clock)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if req.InstrumentID != 0 {
				t.Errorf("instrumentId = %d, want 0", req.InstrumentID)
			}
			if req.Side != Buy || req.PositionSide != Long || req.TimeInForce != GoodTillCancel {
				t.Errorf("enum defaults = %s/%s/%s, want b/LONG/GTC", req.Side, req.PositionSide, req.TimeInForce)
			}
			if req.IsMarket || req.ReduceOnly || req.PostOnly {
				t.Errorf("boolean defaults not false: %+v", req)
			}
		})
	}
}

func TestBuildEnumSpellings(t *testing.T) {
	req, err := Build(RawOrderFields{
		Side:         "SELL",
		PositionSide: "short",
		TimeInForce:  "ioc",
		Price:        "1",
		Size:         "1",
	}, clock)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.Side != Sell || req.PositionSide != Short || req.TimeInForce != ImmediateOrCancel {
		t.Errorf("got %s/%s/%s", req.Side, req.PositionSide, req.TimeInForce)
	}
}

func TestBuildMarketOrderIgnoresPrice(t *testing.T) {
	req, err := Build(RawOrderFields{Size: "0.5", IsMarket: CheckboxOn}, clock)
	if err != nil {
		t.Fatalf("market order without price should build: %v", err)
	}
	if !req.IsMarket || req.Price != "" {
		t.Errorf("got isMarket=%v price=%q", req.IsMarket, req.Price)
	}
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name  string
		raw   RawOrderFields
		field string
	}{
		{"missing size", RawOrderFields{Price: "100"}, "size"},
		{"zero size", RawOrderFields{Price: "100", Size: "0"}, "size"},
		{"garbage size", RawOrderFields{Price: "100", Size: "two"}, "size"},
		{"missing limit price", RawOrderFields{Size: "1"}, "price"},
		{"negative price", RawOrderFields{Size: "1", Price: "-1"}, "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.raw, clock)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %s, want %s", verr.Field, tt.field)
			}
		})
	}
}

func TestBuildCancelLenient(t *testing.T) {
	c, err := BuildCancel(RawCancelFields{OrderID: "123456", InstrumentID: ""}, clock)
	if err != nil {
		t.Fatalf("build cancel: %v", err)
	}
	if c.OrderID != 123456 || c.InstrumentID != 0 {
		t.Errorf("got %+v", c)
	}
}

func TestOrderActionWireShape(t *testing.T) {
	req, _ := Build(RawOrderFields{InstrumentID: "1", Price: "100", Size: "1", ClientOrderID: "bot-1"}, clock)
	b, err := json.Marshal(NewOrderAction(req))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Type         string           `json:"type"`
		Orders       []map[string]any `json:"orders"`
		ExpiresAfter int64            `json:"expiresAfter"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != ActionPlaceOrder || len(decoded.Orders) != 1 {
		t.Fatalf("unexpected action: %s", b)
	}
	if decoded.ExpiresAfter != req.ExpiresAt {
		t.Errorf("expiresAfter = %d, want %d", decoded.ExpiresAfter, req.ExpiresAt)
	}
	for _, key := range []string{"instrumentId", "side", "positionSide", "price", "size", "tif", "ro", "po", "cloid", "triggerPx", "isMarket", "tpsl", "grouping"} {
		if _, ok := decoded.Orders[0][key]; !ok {
			t.Errorf("order is missing %q: %s", key, b)
		}
	}
	if _, ok := decoded.Orders[0]["ExpiresAt"]; ok {
		t.Errorf("expiry must travel on the batch only: %s", b)
	}
}
