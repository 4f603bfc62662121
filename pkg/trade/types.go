package trade

import (
	"context"
	"strings"
)

// Side is the order direction. On the wire it is a single letter.
type Side string

const (
	Buy  Side = "b"
	Sell Side = "s"
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseSide accepts the wire code or the long spelling. ok is false when the
// input is empty or unrecognised.
func ParseSide(raw string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "b", "buy":
		return Buy, true
	case "s", "sell":
		return Sell, true
	default:
		return "", false
	}
}

type PositionSide string

const (
	Long  PositionSide = "LONG"
	Short PositionSide = "SHORT"
	Both  PositionSide = "BOTH"
)

func ParsePositionSide(raw string) (PositionSide, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LONG":
		return Long, true
	case "SHORT":
		return Short, true
	case "BOTH":
		return Both, true
	default:
		return "", false
	}
}

type TimeInForce string

const (
	GoodTillCancel    TimeInForce = "GTC"
	ImmediateOrCancel TimeInForce = "IOC"
	FillOrKill        TimeInForce = "FOK"
)

func ParseTimeInForce(raw string) (TimeInForce, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "GTC", "GOOD-TILL-CANCEL":
		return GoodTillCancel, true
	case "IOC", "IMMEDIATE-OR-CANCEL":
		return ImmediateOrCancel, true
	case "FOK", "FILL-OR-KILL":
		return FillOrKill, true
	default:
		return "", false
	}
}

// OrderRequest is one fully specified order, shaped the way the exchange
// expects it inside an order batch. ExpiresAt is carried next to the order
// and sent as the batch's expiresAfter.
type OrderRequest struct {
	InstrumentID  uint64       `json:"instrumentId"`
	Side          Side         `json:"side"`
	PositionSide  PositionSide `json:"positionSide"`
	Price         string       `json:"price"`
	Size          string       `json:"size"`
	TimeInForce   TimeInForce  `json:"tif"`
	ReduceOnly    bool         `json:"ro"`
	PostOnly      bool         `json:"po"`
	ClientOrderID string       `json:"cloid"`
	TriggerPrice  string       `json:"triggerPx"`
	IsMarket      bool         `json:"isMarket"`
	TPSL          string       `json:"tpsl"`
	Grouping      string       `json:"grouping"`

	ExpiresAt int64 `json:"-"` // epoch milliseconds
}

// CancelRequest cancels one order by its exchange-assigned id.
type CancelRequest struct {
	OrderID      uint64 `json:"oid"`
	InstrumentID uint64 `json:"instrumentId"`

	ExpiresAt int64 `json:"-"` // epoch milliseconds
}

// Action types understood by the exchange endpoint.
const (
	ActionPlaceOrder  = "order"
	ActionCancelByOid = "cancelByOid"
)

// OrderAction is the batch-shaped body of a place-order call. The exchange
// API only accepts batches, so a single order is sent as a one-element batch.
type OrderAction struct {
	Type         string         `json:"type"`
	Orders       []OrderRequest `json:"orders"`
	ExpiresAfter int64          `json:"expiresAfter"`
}

type CancelAction struct {
	Type         string          `json:"type"`
	Cancels      []CancelRequest `json:"cancels"`
	ExpiresAfter int64           `json:"expiresAfter"`
}

func NewOrderAction(o OrderRequest) OrderAction {
	return OrderAction{Type: ActionPlaceOrder, Orders: []OrderRequest{o}, ExpiresAfter: o.ExpiresAt}
}

func NewCancelAction(c CancelRequest) CancelAction {
	return CancelAction{Type: ActionCancelByOid, Cancels: []CancelRequest{c}, ExpiresAfter: c.ExpiresAt}
}

// SubmissionPort delivers built requests to the exchange. The direct signed
// client and the relay client both implement it.
type SubmissionPort interface {
	PlaceOrder(ctx context.Context, req OrderRequest) Outcome
	CancelByOid(ctx context.Context, req CancelRequest) Outcome
}
