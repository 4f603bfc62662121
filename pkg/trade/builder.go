package trade

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// OrderExpiry and CancelExpiry are added to the current time and sent in
	// epoch milliseconds. The exchange reads expiresAfter as milliseconds; a
	// seconds value would be silently treated as already expired.
	OrderExpiry  = time.Hour
	CancelExpiry = 5 * time.Minute
)

// CheckboxOn is the value a checked form checkbox submits.
const CheckboxOn = "on"

// RawOrderFields is the place-order form exactly as entered. Absent fields
// are empty strings.
type RawOrderFields struct {
	InstrumentID  string
	Side          string
	PositionSide  string
	Price         string
	Size          string
	TimeInForce   string
	IsMarket      string
	ClientOrderID string
}

type RawCancelFields struct {
	OrderID      string
	InstrumentID string
}

// Build turns raw order fields into an OrderRequest.
//
// Identifiers and enums are lenient: an absent or unparsable instrument id
// becomes 0 and enums fall back to buy / LONG / GTC, leaving the exchange as
// the real gate. Size must be a positive decimal, and price must be one
// unless the order is a market order.
func Build(raw RawOrderFields, now func() time.Time) (OrderRequest, error) {
	req := OrderRequest{
		InstrumentID:  parseID(raw.InstrumentID),
		Side:          Buy,
		PositionSide:  Long,
		TimeInForce:   GoodTillCancel,
		IsMarket:      strings.TrimSpace(raw.IsMarket) == CheckboxOn,
		ClientOrderID: strings.TrimSpace(raw.ClientOrderID),
		Price:         strings.TrimSpace(raw.Price),
		Size:          strings.TrimSpace(raw.Size),
	}
	if s, ok := ParseSide(raw.Side); ok {
		req.Side = s
	}
	if ps, ok := ParsePositionSide(raw.PositionSide); ok {
		req.PositionSide = ps
	}
	if tif, ok := ParseTimeInForce(raw.TimeInForce); ok {
		req.TimeInForce = tif
	}

	if err := requirePositive("size", req.Size); err != nil {
		return OrderRequest{}, err
	}
	if !req.IsMarket {
		if err := requirePositive("price", req.Price); err != nil {
			return OrderRequest{}, err
		}
	}

	req.ExpiresAt = expiry(now, OrderExpiry)
	return req, nil
}

// BuildCancel turns raw cancel fields into a CancelRequest. It never fails:
// the instrument is not cross-checked against the order, the exchange is
// authoritative for that.
func BuildCancel(raw RawCancelFields, now func() time.Time) (CancelRequest, error) {
	return CancelRequest{
		OrderID:      parseID(raw.OrderID),
		InstrumentID: parseID(raw.InstrumentID),
		ExpiresAt:    expiry(now, CancelExpiry),
	}, nil
}

func expiry(now func() time.Time, horizon time.Duration) int64 {
	if now == nil {
		now = time.Now
	}
	return now().Add(horizon).UnixMilli()
}

// parseID coerces a numeric form field. Anything that is not a
// non-negative integer (including "1.0" and "-3") becomes 0.
func parseID(raw string) uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func requirePositive(field, raw string) error {
	if raw == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return &ValidationError{Field: field, Reason: "must be a decimal number"}
	}
	if !d.IsPositive() {
		return &ValidationError{Field: field, Reason: "must be greater than zero"}
	}
	return nil
}
