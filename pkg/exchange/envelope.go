package exchange

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uhyunpark/trading-ducky/pkg/crypto"
	"github.com/uhyunpark/trading-ducky/pkg/trade"
)

// Envelope is the signed request body posted to the exchange.
//
//	{
//	  "action":    {"type":"order","orders":[{...}],"expiresAfter":1731003600000},
//	  "nonce":     1731000000000,
//	  "signature": "0x..."
//	}
type Envelope struct {
	Action    json.RawMessage `json:"action"`
	Nonce     uint64          `json:"nonce"`
	Signature string          `json:"signature"`
}

// SignOrder wraps req into a one-element order batch and signs it.
func SignOrder(as *crypto.ActionSigner, signer *crypto.Signer, req trade.OrderRequest, now time.Time) (Envelope, error) {
	return sign(as, signer, trade.ActionPlaceOrder, trade.NewOrderAction(req), req.ExpiresAt, now)
}

// SignCancel wraps req into a one-element cancel batch and signs it.
func SignCancel(as *crypto.ActionSigner, signer *crypto.Signer, req trade.CancelRequest, now time.Time) (Envelope, error) {
	return sign(as, signer, trade.ActionCancelByOid, trade.NewCancelAction(req), req.ExpiresAt, now)
}

func sign(as *crypto.ActionSigner, signer *crypto.Signer, actionType string, body any, expiresAfter int64, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode action: %w", err)
	}

	nonce := uint64(now.UnixMilli())
	action, err := crypto.NewAction(actionType, json.RawMessage(raw), nonce, expiresAfter)
	if err != nil {
		return Envelope{}, err
	}

	sig, err := as.SignAction(signer, action)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		Action:    raw,
		Nonce:     nonce,
		Signature: fmt.Sprintf("0x%x", sig),
	}, nil
}

// Recover returns the address that signed env. actionType and expiresAfter
// are taken from the action body.
func Recover(as *crypto.ActionSigner, env Envelope) (string, error) {
	var head struct {
		Type         string `json:"type"`
		ExpiresAfter int64  `json:"expiresAfter"`
	}
	if err := json.Unmarshal(env.Action, &head); err != nil {
		return "", fmt.Errorf("decode action: %w", err)
	}

	action, err := crypto.NewAction(head.Type, env.Action, env.Nonce, head.ExpiresAfter)
	if err != nil {
		return "", err
	}
	sig, err := crypto.DecodeSignature(env.Signature)
	if err != nil {
		return "", err
	}
	addr, err := as.RecoverActionSigner(action, sig)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}
