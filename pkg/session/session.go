package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/uhyunpark/trading-ducky/pkg/crypto"
	"github.com/uhyunpark/trading-ducky/pkg/trade"
	"github.com/uhyunpark/trading-ducky/pkg/util"
)

// Status lines shown to the user, one per transition.
const (
	StatusEnterKey      = "Enter your API wallet private key first."
	StatusKeyCaptured   = "API wallet key captured. Ready to send trading actions."
	StatusConnectFirst  = "Connect your API wallet first."
	StatusKeyCleared    = "API wallet key cleared."
	StatusPlacing       = "Placing order via Hotstuff SDK…"
	StatusPlaced        = "Order placed successfully via SDK."
	StatusPlaceFailed   = "Network or server error while placing order."
	StatusCancelling    = "Sending cancelByOid via Hotstuff SDK…"
	StatusCancelSent    = "Order cancel request sent via SDK."
	StatusCancelFailed  = "Network or server error while cancelling order."
	statusInvalidPrefix = "Invalid order: "
)

// ErrBusy is returned when the same kind of submission is already in
// flight. The attempt is dropped, not queued.
var ErrBusy = errors.New("submission already in flight")

type State int

const (
	Disconnected State = iota
	Connected
	Placing
	Cancelling
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Placing:
		return "placing"
	case Cancelling:
		return "cancelling"
	default:
		return "unknown"
	}
}

// PortFactory builds the submission port for one action. It is called per
// submission so configuration changes apply to the next action.
type PortFactory func(signer *crypto.Signer) trade.SubmissionPort

// Session sequences connect -> build -> submit -> report for a single API
// wallet. Placement and cancellation each have their own busy flag, so one
// of each may be in flight at once.
type Session struct {
	mu     sync.RWMutex
	key    []byte // hex private key as entered; nil while disconnected
	status string

	placing    atomic.Bool
	cancelling atomic.Bool

	ports PortFactory
	clock util.Clock
	log   *zap.SugaredLogger
}

func New(ports PortFactory, clock util.Clock, logger *zap.SugaredLogger) *Session {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Session{ports: ports, clock: clock, log: util.OrNop(logger)}
}

// Connect captures the API wallet key. The key is not validated here; a bad
// key surfaces on the first submission.
func (s *Session) Connect(key string) State {
	key = strings.TrimSpace(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" {
		s.status = StatusEnterKey
		return s.stateLocked()
	}
	wipe(s.key)
	s.key = []byte(key)
	s.status = StatusKeyCaptured
	return s.stateLocked()
}

// Disconnect drops the key from memory.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	wipe(s.key)
	s.key = nil
	s.status = StatusKeyCleared
}

func (s *Session) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.key == nil:
		return Disconnected
	case s.placing.Load():
		return Placing
	case s.cancelling.Load():
		return Cancelling
	default:
		return Connected
	}
}

// PlaceOrder builds and submits one order. It returns ErrBusy, without
// touching the status line, if a placement is already in flight.
func (s *Session) PlaceOrder(ctx context.Context, raw trade.RawOrderFields) (trade.Outcome, error) {
	if !s.connected() {
		s.setStatus(StatusConnectFirst)
		return trade.Failure(trade.NotConnected, StatusConnectFirst), nil
	}
	if !s.placing.CompareAndSwap(false, true) {
		return trade.Outcome{}, ErrBusy
	}
	defer s.placing.Store(false)

	req, err := trade.Build(raw, s.clock.Now)
	if err != nil {
		s.setStatus(statusInvalidPrefix + err.Error())
		return trade.Failure(trade.ValidationMiss, err.Error()), nil
	}

	s.setStatus(StatusPlacing)
	out := s.withPort(func(port trade.SubmissionPort) trade.Outcome {
		return port.PlaceOrder(ctx, req)
	})
	s.report(trade.ActionPlaceOrder, out, StatusPlaced, StatusPlaceFailed)
	return out, nil
}

// CancelOrder builds and submits one cancel-by-oid. It returns ErrBusy if a
// cancellation is already in flight.
func (s *Session) CancelOrder(ctx context.Context, raw trade.RawCancelFields) (trade.Outcome, error) {
	if !s.connected() {
		s.setStatus(StatusConnectFirst)
		return trade.Failure(trade.NotConnected, StatusConnectFirst), nil
	}
	if !s.cancelling.CompareAndSwap(false, true) {
		return trade.Outcome{}, ErrBusy
	}
	defer s.cancelling.Store(false)

	req, err := trade.BuildCancel(raw, s.clock.Now)
	if err != nil {
		s.setStatus(statusInvalidPrefix + err.Error())
		return trade.Failure(trade.ValidationMiss, err.Error()), nil
	}

	s.setStatus(StatusCancelling)
	out := s.withPort(func(port trade.SubmissionPort) trade.Outcome {
		return port.CancelByOid(ctx, req)
	})
	s.report(trade.ActionCancelByOid, out, StatusCancelSent, StatusCancelFailed)
	return out, nil
}

// withPort derives the signing identity for this one call and wipes it
// afterwards.
func (s *Session) withPort(call func(trade.SubmissionPort) trade.Outcome) trade.Outcome {
	s.mu.RLock()
	key := string(s.key)
	s.mu.RUnlock()

	signer, err := crypto.FromPrivateKeyHex(key)
	if err != nil {
		return trade.Failure(trade.UnexpectedFault, err.Error())
	}
	defer signer.Wipe()

	if s.ports == nil {
		return trade.Failure(trade.Misconfigured, "no submission port configured")
	}
	return call(s.ports(signer))
}

func (s *Session) report(action string, out trade.Outcome, ok, failed string) {
	if out.OK() {
		s.setStatus(ok)
		return
	}
	s.log.Errorw("submission_failed", "action", action, "kind", out.Kind.String(), "status", out.Status, "err", out.Message)
	s.setStatus(failed)
}

func (s *Session) connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

func (s *Session) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
