package trade

import (
	"encoding/json"
	"fmt"
)

// FailureKind classifies why a submission did not succeed.
type FailureKind int

const (
	KindNone FailureKind = iota
	Misconfigured
	NotConnected
	ValidationMiss
	NetworkTimeout
	UpstreamRejected
	UnexpectedFault
)

func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case Misconfigured:
		return "misconfigured"
	case NotConnected:
		return "not_connected"
	case ValidationMiss:
		return "validation_miss"
	case NetworkTimeout:
		return "network_timeout"
	case UpstreamRejected:
		return "upstream_rejected"
	case UnexpectedFault:
		return "unexpected_fault"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one submission: either a success carrying
// the accepted response, or a failure with a kind and message.
type Outcome struct {
	Kind    FailureKind
	Message string
	// Status is the HTTP status observed, 0 if the request never got one.
	Status int
	Echo   json.RawMessage
}

func Success(status int, echo json.RawMessage) Outcome {
	return Outcome{Kind: KindNone, Status: status, Echo: echo}
}

func Failure(kind FailureKind, message string) Outcome {
	return Outcome{Kind: kind, Message: message}
}

func (o Outcome) OK() bool { return o.Kind == KindNone }

func (o Outcome) String() string {
	if o.OK() {
		return fmt.Sprintf("success (status %d)", o.Status)
	}
	return fmt.Sprintf("%s: %s", o.Kind, o.Message)
}

// ValidationError is returned by the builders when a required field is
// missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}
