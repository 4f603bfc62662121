package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/uhyunpark/trading-ducky/pkg/trade"
)

// DefaultTimeout bounds every exchange call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// errorBody is the error envelope used by the exchange and by the relay.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// PostJSON sends body to url and converts whatever happens into an Outcome.
// It never retries. A 2xx response is a success echoing the response body;
// anything else is mapped onto the failure taxonomy.
func PostJSON(ctx context.Context, client *http.Client, url string, body any, timeout time.Duration) trade.Outcome {
	payload, err := json.Marshal(body)
	if err != nil {
		return trade.Failure(trade.UnexpectedFault, fmt.Sprintf("encode request: %v", err))
	}

	status, respBody, err := Post(ctx, client, url, payload, timeout)
	if err != nil {
		return FailureFromError(err, timeout)
	}

	if status < 200 || status > 299 {
		out := trade.Failure(trade.UpstreamRejected, upstreamMessage(respBody, status))
		out.Status = status
		return out
	}
	return trade.Success(status, ObjectOrEmpty(respBody))
}

// Post sends a JSON payload and returns the response status and body. The
// whole exchange, body read included, is bounded by timeout.
func Post(ctx context.Context, client *http.Client, url string, payload []byte, timeout time.Duration) (int, []byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// FailureFromError maps a transport error onto NetworkTimeout or
// UnexpectedFault.
func FailureFromError(err error, timeout time.Duration) trade.Outcome {
	if isTimeout(err) {
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		return trade.Failure(trade.NetworkTimeout, fmt.Sprintf("no response within %s", timeout))
	}
	return trade.Failure(trade.UnexpectedFault, err.Error())
}

// ObjectOrEmpty returns body when it is valid JSON and {} otherwise.
func ObjectOrEmpty(body []byte) json.RawMessage {
	if len(bytes.TrimSpace(body)) == 0 || !json.Valid(body) {
		return json.RawMessage("{}")
	}
	return body
}

func upstreamMessage(body []byte, status int) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	return fmt.Sprintf("request rejected with status %d", status)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
