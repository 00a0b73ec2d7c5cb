package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/BaSui01/fedbroker/broker"
	"github.com/BaSui01/fedbroker/types"
)

// TransportError reports a request that never produced a usable broker answer:
// the connection failed or the response could not be decoded.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// retryLater carries the server's Retry-After hint alongside a retryable error.
type retryLater struct {
	err   error
	after time.Duration
}

func (e *retryLater) Error() string { return e.err.Error() }

func (e *retryLater) Unwrap() error { return e.err }

// retryAfter reads a delay-seconds Retry-After header. HTTP dates are ignored.
func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func retryHint(err error) time.Duration {
	var rl *retryLater
	if errors.As(err, &rl) {
		return rl.after
	}
	return 0
}

// errorBody mirrors the error envelope written by the broker handlers.
type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

// decodeError converts a non-2xx response into a broker sentinel where one
// exists and a *types.Error otherwise.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorBody
	msg := string(data)
	code := types.ErrorCode("")
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Code != "" {
		code = types.ErrorCode(body.Error.Code)
		msg = body.Error.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusConflict && code == types.ErrDuplicateTask:
		return fmt.Errorf("%w: %s", broker.ErrDuplicateTask, msg)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", broker.ErrDuplicateJoin, msg)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", broker.ErrNotJoined, msg)
	case resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s", broker.ErrUnknownParticipant, msg)
	}

	if code == "" {
		code = codeForStatus(resp.StatusCode)
	}
	return types.NewError(code, msg).
		WithHTTPStatus(resp.StatusCode).
		WithRetryable(body.Error.Retryable ||
			resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode == http.StatusServiceUnavailable)
}

func codeForStatus(status int) types.ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return types.ErrInvalidRequest
	case http.StatusMethodNotAllowed:
		return types.ErrMethodNotAllowed
	case http.StatusRequestEntityTooLarge:
		return types.ErrPayloadTooLarge
	case http.StatusTooManyRequests:
		return types.ErrRateLimited
	case http.StatusServiceUnavailable:
		return types.ErrUnavailable
	default:
		return types.ErrInternalError
	}
}
