package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

// Error kinds. Match them with errors.Is against any error the client
// returns.
var (
	// ErrNetwork covers connectivity failures, timeouts and an open
	// circuit. Retryable by the caller.
	ErrNetwork = errors.New("network error")
	// ErrUnauthorized means the API key was rejected. Not retryable
	// without new credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited means the backend asked the client to back off
	ErrRateLimited = errors.New("rate limited")
	// ErrServer is a 5xx from the backend
	ErrServer = errors.New("server error")
	// ErrRequest is any other 4xx, or a request rejected before sending
	ErrRequest = errors.New("invalid request")
	// ErrDecode means a 2xx body could not be used
	ErrDecode = errors.New("undecodable response")
	// ErrMissingIdentity means neither user id nor device id was given
	ErrMissingIdentity = errors.New("user id or device id is required")
)

// Error is the typed failure returned by every client call
type Error struct {
	Kind    error
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports whether trying again later may succeed
func (e *Error) Retryable() bool {
	return e.Kind == ErrNetwork || e.Kind == ErrServer
}

// IsRetryable reports whether err is a client error worth retrying
func IsRetryable(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Retryable()
}

// isBackendFault decides what counts against the circuit breaker
func isBackendFault(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer)
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrServer
	default:
		return ErrRequest
	}
}

const maxMessage = 200

// statusError builds an Error from a non-success response, lifting the
// backend's own message when the body carries one.
func statusError(status int, body []byte) *Error {
	return &Error{Kind: kindForStatus(status), Status: status, Message: backendMessage(body)}
}

func backendMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if sonic.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxMessage {
		n := maxMessage
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n] + "..."
	}
	return msg
}
