package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/discutex/discutex/internal/session"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindTransport means no response arrived.
	KindTransport Kind = iota + 1
	// KindServer is a non-2xx response with a {message} or {error} body.
	KindServer
	// KindUnstructured is a non-2xx response whose body is not structured.
	KindUnstructured
	// KindPrecondition is a call rejected locally before any I/O.
	KindPrecondition
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindUnstructured:
		return "unstructured"
	case KindPrecondition:
		return "precondition"
	default:
		return "unknown"
	}
}

const NoTokenMessage = "No token found. Please log in."

// Error is returned by every Client method.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s failed (%d): %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s failed (%d)", e.Op, e.Status)
	case e.Err != nil && e.Message == "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Precondition builds a local rejection carrying a displayable message.
func Precondition(op, message string) error {
	return &Error{Kind: KindPrecondition, Op: op, Message: message}
}

func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsKind reports whether err is a client error of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// Message turns err into the text shown to the user. Server and local
// messages are shown as is; everything else falls back to fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, session.ErrNoToken) {
		return NoTokenMessage
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return fallback
	}
	switch apiErr.Kind {
	case KindServer, KindPrecondition:
		if apiErr.Message != "" {
			return apiErr.Message
		}
	case KindUnstructured:
		if apiErr.Message != "" {
			return fallback + ": " + apiErr.Message
		}
	case KindTransport:
		if errors.Is(apiErr.Err, context.DeadlineExceeded) {
			return fallback + ": request timed out"
		}
	}
	return fallback
}
