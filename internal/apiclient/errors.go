package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies why a request failed.
type Kind int

const (
	// KindHTTP is a non-2xx response.
	KindHTTP Kind = iota + 1
	// KindTransport is a connectivity failure before any response arrived.
	KindTransport
	// KindDecode is a 2xx response whose body is not the expected JSON.
	KindDecode
	// KindInvalid is a request the client refused to build.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ErrUnsupportedMethod is wrapped by KindInvalid errors for verbs other than
// GET, POST, PUT and DELETE.
var ErrUnsupportedMethod = errors.New("unsupported method")

// RequestError is the single failure value returned by the client. Message
// is the human-readable text shown to users; Status is the HTTP status code
// for KindHTTP and zero otherwise.
type RequestError struct {
	Kind     Kind
	Method   string
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return 0
}

func statusMessage(status int) string {
	return fmt.Sprintf("Request failed with status %d", status)
}
