package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrNoSession is returned when an operation needs a stored session and
// there is none.
var ErrNoSession = errors.New("not logged in")

// APIError is a response whose envelope carried status=false.
type APIError struct {
	StatusCode int
	Message    string
	Payload    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Payload != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Payload)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Description is the user-facing text of the failure: the payload when the
// server sent one, else the message.
func (e *APIError) Description() string {
	if e.Payload != "" {
		return e.Payload
	}
	return e.Message
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.StatusCode == status
}

// IsTransient reports whether retrying err may succeed: network failures,
// timeouts, 408, 429 and 5xx responses. Caller cancellation is not transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if apiErr, ok := AsAPIError(err); ok {
		switch {
		case apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode >= http.StatusInternalServerError:
			return true
		}
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var unexpected *UnexpectedResponseError
	return errors.As(err, &unexpected) && unexpected.StatusCode >= http.StatusInternalServerError
}

// UnexpectedResponseError is a response that could not be decoded as an
// envelope, e.g. an HTML page from a proxy.
type UnexpectedResponseError struct {
	StatusCode  int
	ContentType string
	Err         error
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response (status %d, content type %q): %v", e.StatusCode, e.ContentType, e.Err)
}

func (e *UnexpectedResponseError) Unwrap() error {
	return e.Err
}
