package plusserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Fault discriminates the transport-level cause of a CommunicationError.
type Fault int

const (
	// FaultOther covers transport failures that are not timeouts, such as
	// connection errors or a canceled context.
	FaultOther Fault = iota
	// FaultTimeout means the transport gave up waiting for the exchange.
	FaultTimeout
)

// ConfigurationError reports that the Service is missing settings a call
// requires, such as credentials. It is never suppressed by fail-silently
// mode.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "plusserver: " + e.Reason
}

// ValidationError reports caller misuse detected before any network I/O,
// such as checking the state of a message that has no handle. It is never
// suppressed by fail-silently mode.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "plusserver: " + e.Reason
}

// CommunicationError reports a failure to complete the HTTP exchange. The
// Fault field tells timeouts apart from other transport failures; the
// underlying transport error is available through Unwrap.
type CommunicationError struct {
	Fault Fault
	Err   error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("plusserver: communication failed: %v", e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

// Timeout reports whether the exchange failed because the transport timed
// out, including a context deadline expiring mid-call.
func (e *CommunicationError) Timeout() bool { return e.Fault == FaultTimeout }

// RequestError reports an exchange that completed but signalled failure:
// an HTTP error status, or an ERROR response from the platform.
type RequestError struct {
	// StatusCode is the HTTP status for status failures, 0 for platform
	// ERROR responses.
	StatusCode int
	Reason     string
}

func (e *RequestError) Error() string {
	return "plusserver: " + e.Reason
}

// IsTimeout reports whether err was classified as a transport timeout.
// WaitUntilArrived uses it to tell budget exhaustion apart from failures
// that should propagate.
func IsTimeout(err error) bool {
	var commErr *CommunicationError
	return errors.As(err, &commErr) && commErr.Timeout()
}

// transportFault tags a transport error as timeout or other.
func transportFault(err error) Fault {
	if errors.Is(err, context.DeadlineExceeded) {
		return FaultTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FaultTimeout
	}
	return FaultOther
}

func statusError(code int) *RequestError {
	return &RequestError{
		StatusCode: code,
		Reason:     fmt.Sprintf("request failed with status %d %s", code, http.StatusText(code)),
	}
}

func platformError(resp *Response) *RequestError {
	reason := resp.ErrorText()
	if reason == "" {
		reason = "platform reported an error"
	}
	return &RequestError{Reason: reason}
}
