package analysis

import (
	"fmt"
	"net/http"
)

// Kind classifies analysis failures.
type Kind int

const (
	KindEmptyInput Kind = iota + 1
	KindTimeoutExhausted
	KindServerResponse
	KindConnectivity
	KindCanceled
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindEmptyInput:
		return "empty_input"
	case KindTimeoutExhausted:
		return "timeout_exhausted"
	case KindServerResponse:
		return "server_response"
	case KindConnectivity:
		return "connectivity"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Error is the only error type returned by Client.Analyze. Message is safe to
// show to an end user.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of status code or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrEmptyInput       = &Error{Kind: KindEmptyInput, Message: "Text cannot be empty"}
	ErrTimeoutExhausted = &Error{Kind: KindTimeoutExhausted, Message: timeoutMessage}
	ErrServerResponse   = &Error{Kind: KindServerResponse, Message: "server response error"}
	ErrConnectivity     = &Error{Kind: KindConnectivity, Message: "connectivity error"}
	ErrCanceled         = &Error{Kind: KindCanceled, Message: "Analysis was canceled"}
)

const timeoutMessage = "Analysis is taking longer than expected. The AI models may be loading. Please try again."

func emptyInputError() *Error {
	return &Error{Kind: KindEmptyInput, Message: ErrEmptyInput.Message}
}

func timeoutExhaustedError(cause error) *Error {
	return &Error{Kind: KindTimeoutExhausted, Message: timeoutMessage, Err: cause}
}

func serverResponseError(code int, cause error) *Error {
	msg := fmt.Sprintf("Server returned %d: %s", code, http.StatusText(code))
	if cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, cause)
	}
	return &Error{Kind: KindServerResponse, StatusCode: code, Message: msg, Err: cause}
}

func connectivityError(baseURL string, cause error) *Error {
	return &Error{
		Kind:    KindConnectivity,
		Message: fmt.Sprintf("Cannot connect to backend server. Please ensure the backend is running on %s", baseURL),
		Err:     cause,
	}
}

func canceledError(cause error) *Error {
	return &Error{Kind: KindCanceled, Message: ErrCanceled.Message, Err: cause}
}
