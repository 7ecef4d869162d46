package sparkpost

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the SDK.
var (
	// ErrMissingAPIKey is returned by NewClient when no API key is configured.
	ErrMissingAPIKey = errors.New("sparkpost: api key is required")

	// ErrUnknownRegion is returned by NewClient for a region other than us or eu.
	ErrUnknownRegion = errors.New("sparkpost: unknown region")

	// ErrEmptyTransmissionID is returned when a lookup is made without an id.
	ErrEmptyTransmissionID = errors.New("sparkpost: transmission id is required")

	// ErrNilMessage is returned by Send when called with a nil message.
	ErrNilMessage = errors.New("sparkpost: message is nil")

	errInvalidJSON = errors.New("invalid JSON")
	errNonJSONBody = errors.New("response body is not JSON")
)

// EncodingError reports a value that could not be converted to its wire form.
// It is returned by the mutator that received the value.
type EncodingError struct {
	Field string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("sparkpost: cannot encode %s: %v", e.Field, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// TransportError reports a failed HTTP exchange: the request could not be
// made, the connection failed or timed out, or the body was not JSON.
// StatusCode is zero when no response was received.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sparkpost: %s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sparkpost: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports a JSON reply that matched neither the
// results shape nor the errors shape.
type MalformedResponseError struct {
	StatusCode int
	Body       string
	Reason     string
	Err        error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sparkpost: malformed response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("sparkpost: malformed response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// AsFailure checks whether err carries a provider Failure and returns it.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsTransportError reports whether err is, or wraps, a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsMalformedResponse reports whether err is, or wraps, a *MalformedResponseError.
func IsMalformedResponse(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}
