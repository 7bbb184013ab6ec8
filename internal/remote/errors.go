package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient marks failures worth retrying: 5xx responses and
	// transport errors.
	ErrTransient = errors.New("transient remote failure")

	// ErrPermanent marks failures that are not retried: non-5xx error statuses.
	ErrPermanent = errors.New("permanent remote failure")

	// ErrMalformedResponse is returned when a 2xx body cannot be decoded
	// or does not match the requested schema. It is not retried.
	ErrMalformedResponse = errors.New("malformed remote response")

	// ErrBusy is returned by Dispatcher.Submit while a job is in flight.
	ErrBusy = errors.New("remote extraction already in flight")
)

// StatusError is a non-2xx HTTP response from the extraction service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "...[truncated]"
	}
	return fmt.Sprintf("remote service error (status %d): %s", e.StatusCode, body)
}

// Is classifies 5xx as ErrTransient and everything else as ErrPermanent.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrTransient:
		return e.StatusCode >= 500
	case ErrPermanent:
		return e.StatusCode < 500
	}
	return false
}

// transportError wraps a network-level failure so it classifies as transient.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return fmt.Sprintf("request failed: %v", e.err) }
func (e *transportError) Unwrap() error { return e.err }
func (e *transportError) Is(target error) bool {
	return target == ErrTransient
}
