package sdmx

import (
	"errors"
	"fmt"
)

// Placeholders written in place of missing values. They travel downstream
// unchanged so that mismatches stay visible in the catalog files.
const (
	NoNameAvailable = "no name available"
	NoRefID         = "No Ref ID"
	NameNotFound    = "Name not found"
)

// ErrEmptyBody is returned by Fetch when the service answers 2xx with no content.
var ErrEmptyBody = errors.New("empty response body")

// NetworkError is a transport failure or a non-2xx answer from the service.
// Status is 0 when no HTTP response was received.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("GET %s: HTTP %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a malformed SDMX-ML document.
type ParseError struct {
	Resource string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Resource, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsParse reports whether err is (or wraps) a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
