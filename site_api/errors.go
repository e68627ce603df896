package site_api

import (
	"fmt"
	"strconv"
)

// InvalidUrlError is returned for a URL that cannot be used as a harvest target.
type InvalidUrlError string

func (e InvalidUrlError) Error() string {
	return "invalid URL " + strconv.Quote(string(e))
}

// HttpError is a transport-level failure: DNS, connection, TLS, timeout or a truncated body.
type HttpError string

func (e HttpError) Error() string {
	return "http error " + strconv.Quote(string(e))
}

// AuthError is returned when the site rejects the configured credentials.
type AuthError string

func (e AuthError) Error() string {
	return "authentication failed " + strconv.Quote(string(e))
}

// StatusError is returned for a response with an unexpected HTTP status code.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}
