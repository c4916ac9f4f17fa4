package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoDownloadLocation is matched by every NoDownloadLocationError.
var ErrNoDownloadLocation = errors.New("license has no download or stream location")

// TransportError is a network or I/O failure below the HTTP status layer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is returned when the status endpoint reports an unhealthy state.
type StatusError struct {
	State string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service status is %q, login refused", e.State)
}

// APIError is a request rejected by the catalog API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// CDNError is a content fetch rejected by the binary content host.
type CDNError struct {
	StatusCode int
	Body       string
}

func (e *CDNError) Error() string {
	return fmt.Sprintf("CDN error %d: %s", e.StatusCode, e.Body)
}

// DecodeError means a response body did not match its schema.
type DecodeError struct {
	Label string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Label, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NoDownloadLocationError names the content whose license carried no location.
type NoDownloadLocationError struct {
	ContentID string
}

func (e *NoDownloadLocationError) Error() string {
	return fmt.Sprintf("%s: %v", e.ContentID, ErrNoDownloadLocation)
}

func (e *NoDownloadLocationError) Is(target error) bool {
	return target == ErrNoDownloadLocation
}

// SizeMismatchError reports a download whose length differs from the license.
type SizeMismatchError struct {
	ContentID string
	Expected  int64
	Written   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: wrote %d bytes, license declared %d", e.ContentID, e.Written, e.Expected)
}

// IsAuthRejected reports whether err is an APIError carrying 401.
func IsAuthRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
