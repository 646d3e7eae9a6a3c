// Package errdefs defines the failure taxonomy shared by the client packages.
//
// Every failure carries one of the sentinel errors below so callers can
// branch with errors.Is, or extract details with errors.As on the typed
// errors.
package errdefs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for programmatic error checking via errors.Is().
var (
	// ErrValidation indicates an input mapping or run metadata was rejected locally.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a lookup matched zero resources.
	ErrNotFound = errors.New("resource not found")

	// ErrAmbiguous indicates a lookup expected to be unique matched several resources.
	ErrAmbiguous = errors.New("ambiguous reference")

	// ErrTransport indicates the request could not be completed.
	ErrTransport = errors.New("transport error")

	// ErrRemote indicates the server answered with an error status.
	ErrRemote = errors.New("remote error")
)

// ValidationError reports the first schema violation found in an input mapping.
// No request has been sent when this error is returned.
type ValidationError struct {
	Path   string // Dot-joined field path, e.g. "options.mode"
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a lookup that matched nothing. Err, when set, is
// the server answer that established it (a 404 RemoteError).
type NotFoundError struct {
	Resource string
	Query    map[string]string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %s matching %s", e.Resource, ErrNotFound.Error(), formatQuery(e.Query))
}

func (e *NotFoundError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotFound}
	}
	return []error{ErrNotFound, e.Err}
}

// AmbiguousReferenceError reports a lookup that matched more than one resource.
type AmbiguousReferenceError struct {
	Resource string
	Query    map[string]string
	Count    int
}

func (e *AmbiguousReferenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %d %s resources match %s", ErrAmbiguous.Error(), e.Count, e.Resource, formatQuery(e.Query))
}

func (e *AmbiguousReferenceError) Unwrap() error { return ErrAmbiguous }

// TransportError reports a request that never produced an HTTP response.
// It unwraps to both ErrTransport and the underlying cause, so
// errors.Is(err, context.DeadlineExceeded) keeps working.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrTransport.Error(), e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// RemoteError reports a non-2xx response. Body holds the server's diagnostic
// payload exactly as received.
type RemoteError struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s %s returned HTTP %d", ErrRemote.Error(), e.Method, e.URL, e.StatusCode)
	if len(e.Body) > 0 {
		msg += ": " + string(e.Body)
	}
	return msg
}

func (e *RemoteError) Unwrap() error { return ErrRemote }

// ClientFault reports whether the server blamed the request (4xx).
func (e *RemoteError) ClientFault() bool { return e.StatusCode >= 400 && e.StatusCode < 500 }

// ServerFault reports whether the server blamed itself (5xx).
func (e *RemoteError) ServerFault() bool { return e.StatusCode >= 500 }

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a lookup with no match.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAmbiguous reports whether err is a lookup with several matches.
func IsAmbiguous(err error) bool { return errors.Is(err, ErrAmbiguous) }

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }

// IsRemote reports whether err is an error response from the server.
func IsRemote(err error) bool { return errors.Is(err, ErrRemote) }

func formatQuery(q map[string]string) string {
	if len(q) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, q[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
