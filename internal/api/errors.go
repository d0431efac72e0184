package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Reason discriminates the ways a request can fail.
type Reason string

const (
	// ReasonNetwork means no response was received.
	ReasonNetwork Reason = "network"
	// ReasonHTTPStatus means the server answered outside 2xx.
	ReasonHTTPStatus Reason = "http_status"
	// ReasonParse means the response body could not be decoded as declared.
	ReasonParse Reason = "parse"
)

// Sentinels for errors.Is; an *Error matches the one for its Reason.
var (
	ErrNetwork    = errors.New("network failure")
	ErrHTTPStatus = errors.New("unsuccessful status")
	ErrParse      = errors.New("response parse failure")
)

// Error is the single error type returned by the pipeline. Every failure path
// produces one, so callers need one errors.As to inspect any failure.
//
// Status is 0 and Header/Raw are nil for ReasonNetwork. For ReasonHTTPStatus
// Raw is the fully parsed body; for ReasonParse it is whatever bytes were read.
type Error struct {
	Reason     Reason
	Message    string
	Status     int
	StatusText string
	URL        string
	Header     http.Header
	Raw        any
	Err        error
}

func (e *Error) Error() string { return e.Message }

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's reason.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Reason == ReasonNetwork
	case ErrHTTPStatus:
		return e.Reason == ReasonHTTPStatus
	case ErrParse:
		return e.Reason == ReasonParse
	}
	return false
}

// AsError returns the *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, or 0 if err did not come
// from a response.
func StatusCode(err error) int {
	if apiErr, ok := AsError(err); ok {
		return apiErr.Status
	}
	return 0
}

func statusText(resp *http.Response) string {
	code := fmt.Sprintf("%d ", resp.StatusCode)
	if strings.HasPrefix(resp.Status, code) {
		return strings.TrimPrefix(resp.Status, code)
	}
	if resp.Status != "" {
		return resp.Status
	}
	return http.StatusText(resp.StatusCode)
}

// errorMessage pulls a human-readable message out of a parsed error body:
// an "error" field, then an "errors" array joined with ", ", then a plain
// string body. ok is false when none applies.
func errorMessage(body any) (msg string, ok bool) {
	switch b := body.(type) {
	case map[string]any:
		if v, found := b["error"]; found && v != nil && v != "" {
			return describe(v), true
		}
		if list, found := b["errors"].([]any); found {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				if s := describe(item); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, ", "), true
			}
		}
	case string:
		if b != "" {
			return b, true
		}
	}
	return "", false
}

// describe renders one error entry. JSON:API error objects contribute their
// detail, falling back to their title.
func describe(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		for _, key := range []string{"detail", "title", "message", "code"} {
			if s, ok := t[key].(string); ok && s != "" {
				return s
			}
		}
		return ""
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
