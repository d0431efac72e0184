package logging

import "log/slog"

// Common field names for consistent logging.
const (
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldURL       = "url"
	FieldEndpoint  = "endpoint"
	FieldStatus    = "status"
	FieldReason    = "reason"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldProfile   = "profile"
)

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// URL returns a slog attribute for a request URL.
func URL(u string) slog.Attr {
	return slog.String(FieldURL, u)
}

// Endpoint returns a slog attribute for an endpoint path template.
func Endpoint(path string) slog.Attr {
	return slog.String(FieldEndpoint, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Reason returns a slog attribute for an error classification.
func Reason(r string) slog.Attr {
	return slog.String(FieldReason, r)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Profile returns a slog attribute for the active config profile.
func Profile(name string) slog.Attr {
	return slog.String(FieldProfile, name)
}
