package api

import (
	"net/http"
	"strings"
)

// BodyKind says how a response body is decoded.
type BodyKind int

const (
	KindUnknown BodyKind = iota
	KindEmpty
	KindJSON
	KindBinary
	KindText
)

func (k BodyKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindJSON:
		return "json"
	case KindBinary:
		return "binary"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Classify decides how to decode a response from its status and headers.
// Checks run in priority order: empty statuses and a zero Content-Length win
// over any Content-Type; an absent Content-Type is treated as text.
func Classify(status int, header http.Header) BodyKind {
	if status == http.StatusNoContent || status == http.StatusResetContent {
		return KindEmpty
	}
	if header.Get("Content-Length") == "0" {
		return KindEmpty
	}

	values, present := header[http.CanonicalHeaderKey("Content-Type")]
	if !present || len(values) == 0 {
		return KindText
	}
	ct := strings.ToLower(values[0])

	switch {
	case strings.Contains(ct, "application/json"), strings.Contains(ct, "application/vnd.api+json"):
		return KindJSON
	case strings.Contains(ct, "application/octet-stream"), strings.HasPrefix(ct, "image/"):
		return KindBinary
	case strings.Contains(ct, "text"), strings.Contains(ct, "*/*"), strings.Contains(ct, "charset=utf-8"):
		return KindText
	default:
		return KindUnknown
	}
}
