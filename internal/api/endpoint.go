package api

import (
	"net/http"
	"net/url"
	"strings"
)

// Method is an HTTP method accepted by an Endpoint.
type Method string

const (
	GET    Method = http.MethodGet
	POST   Method = http.MethodPost
	PUT    Method = http.MethodPut
	PATCH  Method = http.MethodPatch
	DELETE Method = http.MethodDelete
)

// Endpoint pairs a path template with the method that identifies one server
// operation. Endpoints are declared once as package-level values and never
// mutated; With returns a copy.
type Endpoint struct {
	Path   string
	Method Method

	template string
}

// NewEndpoint declares an endpoint.
func NewEndpoint(method Method, path string) Endpoint {
	return Endpoint{Path: path, Method: method}
}

// With substitutes the {placeholders} of the path template, left to right,
// with the path-escaped args. Extra args are ignored; missing ones leave the
// placeholder in place.
func (e Endpoint) With(args ...string) Endpoint {
	path := e.Path
	for _, arg := range args {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			break
		}
		path = path[:start] + url.PathEscape(arg) + path[start+end+1:]
	}
	return Endpoint{Path: path, Method: e.Method, template: e.Template()}
}

// Template returns the unsubstituted path, used as a low-cardinality label.
func (e Endpoint) Template() string {
	if e.template != "" {
		return e.template
	}
	return e.Path
}

func (e Endpoint) String() string {
	return string(e.Method) + " " + e.Path
}
