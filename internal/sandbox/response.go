package sandbox

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/carryon-app/carryon/internal/jsonapi"
)

const contentTypeJSONAPI = "application/vnd.api+json"

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONAPI(w http.ResponseWriter, status int, doc any) {
	w.Header().Set("Content-Type", contentTypeJSONAPI)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}

// writeResource writes a single-resource document with its included set.
func writeResource(w http.ResponseWriter, status int, res jsonapi.Resource, included []jsonapi.Resource) {
	data, _ := json.Marshal(res)
	writeJSONAPI(w, status, jsonapi.Document{Data: data, Included: included})
}

// writeCollection writes a collection document. total goes in meta.
func writeCollection(w http.ResponseWriter, list []jsonapi.Resource, included []jsonapi.Resource, total int) {
	if list == nil {
		list = []jsonapi.Resource{}
	}
	data, _ := json.Marshal(list)
	writeJSONAPI(w, http.StatusOK, jsonapi.Document{
		Data:     data,
		Included: included,
		Meta:     map[string]any{"total": total},
	})
}

// writeError writes the {"error": message} shape.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeErrors writes the {"errors": [...]} shape used for validation.
func writeErrors(w http.ResponseWriter, status int, messages []string) {
	writeJSON(w, status, map[string][]string{"errors": messages})
}

// writeNotFound writes a JSON:API error object.
func writeNotFound(w http.ResponseWriter, typ, id string) {
	writeJSONAPI(w, http.StatusNotFound, jsonapi.Document{Errors: []jsonapi.ErrorObject{{
		Status: strconv.Itoa(http.StatusNotFound),
		Code:   "not_found",
		Title:  "Not Found",
		Detail: fmt.Sprintf("%s %q not found", strings.TrimSuffix(typ, "s"), id),
	}}})
}

// requestPayload is a JSON:API request document with a single resource.
type requestPayload struct {
	Data struct {
		Type          string                          `json:"type"`
		ID            string                          `json:"id"`
		Attributes    json.RawMessage                 `json:"attributes"`
		Relationships map[string]jsonapi.Relationship `json:"relationships"`
	} `json:"data"`
}

// decodePayload reads a request document of type typ into attrs.
func decodePayload(r *http.Request, typ string, attrs any) (requestPayload, error) {
	var p requestPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return p, fmt.Errorf("invalid request body")
	}
	if p.Data.Type != typ {
		return p, fmt.Errorf("expected resource type %s", typ)
	}
	if len(p.Data.Attributes) > 0 && attrs != nil {
		if err := json.Unmarshal(p.Data.Attributes, attrs); err != nil {
			return p, fmt.Errorf("invalid %s attributes", typ)
		}
	}
	return p, nil
}

// relatedID returns the id linked through a to-one relationship.
func (p requestPayload) relatedID(name string) string {
	if link, ok := p.Data.Relationships[name].One(); ok {
		return link.ID
	}
	return ""
}

// includes parses the include parameter.
func includes(r *http.Request) []string {
	raw := r.URL.Query().Get("include")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// paginate applies page[number]/page[size] to n items and returns the
// bounds of the page.
func paginate(r *http.Request, n int) (int, int) {
	q := r.URL.Query()
	size, err := strconv.Atoi(q.Get("page[size]"))
	if err != nil || size <= 0 {
		size = 20
	}
	number, err := strconv.Atoi(q.Get("page[number]"))
	if err != nil || number <= 0 {
		number = 1
	}
	start := min((number-1)*size, n)
	end := min(start+size, n)
	return start, end
}
