// Package jsonapi models JSON:API documents and resolves relationships
// against a response's side-loaded "included" resources.
package jsonapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Document is a JSON:API top-level document. Data is left raw so it can be
// decoded as a single resource or a collection.
type Document struct {
	Data     json.RawMessage `json:"data,omitempty"`
	Included []Resource      `json:"included,omitempty"`
	Meta     map[string]any  `json:"meta,omitempty"`
	Links    map[string]any  `json:"links,omitempty"`
	Errors   []ErrorObject   `json:"errors,omitempty"`
}

// ErrorObject is a JSON:API error.
type ErrorObject struct {
	Status string            `json:"status,omitempty"`
	Code   string            `json:"code,omitempty"`
	Title  string            `json:"title,omitempty"`
	Detail string            `json:"detail,omitempty"`
	Source map[string]string `json:"source,omitempty"`
}

// Resource is a single JSON:API resource object.
type Resource struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    json.RawMessage         `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Links         map[string]any          `json:"links,omitempty"`
	Meta          map[string]any          `json:"meta,omitempty"`
}

// ResourceType implements Identifier.
func (r Resource) ResourceType() string { return r.Type }

// ResourceID implements Identifier.
func (r Resource) ResourceID() string { return r.ID }

// Attr looks up an attribute by gjson path, e.g. "price.amount" or "tags.0".
func (r Resource) Attr(path string) gjson.Result {
	if len(r.Attributes) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Attributes, path)
}

// DecodeAttributes unmarshals the attributes object into v.
func (r Resource) DecodeAttributes(v any) error {
	if len(r.Attributes) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Attributes, v); err != nil {
		return fmt.Errorf("failed to decode %s %q attributes: %w", r.Type, r.ID, err)
	}
	return nil
}

// Relationship returns the named relationship.
func (r Resource) Relationship(name string) (Relationship, bool) {
	rel, ok := r.Relationships[name]
	return rel, ok
}

// Linkage is a resource identifier object: an {id, type} reference.
type Linkage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ResourceType implements Identifier.
func (l Linkage) ResourceType() string { return l.Type }

// ResourceID implements Identifier.
func (l Linkage) ResourceID() string { return l.ID }

// Relationship is a relationship object. Its data member may be null, a
// single linkage (to-one) or an array (to-many); Data holds zero or more
// linkages either way.
type Relationship struct {
	Data  []Linkage      `json:"-"`
	ToOne bool           `json:"-"`
	Links map[string]any `json:"links,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// One returns the single linkage of a to-one relationship.
func (r Relationship) One() (Linkage, bool) {
	if len(r.Data) == 0 {
		return Linkage{}, false
	}
	return r.Data[0], true
}

// UnmarshalJSON accepts null, object and array forms of data.
func (r *Relationship) UnmarshalJSON(b []byte) error {
	var raw struct {
		Data  json.RawMessage `json:"data"`
		Links map[string]any  `json:"links"`
		Meta  map[string]any  `json:"meta"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Links = raw.Links
	r.Meta = raw.Meta
	r.Data = nil
	r.ToOne = false

	data := bytes.TrimSpace(raw.Data)
	switch {
	case len(data) == 0:
		// links-only relationship
	case bytes.Equal(data, []byte("null")):
		r.ToOne = true
	case data[0] == '[':
		if err := json.Unmarshal(data, &r.Data); err != nil {
			return err
		}
	default:
		var one Linkage
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		r.Data = []Linkage{one}
		r.ToOne = true
	}
	return nil
}

// MarshalJSON writes data in the form it was read.
func (r Relationship) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	switch {
	case !r.ToOne && r.Data == nil && (r.Links != nil || r.Meta != nil):
	case r.ToOne && len(r.Data) == 0:
		out["data"] = nil
	case r.ToOne:
		out["data"] = r.Data[0]
	default:
		data := r.Data
		if data == nil {
			data = []Linkage{}
		}
		out["data"] = data
	}
	if r.Links != nil {
		out["links"] = r.Links
	}
	if r.Meta != nil {
		out["meta"] = r.Meta
	}
	return json.Marshal(out)
}

// Single decodes a document whose primary data is one resource.
func (d Document) Single() (Resource, error) {
	var res Resource
	if len(d.Data) == 0 || bytes.Equal(bytes.TrimSpace(d.Data), []byte("null")) {
		return res, fmt.Errorf("document has no primary data")
	}
	if err := json.Unmarshal(d.Data, &res); err != nil {
		return res, fmt.Errorf("failed to decode primary resource: %w", err)
	}
	return res, nil
}

// Collection decodes a document whose primary data is an array of resources.
func (d Document) Collection() ([]Resource, error) {
	if len(d.Data) == 0 {
		return nil, nil
	}
	var list []Resource
	if err := json.Unmarshal(d.Data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode primary collection: %w", err)
	}
	return list, nil
}

// Resolve returns the included resources linked from res through the named
// relationship, restricted to typ.
func (d Document) Resolve(res Resource, relationship, typ string) []Resource {
	rel, ok := res.Relationship(relationship)
	if !ok {
		return nil
	}
	return ResolveRelationship(d.Included, rel.Data, typ)
}

// ResolveOne returns the single included resource linked from res through
// the named to-one relationship.
func (d Document) ResolveOne(res Resource, relationship, typ string) (Resource, bool) {
	found := d.Resolve(res, relationship, typ)
	if len(found) == 0 {
		return Resource{}, false
	}
	return found[0], true
}
