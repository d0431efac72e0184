package client

import "github.com/carryon-app/carryon/internal/jsonapi"

// payload wraps attributes in JSON:API format for requests.
type payload struct {
	Data payloadData `json:"data"`
}

type payloadData struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id,omitempty"`
	Attributes    any                     `json:"attributes,omitempty"`
	Relationships map[string]relationship `json:"relationships,omitempty"`
}

type relationship struct {
	Data jsonapi.Linkage `json:"data"`
}

func newPayload(typ string, attrs any) *payload {
	return &payload{Data: payloadData{Type: typ, Attributes: attrs}}
}

// relate adds a to-one relationship. An empty id is skipped.
func (p *payload) relate(name, typ, id string) *payload {
	if id == "" {
		return p
	}
	if p.Data.Relationships == nil {
		p.Data.Relationships = make(map[string]relationship)
	}
	p.Data.Relationships[name] = relationship{Data: jsonapi.Linkage{ID: id, Type: typ}}
	return p
}

// identifiers is a to-many linkage body, e.g. for bulk updates.
type identifiers struct {
	Data []jsonapi.Linkage `json:"data"`
}

func newIdentifiers(typ string, ids ...string) identifiers {
	out := identifiers{Data: make([]jsonapi.Linkage, 0, len(ids))}
	for _, id := range ids {
		out.Data = append(out.Data, jsonapi.Linkage{ID: id, Type: typ})
	}
	return out
}
