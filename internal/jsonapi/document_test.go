package jsonapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tripDocument = `{
  "data": {
    "id": "42",
    "type": "trip",
    "attributes": {"origin": "Lisbon", "capacity": {"kg": 12.5}, "tags": ["fragile"]},
    "relationships": {
      "route": {"data": {"id": "r1", "type": "route"}},
      "traveler": {"data": null},
      "orders": {"data": [{"id": "o1", "type": "shopping_order"}, {"id": "o2", "type": "shopping_order"}]},
      "reviews": {"links": {"related": "/trips/42/reviews"}}
    }
  },
  "included": [
    {"id": "o2", "type": "shopping_order", "attributes": {"status": "open"}},
    {"id": "r1", "type": "route", "attributes": {"name": "LIS-JFK"}}
  ]
}`

func TestDocument_Single(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(tripDocument), &doc))

	trip, err := doc.Single()
	require.NoError(t, err)

	assert.Equal(t, "42", trip.ID)
	assert.Equal(t, "Lisbon", trip.Attr("origin").String())
	assert.Equal(t, 12.5, trip.Attr("capacity.kg").Float())
	assert.Equal(t, "fragile", trip.Attr("tags.0").String())
	assert.False(t, trip.Attr("missing").Exists())

	route, ok := doc.ResolveOne(trip, "route", "route")
	require.True(t, ok)
	assert.Equal(t, "LIS-JFK", route.Attr("name").String())

	_, ok = doc.ResolveOne(trip, "traveler", "user")
	assert.False(t, ok)

	orders := doc.Resolve(trip, "orders", "shopping_order")
	require.Len(t, orders, 1, "o1 is not included")
	assert.Equal(t, "o2", orders[0].ID)

	assert.Nil(t, doc.Resolve(trip, "nope", "x"))
}

func TestRelationship_Forms(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(tripDocument), &doc))
	trip, err := doc.Single()
	require.NoError(t, err)

	route := trip.Relationships["route"]
	assert.True(t, route.ToOne)
	one, ok := route.One()
	require.True(t, ok)
	assert.Equal(t, Linkage{ID: "r1", Type: "route"}, one)

	traveler := trip.Relationships["traveler"]
	assert.True(t, traveler.ToOne)
	_, ok = traveler.One()
	assert.False(t, ok)

	orders := trip.Relationships["orders"]
	assert.False(t, orders.ToOne)
	assert.Len(t, orders.Data, 2)

	reviews := trip.Relationships["reviews"]
	assert.Empty(t, reviews.Data)
	assert.Equal(t, "/trips/42/reviews", reviews.Links["related"])
}

func TestRelationship_MarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "to-one", in: `{"data":{"id":"1","type":"route"}}`},
		{name: "null", in: `{"data":null}`},
		{name: "to-many", in: `{"data":[{"id":"1","type":"quote"}]}`},
		{name: "empty to-many", in: `{"data":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rel Relationship
			require.NoError(t, json.Unmarshal([]byte(tt.in), &rel))
			out, err := json.Marshal(rel)
			require.NoError(t, err)
			assert.JSONEq(t, tt.in, string(out))
		})
	}
}

func TestDocument_Collection(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"data":[{"id":"1","type":"route"},{"id":"2","type":"route"}]}`), &doc))

	list, err := doc.Collection()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = doc.Single()
	assert.Error(t, err)
}

func TestDocument_SingleWithoutData(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"data":null}`), &doc))

	_, err := doc.Single()
	assert.Error(t, err)
}

func TestResource_DecodeAttributes(t *testing.T) {
	res := Resource{ID: "1", Type: "quote", Attributes: []byte(`{"amount": 25, "currency": "EUR"}`)}

	var attrs struct {
		Amount   int    `json:"amount"`
		Currency string `json:"currency"`
	}
	require.NoError(t, res.DecodeAttributes(&attrs))
	assert.Equal(t, 25, attrs.Amount)
	assert.Equal(t, "EUR", attrs.Currency)

	bad := Resource{ID: "2", Type: "quote", Attributes: []byte(`{"amount": "x"}`)}
	err := bad.DecodeAttributes(&attrs)
	assert.ErrorContains(t, err, `quote "2"`)
}
