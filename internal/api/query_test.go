package api

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, Locale: "en"})
	require.NoError(t, err)
	return c
}

func TestBuildURL_OmitsEmptyValues(t *testing.T) {
	c := newTestClient(t, "https://api.example.com")

	var nilPtr *string
	got := c.BuildURL(NewEndpoint(GET, "/trips"), Params{
		"empty":   "",
		"nil":     nil,
		"nilPtr":  nilPtr,
		"nilMap":  map[string]any(nil),
		"present": "yes",
	})

	assert.Equal(t, "https://api.example.com/trips?locale=en&present=yes", got)
	assert.NotContains(t, got, "empty")
	assert.NotContains(t, got, "nil")
}

func TestBuildURL_Arrays(t *testing.T) {
	c := newTestClient(t, "https://api.example.com")

	got := c.BuildURL(NewEndpoint(GET, "/orders"), Params{
		"status": []string{"open", "closed"},
		"ids":    []int{1, 2},
		"mixed":  []any{"a", nil, 3},
	})

	assert.Contains(t, got, "status[]=open")
	assert.Contains(t, got, "status[]=closed")
	assert.Contains(t, got, "ids[]=1&ids[]=2")
	assert.Contains(t, got, "mixed[]=a&mixed[]=3")
	assert.NotContains(t, got, "status=")
}

func TestBuildURL_NestedObjects(t *testing.T) {
	c := newTestClient(t, "https://api.example.com")

	got := c.BuildURL(NewEndpoint(GET, "/trips"), Params{
		"key": map[string]any{
			"a": 1,
			"b": map[string]any{"c": 2},
			"d": "",
		},
		"filter": map[string]any{"tags": []string{"x", "y"}},
	})

	assert.Contains(t, got, "key[a]=1")
	assert.Contains(t, got, "key[b][c]=2")
	assert.NotContains(t, got, "key[d]")
	assert.Contains(t, got, "filter[tags][]=x&filter[tags][]=y")
}

func TestBuildURL_Locale(t *testing.T) {
	c := newTestClient(t, "https://api.example.com/")

	t.Run("injected", func(t *testing.T) {
		got := c.BuildURL(NewEndpoint(GET, "/profile"), nil)
		assert.Equal(t, "https://api.example.com/profile?locale=en", got)
	})

	t.Run("caller overrides", func(t *testing.T) {
		got := c.BuildURL(NewEndpoint(GET, "/profile"), Params{"locale": "fr"})
		assert.Equal(t, "https://api.example.com/profile?locale=fr", got)
	})

	t.Run("caller clears", func(t *testing.T) {
		got := c.BuildURL(NewEndpoint(GET, "/profile"), Params{"locale": ""})
		assert.Equal(t, "https://api.example.com/profile", got)
	})
}

func TestBuildURL_ScalarStringification(t *testing.T) {
	c := newTestClient(t, "https://api.example.com")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	page := 3

	got := c.BuildURL(NewEndpoint(GET, "/x"), Params{
		"flag":  true,
		"ratio": 0.5,
		"since": at,
		"page":  &page,
		"q":     "a b&c",
	})

	u, err := url.Parse(got)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "true", q.Get("flag"))
	assert.Equal(t, "0.5", q.Get("ratio"))
	assert.Equal(t, "2026-03-01T12:00:00Z", q.Get("since"))
	assert.Equal(t, "3", q.Get("page"))
	assert.Equal(t, "a b&c", q.Get("q"))
}

func TestEncodeQuery_ScalarOverwrites(t *testing.T) {
	values := url.Values{}
	appendValue(values, "page", 1)
	appendValue(values, "page", 2)

	assert.Equal(t, []string{"2"}, values["page"])
}

func TestEndpointWith(t *testing.T) {
	ep := NewEndpoint(GET, "/trips/{id}/quotes/{quoteID}")

	got := ep.With("42", "a/b")

	assert.Equal(t, "/trips/42/quotes/a%2Fb", got.Path)
	assert.Equal(t, GET, got.Method)
	assert.Equal(t, "/trips/{id}/quotes/{quoteID}", got.Template())
	assert.Equal(t, "/trips/{id}/quotes/{quoteID}", ep.Path, "original is not mutated")
	assert.Equal(t, "GET /trips/42/quotes/a%2Fb", got.String())
}
