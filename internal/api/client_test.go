package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carryon-app/carryon/internal/i18n"
	"github.com/carryon-app/carryon/internal/logging"
)

var getProfile = NewEndpoint(GET, "/api/v1/profile")

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{BaseURL: "http://localhost:8089", Locale: "en-GB"}},
		{name: "missing base url", cfg: Config{Locale: "en"}, wantErr: true},
		{name: "bad base url", cfg: Config{BaseURL: "not a url"}, wantErr: true},
		{name: "bad locale", cfg: Config{BaseURL: "http://localhost", Locale: "??"}, wantErr: true},
		{name: "negative timeout", cfg: Config{BaseURL: "http://localhost", Timeout: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultPlatform, c.cfg.Platform)
		})
	}
}

func TestDo_JSONSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/profile", r.URL.Path)
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "en", r.URL.Query().Get("locale"))
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "mobile", r.Header.Get("X-Platform"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Contains(t, r.Header.Get("Accept"), "application/vnd.api+json")

		w.Header().Set("Content-Type", "application/vnd.api+json")
		w.Write([]byte(`{"data":{"id":"1","type":"user"}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.Do(context.Background(), getProfile, Request{Token: "token-123"})

	require.NoError(t, err)
	assert.Equal(t, KindJSON, resp.Kind)
	data := resp.Data.(map[string]any)["data"].(map[string]any)
	assert.Equal(t, "user", data["type"])
	assert.Equal(t, http.StatusOK, resp.HTTP.StatusCode)
}

func TestExecute_TypedDecode(t *testing.T) {
	type profile struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"7"}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	env, err := Execute[profile](context.Background(), c, getProfile, Request{})

	require.NoError(t, err)
	assert.Equal(t, "7", env.Data.Data.ID)
	assert.NotNil(t, env.Response)
}

func TestExecute_DecodeMismatchIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["not","an","object"]`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := Execute[map[string]string](context.Background(), c, getProfile, Request{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.Equal(t, http.StatusOK, StatusCode(err))
}

func TestDo_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	env, err := Execute[map[string]any](context.Background(), c, NewEndpoint(DELETE, "/api/v1/trips/1"), Request{})

	require.NoError(t, err)
	assert.Nil(t, env.Data)
}

func TestDo_EmptyBodyNotRead(t *testing.T) {
	c := newTestClient(t, "http://backend.test")
	c.http = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode:    http.StatusOK,
			Status:        "200 OK",
			Header:        http.Header{"Content-Length": {"0"}, "Content-Type": {"application/json"}},
			ContentLength: 0,
			Body:          failingBody{},
			Request:       r,
		}, nil
	})}

	resp, err := c.Do(context.Background(), getProfile, Request{})

	require.NoError(t, err)
	assert.Equal(t, KindEmpty, resp.Kind)
	assert.Nil(t, resp.Data)
}

func TestDo_ErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Invalid token"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Do(context.Background(), getProfile, Request{})

	require.Error(t, err)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonHTTPStatus, apiErr.Reason)
	assert.Equal(t, "Invalid token", apiErr.Message)
	assert.Equal(t, "Invalid token", err.Error())
	assert.Equal(t, 500, apiErr.Status)
	assert.Equal(t, "Internal Server Error", apiErr.StatusText)
	assert.Equal(t, map[string]any{"error": "Invalid token"}, apiErr.Raw)
	assert.Equal(t, server.URL+"/api/v1/profile?locale=en", apiErr.URL)
	assert.Equal(t, "application/json", apiErr.Header.Get("Content-Type"))
	assert.ErrorIs(t, err, ErrHTTPStatus)
	assert.NotErrorIs(t, err, ErrNetwork)
}

func TestDo_ErrorsArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors": ["Name is required", "Email is invalid"]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Do(context.Background(), NewEndpoint(POST, "/api/v1/auth/register"), Request{Body: map[string]string{}})

	require.Error(t, err)
	apiErr, _ := AsError(err)
	assert.Equal(t, "Name is required, Email is invalid", apiErr.Message)
	assert.Equal(t, 422, apiErr.Status)
}

func TestDo_ErrorMessageFallbacks(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		expected    string
	}{
		{name: "plain text body", contentType: "text/plain", body: "Service unavailable", expected: "Service unavailable"},
		{name: "jsonapi error objects", contentType: "application/vnd.api+json", body: `{"errors":[{"title":"Bad","detail":"Trip is full"},{"title":"Conflict"}]}`, expected: "Trip is full, Conflict"},
		{name: "unrecognized object", contentType: "application/json", body: `{"message_key":"x"}`, expected: "Request failed"},
		{name: "empty error field", contentType: "application/json", body: `{"error":""}`, expected: "Request failed"},
		{name: "json array", contentType: "application/json", body: `[1,2]`, expected: "Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL)
			_, err := c.Do(context.Background(), getProfile, Request{})

			require.Error(t, err)
			assert.Equal(t, tt.expected, err.Error())
			assert.Equal(t, http.StatusBadRequest, StatusCode(err))
		})
	}
}

func TestDo_NetworkError(t *testing.T) {
	c := newTestClient(t, "http://backend.test")
	c.http = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})}

	_, err := c.Do(context.Background(), getProfile, Request{})

	require.Error(t, err)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonNetwork, apiErr.Reason)
	assert.Equal(t, 0, apiErr.Status)
	assert.Empty(t, apiErr.StatusText)
	assert.Nil(t, apiErr.Raw)
	assert.Nil(t, apiErr.Header)
	assert.Equal(t, i18n.T("en", i18n.NetworkError), apiErr.Message)
	assert.NotContains(t, apiErr.Message, "connection refused")
	assert.Equal(t, "http://backend.test/api/v1/profile?locale=en", apiErr.URL)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorContains(t, errors.Unwrap(err), "connection refused")
}

func TestDo_NetworkErrorLocalized(t *testing.T) {
	c, err := New(Config{BaseURL: "http://backend.test", Locale: "fr"})
	require.NoError(t, err)
	c.http = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("timeout")
	})}

	_, err = c.Do(context.Background(), getProfile, Request{})

	assert.Equal(t, i18n.T("fr", i18n.NetworkError), err.Error())
}

func TestDo_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, server.URL)
	_, err := c.Do(ctx, getProfile, Request{})

	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_UnknownContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Do(context.Background(), getProfile, Request{})

	require.Error(t, err)
	apiErr, _ := AsError(err)
	assert.Equal(t, ReasonParse, apiErr.Reason)
	assert.Equal(t, http.StatusCreated, apiErr.Status)
	assert.Equal(t, "Created", apiErr.StatusText)
	assert.Equal(t, "%PDF-1.4", apiErr.Raw)
	assert.Contains(t, apiErr.Message, "application/pdf")
}

func TestDo_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error": "trunc`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Do(context.Background(), getProfile, Request{})

	require.Error(t, err)
	apiErr, _ := AsError(err)
	assert.Equal(t, ReasonParse, apiErr.Reason)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, `{"error": "trunc`, apiErr.Raw)
}

func TestDo_TextAndBinaryBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/text":
			w.Header()["Content-Type"] = nil
			w.Write([]byte("pong"))
		case "/image":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	text, err := Execute[string](context.Background(), c, NewEndpoint(GET, "/text"), Request{})
	require.NoError(t, err)
	assert.Equal(t, "pong", text.Data)

	img, err := Execute[[]byte](context.Background(), c, NewEndpoint(GET, "/image"), Request{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, img.Data)

	_, err = Execute[string](context.Background(), c, NewEndpoint(GET, "/image"), Request{})
	assert.ErrorIs(t, err, ErrParse)
}

func TestDo_JSONBodyHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "mobile", r.Header.Get("X-Platform"))
		assert.Equal(t, "custom", r.Header.Get("X-Custom"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "alice@example.com", payload["email"])

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Do(context.Background(), NewEndpoint(POST, "/api/v1/auth/password"), Request{
		Body: map[string]string{"email": "alice@example.com"},
		Header: http.Header{
			"Content-Type": {"text/plain"},
			"X-Platform":   {"desktop"},
			"X-Custom":     {"custom"},
		},
	})

	require.NoError(t, err)
}

func TestDo_MultipartBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "avatar", r.FormValue("kind"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "me.png", hdr.Filename)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "png-bytes", string(data))

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	form, err := NewMultipart(map[string]string{"kind": "avatar"}, File{
		Field: "file", Filename: "me.png", Content: strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)
	assert.Positive(t, form.Len())

	c := newTestClient(t, server.URL)
	_, err = c.Do(context.Background(), NewEndpoint(PUT, "/api/v1/profile/avatar"), Request{
		Body:   form,
		Header: http.Header{"Content-Type": {"application/json"}},
	})

	require.NoError(t, err)
}

func TestDo_BinaryBodyKeepsCallerContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Do(context.Background(), NewEndpoint(PUT, "/upload"), Request{
		Body:   []byte{0xff, 0xd8},
		Header: http.Header{"Content-Type": {"image/jpeg"}},
	})

	require.NoError(t, err)
}

func TestDo_RequestIDFromContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-abc", r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := logging.WithRequestID(context.Background(), "req-abc")
	_, err := c.Do(ctx, getProfile, Request{})

	require.NoError(t, err)
}

func TestDo_ConcurrentCalls(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := c.Do(context.Background(), getProfile, Request{})
			errs <- err
		}()
	}
	for i := 0; i < 10; i++ {
		assert.NoError(t, <-errs)
	}
	assert.Equal(t, int32(10), hits.Load(), "no deduplication")
}

func TestDo_Metrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/trips/2" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c, err := New(Config{BaseURL: server.URL}, WithMetrics(metrics), WithLogger(logging.Discard()))
	require.NoError(t, err)

	ep := NewEndpoint(GET, "/api/v1/trips/{id}")
	_, err = c.Do(context.Background(), ep.With("1"), Request{})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), ep.With("2"), Request{})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/api/v1/trips/{id}", "GET", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/api/v1/trips/{id}", "GET", "http_status")))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("body must not be read") }
func (failingBody) Close() error             { return nil }
