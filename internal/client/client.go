// Package client implements the carryon domain API modules on top of the
// request pipeline. Each module decodes JSON:API documents into models and
// attaches related resources from the document's included set.
package client

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/carryon-app/carryon/internal/api"
	"github.com/carryon-app/carryon/internal/jsonapi"
	"github.com/carryon-app/carryon/internal/models"
	"github.com/carryon-app/carryon/internal/session"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// TokenSource supplies the bearer token for authenticated calls.
// *session.Manager implements it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client groups the domain modules. They share one pipeline and one token
// source.
type Client struct {
	Auth          *AuthClient
	Profile       *ProfileClient
	Trips         *TripsClient
	Routes        *RoutesClient
	Orders        *OrdersClient
	Quotes        *QuotesClient
	Reviews       *ReviewsClient
	Notifications *NotificationsClient
}

// New returns a Client. tokens may be nil, in which case authenticated calls
// fail with session.ErrNotLoggedIn.
func New(apiClient *api.Client, tokens TokenSource) *Client {
	b := &base{api: apiClient, tokens: tokens}
	return &Client{
		Auth:          newAuthClient(b),
		Profile:       &ProfileClient{b},
		Trips:         &TripsClient{b},
		Routes:        &RoutesClient{b},
		Orders:        &OrdersClient{b},
		Quotes:        &QuotesClient{b},
		Reviews:       &ReviewsClient{b},
		Notifications: &NotificationsClient{b},
	}
}

type base struct {
	api    *api.Client
	tokens TokenSource
}

func (b *base) authorize(ctx context.Context, req *api.Request) error {
	if b.tokens == nil {
		return session.ErrNotLoggedIn
	}
	token, err := b.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	req.Token = token
	return nil
}

// fetch runs an authenticated call and decodes the JSON:API document.
func (b *base) fetch(ctx context.Context, ep api.Endpoint, req api.Request) (*jsonapi.Document, error) {
	if err := b.authorize(ctx, &req); err != nil {
		return nil, err
	}
	return b.fetchPublic(ctx, ep, req)
}

// fetchPublic runs a call that needs no session.
func (b *base) fetchPublic(ctx context.Context, ep api.Endpoint, req api.Request) (*jsonapi.Document, error) {
	env, err := api.Execute[jsonapi.Document](ctx, b.api, ep, req)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Page is one page of a collection.
type Page[T any] struct {
	Items []T `json:"items" yaml:"items"`
	Total int `json:"total" yaml:"total"`
}

func pageOf[T any](items []T, doc *jsonapi.Document) Page[T] {
	p := Page[T]{Items: items, Total: len(items)}
	if total, ok := doc.Meta["total"].(float64); ok {
		p.Total = int(total)
	}
	return p
}

// pageParams returns page[number]/page[size], leaving out unset values.
func pageParams(number, size int) map[string]any {
	p := map[string]any{}
	if number > 0 {
		p["number"] = number
	}
	if size > 0 {
		p["size"] = size
	}
	return p
}

func single[T any, P models.Model[T]](doc *jsonapi.Document, typ string) (jsonapi.Resource, T, error) {
	var zero T
	res, err := doc.Single()
	if err != nil {
		return res, zero, err
	}
	m, err := models.From[T, P](res, typ)
	return res, m, err
}

// related returns the included resource linked from res through the named
// to-one relationship, or nil if the backend did not include it.
func related[T any, P models.Model[T]](doc *jsonapi.Document, res jsonapi.Resource, rel, typ string) (*T, error) {
	found, ok := doc.ResolveOne(res, rel, typ)
	if !ok {
		return nil, nil
	}
	m, err := models.From[T, P](found, typ)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func relatedAll[T any, P models.Model[T]](doc *jsonapi.Document, res jsonapi.Resource, rel, typ string) ([]T, error) {
	return models.FromAll[T, P](doc.Resolve(res, rel, typ), typ)
}
