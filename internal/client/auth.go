package client

import (
	"context"
	"fmt"
	"time"

	"github.com/carryon-app/carryon/internal/api"
	"github.com/carryon-app/carryon/internal/jsonapi"
	"github.com/carryon-app/carryon/internal/models"
	"github.com/carryon-app/carryon/internal/session"
)

const typeSession = "sessions"

var (
	loginEndpoint         = api.NewEndpoint(api.POST, "/api/v1/auth/login")
	registerEndpoint      = api.NewEndpoint(api.POST, "/api/v1/auth/register")
	refreshEndpoint       = api.NewEndpoint(api.POST, "/api/v1/auth/refresh")
	oauthEndpoint         = api.NewEndpoint(api.POST, "/api/v1/auth/oauth/{provider}")
	logoutEndpoint        = api.NewEndpoint(api.DELETE, "/api/v1/auth/session")
	passwordResetEndpoint = api.NewEndpoint(api.POST, "/api/v1/auth/password/reset")
)

// AuthClient covers login, registration and token exchange. None of its
// calls need an existing session.
type AuthClient struct {
	*base
	now func() time.Time
}

func newAuthClient(b *base) *AuthClient {
	return &AuthClient{base: b, now: time.Now}
}

// AuthSession is what a successful login, registration or OAuth exchange
// returns. User is nil when the backend does not include it.
type AuthSession struct {
	Tokens session.Tokens
	User   *models.User
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name,omitempty"`
	Locale    string `json:"locale,omitempty" validate:"omitempty,bcp47_language_tag"`
}

type sessionAttributes struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (c *AuthClient) Login(ctx context.Context, email, password string) (*AuthSession, error) {
	body := newPayload(typeSession, map[string]string{
		"email":    email,
		"password": password,
	})
	doc, err := c.fetchPublic(ctx, loginEndpoint, api.Request{Body: body})
	if err != nil {
		return nil, err
	}
	return c.decodeSession(doc)
}

func (c *AuthClient) Register(ctx context.Context, in RegisterInput) (*AuthSession, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}
	doc, err := c.fetchPublic(ctx, registerEndpoint, api.Request{Body: newPayload(models.TypeUser, in)})
	if err != nil {
		return nil, err
	}
	return c.decodeSession(doc)
}

// Refresh exchanges a refresh token for a new token pair. It implements
// session.Refresher.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (session.Tokens, error) {
	body := newPayload(typeSession, map[string]string{"refresh_token": refreshToken})
	doc, err := c.fetchPublic(ctx, refreshEndpoint, api.Request{Body: body})
	if err != nil {
		return session.Tokens{}, err
	}
	s, err := c.decodeSession(doc)
	if err != nil {
		return session.Tokens{}, err
	}
	return s.Tokens, nil
}

// ExchangeOAuth trades an authorization code from provider for a session.
func (c *AuthClient) ExchangeOAuth(ctx context.Context, provider, code, redirectURI string) (*AuthSession, error) {
	if provider == "" || code == "" {
		return nil, fmt.Errorf("oauth provider and code are required")
	}
	body := newPayload(typeSession, map[string]string{
		"code":         code,
		"redirect_uri": redirectURI,
	})
	doc, err := c.fetchPublic(ctx, oauthEndpoint.With(provider), api.Request{Body: body})
	if err != nil {
		return nil, err
	}
	return c.decodeSession(doc)
}

// Logout revokes token on the backend. The caller clears local state.
func (c *AuthClient) Logout(ctx context.Context, token string) error {
	_, err := c.api.Do(ctx, logoutEndpoint, api.Request{Token: token})
	return err
}

func (c *AuthClient) RequestPasswordReset(ctx context.Context, email string) error {
	body := newPayload("password-resets", map[string]string{"email": email})
	_, err := c.api.Do(ctx, passwordResetEndpoint, api.Request{Body: body})
	return err
}

func (c *AuthClient) decodeSession(doc *jsonapi.Document) (*AuthSession, error) {
	res, err := doc.Single()
	if err != nil {
		return nil, err
	}
	if res.Type != typeSession {
		return nil, fmt.Errorf("expected %s resource, got %q", typeSession, res.Type)
	}

	var attrs sessionAttributes
	if err := res.DecodeAttributes(&attrs); err != nil {
		return nil, err
	}
	if attrs.AccessToken == "" {
		return nil, fmt.Errorf("session response carried no access token")
	}

	s := &AuthSession{Tokens: session.Tokens{
		AccessToken:  attrs.AccessToken,
		RefreshToken: attrs.RefreshToken,
		TokenType:    attrs.TokenType,
	}}
	if attrs.ExpiresIn > 0 {
		s.Tokens.ExpiresAt = c.now().Add(time.Duration(attrs.ExpiresIn) * time.Second)
	}

	s.User, err = related[models.User](doc, res, "user", models.TypeUser)
	if err != nil {
		return nil, err
	}
	return s, nil
}
