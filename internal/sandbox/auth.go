package sandbox

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/carryon-app/carryon/internal/jsonapi"
	"github.com/carryon-app/carryon/internal/models"
)

const typeSession = "sessions"

// caller identifies the user behind an authenticated request.
type caller struct {
	userID  string
	tokenID string
}

type authedHandler func(w http.ResponseWriter, r *http.Request, me caller)

// authed rejects requests without a valid, unrevoked bearer token.
func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		claims, err := s.tokens.validate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		s.store.mu.RLock()
		revoked := s.store.revoked[claims.ID]
		_, exists := s.store.users[claims.Subject]
		s.store.mu.RUnlock()
		if revoked || !exists {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next(w, r, caller{userID: claims.Subject, tokenID: claims.ID})
	}
}

// issueSession mints a token pair for u. The store lock must be held.
func (s *Server) issueSession(w http.ResponseWriter, status int, u *user) {
	access, err := s.tokens.accessToken(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	refresh, err := s.tokens.refreshToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	s.store.refreshTokens[refresh] = u.ID

	res := jsonapi.Resource{
		ID:   uuid.NewString(),
		Type: typeSession,
		Attributes: attributes(map[string]any{
			"access_token":  access,
			"refresh_token": refresh,
			"token_type":    "Bearer",
			"expires_in":    int64(s.tokens.accessTTL.Seconds()),
		}),
		Relationships: map[string]jsonapi.Relationship{
			"user": toOne(models.TypeUser, u.ID),
		},
	}
	writeResource(w, status, res, []jsonapi.Resource{s.store.userResource(u)})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if _, err := decodePayload(r, typeSession, &creds); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	u, ok := s.store.users[s.store.byEmail[strings.ToLower(creds.Email)]]
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(creds.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.issueSession(w, http.StatusOK, u)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Locale    string `json:"locale"`
	}
	if _, err := decodePayload(r, models.TypeUser, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var problems []string
	switch {
	case in.Email == "":
		problems = append(problems, "Email is required")
	case !strings.Contains(in.Email, "@"):
		problems = append(problems, "Email is invalid")
	}
	if len(in.Password) < 8 {
		problems = append(problems, "Password must be at least 8 characters")
	}
	if in.FirstName == "" {
		problems = append(problems, "First name is required")
	}
	if len(problems) > 0 {
		writeErrors(w, http.StatusUnprocessableEntity, problems)
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if _, taken := s.store.byEmail[strings.ToLower(in.Email)]; taken {
		writeError(w, http.StatusConflict, "Email is already registered")
		return
	}
	locale := in.Locale
	if locale == "" {
		locale = "en"
	}
	u, err := s.store.addUser(models.User{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Locale:    locale,
		CreatedAt: s.now().UTC(),
	}, in.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}
	s.issueSession(w, http.StatusCreated, u)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if _, err := decodePayload(r, typeSession, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	userID, ok := s.store.refreshTokens[in.RefreshToken]
	u, exists := s.store.users[userID]
	if !ok || !exists {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	// Refresh tokens are single use.
	delete(s.store.refreshTokens, in.RefreshToken)
	s.issueSession(w, http.StatusOK, u)
}

var oauthProviders = map[string]bool{"google": true, "apple": true}

func (s *Server) oauth(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	if !oauthProviders[provider] {
		writeError(w, http.StatusBadRequest, "Unsupported OAuth provider")
		return
	}
	var in struct {
		Code        string `json:"code"`
		RedirectURI string `json:"redirect_uri"`
	}
	if _, err := decodePayload(r, typeSession, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Code == "" {
		writeErrors(w, http.StatusUnprocessableEntity, []string{"Authorization code is required"})
		return
	}
	if in.Code == "invalid" {
		writeError(w, http.StatusUnauthorized, "OAuth exchange failed")
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	email := provider + "-user@oauth.carryon.test"
	u, ok := s.store.users[s.store.byEmail[email]]
	if !ok {
		var err error
		u, err = s.store.addUser(models.User{
			Email:     email,
			FirstName: strings.ToUpper(provider[:1]) + provider[1:],
			LastName:  "User",
			Locale:    "en",
			CreatedAt: s.now().UTC(),
		}, uuid.NewString())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to create account")
			return
		}
	}
	s.issueSession(w, http.StatusOK, u)
}

// passwordReset always accepts so callers cannot probe for accounts.
func (s *Server) passwordReset(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if _, err := decodePayload(r, "password-resets", &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Email == "" {
		writeErrors(w, http.StatusUnprocessableEntity, []string{"Email is required"})
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, me caller) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.revoked[me.tokenID] = true
	for token, userID := range s.store.refreshTokens {
		if userID == me.userID {
			delete(s.store.refreshTokens, token)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request, me caller) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	writeResource(w, http.StatusOK, s.store.userResource(s.store.users[me.userID]), nil)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, me caller) {
	var in struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Phone     string `json:"phone"`
		Bio       string `json:"bio"`
		Locale    string `json:"locale"`
	}
	if _, err := decodePayload(r, models.TypeUser, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(in.Bio) > 500 {
		writeErrors(w, http.StatusUnprocessableEntity, []string{"Bio is too long"})
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	u := s.store.users[me.userID]
	setIfNotEmpty(&u.FirstName, in.FirstName)
	setIfNotEmpty(&u.LastName, in.LastName)
	setIfNotEmpty(&u.Phone, in.Phone)
	setIfNotEmpty(&u.Bio, in.Bio)
	setIfNotEmpty(&u.Locale, in.Locale)
	writeResource(w, http.StatusOK, s.store.userResource(u), nil)
}

func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request, me caller) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	u := s.store.users[me.userID]
	delete(s.store.byEmail, strings.ToLower(u.Email))
	delete(s.store.users, u.ID)
	for i, id := range s.store.userIDs {
		if id == u.ID {
			s.store.userIDs = append(s.store.userIDs[:i], s.store.userIDs[i+1:]...)
			break
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

const maxAvatarSize = 5 << 20

func (s *Server) uploadAvatar(w http.ResponseWriter, r *http.Request, me caller) {
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeErrors(w, http.StatusUnprocessableEntity, []string{"Avatar file is required"})
		return
	}
	defer file.Close()
	if header.Size == 0 {
		writeErrors(w, http.StatusUnprocessableEntity, []string{"Avatar file is empty"})
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	u := s.store.users[me.userID]
	u.AvatarURL = "https://cdn.carryon.test/avatars/" + u.ID + "/" + header.Filename
	writeResource(w, http.StatusOK, s.store.userResource(u), nil)
}

// decodeIdentifiers reads a to-many linkage document.
func decodeIdentifiers(r *http.Request) ([]jsonapi.Linkage, error) {
	var body struct {
		Data []jsonapi.Linkage `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Data, nil
}
