package client

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carryon-app/carryon/internal/api"
	"github.com/carryon-app/carryon/internal/sandbox"
)

func TestProfile_GetAndUpdate(t *testing.T) {
	env := loggedIn(t)
	ctx := context.Background()

	user, err := env.client.Profile.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, sandbox.DemoEmail, user.Email)
	assert.Equal(t, "Demo Traveller", user.Name())

	updated, err := env.client.Profile.Update(ctx, ProfileInput{Bio: "Flying light", Locale: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "Flying light", updated.Bio)
	assert.Equal(t, "fr", updated.Locale)
	assert.Equal(t, "Demo", updated.FirstName, "empty fields are left unchanged")
}

func TestProfile_UpdateValidation(t *testing.T) {
	env := loggedIn(t)

	_, err := env.client.Profile.Update(context.Background(), ProfileInput{Phone: "call me"})

	assert.Error(t, err)
}

func TestProfile_UploadAvatar(t *testing.T) {
	env := loggedIn(t)

	user, err := env.client.Profile.UploadAvatar(context.Background(), "me.png", strings.NewReader("\x89PNG fake"))

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(user.AvatarURL, "/me.png"), user.AvatarURL)
}

func TestProfile_UploadEmptyAvatar(t *testing.T) {
	env := loggedIn(t)

	_, err := env.client.Profile.UploadAvatar(context.Background(), "empty.png", strings.NewReader(""))

	assert.Equal(t, http.StatusUnprocessableEntity, api.StatusCode(err))
	assert.EqualError(t, err, "Avatar file is empty")
}

func TestProfile_Delete(t *testing.T) {
	env := loggedIn(t)
	ctx := context.Background()

	require.NoError(t, env.client.Profile.Delete(ctx))

	_, err := env.client.Profile.Get(ctx)
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))

	_, err = env.client.Auth.Login(ctx, sandbox.DemoEmail, sandbox.DemoPassword)
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))
}
