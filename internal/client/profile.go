package client

import (
	"context"
	"io"

	"github.com/carryon-app/carryon/internal/api"
	"github.com/carryon-app/carryon/internal/models"
)

var (
	getProfileEndpoint    = api.NewEndpoint(api.GET, "/api/v1/profile")
	updateProfileEndpoint = api.NewEndpoint(api.PATCH, "/api/v1/profile")
	deleteProfileEndpoint = api.NewEndpoint(api.DELETE, "/api/v1/profile")
	avatarEndpoint        = api.NewEndpoint(api.POST, "/api/v1/profile/avatar")
)

// ProfileClient manages the signed-in user's own profile.
type ProfileClient struct {
	*base
}

// ProfileInput holds the fields to change. Empty fields are left as they are.
type ProfileInput struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,e164"`
	Bio       string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Locale    string `json:"locale,omitempty" validate:"omitempty,bcp47_language_tag"`
}

func (c *ProfileClient) Get(ctx context.Context) (*models.User, error) {
	doc, err := c.fetch(ctx, getProfileEndpoint, api.Request{})
	if err != nil {
		return nil, err
	}
	_, user, err := single[models.User](doc, models.TypeUser)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *ProfileClient) Update(ctx context.Context, in ProfileInput) (*models.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	doc, err := c.fetch(ctx, updateProfileEndpoint, api.Request{Body: newPayload(models.TypeUser, in)})
	if err != nil {
		return nil, err
	}
	_, user, err := single[models.User](doc, models.TypeUser)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UploadAvatar sends content as a multipart form and returns the updated
// profile.
func (c *ProfileClient) UploadAvatar(ctx context.Context, filename string, content io.Reader) (*models.User, error) {
	form, err := api.NewMultipart(nil, api.File{Field: "avatar", Filename: filename, Content: content})
	if err != nil {
		return nil, err
	}
	doc, err := c.fetch(ctx, avatarEndpoint, api.Request{Body: form})
	if err != nil {
		return nil, err
	}
	_, user, err := single[models.User](doc, models.TypeUser)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete closes the account.
func (c *ProfileClient) Delete(ctx context.Context) error {
	_, err := c.fetch(ctx, deleteProfileEndpoint, api.Request{})
	return err
}
