package client

import (
	"context"

	"github.com/carryon-app/carryon/internal/api"
	"github.com/carryon-app/carryon/internal/models"
)

var (
	listUserReviewsEndpoint = api.NewEndpoint(api.GET, "/api/v1/users/{id}/reviews")
	createReviewEndpoint    = api.NewEndpoint(api.POST, "/api/v1/reviews")
)

type ReviewsClient struct {
	*base
}

type ReviewInput struct {
	SubjectID string `json:"-" validate:"required"`
	OrderID   string `json:"-" validate:"required"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
	Comment   string `json:"comment,omitempty" validate:"max=2000"`
}

// ListForUser returns the reviews left about userID, each with its author.
func (c *ReviewsClient) ListForUser(ctx context.Context, userID string) ([]models.Review, error) {
	query := api.Params{"include": "author"}
	doc, err := c.fetch(ctx, listUserReviewsEndpoint.With(userID), api.Request{Query: query})
	if err != nil {
		return nil, err
	}
	list, err := doc.Collection()
	if err != nil {
		return nil, err
	}
	reviews := make([]models.Review, 0, len(list))
	for _, res := range list {
		review, err := models.From[models.Review](res, models.TypeReview)
		if err != nil {
			return nil, err
		}
		if review.Author, err = related[models.User](doc, res, "author", models.TypeUser); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

func (c *ReviewsClient) Create(ctx context.Context, in ReviewInput) (*models.Review, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	body := newPayload(models.TypeReview, in).
		relate("subject", models.TypeUser, in.SubjectID).
		relate("order", models.TypeOrder, in.OrderID)
	doc, err := c.fetch(ctx, createReviewEndpoint, api.Request{Body: body})
	if err != nil {
		return nil, err
	}
	res, review, err := single[models.Review](doc, models.TypeReview)
	if err != nil {
		return nil, err
	}
	if review.Author, err = related[models.User](doc, res, "author", models.TypeUser); err != nil {
		return nil, err
	}
	return &review, nil
}
