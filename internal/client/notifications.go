package client

import (
	"context"
	"fmt"

	"github.com/carryon-app/carryon/internal/api"
	"github.com/carryon-app/carryon/internal/models"
)

var (
	listNotificationsEndpoint = api.NewEndpoint(api.GET, "/api/v1/notifications")
	unreadCountEndpoint       = api.NewEndpoint(api.GET, "/api/v1/notifications/unread-count")
	markReadEndpoint          = api.NewEndpoint(api.PATCH, "/api/v1/notifications/read")
	markAllReadEndpoint       = api.NewEndpoint(api.POST, "/api/v1/notifications/read-all")
)

type NotificationsClient struct {
	*base
}

// List returns a page of notifications, newest first. Zero values use the
// backend defaults.
func (c *NotificationsClient) List(ctx context.Context, page, size int) (Page[models.Notification], error) {
	query := api.Params{"page": pageParams(page, size)}
	doc, err := c.fetch(ctx, listNotificationsEndpoint, api.Request{Query: query})
	if err != nil {
		return Page[models.Notification]{}, err
	}
	list, err := doc.Collection()
	if err != nil {
		return Page[models.Notification]{}, err
	}
	items, err := models.FromAll[models.Notification](list, models.TypeNotification)
	if err != nil {
		return Page[models.Notification]{}, err
	}
	return pageOf(items, doc), nil
}

func (c *NotificationsClient) UnreadCount(ctx context.Context) (int, error) {
	doc, err := c.fetch(ctx, unreadCountEndpoint, api.Request{})
	if err != nil {
		return 0, err
	}
	res, err := doc.Single()
	if err != nil {
		return 0, err
	}
	unread := res.Attr("unread")
	if !unread.Exists() {
		return 0, fmt.Errorf("unread count missing from %s response", res.Type)
	}
	return int(unread.Int()), nil
}

// MarkRead marks the given notifications as read. No ids is a no-op.
func (c *NotificationsClient) MarkRead(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	body := newIdentifiers(models.TypeNotification, ids...)
	_, err := c.fetch(ctx, markReadEndpoint, api.Request{Body: body})
	return err
}

func (c *NotificationsClient) MarkAllRead(ctx context.Context) error {
	_, err := c.fetch(ctx, markAllReadEndpoint, api.Request{})
	return err
}
