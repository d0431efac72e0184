package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifications(t *testing.T) {
	env := loggedIn(t)
	ctx := context.Background()

	page, err := env.client.Notifications.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt), "newest first")

	unread, err := env.client.Notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	require.NoError(t, env.client.Notifications.MarkRead(ctx, page.Items[0].ID, "notification-404"))
	unread, err = env.client.Notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	require.NoError(t, env.client.Notifications.MarkRead(ctx))

	require.NoError(t, env.client.Notifications.MarkAllRead(ctx))
	unread, err = env.client.Notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
}
