package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carryon-app/carryon/internal/api"
	"github.com/carryon-app/carryon/internal/models"
)

func TestTripFilter_Params(t *testing.T) {
	c := newAPIClient(t, "https://api.carryon.test")
	after := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	url := c.BuildURL(listTripsEndpoint, TripFilter{
		Status:         models.TripScheduled,
		DepartingAfter: after,
		Page:           2,
	}.params())

	assert.Equal(t, "https://api.carryon.test/api/v1/trips?"+
		"filter[departing_after]=2026-05-01T00%3A00%3A00Z&filter[status]=scheduled&"+
		"include=route%2Ctraveler&locale=en&page[number]=2", url)
}

func TestTrips_List(t *testing.T) {
	env := loggedIn(t)

	page, err := env.client.Trips.List(context.Background(), TripFilter{Status: models.TripScheduled, PageSize: 5})

	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 9, page.Total)
	for _, trip := range page.Items {
		assert.Equal(t, models.TripScheduled, trip.Status)
		require.NotNil(t, trip.Route, trip.ID)
		require.NotNil(t, trip.Traveler, trip.ID)
		assert.NotEmpty(t, trip.Route.Origin)
	}
}

func TestTrips_ListByTraveler(t *testing.T) {
	env := loggedIn(t)
	ctx := context.Background()
	me, err := env.client.Profile.Get(ctx)
	require.NoError(t, err)

	page, err := env.client.Trips.List(ctx, TripFilter{TravelerID: me.ID})

	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	for _, trip := range page.Items {
		assert.Equal(t, me.ID, trip.Traveler.ID)
	}
}

func TestTrips_CreateGetCancel(t *testing.T) {
	env := loggedIn(t)
	ctx := context.Background()
	routes, err := env.client.Routes.List(ctx, RouteFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, routes.Items)
	route := routes.Items[0]

	departure := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	created, err := env.client.Trips.Create(ctx, TripInput{
		RouteID:     route.ID,
		DepartureAt: departure,
		ArrivalAt:   departure.Add(6 * time.Hour),
		CapacityKg:  8,
		Notes:       "Window seat",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TripScheduled, created.Status)
	require.NotNil(t, created.Route)
	assert.Equal(t, route.ID, created.Route.ID)
	assert.True(t, departure.Equal(created.DepartureAt))

	got, err := env.client.Trips.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Window seat", got.Notes)
	assert.Empty(t, got.Orders)

	cancelled, err := env.client.Trips.Cancel(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripCancelled, cancelled.Status)

	_, err = env.client.Trips.Cancel(ctx, created.ID)
	assert.Equal(t, http.StatusConflict, api.StatusCode(err))
}

func TestTrips_CreateValidation(t *testing.T) {
	env := loggedIn(t)
	departure := time.Now().Add(time.Hour)

	_, err := env.client.Trips.Create(context.Background(), TripInput{
		RouteID:     "route-1",
		DepartureAt: departure,
		ArrivalAt:   departure.Add(-time.Minute),
		CapacityKg:  1,
	})

	require.Error(t, err)
	_, isAPIErr := api.AsError(err)
	assert.False(t, isAPIErr)
}

func TestTrips_CancelSomeoneElses(t *testing.T) {
	env := loggedIn(t)
	ctx := context.Background()
	me, err := env.client.Profile.Get(ctx)
	require.NoError(t, err)

	page, err := env.client.Trips.List(ctx, TripFilter{Status: models.TripScheduled})
	require.NoError(t, err)
	var other *models.Trip
	for i := range page.Items {
		if page.Items[i].Traveler.ID != me.ID {
			other = &page.Items[i]
			break
		}
	}
	require.NotNil(t, other)

	_, err = env.client.Trips.Cancel(ctx, other.ID)

	assert.Equal(t, http.StatusForbidden, api.StatusCode(err))
	assert.EqualError(t, err, "Only the traveler can cancel this trip")
}

func TestTrips_GetMissing(t *testing.T) {
	env := loggedIn(t)

	_, err := env.client.Trips.Get(context.Background(), "trip-404")

	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))
	assert.EqualError(t, err, `trip "trip-404" not found`)
}

func TestRoutes(t *testing.T) {
	env := newEnv(t, newSandbox(t))
	ctx := context.Background()

	page, err := env.client.Routes.List(ctx, RouteFilter{PageSize: 2, Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "route-5", page.Items[0].ID)

	route, err := env.client.Routes.Get(ctx, "route-5")
	require.NoError(t, err)
	assert.Equal(t, page.Items[0], *route)
}
