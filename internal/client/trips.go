package client

import (
	"context"
	"time"

	"github.com/carryon-app/carryon/internal/api"
	"github.com/carryon-app/carryon/internal/jsonapi"
	"github.com/carryon-app/carryon/internal/models"
)

var (
	listTripsEndpoint  = api.NewEndpoint(api.GET, "/api/v1/trips")
	getTripEndpoint    = api.NewEndpoint(api.GET, "/api/v1/trips/{id}")
	createTripEndpoint = api.NewEndpoint(api.POST, "/api/v1/trips")
	cancelTripEndpoint = api.NewEndpoint(api.POST, "/api/v1/trips/{id}/cancel")

	listRoutesEndpoint = api.NewEndpoint(api.GET, "/api/v1/routes")
	getRouteEndpoint   = api.NewEndpoint(api.GET, "/api/v1/routes/{id}")
)

type TripsClient struct {
	*base
}

type TripFilter struct {
	Status         models.TripStatus
	RouteID        string
	TravelerID     string
	DepartingAfter time.Time
	Page           int
	PageSize       int
}

func (f TripFilter) params() api.Params {
	filter := map[string]any{
		"status":   string(f.Status),
		"route":    f.RouteID,
		"traveler": f.TravelerID,
	}
	if !f.DepartingAfter.IsZero() {
		filter["departing_after"] = f.DepartingAfter
	}
	return api.Params{
		"filter":  filter,
		"page":    pageParams(f.Page, f.PageSize),
		"include": "route,traveler",
	}
}

type TripInput struct {
	RouteID     string    `json:"-" validate:"required"`
	DepartureAt time.Time `json:"departure_at" validate:"required"`
	ArrivalAt   time.Time `json:"arrival_at" validate:"required,gtfield=DepartureAt"`
	CapacityKg  float64   `json:"capacity_kg" validate:"gt=0"`
	Notes       string    `json:"notes,omitempty"`
}

// List returns trips matching f with their route and traveler attached.
func (c *TripsClient) List(ctx context.Context, f TripFilter) (Page[models.Trip], error) {
	doc, err := c.fetch(ctx, listTripsEndpoint, api.Request{Query: f.params()})
	if err != nil {
		return Page[models.Trip]{}, err
	}
	list, err := doc.Collection()
	if err != nil {
		return Page[models.Trip]{}, err
	}
	trips := make([]models.Trip, 0, len(list))
	for _, res := range list {
		trip, err := decodeTrip(doc, res)
		if err != nil {
			return Page[models.Trip]{}, err
		}
		trips = append(trips, trip)
	}
	return pageOf(trips, doc), nil
}

// Get returns one trip with its route, traveler and carried orders.
func (c *TripsClient) Get(ctx context.Context, id string) (*models.Trip, error) {
	query := api.Params{"include": "route,traveler,orders"}
	doc, err := c.fetch(ctx, getTripEndpoint.With(id), api.Request{Query: query})
	if err != nil {
		return nil, err
	}
	return singleTrip(doc)
}

func (c *TripsClient) Create(ctx context.Context, in TripInput) (*models.Trip, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	body := newPayload(models.TypeTrip, in).relate("route", models.TypeRoute, in.RouteID)
	doc, err := c.fetch(ctx, createTripEndpoint, api.Request{Body: body})
	if err != nil {
		return nil, err
	}
	return singleTrip(doc)
}

func (c *TripsClient) Cancel(ctx context.Context, id string) (*models.Trip, error) {
	doc, err := c.fetch(ctx, cancelTripEndpoint.With(id), api.Request{})
	if err != nil {
		return nil, err
	}
	return singleTrip(doc)
}

func singleTrip(doc *jsonapi.Document) (*models.Trip, error) {
	res, err := doc.Single()
	if err != nil {
		return nil, err
	}
	trip, err := decodeTrip(doc, res)
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func decodeTrip(doc *jsonapi.Document, res jsonapi.Resource) (models.Trip, error) {
	trip, err := models.From[models.Trip](res, models.TypeTrip)
	if err != nil {
		return trip, err
	}
	if trip.Route, err = related[models.Route](doc, res, "route", models.TypeRoute); err != nil {
		return trip, err
	}
	if trip.Traveler, err = related[models.User](doc, res, "traveler", models.TypeUser); err != nil {
		return trip, err
	}
	if trip.Orders, err = relatedAll[models.ShoppingOrder](doc, res, "orders", models.TypeOrder); err != nil {
		return trip, err
	}
	return trip, nil
}

// RoutesClient browses routes. Routes are public.
type RoutesClient struct {
	*base
}

type RouteFilter struct {
	Origin      string
	Destination string
	Page        int
	PageSize    int
}

func (c *RoutesClient) List(ctx context.Context, f RouteFilter) (Page[models.Route], error) {
	query := api.Params{
		"filter": map[string]any{
			"origin":      f.Origin,
			"destination": f.Destination,
		},
		"page": pageParams(f.Page, f.PageSize),
	}
	doc, err := c.fetchPublic(ctx, listRoutesEndpoint, api.Request{Query: query})
	if err != nil {
		return Page[models.Route]{}, err
	}
	list, err := doc.Collection()
	if err != nil {
		return Page[models.Route]{}, err
	}
	routes, err := models.FromAll[models.Route](list, models.TypeRoute)
	if err != nil {
		return Page[models.Route]{}, err
	}
	return pageOf(routes, doc), nil
}

func (c *RoutesClient) Get(ctx context.Context, id string) (*models.Route, error) {
	doc, err := c.fetchPublic(ctx, getRouteEndpoint.With(id), api.Request{})
	if err != nil {
		return nil, err
	}
	_, route, err := single[models.Route](doc, models.TypeRoute)
	if err != nil {
		return nil, err
	}
	return &route, nil
}
