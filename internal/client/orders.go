package client

import (
	"context"
	"net/http"
	"time"

	"github.com/carryon-app/carryon/internal/api"
	"github.com/carryon-app/carryon/internal/jsonapi"
	"github.com/carryon-app/carryon/internal/models"
)

var (
	listOrdersEndpoint   = api.NewEndpoint(api.GET, "/api/v1/shopping-orders")
	getOrderEndpoint     = api.NewEndpoint(api.GET, "/api/v1/shopping-orders/{id}")
	createOrderEndpoint  = api.NewEndpoint(api.POST, "/api/v1/shopping-orders")
	cancelOrderEndpoint  = api.NewEndpoint(api.POST, "/api/v1/shopping-orders/{id}/cancel")
	orderReceiptEndpoint = api.NewEndpoint(api.GET, "/api/v1/shopping-orders/{id}/receipt")

	listOrderQuotesEndpoint = api.NewEndpoint(api.GET, "/api/v1/shopping-orders/{id}/quotes")
	createQuoteEndpoint     = api.NewEndpoint(api.POST, "/api/v1/quotes")
	acceptQuoteEndpoint     = api.NewEndpoint(api.POST, "/api/v1/quotes/{id}/accept")
	declineQuoteEndpoint    = api.NewEndpoint(api.POST, "/api/v1/quotes/{id}/decline")
)

// OrdersClient manages shopping orders.
type OrdersClient struct {
	*base
}

type OrderFilter struct {
	Status models.OrderStatus
	// Role is "shopper" for orders placed by the user or "traveler" for
	// orders the user is carrying.
	Role     string `validate:"omitempty,oneof=shopper traveler"`
	Page     int
	PageSize int
}

type OrderItemInput struct {
	Name     string       `json:"name" validate:"required"`
	URL      string       `json:"url,omitempty" validate:"omitempty,url"`
	Quantity int          `json:"quantity" validate:"gte=1"`
	Price    models.Money `json:"price"`
}

type OrderInput struct {
	Destination string           `json:"destination" validate:"required"`
	DeliverBy   time.Time        `json:"deliver_by,omitzero"`
	Items       []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	TripID      string           `json:"-"`
}

func (c *OrdersClient) List(ctx context.Context, f OrderFilter) (Page[models.ShoppingOrder], error) {
	if err := validate.Struct(f); err != nil {
		return Page[models.ShoppingOrder]{}, err
	}
	query := api.Params{
		"filter": map[string]any{
			"status": string(f.Status),
			"role":   f.Role,
		},
		"page":    pageParams(f.Page, f.PageSize),
		"include": "shopper,trip",
	}
	doc, err := c.fetch(ctx, listOrdersEndpoint, api.Request{Query: query})
	if err != nil {
		return Page[models.ShoppingOrder]{}, err
	}
	list, err := doc.Collection()
	if err != nil {
		return Page[models.ShoppingOrder]{}, err
	}
	orders := make([]models.ShoppingOrder, 0, len(list))
	for _, res := range list {
		order, err := decodeOrder(doc, res)
		if err != nil {
			return Page[models.ShoppingOrder]{}, err
		}
		orders = append(orders, order)
	}
	return pageOf(orders, doc), nil
}

// Get returns one order with its items, shopper, trip and quotes.
func (c *OrdersClient) Get(ctx context.Context, id string) (*models.ShoppingOrder, error) {
	query := api.Params{"include": "items,shopper,trip,quotes"}
	doc, err := c.fetch(ctx, getOrderEndpoint.With(id), api.Request{Query: query})
	if err != nil {
		return nil, err
	}
	return singleOrder(doc)
}

func (c *OrdersClient) Create(ctx context.Context, in OrderInput) (*models.ShoppingOrder, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	body := newPayload(models.TypeOrder, in).relate("trip", models.TypeTrip, in.TripID)
	doc, err := c.fetch(ctx, createOrderEndpoint, api.Request{Body: body})
	if err != nil {
		return nil, err
	}
	return singleOrder(doc)
}

func (c *OrdersClient) Cancel(ctx context.Context, id string) (*models.ShoppingOrder, error) {
	doc, err := c.fetch(ctx, cancelOrderEndpoint.With(id), api.Request{})
	if err != nil {
		return nil, err
	}
	return singleOrder(doc)
}

// Receipt downloads the order receipt as raw bytes.
func (c *OrdersClient) Receipt(ctx context.Context, id string) ([]byte, error) {
	req := api.Request{Header: http.Header{"Accept": {"application/octet-stream"}}}
	if err := c.authorize(ctx, &req); err != nil {
		return nil, err
	}
	env, err := api.Execute[[]byte](ctx, c.api, orderReceiptEndpoint.With(id), req)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func singleOrder(doc *jsonapi.Document) (*models.ShoppingOrder, error) {
	res, err := doc.Single()
	if err != nil {
		return nil, err
	}
	order, err := decodeOrder(doc, res)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func decodeOrder(doc *jsonapi.Document, res jsonapi.Resource) (models.ShoppingOrder, error) {
	order, err := models.From[models.ShoppingOrder](res, models.TypeOrder)
	if err != nil {
		return order, err
	}
	if order.Items, err = relatedAll[models.OrderItem](doc, res, "items", models.TypeOrderItem); err != nil {
		return order, err
	}
	if order.Shopper, err = related[models.User](doc, res, "shopper", models.TypeUser); err != nil {
		return order, err
	}
	if order.Trip, err = related[models.Trip](doc, res, "trip", models.TypeTrip); err != nil {
		return order, err
	}
	if order.Quotes, err = relatedAll[models.Quote](doc, res, "quotes", models.TypeQuote); err != nil {
		return order, err
	}
	return order, nil
}

// QuotesClient handles travellers' offers on orders.
type QuotesClient struct {
	*base
}

type QuoteInput struct {
	OrderID string       `json:"-" validate:"required"`
	TripID  string       `json:"-" validate:"required"`
	Fee     models.Money `json:"fee"`
	Message string       `json:"message,omitempty" validate:"max=1000"`
}

func (c *QuotesClient) ListForOrder(ctx context.Context, orderID string) ([]models.Quote, error) {
	doc, err := c.fetch(ctx, listOrderQuotesEndpoint.With(orderID), api.Request{})
	if err != nil {
		return nil, err
	}
	list, err := doc.Collection()
	if err != nil {
		return nil, err
	}
	return models.FromAll[models.Quote](list, models.TypeQuote)
}

func (c *QuotesClient) Create(ctx context.Context, in QuoteInput) (*models.Quote, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	body := newPayload(models.TypeQuote, in).
		relate("order", models.TypeOrder, in.OrderID).
		relate("trip", models.TypeTrip, in.TripID)
	return c.quote(ctx, createQuoteEndpoint, api.Request{Body: body})
}

func (c *QuotesClient) Accept(ctx context.Context, id string) (*models.Quote, error) {
	return c.quote(ctx, acceptQuoteEndpoint.With(id), api.Request{})
}

func (c *QuotesClient) Decline(ctx context.Context, id string) (*models.Quote, error) {
	return c.quote(ctx, declineQuoteEndpoint.With(id), api.Request{})
}

func (c *QuotesClient) quote(ctx context.Context, ep api.Endpoint, req api.Request) (*models.Quote, error) {
	doc, err := c.fetch(ctx, ep, req)
	if err != nil {
		return nil, err
	}
	_, q, err := single[models.Quote](doc, models.TypeQuote)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
