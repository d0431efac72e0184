// Package models holds the domain types decoded from JSON:API resources.
package models

import (
	"fmt"
	"time"

	"github.com/carryon-app/carryon/internal/jsonapi"
)

// Resource types used by the backend.
const (
	TypeUser         = "users"
	TypeRoute        = "routes"
	TypeTrip         = "trips"
	TypeOrder        = "shopping-orders"
	TypeOrderItem    = "order-items"
	TypeQuote        = "quotes"
	TypeReview       = "reviews"
	TypeNotification = "notifications"
)

// Model is satisfied by a pointer to any model in this package.
type Model[T any] interface {
	*T
	SetID(string)
}

// From decodes res into a model of type typ. It fails if res is of another
// type.
func From[T any, P Model[T]](res jsonapi.Resource, typ string) (T, error) {
	var m T
	if res.Type != typ {
		return m, fmt.Errorf("expected %s resource, got %q", typ, res.Type)
	}
	if err := res.DecodeAttributes(&m); err != nil {
		return m, err
	}
	P(&m).SetID(res.ID)
	return m, nil
}

// FromAll decodes every resource in list.
func FromAll[T any, P Model[T]](list []jsonapi.Resource, typ string) ([]T, error) {
	out := make([]T, 0, len(list))
	for _, res := range list {
		m, err := From[T, P](res, typ)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Money is an amount in minor units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) String() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, m.Currency)
}

type User struct {
	ID        string    `json:"id" yaml:"id"`
	Email     string    `json:"email,omitempty" yaml:"email,omitempty"`
	FirstName string    `json:"first_name" yaml:"first_name"`
	LastName  string    `json:"last_name" yaml:"last_name"`
	Phone     string    `json:"phone,omitempty" yaml:"phone,omitempty"`
	Bio       string    `json:"bio,omitempty" yaml:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	Locale    string    `json:"locale,omitempty" yaml:"locale,omitempty"`
	Rating    float64   `json:"rating,omitempty" yaml:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func (u *User) SetID(id string) { u.ID = id }
func (u User) ResourceType() string { return TypeUser }
func (u User) ResourceID() string   { return u.ID }

// Name returns the display name.
func (u User) Name() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}

// Route is a city pair travellers fly between.
type Route struct {
	ID              string `json:"id" yaml:"id"`
	Origin          string `json:"origin" yaml:"origin"`
	Destination     string `json:"destination" yaml:"destination"`
	DurationMinutes int    `json:"duration_minutes,omitempty" yaml:"duration_minutes,omitempty"`
	ActiveTrips     int    `json:"active_trips" yaml:"active_trips"`
}

func (r *Route) SetID(id string) { r.ID = id }
func (r Route) ResourceType() string { return TypeRoute }
func (r Route) ResourceID() string   { return r.ID }

func (r Route) String() string { return r.Origin + " -> " + r.Destination }

type TripStatus string

const (
	TripScheduled TripStatus = "scheduled"
	TripInTransit TripStatus = "in_transit"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

// Trip is a traveller's journey with spare luggage capacity.
type Trip struct {
	ID          string     `json:"id" yaml:"id"`
	Status      TripStatus `json:"status" yaml:"status"`
	DepartureAt time.Time  `json:"departure_at" yaml:"departure_at"`
	ArrivalAt   time.Time  `json:"arrival_at" yaml:"arrival_at"`
	CapacityKg  float64    `json:"capacity_kg" yaml:"capacity_kg"`
	Notes       string     `json:"notes,omitempty" yaml:"notes,omitempty"`

	Route    *Route          `json:"route,omitempty" yaml:"route,omitempty"`
	Traveler *User           `json:"traveler,omitempty" yaml:"traveler,omitempty"`
	Orders   []ShoppingOrder `json:"orders,omitempty" yaml:"orders,omitempty"`
}

func (t *Trip) SetID(id string) { t.ID = id }
func (t Trip) ResourceType() string { return TypeTrip }
func (t Trip) ResourceID() string   { return t.ID }

type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderAccepted  OrderStatus = "accepted"
	OrderPurchased OrderStatus = "purchased"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// ShoppingOrder is a shopper's request for items to be bought abroad.
type ShoppingOrder struct {
	ID          string      `json:"id" yaml:"id"`
	Status      OrderStatus `json:"status" yaml:"status"`
	Total       Money       `json:"total" yaml:"total"`
	Destination string      `json:"destination" yaml:"destination"`
	DeliverBy   time.Time   `json:"deliver_by,omitzero" yaml:"deliver_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at"`

	Items   []OrderItem `json:"items,omitempty" yaml:"items,omitempty"`
	Shopper *User       `json:"shopper,omitempty" yaml:"shopper,omitempty"`
	Trip    *Trip       `json:"trip,omitempty" yaml:"trip,omitempty"`
	Quotes  []Quote     `json:"quotes,omitempty" yaml:"quotes,omitempty"`
}

func (o *ShoppingOrder) SetID(id string) { o.ID = id }
func (o ShoppingOrder) ResourceType() string { return TypeOrder }
func (o ShoppingOrder) ResourceID() string   { return o.ID }

type OrderItem struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Quantity int    `json:"quantity" yaml:"quantity"`
	Price    Money  `json:"price" yaml:"price"`
}

func (i *OrderItem) SetID(id string) { i.ID = id }
func (i OrderItem) ResourceType() string { return TypeOrderItem }
func (i OrderItem) ResourceID() string   { return i.ID }

type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteDeclined QuoteStatus = "declined"
	QuoteExpired  QuoteStatus = "expired"
)

// Quote is a traveller's offer to carry an order.
type Quote struct {
	ID        string      `json:"id" yaml:"id"`
	Status    QuoteStatus `json:"status" yaml:"status"`
	Fee       Money       `json:"fee" yaml:"fee"`
	Message   string      `json:"message,omitempty" yaml:"message,omitempty"`
	ExpiresAt time.Time   `json:"expires_at" yaml:"expires_at"`
}

func (q *Quote) SetID(id string) { q.ID = id }
func (q Quote) ResourceType() string { return TypeQuote }
func (q Quote) ResourceID() string   { return q.ID }

type Review struct {
	ID        string    `json:"id" yaml:"id"`
	Rating    int       `json:"rating" yaml:"rating"`
	Comment   string    `json:"comment,omitempty" yaml:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	Author *User `json:"author,omitempty" yaml:"author,omitempty"`
}

func (r *Review) SetID(id string) { r.ID = id }
func (r Review) ResourceType() string { return TypeReview }
func (r Review) ResourceID() string   { return r.ID }

type Notification struct {
	ID        string    `json:"id" yaml:"id"`
	Kind      string    `json:"kind" yaml:"kind"`
	Title     string    `json:"title" yaml:"title"`
	Body      string    `json:"body,omitempty" yaml:"body,omitempty"`
	Read      bool      `json:"read" yaml:"read"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func (n *Notification) SetID(id string) { n.ID = id }
func (n Notification) ResourceType() string { return TypeNotification }
func (n Notification) ResourceID() string   { return n.ID }
