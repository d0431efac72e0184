package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"

	"github.com/carryon-app/carryon/internal/jsonapi"
	"github.com/carryon-app/carryon/internal/models"
)

// Credentials of the seeded demo account.
const (
	DemoEmail    = "demo@carryon.test"
	DemoPassword = "carryon-demo"
)

var (
	errNotFound  = errors.New("not found")
	errForbidden = errors.New("forbidden")
	errConflict  = errors.New("conflict")
)

type user struct {
	models.User
	passwordHash []byte
}

type trip struct {
	models.Trip
	routeID    string
	travelerID string
}

type order struct {
	models.ShoppingOrder
	shopperID string
	tripID    string
	itemIDs   []string
}

type quote struct {
	models.Quote
	orderID    string
	tripID     string
	travelerID string
}

type review struct {
	models.Review
	authorID  string
	subjectID string
	orderID   string
}

type notification struct {
	models.Notification
	userID string
}

// Store is the sandbox's in-memory dataset. Collections keep insertion order.
type Store struct {
	mu  sync.RWMutex
	seq map[string]int
	now func() time.Time

	users   map[string]*user
	byEmail map[string]string
	userIDs []string

	routes   map[string]*models.Route
	routeIDs []string

	trips   map[string]*trip
	tripIDs []string

	orders   map[string]*order
	orderIDs []string
	items    map[string]*models.OrderItem

	quotes   map[string]*quote
	quoteIDs []string

	reviews   map[string]*review
	reviewIDs []string

	notifications   map[string]*notification
	notificationIDs []string

	refreshTokens map[string]string
	revoked       map[string]bool
}

func newStore(now func() time.Time) *Store {
	return &Store{
		seq:           make(map[string]int),
		now:           now,
		users:         make(map[string]*user),
		byEmail:       make(map[string]string),
		routes:        make(map[string]*models.Route),
		trips:         make(map[string]*trip),
		orders:        make(map[string]*order),
		items:         make(map[string]*models.OrderItem),
		quotes:        make(map[string]*quote),
		reviews:       make(map[string]*review),
		notifications: make(map[string]*notification),
		refreshTokens: make(map[string]string),
		revoked:       make(map[string]bool),
	}
}

func (s *Store) nextID(prefix string) string {
	s.seq[prefix]++
	return fmt.Sprintf("%s-%d", prefix, s.seq[prefix])
}

// seed fills the store with deterministic fake data for seed.
func (s *Store) seed(seed int64) error {
	f := gofakeit.New(seed)
	now := s.now().UTC().Truncate(time.Second)

	demo, err := s.addUser(models.User{
		Email:     DemoEmail,
		FirstName: "Demo",
		LastName:  "Traveller",
		Locale:    "en",
		Rating:    4.8,
		CreatedAt: now.AddDate(-1, 0, 0),
	}, DemoPassword)
	if err != nil {
		return err
	}

	others := make([]*user, 0, 7)
	for range 7 {
		u, err := s.addUser(models.User{
			Email:     strings.ToLower(f.Email()),
			FirstName: f.FirstName(),
			LastName:  f.LastName(),
			Phone:     f.Phone(),
			Bio:       f.Sentence(8),
			Locale:    f.RandomString([]string{"en", "fr", "es", "de"}),
			Rating:    float64(f.Number(30, 50)) / 10,
			CreatedAt: now.AddDate(0, -f.Number(1, 24), 0),
		}, f.Password(true, true, true, false, false, 14))
		if err != nil {
			return err
		}
		others = append(others, u)
	}

	for range 6 {
		origin := f.City()
		destination := f.City()
		for destination == origin {
			destination = f.City()
		}
		id := s.nextID("route")
		s.routes[id] = &models.Route{
			ID:              id,
			Origin:          origin,
			Destination:     destination,
			DurationMinutes: f.Number(60, 900),
		}
		s.routeIDs = append(s.routeIDs, id)
	}

	travelers := append([]*user{demo}, others[:3]...)
	for i := range 10 {
		traveler := travelers[i%len(travelers)]
		departure := now.Add(time.Duration(f.Number(1, 60*24)) * time.Hour)
		status := models.TripScheduled
		if i == 9 {
			status = models.TripCompleted
			departure = now.AddDate(0, 0, -10)
		}
		s.addTrip(traveler.ID, s.routeIDs[f.Number(0, len(s.routeIDs)-1)], models.Trip{
			Status:      status,
			DepartureAt: departure,
			ArrivalAt:   departure.Add(time.Duration(f.Number(2, 20)) * time.Hour),
			CapacityKg:  float64(f.Number(2, 23)),
			Notes:       f.Sentence(6),
		})
	}

	shoppers := append([]*user{demo}, others[3:]...)
	for i := range 10 {
		shopper := shoppers[i%len(shoppers)]
		items := make([]models.OrderItem, 0, 3)
		for range f.Number(1, 3) {
			items = append(items, models.OrderItem{
				Name:     f.ProductName(),
				URL:      f.URL(),
				Quantity: f.Number(1, 3),
				Price:    models.Money{Amount: int64(f.Number(500, 45000)), Currency: "EUR"},
			})
		}
		o := s.addOrder(shopper.ID, "", models.ShoppingOrder{
			Status:      models.OrderOpen,
			Destination: f.City(),
			DeliverBy:   now.AddDate(0, 0, f.Number(7, 60)),
			CreatedAt:   now.AddDate(0, 0, -f.Number(1, 30)),
		}, items)

		// A couple of quotes from travellers other than the shopper.
		for _, tid := range s.tripIDs {
			if len(s.quotesFor(o.ID)) == 2 {
				break
			}
			t := s.trips[tid]
			if t.travelerID == shopper.ID || t.Status != models.TripScheduled || !f.Bool() {
				continue
			}
			s.addQuote(o.ID, t.ID, t.travelerID, models.Quote{
				Status:    models.QuotePending,
				Fee:       models.Money{Amount: int64(f.Number(500, 5000)), Currency: "EUR"},
				Message:   f.Sentence(10),
				ExpiresAt: now.AddDate(0, 0, 7),
			})
		}
	}

	all := append([]*user{demo}, others...)
	for _, subject := range all {
		for range f.Number(1, 3) {
			author := all[f.Number(0, len(all)-1)]
			if author.ID == subject.ID {
				continue
			}
			s.addReview(author.ID, subject.ID, "", models.Review{
				Rating:    f.Number(3, 5),
				Comment:   f.Sentence(12),
				CreatedAt: now.AddDate(0, 0, -f.Number(1, 200)),
			})
		}
	}

	kinds := []string{"quote_received", "order_update", "trip_reminder", "review_received"}
	for i := range 5 {
		s.addNotification(demo.ID, models.Notification{
			Kind:      kinds[i%len(kinds)],
			Title:     f.Sentence(4),
			Body:      f.Sentence(12),
			Read:      i >= 3,
			CreatedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	return nil
}

func (s *Store) addUser(u models.User, password string) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u.ID = s.nextID("user")
	rec := &user{User: u, passwordHash: hash}
	s.users[u.ID] = rec
	s.byEmail[strings.ToLower(u.Email)] = u.ID
	s.userIDs = append(s.userIDs, u.ID)
	return rec, nil
}

func (s *Store) addTrip(travelerID, routeID string, t models.Trip) *trip {
	t.ID = s.nextID("trip")
	rec := &trip{Trip: t, routeID: routeID, travelerID: travelerID}
	s.trips[t.ID] = rec
	s.tripIDs = append(s.tripIDs, t.ID)
	if r, ok := s.routes[routeID]; ok && t.Status == models.TripScheduled {
		r.ActiveTrips++
	}
	return rec
}

func (s *Store) addOrder(shopperID, tripID string, o models.ShoppingOrder, items []models.OrderItem) *order {
	o.ID = s.nextID("order")
	rec := &order{ShoppingOrder: o, shopperID: shopperID, tripID: tripID}
	for _, item := range items {
		item.ID = s.nextID("item")
		it := item
		s.items[item.ID] = &it
		rec.itemIDs = append(rec.itemIDs, item.ID)
		rec.Total.Amount += item.Price.Amount * int64(item.Quantity)
		rec.Total.Currency = item.Price.Currency
	}
	s.orders[o.ID] = rec
	s.orderIDs = append(s.orderIDs, o.ID)
	return rec
}

func (s *Store) addQuote(orderID, tripID, travelerID string, q models.Quote) *quote {
	q.ID = s.nextID("quote")
	rec := &quote{Quote: q, orderID: orderID, tripID: tripID, travelerID: travelerID}
	s.quotes[q.ID] = rec
	s.quoteIDs = append(s.quoteIDs, q.ID)
	return rec
}

func (s *Store) addReview(authorID, subjectID, orderID string, r models.Review) *review {
	r.ID = s.nextID("review")
	rec := &review{Review: r, authorID: authorID, subjectID: subjectID, orderID: orderID}
	s.reviews[r.ID] = rec
	s.reviewIDs = append(s.reviewIDs, r.ID)
	return rec
}

func (s *Store) addNotification(userID string, n models.Notification) *notification {
	n.ID = s.nextID("notification")
	rec := &notification{Notification: n, userID: userID}
	s.notifications[n.ID] = rec
	s.notificationIDs = append(s.notificationIDs, n.ID)
	return rec
}

func (s *Store) quotesFor(orderID string) []*quote {
	var out []*quote
	for _, id := range s.quoteIDs {
		if q := s.quotes[id]; q.orderID == orderID {
			out = append(out, q)
		}
	}
	return out
}

func (s *Store) ordersOnTrip(tripID string) []*order {
	var out []*order
	for _, id := range s.orderIDs {
		if o := s.orders[id]; o.tripID == tripID {
			out = append(out, o)
		}
	}
	return out
}

// visibleTo reports whether userID is the order's shopper or the traveller
// carrying it.
func (s *Store) visibleTo(o *order, userID string) bool {
	if o.shopperID == userID {
		return true
	}
	if t, ok := s.trips[o.tripID]; ok && t.travelerID == userID {
		return true
	}
	for _, q := range s.quotesFor(o.ID) {
		if q.travelerID == userID {
			return true
		}
	}
	return false
}

// attributes renders v as a JSON:API attributes object. The id member is
// dropped since it lives on the resource object.
func attributes(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	delete(m, "id")
	out, _ := json.Marshal(m)
	return out
}

func toOne(typ, id string) jsonapi.Relationship {
	if id == "" {
		return jsonapi.Relationship{ToOne: true}
	}
	return jsonapi.Relationship{ToOne: true, Data: []jsonapi.Linkage{{ID: id, Type: typ}}}
}

func toMany(typ string, ids ...string) jsonapi.Relationship {
	rel := jsonapi.Relationship{Data: make([]jsonapi.Linkage, 0, len(ids))}
	for _, id := range ids {
		rel.Data = append(rel.Data, jsonapi.Linkage{ID: id, Type: typ})
	}
	return rel
}

func (s *Store) userResource(u *user) jsonapi.Resource {
	return jsonapi.Resource{ID: u.ID, Type: models.TypeUser, Attributes: attributes(u.User)}
}

func (s *Store) routeResource(r *models.Route) jsonapi.Resource {
	return jsonapi.Resource{ID: r.ID, Type: models.TypeRoute, Attributes: attributes(r)}
}

func (s *Store) tripResource(t *trip) jsonapi.Resource {
	var orderIDs []string
	for _, o := range s.ordersOnTrip(t.ID) {
		orderIDs = append(orderIDs, o.ID)
	}
	return jsonapi.Resource{
		ID:         t.ID,
		Type:       models.TypeTrip,
		Attributes: attributes(t.Trip),
		Relationships: map[string]jsonapi.Relationship{
			"route":    toOne(models.TypeRoute, t.routeID),
			"traveler": toOne(models.TypeUser, t.travelerID),
			"orders":   toMany(models.TypeOrder, orderIDs...),
		},
	}
}

func (s *Store) orderResource(o *order) jsonapi.Resource {
	var quoteIDs []string
	for _, q := range s.quotesFor(o.ID) {
		quoteIDs = append(quoteIDs, q.ID)
	}
	return jsonapi.Resource{
		ID:         o.ID,
		Type:       models.TypeOrder,
		Attributes: attributes(o.ShoppingOrder),
		Relationships: map[string]jsonapi.Relationship{
			"items":   toMany(models.TypeOrderItem, o.itemIDs...),
			"shopper": toOne(models.TypeUser, o.shopperID),
			"trip":    toOne(models.TypeTrip, o.tripID),
			"quotes":  toMany(models.TypeQuote, quoteIDs...),
		},
	}
}

func (s *Store) itemResource(i *models.OrderItem) jsonapi.Resource {
	return jsonapi.Resource{ID: i.ID, Type: models.TypeOrderItem, Attributes: attributes(i)}
}

func (s *Store) quoteResource(q *quote) jsonapi.Resource {
	return jsonapi.Resource{
		ID:         q.ID,
		Type:       models.TypeQuote,
		Attributes: attributes(q.Quote),
		Relationships: map[string]jsonapi.Relationship{
			"order":    toOne(models.TypeOrder, q.orderID),
			"trip":     toOne(models.TypeTrip, q.tripID),
			"traveler": toOne(models.TypeUser, q.travelerID),
		},
	}
}

func (s *Store) reviewResource(r *review) jsonapi.Resource {
	return jsonapi.Resource{
		ID:         r.ID,
		Type:       models.TypeReview,
		Attributes: attributes(r.Review),
		Relationships: map[string]jsonapi.Relationship{
			"author":  toOne(models.TypeUser, r.authorID),
			"subject": toOne(models.TypeUser, r.subjectID),
		},
	}
}

func (s *Store) notificationResource(n *notification) jsonapi.Resource {
	return jsonapi.Resource{ID: n.ID, Type: models.TypeNotification, Attributes: attributes(n.Notification)}
}

// lookup renders the resource identified by (typ, id).
func (s *Store) lookup(typ, id string) (jsonapi.Resource, bool) {
	switch typ {
	case models.TypeUser:
		if u, ok := s.users[id]; ok {
			return s.userResource(u), true
		}
	case models.TypeRoute:
		if r, ok := s.routes[id]; ok {
			return s.routeResource(r), true
		}
	case models.TypeTrip:
		if t, ok := s.trips[id]; ok {
			return s.tripResource(t), true
		}
	case models.TypeOrder:
		if o, ok := s.orders[id]; ok {
			return s.orderResource(o), true
		}
	case models.TypeOrderItem:
		if i, ok := s.items[id]; ok {
			return s.itemResource(i), true
		}
	case models.TypeQuote:
		if q, ok := s.quotes[id]; ok {
			return s.quoteResource(q), true
		}
	case models.TypeReview:
		if r, ok := s.reviews[id]; ok {
			return s.reviewResource(r), true
		}
	}
	return jsonapi.Resource{}, false
}

// include collects the resources linked from primary through the named
// relationships, each at most once and never repeating a primary resource.
func (s *Store) include(primary []jsonapi.Resource, names []string) []jsonapi.Resource {
	seen := make(map[jsonapi.Linkage]bool, len(primary))
	for _, res := range primary {
		seen[jsonapi.Linkage{ID: res.ID, Type: res.Type}] = true
	}

	included := make([]jsonapi.Resource, 0)
	for _, res := range primary {
		for _, name := range names {
			rel, ok := res.Relationship(name)
			if !ok {
				continue
			}
			for _, link := range rel.Data {
				if seen[link] {
					continue
				}
				seen[link] = true
				if found, ok := s.lookup(link.Type, link.ID); ok {
					included = append(included, found)
				}
			}
		}
	}
	return included
}
