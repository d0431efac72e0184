package sandbox

import (
	"net/http"
	"strings"
	"time"

	"github.com/carryon-app/carryon/internal/jsonapi"
	"github.com/carryon-app/carryon/internal/models"
)

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin := strings.ToLower(q.Get("filter[origin]"))
	destination := strings.ToLower(q.Get("filter[destination]"))

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	var list []jsonapi.Resource
	for _, id := range s.store.routeIDs {
		route := s.store.routes[id]
		if origin != "" && !strings.Contains(strings.ToLower(route.Origin), origin) {
			continue
		}
		if destination != "" && !strings.Contains(strings.ToLower(route.Destination), destination) {
			continue
		}
		list = append(list, s.store.routeResource(route))
	}
	start, end := paginate(r, len(list))
	writeCollection(w, list[start:end], nil, len(list))
}

func (s *Server) getRoute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	route, ok := s.store.routes[id]
	if !ok {
		writeNotFound(w, models.TypeRoute, id)
		return
	}
	writeResource(w, http.StatusOK, s.store.routeResource(route), nil)
}

func (s *Server) listTrips(w http.ResponseWriter, r *http.Request, me caller) {
	q := r.URL.Query()
	status := q.Get("filter[status]")
	routeID := q.Get("filter[route]")
	travelerID := q.Get("filter[traveler]")
	var after time.Time
	if raw := q.Get("filter[departing_after]"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid departing_after filter")
			return
		}
		after = t
	}

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	var list []jsonapi.Resource
	for _, id := range s.store.tripIDs {
		t := s.store.trips[id]
		switch {
		case status != "" && string(t.Status) != status:
			continue
		case routeID != "" && t.routeID != routeID:
			continue
		case travelerID != "" && t.travelerID != travelerID:
			continue
		case !after.IsZero() && !t.DepartureAt.After(after):
			continue
		}
		list = append(list, s.store.tripResource(t))
	}
	start, end := paginate(r, len(list))
	page := list[start:end]
	writeCollection(w, page, s.store.include(page, includes(r)), len(list))
}

func (s *Server) getTrip(w http.ResponseWriter, r *http.Request, me caller) {
	id := r.PathValue("id")

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	t, ok := s.store.trips[id]
	if !ok {
		writeNotFound(w, models.TypeTrip, id)
		return
	}
	res := s.store.tripResource(t)
	writeResource(w, http.StatusOK, res, s.store.include([]jsonapi.Resource{res}, includes(r)))
}

func (s *Server) createTrip(w http.ResponseWriter, r *http.Request, me caller) {
	var in struct {
		DepartureAt time.Time `json:"departure_at"`
		ArrivalAt   time.Time `json:"arrival_at"`
		CapacityKg  float64   `json:"capacity_kg"`
		Notes       string    `json:"notes"`
	}
	p, err := decodePayload(r, models.TypeTrip, &in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	routeID := p.relatedID("route")
	var problems []string
	if _, ok := s.store.routes[routeID]; !ok {
		problems = append(problems, "Route is required")
	}
	if in.DepartureAt.IsZero() {
		problems = append(problems, "Departure time is required")
	}
	if !in.ArrivalAt.After(in.DepartureAt) {
		problems = append(problems, "Arrival must be after departure")
	}
	if in.CapacityKg <= 0 {
		problems = append(problems, "Capacity must be greater than zero")
	}
	if len(problems) > 0 {
		writeErrors(w, http.StatusUnprocessableEntity, problems)
		return
	}

	t := s.store.addTrip(me.userID, routeID, models.Trip{
		Status:      models.TripScheduled,
		DepartureAt: in.DepartureAt.UTC(),
		ArrivalAt:   in.ArrivalAt.UTC(),
		CapacityKg:  in.CapacityKg,
		Notes:       in.Notes,
	})
	res := s.store.tripResource(t)
	writeResource(w, http.StatusCreated, res, s.store.include([]jsonapi.Resource{res}, []string{"route", "traveler"}))
}

func (s *Server) cancelTrip(w http.ResponseWriter, r *http.Request, me caller) {
	id := r.PathValue("id")

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	t, ok := s.store.trips[id]
	if !ok {
		writeNotFound(w, models.TypeTrip, id)
		return
	}
	if t.travelerID != me.userID {
		writeError(w, http.StatusForbidden, "Only the traveler can cancel this trip")
		return
	}
	if t.Status != models.TripScheduled {
		writeError(w, http.StatusConflict, "Trip can no longer be cancelled")
		return
	}

	t.Status = models.TripCancelled
	if route, ok := s.store.routes[t.routeID]; ok && route.ActiveTrips > 0 {
		route.ActiveTrips--
	}
	for _, o := range s.store.ordersOnTrip(t.ID) {
		o.tripID = ""
		o.Status = models.OrderOpen
		s.store.addNotification(o.shopperID, models.Notification{
			Kind:      "trip_cancelled",
			Title:     "Your traveller cancelled their trip",
			Body:      "Order " + o.ID + " is open for new quotes.",
			CreatedAt: s.now().UTC(),
		})
	}
	res := s.store.tripResource(t)
	writeResource(w, http.StatusOK, res, s.store.include([]jsonapi.Resource{res}, []string{"route", "traveler"}))
}
