package sandbox

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carryon-app/carryon/internal/jsonapi"
	"github.com/carryon-app/carryon/internal/models"
)

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request, me caller) {
	q := r.URL.Query()
	status := q.Get("filter[status]")
	role := q.Get("filter[role]")
	if role != "" && role != "shopper" && role != "traveler" {
		writeError(w, http.StatusBadRequest, "Invalid role filter")
		return
	}

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	var list []jsonapi.Resource
	for _, id := range s.store.orderIDs {
		o := s.store.orders[id]
		if status != "" && string(o.Status) != status {
			continue
		}
		var mine bool
		switch role {
		case "shopper":
			mine = o.shopperID == me.userID
		case "traveler":
			t, ok := s.store.trips[o.tripID]
			mine = ok && t.travelerID == me.userID
		default:
			mine = s.store.visibleTo(o, me.userID)
		}
		if mine {
			list = append(list, s.store.orderResource(o))
		}
	}
	start, end := paginate(r, len(list))
	page := list[start:end]
	writeCollection(w, page, s.store.include(page, includes(r)), len(list))
}

// visibleOrder looks up an order the caller may see. Orders belonging to
// others are reported as missing.
func (s *Server) visibleOrder(w http.ResponseWriter, id string, me caller) (*order, bool) {
	o, ok := s.store.orders[id]
	if !ok || !s.store.visibleTo(o, me.userID) {
		writeNotFound(w, models.TypeOrder, id)
		return nil, false
	}
	return o, true
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request, me caller) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	o, ok := s.visibleOrder(w, r.PathValue("id"), me)
	if !ok {
		return
	}
	res := s.store.orderResource(o)
	writeResource(w, http.StatusOK, res, s.store.include([]jsonapi.Resource{res}, includes(r)))
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request, me caller) {
	var in struct {
		Destination string             `json:"destination"`
		DeliverBy   time.Time          `json:"deliver_by"`
		Items       []models.OrderItem `json:"items"`
	}
	p, err := decodePayload(r, models.TypeOrder, &in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var problems []string
	if in.Destination == "" {
		problems = append(problems, "Destination is required")
	}
	if len(in.Items) == 0 {
		problems = append(problems, "At least one item is required")
	}
	for i, item := range in.Items {
		if item.Name == "" {
			problems = append(problems, fmt.Sprintf("Item %d name is required", i+1))
		}
		if item.Quantity < 1 {
			problems = append(problems, fmt.Sprintf("Item %d quantity must be at least 1", i+1))
		}
	}
	if len(problems) > 0 {
		writeErrors(w, http.StatusUnprocessableEntity, problems)
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	tripID := p.relatedID("trip")
	if tripID != "" {
		if _, ok := s.store.trips[tripID]; !ok {
			writeNotFound(w, models.TypeTrip, tripID)
			return
		}
	}
	o := s.store.addOrder(me.userID, tripID, models.ShoppingOrder{
		Status:      models.OrderOpen,
		Destination: in.Destination,
		DeliverBy:   in.DeliverBy.UTC(),
		CreatedAt:   s.now().UTC(),
	}, in.Items)
	res := s.store.orderResource(o)
	writeResource(w, http.StatusCreated, res, s.store.include([]jsonapi.Resource{res}, []string{"items", "shopper"}))
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request, me caller) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	o, ok := s.visibleOrder(w, r.PathValue("id"), me)
	if !ok {
		return
	}
	if o.shopperID != me.userID {
		writeError(w, http.StatusForbidden, "Only the shopper can cancel this order")
		return
	}
	if o.Status != models.OrderOpen && o.Status != models.OrderAccepted {
		writeError(w, http.StatusConflict, "Order can no longer be cancelled")
		return
	}
	o.Status = models.OrderCancelled
	for _, q := range s.store.quotesFor(o.ID) {
		if q.Status == models.QuotePending {
			q.Status = models.QuoteDeclined
		}
	}
	res := s.store.orderResource(o)
	writeResource(w, http.StatusOK, res, s.store.include([]jsonapi.Resource{res}, []string{"items"}))
}

func (s *Server) orderReceipt(w http.ResponseWriter, r *http.Request, me caller) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	o, ok := s.visibleOrder(w, r.PathValue("id"), me)
	if !ok {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%%PDF-1.4\n%% carryon receipt %s\n", o.ID)
	for _, id := range o.itemIDs {
		item := s.store.items[id]
		fmt.Fprintf(&b, "%dx %s %s\n", item.Quantity, item.Name, item.Price)
	}
	fmt.Fprintf(&b, "total %s\n%%%%EOF\n", o.Total)

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", o.ID+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) listOrderQuotes(w http.ResponseWriter, r *http.Request, me caller) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	o, ok := s.visibleOrder(w, r.PathValue("id"), me)
	if !ok {
		return
	}
	var list []jsonapi.Resource
	for _, q := range s.store.quotesFor(o.ID) {
		list = append(list, s.store.quoteResource(q))
	}
	writeCollection(w, list, s.store.include(list, includes(r)), len(list))
}

func (s *Server) createQuote(w http.ResponseWriter, r *http.Request, me caller) {
	var in struct {
		Fee     models.Money `json:"fee"`
		Message string       `json:"message"`
	}
	p, err := decodePayload(r, models.TypeQuote, &in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Fee.Amount <= 0 || in.Fee.Currency == "" {
		writeErrors(w, http.StatusUnprocessableEntity, []string{"Fee must be a positive amount with a currency"})
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	orderID, tripID := p.relatedID("order"), p.relatedID("trip")
	o, ok := s.store.orders[orderID]
	if !ok {
		writeNotFound(w, models.TypeOrder, orderID)
		return
	}
	t, ok := s.store.trips[tripID]
	if !ok {
		writeNotFound(w, models.TypeTrip, tripID)
		return
	}
	if t.travelerID != me.userID {
		writeError(w, http.StatusForbidden, "You can only quote with your own trips")
		return
	}
	if o.shopperID == me.userID {
		writeErrors(w, http.StatusUnprocessableEntity, []string{"You cannot quote on your own order"})
		return
	}
	if o.Status != models.OrderOpen {
		writeError(w, http.StatusConflict, "Order is not accepting quotes")
		return
	}

	q := s.store.addQuote(o.ID, t.ID, me.userID, models.Quote{
		Status:    models.QuotePending,
		Fee:       in.Fee,
		Message:   in.Message,
		ExpiresAt: s.now().UTC().AddDate(0, 0, 7),
	})
	s.store.addNotification(o.shopperID, models.Notification{
		Kind:      "quote_received",
		Title:     "New quote on your order",
		Body:      fmt.Sprintf("A traveller offered to carry order %s for %s.", o.ID, in.Fee),
		CreatedAt: s.now().UTC(),
	})
	writeResource(w, http.StatusCreated, s.store.quoteResource(q), nil)
}

// decideQuote loads a pending quote the caller, as shopper, may act on.
func (s *Server) decideQuote(w http.ResponseWriter, r *http.Request, me caller) (*quote, *order, bool) {
	id := r.PathValue("id")
	q, ok := s.store.quotes[id]
	if !ok {
		writeNotFound(w, models.TypeQuote, id)
		return nil, nil, false
	}
	o := s.store.orders[q.orderID]
	if o == nil || o.shopperID != me.userID {
		writeError(w, http.StatusForbidden, "Only the shopper can respond to this quote")
		return nil, nil, false
	}
	if q.Status != models.QuotePending {
		writeError(w, http.StatusConflict, "Quote has already been answered")
		return nil, nil, false
	}
	return q, o, true
}

func (s *Server) acceptQuote(w http.ResponseWriter, r *http.Request, me caller) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	q, o, ok := s.decideQuote(w, r, me)
	if !ok {
		return
	}
	q.Status = models.QuoteAccepted
	for _, other := range s.store.quotesFor(o.ID) {
		if other.ID != q.ID && other.Status == models.QuotePending {
			other.Status = models.QuoteDeclined
		}
	}
	o.Status = models.OrderAccepted
	o.tripID = q.tripID
	s.store.addNotification(q.travelerID, models.Notification{
		Kind:      "quote_accepted",
		Title:     "Your quote was accepted",
		Body:      "You are now carrying order " + o.ID + ".",
		CreatedAt: s.now().UTC(),
	})
	writeResource(w, http.StatusOK, s.store.quoteResource(q), nil)
}

func (s *Server) declineQuote(w http.ResponseWriter, r *http.Request, me caller) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	q, _, ok := s.decideQuote(w, r, me)
	if !ok {
		return
	}
	q.Status = models.QuoteDeclined
	writeResource(w, http.StatusOK, s.store.quoteResource(q), nil)
}
