package sandbox

import (
	"net/http"

	"github.com/carryon-app/carryon/internal/jsonapi"
	"github.com/carryon-app/carryon/internal/models"
)

func (s *Server) listUserReviews(w http.ResponseWriter, r *http.Request, me caller) {
	id := r.PathValue("id")

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	if _, ok := s.store.users[id]; !ok {
		writeNotFound(w, models.TypeUser, id)
		return
	}
	var list []jsonapi.Resource
	for _, rid := range s.store.reviewIDs {
		if rv := s.store.reviews[rid]; rv.subjectID == id {
			list = append(list, s.store.reviewResource(rv))
		}
	}
	writeCollection(w, list, s.store.include(list, includes(r)), len(list))
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request, me caller) {
	var in struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	p, err := decodePayload(r, models.TypeReview, &in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Rating < 1 || in.Rating > 5 {
		writeErrors(w, http.StatusUnprocessableEntity, []string{"Rating must be between 1 and 5"})
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	subjectID := p.relatedID("subject")
	if _, ok := s.store.users[subjectID]; !ok {
		writeNotFound(w, models.TypeUser, subjectID)
		return
	}
	if subjectID == me.userID {
		writeErrors(w, http.StatusUnprocessableEntity, []string{"You cannot review yourself"})
		return
	}

	rv := s.store.addReview(me.userID, subjectID, p.relatedID("order"), models.Review{
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: s.now().UTC(),
	})
	s.store.addNotification(subjectID, models.Notification{
		Kind:      "review_received",
		Title:     "You received a new review",
		CreatedAt: s.now().UTC(),
	})
	res := s.store.reviewResource(rv)
	writeResource(w, http.StatusCreated, res, s.store.include([]jsonapi.Resource{res}, []string{"author"}))
}
