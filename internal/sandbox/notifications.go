package sandbox

import (
	"net/http"
	"slices"

	"github.com/carryon-app/carryon/internal/jsonapi"
	"github.com/carryon-app/carryon/internal/models"
)

const typeNotificationCount = "notification-counts"

// notificationsFor returns the user's notifications, newest first.
func (s *Server) notificationsFor(userID string) []*notification {
	var out []*notification
	for _, id := range s.store.notificationIDs {
		if n := s.store.notifications[id]; n.userID == userID {
			out = append(out, n)
		}
	}
	slices.SortStableFunc(out, func(a, b *notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request, me caller) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	all := s.notificationsFor(me.userID)
	start, end := paginate(r, len(all))
	list := make([]jsonapi.Resource, 0, end-start)
	for _, n := range all[start:end] {
		list = append(list, s.store.notificationResource(n))
	}
	writeCollection(w, list, nil, len(all))
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request, me caller) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	unread := 0
	for _, n := range s.notificationsFor(me.userID) {
		if !n.Read {
			unread++
		}
	}
	writeResource(w, http.StatusOK, jsonapi.Resource{
		ID:         me.userID,
		Type:       typeNotificationCount,
		Attributes: attributes(map[string]int{"unread": unread}),
	}, nil)
}

// markRead marks the listed notifications read. Ids that are unknown or
// belong to someone else are ignored.
func (s *Server) markRead(w http.ResponseWriter, r *http.Request, me caller) {
	links, err := decodeIdentifiers(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	for _, link := range links {
		if link.Type != models.TypeNotification {
			continue
		}
		if n, ok := s.store.notifications[link.ID]; ok && n.userID == me.userID {
			n.Read = true
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request, me caller) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	for _, n := range s.notificationsFor(me.userID) {
		n.Read = true
	}
	w.WriteHeader(http.StatusNoContent)
}
