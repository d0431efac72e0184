// Package sandbox is an in-memory carryon backend for development and
// end-to-end tests. It speaks the same JSON:API dialect as the real service
// and seeds itself with deterministic fake data.
package sandbox

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carryon-app/carryon/internal/logging"
)

// Config controls seeding and token lifetimes.
type Config struct {
	Seed      int64
	AccessTTL time.Duration
	// Secret signs access tokens. A random secret is used when empty.
	Secret []byte
	Now    func() time.Time
}

// DefaultConfig returns the settings used by `carryon sandbox`.
func DefaultConfig() Config {
	return Config{
		Seed:      42,
		AccessTTL: 15 * time.Minute,
		Now:       time.Now,
	}
}

// Server serves the sandbox API.
type Server struct {
	store    *Store
	tokens   *tokenIssuer
	logger   *logging.Logger
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	handler  http.Handler
	now      func() time.Time
}

// New seeds a Server from cfg.
func New(cfg Config, logger *logging.Logger) (*Server, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultConfig().AccessTTL
	}
	if logger == nil {
		logger = logging.Discard()
	}

	reg := prometheus.NewRegistry()
	s := &Server{
		store:    newStore(cfg.Now),
		tokens:   newTokenIssuer(cfg.Secret, cfg.AccessTTL, cfg.Now),
		logger:   logger,
		registry: reg,
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "carryon_sandbox_http_requests_total",
			Help: "Total number of sandbox HTTP requests",
		}, []string{"route", "method", "status"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carryon_sandbox_http_request_duration_seconds",
			Help:    "Sandbox HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		now: cfg.Now,
	}
	if err := s.store.seed(cfg.Seed); err != nil {
		return nil, err
	}
	s.handler = s.requestID(s.instrument(s.routes()))
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Registry returns the registry backing /metrics.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Authentication (public)
	mux.HandleFunc("POST /api/v1/auth/login", s.login)
	mux.HandleFunc("POST /api/v1/auth/register", s.register)
	mux.HandleFunc("POST /api/v1/auth/refresh", s.refresh)
	mux.HandleFunc("POST /api/v1/auth/oauth/{provider}", s.oauth)
	mux.HandleFunc("POST /api/v1/auth/password/reset", s.passwordReset)
	mux.HandleFunc("DELETE /api/v1/auth/session", s.authed(s.logout))

	// Profile
	mux.HandleFunc("GET /api/v1/profile", s.authed(s.getProfile))
	mux.HandleFunc("PATCH /api/v1/profile", s.authed(s.updateProfile))
	mux.HandleFunc("DELETE /api/v1/profile", s.authed(s.deleteProfile))
	mux.HandleFunc("POST /api/v1/profile/avatar", s.authed(s.uploadAvatar))

	// Routes (public)
	mux.HandleFunc("GET /api/v1/routes", s.listRoutes)
	mux.HandleFunc("GET /api/v1/routes/{id}", s.getRoute)

	// Trips
	mux.HandleFunc("GET /api/v1/trips", s.authed(s.listTrips))
	mux.HandleFunc("POST /api/v1/trips", s.authed(s.createTrip))
	mux.HandleFunc("GET /api/v1/trips/{id}", s.authed(s.getTrip))
	mux.HandleFunc("POST /api/v1/trips/{id}/cancel", s.authed(s.cancelTrip))

	// Shopping orders
	mux.HandleFunc("GET /api/v1/shopping-orders", s.authed(s.listOrders))
	mux.HandleFunc("POST /api/v1/shopping-orders", s.authed(s.createOrder))
	mux.HandleFunc("GET /api/v1/shopping-orders/{id}", s.authed(s.getOrder))
	mux.HandleFunc("POST /api/v1/shopping-orders/{id}/cancel", s.authed(s.cancelOrder))
	mux.HandleFunc("GET /api/v1/shopping-orders/{id}/receipt", s.authed(s.orderReceipt))
	mux.HandleFunc("GET /api/v1/shopping-orders/{id}/quotes", s.authed(s.listOrderQuotes))

	// Quotes
	mux.HandleFunc("POST /api/v1/quotes", s.authed(s.createQuote))
	mux.HandleFunc("POST /api/v1/quotes/{id}/accept", s.authed(s.acceptQuote))
	mux.HandleFunc("POST /api/v1/quotes/{id}/decline", s.authed(s.declineQuote))

	// Reviews
	mux.HandleFunc("GET /api/v1/users/{id}/reviews", s.authed(s.listUserReviews))
	mux.HandleFunc("POST /api/v1/reviews", s.authed(s.createReview))

	// Notifications
	mux.HandleFunc("GET /api/v1/notifications", s.authed(s.listNotifications))
	mux.HandleFunc("GET /api/v1/notifications/unread-count", s.authed(s.unreadCount))
	mux.HandleFunc("PATCH /api/v1/notifications/read", s.authed(s.markRead))
	mux.HandleFunc("POST /api/v1/notifications/read-all", s.authed(s.markAllRead))

	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return mux
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestID propagates or generates X-Request-ID and stores it in the
// request context for logging.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records metrics and an access log line. It must wrap the mux
// directly so the matched pattern is visible after the call.
func (s *Server) instrument(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		s.duration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())

		s.logger.InfoContext(r.Context(), "Sandbox request",
			logging.Method(r.Method),
			logging.URL(r.URL.RequestURI()),
			logging.Endpoint(route),
			logging.Status(rec.status),
			logging.Duration(elapsed.Milliseconds()),
		)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "Starting sandbox server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.InfoContext(context.Background(), "Shutting down sandbox server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
