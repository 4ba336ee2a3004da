package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/dispatch"
	"github.com/iamjameskeane/realpolitik-sub000/internal/handler"
	"github.com/iamjameskeane/realpolitik-sub000/internal/middleware"
	"github.com/iamjameskeane/realpolitik-sub000/internal/push"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

// Stores bundles one storage backend's implementations. main builds it from
// either the relational or the key-value backend; the server never knows
// which.
type Stores struct {
	Subscriptions store.SubscriptionStore
	Preferences   store.PreferenceStore
	Dedup         store.DedupStore
	Inbox         store.InboxStore
	Stats         store.StatsStore
}

type Server struct {
	pushH       *handler.PushHandler
	inboxH      *handler.InboxHandler
	ingestH     *handler.IngestHandler
	rateLimiter *middleware.RateLimiter
	ingestToken string
	logger      *slog.Logger
}

func New(stores Stores, engine *dispatch.Engine, pushSvc *push.Service, ingestToken string, logger *slog.Logger) *Server {
	return &Server{
		pushH:       handler.NewPushHandler(stores.Subscriptions, stores.Preferences, pushSvc, logger.With("component", "push_handler")),
		inboxH:      handler.NewInboxHandler(stores.Inbox, logger.With("component", "inbox_handler")),
		ingestH:     handler.NewIngestHandler(engine, logger.With("component", "ingest_handler")),
		rateLimiter: middleware.NewRateLimiter(),
		ingestToken: ingestToken,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)

	// Ingestion — machine-to-machine, token guarded
	ingestAuth := middleware.RequireIngestToken(s.ingestToken)
	outerMux.Handle("POST /api/ingest/event", ingestAuth(http.HandlerFunc(s.ingestH.Event)))

	// User routes — identity extracted from the gateway header
	userMux := http.NewServeMux()
	userMux.HandleFunc("POST /api/push/subscribe", s.rateLimitedHandler(s.pushH.Subscribe))
	userMux.HandleFunc("POST /api/push/unsubscribe", s.rateLimitedHandler(s.pushH.Unsubscribe))
	userMux.HandleFunc("GET /api/push/preferences", s.pushH.GetPreferences)
	userMux.HandleFunc("PUT /api/push/preferences", s.pushH.UpdatePreferences)
	userMux.HandleFunc("GET /api/inbox", s.inboxH.List)
	userMux.HandleFunc("POST /api/inbox/{event_id}/read", s.inboxH.MarkRead)
	outerMux.Handle("/api/", middleware.RequireUser(userMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 30, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
