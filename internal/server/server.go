package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/shopsync/internal/access"
	"github.com/dukerupert/shopsync/internal/auth"
	"github.com/dukerupert/shopsync/internal/handler"
	"github.com/dukerupert/shopsync/internal/items"
	"github.com/dukerupert/shopsync/internal/middleware"
	"github.com/dukerupert/shopsync/internal/store"
	"github.com/dukerupert/shopsync/internal/validation"
	ws "github.com/dukerupert/shopsync/internal/websocket"
)

const (
	loginLimit  = 10
	loginWindow = time.Minute
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	tokens      *auth.Tokens
	guard       *access.Guard
	itemH       *handler.ItemHandler
	authH       *handler.AuthHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, tokens *auth.Tokens, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	channelStore := store.NewChannelStore(db)
	itemStore := store.NewItemStore(db)
	userStore := store.NewUserStore(db)

	guard := access.NewGuard(channelStore, channelStore)
	v := validation.New()
	svc := items.NewService(guard, itemStore, v, logger.With("component", "items"))

	return &Server{
		db:          db,
		hub:         hub,
		tokens:      tokens,
		guard:       guard,
		itemH:       handler.NewItemHandler(svc, hub, logger.With("component", "item_handler")),
		authH:       handler.NewAuthHandler(userStore, tokens, v, logger.With("component", "auth")),
		rateLimiter: middleware.NewRateLimiter(loginLimit, loginWindow),
		logger:      logger,
	}
}

// Hub returns the realtime hub so shutdown can disconnect live sessions.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/v1/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// The socket authenticates in-band with an authenticate message.
	outerMux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.tokens, s.guard, s.logger.With("component", "session")))

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens)
	outerMux.Handle("/api/v1/groups/", authMiddleware(protectedMux))

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/groups/{groupId}/items", s.itemH.List)
	mux.HandleFunc("POST /api/v1/groups/{groupId}/items", s.itemH.Add)
	mux.HandleFunc("PATCH /api/v1/groups/{groupId}/items/{itemId}", s.itemH.Update)
	mux.HandleFunc("DELETE /api/v1/groups/{groupId}/items/{itemId}", s.itemH.Delete)
	mux.HandleFunc("GET /api/v1/groups/{groupId}/summary", s.itemH.Summary)
}
