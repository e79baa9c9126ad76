package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hundredandten/server/internal/auth"
	"github.com/hundredandten/server/internal/domain"
	"github.com/hundredandten/server/internal/service"
	"github.com/hundredandten/server/internal/websocket"
)

// IdentityResolver authenticates a request's Authorization header
type IdentityResolver interface {
	FromHeader(header string) (auth.Identity, error)
}

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler provides HTTP handlers for the lobby, game and user API
type Handler struct {
	lobbies  *service.LobbyService
	games    *service.GameService
	users    *service.UserService
	identity IdentityResolver
	hub      *websocket.Hub
	pingers  []Pinger
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler. pingers are checked by /ready.
func NewHandler(
	lobbies *service.LobbyService,
	games *service.GameService,
	users *service.UserService,
	identity IdentityResolver,
	hub *websocket.Hub,
	logger *slog.Logger,
	pingers ...Pinger,
) *Handler {
	return &Handler{
		lobbies:  lobbies,
		games:    games,
		users:    users,
		identity: identity,
		hub:      hub,
		pingers:  pingers,
		logger:   logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws/stats", h.GetWebSocketStats)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Route("/lobbies", func(r chi.Router) {
				r.Post("/", h.CreateLobby)
				r.Post("/search", h.SearchLobbies)

				r.Route("/{lobbyID}", func(r chi.Router) {
					r.Get("/", h.GetLobby)
					r.Get("/players", h.GetLobbyPlayers)
					r.Post("/invite", h.InviteToLobby)
					r.Post("/join", h.JoinLobby)
					r.Post("/leave", h.LeaveLobby)
					r.Post("/start", h.StartGame)
				})
			})

			r.Route("/games", func(r chi.Router) {
				r.Post("/search", h.SearchGames)

				r.Route("/{gameID}", func(r chi.Router) {
					r.Get("/", h.GetGame)
					r.Get("/players", h.GetGamePlayers)
					r.Get("/suggestion", h.GetSuggestion)
					r.Post("/bid", h.Bid)
					r.Post("/select-trump", h.SelectTrump)
					r.Post("/discard", h.Discard)
					r.Post("/play", h.Play)
					r.Post("/unpass", h.Unpass)
					r.Post("/leave", h.LeaveGame)
				})
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.SearchUsers)
				r.Post("/self", h.CreateSelf)
				r.Put("/self", h.PutSelf)
			})
		})
	})

	return r
}

type identityKey struct{}

// authenticate resolves the bearer token into the request's identity
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.identity.FromHeader(r.Header.Get("Authorization"))
		if err != nil {
			h.logger.Debug("rejected request", "path", r.URL.Path, "error", err)
			h.writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFrom returns the caller set by authenticate
func identityFrom(r *http.Request) auth.Identity {
	id, _ := r.Context().Value(identityKey{}).(auth.Identity)
	return id
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError maps err to a status and writes it. Server-side failures are
// logged and reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		msg = domain.ErrInternalError.Error()
	}
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// statusFor maps the error taxonomy to HTTP status codes
func statusFor(err error) int {
	switch {
	case domain.IsEngineRejection(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAuthorizationDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeBody decodes a JSON request body into v. An empty body is allowed
// when optional is set.
func decodeBody(r *http.Request, v interface{}, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

// HandleWebSocket authenticates and upgrades a WebSocket request. Browsers
// cannot set headers on the upgrade, so a token query parameter is accepted
// in place of the Authorization header.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if token := r.URL.Query().Get("token"); header == "" && token != "" {
		header = "Bearer " + token
	}
	id, err := h.identity.FromHeader(header)
	if err != nil {
		h.logger.Debug("rejected websocket", "error", err)
		h.writeError(w, err)
		return
	}
	websocket.ServeWs(h.hub, id.ID, h.games.CanView, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.hub.Stats())
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck reports ready once every dependency answers
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			h.writeJSON(w, http.StatusServiceUnavailable, APIResponse{
				Success: false,
				Error:   "not ready",
			})
			return
		}
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}
