package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	h "gatherhub/internal/delivery/http/helpers"
	"gatherhub/internal/delivery/http/middleware"
	"gatherhub/internal/domain"
	"gatherhub/internal/metric"
)

const healthTimeout = 2 * time.Second

// Pinger is the store liveness probe behind /healthz. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(
	eventController *EventController,
	authController *AuthController,
	ws http.HandlerFunc,
	verifier domain.TokenVerifier,
	store Pinger,
	logger *slog.Logger,
	allowedOrigins []string,
) http.Handler {
	mux := http.NewServeMux()

	optional := middleware.OptionalAuth(verifier)

	// API routes
	mux.HandleFunc("GET /api/events", optional(eventController.List))
	mux.HandleFunc("GET /api/events/guest", eventController.GuestList)
	mux.HandleFunc("POST /api/auth/guest", authController.GuestLogin)

	// Realtime
	mux.HandleFunc("GET /ws", ws)

	// Operational
	mux.HandleFunc("GET /healthz", healthHandler(store))
	mux.Handle("GET /metrics", metric.Handler())

	return middleware.Logging(logger, middleware.CORS(allowedOrigins, mux))
}

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := store.PingContext(ctx); err != nil {
			h.WriteJSONError(w, http.StatusServiceUnavailable, h.ErrCodeUnavailable, "store unavailable")
			return
		}
		h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
