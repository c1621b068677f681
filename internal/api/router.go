package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/runwayscope/runwayscope/internal/config"
	"github.com/runwayscope/runwayscope/pkg/logger"
)

// Router wraps the chi router and the handler set
type Router struct {
	handler *Handler
	config  *config.Config
	logger  *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(handler *Handler, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler: handler,
		config:  cfg,
		logger:  log.Named("api-router"),
	}
}

// Routes builds the route tree
func (r *Router) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(r.corsMiddleware)

	mux.Route("/api/v1", func(api chi.Router) {
		api.Get("/pings", r.handler.GetPings)
		api.Get("/flights", r.handler.GetFlights)
		api.Get("/events", r.handler.GetEvents)
		api.Get("/zone", r.handler.GetZone)
		api.Post("/classify", r.handler.Classify)
		api.Get("/stats/hourly", r.handler.GetHourlyStats)
		api.Get("/stats/events", r.handler.GetEventStats)
		api.Get("/stats/runways", r.handler.GetRunwayStats)
		api.Get("/summary", r.handler.GetSummary)
		api.Get("/summary/ai", r.handler.GetAISummary)
		api.Get("/status", r.handler.GetStatus)
	})

	mux.Get("/ws", r.handler.HandleWebSocket)

	return mux
}

// corsMiddleware applies the configured CORS policy
func (r *Router) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		origin := req.Header.Get("Origin")
		if origin != "" && r.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, req)
	})
}

func (r *Router) originAllowed(origin string) bool {
	for _, allowed := range r.config.Server.CORSAllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
