package route

import (
	"net/http"

	"github.com/kuldeep456789/VisionIQ/internal/config"
	"github.com/kuldeep456789/VisionIQ/internal/handler"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/middleware"
	"github.com/kuldeep456789/VisionIQ/internal/repository"
	"github.com/kuldeep456789/VisionIQ/internal/service"
	hub "github.com/kuldeep456789/VisionIQ/internal/service/websocket"
)

// Dependencies are the services the routes are served by. Store may be nil
// when storage is disabled.
type Dependencies struct {
	Config    *config.Config
	Logger    *logger.Logger
	Tokens    middleware.TokenParser
	Detection *service.DetectionService
	Auth      *service.AuthService
	History   *service.HistoryService
	Hub       *hub.Hub
	Store     repository.Store
}

// SetupRoutes registers the API endpoints and wraps the mux with logging,
// CORS and body size limits.
func SetupRoutes(d Dependencies) http.Handler {
	mux := http.NewServeMux()
	log := d.Logger

	authed := func(h http.Handler) http.Handler { return middleware.RequireAuth(d.Tokens, h) }
	optional := func(h http.Handler) http.Handler { return middleware.OptionalAuth(d.Tokens, h) }

	// Detection endpoints
	mux.Handle("POST /detect", optional(handler.DetectHandler(d.Detection, log)))
	mux.Handle("POST /detect/annotate", optional(handler.AnnotateHandler(d.Detection, log)))
	mux.Handle("GET /ws/detect", optional(handler.LiveDetectHandler(d.Detection, d.Config.MaxBodySize, log)))
	mux.Handle("GET /ws/events", authed(handler.EventsHandler(d.Hub, log)))

	// Auth endpoints
	mux.Handle("POST /register", handler.RegisterHandler(d.Auth, log))
	mux.Handle("POST /login", handler.LoginHandler(d.Auth, log))
	mux.Handle("GET /me", authed(handler.MeHandler(d.Auth, log)))

	// History endpoints
	mux.Handle("GET /history", authed(handler.HistoryHandler(d.History, log)))
	mux.Handle("GET /history/stats", authed(handler.HistoryStatsHandler(d.History, log)))
	mux.Handle("GET /history/{id}/image", authed(handler.HistoryImageHandler(d.History, log)))
	mux.Handle("DELETE /history/{id}", authed(handler.DeleteHistoryHandler(d.History, log)))
	mux.Handle("DELETE /history", authed(handler.ClearHistoryHandler(d.History, log)))

	// Log endpoints
	mux.Handle("GET /logs/{level}", authed(handler.ShowLogsHandler(log)))
	mux.Handle("POST /logs/{level}/clear", authed(handler.ClearLogsHandler(log)))

	mux.Handle("GET /health", handler.HealthHandler(d.Detection, d.Store, log))

	var h http.Handler = mux
	h = middleware.LimitBody(d.Config.MaxBodySize, h)
	h = middleware.CORS(d.Config.CORSOrigins, h)
	return middleware.Logging(log, h)
}
