package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"farmwatch/internal/config"
	"farmwatch/internal/handlers"
	"farmwatch/internal/logger"
	"farmwatch/internal/middleware"
	"farmwatch/internal/repository"
)

// Deps are the services the HTTP surface reads from.
type Deps struct {
	Status    handlers.StatusProvider
	Hub       handlers.ViewerHub
	Stream    http.Handler
	Metrics   http.Handler
	Summaries repository.SummaryRepository
	Snapshots repository.SnapshotRepository
}

// SetupRoutes registers API endpoints, the MJPEG stream and metrics,
// and wraps the router with the authentication middleware.
func SetupRoutes(deps Deps, cfg *config.Config, logger *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// API endpoints
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/summary", handlers.SummaryHandler(deps.Status, logger)).Methods(http.MethodGet)
	api.HandleFunc("/view", handlers.ViewWebsocketHandler(deps.Hub, logger))
	if deps.Summaries != nil {
		api.HandleFunc("/history", handlers.HistoryHandler(deps.Summaries, logger)).Methods(http.MethodGet)
		api.HandleFunc("/stats", handlers.StatsHandler(deps.Summaries, logger)).Methods(http.MethodGet)
	}
	if deps.Snapshots != nil {
		api.HandleFunc("/snapshots", handlers.SnapshotsHandler(deps.Snapshots, cfg, logger)).Methods(http.MethodGet)
		api.HandleFunc("/snapshots/{filename}", handlers.ViewSnapshotHandler(deps.Snapshots, logger)).Methods(http.MethodGet)
		api.HandleFunc("/snapshots/{filename}", handlers.DeleteSnapshotHandler(deps.Snapshots, logger)).Methods(http.MethodDelete)
	}

	if deps.Stream != nil {
		r.Handle("/stream", deps.Stream).Methods(http.MethodGet)
	}
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics).Methods(http.MethodGet)
	}

	// Log endpoints
	r.HandleFunc("/logs/{level}", handlers.ShowLogsHandler(logger)).Methods(http.MethodGet)
	r.HandleFunc("/logs/{level}/clear", handlers.ClearLogsHandler(logger)).Methods(http.MethodPost)

	// Auth endpoints
	r.HandleFunc("/auth/login", handlers.LoginPageHandler).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", handlers.LoginHandler(cfg, logger)).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", handlers.LogoutHandler).Methods(http.MethodPost)

	r.Use(middleware.Auth(cfg.Password))
	return r
}
