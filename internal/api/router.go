package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quadmatch/quadmatch/internal/api/handler"
	apimiddleware "github.com/quadmatch/quadmatch/internal/api/middleware"
	"github.com/quadmatch/quadmatch/internal/middleware"
	"github.com/quadmatch/quadmatch/internal/services/match"
	"github.com/quadmatch/quadmatch/internal/services/player"
	"github.com/quadmatch/quadmatch/internal/services/query"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	PlayerService   *player.Service
	MatchController *match.Controller
	QueryService    *query.Service
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.PlayerService, cfg.QueryService)
	matchHandler := handler.NewMatchHandler(cfg.MatchController, cfg.QueryService)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := apimiddleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes
	api.HandleFunc("/players", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", playerHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", playerHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/players/{id}", playerHandler.Delete).Methods(http.MethodDelete)

	// Match routes. Fixed paths are registered before the {id} wildcards so
	// "open" and "history" are never taken for match IDs.
	api.HandleFunc("/matches", matchHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/matches", matchHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/matches", matchHandler.DeleteAll).Methods(http.MethodDelete)
	api.HandleFunc("/matches/open", matchHandler.ListOpen).Methods(http.MethodGet)
	api.HandleFunc("/matches/history/players/{player_id}", matchHandler.HistoryForPlayer).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}", matchHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}", matchHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/matches/{id}", matchHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/matches/{id}/join/{player_id}", matchHandler.Join).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/leave/{player_id}", matchHandler.Leave).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/start", matchHandler.Start).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/finish", matchHandler.Finish).Methods(http.MethodPost)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
