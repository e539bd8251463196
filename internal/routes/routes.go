package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/eventradar/notify-engine/internal/authz"
	"github.com/eventradar/notify-engine/internal/handlers"
)

// RegisterRoutes wires the HTTP surface. Everything under /api requires a
// valid bearer token; the health probe is public.
func RegisterRoutes(
	router *mux.Router,
	jwtSecret string,
	eventHandler *handlers.EventHandler,
	attemptsHandler *handlers.AttemptsHandler,
) {
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(authz.Middleware(jwtSecret))

	api.HandleFunc("/events", eventHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/events/{eventID}/attempts", attemptsHandler.ListByEvent).Methods(http.MethodGet)
}
