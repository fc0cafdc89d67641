package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/meetspot/meetspot-api/internal/api/itinerary"
	"github.com/meetspot/meetspot-api/internal/api/session"
)

// Config contains dependencies needed for the router setup
type Config struct {
	MeetingHandler *session.Handler
	TravelHandler  *itinerary.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/meeting", func(r chi.Router) {
			r.Post("/process", cfg.MeetingHandler.ProcessLocations)
			r.Get("/results", cfg.MeetingHandler.GetResults)
		})

		r.Route("/travel", func(r chi.Router) {
			r.Post("/process", cfg.TravelHandler.ProcessTravelPlan)
			r.Get("/results", cfg.TravelHandler.GetResults)
		})
	})

	return r
}
