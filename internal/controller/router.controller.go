package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	if c.cfg.MetricsHandler != nil {
		r.Handle("/metrics", c.cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Get("/ws", c.serveWS)
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", c.listRooms)
			r.Get("/{room-key}", c.getRoomSnapshot)
		})
		if c.trackResolver != nil {
			r.Get("/tracks/{track-id}", c.getTrack)
		}
		if c.likesService != nil {
			r.Route("/users/{user-id}/likes", func(r chi.Router) {
				r.Get("/", c.getLikes)
				r.Post("/", c.toggleLike)
			})
		}
	})

	return r
}
