package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.ws != nil {
		r.Handle("/ws", s.ws)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/state", s.handleState)
		r.Get("/devices", s.handleDevices)

		r.Route("/focus", func(r chi.Router) {
			r.Get("/", s.handleGetFocus)
			r.Post("/move/{direction}", s.handleMove)
			r.Post("/activate", s.handleActivate)
			r.Post("/back", s.handleBack)
			r.Put("/{item}", s.handleSetFocus)
		})

		r.Put("/visibility", s.handleVisibility)
		r.Get("/layouts", s.handleListLayouts)
		r.Put("/layout/{scope}", s.handlePutLayout)
		r.Put("/scope", s.handleSetScope)

		r.Route("/configurator", func(r chi.Router) {
			r.Post("/", s.handleStartConfigurator)
			r.Delete("/", s.handleAbortConfigurator)
			r.Post("/reset", s.handleResetConfigurator)
		})

		r.Get("/mappings/{device}", s.handleGetMapping)
	})

	return r
}
