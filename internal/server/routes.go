package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Template runs (SSE)
	r.Route("/template", func(r chi.Router) {
		r.Post("/", s.generateTemplate)
		r.Post("/decode", s.decodeTemplate)
		r.Post("/lint", s.lintTemplate)
		r.Get("/active", s.listRuns)
		r.Post("/{runID}/abort", s.abortRun)
	})

	// Toolkit
	r.Route("/toolkit", func(r chi.Router) {
		r.Get("/", s.listTools)
		r.Post("/{tool}", s.runTool)
	})

	// Assistant
	r.Route("/chat", func(r chi.Router) {
		r.Post("/", s.sendChat)
		r.Get("/{conversationID}", s.getChat)
		r.Delete("/{conversationID}", s.deleteChat)
	})

	// Saved generations
	r.Route("/history", func(r chi.Router) {
		r.Get("/", s.listHistory)
		r.Get("/{creationID}", s.getHistory)
		r.Delete("/{creationID}", s.deleteHistory)
	})

	// Event streaming (SSE)
	r.Get("/event", s.allEvents)

	r.Get("/provider", s.listProviders)
	r.Get("/health", s.health)
}
