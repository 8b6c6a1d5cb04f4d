package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lazypower/seedsoil/internal/engine"
)

// Server is the seedsoil HTTP API server.
type Server struct {
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server over the session controller.
func New(eng *engine.Engine, version string) *Server {
	s := &Server{
		engine:  eng,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/seeds", s.handleListSeeds)
		r.Post("/seeds", s.handleCapture)
		r.Delete("/seeds", s.handleClearAll)
		r.Get("/seeds/{id}", s.handleGetSeed)
		r.Post("/seeds/{id}/review", s.handleReviewed)
		r.Post("/seeds/{id}/archive", s.handleArchive)
		r.Post("/seeds/{id}/resurrect", s.handleResurrect)

		r.Get("/review", s.handleReview)
		r.Get("/gaps", s.handleGaps)
		r.Post("/pulse", s.handlePulse)
		r.Get("/pulses", s.handlePulses)

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)

		r.Get("/events", s.handleEvents)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.engine.DB.Ping(); err != nil {
		dbOK = false
	}
	counts, _ := s.engine.DB.ItemCounts()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"uptime":     time.Since(s.started).Seconds(),
		"db":         dbOK,
		"db_path":    s.engine.DB.Path,
		"active":     counts["active"],
		"buried":     counts["buried"],
		"pulsing":    s.engine.Pulsing(),
		"summarizer": s.engine.Summarizer != nil,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
