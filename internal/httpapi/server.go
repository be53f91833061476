// Package httpapi exposes the search service over HTTP.
package httpapi

import (
	"net/http"

	"github.com/rs/zerolog"

	"polsearch/internal/enrich"
	"polsearch/internal/search"
	"polsearch/internal/store/relational"
)

// Server wires the hybrid search executor and enricher to HTTP handlers.
type Server struct {
	executor *search.Executor
	enricher *enrich.Enricher
	rs       *relational.Store
	log      zerolog.Logger
	mux      *http.ServeMux
}

func NewServer(executor *search.Executor, enricher *enrich.Enricher, rs *relational.Store, log zerolog.Logger) *Server {
	s := &Server{executor: executor, enricher: enricher, rs: rs, log: log, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/v1/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/v1/committees", s.handleListCommittees)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}
