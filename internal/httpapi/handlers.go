package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"polsearch/internal/apperr"
	"polsearch/internal/domain"
	"polsearch/internal/search"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	req := search.Request{
		Query:         q.Get("q"),
		Mode:          search.Mode(q.Get("mode")),
		Offset:        intParam(q, "offset", 0),
		Limit:         intParam(q, "limit", 20),
		Enrich:        q.Get("enrich") == "true",
		ContextSize:   intParam(q, "context", 0),
		SpeakerLike:   q.Get("speaker"),
		CommitteeSlug: q.Get("committee"),
		Chamber:       domain.Chamber(q.Get("chamber")),
		Congress:      intParam(q, "congress", 0),
		FromDate:      q.Get("from"),
		ToDate:        q.Get("to"),
	}
	if types := q.Get("content_type"); types != "" {
		for _, t := range strings.Split(types, ",") {
			req.ContentTypes = append(req.ContentTypes, domain.ContentType(strings.TrimSpace(t)))
		}
	}

	resp, err := s.executor.Search(ctx, req)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}

	if req.Enrich && len(resp.Results) > 0 {
		if err := s.enricher.Enrich(ctx, resp.Results, req.ContextSize); err != nil {
			respondError(w, statusFromError(err), err)
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCommittees(w http.ResponseWriter, r *http.Request) {
	committees, err := s.rs.ListCommittees(r.Context())
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"committees": committees})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func intParam(q map[string][]string, key string, def int) int {
	vals, ok := q[key]
	if !ok || len(vals) == 0 || vals[0] == "" {
		return def
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil {
		return def
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, apperr.ValidationError):
		return http.StatusBadRequest
	case errors.Is(err, apperr.NotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.Timeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, apperr.StoreUnavailable), errors.Is(err, apperr.IndexMissing), errors.Is(err, apperr.EmbeddingFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
