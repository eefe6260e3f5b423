package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Server exposes the read-mostly catalog HTTP API the storefront consumes.
type Server struct {
	store  *Store
	logger *slog.Logger
}

// NewServer builds a server backed by the provided store.
func NewServer(store *Store, logger *slog.Logger) *Server {
	return &Server{store: store, logger: logger}
}

// Router wires all catalog routes under a single chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/catalog", func(r chi.Router) {
		r.Get("/sneakers", s.handleListSneakers)
		r.Post("/sneakers", s.handleCreateSneaker)
		r.Post("/sneakers/seed", s.handleSeed)
		r.Get("/sneakers/{sneakerID}", s.handleGetSneaker)
		r.Get("/search", s.handleSearch)
		r.Get("/brands", s.handleBrands)
	})

	return r
}

func (s *Server) handleListSneakers(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), defaultListLimit)
	sneakers, err := s.store.ListSneakers(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list sneakers: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sneakers": sneakers,
		"count":    len(sneakers),
	})
}

func (s *Server) handleGetSneaker(w http.ResponseWriter, r *http.Request) {
	sneakerID := chi.URLParam(r, "sneakerID")
	sneaker, err := s.store.GetSneaker(r.Context(), sneakerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "sneaker not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get sneaker: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, sneaker)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), defaultListLimit)
	sneakers, err := s.store.SearchSneakers(r.Context(), query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search sneakers: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sneakers": sneakers,
		"count":    len(sneakers),
		"query":    query,
	})
}

func (s *Server) handleBrands(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 8)
	brands, err := s.store.PopularBrands(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "popular brands: %v", err)
		return
	}
	names := make([]string, 0, len(brands))
	for _, b := range brands {
		names = append(names, b.Brand)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"brands": names,
		"counts": brands,
	})
}

func (s *Server) handleCreateSneaker(w http.ResponseWriter, r *http.Request) {
	var input CreateSneakerInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	sneaker, err := s.store.CreateSneaker(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%s", err)
		return
	}
	s.logger.Info("sneaker created", "sneaker_id", sneaker.ID, "brand", sneaker.Brand, "name", sneaker.Name)
	writeJSON(w, http.StatusCreated, sneaker)
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	count := parseIntDefault(r.URL.Query().Get("count"), 24)
	seeded, err := s.store.Seed(r.Context(), count)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "seed catalog: %v", err)
		return
	}
	s.logger.Info("catalog seeded", "count", len(seeded))
	writeJSON(w, http.StatusCreated, map[string]any{
		"seeded": len(seeded),
	})
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": strings.TrimSpace(fmt.Sprintf(format, args...)),
			"status":  status,
		},
	})
}
