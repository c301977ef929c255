package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/CTAG07/wordwalk/pkg/corpus"
)

// Server wires the corpus store, the mapping cache and the API handlers
// together behind a single mux.
type Server struct {
	config    *Config
	store     *corpus.Store
	models    *modelCache
	logger    *slog.Logger
	corpusAPI *CorpusAPI
	walkAPI   *WalkAPI
	mux       *http.ServeMux
}

// NewServer creates the server and registers all routes.
func NewServer(config *Config, store *corpus.Store, logger *slog.Logger) *Server {
	models := newModelCache(store, logger)

	server := &Server{
		config:    config,
		store:     store,
		models:    models,
		logger:    logger,
		corpusAPI: NewCorpusAPI(store, models, logger),
		walkAPI:   NewWalkAPI(config, store, models, logger),
		mux:       http.NewServeMux(),
	}

	server.mux.HandleFunc("/api/health", server.handleHealth)
	server.corpusAPI.RegisterRoutes(server.mux)
	server.walkAPI.RegisterRoutes(server.mux)

	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// HealthResponse is returned by /api/health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	CachedModels  int    `json:"cached_models"`
	ActiveStreams int64  `json:"active_streams"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       Version,
		Commit:        Commit,
		CachedModels:  s.models.Len(),
		ActiveStreams: s.walkAPI.streams.Load(),
	})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode JSON response", "error", err)
		}
	}
}
