package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/CTAG07/wordwalk/pkg/corpus"
	"github.com/CTAG07/wordwalk/pkg/markov"
)

// CorpusAPI holds the dependencies for the corpus API handlers.
type CorpusAPI struct {
	store  *corpus.Store
	models *modelCache
	logger *slog.Logger
}

// NewCorpusAPI creates a new instance of the CorpusAPI.
func NewCorpusAPI(store *corpus.Store, models *modelCache, logger *slog.Logger) *CorpusAPI {
	return &CorpusAPI{
		store:  store,
		models: models,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/corpora endpoints.
func (c *CorpusAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/corpora", c.handleListAndCreateCorpora)
	mux.HandleFunc("/api/corpora/import", c.handleImport)
	mux.HandleFunc("/api/corpora/", c.handleCorpusByName)
}

type CreateCorpusRequest struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// IngestResponse reports how many tokens an ingestion appended.
type IngestResponse struct {
	Corpus      corpus.Info `json:"corpus"`
	TokensAdded int         `json:"tokens_added"`
}

// CorpusStatsResponse is the stats of one corpus, plus the stats of its
// mapping when an order was requested.
type CorpusStatsResponse struct {
	Corpus         corpus.Info   `json:"corpus"`
	Tokens         int           `json:"tokens"`
	DistinctTokens int           `json:"distinct_tokens"`
	Mapping        *markov.Stats `json:"mapping,omitempty"`
}

// handleListAndCreateCorpora handles GET for listing and POST for creating corpora.
func (c *CorpusAPI) handleListAndCreateCorpora(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		corpora, err := c.store.GetCorpusInfos(r.Context())
		if err != nil {
			c.logger.Error("Failed to get corpus infos", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve corpora: %v", err))
			return
		}
		// Convert map to slice for consistent JSON output
		corpusList := make([]corpus.Info, 0, len(corpora))
		for _, info := range corpora {
			corpusList = append(corpusList, info)
		}
		sort.Slice(corpusList, func(i, j int) bool {
			return corpusList[i].Id < corpusList[j].Id
		})
		respondWithJSON(w, http.StatusOK, corpusList)

	case http.MethodPost:
		var req CreateCorpusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if req.Name == "" || strings.Contains(req.Name, "/") {
			respondWithError(w, http.StatusBadRequest, "A corpus name without '/' is required")
			return
		}

		if _, err := c.store.GetCorpusInfo(r.Context(), req.Name); err == nil {
			respondWithError(w, http.StatusConflict, "Corpus already exists")
			return
		} else if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Error("Failed to look up corpus", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
			return
		}

		if err := c.store.InsertCorpus(r.Context(), corpus.Info{Name: req.Name, Source: req.Source}); err != nil {
			c.logger.Error("Failed to insert new corpus", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create corpus: %v", err))
			return
		}
		info, err := c.store.GetCorpusInfo(r.Context(), req.Name)
		if err != nil {
			c.logger.Error("Failed to retrieve newly created corpus", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to verify corpus creation: %v", err))
			return
		}
		respondWithJSON(w, http.StatusCreated, info)

	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleCorpusByName routes actions for a specific corpus, e.g., ingest, export, stats, delete.
func (c *CorpusAPI) handleCorpusByName(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/corpora/")
	parts := strings.Split(path, "/")
	corpusName := parts[0]

	if corpusName == "" {
		respondWithError(w, http.StatusBadRequest, "Corpus name not specified")
		return
	}

	info, ok := lookupCorpus(w, r, c.store, c.logger, corpusName)
	if !ok {
		return
	}

	if len(parts) == 1 { // Path is just /api/corpora/{name}
		switch r.Method {
		case http.MethodGet:
			respondWithJSON(w, http.StatusOK, info)
		case http.MethodDelete:
			if err := c.store.RemoveCorpus(r.Context(), info); err != nil {
				c.logger.Error("Failed to remove corpus", "name", corpusName, "error", err)
				respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to remove corpus: %v", err))
				return
			}
			c.models.Invalidate(info.Id)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	action := parts[1]
	switch action {
	case "ingest":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		added, err := c.store.Ingest(r.Context(), info, r.Body)
		if err != nil {
			c.logger.Error("Failed to ingest text", "name", corpusName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Ingestion failed: %v", err))
			return
		}
		c.models.Invalidate(info.Id)
		respondWithJSON(w, http.StatusOK, IngestResponse{Corpus: info, TokensAdded: added})

	case "export":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.json\"", corpusName))
		if err := c.store.ExportCorpus(r.Context(), info, w); err != nil {
			c.logger.Error("Failed to export corpus", "name", corpusName, "error", err)
		}

	case "stats":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		stats, err := c.store.GetCorpusStats(r.Context(), info)
		if err != nil {
			c.logger.Error("Failed to get corpus stats", "name", corpusName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve stats: %v", err))
			return
		}
		resp := CorpusStatsResponse{Corpus: info, Tokens: stats.Tokens, DistinctTokens: stats.DistinctTokens}

		if orderParam := r.URL.Query().Get("order"); orderParam != "" {
			order, err := strconv.Atoi(orderParam)
			if err != nil || order <= 0 {
				respondWithError(w, http.StatusBadRequest, "order must be a positive integer")
				return
			}
			m, err := c.models.Get(r.Context(), info, order)
			if err != nil {
				c.logger.Error("Failed to build mapping", "name", corpusName, "order", order, "error", err)
				respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to build mapping: %v", err))
				return
			}
			mappingStats := m.Stats()
			resp.Mapping = &mappingStats
		}
		respondWithJSON(w, http.StatusOK, resp)

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

// handleImport imports a corpus from an uploaded JSON export.
func (c *CorpusAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	info, err := c.store.ImportCorpus(r.Context(), r.Body)
	if err != nil {
		c.logger.Error("Failed to import corpus", "error", err)
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Import failed: %v", err))
		return
	}
	c.models.Invalidate(info.Id)
	respondWithJSON(w, http.StatusCreated, info)
}

// lookupCorpus resolves a corpus by name, writing a 404 or 500 response and
// returning false when it cannot.
func lookupCorpus(w http.ResponseWriter, r *http.Request, store *corpus.Store, logger *slog.Logger, name string) (corpus.Info, bool) {
	info, err := store.GetCorpusInfo(r.Context(), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "Corpus not found")
			return corpus.Info{}, false
		}
		logger.Error("Failed to get corpus info by name", "name", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return corpus.Info{}, false
	}
	return info, true
}
