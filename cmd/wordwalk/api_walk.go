package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/CTAG07/wordwalk/pkg/corpus"
	"github.com/CTAG07/wordwalk/pkg/markov"
)

const (
	// maxWalkCount bounds the number of walks a single request may ask for.
	maxWalkCount = 100
	// maxWalkSteps bounds max_steps of POST /api/walk.
	maxWalkSteps = 10000
	// streamWriteTimeout is how long a stream waits for a client to accept a
	// frame before giving up on it.
	streamWriteTimeout = 10 * time.Second
)

// WalkAPI holds the dependencies for the walk API handlers.
type WalkAPI struct {
	config   *Config
	store    *corpus.Store
	models   *modelCache
	logger   *slog.Logger
	upgrader websocket.Upgrader

	writeTimeout time.Duration
	streams      atomic.Int64 // open websocket streams
}

// NewWalkAPI creates a new instance of the WalkAPI.
func NewWalkAPI(config *Config, store *corpus.Store, models *modelCache, logger *slog.Logger) *WalkAPI {
	return &WalkAPI{
		config: config,
		store:  store,
		models: models,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		writeTimeout: streamWriteTimeout,
	}
}

// RegisterRoutes sets up the routing for all /api/walk endpoints.
func (a *WalkAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/walk", a.handleWalk)
	mux.HandleFunc("/api/walk/stream", a.handleStream)
}

// WalkRequest is the body of POST /api/walk. Order defaults to the configured
// order, Count to 1. MaxSteps is required.
type WalkRequest struct {
	Corpus   string `json:"corpus"`
	Order    int    `json:"order"`
	Seed     string `json:"seed"`
	MaxSteps int    `json:"max_steps"`
	Count    int    `json:"count"`
	RandSeed uint64 `json:"rand_seed"`
}

// WalkResult is one generated text.
type WalkResult struct {
	Tokens []string `json:"tokens"`
	Text   string   `json:"text"`
}

// WalkResponse is returned by POST /api/walk.
type WalkResponse struct {
	WalkID string       `json:"walk_id"`
	Corpus string       `json:"corpus"`
	Order  int          `json:"order"`
	Walks  []WalkResult `json:"walks"`
}

// StreamFrame is a single websocket message of a streamed walk. Type is
// "token" for every token, including the seed, and "done" once at the end.
type StreamFrame struct {
	Type   string `json:"type"`
	WalkID string `json:"walk_id"`
	Token  string `json:"token,omitempty"`
	Steps  int    `json:"steps,omitempty"`
}

// handleWalk runs one or more walks and returns the generated texts.
func (a *WalkAPI) handleWalk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req WalkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if req.Order == 0 {
		req.Order = a.config.Walk.Order
	}
	if req.Count == 0 {
		req.Count = 1
	}
	switch {
	case req.Corpus == "":
		respondWithError(w, http.StatusBadRequest, "corpus is required")
		return
	case req.MaxSteps <= 0 || req.MaxSteps > maxWalkSteps:
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("max_steps must be between 1 and %d", maxWalkSteps))
		return
	case req.Order < 0:
		respondWithError(w, http.StatusBadRequest, "order must be a positive integer")
		return
	case req.Count < 0 || req.Count > maxWalkCount:
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 1 and %d", maxWalkCount))
		return
	}

	info, ok := lookupCorpus(w, r, a.store, a.logger, req.Corpus)
	if !ok {
		return
	}
	m, err := a.models.Get(r.Context(), info, req.Order)
	if err != nil {
		a.logger.Error("Failed to build mapping", "name", req.Corpus, "order", req.Order, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to build mapping: %v", err))
		return
	}

	walkID := uuid.NewString()
	plan := walkPlan{
		Seed:     req.Seed,
		MaxSteps: req.MaxSteps,
		Count:    req.Count,
		Parallel: a.config.Walk.Parallel,
		RandSeed: req.RandSeed,
	}
	walks, err := runWalks(r.Context(), m, a.store.Tokenizer(), plan, a.logger.With("walk_id", walkID))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := WalkResponse{
		WalkID: walkID,
		Corpus: info.Name,
		Order:  req.Order,
		Walks:  make([]WalkResult, len(walks)),
	}
	for i, tokens := range walks {
		resp.Walks[i] = WalkResult{Tokens: tokens, Text: a.store.Tokenizer().Join(tokens)}
	}

	a.logger.Info("Walks generated",
		slog.String("walk_id", walkID),
		slog.String("corpus_name", info.Name),
		slog.Int("order", req.Order),
		slog.Int("count", len(walks)),
	)
	respondWithJSON(w, http.StatusOK, resp)
}

// handleStream upgrades to a websocket and sends the tokens of a single walk
// as they are generated. The walk stops early when the client disconnects.
func (a *WalkAPI) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := r.URL.Query()
	order := a.config.Walk.Order
	maxSteps := a.config.Walk.MaxSteps
	var randSeed uint64
	var err error
	if v := query.Get("order"); v != "" {
		if order, err = strconv.Atoi(v); err != nil || order <= 0 {
			respondWithError(w, http.StatusBadRequest, "order must be a positive integer")
			return
		}
	}
	if v := query.Get("max_steps"); v != "" {
		if maxSteps, err = strconv.Atoi(v); err != nil || maxSteps < 0 {
			respondWithError(w, http.StatusBadRequest, "max_steps must not be negative")
			return
		}
	}
	if v := query.Get("rand_seed"); v != "" {
		if randSeed, err = strconv.ParseUint(v, 10, 64); err != nil {
			respondWithError(w, http.StatusBadRequest, "rand_seed must be an unsigned integer")
			return
		}
	}
	corpusName := query.Get("corpus")
	if corpusName == "" {
		respondWithError(w, http.StatusBadRequest, "corpus is required")
		return
	}

	info, ok := lookupCorpus(w, r, a.store, a.logger, corpusName)
	if !ok {
		return
	}
	m, err := a.models.Get(r.Context(), info, order)
	if err != nil {
		a.logger.Error("Failed to build mapping", "name", corpusName, "order", order, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to build mapping: %v", err))
		return
	}

	plan := walkPlan{Seed: query.Get("seed"), Count: 1, RandSeed: randSeed}
	var seed []string
	if plan.Seed != "" {
		seed = a.store.Tokenizer().TokenizeString(plan.Seed)
		if len(seed) == 0 {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("seed %q contains no tokens", plan.Seed))
			return
		}
	}
	starts, err := startPartitions(m, seed, 1, plan.startChooser())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var rng markov.Chooser = markov.DefaultChooser()
	if newChooser := plan.walkChooser(); newChooser != nil {
		rng = newChooser(0)
	}

	a.streams.Add(1)
	defer a.streams.Add(-1)
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer func(conn *websocket.Conn) {
		_ = conn.Close()
	}(conn)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends anything; a failed read means it went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	walkID := uuid.NewString()
	logger := a.logger.With("walk_id", walkID)
	logger.Info("Streaming walk",
		slog.String("corpus_name", info.Name),
		slog.Int("order", order),
		slog.Int("max_steps", maxSteps),
	)

	sent := 0
	for token := range markov.Stream(ctx, starts[0], m, rng, markov.WithMaxSteps(maxSteps), markov.WithLogger(logger)) {
		if err = a.writeFrame(conn, StreamFrame{Type: "token", WalkID: walkID, Token: token}); err != nil {
			logger.Debug("Stream client write failed", "error", err)
			return
		}
		sent++
	}
	if ctx.Err() != nil {
		return
	}

	done := StreamFrame{Type: "done", WalkID: walkID, Steps: sent - len(starts[0])}
	if err = a.writeFrame(conn, done); err != nil {
		logger.Debug("Stream client write failed", "error", err)
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(a.writeTimeout))
}

// writeFrame sends a frame, failing if the client does not take it within the
// write timeout.
func (a *WalkAPI) writeFrame(conn *websocket.Conn, frame StreamFrame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(a.writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}
