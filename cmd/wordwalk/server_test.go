package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/CTAG07/wordwalk/pkg/corpus"
)

// doRequest sends a request to the test server and returns the status code and body.
func doRequest(t *testing.T, method, url string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func postJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return doRequest(t, http.MethodPost, url, bytes.NewReader(data))
}

func TestHealth(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, Version, health.Version)

	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/api/health", nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, "GET", resp.Header.Get("Allow"))
}

func TestCorpusLifecycle(t *testing.T) {
	ts, _ := setupTestServer(t)
	base := ts.URL + "/api/corpora"

	// Create
	resp, body := postJSON(t, base, CreateCorpusRequest{Name: "abc", Source: "inline"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created corpus.Info
	require.NoError(t, json.Unmarshal(body, &created))
	require.Equal(t, "abc", created.Name)
	require.NotZero(t, created.Id)

	resp, _ = postJSON(t, base, CreateCorpusRequest{Name: "abc"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = postJSON(t, base, CreateCorpusRequest{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Ingest
	resp, body = doRequest(t, http.MethodPost, base+"/abc/ingest", strings.NewReader("A b, c."))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var ingested IngestResponse
	require.NoError(t, json.Unmarshal(body, &ingested))
	require.Equal(t, 3, ingested.TokensAdded)

	// List
	resp, body = doRequest(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []corpus.Info
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	// Stats
	resp, body = doRequest(t, http.MethodGet, base+"/abc/stats?order=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var stats CorpusStatsResponse
	require.NoError(t, json.Unmarshal(body, &stats))
	require.Equal(t, 3, stats.Tokens)
	require.Equal(t, 3, stats.DistinctTokens)
	require.NotNil(t, stats.Mapping)
	require.Equal(t, 2, stats.Mapping.Partitions)
	require.Equal(t, 1, stats.Mapping.DeadEnds)

	resp, _ = doRequest(t, http.MethodGet, base+"/abc/stats?order=zero", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Export
	resp, exported := doRequest(t, http.MethodGet, base+"/abc/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Disposition"), "abc.json")

	// Delete
	resp, _ = doRequest(t, http.MethodDelete, base+"/abc", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = doRequest(t, http.MethodGet, base+"/abc", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Import brings it back
	resp, body = doRequest(t, http.MethodPost, base+"/import", bytes.NewReader(exported))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	resp, body = doRequest(t, http.MethodGet, base+"/abc/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var importedStats CorpusStatsResponse
	require.NoError(t, json.Unmarshal(body, &importedStats))
	require.Equal(t, 3, importedStats.Tokens)
	require.Nil(t, importedStats.Mapping)

	resp, _ = doRequest(t, http.MethodPost, base+"/import", strings.NewReader("not json"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Routing errors
	resp, _ = doRequest(t, http.MethodPut, base, nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, "GET, POST", resp.Header.Get("Allow"))
	resp, _ = doRequest(t, http.MethodGet, base+"/abc/unknown", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = doRequest(t, http.MethodGet, base+"/abc/ingest", nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWalkEndpoint(t *testing.T) {
	ts, server := setupTestServer(t)
	ingestTestCorpus(t, server.store, "abc", "a b c")
	url := ts.URL + "/api/walk"

	resp, body := postJSON(t, url, WalkRequest{Corpus: "abc", Order: 1, Seed: "A", MaxSteps: 10})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var walk WalkResponse
	require.NoError(t, json.Unmarshal(body, &walk))
	_, err := uuid.Parse(walk.WalkID)
	require.NoError(t, err)
	require.Equal(t, "abc", walk.Corpus)
	require.Equal(t, 1, walk.Order)
	require.Equal(t, []WalkResult{{Tokens: []string{"a", "b", "c"}, Text: "a b c"}}, walk.Walks)

	tests := []struct {
		name string
		req  WalkRequest
		code int
	}{
		{"missing max_steps", WalkRequest{Corpus: "abc", Order: 1}, http.StatusBadRequest},
		{"too many steps", WalkRequest{Corpus: "abc", Order: 1, MaxSteps: maxWalkSteps + 1}, http.StatusBadRequest},
		{"missing corpus", WalkRequest{Order: 1, MaxSteps: 5}, http.StatusBadRequest},
		{"unknown corpus", WalkRequest{Corpus: "nope", Order: 1, MaxSteps: 5}, http.StatusNotFound},
		{"seed of wrong length", WalkRequest{Corpus: "abc", Order: 1, Seed: "a b", MaxSteps: 5}, http.StatusBadRequest},
		{"order too large", WalkRequest{Corpus: "abc", Order: 3, MaxSteps: 5}, http.StatusBadRequest},
		{"too many walks", WalkRequest{Corpus: "abc", Order: 1, MaxSteps: 5, Count: maxWalkCount + 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, url, tt.req)
			require.Equal(t, tt.code, resp.StatusCode, string(body))
		})
	}

	resp, body = postJSON(t, url, WalkRequest{Corpus: "abc", Order: 1, MaxSteps: maxWalkSteps})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _ = doRequest(t, http.MethodGet, url, nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWalkEndpointSeededBatch(t *testing.T) {
	ts, server := setupTestServer(t)
	ingestTestCorpus(t, server.store, "cats", strings.Join(walkTestTokens, " "))

	req := WalkRequest{Corpus: "cats", Order: 1, MaxSteps: 8, Count: 5, RandSeed: 99}
	var first, second WalkResponse

	_, body := postJSON(t, ts.URL+"/api/walk", req)
	require.NoError(t, json.Unmarshal(body, &first))
	_, body = postJSON(t, ts.URL+"/api/walk", req)
	require.NoError(t, json.Unmarshal(body, &second))

	require.Len(t, first.Walks, 5)
	require.Equal(t, first.Walks, second.Walks)
	require.NotEqual(t, first.WalkID, second.WalkID)
	for _, w := range first.Walks {
		require.LessOrEqual(t, len(w.Tokens), 1+req.MaxSteps)
	}
}

// readFrames reads stream frames until the "done" frame or an error.
func readFrames(t *testing.T, conn *websocket.Conn) ([]string, StreamFrame) {
	t.Helper()
	var tokens []string
	for {
		var frame StreamFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == "done" {
			return tokens, frame
		}
		require.Equal(t, "token", frame.Type)
		tokens = append(tokens, frame.Token)
	}
}

func TestWalkStream(t *testing.T) {
	ts, server := setupTestServer(t)
	ingestTestCorpus(t, server.store, "abc", "a b c")
	ingestTestCorpus(t, server.store, "loop", "x y x y")
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/walk/stream"

	t.Run("ends at dead end", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?corpus=abc&order=1&seed=a", nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()

		tokens, done := readFrames(t, conn)
		require.Equal(t, []string{"a", "b", "c"}, tokens)
		require.Equal(t, 2, done.Steps)
	})

	t.Run("cycle is bounded by max_steps", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?corpus=loop&order=1&seed=x&max_steps=5", nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()

		tokens, done := readFrames(t, conn)
		require.Equal(t, []string{"x", "y", "x", "y", "x", "y"}, tokens)
		require.Equal(t, 5, done.Steps)
	})

	t.Run("bad request before upgrade", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?corpus=missing", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestWalkStreamDropsStalledClient(t *testing.T) {
	ts, server := setupTestServer(t)
	server.walkAPI.writeTimeout = 50 * time.Millisecond
	ingestTestCorpus(t, server.store, "loop", "x y x y")
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/walk/stream"

	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := (&net.Dialer{}).DialContext(ctx, network, addr)
			if tcp, ok := conn.(*net.TCPConn); ok {
				_ = tcp.SetReadBuffer(1024)
			}
			return conn, err
		},
	}
	// An unbounded walk over a cycle to a client that never reads.
	conn, _, err := dialer.Dial(wsURL+"?corpus=loop&order=1&seed=x", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.EqualValues(t, 1, server.walkAPI.streams.Load())

	require.Eventually(t, func() bool {
		return server.walkAPI.streams.Load() == 0
	}, 10*time.Second, 20*time.Millisecond)
}
