package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/djvaroli/cinemai/internal/agent"
	"github.com/djvaroli/cinemai/internal/graph"
	"github.com/djvaroli/cinemai/internal/memory"
	"github.com/djvaroli/cinemai/internal/observability"
	"github.com/djvaroli/cinemai/internal/session"
	"github.com/djvaroli/cinemai/internal/style"
)

type stubClassifier struct {
	cls agent.Classification
}

func (s *stubClassifier) Classify(_ context.Context, _ string, _ []memory.Turn) (agent.Classification, error) {
	return s.cls, nil
}

type stubTranslator struct{}

func (s *stubTranslator) Translate(_ context.Context, _, _ string, _ []memory.Turn) (graph.StructuredQuery, error) {
	return graph.StructuredQuery{Cypher: "MATCH (m:Movie) RETURN m.title LIMIT 1"}, nil
}

type stubExecutor struct{}

func (s *stubExecutor) Execute(_ context.Context, _ graph.StructuredQuery) (graph.QueryResult, error) {
	return graph.QueryResult{Records: []map[string]any{{"m.title": "The Matrix"}}}, nil
}

type stubComposer struct{}

func (s *stubComposer) Compose(_ context.Context, _, _ string, _ *style.Profile) (string, error) {
	return "The Matrix.", nil
}

type stubIntegrator struct{}

func (s *stubIntegrator) Integrate(_ context.Context, _ string, _ *style.Profile, _ int) (agent.FeedbackOutcome, error) {
	return agent.FeedbackOutcome{}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dispatcher := agent.NewDispatcher(
		&stubClassifier{cls: agent.Classification{Category: memory.CategoryQuery}},
		&stubTranslator{},
		&stubExecutor{},
		&stubComposer{},
		&stubIntegrator{},
		20,
	)
	sessions := session.NewManager(nil)
	metrics := observability.NewMetricsWith(prometheus.NewRegistry(), "cinemai_test")

	router := gin.New()
	registerRoutes(router, dispatcher, sessions, metrics, zap.NewNop())
	return router, sessions
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestCreateSession(t *testing.T) {
	router, sessions := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/session", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		SessionID string `json:"session_id"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.SessionID, 6)
	assert.Equal(t, 1, sessions.Count())
}

func TestChatInSession(t *testing.T) {
	router, sessions := newTestRouter(t)
	sess, err := sessions.CreateWithID(context.Background(), "abc123")
	assert.NoError(t, err)

	body := bytes.NewBufferString(`{"message": "What's a good movie?"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/session/abc123/chat", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Reply    string `json:"reply"`
		Category string `json:"category"`
		Seq      int    `json:"seq"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "The Matrix.", resp.Reply)
	assert.Equal(t, "Q", resp.Category)
	assert.Equal(t, 1, sess.Log.Len())
}

func TestChatRequiresMessage(t *testing.T) {
	router, sessions := newTestRouter(t)
	_, err := sessions.CreateWithID(context.Background(), "abc123")
	assert.NoError(t, err)

	body := bytes.NewBufferString(`{}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/session/abc123/chat", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatUnknownSession(t *testing.T) {
	router, _ := newTestRouter(t)

	body := bytes.NewBufferString(`{"message": "hello"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/session/nope99/chat", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionMemoryEndpoint(t *testing.T) {
	router, sessions := newTestRouter(t)
	sess, err := sessions.CreateWithID(context.Background(), "abc123")
	assert.NoError(t, err)
	sess.Log.Append(memory.Turn{Utterance: "hi", Reply: "hello", Category: memory.CategoryIrrelevant})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/session/abc123/memory", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello")
}

func TestSessionLocks_RemovedOnSessionEnd(t *testing.T) {
	locks := newSessionLocks()

	l1 := locks.lock("abc123")
	assert.Same(t, l1, locks.lock("abc123"))
	locks.lock("def456")
	assert.Len(t, locks.locks, 2)

	locks.remove("abc123")
	assert.Len(t, locks.locks, 1)

	// A later lock for the same ID is a fresh entry, not a leak of the old one
	assert.NotSame(t, l1, locks.lock("abc123"))
}

func TestEndSession(t *testing.T) {
	router, sessions := newTestRouter(t)
	_, err := sessions.CreateWithID(context.Background(), "abc123")
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/session/abc123", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, sessions.Count())

	// A second delete is a miss
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/session/abc123", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
