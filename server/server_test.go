package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_digest_publisher/digest"
	"auto_digest_publisher/pipeline"
	"auto_digest_publisher/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockRunner struct {
	RunFunc func(ctx context.Context) (pipeline.Result, error)
}

func (m *mockRunner) Run(ctx context.Context) (pipeline.Result, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return pipeline.Result{}, nil
}

type mockIssues struct {
	BySlugFunc func(ctx context.Context, slug string) (digest.Stored, error)
	PingFunc   func(ctx context.Context) error
}

func (m *mockIssues) IssueBySlug(ctx context.Context, slug string) (digest.Stored, error) {
	if m.BySlugFunc != nil {
		return m.BySlugFunc(ctx, slug)
	}
	return digest.Stored{}, fmt.Errorf("issue %s: %w", slug, store.ErrNotFound)
}

func (m *mockIssues) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

var createdAt = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func storedIssue() digest.Stored {
	return digest.Stored{
		Issue: digest.IssueRecord{
			ID: "iss-1", Sequence: 12, CycleIndex: 11, Year: 2026, Title: "Small Wins",
			Slug: "issue-12-2026-03-10", Note: "Dear dads", Status: digest.StatusDraft,
			CreatedAt: createdAt, ArchiveURL: "https://cdn.example.com/issues/issue-12-2026-03-10.html",
		},
		Articles: []digest.ArticleRecord{
			{Position: 1, Type: digest.TypeMainColumn, Title: "Fear Is Data", Body: "Start small.", AuthorName: "Dr. Marcus Chen"},
			{Position: 2, Type: digest.TypeWildcard, Title: "Up at Five", Body: "Coffee first."},
		},
		Tips: []digest.TipRecord{{Position: 1, Title: "Walk", Content: "Ten minutes.", Category: "lifestyle"}},
	}
}

func newTestServer(t *testing.T, runner CycleRunner, issues Issues) *Server {
	t.Helper()
	s, err := New(runner, issues, Options{SiteURL: "https://dads.example.com", Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	return s
}

func do(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)
	return w
}

func TestRunCycle(t *testing.T) {
	runner := &mockRunner{RunFunc: func(ctx context.Context) (pipeline.Result, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return pipeline.Result{IssueID: "iss-1", Sequence: 12, Slug: "issue-12-2026-03-10"}, nil
	}}
	s := newTestServer(t, runner, &mockIssues{})

	w := do(s, http.MethodPost, "/api/cycles")
	require.Equal(t, http.StatusCreated, w.Code)

	var body cycleResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "iss-1", body.IssueID)
	assert.Equal(t, 12, body.Sequence)
	assert.Equal(t, "issue-12-2026-03-10", body.Slug)
}

func TestRunCycleFailure(t *testing.T) {
	runner := &mockRunner{RunFunc: func(context.Context) (pipeline.Result, error) {
		return pipeline.Result{}, &pipeline.StageError{Stage: pipeline.StageMain, Err: errors.New("upstream down")}
	}}
	s := newTestServer(t, runner, &mockIssues{})

	w := do(s, http.MethodPost, "/api/cycles")
	require.Equal(t, http.StatusBadGateway, w.Code)

	var body cycleResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, string(pipeline.StageMain), body.Stage)
	assert.Contains(t, body.Error, "upstream down")
}

func TestRunCycleRejectsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	runner := &mockRunner{RunFunc: func(context.Context) (pipeline.Result, error) {
		close(started)
		<-release
		return pipeline.Result{IssueID: "iss-1"}, nil
	}}
	s := newTestServer(t, runner, &mockIssues{})

	done := make(chan int)
	go func() { done <- do(s, http.MethodPost, "/api/cycles").Code }()
	<-started

	w := do(s, http.MethodPost, "/api/cycles")
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	assert.Equal(t, http.StatusCreated, <-done)
}

func TestGetIssue(t *testing.T) {
	issues := &mockIssues{BySlugFunc: func(_ context.Context, slug string) (digest.Stored, error) {
		assert.Equal(t, "issue-12-2026-03-10", slug)
		return storedIssue(), nil
	}}
	s := newTestServer(t, &mockRunner{}, issues)

	w := do(s, http.MethodGet, "/api/issues/issue-12-2026-03-10")
	require.Equal(t, http.StatusOK, w.Code)

	var body issueResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "iss-1", body.ID)
	assert.Equal(t, digest.StatusDraft, body.Status)
	assert.Equal(t, "Small Wins", body.Digest.Title)
	require.Len(t, body.Digest.Main, 1)
	assert.Equal(t, "Up at Five", body.Digest.Wildcard.Title)
	assert.Nil(t, body.PublishedAt)
}

func TestGetIssueNotFound(t *testing.T) {
	s := newTestServer(t, &mockRunner{}, &mockIssues{})
	w := do(s, http.MethodGet, "/api/issues/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodGet, "/api/issues/nope/html")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetIssueStoreError(t *testing.T) {
	issues := &mockIssues{BySlugFunc: func(context.Context, string) (digest.Stored, error) {
		return digest.Stored{}, errors.New("disk I/O error")
	}}
	s := newTestServer(t, &mockRunner{}, issues)
	w := do(s, http.MethodGet, "/api/issues/x")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetIssueHTML(t *testing.T) {
	issues := &mockIssues{BySlugFunc: func(context.Context, string) (digest.Stored, error) {
		return storedIssue(), nil
	}}
	s := newTestServer(t, &mockRunner{}, issues)

	w := do(s, http.MethodGet, "/api/issues/issue-12-2026-03-10/html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "Fear Is Data")
	assert.Contains(t, w.Body.String(), "https://dads.example.com/unsubscribe")
	assert.Contains(t, w.Body.String(), "https://cdn.example.com/issues/issue-12-2026-03-10.html")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &mockRunner{}, &mockIssues{})
	w := do(s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	s = newTestServer(t, &mockRunner{}, &mockIssues{PingFunc: func(context.Context) error { return errors.New("closed") }})
	w = do(s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(nil, &mockIssues{}, Options{})
	assert.Error(t, err)
	_, err = New(&mockRunner{}, nil, Options{})
	assert.Error(t, err)
}
