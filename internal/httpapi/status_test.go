package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/checkpoint"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/queue"
)

func TestHealthzReportsOK(t *testing.T) {
	cp := checkpoint.New(t.TempDir(), nil)
	status := NewStatusHandler(cp, nil, "test")
	srv := NewServer(DefaultConfig(), status, nil, "test")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatusReportsIncompleteRunsAndQueueDepth(t *testing.T) {
	runsDir := t.TempDir()
	cp := checkpoint.New(runsDir, nil)
	run := models.NewRunId()
	state := models.NewRunState(run, "fp")
	state.MarkCompleted(models.StageRouter)
	require.NoError(t, cp.SaveState(run, state))

	q, err := queue.New(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(models.Request{RunId: models.NewRunId(), SourceURL: "https://example.com"}))

	status := NewStatusHandler(cp, q, "test")
	srv := NewServer(DefaultConfig(), status, nil, "test")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		IncompleteRuns []RunSummary `json:"incomplete_runs"`
		QueueDepth     int          `json:"queue_depth"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.IncompleteRuns, 1)
	assert.Equal(t, string(models.StageResearch), body.IncompleteRuns[0].CurrentStage)
	assert.Equal(t, 1, body.QueueDepth)
}
