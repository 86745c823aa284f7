package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	s := New(root, nil)

	run := models.NewRunId()
	state := models.NewRunState(run, "fp-123")
	state.MarkCompleted(models.StageRouter)

	require.NoError(t, s.SaveState(run, state))

	loaded, found, err := s.LoadState(run)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, run, loaded.RunId)
	assert.Equal(t, "fp-123", loaded.RequestFingerprint)
	assert.True(t, loaded.HasCompleted(models.StageRouter))
	assert.Equal(t, models.StageResearch, loaded.CurrentStage)
}

func TestLoadStateMissingReturnsNotFound(t *testing.T) {
	s := New(t.TempDir(), nil)
	state, found, err := s.LoadState(models.RunId("nope"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, state)
}

func TestSaveStatePreservesUnknownFrontMatterKeysAndBody(t *testing.T) {
	root := t.TempDir()
	s := New(root, nil)
	run := models.RunId("20260101-000000-000000-abcd1234")

	path := s.metadataPath(run)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	seed := "---\nrun_id: " + run.String() + "\ncurrent_stage: ROUTER\nstages_completed: []\noperator_note: keep-me\n---\nProgress notes written by a human.\n"
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	state := models.NewRunState(run, "fp")
	require.NoError(t, s.SaveState(run, state))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "operator_note: keep-me")
	assert.True(t, strings.Contains(string(raw), "Progress notes written by a human."))
}

func TestListIncompleteRunsExcludesTerminalRuns(t *testing.T) {
	root := t.TempDir()
	s := New(root, nil)

	done := models.NewRunId()
	doneState := models.NewRunState(done, "fp")
	for _, stage := range models.StageOrder {
		doneState.MarkCompleted(stage)
	}
	require.NoError(t, s.SaveState(done, doneState))

	inflight := models.RunId(done.String() + "x")
	inflightState := models.NewRunState(inflight, "fp2")
	inflightState.MarkCompleted(models.StageRouter)
	require.NoError(t, s.SaveState(inflight, inflightState))

	incomplete, err := s.ListIncompleteRuns()
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.Equal(t, inflight, incomplete[0].RunId)
}

func TestAppendEventWritesJournalLineFormat(t *testing.T) {
	s := New(t.TempDir(), nil)
	run := models.NewRunId()
	event, err := models.NewEvent(models.EventStageEntered, models.StageRouter, map[string]string{"k": "v"})
	require.NoError(t, err)

	require.NoError(t, s.AppendEvent(run, event))

	raw, err := os.ReadFile(s.journalPath(run))
	require.NoError(t, err)
	parts := strings.SplitN(strings.TrimRight(string(raw), "\n"), " | ", 4)
	require.Len(t, parts, 4)
	assert.Equal(t, models.EventStageEntered, parts[1])
	assert.Equal(t, "ROUTER", parts[2])
	assert.JSONEq(t, `{"k":"v"}`, parts[3])
}
