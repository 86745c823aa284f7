package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/checkpoint"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	runsDir := filepath.Join(root, "runs")
	cp := checkpoint.New(runsDir, nil)
	return New(runsDir, cp), runsDir
}

func TestAcquireCreatesDirectoryAndFreshState(t *testing.T) {
	m, runsDir := newTestManager(t)
	run := models.NewRunId()

	h, err := m.Acquire(run, "fp")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(runsDir, run.String()))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, run, h.State.RunId)
	assert.Equal(t, "fp", h.State.RequestFingerprint)
}

func TestReleasePersistsStateForNextAcquire(t *testing.T) {
	m, _ := newTestManager(t)
	run := models.NewRunId()

	h, err := m.Acquire(run, "fp")
	require.NoError(t, err)
	h.State.MarkCompleted(models.StageRouter)
	require.NoError(t, h.Release())

	h2, err := m.Acquire(run, "fp")
	require.NoError(t, err)
	assert.True(t, h2.State.HasCompleted(models.StageRouter))
}

func TestListWorkspacesSortedAscending(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Acquire(models.RunId("b-run"), "fp")
	require.NoError(t, err)
	_, err = m.Acquire(models.RunId("a-run"), "fp")
	require.NoError(t, err)

	runs, err := m.ListWorkspaces()
	require.NoError(t, err)
	assert.Equal(t, []models.RunId{"a-run", "b-run"}, runs)
}

func TestPathJoinsUnderRunDir(t *testing.T) {
	m, _ := newTestManager(t)
	h, err := m.Acquire(models.RunId("r1"), "fp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(h.Dir(), "artifacts", "out.mp4"), h.Path("artifacts", "out.mp4"))
}
