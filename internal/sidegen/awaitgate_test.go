package sidegen

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/store"
)

func seedJobs(t *testing.T, workspaceDir string, jobs []models.SideGenJob) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(workspaceDir, "sidegen"), 0o755))
	require.NoError(t, saveJobs(store.New(), workspaceDir, jobs))
}

func TestAwaitGateWaitsForJobsToCompleteThenAdvances(t *testing.T) {
	workspaceDir := t.TempDir()
	seedJobs(t, workspaceDir, []models.SideGenJob{
		{IdempotentKey: "r_a", Variant: "a", Status: models.SideGenGenerating, ProviderJobKey: "job-a"},
	})

	gen := newFakeGenPort()
	gen.statuses["job-a"] = []models.SideGenStatus{models.SideGenCompleted}

	gate := NewAwaitGate(gen, nil, nil, time.Minute)
	completed, err := gate.Run(context.Background(), models.RunId("r"), workspaceDir)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
}

func TestAwaitGateRetriesOnceWhenAllFailuresAreRetriable(t *testing.T) {
	workspaceDir := t.TempDir()
	seedJobs(t, workspaceDir, []models.SideGenJob{
		{IdempotentKey: "r_a", Variant: "a", Status: models.SideGenFailed, ErrorCode: "rate_limited", PromptText: "prompt a"},
	})

	gen := newFakeGenPort()
	gen.statuses["job-r_a"] = []models.SideGenStatus{models.SideGenCompleted}

	gate := NewAwaitGate(gen, nil, nil, time.Minute)
	completed, err := gate.Run(context.Background(), models.RunId("r"), workspaceDir)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	jobs, err := loadJobs(workspaceDir)
	require.NoError(t, err)
	assert.True(t, jobs[0].RetriedOnce)
}

func TestAwaitGateDoesNotRetryPermanentFailures(t *testing.T) {
	workspaceDir := t.TempDir()
	seedJobs(t, workspaceDir, []models.SideGenJob{
		{IdempotentKey: "r_a", Variant: "a", Status: models.SideGenFailed, ErrorCode: "download_failed"},
	})

	gate := NewAwaitGate(newFakeGenPort(), nil, nil, time.Minute)
	completed, err := gate.Run(context.Background(), models.RunId("r"), workspaceDir)
	require.NoError(t, err)
	assert.Equal(t, 0, completed)

	jobs, err := loadJobs(workspaceDir)
	require.NoError(t, err)
	assert.False(t, jobs[0].RetriedOnce)
}

func TestAwaitGateTimesOutWhenJobsNeverTerminate(t *testing.T) {
	workspaceDir := t.TempDir()
	seedJobs(t, workspaceDir, []models.SideGenJob{
		{IdempotentKey: "r_a", Variant: "a", Status: models.SideGenGenerating, ProviderJobKey: "job-a"},
	})

	gen := newFakeGenPort()
	gen.statuses["job-a"] = []models.SideGenStatus{models.SideGenGenerating, models.SideGenGenerating, models.SideGenGenerating}

	gate := NewAwaitGate(gen, nil, nil, 2*time.Millisecond)
	completed, err := gate.Run(context.Background(), models.RunId("r"), workspaceDir)
	require.NoError(t, err)
	assert.Equal(t, 0, completed)
}
