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
)

type fakeGenPort struct {
	submitErr error
	statuses  map[string][]models.SideGenStatus // jobKey -> sequence of statuses to report
	pollIndex map[string]int
}

func newFakeGenPort() *fakeGenPort {
	return &fakeGenPort{statuses: map[string][]models.SideGenStatus{}, pollIndex: map[string]int{}}
}

func (f *fakeGenPort) SubmitJob(ctx context.Context, idempotentKey string, prompt string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "job-" + idempotentKey, nil
}

func (f *fakeGenPort) PollJob(ctx context.Context, jobKey string) (models.SideGenStatus, string, string, error) {
	seq := f.statuses[jobKey]
	i := f.pollIndex[jobKey]
	if i >= len(seq) {
		i = len(seq) - 1
	}
	f.pollIndex[jobKey]++
	if i < 0 {
		return models.SideGenCompleted, "", "", nil
	}
	return seq[i], "", "", nil
}

func (f *fakeGenPort) DownloadClip(ctx context.Context, jobKey string, dest string) error {
	return os.MkdirAll(filepath.Dir(dest), 0o755)
}

func TestOrchestratorStartWritesInitialJobsFile(t *testing.T) {
	gen := newFakeGenPort()
	o := New(gen, nil, nil, nil)
	workspaceDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(workspaceDir, "sidegen"), 0o755))

	run := models.NewRunId()
	handle, err := o.Start(context.Background(), run, workspaceDir, []GenerationPrompt{
		{Variant: "a", Text: "prompt a"},
		{Variant: "b", Text: "prompt b"},
	}, 5)
	require.NoError(t, err)
	defer handle.Cancel()

	jobs, err := loadJobs(workspaceDir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, models.SideGenGenerating, jobs[0].Status)
}

func TestOrchestratorCapsPromptsAtCeiling(t *testing.T) {
	gen := newFakeGenPort()
	o := New(gen, nil, nil, nil)
	workspaceDir := t.TempDir()

	prompts := []GenerationPrompt{{Variant: "a"}, {Variant: "b"}, {Variant: "c"}}
	handle, err := o.Start(context.Background(), models.NewRunId(), workspaceDir, prompts, 2)
	require.NoError(t, err)
	defer handle.Cancel()

	jobs, err := loadJobs(workspaceDir)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestAwaitGateNoOpWhenNoSidegenDir(t *testing.T) {
	gate := NewAwaitGate(newFakeGenPort(), nil, nil, time.Second)
	completed, err := gate.Run(context.Background(), models.NewRunId(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, completed)
}
