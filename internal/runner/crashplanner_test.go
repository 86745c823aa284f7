package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/checkpoint"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/eventbus"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

func TestPlanComputesResumeFromFirstIncompleteStage(t *testing.T) {
	cp := checkpoint.New(t.TempDir(), nil)
	run := models.NewRunId()
	state := models.NewRunState(run, "fp")
	state.MarkCompleted(models.StageRouter)
	state.MarkCompleted(models.StageResearch)
	require.NoError(t, cp.SaveState(run, state))

	planner := NewCrashRecoveryPlanner(cp, nil, nil, nil)
	plans, err := planner.Plan(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, models.StageTranscript, plans[0].ResumeFrom)
	assert.Len(t, plans[0].StagesCompleted, 2)
}

func TestPlanPublishesResumePlannedEvent(t *testing.T) {
	cp := checkpoint.New(t.TempDir(), nil)
	run := models.NewRunId()
	state := models.NewRunState(run, "fp")
	state.MarkCompleted(models.StageRouter)
	state.MarkCompleted(models.StageResearch)
	require.NoError(t, cp.SaveState(run, state))

	bus := eventbus.New(nil)
	var events []models.PipelineEvent
	bus.Subscribe(eventbus.ListenerFunc(func(_ context.Context, e models.PipelineEvent) error {
		events = append(events, e)
		return nil
	}))

	planner := NewCrashRecoveryPlanner(cp, nil, bus, nil)
	_, err := planner.Plan(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, models.EventResumePlanned, events[0].Name)
	assert.Equal(t, models.StageTranscript, events[0].Stage)
	runID, ok := events[0].RunID()
	require.True(t, ok)
	assert.Equal(t, run.String(), runID)
}

func TestValidateCLIResumeRejectsStartStageWithoutResumePath(t *testing.T) {
	err := ValidateCLIResume("", 3, func(string) bool { return true })
	assert.Error(t, err)
}

func TestValidateCLIResumeRejectsMissingResumePath(t *testing.T) {
	err := ValidateCLIResume("/does/not/exist", 2, func(string) bool { return false })
	assert.Error(t, err)
}

func TestValidateCLIResumeRejectsOutOfRangeStartStage(t *testing.T) {
	err := ValidateCLIResume("", 99, func(string) bool { return true })
	assert.Error(t, err)
}

func TestValidateCLIResumeAcceptsValidInput(t *testing.T) {
	err := ValidateCLIResume("/tmp/resume.md", 2, func(string) bool { return true })
	assert.NoError(t, err)
}
