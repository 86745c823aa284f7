package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

func TestAdvanceFollowsCanonicalOrderOnQAPass(t *testing.T) {
	sm := New()
	state := models.NewRunState(models.NewRunId(), "fp")

	next, err := sm.Advance(state, SignalQAPass)
	require.NoError(t, err)
	assert.Equal(t, models.StageResearch, next)
	assert.True(t, state.HasCompleted(models.StageRouter))
}

func TestAdvanceFromFFmpegEngineerGoesToSidegenAwait(t *testing.T) {
	sm := New()
	state := models.NewRunState(models.NewRunId(), "fp")
	state.CurrentStage = models.StageFFmpegEngineer

	next, err := sm.Advance(state, SignalQAPass)
	require.NoError(t, err)
	assert.Equal(t, models.StageSidegenAwait, next)
}

func TestAdvanceFromSidegenAwaitRequiresGateComplete(t *testing.T) {
	sm := New()
	state := models.NewRunState(models.NewRunId(), "fp")
	state.CurrentStage = models.StageSidegenAwait

	_, err := sm.Advance(state, SignalQAPass)
	assert.Error(t, err, "SIDEGEN_AWAIT only advances on gate_complete")

	next, err := sm.Advance(state, SignalGateComplete)
	require.NoError(t, err)
	assert.Equal(t, models.StageAssembly, next)
}

func TestAdvanceFromTerminalStageIsIllegal(t *testing.T) {
	sm := New()
	state := models.NewRunState(models.NewRunId(), "fp")
	state.CurrentStage = models.StageDelivery

	_, err := sm.Advance(state, SignalQAPass)
	assert.Error(t, err)
}
