// Package pipeline implements the PipelineStateMachine and StageRunner
// described in §4.9–§4.10: an explicit transition table driving the
// nine pipeline stages, and a generic per-stage execution algorithm
// that never hard-codes stage-specific behaviour.
package pipeline

import (
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/errs"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

// Signal names accepted by the state machine.
const (
	SignalQAPass       = "qa_pass"
	SignalGateComplete = "gate_complete"
)

type edge struct {
	stage  models.PipelineStage
	signal string
}

// transitions is the explicit (stage, signal) -> next_stage table named
// in §4.10. Every stage but FFMPEG_ENGINEER and SIDEGEN_AWAIT follows
// the canonical stage order on "qa_pass"; those two carry the special
// edges into and out of SIDEGEN_AWAIT.
var transitions = buildTransitions()

func buildTransitions() map[edge]models.PipelineStage {
	t := make(map[edge]models.PipelineStage)
	for _, stage := range models.StageOrder {
		next, ok := stage.Next()
		if !ok {
			continue
		}
		if stage == models.StageFFmpegEngineer {
			t[edge{stage, SignalQAPass}] = models.StageSidegenAwait
			continue
		}
		if stage == models.StageSidegenAwait {
			// SIDEGEN_AWAIT advances on gate_complete, not qa_pass.
			continue
		}
		t[edge{stage, SignalQAPass}] = next
	}
	t[edge{models.StageSidegenAwait, SignalGateComplete}] = models.StageAssembly
	return t
}

// StateMachine validates and applies stage transitions for one run.
type StateMachine struct{}

// New constructs a StateMachine.
func New() *StateMachine {
	return &StateMachine{}
}

// Advance validates signal against state's current stage and, if legal,
// marks the current stage completed (advancing RunState.CurrentStage)
// and returns the new stage. Illegal edges raise a TransitionError
// (§4.10).
func (m *StateMachine) Advance(state *models.RunState, signal string) (models.PipelineStage, error) {
	current := state.CurrentStage
	next, ok := transitions[edge{current, signal}]
	if !ok {
		return "", errs.NewTransitionError(string(current)+"/"+signal, "")
	}
	state.MarkCompleted(current)
	return next, nil
}
