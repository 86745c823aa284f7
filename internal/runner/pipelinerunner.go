// Package runner implements the PipelineRunner and CrashRecoveryPlanner
// described in §4.13–§4.14: the top-level driver of one request through
// every pipeline stage, and the daemon-startup resume planner.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/eventbus"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/pipeline"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/qa"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/sidegen"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/workspace"
)

// DeliveryFunc consumes the final artifacts of a completed run and
// drives the messaging/file-delivery ports (§4.13 step 2: "DELIVERY
// invokes the delivery collaborator directly").
type DeliveryFunc func(ctx context.Context, handle *workspace.Handle, state *models.RunState) error

// ContentPromptsFunc extracts the side-generation prompts from the
// CONTENT stage's output artifact (§4.11).
type ContentPromptsFunc func(contentArtifactPath string) ([]sidegen.GenerationPrompt, error)

// Runner drives one request through every pipeline stage.
type Runner struct {
	workspaces     *workspace.Manager
	sm             *pipeline.StateMachine
	stageRunner    *pipeline.StageRunner
	sidegenOrch    *sidegen.Orchestrator
	awaitGate      *sidegen.AwaitGate
	bus            *eventbus.Bus
	delivery       DeliveryFunc
	contentPrompts ContentPromptsFunc
	sidegenCeiling int
	logger         *slog.Logger
}

// Option configures a Runner constructed with New.
type Option func(*Runner)

// WithSidegen enables the side-generation orchestrator and await gate.
func WithSidegen(orch *sidegen.Orchestrator, gate *sidegen.AwaitGate, contentPrompts ContentPromptsFunc, ceiling int) Option {
	return func(r *Runner) {
		r.sidegenOrch = orch
		r.awaitGate = gate
		r.contentPrompts = contentPrompts
		r.sidegenCeiling = ceiling
	}
}

// New constructs a Runner.
func New(
	workspaces *workspace.Manager,
	sm *pipeline.StateMachine,
	stageRunner *pipeline.StageRunner,
	bus *eventbus.Bus,
	delivery DeliveryFunc,
	logger *slog.Logger,
	opts ...Option,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{workspaces: workspaces, sm: sm, stageRunner: stageRunner, bus: bus, delivery: delivery, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drives req through the pipeline from its current (or initial)
// stage to DELIVERY, or to the first unrecoverable failure.
func (r *Runner) Run(ctx context.Context, req models.Request) (err error) {
	handle, err := r.workspaces.Acquire(req.RunId, req.Fingerprint())
	if err != nil {
		return fmt.Errorf("acquiring workspace for run %s: %w", req.RunId, err)
	}
	defer func() {
		if releaseErr := handle.Release(); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	var sidegenHandle *sidegen.Handle
	defer func() {
		if sidegenHandle != nil {
			sidegenHandle.Cancel()
		}
	}()

	state := handle.State
	var priorArtifacts []qa.Artifact

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stage := state.CurrentStage

		switch stage {
		case models.StageDelivery:
			if r.delivery == nil {
				return fmt.Errorf("no delivery collaborator configured")
			}
			if err := r.delivery(ctx, handle, state); err != nil {
				r.publishFailure(ctx, req.RunId, stage, err)
				return fmt.Errorf("delivery failed: %w", err)
			}
			state.MarkCompleted(models.StageDelivery)
			return nil

		case models.StageSidegenAwait:
			if r.awaitGate != nil {
				if _, err := r.awaitGate.Run(ctx, req.RunId, handle.Dir()); err != nil {
					r.publishFailure(ctx, req.RunId, stage, err)
					return fmt.Errorf("sidegen await gate failed: %w", err)
				}
			}
			if _, err := r.sm.Advance(state, pipeline.SignalGateComplete); err != nil {
				return err
			}
			if err := handle.Release(); err != nil {
				return err
			}
			r.publishCompleted(ctx, req.RunId, stage)

		default:
			entry, ok := pipeline.DispatchTable[stage]
			if !ok {
				return fmt.Errorf("no dispatch table entry for stage %s", stage)
			}

			artifactPath, err := r.stageRunner.Run(ctx, pipeline.StageInput{
				Run: req.RunId, State: state, Stage: stage, Entry: entry,
				Criteria: entry.QAGateName, Request: req,
				PriorArtifacts: priorArtifacts, WorkspaceDir: handle.Dir(),
			})
			if err != nil {
				return err
			}

			content, readErr := os.ReadFile(artifactPath)
			if readErr == nil {
				priorArtifacts = append(priorArtifacts, qa.Artifact{Path: artifactPath, Content: content})
			}

			if stage == models.StageContent && r.sidegenOrch != nil && r.contentPrompts != nil {
				prompts, err := r.contentPrompts(artifactPath)
				if err != nil {
					r.logger.Warn("failed to extract side-generation prompts", slog.Any("error", err))
				} else if len(prompts) > 0 {
					h, err := r.sidegenOrch.Start(ctx, req.RunId, handle.Dir(), prompts, r.sidegenCeiling)
					if err != nil {
						r.logger.Warn("failed to start side-generation orchestrator", slog.Any("error", err))
					} else {
						sidegenHandle = h
					}
				}
			}

			if _, err := r.sm.Advance(state, pipeline.SignalQAPass); err != nil {
				return err
			}
			if err := handle.Release(); err != nil {
				return err
			}
			r.publishCompleted(ctx, req.RunId, stage)
		}
	}
}

func (r *Runner) publishFailure(ctx context.Context, run models.RunId, stage models.PipelineStage, cause error) {
	if r.bus == nil {
		return
	}
	event, err := models.NewEvent(models.EventStageFailed, stage, map[string]string{"run_id": run.String(), "error": cause.Error()})
	if err != nil {
		return
	}
	r.bus.Publish(ctx, event)
}

// publishCompleted fires `stage_completed` only after StateMachine.Advance
// and Handle.Release have both succeeded, so the event never precedes the
// persisted stages_completed update it describes (§4.10).
func (r *Runner) publishCompleted(ctx context.Context, run models.RunId, stage models.PipelineStage) {
	if r.bus == nil {
		return
	}
	event, err := models.NewEvent(models.EventStageCompleted, stage, map[string]string{"run_id": run.String()})
	if err != nil {
		r.logger.Warn("failed to build stage_completed event", slog.Any("error", err))
		return
	}
	r.bus.Publish(ctx, event)
}
