package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/eventbus"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/ports"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/qa"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/recovery"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/store"
)

// DefaultMaxAttempts is the default bound on REWORK re-invocations per
// stage invocation before delegating to the RecoveryChain (§4.7).
const DefaultMaxAttempts = 3

// DocumentLoader resolves a workflow/agent-definition document by path
// to its text contents.
type DocumentLoader interface {
	Load(path string) (string, error)
}

// StageInput carries everything one StageRunner.Run call needs.
type StageInput struct {
	Run            models.RunId
	State          *models.RunState
	Stage          models.PipelineStage
	Entry          DispatchEntry
	Criteria       string
	Request        models.Request
	PriorArtifacts []qa.Artifact
	WorkspaceDir   string
}

// StageRunner drives the generic per-stage algorithm of §4.9. It never
// hard-codes stage-specific behaviour; everything that differs between
// stages is carried by the DispatchEntry and StageInput.
type StageRunner struct {
	bus          *eventbus.Bus
	checkpoint   ports.StateStorePort
	atomic       *store.AtomicStore
	docs         DocumentLoader
	dispatch     ports.AgentDispatchPort
	qaGate       *qa.Gate
	chain        *recovery.Chain
	agentTimeout time.Duration
	maxAttempts  int
	logger       *slog.Logger
}

// NewStageRunner constructs a StageRunner. atomic may be nil to use a
// default AtomicStore.
func NewStageRunner(
	bus *eventbus.Bus,
	checkpoint ports.StateStorePort,
	atomic *store.AtomicStore,
	docs DocumentLoader,
	dispatch ports.AgentDispatchPort,
	qaGate *qa.Gate,
	chain *recovery.Chain,
	agentTimeout time.Duration,
	maxAttempts int,
	logger *slog.Logger,
) *StageRunner {
	if atomic == nil {
		atomic = store.New()
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StageRunner{
		bus: bus, checkpoint: checkpoint, atomic: atomic, docs: docs,
		dispatch: dispatch, qaGate: qaGate, chain: chain,
		agentTimeout: agentTimeout, maxAttempts: maxAttempts, logger: logger,
	}
}

// Run executes one stage to a terminal outcome: the approved artifact
// path on success, or an execution error after recovery exhaustion. It
// never publishes `stage_completed` itself: per §4.10, that event fires
// only once the caller has advanced the state machine and persisted the
// run, so the caller publishes it after StateMachine.Advance and
// Handle.Release both succeed.
func (r *StageRunner) Run(ctx context.Context, in StageInput) (string, error) {
	r.publish(ctx, in.Run, in.Stage, models.EventStageEntered, nil)

	artifactPath, err := r.runWithQA(ctx, in, "")
	if err == nil {
		r.publish(ctx, in.Run, in.Stage, models.EventQAGatePassed, nil)
		in.State.ResetAttempts(in.Stage)
		return artifactPath, nil
	}

	result := r.chain.Run(ctx, in.Run, in.Stage, func(ctx context.Context, level models.RecoveryLevel) (string, error) {
		if level == models.RecoveryFresh {
			in.PriorArtifacts = nil
		}
		in.State.ResetAttempts(in.Stage)
		return r.runWithQA(ctx, in, "")
	})

	if result.Succeeded {
		in.State.ResetAttempts(in.Stage)
		return result.FinalArtifact, nil
	}

	r.publish(ctx, in.Run, in.Stage, models.EventStageFailed, map[string]string{"reason": err.Error()})
	return "", fmt.Errorf("stage %s failed after recovery exhaustion: %w", in.Stage, err)
}

// runWithQA loops agent dispatch -> QA critique up to maxAttempts,
// re-invoking the agent with prescriptive fixes on REWORK (§4.9 steps
// 2-6).
func (r *StageRunner) runWithQA(ctx context.Context, in StageInput, extraContext string) (string, error) {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		in.State.IncrementAttempt(in.Stage)

		prompt, err := r.buildPrompt(in, extraContext)
		if err != nil {
			return "", err
		}

		output, err := r.dispatch.Dispatch(ctx, prompt, r.agentTimeout)
		if err != nil {
			return "", fmt.Errorf("agent dispatch failed for stage %s: %w", in.Stage, err)
		}

		artifactPath := filepath.Join(in.WorkspaceDir, strings.ToLower(string(in.Stage))+".output.json")
		if err := r.atomic.WriteAtomic(artifactPath, []byte(output)); err != nil {
			return "", fmt.Errorf("writing stage artifact: %w", err)
		}

		critique, err := r.qaGate.Critique(ctx, string(in.Stage),
			append(in.PriorArtifacts, qa.Artifact{Path: artifactPath, Content: []byte(output)}),
			in.Criteria, r.agentTimeout)
		if err != nil {
			return "", err
		}

		switch critique.Decision {
		case models.QAPass:
			return artifactPath, nil
		case models.QARework:
			r.publish(ctx, in.Run, in.Stage, models.EventQAGateReworked, map[string]any{"run_id": in.Run.String(), "attempt": attempt})
			extraContext = strings.Join(critique.PrescriptiveFixes, "\n")
			continue
		default: // QAFail
			return "", fmt.Errorf("stage %s: QA gate returned FAIL: %v", in.Stage, critique.Blockers)
		}
	}
	return "", fmt.Errorf("stage %s: attempts exhausted without a PASS", in.Stage)
}

func (r *StageRunner) buildPrompt(in StageInput, extraContext string) (string, error) {
	workflowDoc, err := r.docs.Load(in.Entry.WorkflowDocument)
	if err != nil {
		return "", fmt.Errorf("loading workflow document %s: %w", in.Entry.WorkflowDocument, err)
	}
	agentDoc, err := r.docs.Load(in.Entry.AgentDirectory)
	if err != nil {
		return "", fmt.Errorf("loading agent definition %s: %w", in.Entry.AgentDirectory, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n\nrequest: %+v\n", workflowDoc, agentDoc, in.Request)
	for _, a := range in.PriorArtifacts {
		fmt.Fprintf(&b, "prior artifact %s:\n%s\n", a.Path, string(a.Content))
	}
	if extraContext != "" {
		fmt.Fprintf(&b, "prescriptive fixes from prior attempt:\n%s\n", extraContext)
	}
	return b.String(), nil
}

func (r *StageRunner) publish(ctx context.Context, run models.RunId, stage models.PipelineStage, name string, data any) {
	if r.bus == nil {
		return
	}
	if data == nil {
		data = map[string]string{"run_id": run.String()}
	}
	event, err := models.NewEvent(name, stage, data)
	if err != nil {
		r.logger.Warn("failed to build pipeline event", slog.Any("error", err))
		return
	}
	r.bus.Publish(ctx, event)
}
