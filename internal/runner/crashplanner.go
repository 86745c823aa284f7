package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/errs"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/eventbus"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/ports"
)

// RecoveryPlan is the computed resume point for one incomplete run
// (§4.14).
type RecoveryPlan struct {
	RunId            models.RunId
	ResumeFrom       models.PipelineStage
	StagesCompleted  []models.PipelineStage
	StagesRemaining  []models.PipelineStage
}

// CrashRecoveryPlanner computes resume plans for every incomplete run
// at daemon startup.
type CrashRecoveryPlanner struct {
	store     ports.StateStorePort
	messaging ports.MessagingPort
	bus       *eventbus.Bus
	logger    *slog.Logger
}

// NewCrashRecoveryPlanner constructs a CrashRecoveryPlanner. messaging
// may be nil, in which case no resume notification is attempted. bus may
// be nil, in which case no resume_planned event is published.
func NewCrashRecoveryPlanner(store ports.StateStorePort, messaging ports.MessagingPort, bus *eventbus.Bus, logger *slog.Logger) *CrashRecoveryPlanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrashRecoveryPlanner{store: store, messaging: messaging, bus: bus, logger: logger}
}

// Plan computes a RecoveryPlan for every incomplete run, publishes a
// `recovery.resume_planned` event naming its resume stage, and notifies
// the user of each resume point. Notification failure never blocks
// recovery (§4.14).
func (p *CrashRecoveryPlanner) Plan(ctx context.Context) ([]RecoveryPlan, error) {
	states, err := p.store.ListIncompleteRuns()
	if err != nil {
		return nil, fmt.Errorf("listing incomplete runs: %w", err)
	}

	plans := make([]RecoveryPlan, 0, len(states))
	for _, state := range states {
		plan := planFor(state)
		plans = append(plans, plan)

		p.publishResumePlanned(ctx, plan)

		if p.messaging != nil {
			text := fmt.Sprintf("Resuming your run from %s (%d of %d stages completed)",
				plan.ResumeFrom, len(plan.StagesCompleted), len(models.StageOrder))
			if err := p.messaging.NotifyUser(ctx, text); err != nil {
				p.logger.Warn("resume notification failed", slog.String("run_id", state.RunId.String()), slog.Any("error", err))
			}
		}
	}
	return plans, nil
}

func (p *CrashRecoveryPlanner) publishResumePlanned(ctx context.Context, plan RecoveryPlan) {
	if p.bus == nil {
		return
	}
	event, err := models.NewEvent(models.EventResumePlanned, plan.ResumeFrom, map[string]string{
		"run_id": plan.RunId.String(),
	})
	if err != nil {
		p.logger.Warn("failed to build resume_planned event", slog.Any("error", err))
		return
	}
	p.bus.Publish(ctx, event)
}

func planFor(state *models.RunState) RecoveryPlan {
	resumeFrom := state.FirstIncompleteStage()
	var remaining []models.PipelineStage
	for _, stage := range models.StageOrder {
		if !state.HasCompleted(stage) {
			remaining = append(remaining, stage)
		}
	}
	return RecoveryPlan{
		RunId:           state.RunId,
		ResumeFrom:      resumeFrom,
		StagesCompleted: append([]models.PipelineStage(nil), state.StagesCompleted...),
		StagesRemaining: remaining,
	}
}

// ValidateCLIResume enforces the §4.14 CLI-initiated resume
// preconditions: an explicit resume path must exist; start-stage > 1
// requires an explicit resume path; start-stage must be in [1, N].
func ValidateCLIResume(resumePath string, startStage int, resumePathExists func(string) bool) error {
	n := len(models.StageOrder)
	if startStage != 0 && (startStage < 1 || startStage > n) {
		return errs.NewUserArgumentError(fmt.Sprintf("--start-stage must be between 1 and %d", n))
	}
	if startStage > 1 && resumePath == "" {
		return errs.NewUserArgumentError("--start-stage > 1 requires --resume with an explicit path")
	}
	if resumePath != "" && !resumePathExists(resumePath) {
		return errs.NewUserArgumentError(fmt.Sprintf("resume path does not exist: %s", resumePath))
	}
	return nil
}
