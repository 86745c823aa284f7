// Package recovery implements the RecoveryChain described in §4.8: a
// monotone, non-repeating sequence of escalating retry strategies for a
// stage that failed its QA gate.
package recovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/eventbus"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/ports"
)

// Attempt re-runs a stage at the given recovery level and returns the
// resulting artifact path on success.
type Attempt func(ctx context.Context, level models.RecoveryLevel) (artifact string, err error)

// Chain drives one stage's recovery levels to completion or exhaustion.
type Chain struct {
	bus       *eventbus.Bus
	messaging ports.MessagingPort
	logger    *slog.Logger
}

// New constructs a Chain. bus and messaging may both be nil.
func New(bus *eventbus.Bus, messaging ports.MessagingPort, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{bus: bus, messaging: messaging, logger: logger}
}

// attemptLevels excludes ESCALATE, which is not a re-run but the
// chain's own terminal action.
var attemptLevels = []models.RecoveryLevel{models.RecoveryRetry, models.RecoveryFork, models.RecoveryFresh}

// Run attempts RETRY, FORK, then FRESH in order via attempt, stopping on
// the first success. If all three fail it escalates: publishes an
// escalation event and, if a messaging port is configured, notifies the
// user with a concise failure summary. Messaging errors are swallowed.
func (c *Chain) Run(ctx context.Context, run models.RunId, stage models.PipelineStage, attempt Attempt) models.RecoveryResult {
	for _, level := range attemptLevels {
		c.publish(ctx, run, stage, models.EventRecoveryAttempted, level)

		artifact, err := attempt(ctx, level)
		if err == nil {
			return models.RecoveryResult{Level: level, Succeeded: true, FinalArtifact: artifact}
		}
		c.logger.Warn("recovery level failed",
			slog.String("run_id", run.String()), slog.String("stage", string(stage)),
			slog.String("level", string(level)), slog.Any("error", err))
	}

	c.publish(ctx, run, stage, models.EventRecoveryEscalated, models.RecoveryEscalate)
	if c.messaging != nil {
		summary := fmt.Sprintf("Run %s stalled at stage %s after exhausting recovery (RETRY, FORK, FRESH).", run, stage)
		if err := c.messaging.NotifyUser(ctx, summary); err != nil {
			c.logger.Warn("escalation notification failed", slog.Any("error", err))
		}
	}

	return models.RecoveryResult{Level: models.RecoveryEscalate, Succeeded: false}
}

func (c *Chain) publish(ctx context.Context, run models.RunId, stage models.PipelineStage, eventName string, level models.RecoveryLevel) {
	if c.bus == nil {
		return
	}
	event, err := models.NewEvent(eventName, stage, map[string]string{"run_id": run.String(), "level": string(level)})
	if err != nil {
		c.logger.Warn("failed to build recovery event", slog.Any("error", err))
		return
	}
	c.bus.Publish(ctx, event)
}
