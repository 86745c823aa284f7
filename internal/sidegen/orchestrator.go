// Package sidegen implements the SideGenerationOrchestrator and
// AwaitGate described in §4.11–§4.12: asynchronous side-clip generation
// that runs as detached background work, plus the formal SIDEGEN_AWAIT
// stage that waits for it.
package sidegen

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/eventbus"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/ports"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/store"
)

// DefaultJobCeiling bounds how many generation prompts one run submits.
const DefaultJobCeiling = 6

const (
	initialBackoff = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// GenerationPrompt is one side-clip request surfaced by the CONTENT
// stage's output.
type GenerationPrompt struct {
	Variant           string
	Text              string
	NarrativeAnchor   string
	RequestedDuration time.Duration
}

// Orchestrator submits and polls side-generation jobs for one run. It
// exposes no blocking API to upstream stages (§4.11).
type Orchestrator struct {
	gen    ports.VideoGenerationPort
	atomic *store.AtomicStore
	bus    *eventbus.Bus
	logger *slog.Logger
}

// New constructs an Orchestrator.
func New(gen ports.VideoGenerationPort, atomic *store.AtomicStore, bus *eventbus.Bus, logger *slog.Logger) *Orchestrator {
	if atomic == nil {
		atomic = store.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{gen: gen, atomic: atomic, bus: bus, logger: logger}
}

// Handle lets the PipelineRunner cancel and await the background poller
// on shutdown or abort (§4.13 step 4).
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the background poller and blocks until it exits.
func (h *Handle) Cancel() {
	h.cancel()
	<-h.done
}

// Start submits prompts (capped at ceiling), writes the initial
// sidegen/jobs.json, and launches a background poller. ceiling <= 0
// uses DefaultJobCeiling.
func (o *Orchestrator) Start(ctx context.Context, run models.RunId, workspaceDir string, prompts []GenerationPrompt, ceiling int) (*Handle, error) {
	if ceiling <= 0 {
		ceiling = DefaultJobCeiling
	}
	if len(prompts) > ceiling {
		o.logger.Warn("side-generation prompts exceed ceiling, dropping remainder",
			slog.Int("requested", len(prompts)), slog.Int("ceiling", ceiling))
		prompts = prompts[:ceiling]
	}

	jobs := make([]models.SideGenJob, 0, len(prompts))
	for _, p := range prompts {
		jobs = append(jobs, o.submit(ctx, run, p))
	}
	if err := saveJobs(o.atomic, workspaceDir, jobs); err != nil {
		return nil, err
	}
	o.publish(ctx, run, models.EventSidegenStarted, len(jobs))

	pollCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.pollLoop(pollCtx, run, workspaceDir)
	}()
	return &Handle{cancel: cancel, done: done}, nil
}

func (o *Orchestrator) submit(ctx context.Context, run models.RunId, p GenerationPrompt) models.SideGenJob {
	key := models.NewIdempotentKey(run, p.Variant)
	jobKey, err := o.gen.SubmitJob(ctx, key, p.Text)
	if err != nil {
		msg := err.Error()
		return models.SideGenJob{
			IdempotentKey: key, Variant: p.Variant, Status: models.SideGenFailed,
			ErrorMessage: &msg, ErrorCode: "submit_failed",
		}
	}
	return models.SideGenJob{
		IdempotentKey: key, Variant: p.Variant, Status: models.SideGenGenerating,
		ProviderJobKey: jobKey, PromptText: p.Text,
	}
}

// pollLoop polls every non-terminal job with adaptive backoff (start
// 5s, double on stable status up to 30s, reset on any change) until
// every job is terminal or the context is cancelled.
func (o *Orchestrator) pollLoop(ctx context.Context, run models.RunId, workspaceDir string) {
	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		jobs, err := loadJobs(workspaceDir)
		if err != nil {
			o.logger.Warn("side-generation poll: failed to load jobs", slog.Any("error", err))
			continue
		}
		if allTerminal(jobs) {
			return
		}

		changed := false
		for i := range jobs {
			if jobs[i].Status.IsTerminal() {
				continue
			}
			prevStatus := jobs[i].Status
			status, errorCode, errorMessage, err := o.gen.PollJob(ctx, jobs[i].ProviderJobKey)
			if err != nil {
				jobs[i].Status = models.SideGenFailed
				msg := err.Error()
				jobs[i].ErrorMessage = &msg
				jobs[i].ErrorCode = "poll_failed"
				changed = true
				continue
			}
			jobs[i].Status = status
			if errorCode != "" {
				jobs[i].ErrorCode = errorCode
			}
			if errorMessage != "" {
				jobs[i].ErrorMessage = &errorMessage
			}
			if status == models.SideGenCompleted {
				dest := fmt.Sprintf("%s/sidegen/%s.mp4", workspaceDir, jobs[i].Variant)
				if err := o.gen.DownloadClip(ctx, jobs[i].ProviderJobKey, dest); err != nil {
					jobs[i].Status = models.SideGenFailed
					msg := err.Error()
					jobs[i].ErrorMessage = &msg
					jobs[i].ErrorCode = "download_failed"
				} else {
					jobs[i].VideoPath = &dest
				}
			}
			if jobs[i].Status != prevStatus {
				changed = true
			}
		}

		if err := saveJobs(o.atomic, workspaceDir, jobs); err != nil {
			o.logger.Warn("side-generation poll: failed to save jobs", slog.Any("error", err))
		}

		if changed {
			backoff = initialBackoff
		} else {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		if allTerminal(jobs) {
			o.publish(ctx, run, models.EventSidegenCompleted, len(jobs))
			return
		}
	}
}

func allTerminal(jobs []models.SideGenJob) bool {
	for _, j := range jobs {
		if !j.Status.IsTerminal() {
			return false
		}
	}
	return true
}

func (o *Orchestrator) publish(ctx context.Context, run models.RunId, name string, count int) {
	if o.bus == nil {
		return
	}
	event, err := models.NewEvent(name, models.StageSidegenAwait, map[string]any{"run_id": run.String(), "count": count})
	if err != nil {
		return
	}
	o.bus.Publish(ctx, event)
}
