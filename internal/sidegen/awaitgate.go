package sidegen

import (
	"context"
	"time"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/eventbus"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/ports"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/store"
)

// DefaultTimeout bounds how long AwaitGate waits for side-generation
// jobs to reach a terminal state before giving up.
const DefaultTimeout = 5 * time.Minute

// AwaitGate implements the SIDEGEN_AWAIT stage (§4.12): a formal stage
// handled outside the agent/QA path, waiting for background
// side-generation jobs to settle.
type AwaitGate struct {
	gen     ports.VideoGenerationPort
	atomic  *store.AtomicStore
	bus     *eventbus.Bus
	timeout time.Duration
}

// NewAwaitGate constructs an AwaitGate. timeout <= 0 uses DefaultTimeout.
func NewAwaitGate(gen ports.VideoGenerationPort, atomic *store.AtomicStore, bus *eventbus.Bus, timeout time.Duration) *AwaitGate {
	if atomic == nil {
		atomic = store.New()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AwaitGate{gen: gen, atomic: atomic, bus: bus, timeout: timeout}
}

// Run executes the 7-step AwaitGate algorithm and returns the number of
// jobs that ended COMPLETED.
func (g *AwaitGate) Run(ctx context.Context, run models.RunId, workspaceDir string) (completed int, err error) {
	g.publish(ctx, run, models.EventSidegenStarted, 0)

	if !sidegenDirExists(workspaceDir) {
		g.publish(ctx, run, models.EventSidegenCompleted, 0)
		return 0, nil
	}

	deadline := time.Now().Add(g.timeout)
	backoff := initialBackoff
	retried := false

	for {
		jobs, loadErr := loadJobs(workspaceDir)
		if loadErr != nil {
			return 0, loadErr
		}

		if allTerminal(jobs) {
			if !retried {
				if retried, err = g.maybeRetryAllRetriableFailures(ctx, run, workspaceDir, jobs); err != nil {
					return 0, err
				}
				if retried {
					continue
				}
			}
			return countCompleted(jobs), g.finish(ctx, run, jobs, false)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return countCompleted(jobs), g.finish(ctx, run, jobs, true)
		}

		sleep := backoff
		if remaining < sleep {
			sleep = remaining
		}
		select {
		case <-ctx.Done():
			return countCompleted(jobs), ctx.Err()
		case <-time.After(sleep):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		for i := range jobs {
			if jobs[i].Status.IsTerminal() {
				continue
			}
			status, errorCode, errorMessage, pollErr := g.gen.PollJob(ctx, jobs[i].ProviderJobKey)
			if pollErr != nil {
				jobs[i].Status = models.SideGenFailed
				msg := pollErr.Error()
				jobs[i].ErrorMessage = &msg
				jobs[i].ErrorCode = "poll_failed"
				continue
			}
			jobs[i].Status = status
			if errorCode != "" {
				jobs[i].ErrorCode = errorCode
			}
			if errorMessage != "" {
				jobs[i].ErrorMessage = &errorMessage
			}
		}
		if err := saveJobs(g.atomic, workspaceDir, jobs); err != nil {
			return 0, err
		}
	}
}

// maybeRetryAllRetriableFailures implements §4.12 step 4: if every
// failed job's error is retriable and no retry has yet fired this
// invocation, resubmit them once.
func (g *AwaitGate) maybeRetryAllRetriableFailures(ctx context.Context, run models.RunId, workspaceDir string, jobs []models.SideGenJob) (bool, error) {
	var failed []int
	for i, j := range jobs {
		if j.Status == models.SideGenFailed {
			failed = append(failed, i)
		}
	}
	if len(failed) == 0 {
		return false, nil
	}
	for _, i := range failed {
		if !jobs[i].IsRetriable() {
			return false, nil
		}
	}

	for _, i := range failed {
		jobKey, err := g.gen.SubmitJob(ctx, jobs[i].IdempotentKey, jobs[i].PromptText)
		if err != nil {
			jobs[i].ErrorCode = "submit_failed"
			msg := err.Error()
			jobs[i].ErrorMessage = &msg
			continue
		}
		jobs[i].ProviderJobKey = jobKey
		jobs[i].Status = models.SideGenGenerating
		jobs[i].RetriedOnce = true
		jobs[i].ErrorMessage = nil
		jobs[i].ErrorCode = ""
	}
	if err := saveJobs(g.atomic, workspaceDir, jobs); err != nil {
		return false, err
	}
	g.publish(ctx, run, models.EventSidegenRetried, len(failed))
	return true, nil
}

func (g *AwaitGate) finish(ctx context.Context, run models.RunId, jobs []models.SideGenJob, timedOut bool) error {
	if timedOut {
		g.publish(ctx, run, models.EventSidegenTimeout, len(jobs))
		return nil
	}
	g.publish(ctx, run, models.EventSidegenCompleted, countCompleted(jobs))
	return nil
}

func countCompleted(jobs []models.SideGenJob) int {
	n := 0
	for _, j := range jobs {
		if j.Status == models.SideGenCompleted {
			n++
		}
	}
	return n
}

func (g *AwaitGate) publish(ctx context.Context, run models.RunId, name string, count int) {
	if g.bus == nil {
		return
	}
	event, err := models.NewEvent(name, models.StageSidegenAwait, map[string]any{"run_id": run.String(), "count": count})
	if err != nil {
		return
	}
	g.bus.Publish(ctx, event)
}
