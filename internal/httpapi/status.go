package httpapi

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/ports"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/queue"
)

// StatusHandler serves the read-only /healthz and /status endpoints
// (SPEC_FULL.md §C.2): a restatement of what the CLI `status` command
// shows, bound to loopback by default, never mutating state.
type StatusHandler struct {
	store     ports.StateStorePort
	queue     *queue.Queue
	startTime time.Time
	version   string
}

// NewStatusHandler constructs a StatusHandler.
func NewStatusHandler(store ports.StateStorePort, q *queue.Queue, version string) *StatusHandler {
	return &StatusHandler{store: store, queue: q, startTime: time.Now(), version: version}
}

// Register wires the handler's operations into api.
func (h *StatusHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealthz",
		Method:      "GET",
		Path:        "/healthz",
		Summary:     "Liveness probe",
		Tags:        []string{"System"},
	}, h.getHealthz)

	huma.Register(api, huma.Operation{
		OperationID: "getStatus",
		Method:      "GET",
		Path:        "/status",
		Summary:     "Incomplete-run and queue-depth snapshot",
		Tags:        []string{"System"},
	}, h.getStatus)
}

// HealthzInput is the (empty) input for the liveness endpoint.
type HealthzInput struct{}

// HealthzOutput reports process liveness and uptime.
type HealthzOutput struct {
	Body struct {
		Status        string `json:"status" example:"ok"`
		Version       string `json:"version"`
		UptimeSeconds int64  `json:"uptime_seconds"`
	}
}

func (h *StatusHandler) getHealthz(ctx context.Context, _ *HealthzInput) (*HealthzOutput, error) {
	out := &HealthzOutput{}
	out.Body.Status = "ok"
	out.Body.Version = h.version
	out.Body.UptimeSeconds = int64(time.Since(h.startTime).Seconds())
	return out, nil
}

// StatusInput is the (empty) input for the status endpoint.
type StatusInput struct{}

// RunSummary is one incomplete run's resume-relevant state.
type RunSummary struct {
	RunID           string   `json:"run_id"`
	CurrentStage    string   `json:"current_stage"`
	StagesCompleted []string `json:"stages_completed"`
}

// StatusOutput reports incomplete runs and queue depth.
type StatusOutput struct {
	Body struct {
		IncompleteRuns []RunSummary `json:"incomplete_runs"`
		QueueDepth     int          `json:"queue_depth"`
	}
}

func (h *StatusHandler) getStatus(ctx context.Context, _ *StatusInput) (*StatusOutput, error) {
	states, err := h.store.ListIncompleteRuns()
	if err != nil {
		return nil, huma.Error500InternalServerError("listing incomplete runs", err)
	}

	out := &StatusOutput{}
	out.Body.IncompleteRuns = make([]RunSummary, 0, len(states))
	for _, s := range states {
		completed := make([]string, 0, len(s.StagesCompleted))
		for _, stage := range s.StagesCompleted {
			completed = append(completed, string(stage))
		}
		out.Body.IncompleteRuns = append(out.Body.IncompleteRuns, RunSummary{
			RunID:           s.RunId.String(),
			CurrentStage:    string(s.CurrentStage),
			StagesCompleted: completed,
		})
	}

	if h.queue != nil {
		depth, err := h.queue.Depth()
		if err != nil {
			return nil, huma.Error500InternalServerError("reading queue depth", err)
		}
		out.Body.QueueDepth = depth
	}

	return out, nil
}
