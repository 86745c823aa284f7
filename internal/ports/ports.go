// Package ports declares the abstract boundaries named in §6: explicit
// Go interfaces in place of duck-typing, so every external dependency
// (agent dispatch, messaging, file delivery, video tooling, resource
// monitoring, the knowledge base, and durable state) can be faked in
// tests without reaching outside the process.
package ports

import (
	"context"
	"time"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

// AgentDispatchPort invokes an opaque agent (or QA critic) process and
// returns its raw text response.
type AgentDispatchPort interface {
	Dispatch(ctx context.Context, prompt string, timeout time.Duration) (string, error)
}

// MessagingPort is the user-facing notification and interaction channel.
type MessagingPort interface {
	AskUser(ctx context.Context, prompt string, timeout time.Duration) (answer string, answered bool, err error)
	NotifyUser(ctx context.Context, text string) error
	SendFile(ctx context.Context, path string, caption string) error
}

// InboxMessage is one pending message waiting on the messaging inbox,
// prior to sender authentication and URL validation (§4.15 step 1).
type InboxMessage struct {
	MessageID string
	SenderID  string
	Text      string
	URL       string
}

// InboxPort drains pending inbound messages from the messaging channel.
// Receive is non-blocking: it returns whatever is currently queued and
// an empty slice when nothing is pending.
type InboxPort interface {
	Receive(ctx context.Context) ([]InboxMessage, error)
	AuthenticateSender(senderID string) bool
}

// FileDeliveryPort uploads a local artifact and returns a retrievable URL.
type FileDeliveryPort interface {
	Upload(ctx context.Context, path string) (url string, err error)
}

// VideoDownloadPort fetches a remote source video to a local path.
type VideoDownloadPort interface {
	Download(ctx context.Context, sourceURL string, destPath string) error
}

// VideoEncodePort runs an encode/transcode operation over local files.
type VideoEncodePort interface {
	Encode(ctx context.Context, inputPath string, outputPath string, args []string) error
}

// VideoProbePort inspects a local media file and returns opaque probe
// metadata (duration, streams, and similar) as a decoded map.
type VideoProbePort interface {
	Probe(ctx context.Context, path string) (map[string]any, error)
}

// VideoGenerationPort drives an asynchronous video-generation service
// used by side-generation jobs.
type VideoGenerationPort interface {
	// SubmitJob submits prompt under idempotentKey, so a resubmission
	// after a retry or crash recovery is a no-op on the provider side.
	SubmitJob(ctx context.Context, idempotentKey string, prompt string) (jobKey string, err error)
	PollJob(ctx context.Context, jobKey string) (status models.SideGenStatus, errorCode string, errorMessage string, err error)
	DownloadClip(ctx context.Context, jobKey string, dest string) error
}

// ResourceMonitorPort reports current system resource pressure.
type ResourceMonitorPort interface {
	Snapshot(ctx context.Context) (models.ResourceSnapshot, error)
}

// KnowledgeBasePort is a key/value store backed by a user-editable YAML
// file.
type KnowledgeBasePort interface {
	Get(key string) (value string, found bool, err error)
	Set(key string, value string) error
	Delete(key string) error
	Keys() ([]string, error)
}

// StateStorePort is the CheckpointStore contract: durable per-run state
// plus an append-only event journal.
type StateStorePort interface {
	SaveState(run models.RunId, state *models.RunState) error
	LoadState(run models.RunId) (state *models.RunState, found bool, err error)
	AppendEvent(run models.RunId, event models.PipelineEvent) error
	ListIncompleteRuns() ([]*models.RunState, error)
}
