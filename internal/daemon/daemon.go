// Package daemon implements the Daemon main loop described in §4.15: a
// strictly cooperative single-threaded tick driving inbox consumption,
// resource admission, queue claiming, pipeline execution, and watchdog
// liveness, alongside a small set of background tasks (SideGeneration
// polling, the watchdog heartbeat) that
// coordinate with the main task only through the EventBus and on-disk
// state.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/eventbus"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/ports"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/queue"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/runner"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/throttle"
)

// Config holds the tunables of one Daemon instance.
type Config struct {
	ID                string
	TickInterval      time.Duration
	WatchdogInterval  time.Duration
	InboxPollInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.TickInterval == 0 {
		c.TickInterval = time.Second
	}
	if c.WatchdogInterval == 0 {
		c.WatchdogInterval = 5 * time.Minute
	}
	if c.InboxPollInterval == 0 {
		c.InboxPollInterval = 5 * time.Second
	}
}

// WatchdogFunc notifies the supervising environment that the daemon is
// alive (e.g. sd_notify WATCHDOG=1). May be nil.
type WatchdogFunc func(ctx context.Context) error

// Daemon drives the main loop against a Queue, a ResourceThrottler, and
// a PipelineRunner, dispatching inbound requests one at a time.
type Daemon struct {
	config    Config
	queue     *queue.Queue
	throttler *throttle.Throttler
	runner    *runner.Runner
	inbox     ports.InboxPort
	bus       *eventbus.Bus
	watchdog  WatchdogFunc
	logger    *slog.Logger
	seen      map[string]struct{}
}

// New constructs a Daemon. inbox and watchdog may be nil, in which case
// step 1 (inbox consumption) and step 4 (watchdog heartbeat) are no-ops.
func New(cfg Config, q *queue.Queue, throttler *throttle.Throttler, r *runner.Runner, inbox ports.InboxPort, bus *eventbus.Bus, watchdog WatchdogFunc, logger *slog.Logger) *Daemon {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{config: cfg, queue: q, throttler: throttler, runner: r, inbox: inbox, bus: bus, watchdog: watchdog, logger: logger}
}

// Run executes the main loop until ctx is cancelled, then emits
// daemon.stopping and returns (§4.15 step 5, §5 "Cancellation").
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("daemon starting", slog.String("id", d.config.ID), slog.Duration("tick_interval", d.config.TickInterval))

	heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
	defer cancelHeartbeat()
	go d.heartbeatLoop(heartbeatCtx)

	ticker := time.NewTicker(d.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.publish(context.Background(), models.EventDaemonStopping, "")
			return nil
		case <-ticker.C:
			if err := d.tick(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error("daemon tick failed", slog.Any("error", err))
			}
		}
	}
}

// tick executes steps 1-3 of §4.15 once.
func (d *Daemon) tick(ctx context.Context) error {
	if err := d.consumeInbox(ctx); err != nil {
		d.logger.Warn("inbox consumption failed", slog.Any("error", err))
	}

	if d.throttler != nil {
		if err := d.throttler.Await(ctx); err != nil {
			return fmt.Errorf("awaiting resource admission: %w", err)
		}
	}

	return d.claimAndRun(ctx)
}

// consumeInbox implements §4.15 step 1: authenticate the sender,
// deduplicate on message id, validate the URL, and enqueue.
func (d *Daemon) consumeInbox(ctx context.Context) error {
	if d.inbox == nil {
		return nil
	}

	messages, err := d.inbox.Receive(ctx)
	if err != nil {
		return fmt.Errorf("receiving inbox messages: %w", err)
	}

	for _, msg := range messages {
		if !d.inbox.AuthenticateSender(msg.SenderID) {
			d.logger.Warn("rejected inbox message from unauthenticated sender", slog.String("sender_id", msg.SenderID))
			continue
		}
		if msg.MessageID == "" {
			continue
		}
		seen, err := d.seenMessage(msg.MessageID)
		if err != nil {
			d.logger.Warn("message dedup check failed", slog.Any("error", err))
		}
		if seen {
			continue
		}
		if _, err := url.ParseRequestURI(msg.URL); err != nil {
			d.logger.Warn("rejected inbox message with invalid url", slog.String("message_id", msg.MessageID), slog.Any("error", err))
			continue
		}

		req := models.Request{
			RunId:       models.NewRunId(),
			SubmittedAt: time.Now().UTC().Format(time.RFC3339),
			SourceURL:   msg.URL,
			MessageText: msg.Text,
		}
		if err := d.queue.Enqueue(req); err != nil {
			return fmt.Errorf("enqueuing request from message %s: %w", msg.MessageID, err)
		}
		d.markSeen(msg.MessageID)
	}
	return nil
}

// claimAndRun implements §4.15 step 3.
func (d *Daemon) claimAndRun(ctx context.Context) error {
	claim, ok, err := d.queue.ClaimNext()
	if err != nil {
		return fmt.Errorf("claiming next queue item: %w", err)
	}
	if !ok {
		return nil
	}

	if err := d.runner.Run(ctx, claim.Item); err != nil {
		if releaseErr := claim.Release(); releaseErr != nil {
			d.logger.Error("failed to release queue item after run failure", slog.Any("error", releaseErr))
		}
		d.publish(ctx, models.EventStageFailed, claim.Item.RunId.String())
		return fmt.Errorf("running request %s: %w", claim.Item.RunId, err)
	}

	return claim.Commit()
}

// heartbeatLoop implements §4.15 step 4: a periodic liveness
// notification at half the configured watchdog interval.
func (d *Daemon) heartbeatLoop(ctx context.Context) {
	if d.watchdog == nil {
		return
	}
	interval := d.config.WatchdogInterval / 2
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.watchdog(ctx); err != nil {
				d.logger.Warn("watchdog notification failed", slog.Any("error", err))
			}
		}
	}
}

// seenMessage checks the in-process message-id dedup set. It is
// intentionally bounded to the daemon's lifetime: durable dedup across
// restarts is unnecessary because the queue itself is idempotent on
// resubmission (a duplicate enqueue just produces a second queue item,
// which the pipeline's own fingerprint-based duplicate detection can
// reconcile).
func (d *Daemon) seenMessage(id string) (bool, error) {
	if d.seen == nil {
		return false, nil
	}
	_, ok := d.seen[id]
	return ok, nil
}

func (d *Daemon) markSeen(id string) {
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	d.seen[id] = struct{}{}
}

func (d *Daemon) publish(ctx context.Context, name string, runID string) {
	if d.bus == nil {
		return
	}
	event, err := models.NewEvent(name, "", map[string]string{"run_id": runID})
	if err != nil {
		return
	}
	d.bus.Publish(ctx, event)
}
