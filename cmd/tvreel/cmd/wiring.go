package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/adapters"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/agentdispatch"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/checkpoint"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/config"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/eventbus"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/pipeline"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/ports"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/qa"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/queue"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/recovery"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/runner"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/sidegen"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/store"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/subprocess"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/throttle"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/workspace"
)

// components is every collaborator the daemon and the one-shot `run`
// command both need, built once from a loaded Config.
type components struct {
	cfg         *config.Config
	atomic      *store.AtomicStore
	checkpoint  *checkpoint.Store
	workspaces  *workspace.Manager
	queue       *queue.Queue
	bus         *eventbus.Bus
	messaging   ports.MessagingPort
	inbox       ports.InboxPort
	throttler   *throttle.Throttler
	runner      *runner.Runner
	crashPlanner *runner.CrashRecoveryPlanner
	logger      *slog.Logger
}

// buildComponents wires every collaborator named in SPEC_FULL.md's
// domain-stack table from cfg. messaging/inbox are supplied by the
// caller since the interactive `run` command and the long-running
// `serve` command bind different concrete adapters to them.
func buildComponents(cfg *config.Config, logger *slog.Logger, messaging ports.MessagingPort, inbox ports.InboxPort, agentsDir string) (*components, error) {
	runsDir := filepath.Join(cfg.Paths.WorkspaceRoot, "runs")

	atomicStore := store.New()
	cp := checkpoint.New(runsDir, atomicStore)
	wm := workspace.New(runsDir, cp)

	q, err := queue.New(cfg.Paths.QueueRoot, atomicStore)
	if err != nil {
		return nil, fmt.Errorf("opening queue at %s: %w", cfg.Paths.QueueRoot, err)
	}

	bus := eventbus.New(logger)
	// cp is the journal subscriber named in §2/§5: it is the single writer
	// that serializes every published event into its run's events.log.
	bus.Subscribe(cp)

	dispatcher := agentdispatch.New(cfg.Agent.Binary)
	gate := qa.NewGate(dispatcher, dispatcher)
	chain := recovery.New(bus, messaging, logger)
	docs := adapters.NewFilesystemDocumentLoader(agentsDir)

	stageRunner := pipeline.NewStageRunner(bus, cp, atomicStore, docs, dispatcher, gate, chain, cfg.Agent.Timeout.Duration(), pipeline.DefaultMaxAttempts, logger)

	videogen := adapters.NewHTTPVideoGeneration(cfg.Generation.BaseURL, cfg.Generation.APIKey)
	orchestrator := sidegen.New(videogen, atomicStore, bus, logger)
	awaitGate := sidegen.NewAwaitGate(videogen, atomicStore, bus, cfg.Generation.Timeout.Duration())

	delivery, err := adapters.NewLocalDelivery(filepath.Join(cfg.Paths.WorkspaceRoot, "delivered"))
	if err != nil {
		return nil, fmt.Errorf("preparing delivery directory: %w", err)
	}
	prober := subprocess.NewProber("")

	deliveryFunc := buildDeliveryFunc(delivery, prober, messaging)

	r := runner.New(wm, pipeline.New(), stageRunner, bus, deliveryFunc, logger,
		runner.WithSidegen(orchestrator, awaitGate, contentPrompts, cfg.Generation.ClipCount))

	monitor := throttle.NewSystemMonitor()
	thresholds := throttle.Thresholds{
		MemoryFloorBytes:          uint64(cfg.Resources.MemoryFloor.Bytes()),
		CPUCeilingCores:           throttle.DefaultCPUCeilingFraction * float64(throttle.LogicalCPUCount()),
		TemperatureCeilingCelsius: cfg.Resources.TemperatureCeiling,
		PollInterval:              cfg.Resources.PollInterval.Duration(),
	}
	throttler := throttle.New(monitor, thresholds, messaging, logger)

	crashPlanner := runner.NewCrashRecoveryPlanner(cp, messaging, bus, logger)

	return &components{
		cfg: cfg, atomic: atomicStore, checkpoint: cp, workspaces: wm, queue: q,
		bus: bus, messaging: messaging, inbox: inbox, throttler: throttler,
		runner: r, crashPlanner: crashPlanner, logger: logger,
	}, nil
}

// contentPrompts extracts side-generation prompts from the CONTENT
// stage's artifact (§4.11: "variant, text, narrative anchor, requested
// duration").
func contentPrompts(contentArtifactPath string) ([]sidegen.GenerationPrompt, error) {
	raw, err := os.ReadFile(contentArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("reading content artifact: %w", err)
	}

	var doc struct {
		GenerationPrompts []struct {
			Variant             string `json:"variant"`
			Text                string `json:"text"`
			NarrativeAnchor     string `json:"narrative_anchor"`
			RequestedDurationS  int    `json:"requested_duration_s"`
		} `json:"generation_prompts"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing content artifact: %w", err)
	}

	prompts := make([]sidegen.GenerationPrompt, 0, len(doc.GenerationPrompts))
	for _, p := range doc.GenerationPrompts {
		prompts = append(prompts, sidegen.GenerationPrompt{
			Variant:           p.Variant,
			Text:              p.Text,
			NarrativeAnchor:   p.NarrativeAnchor,
			RequestedDuration: time.Duration(p.RequestedDurationS) * time.Second,
		})
	}
	return prompts, nil
}

// buildDeliveryFunc returns the DELIVERY-stage collaborator (§4.13 step
// 2): probe the terminal artifact, upload it, then notify the user.
func buildDeliveryFunc(delivery *adapters.LocalDelivery, prober *subprocess.Prober, messaging ports.MessagingPort) runner.DeliveryFunc {
	return func(ctx context.Context, handle *workspace.Handle, state *models.RunState) error {
		finalPath := handle.Path("final-reel.mp4")

		if _, err := prober.Probe(ctx, finalPath); err != nil {
			return fmt.Errorf("probing final reel: %w", err)
		}

		url, err := delivery.Upload(ctx, finalPath)
		if err != nil {
			return fmt.Errorf("uploading final reel: %w", err)
		}

		if messaging == nil {
			return nil
		}
		if err := messaging.SendFile(ctx, finalPath, "Your reel is ready"); err != nil {
			return fmt.Errorf("sending final reel: %w", err)
		}
		return messaging.NotifyUser(ctx, fmt.Sprintf("delivered: %s", url))
	}
}
