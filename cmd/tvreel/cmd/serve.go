package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/adapters"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/daemon"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/httpapi"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/version"
)

var (
	serveInboxDir       string
	serveAllowedSenders []string
	serveStatusEnabled  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the daemon main loop: claim queued requests, run the pipeline, deliver results",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveInboxDir, "inbox-dir", "inbox", "directory polled for inbound messaging submissions")
	serveCmd.Flags().StringSliceVar(&serveAllowedSenders, "allowed-senders", nil, "sender IDs permitted to submit requests")
	serveCmd.Flags().BoolVar(&serveStatusEnabled, "status-http", true, "serve the ambient /healthz and /status HTTP endpoints")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messaging := consoleMessagingAdapter()
	inbox := adapters.NewFileInbox(serveInboxDir, serveAllowedSenders)

	comps, err := buildComponents(cfg, logger, messaging, inbox, agentsDir)
	if err != nil {
		return fmt.Errorf("assembling components: %w", err)
	}

	plans, err := comps.crashPlanner.Plan(ctx)
	if err != nil {
		return fmt.Errorf("planning crash recovery: %w", err)
	}
	for _, plan := range plans {
		logger.Info("recovery plan computed", "run_id", plan.RunId, "resume_from", plan.ResumeFrom)
	}

	var statusServer *httpapi.Server
	if serveStatusEnabled {
		statusHandler := httpapi.NewStatusHandler(comps.checkpoint, comps.queue, version.Short())
		serverCfg := httpapi.DefaultConfig()
		serverCfg.Host = cfg.StatusHTTP.Host
		serverCfg.Port = cfg.StatusHTTP.Port
		statusServer = httpapi.NewServer(serverCfg, statusHandler, logger, version.Short())

		go func() {
			if err := statusServer.ListenAndServe(ctx); err != nil {
				logger.Error("status http server stopped", "error", err)
			}
		}()
	}

	d := daemon.New(daemon.Config{
		ID:               "tvreel-serve",
		WatchdogInterval: cfg.Resources.WatchdogInterval.Duration(),
	}, comps.queue, comps.throttler, comps.runner, comps.inbox, comps.bus, adapters.SystemdWatchdog, logger)

	if err := d.Run(ctx); err != nil {
		return fmt.Errorf("daemon stopped: %w", err)
	}
	return nil
}
