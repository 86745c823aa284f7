package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/adapters"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/errs"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/ports"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/runner"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/subprocess"
)

const (
	exitSuccess              = 0
	exitInvalidArguments     = 2
	exitUnrecoverableFailure = 64
	exitInterrupted          = 130
)

var (
	runMessage        string
	runTargetDuration int
	runMoments        int
	runResumePath     string
	runStartStage     int
	runTimeoutSeconds int
)

var runCmd = &cobra.Command{
	Use:          "run <url>",
	Short:        "Runs a single source video through the pipeline to completion",
	Args:         cobra.ExactArgs(1),
	RunE:         runRun,
	SilenceUsage: true,
}

func init() {
	runCmd.Flags().StringVar(&runMessage, "message", "", "the original message text accompanying the URL")
	runCmd.Flags().IntVar(&runTargetDuration, "target-duration", 0, "desired reel duration in seconds")
	runCmd.Flags().IntVar(&runMoments, "moments", 0, "desired number of highlighted moments (segment count)")
	runCmd.Flags().StringVar(&runResumePath, "resume", "", "workspace path to resume from")
	runCmd.Flags().IntVar(&runStartStage, "start-stage", 1, "1-based pipeline stage index to start or resume at")
	runCmd.Flags().IntVar(&runTimeoutSeconds, "timeout", 0, "overall run timeout in seconds (0 disables)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	sourceURL := args[0]

	if err := runner.ValidateCLIResume(runResumePath, runStartStage, resumePathExists); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitInvalidArguments)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(runTimeoutSeconds)*time.Second)
		defer cancel()
	}

	req, err := buildRequest(sourceURL)
	if err != nil {
		var argErr *errs.UserArgumentError
		if errors.As(err, &argErr) {
			fmt.Fprintln(os.Stderr, argErr.Error())
			os.Exit(exitInvalidArguments)
			return nil
		}
		return err
	}

	messaging := consoleMessagingAdapter()
	comps, err := buildComponents(cfg, logger, messaging, nil, agentsDir)
	if err != nil {
		return fmt.Errorf("assembling components: %w", err)
	}

	if err := downloadSource(ctx, sourceURL, &req); err != nil {
		return fmt.Errorf("downloading source video: %w", err)
	}

	if err := comps.runner.Run(ctx, req); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			os.Exit(exitInterrupted)
			return nil
		}
		logger.Error("run failed", "run_id", req.RunId, "error", err)
		os.Exit(exitUnrecoverableFailure)
		return nil
	}

	os.Exit(exitSuccess)
	return nil
}

// consoleMessagingAdapter binds MessagingPort to the invoking terminal:
// `run` is a one-shot, interactive CLI invocation, not the daemon, so
// clarifying questions and delivery notices surface on stdio.
func consoleMessagingAdapter() ports.MessagingPort {
	return adapters.NewConsoleMessaging(os.Stdin, os.Stdout)
}

func resumePathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func buildRequest(sourceURL string) (models.Request, error) {
	if sourceURL == "" {
		return models.Request{}, errs.NewUserArgumentError("source URL is required")
	}

	directives := models.Directives{ResumePath: runResumePath}
	if runTargetDuration > 0 {
		directives.TargetDurationS = &runTargetDuration
	}
	if runMoments > 0 {
		directives.SegmentCount = &runMoments
	}
	if runStartStage > 1 {
		directives.StartStage = &runStartStage
	}

	return models.Request{
		RunId:       models.NewRunId(),
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
		SourceURL:   sourceURL,
		MessageText: runMessage,
		Directives:  directives,
	}, nil
}

// downloadSource pre-fetches the source video via the teacher-grounded
// subprocess wrapper and surfaces the local path to every agent stage
// through AdvisoryInputs, since download/encode/probe tooling is an
// opaque external collaborator the pipeline core never invokes directly.
func downloadSource(ctx context.Context, sourceURL string, req *models.Request) error {
	downloader := subprocess.NewDownloader("")
	dest := filepath.Join(os.TempDir(), string(req.RunId)+"-source.mp4")
	if err := downloader.Download(ctx, sourceURL, dest); err != nil {
		return err
	}
	req.Directives.AdvisoryInputs = append(req.Directives.AdvisoryInputs, "source_video_path="+dest)
	return nil
}
