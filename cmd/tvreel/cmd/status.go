package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/aquasecurity/table"
	"github.com/spf13/cobra"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/checkpoint"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/queue"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Lists incomplete runs and the queue depth",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	runsDir := cfg.Paths.WorkspaceRoot + "/runs"
	atomic := store.New()
	cp := checkpoint.New(runsDir, atomic)

	states, err := cp.ListIncompleteRuns()
	if err != nil {
		return fmt.Errorf("listing incomplete runs: %w", err)
	}

	t := table.New(os.Stdout)
	t.SetHeaders("Run ID", "Current Stage", "Stages Completed")
	for _, s := range states {
		completed := make([]string, 0, len(s.StagesCompleted))
		for _, stage := range s.StagesCompleted {
			completed = append(completed, string(stage))
		}
		t.AddRow(s.RunId.String(), string(s.CurrentStage), strings.Join(completed, ", "))
	}
	t.Render()

	q, err := queue.New(cfg.Paths.QueueRoot, atomic)
	if err != nil {
		return fmt.Errorf("opening queue at %s: %w", cfg.Paths.QueueRoot, err)
	}
	depth, err := q.Depth()
	if err != nil {
		return fmt.Errorf("reading queue depth: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\nqueue depth: %d\n", depth)

	return nil
}
