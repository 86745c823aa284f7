package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints version information",
	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Println(version.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
