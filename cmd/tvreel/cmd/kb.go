package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/kb"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/store"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Reads or edits the user-editable knowledge-base file agents consult",
}

var kbGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Prints the value stored under key",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		kbStore := kb.New(cfg.Paths.KnowledgeBase, store.New())
		value, found, err := kbStore.Get(args[0])
		if err != nil {
			return fmt.Errorf("reading knowledge base: %w", err)
		}
		if !found {
			return fmt.Errorf("key %q not found", args[0])
		}
		fmt.Println(value)
		return nil
	},
}

var kbSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Writes key to value in the knowledge base",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		kbStore := kb.New(cfg.Paths.KnowledgeBase, store.New())
		if err := kbStore.Set(args[0], args[1]); err != nil {
			return fmt.Errorf("writing knowledge base: %w", err)
		}
		return nil
	},
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists every key currently stored in the knowledge base",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		kbStore := kb.New(cfg.Paths.KnowledgeBase, store.New())
		keys, err := kbStore.Keys()
		if err != nil {
			return fmt.Errorf("reading knowledge base: %w", err)
		}
		for _, key := range keys {
			fmt.Fprintln(os.Stdout, key)
		}
		return nil
	},
}

func init() {
	kbCmd.AddCommand(kbGetCmd, kbSetCmd, kbListCmd)
	rootCmd.AddCommand(kbCmd)
}
