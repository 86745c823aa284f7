// Package main is the entry point for the tvreel application.
package main

import (
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/cmd/tvreel/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
