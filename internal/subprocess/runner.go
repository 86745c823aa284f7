// Package subprocess wraps the external binaries the pipeline shells
// out to (a downloader, ffmpeg, ffprobe) behind the VideoDownloadPort,
// VideoEncodePort, and VideoProbePort interfaces, following the
// exec.CommandContext plus captured-stderr idiom used throughout the
// codebase's own ffmpeg wrapper.
package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// run executes name with args, waiting for completion or ctx
// cancellation, and returns a descriptive error including the tail of
// stderr on failure.
func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w: %s", name, args, err, tail(stderr.String(), 2000))
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
