package subprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Prober implements ports.VideoProbePort over an ffprobe binary,
// returning its decoded JSON output verbatim.
type Prober struct {
	binary string
}

// NewProber constructs a Prober. binary defaults to "ffprobe".
func NewProber(binary string) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary}
}

// Probe inspects path and returns its decoded ffprobe JSON report.
func (p *Prober) Probe(ctx context.Context, path string) (map[string]any, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("probing %s: %w: %s", path, err, tail(stderr.String(), 2000))
	}

	var result map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("decoding probe output for %s: %w", path, err)
	}
	return result, nil
}
