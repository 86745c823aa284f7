// Package agentdispatch implements ports.AgentDispatchPort by invoking
// an opaque external agent CLI as a subprocess, streaming the prompt on
// stdin and reading its full response from stdout (§6: "opaque
// externally").
package agentdispatch

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Dispatcher shells out to a configured agent CLI binary per invocation.
type Dispatcher struct {
	binary string
	args   []string
}

// New constructs a Dispatcher. binary is the agent CLI executable;
// args are any fixed flags prepended to every invocation (e.g. a model
// name or output-format flag).
func New(binary string, args ...string) *Dispatcher {
	return &Dispatcher{binary: binary, args: args}
}

// Dispatch runs the configured agent CLI with prompt on stdin, bounded
// by timeout, and returns its trimmed stdout.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	dispatchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(dispatchCtx, d.binary, d.args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if dispatchCtx.Err() != nil {
			return "", fmt.Errorf("agent dispatch timed out after %s: %w", timeout, dispatchCtx.Err())
		}
		return "", fmt.Errorf("agent dispatch failed: %w: %s", err, truncate(stderr.String(), 2000))
	}

	return strings.TrimSpace(stdout.String()), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
