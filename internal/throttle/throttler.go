// Package throttle implements the ResourceThrottler described in §4.6:
// before admitting pipeline work, check memory/CPU/temperature pressure
// and suspend until it clears.
package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/ports"
)

const (
	// DefaultMemoryFloorBytes is the default minimum available memory
	// below which admission is blocked (§4.6: "3 GiB").
	DefaultMemoryFloorBytes = 3 * 1024 * 1024 * 1024
	// DefaultTemperatureCeilingCelsius is the default maximum tolerated
	// temperature.
	DefaultTemperatureCeilingCelsius = 80.0
	// DefaultPollInterval is how often a blocked throttler rechecks.
	DefaultPollInterval = 30 * time.Second
	// DefaultCPUCeilingFraction is the CPU ceiling as a fraction of
	// logical cores (§4.6: "80% of logical cores").
	DefaultCPUCeilingFraction = 0.8
)

// Thresholds configures the limits a ResourceSnapshot is checked against.
type Thresholds struct {
	MemoryFloorBytes          uint64
	CPUCeilingCores           float64
	TemperatureCeilingCelsius float64
	PollInterval              time.Duration
}

// DefaultThresholds returns the §4.6 defaults, sizing the CPU ceiling
// against the logical CPU count of the current host.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MemoryFloorBytes:          DefaultMemoryFloorBytes,
		CPUCeilingCores:           DefaultCPUCeilingFraction * float64(LogicalCPUCount()),
		TemperatureCeilingCelsius: DefaultTemperatureCeilingCelsius,
		PollInterval:              DefaultPollInterval,
	}
}

// Throttler gates pipeline admission on system resource pressure.
type Throttler struct {
	monitor    ports.ResourceMonitorPort
	thresholds Thresholds
	notifier   ports.MessagingPort
	logger     *slog.Logger
}

// New creates a Throttler. notifier may be nil, in which case no user
// notification is attempted on entering/exiting the blocked state.
func New(monitor ports.ResourceMonitorPort, thresholds Thresholds, notifier ports.MessagingPort, logger *slog.Logger) *Throttler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Throttler{monitor: monitor, thresholds: thresholds, notifier: notifier, logger: logger}
}

// Await blocks until the system is below every configured threshold,
// sleeping PollInterval between checks. It emits a user notification on
// first entry into the blocked state and on exit (§4.6).
func (t *Throttler) Await(ctx context.Context) error {
	wasBlocked := false
	for {
		snap, err := t.monitor.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("reading resource snapshot: %w", err)
		}

		reason := ""
		switch {
		case snap.MemoryAvailableBytes < t.thresholds.MemoryFloorBytes:
			reason = fmt.Sprintf("available memory %d bytes below floor %d bytes", snap.MemoryAvailableBytes, t.thresholds.MemoryFloorBytes)
		case snap.CPULoadNormalised > t.thresholds.CPUCeilingCores:
			reason = fmt.Sprintf("cpu load %.2f above ceiling %.2f", snap.CPULoadNormalised, t.thresholds.CPUCeilingCores)
		case snap.TemperatureCelsius > t.thresholds.TemperatureCeilingCelsius:
			reason = fmt.Sprintf("temperature %.1f°C above ceiling %.1f°C", snap.TemperatureCelsius, t.thresholds.TemperatureCeilingCelsius)
		}

		if reason == "" {
			if wasBlocked {
				t.notify(ctx, "resource pressure cleared, resuming")
			}
			return nil
		}

		if !wasBlocked {
			t.logger.Warn("resource throttler blocking admission", slog.String("reason", reason))
			t.notify(ctx, "pipeline admission paused: "+reason)
			wasBlocked = true
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.thresholds.PollInterval):
		}
	}
}

func (t *Throttler) notify(ctx context.Context, text string) {
	if t.notifier == nil {
		return
	}
	if err := t.notifier.NotifyUser(ctx, text); err != nil {
		t.logger.Warn("resource throttler notification failed", slog.Any("error", err))
	}
}
