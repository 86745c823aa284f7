package throttle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

type fakeMonitor struct {
	snapshots []models.ResourceSnapshot
	calls     int32
}

func (f *fakeMonitor) Snapshot(ctx context.Context) (models.ResourceSnapshot, error) {
	i := atomic.AddInt32(&f.calls, 1) - 1
	if int(i) >= len(f.snapshots) {
		return f.snapshots[len(f.snapshots)-1], nil
	}
	return f.snapshots[i], nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) AskUser(ctx context.Context, prompt string, timeout time.Duration) (string, bool, error) {
	return "", false, nil
}
func (f *fakeNotifier) NotifyUser(ctx context.Context, text string) error {
	f.messages = append(f.messages, text)
	return nil
}
func (f *fakeNotifier) SendFile(ctx context.Context, path string, caption string) error { return nil }

func TestAwaitReturnsImmediatelyWhenBelowThresholds(t *testing.T) {
	monitor := &fakeMonitor{snapshots: []models.ResourceSnapshot{
		{MemoryAvailableBytes: 10 * 1024 * 1024 * 1024, CPULoadNormalised: 0.1, TemperatureCelsius: 40},
	}}
	notifier := &fakeNotifier{}
	th := New(monitor, DefaultThresholds(), notifier, nil)

	require.NoError(t, th.Await(context.Background()))
	assert.Empty(t, notifier.messages)
	assert.EqualValues(t, 1, monitor.calls)
}

func TestAwaitBlocksThenClearsAndNotifiesBothTransitions(t *testing.T) {
	monitor := &fakeMonitor{snapshots: []models.ResourceSnapshot{
		{MemoryAvailableBytes: 1024, CPULoadNormalised: 0.1, TemperatureCelsius: 40},
		{MemoryAvailableBytes: 1024, CPULoadNormalised: 0.1, TemperatureCelsius: 40},
		{MemoryAvailableBytes: 10 * 1024 * 1024 * 1024, CPULoadNormalised: 0.1, TemperatureCelsius: 40},
	}}
	notifier := &fakeNotifier{}
	thresholds := DefaultThresholds()
	thresholds.PollInterval = time.Millisecond
	th := New(monitor, thresholds, notifier, nil)

	require.NoError(t, th.Await(context.Background()))
	require.Len(t, notifier.messages, 2)
	assert.Contains(t, notifier.messages[0], "paused")
	assert.Contains(t, notifier.messages[1], "cleared")
}

func TestAwaitHonorsContextCancellation(t *testing.T) {
	monitor := &fakeMonitor{snapshots: []models.ResourceSnapshot{
		{MemoryAvailableBytes: 1024, CPULoadNormalised: 0.1, TemperatureCelsius: 40},
	}}
	thresholds := DefaultThresholds()
	thresholds.PollInterval = time.Second
	th := New(monitor, thresholds, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := th.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
