package throttle

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

// SystemMonitor implements ports.ResourceMonitorPort over gopsutil.
type SystemMonitor struct{}

// NewSystemMonitor creates a SystemMonitor.
func NewSystemMonitor() *SystemMonitor {
	return &SystemMonitor{}
}

// Snapshot reports current memory, CPU load, and temperature pressure.
// A load-average or temperature reading that gopsutil cannot produce on
// this platform is left at its zero value; a failure to read memory
// statistics fails the whole snapshot.
func (m *SystemMonitor) Snapshot(ctx context.Context) (models.ResourceSnapshot, error) {
	snap := models.ResourceSnapshot{}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return snap, fmt.Errorf("reading memory stats: %w", err)
	}
	snap.MemoryAvailableBytes = memInfo.Available
	snap.MemoryTotalBytes = memInfo.Total

	if avg, err := load.AvgWithContext(ctx); err == nil {
		// Load average is reported in core-units, matching the "80% of
		// logical cores" ceiling convention rather than a 0-100 percent.
		snap.CPULoadNormalised = avg.Load1
	}

	if temps, err := host.SensorsTemperaturesWithContext(ctx); err == nil {
		snap.TemperatureCelsius = maxTemperature(temps)
	}

	return snap, nil
}

func maxTemperature(temps []host.TemperatureStat) float64 {
	var max float64
	for _, t := range temps {
		if t.Temperature > max {
			max = t.Temperature
		}
	}
	return max
}

// LogicalCPUCount reports the number of logical CPUs visible to the
// process, used to size the CPU-load ceiling as a fraction of capacity.
func LogicalCPUCount() int {
	return runtime.NumCPU()
}
