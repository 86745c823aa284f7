package models

// ResourceSnapshot is a point-in-time read of host resource pressure,
// used by the ResourceThrottler to gate admission of new runs.
type ResourceSnapshot struct {
	MemoryAvailableBytes uint64  `json:"memory_available_bytes"`
	MemoryTotalBytes     uint64  `json:"memory_total_bytes"`
	CPULoadNormalised    float64 `json:"cpu_load_normalised"` // 0.0-1.0+ of logical cores
	TemperatureCelsius   float64 `json:"temperature_celsius"`
}
