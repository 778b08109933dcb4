// Package system reports host resource usage for the status endpoint.
package system

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats is a point-in-time view of host usage.
type Stats struct {
	CPUPercent    float64  `json:"cpu_percent"`
	MemoryPercent float64  `json:"memory_percent"`
	GPU           *GPUInfo `json:"gpu,omitempty"`
}

// GetCPUUsage returns the current CPU usage as a percentage
func GetCPUUsage(ctx context.Context) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("could not get CPU usage")
	}
	return percentages[0], nil
}

// GetMemoryUsage returns the current memory usage as a percentage
func GetMemoryUsage(ctx context.Context) (float64, error) {
	virtualMem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return virtualMem.UsedPercent, nil
}

// Snapshot collects CPU, memory and, when an NVIDIA GPU is present, GPU usage.
// A local speech engine usually shares the host, so its GPU load shows up here.
func Snapshot(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error
	if stats.CPUPercent, err = GetCPUUsage(ctx); err != nil {
		return stats, fmt.Errorf("could not read cpu usage: %w", err)
	}
	if stats.MemoryPercent, err = GetMemoryUsage(ctx); err != nil {
		return stats, fmt.Errorf("could not read memory usage: %w", err)
	}
	if gpu, err := GetGPUInfo(ctx); err == nil {
		stats.GPU = gpu
	}
	return stats, nil
}
