package system

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type GPUInfo struct {
	Utilization float64 `json:"utilization"`
	MemoryUsed  float64 `json:"memory_used_mb"`
	MemoryTotal float64 `json:"memory_total_mb"`
}

// GetGPUInfo queries the first NVIDIA GPU through nvidia-smi.
func GetGPUInfo(ctx context.Context) (*GPUInfo, error) {
	cmd := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=utilization.gpu,memory.used,memory.total", "--format=csv,noheader,nounits")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("nvidia-smi command failed: %w", err)
	}
	return parseGPUInfo(string(output))
}

func parseGPUInfo(output string) (*GPUInfo, error) {
	// One line per GPU; only the first is reported.
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(output), "\n", 2)[0])
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return nil, fmt.Errorf("unexpected output format from nvidia-smi: got %d fields, expected 3", len(fields))
	}

	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("could not parse nvidia-smi field %q: %w", f, err)
		}
		values[i] = v
	}
	return &GPUInfo{Utilization: values[0], MemoryUsed: values[1], MemoryTotal: values[2]}, nil
}
