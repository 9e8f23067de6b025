package telemetry

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/novahq/nova/util"
)

// SystemProbes supplies raw load readings to the sampler. CPU and memory are
// synchronous and fast; the GPU probe may shell out and is only ever invoked
// off the sampling timer.
type SystemProbes interface {
	// CPULoad returns CPU utilization as a percentage of total capacity.
	CPULoad() (float64, error)
	// MemoryLoad returns used physical memory as a percentage.
	MemoryLoad() (float64, error)
	// GPULoad returns GPU utilization. ok is false when no GPU probe is
	// available or the probe failed; that is "no GPU data", not an error.
	GPULoad(ctx context.Context) (pct float64, ok bool)
}

// hostProbes reads /proc for CPU/memory and nvidia-smi for GPU utilization.
type hostProbes struct{}

// HostProbes returns probes backed by the local machine.
func HostProbes() SystemProbes {
	return hostProbes{}
}

// CPULoad approximates CPU utilization from the 1-minute load average
// normalized by core count, clamped to 100.
func (hostProbes) CPULoad() (float64, error) {
	line, err := util.ReadFileString("/proc/loadavg")
	if err != nil {
		return 0, fmt.Errorf("read /proc/loadavg: %w", err)
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty /proc/loadavg")
	}
	load, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parse loadavg %q: %w", fields[0], err)
	}
	pct := load / float64(runtime.NumCPU()) * 100
	return math.Min(100, math.Round(pct)), nil
}

// MemoryLoad computes used memory percent from MemTotal and MemAvailable.
func (hostProbes) MemoryLoad() (float64, error) {
	kv, err := util.ParseKeyValueFile("/proc/meminfo")
	if err != nil {
		return 0, fmt.Errorf("read /proc/meminfo: %w", err)
	}
	total := util.ParseUint64(kv["MemTotal"])
	avail := util.ParseUint64(kv["MemAvailable"])
	if total == 0 {
		return 0, fmt.Errorf("MemTotal missing in /proc/meminfo")
	}
	used := total - avail
	return math.Round(float64(used) / float64(total) * 100), nil
}

// GPULoad queries nvidia-smi when present. Any failure is treated as
// "no GPU data".
func (hostProbes) GPULoad(ctx context.Context) (float64, bool) {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return 0, false
	}
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=utilization.gpu", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return 0, false
	}
	// Multi-GPU hosts report one line per device; the first is enough here.
	first := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	v, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
