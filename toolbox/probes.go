package toolbox

import (
	"context"
	"encoding/json"
	"net"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ProcessInfo is one row of the process inspector.
type ProcessInfo struct {
	PID         int     `json:"pid"`
	Name        string  `json:"name"`
	CPU         float64 `json:"cpu"`
	MemoryBytes uint64  `json:"memory"`
}

// EventLogEntry is one triaged system log line.
type EventLogEntry struct {
	Source    string `json:"source"`
	Severity  string `json:"severity"` // "error" or "warning"
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NetworkCheckResult is the outcome of one reachability probe.
type NetworkCheckResult struct {
	Status       string  `json:"status"` // "ok", "degraded", "failed"
	LatencyMs    float64 `json:"latencyMs"`
	DNSWorking   bool    `json:"dnsWorking"`
	Connectivity bool    `json:"connectivity"`
}

// Probes supplies raw tool data. ok is false when the underlying source is
// unavailable, which is distinct from a successful probe with zero items.
type Probes interface {
	ProcessList(ctx context.Context) ([]ProcessInfo, bool)
	EventLogEntries(ctx context.Context) ([]EventLogEntry, bool)
	NetworkCheck(ctx context.Context) NetworkCheckResult
}

// hostToolProbes shells out to ps, journalctl, and ping.
type hostToolProbes struct{}

const maxProcessRows = 20

func (hostToolProbes) ProcessList(ctx context.Context) ([]ProcessInfo, bool) {
	out, err := exec.CommandContext(ctx, "ps", "-eo", "pid,comm,pcpu,rss", "--no-headers").Output()
	if err != nil {
		return nil, false
	}

	var procs []ProcessInfo
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		cpu, _ := strconv.ParseFloat(fields[2], 64)
		rssKB, _ := strconv.ParseUint(fields[3], 10, 64)
		procs = append(procs, ProcessInfo{
			PID:         pid,
			Name:        fields[1],
			CPU:         cpu,
			MemoryBytes: rssKB * 1024,
		})
	}
	sort.Slice(procs, func(i, j int) bool { return procs[i].CPU > procs[j].CPU })
	if len(procs) > maxProcessRows {
		procs = procs[:maxProcessRows]
	}
	return procs, true
}

// journalLine is the subset of journalctl's JSON output the triage needs.
type journalLine struct {
	Message    string `json:"MESSAGE"`
	Priority   string `json:"PRIORITY"`
	Identifier string `json:"SYSLOG_IDENTIFIER"`
	Realtime   string `json:"__REALTIME_TIMESTAMP"` // microseconds since epoch
}

func (hostToolProbes) EventLogEntries(ctx context.Context) ([]EventLogEntry, bool) {
	out, err := exec.CommandContext(ctx, "journalctl",
		"-p", "warning", "-n", "20", "-o", "json", "--no-pager").Output()
	if err != nil {
		return nil, false
	}

	entries := []EventLogEntry{}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var jl journalLine
		if err := json.Unmarshal([]byte(line), &jl); err != nil {
			continue
		}
		severity := "warning"
		if p, err := strconv.Atoi(jl.Priority); err == nil && p <= 3 {
			severity = "error"
		}
		source := jl.Identifier
		if source == "" {
			source = "unknown"
		}
		entries = append(entries, EventLogEntry{
			Source:    source,
			Severity:  severity,
			Message:   jl.Message,
			Timestamp: realtimeToISO(jl.Realtime),
		})
	}
	return entries, true
}

func realtimeToISO(us string) string {
	v, err := strconv.ParseInt(us, 10, 64)
	if err != nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return time.UnixMicro(v).UTC().Format(time.RFC3339)
}

func (hostToolProbes) NetworkCheck(ctx context.Context) NetworkCheckResult {
	var result NetworkCheckResult

	start := time.Now()
	if err := exec.CommandContext(ctx, "ping", "-c", "1", "-W", "2", "8.8.8.8").Run(); err == nil {
		result.Connectivity = true
		result.LatencyMs = float64(time.Since(start).Milliseconds())
	}

	if _, err := net.DefaultResolver.LookupHost(ctx, "example.com"); err == nil {
		result.DNSWorking = true
	}

	switch {
	case result.Connectivity && result.LatencyMs < 100:
		result.Status = "ok"
	case result.Connectivity && result.LatencyMs < 500:
		result.Status = "degraded"
	default:
		result.Status = "failed"
	}
	return result
}
