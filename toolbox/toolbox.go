// Package toolbox runs the OS-inspection tools: process inspector, event-log
// triage, and network check. Probe failures are absorbed into degraded
// reports; the only errors returned are persistence failures.
package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/novahq/nova/model"
)

// Tool names as persisted in reports and telemetry metadata.
const (
	ToolProcessInspector = "ProcessInspector"
	ToolEventLogTriage   = "EventLogTriage"
	ToolNetworkCheck     = "NetworkCheck"
)

// ReportSink persists tool reports.
type ReportSink interface {
	CreateToolReport(r model.ToolReportRecord) (model.ToolReportRecord, error)
}

// EventRecorder receives per-tool telemetry events.
type EventRecorder interface {
	RecordEvent(stage, correlationID string, metadata map[string]any)
}

// Service executes tools and persists their reports.
type Service struct {
	reports  ReportSink
	recorder EventRecorder
	probes   Probes
}

// NewService creates a toolbox backed by the host probes.
func NewService(reports ReportSink, recorder EventRecorder) *Service {
	return &Service{reports: reports, recorder: recorder, probes: hostToolProbes{}}
}

// NewServiceWithProbes creates a toolbox with injected probes.
func NewServiceWithProbes(reports ReportSink, recorder EventRecorder, probes Probes) *Service {
	return &Service{reports: reports, recorder: recorder, probes: probes}
}

// RunProcessInspector lists running processes and summarizes the top
// consumers.
func (s *Service) RunProcessInspector(ctx context.Context) (model.ToolReportRecord, error) {
	start := time.Now()

	procs, ok := s.probes.ProcessList(ctx)
	var report model.ToolReportRecord
	if !ok {
		report = model.ToolReportRecord{
			ToolName: ToolProcessInspector,
			Status:   "error",
			Summary:  "Failed to inspect processes: process list unavailable",
		}
	} else {
		topCPU := make([]string, 0, 5)
		for i, p := range procs {
			if i >= 5 {
				break
			}
			topCPU = append(topCPU, p.Name)
		}
		summary := fmt.Sprintf("Found %d running processes. Top CPU: %s",
			len(procs), strings.Join(topCPU, ", "))
		if len(procs) > 0 {
			summary += fmt.Sprintf(". Largest resident set: %s (%s)",
				humanize.Bytes(largestRSS(procs)), largestRSSName(procs))
		}
		report = model.ToolReportRecord{
			ToolName: ToolProcessInspector,
			Status:   "success",
			Summary:  summary,
			Details:  encodeDetails(map[string]any{"processes": procs, "count": len(procs)}),
		}
	}

	return s.finish(ctx, report, start)
}

// RunEventLogTriage scans recent system log entries for errors and warnings.
func (s *Service) RunEventLogTriage(ctx context.Context) (model.ToolReportRecord, error) {
	start := time.Now()

	entries, ok := s.probes.EventLogEntries(ctx)
	var report model.ToolReportRecord
	if !ok {
		report = model.ToolReportRecord{
			ToolName: ToolEventLogTriage,
			Status:   "error",
			Summary:  "Failed to read event log: log source unavailable",
		}
	} else {
		errorCount, warningCount := 0, 0
		for _, e := range entries {
			switch e.Severity {
			case "error":
				errorCount++
			case "warning":
				warningCount++
			}
		}
		report = model.ToolReportRecord{
			ToolName: ToolEventLogTriage,
			Status:   "success",
			Summary: fmt.Sprintf("Found %d errors and %d warnings in recent event log entries.",
				errorCount, warningCount),
			Details: encodeDetails(map[string]any{
				"entries":      entries,
				"errorCount":   errorCount,
				"warningCount": warningCount,
			}),
		}
	}

	return s.finish(ctx, report, start)
}

// RunNetworkCheck probes basic reachability, DNS, and latency.
func (s *Service) RunNetworkCheck(ctx context.Context) (model.ToolReportRecord, error) {
	start := time.Now()

	result := s.probes.NetworkCheck(ctx)
	status := "warning"
	if result.Status == "ok" {
		status = "success"
	}
	report := model.ToolReportRecord{
		ToolName: ToolNetworkCheck,
		Status:   status,
		Summary: fmt.Sprintf("Network status: %s. DNS: %s. Connectivity: %s.",
			result.Status, okFailed(result.DNSWorking), okFailed(result.Connectivity)),
		Details: encodeDetails(map[string]any{
			"status":       result.Status,
			"latencyMs":    result.LatencyMs,
			"dnsWorking":   result.DNSWorking,
			"connectivity": result.Connectivity,
		}),
	}

	return s.finish(ctx, report, start)
}

// finish persists the report and records the per-tool telemetry event.
func (s *Service) finish(_ context.Context, report model.ToolReportRecord, start time.Time) (model.ToolReportRecord, error) {
	saved, err := s.reports.CreateToolReport(report)

	duration := time.Since(start)
	metadata := map[string]any{
		"toolName": report.ToolName,
		"duration": float64(duration.Milliseconds()),
		"status":   report.Status,
	}
	if err != nil {
		metadata["persistError"] = err.Error()
	}
	s.recorder.RecordEvent(model.ToolStagePrefix+report.ToolName, uuid.NewString(), metadata)

	if err != nil {
		return model.ToolReportRecord{}, err
	}
	return saved, nil
}

func encodeDetails(v map[string]any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func okFailed(ok bool) string {
	if ok {
		return "OK"
	}
	return "Failed"
}

func largestRSS(procs []ProcessInfo) uint64 {
	var max uint64
	for _, p := range procs {
		if p.MemoryBytes > max {
			max = p.MemoryBytes
		}
	}
	return max
}

func largestRSSName(procs []ProcessInfo) string {
	var max uint64
	name := ""
	for _, p := range procs {
		if p.MemoryBytes >= max {
			max = p.MemoryBytes
			name = p.Name
		}
	}
	return name
}
