package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novahq/nova/model"
)

type fakeProbes struct {
	procs      []ProcessInfo
	procsOK    bool
	entries    []EventLogEntry
	entriesOK  bool
	netResult  NetworkCheckResult
}

func (f *fakeProbes) ProcessList(context.Context) ([]ProcessInfo, bool) {
	return f.procs, f.procsOK
}

func (f *fakeProbes) EventLogEntries(context.Context) ([]EventLogEntry, bool) {
	return f.entries, f.entriesOK
}

func (f *fakeProbes) NetworkCheck(context.Context) NetworkCheckResult {
	return f.netResult
}

type fakeReports struct {
	saved []model.ToolReportRecord
	err   error
}

func (f *fakeReports) CreateToolReport(r model.ToolReportRecord) (model.ToolReportRecord, error) {
	if f.err != nil {
		return model.ToolReportRecord{}, f.err
	}
	r.ID = "r-1"
	f.saved = append(f.saved, r)
	return r, nil
}

type fakeRecorder struct {
	stages   []string
	metadata []map[string]any
}

func (f *fakeRecorder) RecordEvent(stage, correlationID string, metadata map[string]any) {
	f.stages = append(f.stages, stage)
	f.metadata = append(f.metadata, metadata)
}

func TestRunProcessInspector(t *testing.T) {
	probes := &fakeProbes{
		procsOK: true,
		procs: []ProcessInfo{
			{PID: 1, Name: "chrome", CPU: 42.0, MemoryBytes: 2 << 30},
			{PID: 2, Name: "node", CPU: 12.5, MemoryBytes: 512 << 20},
		},
	}
	reports := &fakeReports{}
	rec := &fakeRecorder{}
	s := NewServiceWithProbes(reports, rec, probes)

	got, err := s.RunProcessInspector(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ToolProcessInspector, got.ToolName)
	assert.Equal(t, "success", got.Status)
	assert.Contains(t, got.Summary, "Found 2 running processes")
	assert.Contains(t, got.Summary, "chrome, node")

	var details map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.Details), &details))
	assert.EqualValues(t, 2, details["count"])

	require.Equal(t, []string{"toolbox:ProcessInspector"}, rec.stages)
	md := rec.metadata[0]
	assert.Equal(t, ToolProcessInspector, md["toolName"])
	assert.Equal(t, "success", md["status"])
	_, hasDuration := md["duration"]
	assert.True(t, hasDuration)
}

func TestRunProcessInspectorProbeFailure(t *testing.T) {
	reports := &fakeReports{}
	rec := &fakeRecorder{}
	s := NewServiceWithProbes(reports, rec, &fakeProbes{procsOK: false})

	got, err := s.RunProcessInspector(context.Background())
	require.NoError(t, err, "probe failure degrades the report, it is not an error")
	assert.Equal(t, "error", got.Status)
	assert.Contains(t, got.Summary, "Failed to inspect processes")
	assert.Equal(t, "error", rec.metadata[0]["status"])
}

func TestRunEventLogTriageCounts(t *testing.T) {
	probes := &fakeProbes{
		entriesOK: true,
		entries: []EventLogEntry{
			{Source: "kernel", Severity: "error", Message: "oops"},
			{Source: "sshd", Severity: "warning", Message: "failed auth"},
			{Source: "sshd", Severity: "warning", Message: "failed auth"},
		},
	}
	reports := &fakeReports{}
	s := NewServiceWithProbes(reports, &fakeRecorder{}, probes)

	got, err := s.RunEventLogTriage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "success", got.Status)
	assert.Contains(t, got.Summary, "Found 1 errors and 2 warnings")
}

func TestRunNetworkCheckDegraded(t *testing.T) {
	probes := &fakeProbes{netResult: NetworkCheckResult{
		Status: "degraded", LatencyMs: 250, DNSWorking: true, Connectivity: true,
	}}
	reports := &fakeReports{}
	rec := &fakeRecorder{}
	s := NewServiceWithProbes(reports, rec, probes)

	got, err := s.RunNetworkCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "warning", got.Status, "anything but ok maps to a warning report")
	assert.Contains(t, got.Summary, "Network status: degraded")
	assert.Contains(t, got.Summary, "DNS: OK")
}

func TestRunNetworkCheckOK(t *testing.T) {
	probes := &fakeProbes{netResult: NetworkCheckResult{
		Status: "ok", LatencyMs: 20, DNSWorking: true, Connectivity: true,
	}}
	s := NewServiceWithProbes(&fakeReports{}, &fakeRecorder{}, probes)

	got, err := s.RunNetworkCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "success", got.Status)
}

func TestPersistFailureStillRecordsEvent(t *testing.T) {
	reports := &fakeReports{err: errors.New("db closed")}
	rec := &fakeRecorder{}
	s := NewServiceWithProbes(reports, rec, &fakeProbes{procsOK: true})

	_, err := s.RunProcessInspector(context.Background())
	require.Error(t, err)

	require.Len(t, rec.metadata, 1)
	assert.Equal(t, "db closed", rec.metadata[0]["persistError"])
}
