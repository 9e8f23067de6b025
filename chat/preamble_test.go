package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/novahq/nova/model"
)

func TestBuildPreambleWithTelemetry(t *testing.T) {
	gpu := 63.0
	snap := &model.TelemetrySnapshot{
		Status:       model.StatusWarning,
		CPULoad:      91.4,
		MemoryLoad:   48,
		GPULoad:      &gpu,
		ActiveAlerts: []string{"CPU usage is high at 91 percent", "Memory usage is high at 90 percent"},
	}
	alert := &model.Alert{Message: "CPU usage is high at 91 percent"}

	got := BuildPreamble(snap, alert)

	assert.Contains(t, got, "You are Nova")
	assert.Contains(t, got, "ground truth")
	assert.Contains(t, got, "- Health status: WARNING")
	assert.Contains(t, got, "- CPU load: 91%")
	assert.Contains(t, got, "- Memory load: 48%")
	assert.Contains(t, got, "- GPU load: 63%")
	assert.Contains(t, got, "- Active alerts: CPU usage is high at 91 percent | Memory usage is high at 90 percent")
	assert.Contains(t, got, "- Primary alert: CPU usage is high at 91 percent")
}

func TestBuildPreambleNoGPU(t *testing.T) {
	snap := &model.TelemetrySnapshot{Status: model.StatusNominal, CPULoad: 12, MemoryLoad: 30}

	got := BuildPreamble(snap, nil)

	assert.Contains(t, got, "- GPU load: not available")
	assert.Contains(t, got, "- Active alerts: none")
	assert.NotContains(t, got, "Primary alert")
}

func TestBuildPreambleNoTelemetry(t *testing.T) {
	got := BuildPreamble(nil, nil)

	assert.Contains(t, got, "CURRENT SYSTEM TELEMETRY: not available")
	assert.Contains(t, got, "temporarily unavailable")
	assert.False(t, strings.Contains(got, "CPU load"), got)
}
