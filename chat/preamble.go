package chat

import (
	"fmt"
	"strings"

	"github.com/novahq/nova/model"
)

// BuildPreamble renders the system instruction injected before every model
// call. Telemetry is presented as ground truth; when it is missing the
// assistant is told it is temporarily unavailable rather than invisible.
func BuildPreamble(snap *model.TelemetrySnapshot, alert *model.Alert) string {
	lines := []string{
		"You are Nova, a system admin companion for power users.",
		"You can see the telemetry block below and must treat it as ground truth.",
		"Never say that you cannot see the system. If telemetry is missing, say it is temporarily unavailable.",
		"Use alerts to prioritize what you explain and which tools you propose.",
		"",
	}
	lines = append(lines, telemetryBlock(snap, alert)...)
	return strings.Join(lines, "\n")
}

func telemetryBlock(snap *model.TelemetrySnapshot, alert *model.Alert) []string {
	if snap == nil {
		return []string{"CURRENT SYSTEM TELEMETRY: not available"}
	}

	lines := []string{
		"CURRENT SYSTEM TELEMETRY:",
		fmt.Sprintf("- Health status: %s", snap.Status),
		fmt.Sprintf("- CPU load: %.0f%%", snap.CPULoad),
		fmt.Sprintf("- Memory load: %.0f%%", snap.MemoryLoad),
	}
	if snap.GPULoad != nil {
		lines = append(lines, fmt.Sprintf("- GPU load: %.0f%%", *snap.GPULoad))
	} else {
		lines = append(lines, "- GPU load: not available")
	}
	if len(snap.ActiveAlerts) > 0 {
		lines = append(lines, "- Active alerts: "+strings.Join(snap.ActiveAlerts, " | "))
	} else {
		lines = append(lines, "- Active alerts: none")
	}
	if alert != nil {
		lines = append(lines, "- Primary alert: "+alert.Message)
	}
	return lines
}
