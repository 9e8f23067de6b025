package model

import "time"

// AlertSeverity classifies an alert.
type AlertSeverity string

const (
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// Alert is a deduplicated problem report raised by a subsystem.
// At most one open alert exists per Source at any time.
type Alert struct {
	ID         string        `json:"id"`
	Severity   AlertSeverity `json:"severity"`
	Source     string        `json:"source"` // e.g. "Telemetry", a tool name
	Message    string        `json:"message"`
	CreatedAt  time.Time     `json:"createdAt"`
	ResolvedAt *time.Time    `json:"resolvedAt,omitempty"` // nil while open
}

// Open reports whether the alert has not been resolved.
func (a Alert) Open() bool {
	return a.ResolvedAt == nil
}
