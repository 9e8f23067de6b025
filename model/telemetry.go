package model

import (
	"encoding/json"
	"time"
)

// HealthStatus represents overall system health derived from telemetry.
type HealthStatus int

const (
	StatusNominal HealthStatus = iota
	StatusWarning
	StatusCritical
)

func (s HealthStatus) String() string {
	switch s {
	case StatusNominal:
		return "NOMINAL"
	case StatusWarning:
		return "WARNING"
	case StatusCritical:
		return "CRITICAL"
	}
	return "UNKNOWN"
}

// MarshalJSON encodes the status as its string form.
func (s HealthStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the string form produced by MarshalJSON.
func (s *HealthStatus) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "WARNING":
		*s = StatusWarning
	case "CRITICAL":
		*s = StatusCritical
	default:
		*s = StatusNominal
	}
	return nil
}

// TelemetrySnapshot is the current telemetry reading, replaced wholesale
// on each sample cycle.
type TelemetrySnapshot struct {
	Status       HealthStatus `json:"status"`
	CPULoad      float64      `json:"cpuLoad"`
	MemoryLoad   float64      `json:"memoryLoad"`
	GPULoad      *float64     `json:"gpuLoad,omitempty"` // nil when no GPU probe is available
	ActiveAlerts []string     `json:"activeAlerts"`
	LastUpdated  time.Time    `json:"lastUpdated"`
}
