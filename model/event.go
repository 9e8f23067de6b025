package model

import "time"

// Pipeline stages recorded for each message round-trip. Stage names are part
// of the durable telemetry log format and must stay stable across releases.
const (
	StageRendererSend           = "rendererSend"
	StageIPCRequestSent         = "ipcRequestSent"
	StageAIServiceStarted       = "aiServiceStarted"
	StageOpenAIResponseReceived = "openaiResponseReceived"
	StageAIServiceFinished      = "aiServiceFinished"
	StageIPCReplyDelivered      = "ipcReplyDelivered"
	StageRendererStateUpdated   = "rendererStateUpdated"
	StageError                  = "error"

	// ToolStagePrefix prefixes free-form per-tool stages, e.g. "toolbox:NetworkCheck".
	ToolStagePrefix = "toolbox:"
)

// PipelineStages lists the fixed message-pipeline stage vocabulary in order.
var PipelineStages = []string{
	StageRendererSend,
	StageIPCRequestSent,
	StageAIServiceStarted,
	StageOpenAIResponseReceived,
	StageAIServiceFinished,
	StageIPCReplyDelivered,
	StageRendererStateUpdated,
}

// TelemetryEvent is one timestamped pipeline checkpoint. Events are immutable
// once recorded.
type TelemetryEvent struct {
	CorrelationID string         `json:"correlationId"`
	Stage         string         `json:"stage"`
	Timestamp     time.Time      `json:"timestamp"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// MessageTiming is the per-correlation-id latency breakdown derived from
// buffered events. It is recomputed on read and never persisted.
type MessageTiming struct {
	CorrelationID string
	// Stages maps observed pipeline stage names to their capture times.
	Stages map[string]time.Time
	// TotalLatency is rendererStateUpdated - rendererSend; valid only when
	// HasLatency is true (both stages were observed).
	TotalLatency time.Duration
	HasLatency   bool
	// Metadata carries the metadata of the first event seen for this id.
	Metadata map[string]any
}

// LastActivity returns the maximum observed stage timestamp, or the zero time
// when no pipeline stage was recorded.
func (t MessageTiming) LastActivity() time.Time {
	var max time.Time
	for _, ts := range t.Stages {
		if ts.After(max) {
			max = ts
		}
	}
	return max
}

// TelemetryStats aggregates the recent event buffer.
type TelemetryStats struct {
	// AverageAIResponseTime is the mean aiServiceStarted→aiServiceFinished
	// duration in milliseconds, 0 when no timing has both stages.
	AverageAIResponseTime float64 `json:"averageAiResponseTime"`
	// AverageToolRunTime maps tool name to mean run duration in milliseconds.
	AverageToolRunTime map[string]float64 `json:"averageToolRunTime"`
	// ErrorCounts counts error-stage events grouped by the "service"
	// metadata field ("unknown" when absent).
	ErrorCounts map[string]int `json:"errorCounts"`
}
