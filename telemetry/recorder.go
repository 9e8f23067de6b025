package telemetry

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/novahq/nova/model"
)

// maxBufferedEvents caps the in-memory event buffer. The durable log is
// unbounded and append-only.
const maxBufferedEvents = 1000

// logLine is the durable log format: one JSON object per line.
type logLine struct {
	CorrelationID string         `json:"correlationId"`
	Stage         string         `json:"stage"`
	Timestamp     string         `json:"timestamp"` // ISO-8601
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Recorder captures a best-effort diagnostic timeline of pipeline stage
// transitions. Events go into a bounded FIFO buffer and are mirrored
// asynchronously to a JSONL log file; log failures never reach the caller.
type Recorder struct {
	mu     sync.Mutex
	events []model.TelemetryEvent

	logPath string // empty disables the durable log
	logMu   sync.Mutex
}

// NewRecorder creates a recorder appending to the given log file. An empty
// path disables durable logging.
func NewRecorder(logPath string) *Recorder {
	return &Recorder{logPath: logPath}
}

// RecordEvent appends one stage event for the given correlation id.
func (r *Recorder) RecordEvent(stage, correlationID string, metadata map[string]any) {
	ev := model.TelemetryEvent{
		CorrelationID: correlationID,
		Stage:         stage,
		Timestamp:     time.Now(),
		Metadata:      metadata,
	}

	r.mu.Lock()
	r.events = append(r.events, ev)
	if len(r.events) > maxBufferedEvents {
		r.events = r.events[1:]
	}
	r.mu.Unlock()

	go r.appendLog(ev)
}

// Load feeds externally read events (e.g. a replayed log) into the buffer
// without re-writing them to the durable log.
func (r *Recorder) Load(events []model.TelemetryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	if n := len(r.events) - maxBufferedEvents; n > 0 {
		r.events = r.events[n:]
	}
}

// Events returns a copy of the buffered events in arrival order.
func (r *Recorder) Events() []model.TelemetryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.TelemetryEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) appendLog(ev model.TelemetryEvent) {
	if r.logPath == "" {
		return
	}
	r.logMu.Lock()
	defer r.logMu.Unlock()

	f, err := os.OpenFile(r.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("nova: telemetry log open: %v", err)
		return
	}
	defer f.Close()

	line := logLine{
		CorrelationID: ev.CorrelationID,
		Stage:         ev.Stage,
		Timestamp:     ev.Timestamp.UTC().Format(time.RFC3339Nano),
		Metadata:      ev.Metadata,
	}
	if err := json.NewEncoder(f).Encode(line); err != nil {
		log.Printf("nova: telemetry log write: %v", err)
	}
}

// Timings groups buffered events by correlation id into latency breakdowns,
// sorted most-recently-active first, returning at most limit entries.
func (r *Recorder) Timings(limit int) []model.MessageTiming {
	events := r.Events()

	known := make(map[string]bool, len(model.PipelineStages))
	for _, s := range model.PipelineStages {
		known[s] = true
	}

	byID := make(map[string]*model.MessageTiming)
	var order []string
	for _, ev := range events {
		t, ok := byID[ev.CorrelationID]
		if !ok {
			t = &model.MessageTiming{
				CorrelationID: ev.CorrelationID,
				Stages:        make(map[string]time.Time),
				Metadata:      ev.Metadata,
			}
			byID[ev.CorrelationID] = t
			order = append(order, ev.CorrelationID)
		}
		if known[ev.Stage] {
			t.Stages[ev.Stage] = ev.Timestamp
		}
	}

	timings := make([]model.MessageTiming, 0, len(order))
	for _, id := range order {
		t := byID[id]
		send, sendOK := t.Stages[model.StageRendererSend]
		updated, updatedOK := t.Stages[model.StageRendererStateUpdated]
		if sendOK && updatedOK {
			t.TotalLatency = updated.Sub(send)
			t.HasLatency = true
		}
		timings = append(timings, *t)
	}

	sort.SliceStable(timings, func(i, j int) bool {
		return timings[i].LastActivity().After(timings[j].LastActivity())
	})

	if limit > 0 && len(timings) > limit {
		timings = timings[:limit]
	}
	return timings
}

// Stats derives aggregate latency and error statistics from the most recent
// 100 timings and the raw event buffer. Missing or malformed inputs degrade
// to zero values, never errors.
func (r *Recorder) Stats() model.TelemetryStats {
	timings := r.Timings(100)
	events := r.Events()

	var aiTotal time.Duration
	aiCount := 0
	for _, t := range timings {
		started, okStart := t.Stages[model.StageAIServiceStarted]
		finished, okFinish := t.Stages[model.StageAIServiceFinished]
		if okStart && okFinish {
			aiTotal += finished.Sub(started)
			aiCount++
		}
	}
	avgAI := float64(0)
	if aiCount > 0 {
		avgAI = float64(aiTotal.Milliseconds()) / float64(aiCount)
	}

	toolTimes := make(map[string][]float64)
	errorCounts := make(map[string]int)
	for _, ev := range events {
		switch {
		case strings.HasPrefix(ev.Stage, model.ToolStagePrefix):
			name, _ := ev.Metadata["toolName"].(string)
			dur, ok := numericMetadata(ev.Metadata["duration"])
			if name != "" && ok && dur > 0 {
				toolTimes[name] = append(toolTimes[name], dur)
			}
		case ev.Stage == model.StageError:
			service, _ := ev.Metadata["service"].(string)
			if service == "" {
				service = "unknown"
			}
			errorCounts[service]++
		}
	}

	avgTool := make(map[string]float64, len(toolTimes))
	for name, durations := range toolTimes {
		var sum float64
		for _, d := range durations {
			sum += d
		}
		avgTool[name] = sum / float64(len(durations))
	}

	return model.TelemetryStats{
		AverageAIResponseTime: avgAI,
		AverageToolRunTime:    avgTool,
		ErrorCounts:           errorCounts,
	}
}

// numericMetadata coerces the loosely typed metadata values that arrive both
// from in-process callers and from JSON-decoded log lines.
func numericMetadata(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case time.Duration:
		return float64(n.Milliseconds()), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ReadEventLog reads all events from a JSONL telemetry log, skipping
// malformed lines. A missing file yields no events and no error.
func ReadEventLog(path string) ([]model.TelemetryEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []model.TelemetryEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line limit
	for scanner.Scan() {
		var line logLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, line.Timestamp)
		if err != nil {
			continue
		}
		events = append(events, model.TelemetryEvent{
			CorrelationID: line.CorrelationID,
			Stage:         line.Stage,
			Timestamp:     ts,
			Metadata:      line.Metadata,
		})
	}
	return events, scanner.Err()
}
