// Package monitor bridges telemetry samples into the alert store and the
// user-facing notification channel.
package monitor

import (
	"log"
	"sync"
	"time"

	"github.com/novahq/nova/alerts"
	"github.com/novahq/nova/model"
)

// notifyCooldown suppresses repeat notifications of the same type while an
// unread one from the last five minutes exists.
const notifyCooldown = 5 * time.Minute

// SnapshotSource provides the most recent telemetry snapshot, or nil before
// the first sample completes.
type SnapshotSource interface {
	Snapshot() *model.TelemetrySnapshot
}

// NotificationSink persists user-facing notifications.
type NotificationSink interface {
	ListUnreadNotifications() ([]model.NotificationRecord, error)
	CreateNotification(n model.NotificationRecord) (model.NotificationRecord, error)
}

// HealthMonitor periodically reads the cached telemetry snapshot, raises
// alerts for degraded status, and emits throttled notifications. It keeps no
// persisted state of its own.
type HealthMonitor struct {
	source SnapshotSource
	alerts *alerts.Store
	sink   NotificationSink

	mu   sync.Mutex
	stop chan struct{}
}

// New creates a monitor. All collaborators are injected; the monitor never
// constructs its own.
func New(source SnapshotSource, alertStore *alerts.Store, sink NotificationSink) *HealthMonitor {
	return &HealthMonitor{source: source, alerts: alertStore, sink: sink}
}

// Start runs one check immediately, then re-checks on the given interval.
// Starting a running monitor stops the previous timer first (restart
// semantics, not a second timer).
func (m *HealthMonitor) Start(interval time.Duration) {
	m.mu.Lock()
	if m.stop != nil {
		close(m.stop)
	}
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	m.Check()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.Check()
			}
		}
	}()
}

// Stop cancels the check timer.
func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

// Check runs one monitoring pass. With no snapshot available yet it returns
// silently. Notification failures are logged and never abort the pass.
func (m *HealthMonitor) Check() {
	snap := m.source.Snapshot()
	if snap == nil {
		return
	}
	if snap.Status != model.StatusWarning && snap.Status != model.StatusCritical {
		return
	}

	severity := model.AlertWarning
	notifType := "warning"
	title := "System warning"
	if snap.Status == model.StatusCritical {
		severity = model.AlertCritical
		notifType = "critical"
		title = "Critical system issue"
	}

	for _, message := range snap.ActiveAlerts {
		// Same-source creates collapse into one open alert whose message is
		// the last one processed this tick; see the alerts package contract.
		m.alerts.Create(severity, "Telemetry", message)
		m.notify(notifType, string(severity), title, message)
	}
}

// notify creates a notification unless an unread one of the same type was
// created within the cooldown window.
func (m *HealthMonitor) notify(notifType, severity, title, message string) {
	unread, err := m.sink.ListUnreadNotifications()
	if err != nil {
		log.Printf("nova: monitor: list notifications: %v", err)
		return
	}
	for _, n := range unread {
		if n.Type == notifType && time.Since(n.CreatedAt) < notifyCooldown {
			return
		}
	}

	_, err = m.sink.CreateNotification(model.NotificationRecord{
		Type:     notifType,
		Severity: severity,
		Title:    title,
		Message:  message,
	})
	if err != nil {
		log.Printf("nova: monitor: create notification: %v", err)
	}
}
