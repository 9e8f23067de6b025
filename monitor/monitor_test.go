package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novahq/nova/alerts"
	"github.com/novahq/nova/model"
)

type fakeSource struct {
	snap *model.TelemetrySnapshot
}

func (f *fakeSource) Snapshot() *model.TelemetrySnapshot { return f.snap }

type fakeSink struct {
	notifications []model.NotificationRecord
	listErr       error
	createErr     error
}

func (f *fakeSink) ListUnreadNotifications() ([]model.NotificationRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var unread []model.NotificationRecord
	for _, n := range f.notifications {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

func (f *fakeSink) CreateNotification(n model.NotificationRecord) (model.NotificationRecord, error) {
	if f.createErr != nil {
		return model.NotificationRecord{}, f.createErr
	}
	n.ID = "n-1"
	n.CreatedAt = time.Now()
	f.notifications = append(f.notifications, n)
	return n, nil
}

func snapshot(status model.HealthStatus, alerts ...string) *model.TelemetrySnapshot {
	return &model.TelemetrySnapshot{
		Status:       status,
		CPULoad:      50,
		MemoryLoad:   50,
		ActiveAlerts: alerts,
		LastUpdated:  time.Now(),
	}
}

func TestCheckNominalDoesNothing(t *testing.T) {
	store := alerts.New()
	sink := &fakeSink{}
	m := New(&fakeSource{snap: snapshot(model.StatusNominal)}, store, sink)

	m.Check()

	assert.Empty(t, store.ActiveAlerts())
	assert.Empty(t, sink.notifications)
}

func TestCheckNilSnapshotDoesNothing(t *testing.T) {
	store := alerts.New()
	sink := &fakeSink{}
	m := New(&fakeSource{}, store, sink)

	m.Check()

	assert.Empty(t, store.ActiveAlerts())
	assert.Empty(t, sink.notifications)
}

func TestCheckWarningRaisesAlertAndNotification(t *testing.T) {
	store := alerts.New()
	sink := &fakeSink{}
	msg := "CPU usage is high at 91 percent"
	m := New(&fakeSource{snap: snapshot(model.StatusWarning, msg)}, store, sink)

	m.Check()

	active := store.ActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, model.AlertWarning, active[0].Severity)
	assert.Equal(t, "Telemetry", active[0].Source)
	assert.Equal(t, msg, active[0].Message)

	require.Len(t, sink.notifications, 1)
	n := sink.notifications[0]
	assert.Equal(t, "warning", n.Type)
	assert.Equal(t, "System warning", n.Title)
	assert.Equal(t, msg, n.Message)
}

func TestCheckCriticalTitleAndSeverity(t *testing.T) {
	store := alerts.New()
	sink := &fakeSink{}
	msg := "Memory usage is high at 97 percent"
	m := New(&fakeSource{snap: snapshot(model.StatusCritical, msg)}, store, sink)

	m.Check()

	active := store.ActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, model.AlertCritical, active[0].Severity)

	require.Len(t, sink.notifications, 1)
	assert.Equal(t, "critical", sink.notifications[0].Type)
	assert.Equal(t, "Critical system issue", sink.notifications[0].Title)
}

func TestRepeatCheckThrottlesNotifications(t *testing.T) {
	store := alerts.New()
	sink := &fakeSink{}
	msg := "CPU usage is high at 91 percent"
	m := New(&fakeSource{snap: snapshot(model.StatusWarning, msg)}, store, sink)

	m.Check()
	m.Check()
	m.Check()

	// The open alert absorbs repeats; the unread notification suppresses more.
	assert.Len(t, store.ActiveAlerts(), 1)
	assert.Len(t, sink.notifications, 1)
}

func TestEscalationBypassesWarningThrottle(t *testing.T) {
	store := alerts.New()
	sink := &fakeSink{}
	src := &fakeSource{snap: snapshot(model.StatusWarning, "CPU usage is high at 91 percent")}
	m := New(src, store, sink)

	m.Check()
	src.snap = snapshot(model.StatusCritical, "CPU usage is high at 97 percent")
	m.Check()

	// Still one open alert (same source), but the critical notification is a
	// different type and is not throttled by the unread warning.
	active := store.ActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, model.AlertCritical, active[0].Severity)
	require.Len(t, sink.notifications, 2)
	assert.Equal(t, "warning", sink.notifications[0].Type)
	assert.Equal(t, "critical", sink.notifications[1].Type)
}

func TestReadNotificationDoesNotThrottle(t *testing.T) {
	store := alerts.New()
	sink := &fakeSink{}
	msg := "CPU usage is high at 91 percent"
	m := New(&fakeSource{snap: snapshot(model.StatusWarning, msg)}, store, sink)

	m.Check()
	sink.notifications[0].Read = true
	m.Check()

	assert.Len(t, sink.notifications, 2, "only unread notifications suppress repeats")
}

func TestStaleUnreadNotificationDoesNotThrottle(t *testing.T) {
	store := alerts.New()
	sink := &fakeSink{}
	msg := "CPU usage is high at 91 percent"
	m := New(&fakeSource{snap: snapshot(model.StatusWarning, msg)}, store, sink)

	m.Check()
	sink.notifications[0].CreatedAt = time.Now().Add(-6 * time.Minute)
	m.Check()

	assert.Len(t, sink.notifications, 2)
}

func TestSinkErrorsDoNotAbortPass(t *testing.T) {
	store := alerts.New()
	sink := &fakeSink{listErr: errors.New("db closed")}
	m := New(&fakeSource{snap: snapshot(model.StatusWarning, "CPU usage is high at 91 percent")}, store, sink)

	m.Check()

	// The alert is still raised even though notification delivery failed.
	assert.Len(t, store.ActiveAlerts(), 1)
	assert.Empty(t, sink.notifications)
}

func TestStartRestartSemantics(t *testing.T) {
	store := alerts.New()
	sink := &fakeSink{}
	m := New(&fakeSource{snap: snapshot(model.StatusNominal)}, store, sink)

	m.Start(50 * time.Millisecond)
	m.Start(50 * time.Millisecond) // must replace, not stack, the timer
	defer m.Stop()

	m.mu.Lock()
	stop := m.stop
	m.mu.Unlock()
	require.NotNil(t, stop)

	m.Stop()
	m.mu.Lock()
	assert.Nil(t, m.stop)
	m.mu.Unlock()

	m.Stop() // idempotent
}
