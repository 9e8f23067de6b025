// Package alerts keeps the in-memory alert registry. Alerts are deduplicated
// by source: at most one open alert exists per source, and repeated triggers
// update the open alert in place instead of creating duplicates.
package alerts

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/novahq/nova/model"
)

type record struct {
	alert model.Alert
	seq   uint64 // insertion order, used as the deterministic tie-break
}

// Store owns all alerts. Its methods are the only mutation surface; no method
// blocks or performs I/O.
type Store struct {
	mu      sync.Mutex
	byID    map[string]*record
	nextSeq uint64

	now func() time.Time
}

// New creates an empty alert store.
func New() *Store {
	return &Store{
		byID: make(map[string]*record),
		now:  time.Now,
	}
}

// Create registers an alert for source. When an open alert for the same
// source already exists, its severity and message are updated in place and
// the existing id is returned; id and createdAt are preserved.
func (s *Store) Create(severity model.AlertSeverity, source, message string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.openBySourceLocked(source); rec != nil {
		rec.alert.Severity = severity
		rec.alert.Message = message
		return rec.alert.ID
	}

	id := "alert-" + uuid.NewString()
	s.nextSeq++
	s.byID[id] = &record{
		alert: model.Alert{
			ID:        id,
			Severity:  severity,
			Source:    source,
			Message:   message,
			CreatedAt: s.now(),
		},
		seq: s.nextSeq,
	}
	return id
}

// ActiveAlert returns the open alert with the most recent createdAt, or nil
// when no alert is open. Equal timestamps resolve to the most recently
// inserted alert.
func (s *Store) ActiveAlert() *model.Alert {
	active := s.ActiveAlerts()
	if len(active) == 0 {
		return nil
	}
	a := active[0]
	return &a
}

// ActiveAlerts returns all open alerts sorted by createdAt descending, ties
// broken by insertion order (newest insertion first).
func (s *Store) ActiveAlerts() []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []*record
	for _, rec := range s.byID {
		if rec.alert.Open() {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].alert.CreatedAt.Equal(recs[j].alert.CreatedAt) {
			return recs[i].alert.CreatedAt.After(recs[j].alert.CreatedAt)
		}
		return recs[i].seq > recs[j].seq
	})

	out := make([]model.Alert, len(recs))
	for i, rec := range recs {
		out[i] = rec.alert
	}
	return out
}

// Resolve marks the alert as resolved and reports whether it made a change.
// Unknown ids and already-resolved alerts return false, never an error.
func (s *Store) Resolve(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || !rec.alert.Open() {
		return false
	}
	ts := s.now()
	rec.alert.ResolvedAt = &ts
	return true
}

// All returns every alert, open and resolved, in insertion order.
func (s *Store) All() []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]*record, 0, len(s.byID))
	for _, rec := range s.byID {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	out := make([]model.Alert, len(recs))
	for i, rec := range recs {
		out[i] = rec.alert
	}
	return out
}

// ClearResolved drops all resolved alerts from the store permanently.
func (s *Store) ClearResolved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.byID {
		if !rec.alert.Open() {
			delete(s.byID, id)
		}
	}
}

func (s *Store) openBySourceLocked(source string) *record {
	for _, rec := range s.byID {
		if rec.alert.Source == source && rec.alert.Open() {
			return rec
		}
	}
	return nil
}
