package store

import (
	"context"
	"sync"
	"time"

	"shiftguard/internal/attendance/models"
	id "shiftguard/pkg/domain"
)

// InMemoryStore keeps attendance events and location samples in process.
// Events are kept in arrival order so ties sort stably downstream.
type InMemoryStore struct {
	mu      sync.RWMutex
	events  map[id.UserID][]models.AttendanceEvent
	tenants map[id.UserID]id.TenantID
	samples map[id.UserID][]models.LocationSample
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		events:  make(map[id.UserID][]models.AttendanceEvent),
		tenants: make(map[id.UserID]id.TenantID),
		samples: make(map[id.UserID][]models.LocationSample),
	}
}

func (s *InMemoryStore) Append(_ context.Context, event models.AttendanceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID.IsNil() {
		event.ID = id.NewEventID()
	}
	s.events[event.UserID] = append(s.events[event.UserID], event)
	s.tenants[event.UserID] = event.TenantID
	return nil
}

func (s *InMemoryStore) AppendSample(_ context.Context, sample models.LocationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[sample.UserID] = append(s.samples[sample.UserID], sample)
	return nil
}

func (s *InMemoryStore) ListEventsForUser(_ context.Context, userID id.UserID, since time.Time) ([]models.AttendanceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AttendanceEvent
	for _, e := range s.events[userID] {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListUsersWithEventsSince(_ context.Context, tenantID id.TenantID, since time.Time) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []id.UserID
	for userID, events := range s.events {
		if s.tenants[userID] != tenantID {
			continue
		}
		for _, e := range events {
			if !e.Timestamp.Before(since) {
				out = append(out, userID)
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListLocationSamples(_ context.Context, userID id.UserID, since time.Time) ([]models.LocationSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LocationSample
	for _, sample := range s.samples[userID] {
		if !sample.RecordedAt.Before(since) {
			out = append(out, sample)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListOpenShifts(_ context.Context, tenantID id.TenantID, before time.Time) ([]models.OpenShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.OpenShift
	for userID, events := range s.events {
		if s.tenants[userID] != tenantID {
			continue
		}
		var last *models.AttendanceEvent
		for i := range events {
			e := &events[i]
			if !e.Timestamp.Before(before) || !(e.Type.OpensShift() || e.Type.ClosesShift()) {
				continue
			}
			// Ties go to the later arrival, matching the accumulator's stable sort.
			if last == nil || !e.Timestamp.Before(last.Timestamp) {
				last = e
			}
		}
		if last != nil && last.Type.OpensShift() {
			out = append(out, models.OpenShift{UserID: userID, StartedAt: last.Timestamp})
		}
	}
	return out, nil
}
