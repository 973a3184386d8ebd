package store

import (
	"context"
	"sort"
	"sync"

	"shiftguard/internal/tenant/models"
	id "shiftguard/pkg/domain"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	settings map[id.TenantID]models.Settings
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{settings: make(map[id.TenantID]models.Settings)}
}

// Put stores a full settings snapshot for a tenant.
func (s *InMemoryStore) Put(_ context.Context, settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.Tenant.ID] = cloneSettings(settings)
	return nil
}

func (s *InMemoryStore) GetSettings(_ context.Context, tenantID id.TenantID) (*models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneSettings(settings)
	return &out, nil
}

func (s *InMemoryStore) ListActiveTenants(_ context.Context) ([]models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Tenant
	for _, settings := range s.settings {
		if settings.Tenant.Active {
			out = append(out, settings.Tenant)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func cloneSettings(in models.Settings) models.Settings {
	out := models.Settings{Tenant: in.Tenant}
	if in.Geofence != nil {
		g := *in.Geofence
		out.Geofence = &g
	}
	if in.Overtime != nil {
		o := *in.Overtime
		out.Overtime = &o
	}
	if in.Breaks != nil {
		b := *in.Breaks
		out.Breaks = &b
	}
	return out
}
