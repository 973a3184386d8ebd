package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"shiftguard/internal/alert/models"
	id "shiftguard/pkg/domain"
	dErrors "shiftguard/pkg/domain-errors"
)

// numTxShards spreads per-user transactions over a fixed set of mutexes.
const numTxShards = 64

const defaultTxTimeout = 5 * time.Second

// InMemoryStore keeps alerts in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	alerts map[id.AlertID]*models.Alert

	shards [numTxShards]sync.Mutex
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{alerts: make(map[id.AlertID]*models.Alert)}
}

func (s *InMemoryStore) FindAlert(_ context.Context, userID id.UserID, typ models.Type, filter models.Filter) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Alert
	for _, a := range s.alerts {
		if a.UserID != userID || a.Type != typ {
			continue
		}
		if filter.UnresolvedOnly && a.Resolved {
			continue
		}
		if !filter.CreatedSince.IsZero() && a.CreatedAt.Before(filter.CreatedSince) {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return cloneAlert(latest), nil
}

func (s *InMemoryStore) CreateAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.UserID == alert.UserID && a.Type == alert.Type && !a.Resolved {
			return ErrConflict
		}
	}
	if alert.ID.IsNil() {
		alert.ID = id.NewAlertID()
	}
	s.alerts[alert.ID] = cloneAlert(alert)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, alertID id.AlertID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAlert(a), nil
}

func (s *InMemoryStore) ResolveAlert(_ context.Context, alertID id.AlertID, resolvedBy string, at time.Time) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return nil, ErrNotFound
	}
	if err := a.Resolve(resolvedBy, at); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, ErrAlreadyResolved
		}
		return nil, err
	}
	return cloneAlert(a), nil
}

func (s *InMemoryStore) ResolveOpenBefore(_ context.Context, userID id.UserID, typ models.Type, before time.Time, resolvedBy string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.alerts {
		if a.UserID != userID || a.Type != typ || a.Resolved || !a.CreatedAt.Before(before) {
			continue
		}
		if err := a.Resolve(resolvedBy, at); err == nil {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) ListAlertsSince(_ context.Context, tenantID id.TenantID, since time.Time) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Alert
	for _, a := range s.alerts {
		if a.TenantID == tenantID && !a.CreatedAt.Before(since) {
			out = append(out, cloneAlert(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RunInTx serializes fn against other transactions for the same user.
func (s *InMemoryStore) RunInTx(ctx context.Context, userID id.UserID, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeDataUnavailable, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTxTimeout)
		defer cancel()
	}

	shard := &s.shards[shardFor(userID)]
	shard.Lock()
	defer shard.Unlock()

	return fn(ctx, s)
}

// shardFor hashes the user id with FNV-1a.
func shardFor(userID id.UserID) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for _, b := range userID {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return int(h % numTxShards)
}

func cloneAlert(a *models.Alert) *models.Alert {
	out := *a
	if a.Data != nil {
		out.Data = make(map[string]any, len(a.Data))
		for k, v := range a.Data {
			out.Data[k] = v
		}
	}
	if a.ResolvedAt != nil {
		at := *a.ResolvedAt
		out.ResolvedAt = &at
	}
	if a.ResolvedBy != nil {
		by := *a.ResolvedBy
		out.ResolvedBy = &by
	}
	return &out
}
