package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"shiftguard/internal/tenant/models"
	id "shiftguard/pkg/domain"
)

// SettingsReader is the read side the cache wraps.
type SettingsReader interface {
	GetSettings(ctx context.Context, tenantID id.TenantID) (*models.Settings, error)
	ListActiveTenants(ctx context.Context) ([]models.Tenant, error)
}

// CachedStore is a read-through Redis cache in front of a SettingsReader.
// Cache failures are logged and fall through to the backing store.
type CachedStore struct {
	next   SettingsReader
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(next SettingsReader, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{next: next, client: client, ttl: ttl, logger: logger}
}

func settingsKey(tenantID id.TenantID) string {
	return "shiftguard:tenant:settings:" + tenantID.String()
}

func (c *CachedStore) GetSettings(ctx context.Context, tenantID id.TenantID) (*models.Settings, error) {
	key := settingsKey(tenantID)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var settings models.Settings
		if jsonErr := json.Unmarshal(raw, &settings); jsonErr == nil {
			return &settings, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached settings", "tenant_id", tenantID.String())
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "settings cache read failed", "tenant_id", tenantID.String(), "error", err)
	}

	settings, err := c.next.GetSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode tenant settings: %w", err)
	}
	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "settings cache write failed", "tenant_id", tenantID.String(), "error", err)
	}
	return settings, nil
}

// ListActiveTenants is never cached so new tenants are picked up on the next pass.
func (c *CachedStore) ListActiveTenants(ctx context.Context) ([]models.Tenant, error) {
	return c.next.ListActiveTenants(ctx)
}

// Invalidate drops the cached settings for a tenant.
func (c *CachedStore) Invalidate(ctx context.Context, tenantID id.TenantID) error {
	if err := c.client.Del(ctx, settingsKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("invalidate tenant settings: %w", err)
	}
	return nil
}
