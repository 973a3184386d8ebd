package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shiftguard/internal/tenant/models"
	id "shiftguard/pkg/domain"
)

// PostgresStore reads tenant settings. Each optional section lives in its own
// table so "not configured" is simply a missing row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetSettings(ctx context.Context, tenantID id.TenantID) (*models.Settings, error) {
	query := `
		SELECT t.id, t.name, t.timezone, t.active,
			g.center_lat, g.center_lon, g.radius_meters, g.alert_after_minutes,
			o.tenant_id IS NOT NULL, o.warning_hours, o.critical_hours,
			b.max_break_minutes
		FROM tenants t
		LEFT JOIN tenant_geofence_configs g ON g.tenant_id = t.id
		LEFT JOIN tenant_overtime_configs o ON o.tenant_id = t.id
		LEFT JOIN tenant_break_policies b ON b.tenant_id = t.id
		WHERE t.id = $1
	`
	var (
		settings                models.Settings
		lat, lon, radius        sql.NullFloat64
		alertAfter, maxBreak    sql.NullInt64
		hasOvertime             bool
		warningHours, critHours sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID)).Scan(
		(*uuid.UUID)(&settings.Tenant.ID), &settings.Tenant.Name, &settings.Tenant.Timezone, &settings.Tenant.Active,
		&lat, &lon, &radius, &alertAfter,
		&hasOvertime, &warningHours, &critHours,
		&maxBreak,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get tenant settings: %w", err)
	}

	if radius.Valid {
		settings.Geofence = &models.GeofenceConfig{
			Center:            models.Point{Latitude: lat.Float64, Longitude: lon.Float64},
			RadiusMeters:      radius.Float64,
			AlertAfterMinutes: int(alertAfter.Int64),
		}
	}
	if hasOvertime {
		cfg, err := models.NewOvertimeConfig(nullFloatPtr(warningHours), nullFloatPtr(critHours))
		if err != nil {
			return nil, fmt.Errorf("tenant %s overtime config: %w", tenantID, err)
		}
		settings.Overtime = cfg
	}
	if maxBreak.Valid {
		settings.Breaks = &models.BreakPolicy{MaxBreakMinutes: int(maxBreak.Int64)}
	}
	return &settings, nil
}

// Put upserts the tenant and replaces its optional sections; a nil section
// deletes the row.
func (s *PostgresStore) Put(ctx context.Context, settings models.Settings) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	t := settings.Tenant
	tenantID := uuid.UUID(t.ID)
	timezone := t.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO tenants (id, name, timezone, active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, timezone = EXCLUDED.timezone, active = EXCLUDED.active
	`, tenantID, t.Name, timezone, t.Active); err != nil {
		return fmt.Errorf("upsert tenant: %w", err)
	}

	if g := settings.Geofence; g != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tenant_geofence_configs (tenant_id, center_lat, center_lon, radius_meters, alert_after_minutes)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (tenant_id) DO UPDATE SET center_lat = EXCLUDED.center_lat, center_lon = EXCLUDED.center_lon,
				radius_meters = EXCLUDED.radius_meters, alert_after_minutes = EXCLUDED.alert_after_minutes
		`, tenantID, g.Center.Latitude, g.Center.Longitude, g.RadiusMeters, g.AlertAfterMinutes)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM tenant_geofence_configs WHERE tenant_id = $1`, tenantID)
	}
	if err != nil {
		return fmt.Errorf("save geofence config: %w", err)
	}

	if o := settings.Overtime; o != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tenant_overtime_configs (tenant_id, warning_hours, critical_hours) VALUES ($1, $2, $3)
			ON CONFLICT (tenant_id) DO UPDATE SET warning_hours = EXCLUDED.warning_hours, critical_hours = EXCLUDED.critical_hours
		`, tenantID, o.WarningHours, o.CriticalHours)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM tenant_overtime_configs WHERE tenant_id = $1`, tenantID)
	}
	if err != nil {
		return fmt.Errorf("save overtime config: %w", err)
	}

	if b := settings.Breaks; b != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tenant_break_policies (tenant_id, max_break_minutes) VALUES ($1, $2)
			ON CONFLICT (tenant_id) DO UPDATE SET max_break_minutes = EXCLUDED.max_break_minutes
		`, tenantID, b.MaxBreakMinutes)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM tenant_break_policies WHERE tenant_id = $1`, tenantID)
	}
	if err != nil {
		return fmt.Errorf("save break policy: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tenant settings: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActiveTenants(ctx context.Context) ([]models.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, timezone, active FROM tenants WHERE active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	defer rows.Close()

	var out []models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan((*uuid.UUID)(&t.ID), &t.Name, &t.Timezone, &t.Active); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenants: %w", err)
	}
	return out, nil
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
