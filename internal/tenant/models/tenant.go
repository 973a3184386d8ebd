package models

import (
	"time"

	id "shiftguard/pkg/domain"
	dErrors "shiftguard/pkg/domain-errors"
)

// Tenant is an organization whose employees are evaluated together.
type Tenant struct {
	ID       id.TenantID `json:"id"`
	Name     string      `json:"name"`
	Timezone string      `json:"timezone"`
	Active   bool        `json:"active"`
}

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// GeofenceConfig is the tenant's circular work perimeter.
type GeofenceConfig struct {
	Center            Point   `json:"center"`
	RadiusMeters      float64 `json:"radius_meters"`
	AlertAfterMinutes int     `json:"alert_after_minutes"`
}

func (g GeofenceConfig) AlertAfter() time.Duration {
	return time.Duration(g.AlertAfterMinutes) * time.Minute
}

func (g GeofenceConfig) Validate() error {
	if g.Center.Latitude < -90 || g.Center.Latitude > 90 || g.Center.Longitude < -180 || g.Center.Longitude > 180 {
		return dErrors.New(dErrors.CodeInvariantViolation, "geofence center out of range")
	}
	if g.RadiusMeters <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "geofence radius must be positive")
	}
	if g.AlertAfterMinutes < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "geofence alert delay must not be negative")
	}
	return nil
}

// Default overtime tiers in hours.
const (
	DefaultWarningHours    = 9.0
	DefaultCriticalHours   = 12.0
	DefaultLegalLimitHours = 16.0
)

// OvertimeConfig holds the tiered daily working-hour thresholds. The legal
// limit is fixed; tenants may override warning and critical.
type OvertimeConfig struct {
	WarningHours    float64 `json:"warning_hours"`
	CriticalHours   float64 `json:"critical_hours"`
	LegalLimitHours float64 `json:"legal_limit_hours"`
}

// NewOvertimeConfig applies defaults for nil overrides and validates the tiers.
//
// Invariants:
//   - 0 < warning < critical < legal limit
func NewOvertimeConfig(warningHours, criticalHours *float64) (*OvertimeConfig, error) {
	cfg := &OvertimeConfig{
		WarningHours:    DefaultWarningHours,
		CriticalHours:   DefaultCriticalHours,
		LegalLimitHours: DefaultLegalLimitHours,
	}
	if warningHours != nil {
		cfg.WarningHours = *warningHours
	}
	if criticalHours != nil {
		cfg.CriticalHours = *criticalHours
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c OvertimeConfig) Validate() error {
	if c.WarningHours <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "overtime warning hours must be positive")
	}
	if c.CriticalHours <= c.WarningHours {
		return dErrors.New(dErrors.CodeInvariantViolation, "overtime critical hours must exceed warning hours")
	}
	if c.LegalLimitHours <= c.CriticalHours {
		return dErrors.New(dErrors.CodeInvariantViolation, "overtime critical hours must stay below the legal limit")
	}
	return nil
}

func (c OvertimeConfig) Warning() time.Duration    { return hours(c.WarningHours) }
func (c OvertimeConfig) Critical() time.Duration   { return hours(c.CriticalHours) }
func (c OvertimeConfig) LegalLimit() time.Duration { return hours(c.LegalLimitHours) }

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// BreakPolicy caps the length of a single break.
type BreakPolicy struct {
	MaxBreakMinutes int `json:"max_break_minutes"`
}

func (b BreakPolicy) MaxBreak() time.Duration {
	return time.Duration(b.MaxBreakMinutes) * time.Minute
}

// Settings is everything the evaluation pass needs about a tenant.
// A nil section means the tenant has not configured that check.
type Settings struct {
	Tenant   Tenant          `json:"tenant"`
	Geofence *GeofenceConfig `json:"geofence,omitempty"`
	Overtime *OvertimeConfig `json:"overtime,omitempty"`
	Breaks   *BreakPolicy    `json:"breaks,omitempty"`
}

// Location returns the tenant's time zone, falling back to UTC for an empty
// or unknown name.
func (s Settings) Location() *time.Location {
	if s.Tenant.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Tenant.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalMidnight returns 00:00 of now's calendar day in the tenant's time zone.
func (s Settings) LocalMidnight(now time.Time) time.Time {
	local := now.In(s.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}
