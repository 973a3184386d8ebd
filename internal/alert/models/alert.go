package models

import (
	"time"

	id "shiftguard/pkg/domain"
	dErrors "shiftguard/pkg/domain-errors"
)

// Type identifies the violation an alert reports. Each overtime tier is its
// own type so the tiers dedup independently.
type Type string

const (
	TypeGeofence           Type = "geofence_violation"
	TypeOvertimeWarning    Type = "overtime_warning"
	TypeOvertimeCritical   Type = "overtime_critical"
	TypeOvertimeLegalLimit Type = "overtime_legal_limit"
	TypeBreakExceeded      Type = "break_exceeded"
	TypeMissingClockOut    Type = "missing_clock_out"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeGeofence, TypeOvertimeWarning, TypeOvertimeCritical, TypeOvertimeLegalLimit,
		TypeBreakExceeded, TypeMissingClockOut:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// DedupPolicy selects the suppression window for an alert type.
type DedupPolicy string

const (
	// DedupEpisode suppresses while an unresolved alert of the type exists.
	DedupEpisode DedupPolicy = "episode"
	// DedupDaily suppresses any alert of the type raised since local midnight,
	// resolved or not.
	DedupDaily DedupPolicy = "daily"
)

func (t Type) DedupPolicy() DedupPolicy {
	if t == TypeGeofence {
		return DedupEpisode
	}
	return DedupDaily
}

// Category is the preference-matrix column an alert type is routed under.
type Category string

const (
	CategoryGeofence      Category = "geofence"
	CategoryBreak         Category = "break"
	CategoryShift         Category = "shift"
	CategoryCorrections   Category = "corrections"
	CategoryBusinessTrips Category = "businessTrips"
)

// Categories lists every preference category in matrix order.
var Categories = []Category{CategoryGeofence, CategoryBreak, CategoryShift, CategoryCorrections, CategoryBusinessTrips}

func (c Category) IsValid() bool {
	switch c {
	case CategoryGeofence, CategoryBreak, CategoryShift, CategoryCorrections, CategoryBusinessTrips:
		return true
	}
	return false
}

func (t Type) Category() Category {
	switch t {
	case TypeGeofence:
		return CategoryGeofence
	case TypeBreakExceeded:
		return CategoryBreak
	default:
		return CategoryShift
	}
}

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Escalates reports whether alerts of this severity also go to managers and admins.
func (s Severity) Escalates() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Alert is a persisted violation notice. Only Resolve mutates it.
type Alert struct {
	ID         id.AlertID     `json:"id"`
	UserID     id.UserID      `json:"user_id"`
	TenantID   id.TenantID    `json:"tenant_id"`
	Type       Type           `json:"type"`
	Severity   Severity       `json:"severity"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	Resolved   bool           `json:"resolved"`
	CreatedAt  time.Time      `json:"created_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	ResolvedBy *string        `json:"resolved_by,omitempty"`
}

// Resolve marks the alert resolved. Resolving twice is a conflict.
func (a *Alert) Resolve(by string, at time.Time) error {
	if a.Resolved {
		return dErrors.New(dErrors.CodeConflict, "alert already resolved")
	}
	a.Resolved = true
	a.ResolvedAt = &at
	a.ResolvedBy = &by
	return nil
}

// Candidate is a detector's proposal for a new alert, before dedup.
type Candidate struct {
	UserID   id.UserID
	TenantID id.TenantID
	Type     Type
	Severity Severity
	Title    string
	Message  string
	Data     map[string]any
}

// NewAlert materializes the candidate with a fresh id.
func (c Candidate) NewAlert(createdAt time.Time) *Alert {
	return &Alert{
		ID:        id.NewAlertID(),
		UserID:    c.UserID,
		TenantID:  c.TenantID,
		Type:      c.Type,
		Severity:  c.Severity,
		Title:     c.Title,
		Message:   c.Message,
		Data:      c.Data,
		CreatedAt: createdAt,
	}
}

// Filter narrows FindAlert. Zero values do not constrain.
type Filter struct {
	UnresolvedOnly bool
	CreatedSince   time.Time
}

// RolloverActor is recorded as resolver when a new day supersedes a stale
// daily alert.
const RolloverActor = "system:rollover"
