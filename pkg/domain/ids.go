// Package domain holds the typed identifiers shared across modules.
//
// Each identifier wraps a UUID in its own named type so a UserID can never be
// passed where a TenantID is expected. Parsing happens once at trust boundaries
// (HTTP params, CLI flags, rows read from storage); everything inside works on
// the typed values.
package domain

import (
	"github.com/google/uuid"

	dErrors "shiftguard/pkg/domain-errors"
)

type (
	UserID   uuid.UUID
	TenantID uuid.UUID
	AlertID  uuid.UUID
	EventID  uuid.UUID
)

func NewUserID() UserID     { return UserID(uuid.New()) }
func NewTenantID() TenantID { return TenantID(uuid.New()) }
func NewAlertID() AlertID   { return AlertID(uuid.New()) }
func NewEventID() EventID   { return EventID(uuid.New()) }

func (id UserID) String() string   { return uuid.UUID(id).String() }
func (id TenantID) String() string { return uuid.UUID(id).String() }
func (id AlertID) String() string  { return uuid.UUID(id).String() }
func (id EventID) String() string  { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AlertID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id TenantID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id AlertID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id EventID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TenantID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AlertID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EventID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseUserID parses a non-nil UUID string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

// ParseTenantID parses a non-nil UUID string into a TenantID.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s, "tenant_id")
	return TenantID(u), err
}

// ParseAlertID parses a non-nil UUID string into an AlertID.
func ParseAlertID(s string) (AlertID, error) {
	u, err := parseUUID(s, "alert_id")
	return AlertID(u), err
}

// ParseEventID parses a non-nil UUID string into an EventID.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event_id")
	return EventID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}
