package models

import (
	"math"
	"time"

	id "shiftguard/pkg/domain"
)

// EventType is one half of a paired attendance marker.
type EventType string

const (
	EventClockIn       EventType = "CLOCK_IN"
	EventClockOut      EventType = "CLOCK_OUT"
	EventBreakStart    EventType = "BREAK_START"
	EventBreakEnd      EventType = "BREAK_END"
	EventPersonalStart EventType = "PERSONAL_START"
	EventPersonalEnd   EventType = "PERSONAL_END"
	EventTripStart     EventType = "TRIP_START"
	EventTripEnd       EventType = "TRIP_END"
)

var validEventTypes = map[EventType]struct{}{
	EventClockIn: {}, EventClockOut: {},
	EventBreakStart: {}, EventBreakEnd: {},
	EventPersonalStart: {}, EventPersonalEnd: {},
	EventTripStart: {}, EventTripEnd: {},
}

func (t EventType) IsValid() bool {
	_, ok := validEventTypes[t]
	return ok
}

// OpensShift reports whether the event starts a shift.
func (t EventType) OpensShift() bool { return t == EventClockIn || t == EventTripStart }

// ClosesShift reports whether the event ends a shift.
func (t EventType) ClosesShift() bool { return t == EventClockOut || t == EventTripEnd }

// OpenShift is a shift whose latest boundary event before some cutoff was an
// opener, so the user may still be on duty after the cutoff.
type OpenShift struct {
	UserID    id.UserID
	StartedAt time.Time
}

// Location is a GPS fix. Accuracy is the reported radius in meters.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Accuracy  float64 `json:"accuracy"`
}

// InRange reports whether the coordinates are finite and on the globe.
func (l Location) InRange() bool {
	if math.IsNaN(l.Latitude) || math.IsNaN(l.Longitude) || math.IsNaN(l.Accuracy) {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180 &&
		l.Accuracy >= 0
}

// AttendanceEvent is an immutable, append-only attendance fact.
//
// Only an approved correction rewrites Timestamp, Notes or Location, and it
// stamps CorrectionApplied/CorrectionID so the provenance stays visible.
type AttendanceEvent struct {
	ID                id.EventID  `json:"id"`
	UserID            id.UserID   `json:"user_id"`
	TenantID          id.TenantID `json:"tenant_id"`
	Type              EventType   `json:"type"`
	Timestamp         time.Time   `json:"timestamp"`
	Location          *Location   `json:"location,omitempty"`
	Verified          bool        `json:"verified"`
	Notes             string      `json:"notes,omitempty"`
	CorrectionApplied bool        `json:"correction_applied"`
	CorrectionID      *string     `json:"correction_id,omitempty"`
}

// LocationSample is one point of a user's location history.
type LocationSample struct {
	UserID     id.UserID `json:"user_id"`
	Location   Location  `json:"location"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SamplesFromEvents extracts the locations attached to events.
func SamplesFromEvents(events []AttendanceEvent) []LocationSample {
	var out []LocationSample
	for _, e := range events {
		if e.Location == nil {
			continue
		}
		out = append(out, LocationSample{UserID: e.UserID, Location: *e.Location, RecordedAt: e.Timestamp})
	}
	return out
}
