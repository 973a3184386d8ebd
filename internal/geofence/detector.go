// Package geofence detects employees who have left their tenant's work
// perimeter while clocked in.
package geofence

import (
	"fmt"
	"sort"
	"time"

	alertmodels "shiftguard/internal/alert/models"
	attendance "shiftguard/internal/attendance/models"
	"shiftguard/internal/attendance/session"
	tenantmodels "shiftguard/internal/tenant/models"
	id "shiftguard/pkg/domain"
	dErrors "shiftguard/pkg/domain-errors"
)

// LocationPolicy bounds which samples are trusted.
type LocationPolicy struct {
	Freshness         time.Duration
	MaxAccuracyMeters float64
}

// DefaultLocationPolicy trusts fixes up to 15 minutes old and 200m accuracy.
var DefaultLocationPolicy = LocationPolicy{Freshness: 15 * time.Minute, MaxAccuracyMeters: 200}

type Input struct {
	UserID   id.UserID
	TenantID id.TenantID
	// Samples is the recent location history in any order.
	Samples []attendance.LocationSample
	Config  tenantmodels.GeofenceConfig
	Session session.WorkSession
	// OpenAlert is the user's unresolved geofence alert, if any.
	OpenAlert *alertmodels.Alert
	Now       time.Time
	Policy    LocationPolicy
}

// Result explains a detection. Candidate is nil when nothing should fire.
type Result struct {
	Candidate    *alertmodels.Candidate
	Distance     float64
	Outside      bool
	OutsideSince time.Time
	// Err carries CodeInvalidLocation when no trustworthy fix exists.
	Err error
}

// Detect decides whether a geofence violation alert should be raised.
//
// A candidate exists only when the user is WORKING, the latest trusted fix is
// fresh and outside the radius, the user has been outside continuously for at
// least AlertAfter, and no unresolved geofence alert is on file.
func Detect(in Input) Result {
	if !in.Session.IsWorking() {
		return Result{}
	}

	samples := trusted(in.Samples, in.Policy)
	if len(samples) == 0 {
		return Result{Err: dErrors.New(dErrors.CodeInvalidLocation, "no usable location sample")}
	}
	latest := samples[len(samples)-1]
	if in.Policy.Freshness > 0 && in.Now.Sub(latest.RecordedAt) > in.Policy.Freshness {
		return Result{Err: dErrors.New(dErrors.CodeInvalidLocation, "latest location sample is stale")}
	}

	center := in.Config.Center
	distance := Haversine(center.Latitude, center.Longitude, latest.Location.Latitude, latest.Location.Longitude)
	if distance <= in.Config.RadiusMeters {
		return Result{Distance: distance}
	}

	outsideSince := latest.RecordedAt
	for i := len(samples) - 1; i >= 0; i-- {
		s := samples[i]
		if Haversine(center.Latitude, center.Longitude, s.Location.Latitude, s.Location.Longitude) <= in.Config.RadiusMeters {
			break
		}
		outsideSince = s.RecordedAt
	}
	// Time spent outside before this working segment began does not count.
	if outsideSince.Before(in.Session.StateEnteredAt) {
		outsideSince = in.Session.StateEnteredAt
	}

	res := Result{Distance: distance, Outside: true, OutsideSince: outsideSince}
	if in.Now.Sub(outsideSince) < in.Config.AlertAfter() {
		return res
	}
	if in.OpenAlert != nil && !in.OpenAlert.Resolved {
		return res
	}

	outsideMinutes := int(in.Now.Sub(outsideSince).Minutes())
	res.Candidate = &alertmodels.Candidate{
		UserID:   in.UserID,
		TenantID: in.TenantID,
		Type:     alertmodels.TypeGeofence,
		Severity: alertmodels.SeverityHigh,
		Title:    "Outside work area",
		Message: fmt.Sprintf("Employee has been %.0fm outside the work area for %d minutes",
			distance-in.Config.RadiusMeters, outsideMinutes),
		Data: map[string]any{
			"distance_meters": distance,
			"radius_meters":   in.Config.RadiusMeters,
			"latitude":        latest.Location.Latitude,
			"longitude":       latest.Location.Longitude,
			"accuracy":        latest.Location.Accuracy,
			"outside_since":   outsideSince.UTC().Format(time.RFC3339),
		},
	}
	return res
}

// trusted drops invalid samples and returns the rest sorted by time.
func trusted(samples []attendance.LocationSample, policy LocationPolicy) []attendance.LocationSample {
	out := make([]attendance.LocationSample, 0, len(samples))
	for _, s := range samples {
		if s.RecordedAt.IsZero() || !s.Location.InRange() {
			continue
		}
		if policy.MaxAccuracyMeters > 0 && s.Location.Accuracy > policy.MaxAccuracyMeters {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out
}
