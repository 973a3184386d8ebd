package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alertmodels "shiftguard/internal/alert/models"
	attendance "shiftguard/internal/attendance/models"
	"shiftguard/internal/attendance/session"
	tenantmodels "shiftguard/internal/tenant/models"
	id "shiftguard/pkg/domain"
)

func event(t attendance.EventType, at time.Time) attendance.AttendanceEvent {
	return attendance.AttendanceEvent{Type: t, Timestamp: at}
}

func TestCheckBreak(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	events := []attendance.AttendanceEvent{
		event(attendance.EventClockIn, start),
		event(attendance.EventBreakStart, start.Add(4*time.Hour)),
	}
	policy := tenantmodels.BreakPolicy{MaxBreakMinutes: 45}
	user, tenant := id.NewUserID(), id.NewTenantID()

	t.Run("within limit", func(t *testing.T) {
		now := start.Add(4*time.Hour + 45*time.Minute)
		assert.Nil(t, CheckBreak(user, tenant, session.Accumulate(events, now), policy, now))
	})

	t.Run("over limit", func(t *testing.T) {
		now := start.Add(4*time.Hour + 50*time.Minute)
		c := CheckBreak(user, tenant, session.Accumulate(events, now), policy, now)
		require.NotNil(t, c)
		assert.Equal(t, alertmodels.TypeBreakExceeded, c.Type)
		assert.Equal(t, alertmodels.SeverityMedium, c.Severity)
		assert.Equal(t, 50, c.Data["break_minutes"])
	})

	t.Run("personal time is not a break", func(t *testing.T) {
		personal := []attendance.AttendanceEvent{
			event(attendance.EventClockIn, start),
			event(attendance.EventPersonalStart, start.Add(time.Hour)),
		}
		now := start.Add(5 * time.Hour)
		assert.Nil(t, CheckBreak(user, tenant, session.Accumulate(personal, now), policy, now))
	})
}

func TestCheckMissingClockOut(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	midnight := time.Date(2026, 3, 3, 0, 0, 0, 0, loc)
	user, tenant := id.NewUserID(), id.NewTenantID()

	t.Run("shift from yesterday still open", func(t *testing.T) {
		events := []attendance.AttendanceEvent{
			event(attendance.EventClockIn, midnight.Add(-10*time.Hour)),
			event(attendance.EventBreakStart, midnight.Add(-6*time.Hour)),
			event(attendance.EventBreakEnd, midnight.Add(-5*time.Hour)),
		}
		now := midnight.Add(7 * time.Hour)
		c := CheckMissingClockOut(user, tenant, session.Accumulate(events, now), midnight)
		require.NotNil(t, c)
		assert.Equal(t, alertmodels.TypeMissingClockOut, c.Type)
	})

	t.Run("closed shift", func(t *testing.T) {
		events := []attendance.AttendanceEvent{
			event(attendance.EventClockIn, midnight.Add(-10*time.Hour)),
			event(attendance.EventClockOut, midnight.Add(-2*time.Hour)),
		}
		now := midnight.Add(7 * time.Hour)
		assert.Nil(t, CheckMissingClockOut(user, tenant, session.Accumulate(events, now), midnight))
	})

	t.Run("shift started today", func(t *testing.T) {
		events := []attendance.AttendanceEvent{event(attendance.EventClockIn, midnight.Add(time.Hour))}
		now := midnight.Add(7 * time.Hour)
		assert.Nil(t, CheckMissingClockOut(user, tenant, session.Accumulate(events, now), midnight))
	})
}
