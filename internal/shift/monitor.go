// Package shift checks break length and unclosed shifts.
package shift

import (
	"fmt"
	"time"

	alertmodels "shiftguard/internal/alert/models"
	"shiftguard/internal/attendance/session"
	tenantmodels "shiftguard/internal/tenant/models"
	id "shiftguard/pkg/domain"
)

// CheckBreak returns a break_exceeded candidate when the user has been on a
// single break longer than the policy allows.
func CheckBreak(userID id.UserID, tenantID id.TenantID, ws session.WorkSession, policy tenantmodels.BreakPolicy, now time.Time) *alertmodels.Candidate {
	if ws.CurrentState != session.StatePaused || ws.PauseReason != session.PauseBreak {
		return nil
	}
	limit := policy.MaxBreak()
	if limit <= 0 {
		return nil
	}
	onBreak := now.Sub(ws.StateEnteredAt)
	if onBreak <= limit {
		return nil
	}
	return &alertmodels.Candidate{
		UserID:   userID,
		TenantID: tenantID,
		Type:     alertmodels.TypeBreakExceeded,
		Severity: alertmodels.SeverityMedium,
		Title:    "Break limit exceeded",
		Message: fmt.Sprintf("Break has lasted %d minutes, the limit is %d minutes",
			int(onBreak.Minutes()), policy.MaxBreakMinutes),
		Data: map[string]any{
			"break_started_at":  ws.StateEnteredAt.UTC().Format(time.RFC3339),
			"break_minutes":     int(onBreak.Minutes()),
			"max_break_minutes": policy.MaxBreakMinutes,
		},
	}
}

// CheckMissingClockOut returns a missing_clock_out candidate when the user is
// still on a shift that started before local midnight.
func CheckMissingClockOut(userID id.UserID, tenantID id.TenantID, ws session.WorkSession, midnight time.Time) *alertmodels.Candidate {
	if !ws.IsOnDuty() || ws.ShiftStartedAt.IsZero() {
		return nil
	}
	if !ws.ShiftStartedAt.Before(midnight) {
		return nil
	}
	return &alertmodels.Candidate{
		UserID:   userID,
		TenantID: tenantID,
		Type:     alertmodels.TypeMissingClockOut,
		Severity: alertmodels.SeverityMedium,
		Title:    "Missing clock-out",
		Message:  fmt.Sprintf("Shift started %s has no clock-out", ws.ShiftStartedAt.In(midnight.Location()).Format("Mon 02 Jan 15:04")),
		Data: map[string]any{
			"shift_started_at": ws.ShiftStartedAt.UTC().Format(time.RFC3339),
		},
	}
}
