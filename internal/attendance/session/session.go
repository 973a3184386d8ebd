// Package session reconstructs elapsed working and paused time from a user's
// attendance events.
//
// The reconstruction is a two-state machine (Working / Paused) that starts
// Paused. Sessions are never stored; callers recompute them from the event log
// whenever they need one, so the result depends only on the events and "now".
package session

import (
	"slices"
	"time"

	"shiftguard/internal/attendance/models"
)

type State string

const (
	StateWorking State = "WORKING"
	StatePaused  State = "PAUSED"
)

// PauseReason says why a Paused session is paused.
type PauseReason string

const (
	PauseOffDuty  PauseReason = "off_duty"
	PauseBreak    PauseReason = "break"
	PausePersonal PauseReason = "personal"
)

// WorkSession is the derived accumulator result.
type WorkSession struct {
	TotalWorking   time.Duration
	TotalPaused    time.Duration
	CurrentState   State
	StateEnteredAt time.Time
	PauseReason    PauseReason
	// ShiftStartedAt is the clock-in (or trip start) of the current shift.
	// Breaks do not move it.
	ShiftStartedAt time.Time
	// ForcedTransitions counts events that did not match the current state
	// or pause reason and were applied anyway.
	ForcedTransitions int
}

func (s WorkSession) TotalWorkingMs() int64 { return s.TotalWorking.Milliseconds() }
func (s WorkSession) TotalPausedMs() int64  { return s.TotalPaused.Milliseconds() }

func (s WorkSession) IsWorking() bool { return s.CurrentState == StateWorking }

// IsOnDuty reports whether the user is clocked in, working or on a break.
func (s WorkSession) IsOnDuty() bool {
	return s.CurrentState == StateWorking ||
		s.PauseReason == PauseBreak || s.PauseReason == PausePersonal
}

// Accumulate folds events into a WorkSession as of now.
// Events need not be sorted; a stable sort by timestamp is applied first.
func Accumulate(events []models.AttendanceEvent, now time.Time) WorkSession {
	return AccumulateWindow(events, time.Time{}, now)
}

// AccumulateWindow is Accumulate with every interval clipped to [from, now].
// Events before from still drive the state machine, so a shift that began
// before from contributes only its part after from. A zero from disables
// clipping.
func AccumulateWindow(events []models.AttendanceEvent, from, now time.Time) WorkSession {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b models.AttendanceEvent) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	acc := accumulator{
		from: from,
		session: WorkSession{
			CurrentState: StatePaused,
			PauseReason:  PauseOffDuty,
		},
	}
	for _, e := range sorted {
		acc.apply(e)
	}
	if acc.session.CurrentState == StateWorking {
		acc.session.TotalWorking += acc.clipped(acc.session.StateEnteredAt, now)
	}
	return acc.session
}

type accumulator struct {
	from    time.Time
	session WorkSession
}

func (a *accumulator) apply(e models.AttendanceEvent) {
	s := &a.session
	switch e.Type {
	case models.EventClockIn, models.EventTripStart:
		// Clocking in over an open break or personal pause is forced too.
		if s.CurrentState != StatePaused || s.PauseReason != PauseOffDuty {
			s.ForcedTransitions++
		}
		s.ShiftStartedAt = e.Timestamp
		a.enterWorking(e.Timestamp)

	case models.EventClockOut, models.EventTripEnd:
		if s.CurrentState != StateWorking {
			s.ForcedTransitions++
		}
		s.TotalWorking += a.clipped(s.StateEnteredAt, e.Timestamp)
		a.enterPaused(e.Timestamp, PauseOffDuty)

	case models.EventBreakStart, models.EventPersonalStart:
		if s.CurrentState != StateWorking {
			s.ForcedTransitions++
		}
		s.TotalWorking += a.clipped(s.StateEnteredAt, e.Timestamp)
		reason := PauseBreak
		if e.Type == models.EventPersonalStart {
			reason = PausePersonal
		}
		a.enterPaused(e.Timestamp, reason)

	case models.EventBreakEnd, models.EventPersonalEnd:
		if s.CurrentState != StatePaused || s.PauseReason != endsPause(e.Type) {
			s.ForcedTransitions++
		}
		s.TotalPaused += a.clipped(s.StateEnteredAt, e.Timestamp)
		if s.ShiftStartedAt.IsZero() || s.PauseReason == PauseOffDuty {
			s.ShiftStartedAt = e.Timestamp
		}
		a.enterWorking(e.Timestamp)
	}
}

// endsPause returns the pause reason an end marker is expected to close.
func endsPause(t models.EventType) PauseReason {
	if t == models.EventPersonalEnd {
		return PausePersonal
	}
	return PauseBreak
}

func (a *accumulator) enterWorking(at time.Time) {
	a.session.CurrentState = StateWorking
	a.session.StateEnteredAt = at
	a.session.PauseReason = ""
}

func (a *accumulator) enterPaused(at time.Time, reason PauseReason) {
	a.session.CurrentState = StatePaused
	a.session.StateEnteredAt = at
	a.session.PauseReason = reason
}

// clipped returns the part of [start, end] that lies after a.from.
// A zero start (no prior transition) contributes nothing.
func (a *accumulator) clipped(start, end time.Time) time.Duration {
	if start.IsZero() {
		return 0
	}
	if !a.from.IsZero() && start.Before(a.from) {
		start = a.from
	}
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}
