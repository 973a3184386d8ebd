package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shiftguard/internal/attendance/models"
	id "shiftguard/pkg/domain"
)

// PostgresStore reads the attendance event log and location history.
// The core never mutates events; Append exists for the recording surface and seeding.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e models.AttendanceEvent) error {
	if e.ID.IsNil() {
		e.ID = id.NewEventID()
	}
	var lat, lon, acc sql.NullFloat64
	if e.Location != nil {
		lat = sql.NullFloat64{Float64: e.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: e.Location.Longitude, Valid: true}
		acc = sql.NullFloat64{Float64: e.Location.Accuracy, Valid: true}
	}
	query := `
		INSERT INTO attendance_events (id, user_id, tenant_id, type, occurred_at, latitude, longitude, accuracy,
			verified, notes, correction_applied, correction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(e.ID), uuid.UUID(e.UserID), uuid.UUID(e.TenantID), string(e.Type), e.Timestamp,
		lat, lon, acc, e.Verified, e.Notes, e.CorrectionApplied, e.CorrectionID,
	)
	if err != nil {
		return fmt.Errorf("append attendance event: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendSample(ctx context.Context, sample models.LocationSample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO location_samples (user_id, latitude, longitude, accuracy, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.UUID(sample.UserID), sample.Location.Latitude, sample.Location.Longitude, sample.Location.Accuracy, sample.RecordedAt)
	if err != nil {
		return fmt.Errorf("append location sample: %w", err)
	}
	return nil
}

// ListEventsForUser returns events at or after since in insertion order; the
// accumulator sorts by timestamp itself.
func (s *PostgresStore) ListEventsForUser(ctx context.Context, userID id.UserID, since time.Time) ([]models.AttendanceEvent, error) {
	query := `
		SELECT id, user_id, tenant_id, type, occurred_at, latitude, longitude, accuracy,
			verified, notes, correction_applied, correction_id
		FROM attendance_events
		WHERE user_id = $1 AND occurred_at >= $2
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID), since)
	if err != nil {
		return nil, fmt.Errorf("list attendance events: %w", err)
	}
	defer rows.Close()

	var out []models.AttendanceEvent
	for rows.Next() {
		var (
			e             models.AttendanceEvent
			eventType     string
			lat, lon, acc sql.NullFloat64
			correctionID  sql.NullString
		)
		if err := rows.Scan(
			(*uuid.UUID)(&e.ID), (*uuid.UUID)(&e.UserID), (*uuid.UUID)(&e.TenantID), &eventType, &e.Timestamp,
			&lat, &lon, &acc, &e.Verified, &e.Notes, &e.CorrectionApplied, &correctionID,
		); err != nil {
			return nil, fmt.Errorf("scan attendance event: %w", err)
		}
		e.Type = models.EventType(eventType)
		if lat.Valid && lon.Valid {
			e.Location = &models.Location{Latitude: lat.Float64, Longitude: lon.Float64, Accuracy: acc.Float64}
		}
		if correctionID.Valid {
			e.CorrectionID = &correctionID.String
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListUsersWithEventsSince(ctx context.Context, tenantID id.TenantID, since time.Time) ([]id.UserID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM attendance_events
		WHERE tenant_id = $1 AND occurred_at >= $2
	`, uuid.UUID(tenantID), since)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	var out []id.UserID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan active user: %w", err)
		}
		out = append(out, id.UserID(u))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active users: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListLocationSamples(ctx context.Context, userID id.UserID, since time.Time) ([]models.LocationSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT latitude, longitude, accuracy, recorded_at
		FROM location_samples
		WHERE user_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at
	`, uuid.UUID(userID), since)
	if err != nil {
		return nil, fmt.Errorf("list location samples: %w", err)
	}
	defer rows.Close()

	var out []models.LocationSample
	for rows.Next() {
		sample := models.LocationSample{UserID: userID}
		if err := rows.Scan(&sample.Location.Latitude, &sample.Location.Longitude, &sample.Location.Accuracy, &sample.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan location sample: %w", err)
		}
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate location samples: %w", err)
	}
	return out, nil
}

// ListOpenShifts returns users of the tenant whose latest clock-in/out or trip
// marker before the cutoff opened a shift.
func (s *PostgresStore) ListOpenShifts(ctx context.Context, tenantID id.TenantID, before time.Time) ([]models.OpenShift, error) {
	query := `
		SELECT user_id, occurred_at FROM (
			SELECT DISTINCT ON (user_id) user_id, type, occurred_at
			FROM attendance_events
			WHERE tenant_id = $1 AND occurred_at < $2
				AND type IN ('CLOCK_IN', 'TRIP_START', 'CLOCK_OUT', 'TRIP_END')
			ORDER BY user_id, occurred_at DESC, seq DESC
		) last
		WHERE type IN ('CLOCK_IN', 'TRIP_START')
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID), before)
	if err != nil {
		return nil, fmt.Errorf("list open shifts: %w", err)
	}
	defer rows.Close()

	var out []models.OpenShift
	for rows.Next() {
		var (
			u     uuid.UUID
			shift models.OpenShift
		)
		if err := rows.Scan(&u, &shift.StartedAt); err != nil {
			return nil, fmt.Errorf("scan open shift: %w", err)
		}
		shift.UserID = id.UserID(u)
		out = append(out, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open shifts: %w", err)
	}
	return out, nil
}
