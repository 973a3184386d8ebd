package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"shiftguard/internal/alert/models"
	id "shiftguard/pkg/domain"
	txcontext "shiftguard/pkg/platform/tx"
)

const uniqueViolation = "23505"

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists alerts. The partial unique index
// alerts_one_open_per_type backs the one-unresolved-per-type rule.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const alertColumns = `id, user_id, tenant_id, type, severity, title, message, data, resolved, created_at, resolved_at, resolved_by`

func (s *PostgresStore) FindAlert(ctx context.Context, userID id.UserID, typ models.Type, filter models.Filter) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE user_id = $1 AND type = $2
			AND (NOT $3 OR NOT resolved)
			AND created_at >= $4
		ORDER BY created_at DESC
		LIMIT 1
	`
	since := filter.CreatedSince
	if since.IsZero() {
		since = time.Unix(0, 0).UTC()
	}
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID), string(typ), filter.UnresolvedOnly, since)
	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find alert: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert.ID.IsNil() {
		alert.ID = id.NewAlertID()
	}
	data, err := json.Marshal(dataOrEmpty(alert.Data))
	if err != nil {
		return fmt.Errorf("encode alert data: %w", err)
	}
	query := `
		INSERT INTO alerts (id, user_id, tenant_id, type, severity, title, message, data, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(alert.ID), uuid.UUID(alert.UserID), uuid.UUID(alert.TenantID),
		string(alert.Type), string(alert.Severity), alert.Title, alert.Message, data, alert.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, uuid.UUID(alertID))
	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find alert by id: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ResolveAlert(ctx context.Context, alertID id.AlertID, resolvedBy string, at time.Time) (*models.Alert, error) {
	query := `
		UPDATE alerts SET resolved = TRUE, resolved_at = $2, resolved_by = $3
		WHERE id = $1 AND NOT resolved
		RETURNING ` + alertColumns
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(alertID), at, resolvedBy)
	a, err := scanAlert(row)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resolve alert: %w", err)
	}
	if _, findErr := s.FindByID(ctx, alertID); findErr != nil {
		return nil, findErr
	}
	return nil, ErrAlreadyResolved
}

func (s *PostgresStore) ResolveOpenBefore(ctx context.Context, userID id.UserID, typ models.Type, before time.Time, resolvedBy string, at time.Time) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE alerts SET resolved = TRUE, resolved_at = $4, resolved_by = $5
		WHERE user_id = $1 AND type = $2 AND NOT resolved AND created_at < $3
	`, uuid.UUID(userID), string(typ), before, at, resolvedBy)
	if err != nil {
		return 0, fmt.Errorf("resolve stale alerts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("resolve stale alerts rows: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) ListAlertsSince(ctx context.Context, tenantID id.TenantID, since time.Time) ([]*models.Alert, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT `+alertColumns+`
		FROM alerts WHERE tenant_id = $1 AND created_at >= $2
		ORDER BY created_at
	`, uuid.UUID(tenantID), since)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

// RunInTx runs fn in a transaction holding a per-user advisory lock, so
// concurrent passes serialize their check-then-create for the same user.
func (s *PostgresStore) RunInTx(ctx context.Context, userID id.UserID, fn func(ctx context.Context, store Store) error) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.execer(ctx).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID.String()); err != nil {
			return fmt.Errorf("lock user alerts: %w", err)
		}
		return fn(ctx, s)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		a          models.Alert
		typ, sev   string
		data       []byte
		resolvedAt sql.NullTime
		resolvedBy sql.NullString
	)
	err := row.Scan(
		(*uuid.UUID)(&a.ID), (*uuid.UUID)(&a.UserID), (*uuid.UUID)(&a.TenantID),
		&typ, &sev, &a.Title, &a.Message, &data, &a.Resolved, &a.CreatedAt, &resolvedAt, &resolvedBy,
	)
	if err != nil {
		return nil, err
	}
	a.Type = models.Type(typ)
	a.Severity = models.Severity(sev)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &a.Data); err != nil {
			return nil, fmt.Errorf("decode alert data: %w", err)
		}
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		by := resolvedBy.String
		a.ResolvedBy = &by
	}
	return &a, nil
}

func dataOrEmpty(d map[string]any) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return d
}
