// Package directory resolves the people an alert is delivered to.
package directory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "shiftguard/pkg/domain"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// EscalationRoles receive copies of HIGH and CRITICAL alerts.
var EscalationRoles = []Role{RoleAdmin, RoleManager}

type User struct {
	ID       id.UserID
	TenantID id.TenantID
	Email    string
	Name     string
	Role     Role
	Active   bool
}

// InMemoryDirectory is a process-local user directory.
type InMemoryDirectory struct {
	mu    sync.RWMutex
	users map[id.UserID]User
}

func NewInMemory() *InMemoryDirectory {
	return &InMemoryDirectory{users: make(map[id.UserID]User)}
}

func (d *InMemoryDirectory) Put(_ context.Context, u User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
	return nil
}

// ListEscalationTargets returns active admins and managers of the tenant,
// ordered by id for stable fan-out.
func (d *InMemoryDirectory) ListEscalationTargets(_ context.Context, tenantID id.TenantID) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []User
	for _, u := range d.users {
		if u.TenantID != tenantID || !u.Active || !isEscalationRole(u.Role) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func isEscalationRole(r Role) bool {
	for _, er := range EscalationRoles {
		if r == er {
			return true
		}
	}
	return false
}

// PostgresDirectory reads the users table.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) ListEscalationTargets(ctx context.Context, tenantID id.TenantID) ([]User, error) {
	roles := make([]string, len(EscalationRoles))
	for i, r := range EscalationRoles {
		roles[i] = string(r)
	}
	query := `
		SELECT id, tenant_id, email, name, role, active
		FROM users
		WHERE tenant_id = $1 AND active AND role = ANY($2)
		ORDER BY id
	`
	rows, err := d.db.QueryContext(ctx, query, uuid.UUID(tenantID), pq.Array(roles))
	if err != nil {
		return nil, fmt.Errorf("list escalation targets: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var (
			u    User
			role string
		)
		if err := rows.Scan((*uuid.UUID)(&u.ID), (*uuid.UUID)(&u.TenantID), &u.Email, &u.Name, &role, &u.Active); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = Role(role)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

// Upsert writes a user row. Used for seeding and by tests.
func (d *PostgresDirectory) Upsert(ctx context.Context, u User) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, email, name, role, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name,
			role = EXCLUDED.role, active = EXCLUDED.active
	`, uuid.UUID(u.ID), uuid.UUID(u.TenantID), u.Email, u.Name, string(u.Role), u.Active)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
