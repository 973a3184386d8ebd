package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "shiftguard/pkg/domain"
)

func TestListEscalationTargets(t *testing.T) {
	ctx := context.Background()
	d := NewInMemory()
	tenant := id.NewTenantID()

	admin := User{ID: id.NewUserID(), TenantID: tenant, Role: RoleAdmin, Active: true}
	manager := User{ID: id.NewUserID(), TenantID: tenant, Role: RoleManager, Active: true}
	for _, u := range []User{
		admin,
		manager,
		{ID: id.NewUserID(), TenantID: tenant, Role: RoleEmployee, Active: true},
		{ID: id.NewUserID(), TenantID: tenant, Role: RoleAdmin, Active: false},
		{ID: id.NewUserID(), TenantID: id.NewTenantID(), Role: RoleAdmin, Active: true},
	} {
		require.NoError(t, d.Put(ctx, u))
	}

	got, err := d.ListEscalationTargets(ctx, tenant)
	require.NoError(t, err)
	assert.ElementsMatch(t, []User{admin, manager}, got)
}
