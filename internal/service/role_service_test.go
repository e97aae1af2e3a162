package service

import (
	"context"
	"testing"

	"backend/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roleFixture() (*memRoleRepo, *recordingAudit, RoleService) {
	repo := newMemRoleRepo()
	audit := &recordingAudit{}
	return repo, audit, NewRoleService(repo, passthroughTx{}, audit)
}

func TestCreateRoleValidation(t *testing.T) {
	repo, _, svc := roleFixture()
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, nil, CreateRoleRequest{Name: "   "})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	repo.addRole("Viewer")
	_, err = svc.CreateRole(ctx, nil, CreateRoleRequest{Name: "Viewer"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreateRoleSkipsUnknownPermissionIDs(t *testing.T) {
	repo, _, svc := roleFixture()
	ctx := context.Background()

	view := repo.addPermission("view_dashboard", "View Dashboard", "view")

	role, err := svc.CreateRole(ctx, nil, CreateRoleRequest{
		Name:          "Analyst",
		PermissionIDs: []uint{view.ID, 999},
	})
	require.NoError(t, err)
	require.Len(t, role.Permissions, 1)
	assert.Equal(t, "view_dashboard", role.Permissions[0].Code)
}

func TestUpdateRolePermissionSemantics(t *testing.T) {
	repo, _, svc := roleFixture()
	ctx := context.Background()

	view := repo.addPermission("view_dashboard", "View Dashboard", "view")
	submit := repo.addPermission("submit_data", "Submit Data", "edit")
	role := repo.addRole("Lead", view, submit)

	// Nil PermissionIDs leaves bindings untouched.
	desc := "updated"
	updated, err := svc.UpdateRole(ctx, nil, role.ID, UpdateRoleRequest{Description: &desc})
	require.NoError(t, err)
	assert.Len(t, updated.Permissions, 2)
	assert.Equal(t, "updated", updated.Description)

	// An explicit empty set strips every binding.
	empty := []uint{}
	updated, err = svc.UpdateRole(ctx, nil, role.ID, UpdateRoleRequest{PermissionIDs: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.Permissions)

	// A non-empty set fully replaces.
	set := []uint{submit.ID}
	updated, err = svc.UpdateRole(ctx, nil, role.ID, UpdateRoleRequest{PermissionIDs: &set})
	require.NoError(t, err)
	require.Len(t, updated.Permissions, 1)
	assert.Equal(t, "submit_data", updated.Permissions[0].Code)
}

func TestUpdateRoleUnknownID(t *testing.T) {
	_, _, svc := roleFixture()
	name := "Renamed"
	_, err := svc.UpdateRole(context.Background(), nil, 42, UpdateRoleRequest{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteRoleConflictsAndIdempotence(t *testing.T) {
	repo, _, svc := roleFixture()
	ctx := context.Background()

	role := repo.addRole("Lead")
	repo.activeCount[role.ID] = 2

	// Active assignments block deletion.
	err := svc.DeleteRole(ctx, nil, role.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// Once nothing references the role it deletes cleanly.
	repo.activeCount[role.ID] = 0
	require.NoError(t, svc.DeleteRole(ctx, nil, role.ID))
	_, err = svc.GetRole(ctx, role.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Deleting an unknown id is a no-op, not an error.
	assert.NoError(t, svc.DeleteRole(ctx, nil, 999))
}

func TestSeedDefaultPermissionsIsIdempotent(t *testing.T) {
	_, _, svc := roleFixture()
	ctx := context.Background()

	require.NoError(t, svc.SeedDefaultPermissions(ctx))
	perms, err := svc.ListPermissions(ctx)
	require.NoError(t, err)
	first := len(perms)
	assert.Equal(t, len(defaultPermissions), first)

	// Re-running must not duplicate codes.
	require.NoError(t, svc.SeedDefaultPermissions(ctx))
	perms, err = svc.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, first)
}

func TestSeedDefaultRoles(t *testing.T) {
	_, _, svc := roleFixture()
	ctx := context.Background()

	require.NoError(t, svc.SeedDefaultPermissions(ctx))

	result, err := svc.SeedDefaultRoles(ctx, nil)
	require.NoError(t, err)
	assert.False(t, result.Skipped)

	roles, err := svc.ListRolesWithPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, roles, len(defaultRoles))

	byName := make(map[string]RoleResponse, len(roles))
	for _, r := range roles {
		byName[r.Name] = r
	}
	assert.Len(t, byName["Executive"].Permissions, 6)
	assert.Len(t, byName["Institution Lead"].Permissions, 4)
	assert.Len(t, byName["Data Analyst"].Permissions, 3)
	assert.Len(t, byName["Viewer"].Permissions, 1)

	// Any existing role short-circuits the seed.
	result, err = svc.SeedDefaultRoles(ctx, nil)
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	roles, err = svc.ListRolesWithPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, len(defaultRoles))
}
