package service

import (
	"context"
	"errors"
	"testing"

	"backend/internal/apperrors"
	"backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rbacFixture() (*memUserRepo, *memRoleRepo, *memInstitutionRepo, *memAssignmentRepo, RBACService) {
	users := newMemUserRepo(
		&model.User{ID: 1, Username: "alice", Role: model.GlobalRoleUser, IsActive: true},
		&model.User{ID: 2, Username: "root", Role: model.GlobalRoleAdmin, IsActive: true},
		&model.User{ID: 3, Username: "gone", Role: model.GlobalRoleUser, IsActive: false},
	)
	roles := newMemRoleRepo()
	insts := newMemInstitutionRepo(
		model.Institution{ID: 10, Code: "mcc-penn-valley", Name: "Penn Valley"},
		model.Institution{ID: 11, Code: "mcc-longview", Name: "Longview"},
	)
	assignments := newMemAssignmentRepo(roles, insts)
	svc := NewRBACService(users, assignments, roles, insts, passthroughTx{}, &recordingAudit{})
	return users, roles, insts, assignments, svc
}

func TestHasPermissionUnionAcrossAssignments(t *testing.T) {
	_, roles, _, _, svc := rbacFixture()
	ctx := context.Background()

	view := roles.addPermission("view_dashboard", "View Dashboard", "view")
	submit := roles.addPermission("submit_data", "Submit Data", "edit")
	viewer := roles.addRole("Viewer", view)
	lead := roles.addRole("Institution Lead", view, submit)

	require.NoError(t, svc.Assign(ctx, nil, 1, 10, viewer.ID))
	require.NoError(t, svc.Assign(ctx, nil, 1, 11, lead.ID))

	// Codes from any active assignment count, not just one institution's role.
	assert.True(t, svc.HasPermission(ctx, 1, "view_dashboard"))
	assert.True(t, svc.HasPermission(ctx, 1, "submit_data"))
	assert.False(t, svc.HasPermission(ctx, 1, "manage_roles"))
}

func TestHasPermissionAdminShortCircuit(t *testing.T) {
	_, _, _, _, svc := rbacFixture()
	ctx := context.Background()

	// No assignments at all, but the global admin role allows everything.
	assert.True(t, svc.HasPermission(ctx, 2, "manage_roles"))
	assert.True(t, svc.CanAccessInstitution(ctx, 2, 10))
}

func TestDecisionsDenyInactiveAndUnknownUsers(t *testing.T) {
	_, roles, _, _, svc := rbacFixture()
	ctx := context.Background()

	view := roles.addPermission("view_dashboard", "View Dashboard", "view")
	viewer := roles.addRole("Viewer", view)
	require.NoError(t, svc.Assign(ctx, nil, 3, 10, viewer.ID))

	// User 3 is deactivated: assignments exist but everything denies.
	assert.False(t, svc.HasPermission(ctx, 3, "view_dashboard"))
	assert.False(t, svc.CanAccessInstitution(ctx, 3, 10))
	assert.Nil(t, svc.GetUserRoleForInstitution(ctx, 3, 10))
	assert.Empty(t, svc.GetUserInstitutions(ctx, 3))

	// Unknown user id.
	assert.False(t, svc.HasPermission(ctx, 99, "view_dashboard"))
	assert.False(t, svc.CanAccessInstitution(ctx, 99, 10))
}

func TestDecisionsFailClosedOnStorageErrors(t *testing.T) {
	users, roles, _, assignments, svc := rbacFixture()
	ctx := context.Background()

	view := roles.addPermission("view_dashboard", "View Dashboard", "view")
	viewer := roles.addRole("Viewer", view)
	require.NoError(t, svc.Assign(ctx, nil, 1, 10, viewer.ID))

	assignments.failWith = errors.New("connection reset")
	assert.False(t, svc.HasPermission(ctx, 1, "view_dashboard"))
	assert.False(t, svc.CanAccessInstitution(ctx, 1, 10))
	assert.Nil(t, svc.GetUserRoleForInstitution(ctx, 1, 10))
	assert.Empty(t, svc.GetUserInstitutions(ctx, 1))
	assignments.failWith = nil

	users.failWith = errors.New("connection reset")
	assert.False(t, svc.HasPermission(ctx, 1, "view_dashboard"))
	assert.False(t, svc.IsGlobalAdmin(ctx, 2))
	assert.Nil(t, svc.GetUserRoleForInstitution(ctx, 1, 10))
	assert.Empty(t, svc.GetUserInstitutions(ctx, 1))
}

func TestIsGlobalAdminResolvesFromStorage(t *testing.T) {
	users, _, _, _, svc := rbacFixture()
	ctx := context.Background()

	assert.True(t, svc.IsGlobalAdmin(ctx, 2))
	assert.False(t, svc.IsGlobalAdmin(ctx, 1))
	assert.False(t, svc.IsGlobalAdmin(ctx, 99))

	// A demoted admin loses the check immediately, token claims aside.
	users.users[2].Role = model.GlobalRoleUser
	assert.False(t, svc.IsGlobalAdmin(ctx, 2))

	// So does a deactivated one.
	users.users[2].Role = model.GlobalRoleAdmin
	users.users[2].IsActive = false
	assert.False(t, svc.IsGlobalAdmin(ctx, 2))
}

func TestAssignSupersedesPriorActiveRow(t *testing.T) {
	_, roles, _, assignments, svc := rbacFixture()
	ctx := context.Background()

	view := roles.addPermission("view_dashboard", "View Dashboard", "view")
	submit := roles.addPermission("submit_data", "Submit Data", "edit")
	viewer := roles.addRole("Viewer", view)
	lead := roles.addRole("Institution Lead", view, submit)

	require.NoError(t, svc.Assign(ctx, nil, 1, 10, viewer.ID))
	require.NoError(t, svc.Assign(ctx, nil, 1, 10, lead.ID))

	// Exactly one active row remains for the pair.
	var active int
	for _, a := range assignments.rows {
		if a.UserID == 1 && a.InstitutionID == 10 && a.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)

	// And the resolved role is the newer assignment's.
	role := svc.GetUserRoleForInstitution(ctx, 1, 10)
	require.NotNil(t, role)
	assert.Equal(t, "Institution Lead", role.Name)

	// Superseded rows are retained, not deleted.
	assert.Len(t, assignments.rows, 2)
}

func TestAssignValidatesReferences(t *testing.T) {
	_, roles, _, _, svc := rbacFixture()
	ctx := context.Background()

	view := roles.addPermission("view_dashboard", "View Dashboard", "view")
	viewer := roles.addRole("Viewer", view)

	err := svc.Assign(ctx, nil, 99, 10, viewer.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = svc.Assign(ctx, nil, 1, 99, viewer.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = svc.Assign(ctx, nil, 1, 10, 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRemoveRevokesAccessImmediately(t *testing.T) {
	_, roles, _, _, svc := rbacFixture()
	ctx := context.Background()

	view := roles.addPermission("view_dashboard", "View Dashboard", "view")
	viewer := roles.addRole("Viewer", view)

	require.NoError(t, svc.Assign(ctx, nil, 1, 10, viewer.ID))
	require.True(t, svc.CanAccessInstitution(ctx, 1, 10))
	require.True(t, svc.HasPermission(ctx, 1, "view_dashboard"))

	require.NoError(t, svc.Remove(ctx, nil, 1, 10))

	assert.False(t, svc.CanAccessInstitution(ctx, 1, 10))
	assert.False(t, svc.HasPermission(ctx, 1, "view_dashboard"))
	assert.Nil(t, svc.GetUserRoleForInstitution(ctx, 1, 10))
}

func TestGetUserInstitutionsScoping(t *testing.T) {
	_, roles, _, _, svc := rbacFixture()
	ctx := context.Background()

	view := roles.addPermission("view_dashboard", "View Dashboard", "view")
	viewer := roles.addRole("Viewer", view)
	require.NoError(t, svc.Assign(ctx, nil, 1, 10, viewer.ID))

	// Regular user sees only assigned institutions.
	insts := svc.GetUserInstitutions(ctx, 1)
	require.Len(t, insts, 1)
	assert.Equal(t, uint(10), insts[0].ID)

	// Admin sees the full directory.
	assert.Len(t, svc.GetUserInstitutions(ctx, 2), 2)
}

func TestAssignmentAuditTrail(t *testing.T) {
	users := newMemUserRepo(&model.User{ID: 1, Username: "alice", Role: model.GlobalRoleUser, IsActive: true})
	roles := newMemRoleRepo()
	insts := newMemInstitutionRepo(model.Institution{ID: 10, Code: "mcc-penn-valley"})
	assignments := newMemAssignmentRepo(roles, insts)
	audit := &recordingAudit{}
	svc := NewRBACService(users, assignments, roles, insts, passthroughTx{}, audit)

	view := roles.addPermission("view_dashboard", "View Dashboard", "view")
	viewer := roles.addRole("Viewer", view)

	ctx := context.Background()
	actor := uint(1)
	require.NoError(t, svc.Assign(ctx, &actor, 1, 10, viewer.ID))
	require.NoError(t, svc.Remove(ctx, &actor, 1, 10))

	assert.Equal(t, []string{model.ActionAssignUser, model.ActionRemoveUser}, audit.actions)
}
