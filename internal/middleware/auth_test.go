package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/model"
	"backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// stubEngine satisfies service.RBACService with canned decisions.
type stubEngine struct {
	admins map[uint]bool
	perms  map[string]bool
}

func (s *stubEngine) HasPermission(_ context.Context, _ uint, code string) bool {
	return s.perms[code]
}

func (s *stubEngine) IsGlobalAdmin(_ context.Context, userID uint) bool {
	return s.admins[userID]
}

func (s *stubEngine) CanAccessInstitution(_ context.Context, _, _ uint) bool { return false }

func (s *stubEngine) GetUserRoleForInstitution(_ context.Context, _, _ uint) *service.RoleResponse {
	return nil
}

func (s *stubEngine) GetUserInstitutions(_ context.Context, _ uint) []model.Institution {
	return nil
}

func (s *stubEngine) Assign(_ context.Context, _ *uint, _, _, _ uint) error { return nil }

func (s *stubEngine) Remove(_ context.Context, _ *uint, _, _ uint) error { return nil }

func (s *stubEngine) ListForUser(_ context.Context, _ uint) ([]service.AssignmentResponse, error) {
	return nil, nil
}

func (s *stubEngine) ListForInstitution(_ context.Context, _ uint) ([]model.Assignment, error) {
	return nil, nil
}

// asUser fakes a completed RequireAuth for the given identity.
func asUser(userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	}
}

func perform(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAdminRejectsPermissionHolder(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// A standard user can legitimately hold manage_roles through an
	// assignment; that must not open catalog mutations.
	engine := &stubEngine{
		admins: map[uint]bool{},
		perms:  map[string]bool{"manage_roles": true},
	}
	router := gin.New()
	router.POST("/roles",
		asUser(1, model.GlobalRoleUser),
		RequirePermission(engine, "manage_roles"),
		RequireAdmin(engine),
		func(c *gin.Context) { c.Status(http.StatusCreated) },
	)

	w := perform(router, http.MethodPost, "/roles")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdminIgnoresRoleClaim(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Token still says admin, storage says otherwise: deny.
	engine := &stubEngine{admins: map[uint]bool{}}
	router := gin.New()
	router.POST("/smartsheet/sync",
		asUser(2, model.GlobalRoleAdmin),
		RequireAdmin(engine),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	w := perform(router, http.MethodPost, "/smartsheet/sync")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdminAllowsCurrentAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := &stubEngine{admins: map[uint]bool{2: true}}
	router := gin.New()
	router.POST("/smartsheet/sync",
		asUser(2, model.GlobalRoleAdmin),
		RequireAdmin(engine),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	w := perform(router, http.MethodPost, "/smartsheet/sync")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermissionDeniesMissingCode(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := &stubEngine{perms: map[string]bool{}}
	router := gin.New()
	router.GET("/audit-logs",
		asUser(1, model.GlobalRoleUser),
		RequirePermission(engine, "view_audit_log"),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	w := perform(router, http.MethodGet, "/audit-logs")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
