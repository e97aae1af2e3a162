package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// RBACHandler exposes the authorization engine's read operations and the
// assignment ledger mutations.
type RBACHandler struct {
	rbacService service.RBACService
}

func NewRBACHandler(rbacService service.RBACService) *RBACHandler {
	return &RBACHandler{rbacService: rbacService}
}

func (h *RBACHandler) RegisterRoutes(router *gin.RouterGroup) {
	access := router.Group("/access")
	access.Use(middleware.RequireAuth())
	{
		access.GET("/my-institutions", h.MyInstitutions)
		access.GET("/institutions/:id/can-access", h.CanAccess)
		access.GET("/institutions/:id/my-role", h.MyRole)
		access.GET("/check/:code", h.CheckPermission)
	}

	assignments := router.Group("/assignments")
	assignments.Use(middleware.RequireAuth(), middleware.RequirePermission(h.rbacService, "manage_users"))
	{
		// Ledger mutations are reserved for global admins.
		assignments.POST("", middleware.RequireAdmin(h.rbacService), h.Assign)
		assignments.DELETE("", middleware.RequireAdmin(h.rbacService), h.Remove)
		assignments.GET("/users/:id", h.ListForUser)
		assignments.GET("/institutions/:id", h.ListForInstitution)
	}
}

// MyInstitutions returns the institutions the caller can see
// @Summary      List my institutions
// @Description  Admins see the full directory; everyone else the institutions of their active assignments
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /access/my-institutions [get]
func (h *RBACHandler) MyInstitutions(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	insts := h.rbacService.GetUserInstitutions(c.Request.Context(), userID)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, insts))
}

// CanAccess reports whether the caller may see a given institution
// @Summary      Check institution access
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Institution ID"
// @Success      200  {object}  response.Response
// @Router       /access/institutions/{id}/can-access [get]
func (h *RBACHandler) CanAccess(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid institution id"))
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	allowed := h.rbacService.CanAccessInstitution(c.Request.Context(), userID, id)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"allowed": allowed}))
}

// MyRole returns the caller's role for an institution, null when none
// @Summary      Get my role for an institution
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Institution ID"
// @Success      200  {object}  response.Response
// @Router       /access/institutions/{id}/my-role [get]
func (h *RBACHandler) MyRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid institution id"))
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	role := h.rbacService.GetUserRoleForInstitution(c.Request.Context(), userID, id)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"role": role}))
}

// CheckPermission reports whether the caller holds a permission code
// @Summary      Check a permission
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string  true  "Permission code"
// @Success      200   {object}  response.Response
// @Router       /access/check/{code} [get]
func (h *RBACHandler) CheckPermission(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	allowed := h.rbacService.HasPermission(c.Request.Context(), userID, c.Param("code"))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"allowed": allowed}))
}

type assignRequest struct {
	UserID        uint `json:"user_id" binding:"required"`
	InstitutionID uint `json:"institution_id" binding:"required"`
	RoleID        uint `json:"role_id" binding:"required"`
}

type removeRequest struct {
	UserID        uint `json:"user_id" binding:"required"`
	InstitutionID uint `json:"institution_id" binding:"required"`
}

// Assign grants a user a role at an institution
// @Summary      Assign user to institution
// @Description  Creates an active assignment, superseding any prior active row for the pair
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      handler.assignRequest  true  "Assignment Payload"
// @Success      201      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /assignments [post]
func (h *RBACHandler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := middleware.CurrentUserID(c)
	if err := h.rbacService.Assign(c.Request.Context(), &actorID, req.UserID, req.InstitutionID, req.RoleID); err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, gin.H{"message": "User assigned"}))
}

// Remove revokes a user's access to an institution
// @Summary      Remove user from institution
// @Description  Deactivates all assignment rows for the pair; rows stay for audit
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      handler.removeRequest  true  "Removal Payload"
// @Success      200      {object}  response.Response
// @Router       /assignments [delete]
func (h *RBACHandler) Remove(c *gin.Context) {
	var req removeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := middleware.CurrentUserID(c)
	if err := h.rbacService.Remove(c.Request.Context(), &actorID, req.UserID, req.InstitutionID); err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "User removed"}))
}

// ListForUser returns a user's active assignments
// @Summary      List assignments for a user
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  response.Response{data=[]service.AssignmentResponse}
// @Router       /assignments/users/{id} [get]
func (h *RBACHandler) ListForUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid user id"))
		return
	}

	rows, err := h.rbacService.ListForUser(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// ListForInstitution returns an institution's active assignments
// @Summary      List assignments for an institution
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Institution ID"
// @Success      200  {object}  response.Response
// @Router       /assignments/institutions/{id} [get]
func (h *RBACHandler) ListForInstitution(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid institution id"))
		return
	}

	rows, err := h.rbacService.ListForInstitution(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}
