package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InstitutionHandler struct {
	institutionService service.InstitutionService
	rbacService        service.RBACService
}

func NewInstitutionHandler(institutionService service.InstitutionService, rbacService service.RBACService) *InstitutionHandler {
	return &InstitutionHandler{institutionService: institutionService, rbacService: rbacService}
}

func (h *InstitutionHandler) RegisterRoutes(router *gin.RouterGroup) {
	insts := router.Group("/institutions")
	insts.Use(middleware.RequireAuth())
	{
		insts.GET("", h.ListInstitutions)
		insts.GET("/:id", h.GetInstitution)
		insts.POST("", middleware.RequireAdmin(h.rbacService), h.CreateInstitution)
		insts.PUT("/:id", middleware.RequireAdmin(h.rbacService), h.UpdateInstitution)
	}
}

// ListInstitutions returns the institutions visible to the caller
// @Summary      List institutions
// @Description  Scoped by assignment: admins see all, others only assigned institutions
// @Tags         institutions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /institutions [get]
func (h *InstitutionHandler) ListInstitutions(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	insts := h.rbacService.GetUserInstitutions(c.Request.Context(), userID)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, insts))
}

// GetInstitution returns one institution the caller can access
// @Summary      Get institution
// @Tags         institutions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Institution ID"
// @Success      200  {object}  response.Response{data=model.Institution}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /institutions/{id} [get]
func (h *InstitutionHandler) GetInstitution(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid institution id"))
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	if !h.rbacService.CanAccessInstitution(c.Request.Context(), userID, id) {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied for this institution"))
		return
	}

	inst, err := h.institutionService.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inst))
}

// CreateInstitution adds an institution to the directory
// @Summary      Create institution
// @Tags         institutions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateInstitutionRequest  true  "Create Payload"
// @Success      201      {object}  response.Response{data=model.Institution}
// @Failure      400      {object}  response.Response
// @Router       /institutions [post]
func (h *InstitutionHandler) CreateInstitution(c *gin.Context) {
	var req service.CreateInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := middleware.CurrentUserID(c)
	inst, err := h.institutionService.Create(c.Request.Context(), &actorID, req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, inst))
}

// UpdateInstitution updates directory fields on an institution
// @Summary      Update institution
// @Tags         institutions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                               true  "Institution ID"
// @Param        payload  body      service.UpdateInstitutionRequest  true  "Update Payload"
// @Success      200      {object}  response.Response{data=model.Institution}
// @Failure      404      {object}  response.Response
// @Router       /institutions/{id} [put]
func (h *InstitutionHandler) UpdateInstitution(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid institution id"))
		return
	}

	var req service.UpdateInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := middleware.CurrentUserID(c)
	inst, err := h.institutionService.Update(c.Request.Context(), &actorID, id, req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inst))
}
