package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InitiativeHandler struct {
	initiativeService service.InitiativeService
	rbacService       service.RBACService
}

func NewInitiativeHandler(initiativeService service.InitiativeService, rbacService service.RBACService) *InitiativeHandler {
	return &InitiativeHandler{initiativeService: initiativeService, rbacService: rbacService}
}

func (h *InitiativeHandler) RegisterRoutes(router *gin.RouterGroup) {
	inits := router.Group("/initiatives")
	inits.Use(middleware.RequireAuth())
	{
		inits.GET("", middleware.RequirePermission(h.rbacService, "view_dashboard"), h.ListInitiatives)
		inits.GET("/:id", middleware.RequirePermission(h.rbacService, "view_dashboard"), h.GetInitiative)
		inits.POST("", middleware.RequirePermission(h.rbacService, "submit_data"), h.CreateInitiative)
		inits.PUT("/:id", middleware.RequirePermission(h.rbacService, "submit_data"), h.UpdateInitiative)
		inits.DELETE("/:id", middleware.RequirePermission(h.rbacService, "submit_data"), h.DeleteInitiative)

		inits.GET("/:id/sub-boxes", middleware.RequirePermission(h.rbacService, "view_dashboard"), h.ListSubBoxes)
	}

	boxes := router.Group("/sub-boxes")
	boxes.Use(middleware.RequireAuth(), middleware.RequirePermission(h.rbacService, "submit_data"))
	{
		boxes.POST("", h.CreateSubBox)
		boxes.PUT("/:id", h.UpdateSubBox)
		boxes.DELETE("/:id", h.DeleteSubBox)
	}
}

// ListInitiatives returns initiatives, optionally filtered by goal
// @Summary      List initiatives
// @Tags         initiatives
// @Produce      json
// @Security     BearerAuth
// @Param        goal  query     string  false  "Goal (A-D)"
// @Success      200   {object}  response.Response{data=[]model.Initiative}
// @Router       /initiatives [get]
func (h *InitiativeHandler) ListInitiatives(c *gin.Context) {
	var err error
	var inits any
	if goal := c.Query("goal"); goal != "" {
		inits, err = h.initiativeService.ListByGoal(c.Request.Context(), goal)
	} else {
		inits, err = h.initiativeService.ListAll(c.Request.Context())
	}
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inits))
}

// GetInitiative returns an initiative with its sub-boxes
// @Summary      Get initiative
// @Tags         initiatives
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Initiative ID"
// @Success      200  {object}  response.Response{data=model.Initiative}
// @Failure      404  {object}  response.Response
// @Router       /initiatives/{id} [get]
func (h *InitiativeHandler) GetInitiative(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid initiative id"))
		return
	}

	init, err := h.initiativeService.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, init))
}

// CreateInitiative adds a strategic initiative under a goal
// @Summary      Create initiative
// @Tags         initiatives
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateInitiativeRequest  true  "Create Payload"
// @Success      201      {object}  response.Response{data=model.Initiative}
// @Failure      400      {object}  response.Response
// @Router       /initiatives [post]
func (h *InitiativeHandler) CreateInitiative(c *gin.Context) {
	var req service.CreateInitiativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	init, err := h.initiativeService.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, init))
}

// UpdateInitiative updates initiative fields
// @Summary      Update initiative
// @Tags         initiatives
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                              true  "Initiative ID"
// @Param        payload  body      service.UpdateInitiativeRequest  true  "Update Payload"
// @Success      200      {object}  response.Response{data=model.Initiative}
// @Failure      404      {object}  response.Response
// @Router       /initiatives/{id} [put]
func (h *InitiativeHandler) UpdateInitiative(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid initiative id"))
		return
	}

	var req service.UpdateInitiativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	init, err := h.initiativeService.Update(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, init))
}

// DeleteInitiative removes an initiative and its sub-boxes
// @Summary      Delete initiative
// @Tags         initiatives
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Initiative ID"
// @Success      200  {object}  response.Response
// @Router       /initiatives/{id} [delete]
func (h *InitiativeHandler) DeleteInitiative(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid initiative id"))
		return
	}

	if err := h.initiativeService.Delete(c.Request.Context(), id); err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Initiative deleted"}))
}

// ListSubBoxes returns the sub-boxes of an initiative
// @Summary      List sub-boxes
// @Tags         initiatives
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Initiative ID"
// @Success      200  {object}  response.Response{data=[]model.SubBox}
// @Router       /initiatives/{id}/sub-boxes [get]
func (h *InitiativeHandler) ListSubBoxes(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid initiative id"))
		return
	}

	boxes, err := h.initiativeService.ListSubBoxes(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, boxes))
}

// CreateSubBox adds a work item under an initiative
// @Summary      Create sub-box
// @Tags         initiatives
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSubBoxRequest  true  "Create Payload"
// @Success      201      {object}  response.Response{data=model.SubBox}
// @Failure      404      {object}  response.Response
// @Router       /sub-boxes [post]
func (h *InitiativeHandler) CreateSubBox(c *gin.Context) {
	var req service.CreateSubBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	box, err := h.initiativeService.CreateSubBox(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, box))
}

// UpdateSubBox updates a work item
// @Summary      Update sub-box
// @Tags         initiatives
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                          true  "Sub-box ID"
// @Param        payload  body      service.UpdateSubBoxRequest  true  "Update Payload"
// @Success      200      {object}  response.Response{data=model.SubBox}
// @Failure      404      {object}  response.Response
// @Router       /sub-boxes/{id} [put]
func (h *InitiativeHandler) UpdateSubBox(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid sub-box id"))
		return
	}

	var req service.UpdateSubBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	box, err := h.initiativeService.UpdateSubBox(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, box))
}

// DeleteSubBox removes a work item
// @Summary      Delete sub-box
// @Tags         initiatives
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Sub-box ID"
// @Success      200  {object}  response.Response
// @Router       /sub-boxes/{id} [delete]
func (h *InitiativeHandler) DeleteSubBox(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid sub-box id"))
		return
	}

	if err := h.initiativeService.DeleteSubBox(c.Request.Context(), id); err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Sub-box deleted"}))
}
