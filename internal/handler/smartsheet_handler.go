package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type SmartsheetHandler struct {
	smartsheetService service.SmartsheetService
	rbacService       service.RBACService
}

func NewSmartsheetHandler(smartsheetService service.SmartsheetService, rbacService service.RBACService) *SmartsheetHandler {
	return &SmartsheetHandler{smartsheetService: smartsheetService, rbacService: rbacService}
}

func (h *SmartsheetHandler) RegisterRoutes(router *gin.RouterGroup) {
	ss := router.Group("/smartsheet")
	ss.Use(middleware.RequireAuth(), middleware.RequireAdmin(h.rbacService))
	{
		ss.GET("/status", h.Status)
		ss.POST("/sync", h.Sync)
	}
}

// Status reports whether the Smartsheet integration is reachable
// @Summary      Smartsheet connection status
// @Tags         smartsheet
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.ConnectionStatus}
// @Router       /smartsheet/status [get]
func (h *SmartsheetHandler) Status(c *gin.Context) {
	status, err := h.smartsheetService.TestConnection(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// Sync imports the configured sheet into local tables
// @Summary      Sync performance data from Smartsheet
// @Description  Mirrors the configured sheet's rows into institutions, variables and performance records
// @Tags         smartsheet
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.SyncResult}
// @Failure      400  {object}  response.Response
// @Router       /smartsheet/sync [post]
func (h *SmartsheetHandler) Sync(c *gin.Context) {
	actorID, _ := middleware.CurrentUserID(c)
	result, err := h.smartsheetService.SyncPerformance(c.Request.Context(), &actorID)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
