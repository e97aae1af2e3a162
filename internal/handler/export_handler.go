package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	exportService service.ExportService
	userService   service.UserService
	rbacService   service.RBACService
}

func NewExportHandler(exportService service.ExportService, userService service.UserService, rbacService service.RBACService) *ExportHandler {
	return &ExportHandler{exportService: exportService, userService: userService, rbacService: rbacService}
}

func (h *ExportHandler) RegisterRoutes(router *gin.RouterGroup) {
	export := router.Group("/export")
	export.Use(middleware.RequireAuth(), middleware.RequirePermission(h.rbacService, "export_reports"))
	{
		export.GET("/excel", h.ExportExcel)
		export.GET("/pdf", h.ExportPDF)
	}
}

func (h *ExportHandler) exportRequest(c *gin.Context) (service.ExportRequest, uint, string) {
	userID, _ := middleware.CurrentUserID(c)
	name := ""
	if user, err := h.userService.GetUserByID(c.Request.Context(), userID); err == nil {
		name = user.Name
	}
	return service.ExportRequest{
		InstitutionID: uintQuery(c, "institution_id"),
		Month:         c.Query("month"),
		Year:          intQuery(c, "year"),
	}, userID, name
}

// ExportExcel streams the workbook export
// @Summary      Export to Excel
// @Description  Builds a workbook with summary, performance data and audit trail sheets
// @Tags         export
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        institution_id  query  int     false  "Institution ID"
// @Param        month           query  string  false  "Month name"
// @Param        year            query  int     false  "Year"
// @Success      200  {file}  binary
// @Router       /export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	req, userID, name := h.exportRequest(c)

	result, err := h.exportService.ToExcel(c.Request.Context(), &userID, name, req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

// ExportPDF returns the printable report document
// @Summary      Export to PDF
// @Description  Returns the rendered report; the client converts it to PDF for download
// @Tags         export
// @Produce      json
// @Security     BearerAuth
// @Param        institution_id  query  int     false  "Institution ID"
// @Param        month           query  string  false  "Month name"
// @Param        year            query  int     false  "Year"
// @Success      200  {object}  response.Response
// @Router       /export/pdf [get]
func (h *ExportHandler) ExportPDF(c *gin.Context) {
	req, userID, name := h.exportRequest(c)

	result, err := h.exportService.ToPDF(c.Request.Context(), &userID, name, req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"file_name":    result.FileName,
		"html_content": result.HTMLContent,
	}))
}
