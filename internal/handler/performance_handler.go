package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PerformanceHandler struct {
	performanceService service.PerformanceService
	rbacService        service.RBACService
}

func NewPerformanceHandler(performanceService service.PerformanceService, rbacService service.RBACService) *PerformanceHandler {
	return &PerformanceHandler{performanceService: performanceService, rbacService: rbacService}
}

func (h *PerformanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	dashboard := router.Group("/dashboard")
	dashboard.Use(middleware.RequireAuth(), middleware.RequirePermission(h.rbacService, "view_dashboard"))
	{
		dashboard.GET("/summary", h.Summary)
	}

	perf := router.Group("/performance")
	perf.Use(middleware.RequireAuth())
	{
		perf.GET("/records", middleware.RequirePermission(h.rbacService, "view_data"), h.ListRecords)
		perf.POST("/records", middleware.RequirePermission(h.rbacService, "submit_data"), h.SubmitRecord)
		perf.GET("/variables", middleware.RequirePermission(h.rbacService, "view_data"), h.ListVariables)
	}
}

// Summary returns the traffic-light dashboard rollup
// @Summary      Dashboard summary
// @Description  Green/Yellow/Red totals plus per-institution health, optionally filtered by period
// @Tags         performance
// @Produce      json
// @Security     BearerAuth
// @Param        month  query     string  false  "Month name"
// @Param        year   query     int     false  "Year"
// @Success      200    {object}  response.Response{data=service.DashboardSummary}
// @Router       /dashboard/summary [get]
func (h *PerformanceHandler) Summary(c *gin.Context) {
	summary, err := h.performanceService.DashboardSummary(c.Request.Context(), c.Query("month"), intQuery(c, "year"))
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// ListRecords returns performance records matching the filters
// @Summary      List performance records
// @Tags         performance
// @Produce      json
// @Security     BearerAuth
// @Param        institution_id  query     int     false  "Institution ID"
// @Param        variable_id     query     int     false  "Variable ID"
// @Param        month           query     string  false  "Month name"
// @Param        year            query     int     false  "Year"
// @Param        page            query     int     false  "Page number"
// @Param        limit           query     int     false  "Page size"
// @Success      200             {object}  response.Response
// @Failure      403             {object}  response.Response
// @Router       /performance/records [get]
func (h *PerformanceHandler) ListRecords(c *gin.Context) {
	filter := repository.RecordFilter{
		InstitutionID: uintQuery(c, "institution_id"),
		VariableID:    uintQuery(c, "variable_id"),
		Month:         c.Query("month"),
		Year:          intQuery(c, "year"),
	}

	// Institution-scoped reads require access to that institution.
	if filter.InstitutionID != 0 {
		userID, _ := middleware.CurrentUserID(c)
		if !h.rbacService.CanAccessInstitution(c.Request.Context(), userID, filter.InstitutionID) {
			c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied for this institution"))
			return
		}
	}

	p := pagination.Parse(c)
	records, total, err := h.performanceService.ListRecords(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"records": records,
		"total":   total,
		"page":    p.Page,
		"limit":   p.Limit,
	}))
}

// SubmitRecord stores one month of data for an (institution, variable) pair
// @Summary      Submit performance record
// @Description  Classifies the record Green/Yellow/Red from baseline vs actual and broadcasts the submission
// @Tags         performance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SubmitRecordRequest  true  "Record Payload"
// @Success      201      {object}  response.Response{data=model.PerformanceRecord}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /performance/records [post]
func (h *PerformanceHandler) SubmitRecord(c *gin.Context) {
	var req service.SubmitRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	if !h.rbacService.CanAccessInstitution(c.Request.Context(), userID, req.InstitutionID) {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied for this institution"))
		return
	}

	rec, err := h.performanceService.SubmitRecord(c.Request.Context(), &userID, req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rec))
}

// ListVariables returns the tracked performance variables
// @Summary      List performance variables
// @Tags         performance
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.PerformanceVariable}
// @Router       /performance/variables [get]
func (h *PerformanceHandler) ListVariables(c *gin.Context) {
	vars, err := h.performanceService.ListVariables(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vars))
}
