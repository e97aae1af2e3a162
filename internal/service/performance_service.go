package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"backend/internal/apperrors"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/websocket"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Classification thresholds for the actual/baseline ratio.
var (
	greenThreshold  = decimal.NewFromFloat(0.95)
	yellowThreshold = decimal.NewFromFloat(0.85)
)

// --- DTOs ---

type SubmitRecordRequest struct {
	InstitutionID uint            `json:"institution_id" binding:"required"`
	VariableID    uint            `json:"variable_id" binding:"required"`
	Month         string          `json:"month" binding:"required"`
	Year          int             `json:"year" binding:"required"`
	BaselineValue decimal.Decimal `json:"baseline_value"`
	ActualValue   decimal.Decimal `json:"actual_value"`
	Notes         string          `json:"notes"`
}

type DashboardSummary struct {
	Total        int64                     `json:"total"`
	Green        int64                     `json:"green"`
	Yellow       int64                     `json:"yellow"`
	Red          int64                     `json:"red"`
	GreenPct     float64                   `json:"green_pct"`
	YellowPct    float64                   `json:"yellow_pct"`
	RedPct       float64                   `json:"red_pct"`
	Institutions []model.InstitutionHealth `json:"institutions"`
}

// --- Interface ---

type PerformanceService interface {
	SubmitRecord(ctx context.Context, submitterID *uint, req SubmitRecordRequest) (*model.PerformanceRecord, error)
	ListRecords(ctx context.Context, f repository.RecordFilter, page, limit int) ([]model.PerformanceRecord, int64, error)
	DashboardSummary(ctx context.Context, month string, year int) (*DashboardSummary, error)
	ListVariables(ctx context.Context) ([]model.PerformanceVariable, error)
}

type performanceService struct {
	repo         repository.PerformanceRepository
	institutions repository.InstitutionRepository
	hub          *websocket.Hub
	sheet        SmartsheetService
	audit        AuditService
}

// NewPerformanceService wires the submission pipeline. hub and sheet are
// optional; a nil hub skips broadcasting and a nil sheet skips the
// Smartsheet mirror.
func NewPerformanceService(repo repository.PerformanceRepository, institutions repository.InstitutionRepository, hub *websocket.Hub, sheet SmartsheetService, audit AuditService) PerformanceService {
	return &performanceService{repo: repo, institutions: institutions, hub: hub, sheet: sheet, audit: audit}
}

// ClassifyStatus maps an actual/baseline ratio onto the traffic-light scale:
// ratio >= 95% is Green, >= 85% is Yellow, below that Red. A zero baseline
// cannot be divided through; meeting or beating it counts as Green.
func ClassifyStatus(baseline, actual decimal.Decimal) string {
	if baseline.IsZero() {
		if actual.GreaterThanOrEqual(baseline) {
			return model.StatusGreen
		}
		return model.StatusRed
	}

	ratio := actual.Div(baseline)
	switch {
	case ratio.GreaterThanOrEqual(greenThreshold):
		return model.StatusGreen
	case ratio.GreaterThanOrEqual(yellowThreshold):
		return model.StatusYellow
	default:
		return model.StatusRed
	}
}

func (s *performanceService) SubmitRecord(ctx context.Context, submitterID *uint, req SubmitRecordRequest) (*model.PerformanceRecord, error) {
	inst, err := s.institutions.GetByID(ctx, req.InstitutionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: institution %d", apperrors.ErrNotFound, req.InstitutionID)
		}
		return nil, fmt.Errorf("%w: look up institution: %v", apperrors.ErrStorage, err)
	}
	variable, err := s.repo.GetVariable(ctx, req.VariableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: variable %d", apperrors.ErrNotFound, req.VariableID)
		}
		return nil, fmt.Errorf("%w: look up variable: %v", apperrors.ErrStorage, err)
	}

	now := time.Now()
	rec := &model.PerformanceRecord{
		InstitutionID: req.InstitutionID,
		Institution:   *inst,
		VariableID:    req.VariableID,
		Variable:      *variable,
		Month:         req.Month,
		Year:          req.Year,
		BaselineValue: req.BaselineValue,
		ActualValue:   req.ActualValue,
		Status:        ClassifyStatus(req.BaselineValue, req.ActualValue),
		Notes:         req.Notes,
		SubmittedBy:   submitterID,
		SubmittedAt:   &now,
	}

	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: create performance record: %v", apperrors.ErrStorage, err)
	}

	s.audit.Record(ctx, submitterID, model.ActionSubmitPerfRecord, "performance_record",
		strconv.FormatUint(uint64(rec.ID), 10),
		map[string]any{"institution_id": req.InstitutionID, "variable_id": req.VariableID, "status": rec.Status}, "")

	s.broadcastSubmission(rec)
	s.mirrorToSheet(ctx, rec)
	return rec, nil
}

// mirrorToSheet appends the submitted row to the configured Smartsheet.
// Best effort: the local record is already committed, so a failed push is
// logged and swallowed.
func (s *performanceService) mirrorToSheet(ctx context.Context, rec *model.PerformanceRecord) {
	if s.sheet == nil {
		return
	}
	if err := s.sheet.PushRecord(ctx, rec); err != nil {
		logrus.WithError(err).WithField("record_id", rec.ID).Warn("smartsheet mirror failed")
	}
}

// broadcastSubmission pushes the new record to connected dashboard clients.
func (s *performanceService) broadcastSubmission(rec *model.PerformanceRecord) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"event":          "performance_record_submitted",
		"institution_id": rec.InstitutionID,
		"variable_id":    rec.VariableID,
		"month":          rec.Month,
		"year":           rec.Year,
		"status":         rec.Status,
	})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}

func (s *performanceService) ListRecords(ctx context.Context, f repository.RecordFilter, page, limit int) ([]model.PerformanceRecord, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	recs, total, err := s.repo.ListRecords(ctx, f, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list performance records: %v", apperrors.ErrStorage, err)
	}
	return recs, total, nil
}

func (s *performanceService) DashboardSummary(ctx context.Context, month string, year int) (*DashboardSummary, error) {
	counts, err := s.repo.CountByStatus(ctx, repository.RecordFilter{Month: month, Year: year})
	if err != nil {
		return nil, fmt.Errorf("%w: status rollup: %v", apperrors.ErrStorage, err)
	}

	summary := &DashboardSummary{}
	for _, c := range counts {
		switch c.Status {
		case model.StatusGreen:
			summary.Green = c.Count
		case model.StatusYellow:
			summary.Yellow = c.Count
		case model.StatusRed:
			summary.Red = c.Count
		}
		summary.Total += c.Count
	}
	if summary.Total > 0 {
		total := float64(summary.Total)
		summary.GreenPct = float64(summary.Green) / total * 100
		summary.YellowPct = float64(summary.Yellow) / total * 100
		summary.RedPct = float64(summary.Red) / total * 100
	}

	health, err := s.repo.HealthByInstitution(ctx, month, year)
	if err != nil {
		return nil, fmt.Errorf("%w: institution health rollup: %v", apperrors.ErrStorage, err)
	}
	summary.Institutions = health

	return summary, nil
}

func (s *performanceService) ListVariables(ctx context.Context) ([]model.PerformanceVariable, error) {
	vars, err := s.repo.ListVariables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list variables: %v", apperrors.ErrStorage, err)
	}
	return vars, nil
}
