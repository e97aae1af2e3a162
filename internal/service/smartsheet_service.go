package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"backend/internal/apperrors"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/smartsheet"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Column titles expected on the synced performance sheet.
const (
	colInstitutionCode = "Institution Code"
	colInstitutionName = "Institution Name"
	colVariableCode    = "Variable Code"
	colVariableName    = "Variable Name"
	colCategory        = "Category"
	colMonth           = "Month"
	colYear            = "Year"
	colBaseline        = "Baseline"
	colActual          = "Actual"
	colNotes           = "Notes"
)

type SyncResult struct {
	SheetName    string `json:"sheet_name"`
	RowsSeen     int    `json:"rows_seen"`
	RowsImported int    `json:"rows_imported"`
	RowsSkipped  int    `json:"rows_skipped"`
}

type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Email     string `json:"email,omitempty"`
}

type SmartsheetService interface {
	TestConnection(ctx context.Context) (*ConnectionStatus, error)
	SyncPerformance(ctx context.Context, actorID *uint) (*SyncResult, error)
	PushRecord(ctx context.Context, rec *model.PerformanceRecord) error
}

type smartsheetService struct {
	client       *smartsheet.Client
	sheetID      string
	institutions repository.InstitutionRepository
	performance  repository.PerformanceRepository
	txManager    repository.TransactionManager
	audit        AuditService
}

func NewSmartsheetService(
	client *smartsheet.Client,
	sheetID string,
	institutions repository.InstitutionRepository,
	performance repository.PerformanceRepository,
	txManager repository.TransactionManager,
	audit AuditService,
) SmartsheetService {
	return &smartsheetService{
		client:       client,
		sheetID:      sheetID,
		institutions: institutions,
		performance:  performance,
		txManager:    txManager,
		audit:        audit,
	}
}

func (s *smartsheetService) TestConnection(ctx context.Context) (*ConnectionStatus, error) {
	if s.client == nil {
		return &ConnectionStatus{Connected: false}, nil
	}
	user, err := s.client.TestConnection(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	return &ConnectionStatus{Connected: true, Email: user.Email}, nil
}

// SyncPerformance pulls the configured sheet and mirrors its rows into the
// local institution, variable and performance tables. Rows missing required
// fields are skipped, not fatal.
func (s *smartsheetService) SyncPerformance(ctx context.Context, actorID *uint) (*SyncResult, error) {
	if s.client == nil || s.sheetID == "" {
		return nil, fmt.Errorf("%w: smartsheet integration is not configured", apperrors.ErrValidation)
	}

	sheet, err := s.client.GetSheet(ctx, s.sheetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	result := &SyncResult{SheetName: sheet.Name}
	records := sheet.Records()
	result.RowsSeen = len(records)

	for _, rec := range records {
		if err := s.importRow(ctx, rec); err != nil {
			result.RowsSkipped++
			logrus.WithError(err).WithField("sheet_id", s.sheetID).Warn("skipping smartsheet row")
			continue
		}
		result.RowsImported++
	}

	s.audit.Record(ctx, actorID, model.ActionSmartsheetSync, "smartsheet", s.sheetID, map[string]any{
		"sheet_name":    sheet.Name,
		"rows_seen":     result.RowsSeen,
		"rows_imported": result.RowsImported,
		"rows_skipped":  result.RowsSkipped,
	}, "")

	return result, nil
}

// importRow upserts one sheet row as institution + variable + record,
// all inside a transaction so a partial row never lands.
func (s *smartsheetService) importRow(ctx context.Context, rec smartsheet.Record) error {
	instCode := cellString(rec[colInstitutionCode])
	varCode := cellString(rec[colVariableCode])
	month := cellString(rec[colMonth])
	year := cellInt(rec[colYear])
	if instCode == "" || varCode == "" || month == "" || year == 0 {
		return fmt.Errorf("row missing institution code, variable code, month or year")
	}

	baseline := cellDecimal(rec[colBaseline])
	actual := cellDecimal(rec[colActual])
	now := time.Now()

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		inst := &model.Institution{
			Code:     instCode,
			Name:     fallback(cellString(rec[colInstitutionName]), instCode),
			Category: cellString(rec[colCategory]),
			Status:   model.InstitutionStatusActive,
		}
		if err := s.institutions.UpsertByCode(txCtx, inst); err != nil {
			return fmt.Errorf("upsert institution %q: %w", instCode, err)
		}

		variable := &model.PerformanceVariable{
			Code:     varCode,
			Name:     fallback(cellString(rec[colVariableName]), varCode),
			Category: fallback(cellString(rec[colCategory]), "General"),
		}
		if err := s.performance.UpsertVariableByCode(txCtx, variable); err != nil {
			return fmt.Errorf("upsert variable %q: %w", varCode, err)
		}

		record := &model.PerformanceRecord{
			InstitutionID: inst.ID,
			VariableID:    variable.ID,
			Month:         month,
			Year:          year,
			BaselineValue: baseline,
			ActualValue:   actual,
			Status:        ClassifyStatus(baseline, actual),
			Notes:         cellString(rec[colNotes]),
			SubmittedAt:   &now,
		}
		if err := s.performance.UpsertRecordByPeriod(txCtx, record); err != nil {
			return fmt.Errorf("upsert record %s/%s %s %d: %w", instCode, varCode, month, year, err)
		}
		return nil
	})
}

// PushRecord mirrors a locally submitted record back to the sheet.
// Best effort: callers treat failures as non-fatal.
func (s *smartsheetService) PushRecord(ctx context.Context, rec *model.PerformanceRecord) error {
	if s.client == nil || s.sheetID == "" {
		return fmt.Errorf("%w: smartsheet integration is not configured", apperrors.ErrValidation)
	}
	values := map[string]any{
		colInstitutionCode: rec.Institution.Code,
		colInstitutionName: rec.Institution.Name,
		colVariableCode:    rec.Variable.Code,
		colVariableName:    rec.Variable.Name,
		colMonth:           rec.Month,
		colYear:            rec.Year,
		colBaseline:        rec.BaselineValue.InexactFloat64(),
		colActual:          rec.ActualValue.InexactFloat64(),
		colNotes:           rec.Notes,
	}
	if err := s.client.AddRow(ctx, s.sheetID, values); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	return nil
}

// --- cell coercion helpers (Smartsheet cell values are untyped JSON) ---

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func cellInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func cellDecimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
