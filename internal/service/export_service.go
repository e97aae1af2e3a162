package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"backend/internal/apperrors"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/xuri/excelize/v2"
)

// --- DTOs ---

type ExportRequest struct {
	InstitutionID uint   `json:"institution_id"`
	Month         string `json:"month"`
	Year          int    `json:"year"`
}

type ExcelExport struct {
	FileName string
	Content  []byte
}

type PDFExport struct {
	FileName    string
	HTMLContent string
}

// --- Interface ---

type ExportService interface {
	ToExcel(ctx context.Context, requesterID *uint, requesterName string, req ExportRequest) (*ExcelExport, error)
	ToPDF(ctx context.Context, requesterID *uint, requesterName string, req ExportRequest) (*PDFExport, error)
}

type exportService struct {
	performance repository.PerformanceRepository
	audit       AuditService
}

func NewExportService(performance repository.PerformanceRepository, audit AuditService) ExportService {
	return &exportService{performance: performance, audit: audit}
}

const exportPageLimit = 10000

// ToExcel builds a three-sheet workbook: Summary, Performance Data, Audit Trail.
func (s *exportService) ToExcel(ctx context.Context, requesterID *uint, requesterName string, req ExportRequest) (*ExcelExport, error) {
	filter := repository.RecordFilter{InstitutionID: req.InstitutionID, Month: req.Month, Year: req.Year}

	counts, err := s.performance.CountByStatus(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: status rollup for export: %v", apperrors.ErrStorage, err)
	}
	records, _, err := s.performance.ListRecords(ctx, filter, 1, exportPageLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: records for export: %v", apperrors.ErrStorage, err)
	}

	var green, yellow, red int64
	for _, c := range counts {
		switch c.Status {
		case model.StatusGreen:
			green = c.Count
		case model.StatusYellow:
			yellow = c.Count
		case model.StatusRed:
			red = c.Count
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	// Sheet 1: Summary
	const summarySheet = "Summary"
	f.SetSheetName("Sheet1", summarySheet)
	summaryRows := [][]any{
		{"Metric", "Value"},
		{"Report Generated", time.Now().Format("2006-01-02 15:04:05")},
		{"Institution", institutionLabel(req.InstitutionID)},
		{"Month", orAll(req.Month)},
		{"Year", yearLabel(req.Year)},
		{"Total Metrics", green + yellow + red},
		{"Green Status", green},
		{"Yellow Status", yellow},
		{"Red Status", red},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("%w: write summary sheet: %v", apperrors.ErrStorage, err)
		}
	}

	// Sheet 2: Performance Data
	const dataSheet = "Performance Data"
	if _, err := f.NewSheet(dataSheet); err != nil {
		return nil, fmt.Errorf("%w: create data sheet: %v", apperrors.ErrStorage, err)
	}
	header := []any{"Institution", "Variable", "Month", "Year", "Baseline", "Actual", "Status", "Notes"}
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("%w: write data header: %v", apperrors.ErrStorage, err)
	}
	for i, rec := range records {
		row := []any{
			rec.Institution.Name,
			rec.Variable.Name,
			rec.Month,
			rec.Year,
			rec.BaselineValue.String(),
			rec.ActualValue.String(),
			rec.Status,
			rec.Notes,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(dataSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("%w: write data row: %v", apperrors.ErrStorage, err)
		}
	}

	// Sheet 3: Audit Trail
	const auditSheet = "Audit Trail"
	if _, err := f.NewSheet(auditSheet); err != nil {
		return nil, fmt.Errorf("%w: create audit sheet: %v", apperrors.ErrStorage, err)
	}
	auditHeader := []any{"Timestamp", "User", "Action", "Entity", "Details"}
	auditRow := []any{time.Now().Format(time.RFC3339), requesterName, "Export", "Dashboard", "Exported performance data to Excel"}
	if err := f.SetSheetRow(auditSheet, "A1", &auditHeader); err != nil {
		return nil, fmt.Errorf("%w: write audit header: %v", apperrors.ErrStorage, err)
	}
	if err := f.SetSheetRow(auditSheet, "A2", &auditRow); err != nil {
		return nil, fmt.Errorf("%w: write audit row: %v", apperrors.ErrStorage, err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("%w: serialize workbook: %v", apperrors.ErrStorage, err)
	}

	s.audit.Record(ctx, requesterID, model.ActionExportReport, "report", "excel",
		map[string]any{"institution_id": req.InstitutionID, "month": req.Month, "year": req.Year}, "")

	return &ExcelExport{
		FileName: fmt.Sprintf("MCC_Performance_Report_%s.xlsx", time.Now().Format("2006-01-02")),
		Content:  buf.Bytes(),
	}, nil
}

// reportTemplate renders the printable report. PDF conversion happens
// client-side; this service only produces the HTML.
var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <title>MCC Performance Report</title>
    <style>
      body { font-family: Arial, sans-serif; margin: 20px; }
      h1 { color: #1f2937; }
      table { width: 100%; border-collapse: collapse; margin: 20px 0; }
      th, td { border: 1px solid #e5e7eb; padding: 8px; text-align: left; }
      th { background-color: #1f2937; color: white; }
      .summary { background-color: #f3f4f6; padding: 15px; border-radius: 5px; }
      .green { color: #16a34a; }
      .yellow { color: #f59e0b; }
      .red { color: #dc2626; }
    </style>
  </head>
  <body>
    <h1>MCC Kansas City - Institutional Performance Report</h1>
    <div class="summary">
      <p><strong>Generated:</strong> {{.Generated}}</p>
      <p><strong>Institution:</strong> {{.Institution}}</p>
      <p><strong>Month:</strong> {{.Month}}</p>
      <p><strong>Prepared by:</strong> {{.PreparedBy}}</p>
    </div>

    <h2>Executive Summary</h2>
    <table>
      <tr><th>Metric</th><th>Count</th><th>Percentage</th></tr>
      <tr><td><span class="green">Green Status</span></td><td>{{.Green}}</td><td>{{.GreenPct}}%</td></tr>
      <tr><td><span class="yellow">Yellow Status</span></td><td>{{.Yellow}}</td><td>{{.YellowPct}}%</td></tr>
      <tr><td><span class="red">Red Status</span></td><td>{{.Red}}</td><td>{{.RedPct}}%</td></tr>
    </table>

    <h2>Performance Details</h2>
    <table>
      <tr><th>Institution</th><th>Variable</th><th>Month</th><th>Status</th><th>Notes</th></tr>
      {{range .Records}}<tr>
        <td>{{.InstitutionName}}</td><td>{{.VariableName}}</td><td>{{.Month}}</td>
        <td><span class="{{.StatusClass}}">{{.Status}}</span></td><td>{{.Notes}}</td>
      </tr>{{end}}
    </table>

    <p style="margin-top: 40px; font-size: 12px; color: #6b7280;">
      This report is confidential and intended for authorized MCC personnel only.
    </p>
  </body>
</html>
`))

type reportRow struct {
	InstitutionName string
	VariableName    string
	Month           string
	Status          string
	StatusClass     string
	Notes           string
}

func (s *exportService) ToPDF(ctx context.Context, requesterID *uint, requesterName string, req ExportRequest) (*PDFExport, error) {
	filter := repository.RecordFilter{InstitutionID: req.InstitutionID, Month: req.Month, Year: req.Year}

	counts, err := s.performance.CountByStatus(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: status rollup for export: %v", apperrors.ErrStorage, err)
	}
	records, _, err := s.performance.ListRecords(ctx, filter, 1, exportPageLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: records for export: %v", apperrors.ErrStorage, err)
	}

	var green, yellow, red int64
	for _, c := range counts {
		switch c.Status {
		case model.StatusGreen:
			green = c.Count
		case model.StatusYellow:
			yellow = c.Count
		case model.StatusRed:
			red = c.Count
		}
	}
	total := green + yellow + red

	rows := make([]reportRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, reportRow{
			InstitutionName: rec.Institution.Name,
			VariableName:    rec.Variable.Name,
			Month:           rec.Month,
			Status:          rec.Status,
			StatusClass:     statusClass(rec.Status),
			Notes:           rec.Notes,
		})
	}

	data := map[string]any{
		"Generated":   time.Now().Format("2006-01-02 15:04:05"),
		"Institution": institutionLabel(req.InstitutionID),
		"Month":       orAll(req.Month),
		"PreparedBy":  requesterName,
		"Green":       green,
		"Yellow":      yellow,
		"Red":         red,
		"GreenPct":    pct(green, total),
		"YellowPct":   pct(yellow, total),
		"RedPct":      pct(red, total),
		"Records":     rows,
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: render report: %v", apperrors.ErrStorage, err)
	}

	s.audit.Record(ctx, requesterID, model.ActionExportReport, "report", "pdf",
		map[string]any{"institution_id": req.InstitutionID, "month": req.Month, "year": req.Year}, "")

	return &PDFExport{
		FileName:    fmt.Sprintf("MCC_Performance_Report_%s.pdf", time.Now().Format("2006-01-02")),
		HTMLContent: buf.String(),
	}, nil
}

func institutionLabel(id uint) string {
	if id == 0 {
		return "All"
	}
	return strconv.FormatUint(uint64(id), 10)
}

func orAll(s string) string {
	if s == "" {
		return "All"
	}
	return s
}

func yearLabel(y int) string {
	if y == 0 {
		return "All"
	}
	return strconv.Itoa(y)
}

func pct(part, total int64) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(part)/float64(total)*100)
}

func statusClass(status string) string {
	switch status {
	case model.StatusGreen:
		return "green"
	case model.StatusYellow:
		return "yellow"
	default:
		return "red"
	}
}
