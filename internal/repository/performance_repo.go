package repository

import (
	"backend/internal/model"
	"context"

	"gorm.io/gorm"
)

// RecordFilter narrows performance record queries. Zero values mean "any".
type RecordFilter struct {
	InstitutionID uint
	VariableID    uint
	Month         string
	Year          int
}

// PerformanceRepository defines data access for variables and monthly records
type PerformanceRepository interface {
	CreateRecord(ctx context.Context, rec *model.PerformanceRecord) error
	UpsertRecordByPeriod(ctx context.Context, rec *model.PerformanceRecord) error
	ListRecords(ctx context.Context, f RecordFilter, page, limit int) ([]model.PerformanceRecord, int64, error)
	CountByStatus(ctx context.Context, f RecordFilter) ([]model.StatusCount, error)
	HealthByInstitution(ctx context.Context, month string, year int) ([]model.InstitutionHealth, error)

	GetVariable(ctx context.Context, id uint) (*model.PerformanceVariable, error)
	GetVariableByCode(ctx context.Context, code string) (*model.PerformanceVariable, error)
	ListVariables(ctx context.Context) ([]model.PerformanceVariable, error)
	UpsertVariableByCode(ctx context.Context, v *model.PerformanceVariable) error
}

type performanceRepository struct {
	db *gorm.DB
}

func NewPerformanceRepository(db *gorm.DB) PerformanceRepository {
	return &performanceRepository{db: db}
}

func (r *performanceRepository) CreateRecord(ctx context.Context, rec *model.PerformanceRecord) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

// UpsertRecordByPeriod replaces the record for an (institution, variable,
// month, year) tuple, creating it when absent. Used by the Smartsheet sync
// so re-running an import does not duplicate rows.
func (r *performanceRepository) UpsertRecordByPeriod(ctx context.Context, rec *model.PerformanceRecord) error {
	db := GetDB(ctx, r.db)
	var existing model.PerformanceRecord
	err := db.Where("institution_id = ? AND variable_id = ? AND month = ? AND year = ?",
		rec.InstitutionID, rec.VariableID, rec.Month, rec.Year).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return db.Create(rec).Error
		}
		return err
	}
	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	return db.Save(rec).Error
}

func applyFilter(db *gorm.DB, f RecordFilter) *gorm.DB {
	if f.InstitutionID != 0 {
		db = db.Where("institution_id = ?", f.InstitutionID)
	}
	if f.VariableID != 0 {
		db = db.Where("variable_id = ?", f.VariableID)
	}
	if f.Month != "" {
		db = db.Where("month = ?", f.Month)
	}
	if f.Year != 0 {
		db = db.Where("year = ?", f.Year)
	}
	return db
}

func (r *performanceRepository) ListRecords(ctx context.Context, f RecordFilter, page, limit int) ([]model.PerformanceRecord, int64, error) {
	var recs []model.PerformanceRecord
	var total int64

	base := applyFilter(GetDB(ctx, r.db).Model(&model.PerformanceRecord{}), f)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := applyFilter(GetDB(ctx, r.db), f).
		Preload("Institution").
		Preload("Variable").
		Order("year desc, month asc, institution_id asc").
		Offset(offset).Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, 0, err
	}

	return recs, total, nil
}

func (r *performanceRepository) CountByStatus(ctx context.Context, f RecordFilter) ([]model.StatusCount, error) {
	var counts []model.StatusCount
	err := applyFilter(GetDB(ctx, r.db).Model(&model.PerformanceRecord{}), f).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *performanceRepository) HealthByInstitution(ctx context.Context, month string, year int) ([]model.InstitutionHealth, error) {
	var rows []model.InstitutionHealth
	db := GetDB(ctx, r.db).
		Table("performance_records").
		Select(`institutions.id as institution_id, institutions.name as institution_name,
			SUM(CASE WHEN performance_records.status = 'Green' THEN 1 ELSE 0 END) as green,
			SUM(CASE WHEN performance_records.status = 'Yellow' THEN 1 ELSE 0 END) as yellow,
			SUM(CASE WHEN performance_records.status = 'Red' THEN 1 ELSE 0 END) as red`).
		Joins("JOIN institutions ON institutions.id = performance_records.institution_id")
	if month != "" {
		db = db.Where("performance_records.month = ?", month)
	}
	if year != 0 {
		db = db.Where("performance_records.year = ?", year)
	}
	err := db.Group("institutions.id, institutions.name").
		Order("institutions.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *performanceRepository) GetVariable(ctx context.Context, id uint) (*model.PerformanceVariable, error) {
	var v model.PerformanceVariable
	if err := GetDB(ctx, r.db).First(&v, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *performanceRepository) GetVariableByCode(ctx context.Context, code string) (*model.PerformanceVariable, error) {
	var v model.PerformanceVariable
	if err := GetDB(ctx, r.db).First(&v, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *performanceRepository) ListVariables(ctx context.Context) ([]model.PerformanceVariable, error) {
	var vars []model.PerformanceVariable
	if err := GetDB(ctx, r.db).Order("category asc, code asc").Find(&vars).Error; err != nil {
		return nil, err
	}
	return vars, nil
}

func (r *performanceRepository) UpsertVariableByCode(ctx context.Context, v *model.PerformanceVariable) error {
	db := GetDB(ctx, r.db)
	var existing model.PerformanceVariable
	err := db.Where("code = ?", v.Code).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return db.Create(v).Error
		}
		return err
	}
	v.ID = existing.ID
	v.CreatedAt = existing.CreatedAt
	return db.Save(v).Error
}
