package repository

import (
	"backend/internal/model"
	"context"

	"gorm.io/gorm"
)

// InstitutionRepository defines data access for the institution directory
type InstitutionRepository interface {
	Create(ctx context.Context, inst *model.Institution) error
	GetByID(ctx context.Context, id uint) (*model.Institution, error)
	GetByCode(ctx context.Context, code string) (*model.Institution, error)
	ListAll(ctx context.Context) ([]model.Institution, error)
	Update(ctx context.Context, inst *model.Institution) error
	UpsertByCode(ctx context.Context, inst *model.Institution) error
}

type institutionRepository struct {
	db *gorm.DB
}

func NewInstitutionRepository(db *gorm.DB) InstitutionRepository {
	return &institutionRepository{db: db}
}

func (r *institutionRepository) Create(ctx context.Context, inst *model.Institution) error {
	return GetDB(ctx, r.db).Create(inst).Error
}

func (r *institutionRepository) GetByID(ctx context.Context, id uint) (*model.Institution, error) {
	var inst model.Institution
	if err := GetDB(ctx, r.db).First(&inst, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *institutionRepository) GetByCode(ctx context.Context, code string) (*model.Institution, error) {
	var inst model.Institution
	if err := GetDB(ctx, r.db).First(&inst, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *institutionRepository) ListAll(ctx context.Context) ([]model.Institution, error) {
	var insts []model.Institution
	if err := GetDB(ctx, r.db).Order("code asc").Find(&insts).Error; err != nil {
		return nil, err
	}
	return insts, nil
}

func (r *institutionRepository) Update(ctx context.Context, inst *model.Institution) error {
	return GetDB(ctx, r.db).Save(inst).Error
}

// UpsertByCode inserts or refreshes a directory row keyed by its external
// code. Used by the Smartsheet sync so re-running a pull stays idempotent.
func (r *institutionRepository) UpsertByCode(ctx context.Context, inst *model.Institution) error {
	db := GetDB(ctx, r.db)
	var existing model.Institution
	err := db.Where("code = ?", inst.Code).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return db.Create(inst).Error
		}
		return err
	}
	inst.ID = existing.ID
	inst.CreatedAt = existing.CreatedAt
	return db.Save(inst).Error
}
