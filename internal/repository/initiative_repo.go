package repository

import (
	"backend/internal/model"
	"context"

	"gorm.io/gorm"
)

// InitiativeRepository defines data access for initiatives and sub-boxes
type InitiativeRepository interface {
	Create(ctx context.Context, init *model.Initiative) error
	GetByID(ctx context.Context, id uint) (*model.Initiative, error)
	ListAll(ctx context.Context) ([]model.Initiative, error)
	ListByGoal(ctx context.Context, goal string) ([]model.Initiative, error)
	Update(ctx context.Context, init *model.Initiative) error
	Delete(ctx context.Context, id uint) error

	CreateSubBox(ctx context.Context, sb *model.SubBox) error
	GetSubBox(ctx context.Context, id uint) (*model.SubBox, error)
	ListSubBoxes(ctx context.Context, initiativeID uint) ([]model.SubBox, error)
	UpdateSubBox(ctx context.Context, sb *model.SubBox) error
	DeleteSubBox(ctx context.Context, id uint) error
	DeleteSubBoxesForInitiative(ctx context.Context, initiativeID uint) error
}

type initiativeRepository struct {
	db *gorm.DB
}

func NewInitiativeRepository(db *gorm.DB) InitiativeRepository {
	return &initiativeRepository{db: db}
}

func (r *initiativeRepository) Create(ctx context.Context, init *model.Initiative) error {
	return GetDB(ctx, r.db).Create(init).Error
}

func (r *initiativeRepository) GetByID(ctx context.Context, id uint) (*model.Initiative, error) {
	var init model.Initiative
	if err := GetDB(ctx, r.db).Preload("SubBoxes").First(&init, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &init, nil
}

func (r *initiativeRepository) ListAll(ctx context.Context) ([]model.Initiative, error) {
	var inits []model.Initiative
	if err := GetDB(ctx, r.db).Preload("SubBoxes").Order("goal asc, id asc").Find(&inits).Error; err != nil {
		return nil, err
	}
	return inits, nil
}

func (r *initiativeRepository) ListByGoal(ctx context.Context, goal string) ([]model.Initiative, error) {
	var inits []model.Initiative
	if err := GetDB(ctx, r.db).Preload("SubBoxes").Where("goal = ?", goal).Order("id asc").Find(&inits).Error; err != nil {
		return nil, err
	}
	return inits, nil
}

func (r *initiativeRepository) Update(ctx context.Context, init *model.Initiative) error {
	return GetDB(ctx, r.db).Save(init).Error
}

func (r *initiativeRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Initiative{}).Error
}

func (r *initiativeRepository) CreateSubBox(ctx context.Context, sb *model.SubBox) error {
	return GetDB(ctx, r.db).Create(sb).Error
}

func (r *initiativeRepository) GetSubBox(ctx context.Context, id uint) (*model.SubBox, error) {
	var sb model.SubBox
	if err := GetDB(ctx, r.db).First(&sb, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sb, nil
}

func (r *initiativeRepository) ListSubBoxes(ctx context.Context, initiativeID uint) ([]model.SubBox, error) {
	var boxes []model.SubBox
	if err := GetDB(ctx, r.db).Where("initiative_id = ?", initiativeID).Order("id asc").Find(&boxes).Error; err != nil {
		return nil, err
	}
	return boxes, nil
}

func (r *initiativeRepository) UpdateSubBox(ctx context.Context, sb *model.SubBox) error {
	return GetDB(ctx, r.db).Save(sb).Error
}

func (r *initiativeRepository) DeleteSubBox(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.SubBox{}).Error
}

func (r *initiativeRepository) DeleteSubBoxesForInitiative(ctx context.Context, initiativeID uint) error {
	return GetDB(ctx, r.db).Where("initiative_id = ?", initiativeID).Delete(&model.SubBox{}).Error
}
