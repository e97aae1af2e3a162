package repository

import (
	"backend/internal/model"
	"context"

	"gorm.io/gorm"
)

// AssignmentRepository defines data access for the user-institution ledger
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	// DeactivatePair flips IsActive off on every row for (userID, institutionID).
	// Rows are retained for audit; nothing is deleted.
	DeactivatePair(ctx context.Context, userID, institutionID uint) error
	// ActiveForPair returns the most recently created active assignment for
	// (userID, institutionID) with its role preloaded, or gorm.ErrRecordNotFound.
	ActiveForPair(ctx context.Context, userID, institutionID uint) (*model.Assignment, error)
	// ListActiveForUser returns the user's active assignments with institution
	// and role preloaded, newest first.
	ListActiveForUser(ctx context.Context, userID uint) ([]model.Assignment, error)
	// ActivePermissionCodes returns the distinct permission codes reachable
	// through the user's active assignments.
	ActivePermissionCodes(ctx context.Context, userID uint) ([]string, error)
	// ListActiveForInstitution returns active assignments scoped to one institution.
	ListActiveForInstitution(ctx context.Context, institutionID uint) ([]model.Assignment, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	return GetDB(ctx, r.db).Create(a).Error
}

func (r *assignmentRepository) DeactivatePair(ctx context.Context, userID, institutionID uint) error {
	return GetDB(ctx, r.db).
		Model(&model.Assignment{}).
		Where("user_id = ? AND institution_id = ?", userID, institutionID).
		Update("is_active", false).Error
}

func (r *assignmentRepository) ActiveForPair(ctx context.Context, userID, institutionID uint) (*model.Assignment, error) {
	var a model.Assignment
	err := GetDB(ctx, r.db).
		Preload("Role").
		Preload("Role.Permissions").
		Where("user_id = ? AND institution_id = ? AND is_active = ?", userID, institutionID, true).
		Order("created_at desc, id desc").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepository) ListActiveForUser(ctx context.Context, userID uint) ([]model.Assignment, error) {
	var rows []model.Assignment
	err := GetDB(ctx, r.db).
		Preload("Institution").
		Preload("Role").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *assignmentRepository) ActivePermissionCodes(ctx context.Context, userID uint) ([]string, error) {
	var codes []string
	err := GetDB(ctx, r.db).
		Table("permissions").
		Select("DISTINCT permissions.code").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN assignments ON assignments.role_id = role_permissions.role_id").
		Where("assignments.user_id = ? AND assignments.is_active = ?", userID, true).
		Pluck("permissions.code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *assignmentRepository) ListActiveForInstitution(ctx context.Context, institutionID uint) ([]model.Assignment, error) {
	var rows []model.Assignment
	err := GetDB(ctx, r.db).
		Preload("User").
		Preload("Role").
		Where("institution_id = ? AND is_active = ?", institutionID, true).
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
