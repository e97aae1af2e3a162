package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/apperrors"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateInitiativeRequest struct {
	Goal        string `json:"goal" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
}

type UpdateInitiativeRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Owner       *string `json:"owner"`
	Status      *string `json:"status"`
}

type CreateSubBoxRequest struct {
	InitiativeID uint   `json:"initiative_id" binding:"required"`
	Title        string `json:"title" binding:"required"`
	Status       string `json:"status"`
	Owner        string `json:"owner"`
}

type UpdateSubBoxRequest struct {
	Title         *string    `json:"title"`
	Status        *string    `json:"status"`
	Notes         *string    `json:"notes"`
	DocumentURL   *string    `json:"document_url"`
	DocumentName  *string    `json:"document_name"`
	Owner         *string    `json:"owner"`
	DueDate       *time.Time `json:"due_date"`
	CompletedDate *time.Time `json:"completed_date"`
}

// --- Interface ---

type InitiativeService interface {
	Create(ctx context.Context, req CreateInitiativeRequest) (*model.Initiative, error)
	Get(ctx context.Context, id uint) (*model.Initiative, error)
	ListAll(ctx context.Context) ([]model.Initiative, error)
	ListByGoal(ctx context.Context, goal string) ([]model.Initiative, error)
	Update(ctx context.Context, id uint, req UpdateInitiativeRequest) (*model.Initiative, error)
	Delete(ctx context.Context, id uint) error

	CreateSubBox(ctx context.Context, req CreateSubBoxRequest) (*model.SubBox, error)
	ListSubBoxes(ctx context.Context, initiativeID uint) ([]model.SubBox, error)
	UpdateSubBox(ctx context.Context, id uint, req UpdateSubBoxRequest) (*model.SubBox, error)
	DeleteSubBox(ctx context.Context, id uint) error
}

type initiativeService struct {
	repo      repository.InitiativeRepository
	txManager repository.TransactionManager
}

func NewInitiativeService(repo repository.InitiativeRepository, txManager repository.TransactionManager) InitiativeService {
	return &initiativeService{repo: repo, txManager: txManager}
}

// --- Implementation ---

func (s *initiativeService) Create(ctx context.Context, req CreateInitiativeRequest) (*model.Initiative, error) {
	if !model.ValidGoal(req.Goal) {
		return nil, fmt.Errorf("%w: goal must be one of A, B, C, D", apperrors.ErrValidation)
	}

	init := &model.Initiative{
		Code:        "init-" + uuid.NewString(),
		Goal:        req.Goal,
		Title:       req.Title,
		Description: req.Description,
		Owner:       req.Owner,
		Status:      model.InitiativeNotStarted,
	}
	if err := s.repo.Create(ctx, init); err != nil {
		return nil, fmt.Errorf("%w: create initiative: %v", apperrors.ErrStorage, err)
	}
	return init, nil
}

func (s *initiativeService) Get(ctx context.Context, id uint) (*model.Initiative, error) {
	init, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: initiative %d", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get initiative %d: %v", apperrors.ErrStorage, id, err)
	}
	return init, nil
}

func (s *initiativeService) ListAll(ctx context.Context) ([]model.Initiative, error) {
	inits, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list initiatives: %v", apperrors.ErrStorage, err)
	}
	return inits, nil
}

func (s *initiativeService) ListByGoal(ctx context.Context, goal string) ([]model.Initiative, error) {
	if !model.ValidGoal(goal) {
		return nil, fmt.Errorf("%w: goal must be one of A, B, C, D", apperrors.ErrValidation)
	}
	inits, err := s.repo.ListByGoal(ctx, goal)
	if err != nil {
		return nil, fmt.Errorf("%w: list initiatives for goal %s: %v", apperrors.ErrStorage, goal, err)
	}
	return inits, nil
}

func (s *initiativeService) Update(ctx context.Context, id uint, req UpdateInitiativeRequest) (*model.Initiative, error) {
	init, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		if !model.ValidInitiativeStatus(*req.Status) {
			return nil, fmt.Errorf("%w: invalid status '%s'", apperrors.ErrValidation, *req.Status)
		}
		init.Status = *req.Status
	}
	if req.Title != nil {
		init.Title = *req.Title
	}
	if req.Description != nil {
		init.Description = *req.Description
	}
	if req.Owner != nil {
		init.Owner = *req.Owner
	}

	init.SubBoxes = nil // avoid re-saving preloaded children
	if err := s.repo.Update(ctx, init); err != nil {
		return nil, fmt.Errorf("%w: update initiative %d: %v", apperrors.ErrStorage, id, err)
	}
	return init, nil
}

// Delete removes an initiative and its sub-boxes together.
func (s *initiativeService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.DeleteSubBoxesForInitiative(txCtx, id); err != nil {
			return err
		}
		return s.repo.Delete(txCtx, id)
	})
	if err != nil {
		return fmt.Errorf("%w: delete initiative %d: %v", apperrors.ErrStorage, id, err)
	}
	return nil
}

func (s *initiativeService) CreateSubBox(ctx context.Context, req CreateSubBoxRequest) (*model.SubBox, error) {
	if _, err := s.Get(ctx, req.InitiativeID); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = model.InitiativeNotStarted
	}
	if !model.ValidInitiativeStatus(status) {
		return nil, fmt.Errorf("%w: invalid status '%s'", apperrors.ErrValidation, status)
	}

	sb := &model.SubBox{
		Code:         "subbox-" + uuid.NewString(),
		InitiativeID: req.InitiativeID,
		Title:        req.Title,
		Status:       status,
		Owner:        req.Owner,
	}
	if err := s.repo.CreateSubBox(ctx, sb); err != nil {
		return nil, fmt.Errorf("%w: create sub-box: %v", apperrors.ErrStorage, err)
	}
	return sb, nil
}

func (s *initiativeService) ListSubBoxes(ctx context.Context, initiativeID uint) ([]model.SubBox, error) {
	boxes, err := s.repo.ListSubBoxes(ctx, initiativeID)
	if err != nil {
		return nil, fmt.Errorf("%w: list sub-boxes: %v", apperrors.ErrStorage, err)
	}
	return boxes, nil
}

func (s *initiativeService) UpdateSubBox(ctx context.Context, id uint, req UpdateSubBoxRequest) (*model.SubBox, error) {
	sb, err := s.repo.GetSubBox(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: sub-box %d", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get sub-box %d: %v", apperrors.ErrStorage, id, err)
	}

	if req.Status != nil {
		if !model.ValidInitiativeStatus(*req.Status) {
			return nil, fmt.Errorf("%w: invalid status '%s'", apperrors.ErrValidation, *req.Status)
		}
		sb.Status = *req.Status
	}
	if req.Title != nil {
		sb.Title = *req.Title
	}
	if req.Notes != nil {
		sb.Notes = *req.Notes
	}
	if req.DocumentURL != nil {
		sb.DocumentURL = *req.DocumentURL
	}
	if req.DocumentName != nil {
		sb.DocumentName = *req.DocumentName
	}
	if req.Owner != nil {
		sb.Owner = *req.Owner
	}
	if req.DueDate != nil {
		sb.DueDate = req.DueDate
	}
	if req.CompletedDate != nil {
		sb.CompletedDate = req.CompletedDate
	}

	if err := s.repo.UpdateSubBox(ctx, sb); err != nil {
		return nil, fmt.Errorf("%w: update sub-box %d: %v", apperrors.ErrStorage, id, err)
	}
	return sb, nil
}

func (s *initiativeService) DeleteSubBox(ctx context.Context, id uint) error {
	if err := s.repo.DeleteSubBox(ctx, id); err != nil {
		return fmt.Errorf("%w: delete sub-box %d: %v", apperrors.ErrStorage, id, err)
	}
	return nil
}
