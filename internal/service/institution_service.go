package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"backend/internal/apperrors"
	"backend/internal/model"
	"backend/internal/repository"

	"gorm.io/gorm"
)

// --- DTOs ---

type CreateInstitutionRequest struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Category string `json:"category" binding:"required"`
	Owner    string `json:"owner" binding:"required"`
	Status   string `json:"status"`
}

type UpdateInstitutionRequest struct {
	Name     *string `json:"name"`
	Category *string `json:"category"`
	Owner    *string `json:"owner"`
	Status   *string `json:"status"`
}

// --- Interface ---

type InstitutionService interface {
	Create(ctx context.Context, actorID *uint, req CreateInstitutionRequest) (*model.Institution, error)
	Get(ctx context.Context, id uint) (*model.Institution, error)
	ListAll(ctx context.Context) ([]model.Institution, error)
	Update(ctx context.Context, actorID *uint, id uint, req UpdateInstitutionRequest) (*model.Institution, error)
}

type institutionService struct {
	repo  repository.InstitutionRepository
	audit AuditService
}

func NewInstitutionService(repo repository.InstitutionRepository, audit AuditService) InstitutionService {
	return &institutionService{repo: repo, audit: audit}
}

// --- Implementation ---

func (s *institutionService) Create(ctx context.Context, actorID *uint, req CreateInstitutionRequest) (*model.Institution, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: institution code is required", apperrors.ErrValidation)
	}
	status := req.Status
	if status == "" {
		status = model.InstitutionStatusActive
	}
	if !model.ValidInstitutionStatus(status) {
		return nil, fmt.Errorf("%w: invalid status '%s'", apperrors.ErrValidation, status)
	}

	if _, err := s.repo.GetByCode(ctx, code); err == nil {
		return nil, fmt.Errorf("%w: institution code '%s' already exists", apperrors.ErrValidation, code)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: check institution code: %v", apperrors.ErrStorage, err)
	}

	inst := &model.Institution{
		Code:     code,
		Name:     req.Name,
		Category: req.Category,
		Owner:    req.Owner,
		Status:   status,
	}
	if err := s.repo.Create(ctx, inst); err != nil {
		return nil, fmt.Errorf("%w: create institution: %v", apperrors.ErrStorage, err)
	}

	s.audit.Record(ctx, actorID, model.ActionCreateInstitute, "institution", strconv.FormatUint(uint64(inst.ID), 10),
		map[string]string{"code": code, "name": req.Name}, "")
	return inst, nil
}

func (s *institutionService) Get(ctx context.Context, id uint) (*model.Institution, error) {
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: institution %d", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get institution %d: %v", apperrors.ErrStorage, id, err)
	}
	return inst, nil
}

func (s *institutionService) ListAll(ctx context.Context) ([]model.Institution, error) {
	insts, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list institutions: %v", apperrors.ErrStorage, err)
	}
	return insts, nil
}

func (s *institutionService) Update(ctx context.Context, actorID *uint, id uint, req UpdateInstitutionRequest) (*model.Institution, error) {
	inst, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		if !model.ValidInstitutionStatus(*req.Status) {
			return nil, fmt.Errorf("%w: invalid status '%s'", apperrors.ErrValidation, *req.Status)
		}
		inst.Status = *req.Status
	}
	if req.Name != nil {
		inst.Name = *req.Name
	}
	if req.Category != nil {
		inst.Category = *req.Category
	}
	if req.Owner != nil {
		inst.Owner = *req.Owner
	}

	if err := s.repo.Update(ctx, inst); err != nil {
		return nil, fmt.Errorf("%w: update institution %d: %v", apperrors.ErrStorage, id, err)
	}

	s.audit.Record(ctx, actorID, model.ActionUpdateInstitute, "institution", strconv.FormatUint(uint64(id), 10), nil, "")
	return inst, nil
}
