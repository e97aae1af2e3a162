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

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	PermissionIDs []uint `json:"permission_ids"`
}

// UpdateRoleRequest is a partial update. A nil PermissionIDs leaves bindings
// untouched; a non-nil (even empty) slice replaces the full set.
type UpdateRoleRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	PermissionIDs *[]uint `json:"permission_ids"`
}

type RoleResponse struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID          uint   `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type SeedResult struct {
	Skipped bool `json:"skipped"`
}

// --- Interface ---

type RoleService interface {
	ListRolesWithPermissions(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id uint) (*RoleResponse, error)
	CreateRole(ctx context.Context, actorID *uint, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, actorID *uint, id uint, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, actorID *uint, id uint) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	SeedDefaultPermissions(ctx context.Context) error
	SeedDefaultRoles(ctx context.Context, actorID *uint) (*SeedResult, error)
}

type roleService struct {
	repo      repository.RoleRepository
	txManager repository.TransactionManager
	audit     AuditService
}

func NewRoleService(repo repository.RoleRepository, txManager repository.TransactionManager, audit AuditService) RoleService {
	return &roleService{repo: repo, txManager: txManager, audit: audit}
}

// --- Implementation ---

func (s *roleService) ListRolesWithPermissions(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list roles: %v", apperrors.ErrStorage, err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id uint) (*RoleResponse, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: role %d", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get role %d: %v", apperrors.ErrStorage, id, err)
	}
	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, actorID *uint, req CreateRoleRequest) (*RoleResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", apperrors.ErrValidation)
	}
	// Name match is case-sensitive exact, same as the unique index.
	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: role name '%s' already taken", apperrors.ErrValidation, name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: check role name: %v", apperrors.ErrStorage, err)
	}

	role := model.Role{Name: name, Description: req.Description}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, &role); err != nil {
			return err
		}
		if len(req.PermissionIDs) == 0 {
			return nil
		}
		resolved, err := s.resolvePermissionIDs(txCtx, req.PermissionIDs)
		if err != nil {
			return err
		}
		return s.repo.ReplacePermissions(txCtx, role.ID, resolved)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create role '%s': %v", apperrors.ErrStorage, name, err)
	}

	s.audit.Record(ctx, actorID, model.ActionCreateRole, "role", strconv.FormatUint(uint64(role.ID), 10),
		map[string]any{"name": name, "permission_ids": req.PermissionIDs}, "")

	return s.GetRole(ctx, role.ID)
}

func (s *roleService) UpdateRole(ctx context.Context, actorID *uint, id uint, req UpdateRoleRequest) (*RoleResponse, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: role %d", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get role %d: %v", apperrors.ErrStorage, id, err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: role name is required", apperrors.ErrValidation)
		}
		if name != role.Name {
			if _, err := s.repo.FindByName(ctx, name); err == nil {
				return nil, fmt.Errorf("%w: role name '%s' already taken", apperrors.ErrValidation, name)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: check role name: %v", apperrors.ErrStorage, err)
			}
			role.Name = name
		}
	}
	if req.Description != nil {
		role.Description = *req.Description
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		role.Permissions = nil // Save must not resurrect preloaded bindings
		if err := s.repo.Update(txCtx, role); err != nil {
			return err
		}
		if req.PermissionIDs == nil {
			return nil
		}
		// Explicitly provided (possibly empty) set replaces all bindings.
		resolved, err := s.resolvePermissionIDs(txCtx, *req.PermissionIDs)
		if err != nil {
			return err
		}
		return s.repo.ReplacePermissions(txCtx, role.ID, resolved)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: update role %d: %v", apperrors.ErrStorage, id, err)
	}

	s.audit.Record(ctx, actorID, model.ActionUpdateRole, "role", strconv.FormatUint(uint64(id), 10),
		map[string]any{"name": req.Name, "permissions_replaced": req.PermissionIDs != nil}, "")

	return s.GetRole(ctx, id)
}

// DeleteRole removes a role and its bindings. It is idempotent for unknown
// ids, but rejects deletion while active assignments still reference the
// role — cascading would silently strip access from assigned users.
func (s *roleService) DeleteRole(ctx context.Context, actorID *uint, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("%w: get role %d: %v", apperrors.ErrStorage, id, err)
	}

	active, err := s.repo.CountActiveAssignments(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: count assignments for role %d: %v", apperrors.ErrStorage, id, err)
	}
	if active > 0 {
		return fmt.Errorf("%w: role %d is referenced by %d active assignment(s)", apperrors.ErrConflict, id, active)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.ClearPermissions(txCtx, id); err != nil {
			return err
		}
		return s.repo.Delete(txCtx, id)
	})
	if err != nil {
		return fmt.Errorf("%w: delete role %d: %v", apperrors.ErrStorage, id, err)
	}

	s.audit.Record(ctx, actorID, model.ActionDeleteRole, "role", strconv.FormatUint(uint64(id), 10), nil, "")
	return nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list permissions: %v", apperrors.ErrStorage, err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

// defaultPermissions is the canonical capability catalog.
var defaultPermissions = []model.Permission{
	{Code: "view_dashboard", Name: "View Dashboard", Description: "View the main dashboard", Category: "view"},
	{Code: "view_data", Name: "View Data", Description: "View institutional performance data", Category: "view"},
	{Code: "export_reports", Name: "Export Reports", Description: "Export data to Excel and PDF", Category: "export"},
	{Code: "submit_data", Name: "Submit Data", Description: "Submit monthly performance data", Category: "edit"},
	{Code: "manage_users", Name: "Manage Users", Description: "Create, edit, and delete users", Category: "admin"},
	{Code: "manage_roles", Name: "Manage Roles", Description: "Create, edit, and delete roles", Category: "admin"},
	{Code: "view_audit_log", Name: "View Audit Log", Description: "View system audit trail", Category: "view"},
}

// defaultRoles maps role names to their permission subsets.
var defaultRoles = []struct {
	Name        string
	Description string
	PermCodes   []string
}{
	{
		Name:        "Executive",
		Description: "Executive leadership with full system access",
		PermCodes:   []string{"view_dashboard", "view_data", "export_reports", "manage_users", "manage_roles", "view_audit_log"},
	},
	{
		Name:        "Institution Lead",
		Description: "Lead for a specific institution",
		PermCodes:   []string{"view_dashboard", "view_data", "export_reports", "submit_data"},
	},
	{
		Name:        "Data Analyst",
		Description: "Analyst with data viewing and export capabilities",
		PermCodes:   []string{"view_dashboard", "view_data", "export_reports"},
	},
	{
		Name:        "Viewer",
		Description: "Read-only access to dashboard and reports",
		PermCodes:   []string{"view_dashboard"},
	},
}

// SeedDefaultPermissions upserts the catalog by code. Re-running never
// creates duplicates.
func (s *roleService) SeedDefaultPermissions(ctx context.Context) error {
	for i := range defaultPermissions {
		p := defaultPermissions[i]
		if err := s.repo.FindOrCreatePermission(ctx, &p); err != nil {
			return fmt.Errorf("%w: seed permission '%s': %v", apperrors.ErrStorage, p.Code, err)
		}
	}
	return nil
}

// SeedDefaultRoles creates the four stock roles with their permission
// subsets. A no-op (skipped=true) when any role already exists.
func (s *roleService) SeedDefaultRoles(ctx context.Context, actorID *uint) (*SeedResult, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count roles: %v", apperrors.ErrStorage, err)
	}
	if count > 0 {
		return &SeedResult{Skipped: true}, nil
	}

	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list permissions: %v", apperrors.ErrStorage, err)
	}
	permByCode := make(map[string]uint, len(perms))
	for _, p := range perms {
		permByCode[p.Code] = p.ID
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, def := range defaultRoles {
			role := model.Role{Name: def.Name, Description: def.Description}
			if err := s.repo.Create(txCtx, &role); err != nil {
				return err
			}

			ids := make([]uint, 0, len(def.PermCodes))
			for _, code := range def.PermCodes {
				id, ok := permByCode[code]
				if !ok {
					logrus.WithFields(logrus.Fields{"role": def.Name, "code": code}).
						Warn("skipping unresolved permission code during seed")
					continue
				}
				ids = append(ids, id)
			}
			if len(ids) > 0 {
				if err := s.repo.ReplacePermissions(txCtx, role.ID, ids); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: seed default roles: %v", apperrors.ErrStorage, err)
	}

	s.audit.Record(ctx, actorID, model.ActionSeedRoles, "role", "", map[string]int{"roles": len(defaultRoles)}, "")
	return &SeedResult{Skipped: false}, nil
}

// resolvePermissionIDs keeps only ids present in the catalog; unknown ids are
// skipped with a log, not an error.
func (s *roleService) resolvePermissionIDs(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.repo.FindPermissionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[uint]bool, len(found))
	resolved := make([]uint, 0, len(found))
	for _, p := range found {
		known[p.ID] = true
		resolved = append(resolved, p.ID)
	}
	for _, id := range ids {
		if !known[id] {
			logrus.WithField("permission_id", id).Warn("skipping unknown permission id")
		}
	}
	return resolved, nil
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	return RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
	}
}
