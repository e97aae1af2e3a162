package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"backend/internal/apperrors"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- DTOs ---

type AssignmentResponse struct {
	ID          uint              `json:"id"`
	Institution model.Institution `json:"institution"`
	Role        RoleResponse      `json:"role"`
	CreatedAt   string            `json:"created_at"`
}

// RBACService is the authorization engine plus the assignment ledger.
//
// The four decision operations (HasPermission, CanAccessInstitution,
// GetUserRoleForInstitution, GetUserInstitutions) are fail-closed: any
// storage failure is logged and converted to deny/empty/nil, never
// propagated. A check that cannot prove access must deny it.
type RBACService interface {
	HasPermission(ctx context.Context, userID uint, permissionCode string) bool
	IsGlobalAdmin(ctx context.Context, userID uint) bool
	CanAccessInstitution(ctx context.Context, userID, institutionID uint) bool
	GetUserRoleForInstitution(ctx context.Context, userID, institutionID uint) *RoleResponse
	GetUserInstitutions(ctx context.Context, userID uint) []model.Institution

	Assign(ctx context.Context, actorID *uint, userID, institutionID, roleID uint) error
	Remove(ctx context.Context, actorID *uint, userID, institutionID uint) error
	ListForUser(ctx context.Context, userID uint) ([]AssignmentResponse, error)
	ListForInstitution(ctx context.Context, institutionID uint) ([]model.Assignment, error)
}

type rbacService struct {
	users        repository.UserRepository
	assignments  repository.AssignmentRepository
	roles        repository.RoleRepository
	institutions repository.InstitutionRepository
	txManager    repository.TransactionManager
	audit        AuditService
}

// NewRBACService wires the engine over its read-only stores. It owns no
// persisted state of its own.
func NewRBACService(
	users repository.UserRepository,
	assignments repository.AssignmentRepository,
	roles repository.RoleRepository,
	institutions repository.InstitutionRepository,
	txManager repository.TransactionManager,
	audit AuditService,
) RBACService {
	return &rbacService{
		users:        users,
		assignments:  assignments,
		roles:        roles,
		institutions: institutions,
		txManager:    txManager,
		audit:        audit,
	}
}

// --- Decision operations ---

// HasPermission checks whether the user can exercise the named capability.
// Admins short-circuit to allow; everyone else gets the union of permission
// codes reachable through their active assignments.
func (s *rbacService) HasPermission(ctx context.Context, userID uint, permissionCode string) bool {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithField("user_id", userID).Warn("permission check failed, denying")
		}
		return false
	}
	if !user.IsActive {
		return false
	}
	if user.IsAdmin() {
		return true
	}

	codes, err := s.assignments.ActivePermissionCodes(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("permission lookup failed, denying")
		return false
	}
	for _, c := range codes {
		if c == permissionCode {
			return true
		}
	}
	return false
}

// IsGlobalAdmin reports whether the user holds the administrator global role
// right now. Admin-gated routes call this on every request instead of
// trusting the role claim baked into a token, so a demotion or deactivation
// applies before the token expires.
func (s *rbacService) IsGlobalAdmin(ctx context.Context, userID uint) bool {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithField("user_id", userID).Warn("admin check failed, denying")
		}
		return false
	}
	return user.IsActive && user.IsAdmin()
}

// CanAccessInstitution reports whether the user may see the institution at
// all. Any active assignment is sufficient; role nuance does not matter here.
func (s *rbacService) CanAccessInstitution(ctx context.Context, userID, institutionID uint) bool {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithField("user_id", userID).Warn("institution access check failed, denying")
		}
		return false
	}
	if !user.IsActive {
		return false
	}
	if user.IsAdmin() {
		return true
	}

	_, err = s.assignments.ActiveForPair(ctx, userID, institutionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithField("user_id", userID).Warn("assignment lookup failed, denying")
		}
		return false
	}
	return true
}

// GetUserRoleForInstitution returns the role bound to the active assignment
// for the pair, or nil. If the one-active-row invariant was ever violated,
// the most recently created active row wins.
func (s *rbacService) GetUserRoleForInstitution(ctx context.Context, userID, institutionID uint) *RoleResponse {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithField("user_id", userID).Warn("role lookup failed")
		}
		return nil
	}
	if !user.IsActive {
		return nil
	}

	a, err := s.assignments.ActiveForPair(ctx, userID, institutionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithField("user_id", userID).Warn("role lookup failed")
		}
		return nil
	}
	resp := toRoleResponse(a.Role)
	return &resp
}

// GetUserInstitutions lists what the user can see: admins get the full
// directory, everyone else the distinct institutions of their active
// assignments.
func (s *rbacService) GetUserInstitutions(ctx context.Context, userID uint) []model.Institution {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithField("user_id", userID).Warn("institution list failed, returning empty")
		}
		return []model.Institution{}
	}

	if user.IsActive && user.IsAdmin() {
		insts, err := s.institutions.ListAll(ctx)
		if err != nil {
			logrus.WithError(err).Warn("institution list failed, returning empty")
			return []model.Institution{}
		}
		return insts
	}
	if !user.IsActive {
		return []model.Institution{}
	}

	rows, err := s.assignments.ListActiveForUser(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("assignment list failed, returning empty")
		return []model.Institution{}
	}

	seen := make(map[uint]bool, len(rows))
	insts := make([]model.Institution, 0, len(rows))
	for _, a := range rows {
		if seen[a.InstitutionID] {
			continue
		}
		seen[a.InstitutionID] = true
		insts = append(insts, a.Institution)
	}
	return insts
}

// --- Ledger mutations ---

// Assign records an active (user, institution, role) row. Any prior active
// rows for the pair are deactivated in the same transaction so at most one
// role resolves per (user, institution).
func (s *rbacService) Assign(ctx context.Context, actorID *uint, userID, institutionID, roleID uint) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return mapLookupErr(err, "user", userID)
	}
	if _, err := s.institutions.GetByID(ctx, institutionID); err != nil {
		return mapLookupErr(err, "institution", institutionID)
	}
	if _, err := s.roles.FindByID(ctx, roleID); err != nil {
		return mapLookupErr(err, "role", roleID)
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.assignments.DeactivatePair(txCtx, userID, institutionID); err != nil {
			return err
		}
		return s.assignments.Create(txCtx, &model.Assignment{
			UserID:        userID,
			InstitutionID: institutionID,
			RoleID:        roleID,
			IsActive:      true,
		})
	})
	if err != nil {
		return fmt.Errorf("%w: assign user %d to institution %d: %v", apperrors.ErrStorage, userID, institutionID, err)
	}

	s.audit.Record(ctx, actorID, model.ActionAssignUser, "assignment", strconv.FormatUint(uint64(userID), 10),
		map[string]uint{"user_id": userID, "institution_id": institutionID, "role_id": roleID}, "")
	return nil
}

// Remove revokes access by flipping IsActive off on every row for the pair.
// Rows stay in place for audit.
func (s *rbacService) Remove(ctx context.Context, actorID *uint, userID, institutionID uint) error {
	if err := s.assignments.DeactivatePair(ctx, userID, institutionID); err != nil {
		return fmt.Errorf("%w: remove user %d from institution %d: %v", apperrors.ErrStorage, userID, institutionID, err)
	}

	s.audit.Record(ctx, actorID, model.ActionRemoveUser, "assignment", strconv.FormatUint(uint64(userID), 10),
		map[string]uint{"user_id": userID, "institution_id": institutionID}, "")
	return nil
}

func (s *rbacService) ListForUser(ctx context.Context, userID uint) ([]AssignmentResponse, error) {
	rows, err := s.assignments.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list assignments for user %d: %v", apperrors.ErrStorage, userID, err)
	}

	res := make([]AssignmentResponse, 0, len(rows))
	for _, a := range rows {
		res = append(res, AssignmentResponse{
			ID:          a.ID,
			Institution: a.Institution,
			Role:        toRoleResponse(a.Role),
			CreatedAt:   a.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, nil
}

func (s *rbacService) ListForInstitution(ctx context.Context, institutionID uint) ([]model.Assignment, error) {
	rows, err := s.assignments.ListActiveForInstitution(ctx, institutionID)
	if err != nil {
		return nil, fmt.Errorf("%w: list assignments for institution %d: %v", apperrors.ErrStorage, institutionID, err)
	}
	return rows, nil
}

func mapLookupErr(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", apperrors.ErrNotFound, entity, id)
	}
	return fmt.Errorf("%w: look up %s %d: %v", apperrors.ErrStorage, entity, id, err)
}
