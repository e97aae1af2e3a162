package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"backend/internal/apperrors"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for request validation
type RegisterUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserResponse returns User data without exposing the password hash
type UserResponse struct {
	ID           uint   `json:"id"`
	OpenID       string `json:"open_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	IsActive     bool   `json:"is_active"`
	LastSignedIn string `json:"last_signed_in"`
	CreatedAt    string `json:"created_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Register(ctx context.Context, req RegisterUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenPairResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPairResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, id uint) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actorID *uint, id uint, req UpdateUserRequest) (*UserResponse, error)
	DeactivateUser(ctx context.Context, actorID *uint, id uint) error
}

type userService struct {
	repo      repository.UserRepository
	tokens    repository.TokenRepository
	audit     AuditService
	jwtSecret []byte
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, tokens repository.TokenRepository, audit AuditService, jwtSecret []byte) UserService {
	return &userService{repo: repo, tokens: tokens, audit: audit, jwtSecret: jwtSecret}
}

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

func mapToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:           user.ID,
		OpenID:       user.OpenID,
		Username:     user.Username,
		Email:        user.Email,
		Name:         user.Name,
		Role:         user.Role,
		IsActive:     user.IsActive,
		LastSignedIn: user.LastSignedIn.Format(time.RFC3339),
		CreatedAt:    user.CreatedAt.Format(time.RFC3339),
	}
}

// Register creates a local-credential account with the standard global role.
// Elevation to admin happens only through an administrator's UpdateUser.
func (s *userService) Register(ctx context.Context, req RegisterUserRequest) (*UserResponse, error) {
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: username '%s' already exists", apperrors.ErrValidation, req.Username)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: check username: %v", apperrors.ErrStorage, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password", apperrors.ErrValidation)
	}

	user := &model.User{
		OpenID:       "local:" + req.Username,
		Username:     req.Username,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hashed),
		LoginMethod:  "local",
		Role:         model.GlobalRoleUser,
		IsActive:     true,
		LastSignedIn: time.Now(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: create user: %v", apperrors.ErrStorage, err)
	}

	return mapToUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenPairResponse, error) {
	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid username or password", apperrors.ErrValidation)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", apperrors.ErrForbidden)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid username or password", apperrors.ErrValidation)
	}

	user.LastSignedIn = time.Now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: update last sign-in: %v", apperrors.ErrStorage, err)
	}

	return s.issueTokenPair(ctx, user)
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenPairResponse, error) {
	stored, err := s.tokens.GetByToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", apperrors.ErrValidation)
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.tokens.Delete(ctx, refreshToken)
		return nil, fmt.Errorf("%w: refresh token expired", apperrors.ErrValidation)
	}

	user, err := s.repo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %d", apperrors.ErrNotFound, stored.UserID)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", apperrors.ErrForbidden)
	}

	// Rotate: old token is single-use.
	if err := s.tokens.Delete(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("%w: rotate refresh token: %v", apperrors.ErrStorage, err)
	}

	return s.issueTokenPair(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokens.Delete(ctx, refreshToken)
}

func (s *userService) issueTokenPair(ctx context.Context, user *model.User) (*TokenPairResponse, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10),
		"role": user.Role,
		"exp":  time.Now().Add(accessTokenTTL).Unix(),
	})

	accessToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %v", apperrors.ErrStorage, err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("%w: generate refresh token: %v", apperrors.ErrStorage, err)
	}
	refresh := hex.EncodeToString(raw)

	err = s.tokens.Create(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: store refresh token: %v", apperrors.ErrStorage, err)
	}

	return &TokenPairResponse{AccessToken: accessToken, RefreshToken: refresh}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get user %d: %v", apperrors.ErrStorage, id, err)
	}
	return mapToUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list users: %v", apperrors.ErrStorage, err)
	}

	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, *mapToUserResponse(&u))
	}

	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actorID *uint, id uint, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get user %d: %v", apperrors.ErrStorage, id, err)
	}

	if req.Role != nil {
		if *req.Role != model.GlobalRoleUser && *req.Role != model.GlobalRoleAdmin {
			return nil, fmt.Errorf("%w: invalid role '%s'", apperrors.ErrValidation, *req.Role)
		}
		user.Role = *req.Role
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: update user %d: %v", apperrors.ErrStorage, id, err)
	}

	s.audit.Record(ctx, actorID, model.ActionUpdateUser, "user", strconv.FormatUint(uint64(id), 10),
		map[string]any{"role": req.Role, "is_active": req.IsActive}, "")

	return mapToUserResponse(user), nil
}

// DeactivateUser soft-disables the account; user rows are never hard-deleted.
func (s *userService) DeactivateUser(ctx context.Context, actorID *uint, id uint) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %d", apperrors.ErrNotFound, id)
		}
		return fmt.Errorf("%w: get user %d: %v", apperrors.ErrStorage, id, err)
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("%w: deactivate user %d: %v", apperrors.ErrStorage, id, err)
	}

	s.audit.Record(ctx, actorID, model.ActionDeactivateUser, "user", strconv.FormatUint(uint64(id), 10), nil, "")
	return nil
}
