package model

import (
	"time"

	"github.com/google/uuid"
)

// Global role constants — coarse, institution-independent privilege.
// Scoped access is granted separately through Assignment rows.
const (
	GlobalRoleUser  = "user"
	GlobalRoleAdmin = "admin"
)

// User represents the central user entity for logic and database structure
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OpenID       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"open_id"` // external auth identifier
	Username     string    `gorm:"type:varchar(255);uniqueIndex" json:"username"`
	Email        string    `gorm:"type:varchar(320)" json:"email"`
	Name         string    `gorm:"type:varchar(255)" json:"name"`
	PasswordHash string    `gorm:"type:text" json:"-"` // Omit hash from JSON requests/responses
	LoginMethod  string    `gorm:"type:varchar(64)" json:"login_method"`
	Role         string    `gorm:"type:varchar(20);not null;default:'user'" json:"role"` // user, admin
	IsActive     bool      `gorm:"default:true;not null" json:"is_active"`
	LastSignedIn time.Time `gorm:"autoCreateTime" json:"last_signed_in"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsAdmin reports whether the user carries the global administrator flag.
func (u *User) IsAdmin() bool {
	return u.Role == GlobalRoleAdmin
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
