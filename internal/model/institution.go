package model

import "time"

// Institution status enum constants
const (
	InstitutionStatusActive   = "Active"
	InstitutionStatusInactive = "Inactive"
	InstitutionStatusPending  = "Pending"
)

// Institution represents one organizational unit tracked by the dashboard
type Institution struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"` // stable external identifier
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Category  string    `gorm:"type:varchar(100);not null" json:"category"`
	Owner     string    `gorm:"type:varchar(255);not null" json:"owner"` // owning contact
	Status    string    `gorm:"type:varchar(20);not null;default:'Active'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValidInstitutionStatus reports whether s is one of the three allowed states.
func ValidInstitutionStatus(s string) bool {
	return s == InstitutionStatusActive || s == InstitutionStatusInactive || s == InstitutionStatusPending
}
