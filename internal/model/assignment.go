package model

import "time"

// Assignment binds one user to one institution under one role.
// Rows are never hard-deleted: revocation flips IsActive to false so the
// ledger stays auditable. At most one row per (user, institution) should be
// active at a time — Assign supersedes older active rows.
type Assignment struct {
	ID            uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint        `gorm:"not null;index:idx_assignment_user_institution" json:"user_id"`
	User          User        `gorm:"foreignKey:UserID" json:"-"`
	InstitutionID uint        `gorm:"not null;index:idx_assignment_user_institution" json:"institution_id"`
	Institution   Institution `gorm:"foreignKey:InstitutionID" json:"institution"`
	RoleID        uint        `gorm:"not null;index" json:"role_id"`
	Role          Role        `gorm:"foreignKey:RoleID" json:"role"`
	IsActive      bool        `gorm:"default:true;not null;index" json:"is_active"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}
