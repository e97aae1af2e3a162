package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateRole       = "CREATE_ROLE"
	ActionUpdateRole       = "UPDATE_ROLE"
	ActionDeleteRole       = "DELETE_ROLE"
	ActionSeedRoles        = "SEED_ROLES"
	ActionAssignUser       = "ASSIGN_USER_TO_INSTITUTION"
	ActionRemoveUser       = "REMOVE_USER_FROM_INSTITUTION"
	ActionUpdateUser       = "UPDATE_USER"
	ActionDeactivateUser   = "DEACTIVATE_USER"
	ActionCreateInstitute  = "CREATE_INSTITUTION"
	ActionUpdateInstitute  = "UPDATE_INSTITUTION"
	ActionSubmitPerfRecord = "SUBMIT_PERFORMANCE_RECORD"
	ActionExportReport     = "EXPORT_REPORT"
	ActionSmartsheetSync   = "SMARTSHEET_SYNC"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"` // Nullable for system-originated entries
	User       *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string    `gorm:"type:varchar(100);not null" json:"entity_type"`
	EntityID   string    `gorm:"type:varchar(64);index" json:"entity_id"`
	Details    string    `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	IPAddress  string    `gorm:"type:varchar(45)" json:"ip_address"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
