package model

import "time"

// Strategic goal identifiers (the four system-wide goals)
const (
	GoalA = "A"
	GoalB = "B"
	GoalC = "C"
	GoalD = "D"
)

// Initiative status enum constants
const (
	InitiativeNotStarted = "Not Started"
	InitiativeInProgress = "In Progress"
	InitiativeComplete   = "Complete"
	InitiativeAtRisk     = "At Risk"
)

// Initiative is one strategic initiative under a goal, shown on the Gantt view
type Initiative struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"` // "init-<uuid>"
	Goal        string    `gorm:"type:varchar(1);not null;index" json:"goal"`        // A, B, C, D
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Owner       string    `gorm:"type:varchar(255)" json:"owner"`
	Status      string    `gorm:"type:varchar(20);not null;default:'Not Started'" json:"status"`
	SubBoxes    []SubBox  `gorm:"foreignKey:InitiativeID;constraint:OnDelete:CASCADE" json:"sub_boxes,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SubBox is a tracked work item under an initiative
type SubBox struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Code          string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"` // "subbox-<uuid>"
	InitiativeID  uint       `gorm:"not null;index" json:"initiative_id"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`
	Status        string     `gorm:"type:varchar(20);not null;default:'Not Started'" json:"status"`
	Notes         string     `gorm:"type:text" json:"notes"`
	DocumentURL   string     `gorm:"type:text" json:"document_url"`
	DocumentName  string     `gorm:"type:varchar(255)" json:"document_name"`
	Owner         string     `gorm:"type:varchar(255)" json:"owner"`
	DueDate       *time.Time `json:"due_date"`
	CompletedDate *time.Time `json:"completed_date"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValidGoal reports whether g names one of the four strategic goals.
func ValidGoal(g string) bool {
	return g == GoalA || g == GoalB || g == GoalC || g == GoalD
}

// ValidInitiativeStatus reports whether s is an allowed initiative/sub-box state.
func ValidInitiativeStatus(s string) bool {
	switch s {
	case InitiativeNotStarted, InitiativeInProgress, InitiativeComplete, InitiativeAtRisk:
		return true
	}
	return false
}
