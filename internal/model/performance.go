package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Performance status enum constants (traffic-light health classification)
const (
	StatusGreen  = "Green"
	StatusYellow = "Yellow"
	StatusRed    = "Red"
)

// PerformanceVariable is one of the metrics tracked per institution
type PerformanceVariable struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Category    string    `gorm:"type:varchar(100);not null" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	Unit        string    `gorm:"type:varchar(50)" json:"unit"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PerformanceRecord is one month of data for an (institution, variable) pair
type PerformanceRecord struct {
	ID            uint                `gorm:"primaryKey;autoIncrement" json:"id"`
	InstitutionID uint                `gorm:"not null;index:idx_perf_institution_period" json:"institution_id"`
	Institution   Institution         `gorm:"foreignKey:InstitutionID" json:"-"`
	VariableID    uint                `gorm:"not null;index" json:"variable_id"`
	Variable      PerformanceVariable `gorm:"foreignKey:VariableID" json:"-"`
	Month         string              `gorm:"type:varchar(20);not null;index:idx_perf_institution_period" json:"month"`
	Year          int                 `gorm:"not null;index:idx_perf_institution_period" json:"year"`
	BaselineValue decimal.Decimal     `gorm:"type:numeric(18,4)" json:"baseline_value"`
	ActualValue   decimal.Decimal     `gorm:"type:numeric(18,4)" json:"actual_value"`
	Status        string              `gorm:"type:varchar(10);not null;index" json:"status"` // Green, Yellow, Red
	Notes         string              `gorm:"type:text" json:"notes"`
	SubmittedBy   *uint               `json:"submitted_by"`
	SubmittedAt   *time.Time          `json:"submitted_at"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// StatusCount is one bucket of the dashboard traffic-light rollup
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// InstitutionHealth aggregates record statuses for a single institution
type InstitutionHealth struct {
	InstitutionID   uint   `json:"institution_id"`
	InstitutionName string `json:"institution_name"`
	Green           int64  `json:"green"`
	Yellow          int64  `json:"yellow"`
	Red             int64  `json:"red"`
}
