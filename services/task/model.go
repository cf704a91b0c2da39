package task

import (
	"time"

	"gorm.io/datatypes"
)

// SweepRun is an execution record for one balance reconciliation sweep.
type SweepRun struct {
	ID          string         `gorm:"column:id;primaryKey"`
	Status      string         `gorm:"column:status;default:'pending'"` // pending|running|success|failed
	Members     int64          `gorm:"column:members"`
	ErrorMsg    string         `gorm:"column:error_msg"`
	StartedAt   *time.Time     `gorm:"column:started_at"`
	CompletedAt *time.Time     `gorm:"column:completed_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	Metadata    datatypes.JSON `gorm:"column:metadata"`
}

func (SweepRun) TableName() string { return "sweep_runs" }
