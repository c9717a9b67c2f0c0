package entity

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobType identifies which execution strategy handles a job.
type JobType string

const (
	JobTypeHTTP           JobType = "HTTP"
	JobTypeSignalDispatch JobType = "SIGNAL_DISPATCH"
	JobTypeOutcomeScan    JobType = "OUTCOME_SCAN"
)

// ExecutionStatus is the lifecycle state of one task execution.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "RUNNING"
	StatusCompleted ExecutionStatus = "COMPLETED"
	StatusFailed    ExecutionStatus = "FAILED"
)

// Job is a schedulable unit of work.
type Job struct {
	ID          uint           `gorm:"primaryKey"`
	Name        string         `gorm:"not null"`
	Description string         `gorm:""`
	Type        JobType        `gorm:"not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb"`
	RetryPolicy datatypes.JSON `gorm:"type:jsonb"`
	Timeout     int            `gorm:"not null;default:60"` // seconds
	Schedules   []TaskSchedule `gorm:"foreignKey:JobID"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (Job) TableName() string {
	return "jobs"
}

// TaskSchedule is a cron schedule attached to a job.
type TaskSchedule struct {
	ID             uint         `gorm:"primaryKey"`
	JobID          uint         `gorm:"not null;index"`
	CronExpression string       `gorm:"not null"`
	IsActive       bool         `gorm:"not null;default:true"`
	NextExecution  sql.NullTime `gorm:""`
	LastExecution  sql.NullTime `gorm:""`
	CreatedAt      time.Time    `gorm:"autoCreateTime"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime"`
}

func (TaskSchedule) TableName() string {
	return "task_schedules"
}

// TaskExecutionHistory records one attempt to run a scheduled job.
type TaskExecutionHistory struct {
	ID           int64           `gorm:"primaryKey" json:"id"`
	JobID        uint            `gorm:"not null;index" json:"job_id"`
	ScheduleID   uint            `gorm:"not null" json:"schedule_id"`
	Status       ExecutionStatus `gorm:"not null" json:"status"`
	Output       sql.NullString  `gorm:"" json:"output"`
	ErrorMessage sql.NullString  `gorm:"" json:"error_message"`
	StartedAt    time.Time       `gorm:"not null" json:"started_at"`
	CompletedAt  sql.NullTime    `gorm:"" json:"completed_at"`
}

func (TaskExecutionHistory) TableName() string {
	return "task_execution_histories"
}
