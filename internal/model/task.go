package model

import "time"

// Priority of a task. Medium is the default for new tasks.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// DefaultCategory is offered to callers that leave the category unset.
// The store itself does not enforce it.
const DefaultCategory = "Uncategorized"

// Task represents a single item in the planner. A task either carries a
// plain due date (ScheduledDate) or a time-block (StartTime/EndTime pair
// with IsTimeBlocked set); both styles are orthogonal to completion.
type Task struct {
	ID            uint   `gorm:"primaryKey"`
	Title         string `gorm:"not null"`
	Description   string
	Category      string     `gorm:"index"`
	ScheduledDate *time.Time `gorm:"index"`
	StartTime     *time.Time
	EndTime       *time.Time
	IsTimeBlocked bool `gorm:"default:false"`
	IsCompleted   bool `gorm:"default:false"`
	Color         string
	Priority      Priority `gorm:"default:'medium'"`
	CreatedAt     time.Time
	Subtasks      []Subtask `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

func (Task) TableName() string {
	return "tasks"
}

// DurationMinutes returns the length of the time-block in minutes,
// or 0 when the task is not time-blocked.
func (t Task) DurationMinutes() int {
	if !t.IsTimeBlocked || t.StartTime == nil || t.EndTime == nil {
		return 0
	}
	return int(t.EndTime.Sub(*t.StartTime).Minutes())
}
