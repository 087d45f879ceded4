package model

import "time"

// Subtask is a checklist item owned by exactly one task. Its lifetime is
// bounded by the parent: deleting the task removes its subtasks.
type Subtask struct {
	ID          uint   `gorm:"primaryKey"`
	TaskID      uint   `gorm:"column:task_id;index;not null"`
	Title       string `gorm:"not null"`
	IsCompleted bool   `gorm:"default:false"`
	OrderIndex  int    `gorm:"default:0"`
	CreatedAt   time.Time
}

func (Subtask) TableName() string {
	return "subtasks"
}

// TaskWithSubtasks is a read-only projection computed at query time:
// one task plus its subtasks ordered by OrderIndex, then CreatedAt.
type TaskWithSubtasks struct {
	Task     Task
	Subtasks []Subtask
}
