package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fumio65/tick/internal/model"
	"github.com/fumio65/tick/internal/watch"
)

// ErrParentTaskNotFound rejects a subtask whose parent task does not
// exist, before anything reaches durable storage.
var ErrParentTaskNotFound = errors.New("parent task not found")

const bySubtaskOrder = "order_index ASC, created_at ASC"

// SubtaskStore handles durable CRUD and queries for subtasks.
type SubtaskStore struct {
	db   *gorm.DB
	hubs *Hubs
}

func NewSubtaskStore(db *gorm.DB, hubs *Hubs) *SubtaskStore {
	return &SubtaskStore{db: db, hubs: hubs}
}

// Insert persists a subtask with the same identity semantics as task
// insert: zero ID gets a fresh one, existing ID replaces the row.
func (s *SubtaskStore) Insert(ctx context.Context, subtask *model.Subtask) (uint, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireParent(tx, subtask.TaskID); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
			Create(subtask).Error
	})
	if err != nil {
		return 0, fmt.Errorf("insert subtask: %w", err)
	}
	s.hubs.Subtasks.Notify()
	return subtask.ID, nil
}

// InsertMany persists subtasks as one batch; every parent must exist or
// the whole batch is rejected.
func (s *SubtaskStore) InsertMany(ctx context.Context, subtasks []model.Subtask) error {
	if len(subtasks) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := make(map[uint]struct{})
		for _, st := range subtasks {
			if _, ok := seen[st.TaskID]; ok {
				continue
			}
			seen[st.TaskID] = struct{}{}
			if err := requireParent(tx, st.TaskID); err != nil {
				return err
			}
		}
		return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
			Create(&subtasks).Error
	})
	if err != nil {
		return fmt.Errorf("insert subtasks: %w", err)
	}
	s.hubs.Subtasks.Notify()
	return nil
}

func requireParent(tx *gorm.DB, taskID uint) error {
	var n int64
	if err := tx.Model(&model.Task{}).Where("id = ?", taskID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrParentTaskNotFound
	}
	return nil
}

// Update replaces the row matching subtask.ID; missing IDs are a silent
// no-op, CreatedAt stays untouched.
func (s *SubtaskStore) Update(ctx context.Context, subtask *model.Subtask) error {
	res := s.db.WithContext(ctx).
		Model(&model.Subtask{}).
		Where("id = ?", subtask.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(subtask)
	if res.Error != nil {
		return fmt.Errorf("update subtask: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.hubs.Subtasks.Notify()
	}
	return nil
}

func (s *SubtaskStore) Delete(ctx context.Context, subtask *model.Subtask) error {
	return s.DeleteByID(ctx, subtask.ID)
}

func (s *SubtaskStore) DeleteByID(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&model.Subtask{}, id).Error; err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	s.hubs.Subtasks.Notify()
	return nil
}

// DeleteForTask removes every subtask of the given task. The task store
// uses the same statement inside its cascade transaction.
func (s *SubtaskStore) DeleteForTask(ctx context.Context, taskID uint) error {
	if err := s.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&model.Subtask{}).Error; err != nil {
		return fmt.Errorf("delete subtasks of task %d: %w", taskID, err)
	}
	s.hubs.Subtasks.Notify()
	return nil
}

// GetForTask returns the task's subtasks in user-defined order.
func (s *SubtaskStore) GetForTask(ctx context.Context, taskID uint) ([]model.Subtask, error) {
	var subtasks []model.Subtask
	err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order(bySubtaskOrder).
		Find(&subtasks).Error
	if err != nil {
		return nil, fmt.Errorf("list subtasks of task %d: %w", taskID, err)
	}
	return subtasks, nil
}

// WatchForTask is the live variant of GetForTask.
func (s *SubtaskStore) WatchForTask(ctx context.Context, taskID uint) (<-chan []model.Subtask, error) {
	return watch.Live(ctx, func(ctx context.Context) ([]model.Subtask, error) {
		return s.GetForTask(ctx, taskID)
	}, s.hubs.Subtasks)
}

// SetCompletion flips the completion flag in place. Missing IDs are a
// no-op.
func (s *SubtaskStore) SetCompletion(ctx context.Context, id uint, completed bool) error {
	res := s.db.WithContext(ctx).Model(&model.Subtask{}).Where("id = ?", id).
		Update("is_completed", completed)
	if res.Error != nil {
		return fmt.Errorf("set subtask completion: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.hubs.Subtasks.Notify()
	}
	return nil
}

// SetOrder moves the subtask to a new position in its checklist.
func (s *SubtaskStore) SetOrder(ctx context.Context, id uint, index int) error {
	res := s.db.WithContext(ctx).Model(&model.Subtask{}).Where("id = ?", id).
		Update("order_index", index)
	if res.Error != nil {
		return fmt.Errorf("set subtask order: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.hubs.Subtasks.Notify()
	}
	return nil
}

// CompletedCount and TotalCount back progress indicators ("3/5 done");
// point-in-time reads, not live.

func (s *SubtaskStore) CompletedCount(ctx context.Context, taskID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Subtask{}).
		Where("task_id = ? AND is_completed = ?", taskID, true).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count completed subtasks: %w", err)
	}
	return n, nil
}

func (s *SubtaskStore) TotalCount(ctx context.Context, taskID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Subtask{}).
		Where("task_id = ?", taskID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count subtasks: %w", err)
	}
	return n, nil
}
