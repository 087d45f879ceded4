package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fumio65/tick/internal/model"
	"github.com/fumio65/tick/internal/schedule"
	"github.com/fumio65/tick/internal/watch"
)

// Null scheduled dates sort after dated tasks; pinned policy for every
// ascending query.
const byScheduledDate = "scheduled_date NULLS LAST, created_at ASC"

// Hubs groups the per-table mutation hubs. The task store needs both
// because deleting a task cascades into subtasks.
type Hubs struct {
	Tasks    *watch.Hub
	Subtasks *watch.Hub
}

func NewHubs() *Hubs {
	return &Hubs{Tasks: watch.NewHub(), Subtasks: watch.NewHub()}
}

// TaskStore handles durable CRUD and queries for tasks.
type TaskStore struct {
	db   *gorm.DB
	hubs *Hubs
}

func NewTaskStore(db *gorm.DB, hubs *Hubs) *TaskStore {
	return &TaskStore{db: db, hubs: hubs}
}

// Insert persists a task. A zero ID gets a fresh auto-incremented one;
// a set ID that already exists replaces the stored row. Returns the
// resolved ID.
func (s *TaskStore) Insert(ctx context.Context, task *model.Task) (uint, error) {
	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(task).Error
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	s.hubs.Tasks.Notify()
	return task.ID, nil
}

// InsertMany persists tasks as one logical batch with per-item Insert
// semantics.
func (s *TaskStore) InsertMany(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
			Create(&tasks).Error
	})
	if err != nil {
		return fmt.Errorf("insert tasks: %w", err)
	}
	s.hubs.Tasks.Notify()
	return nil
}

// Update replaces the full row matching task.ID, keeping CreatedAt
// untouched. Updating a missing ID is a silent no-op; callers that need
// confirmation look the task up first.
func (s *TaskStore) Update(ctx context.Context, task *model.Task) error {
	res := s.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("id = ?", task.ID).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(task)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.hubs.Tasks.Notify()
	}
	return nil
}

// Delete removes a task together with all of its subtasks. The cascade
// runs in one transaction: a reader never observes the parent gone while
// children remain.
func (s *TaskStore) Delete(ctx context.Context, task *model.Task) error {
	return s.DeleteByID(ctx, task.ID)
}

func (s *TaskStore) DeleteByID(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.Subtask{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Task{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.hubs.Tasks.Notify()
	s.hubs.Subtasks.Notify()
	return nil
}

// DeleteAllCompleted removes every completed task and their subtasks.
func (s *TaskStore) DeleteAllCompleted(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		completed := tx.Model(&model.Task{}).Select("id").Where("is_completed = ?", true)
		if err := tx.Where("task_id IN (?)", completed).Delete(&model.Subtask{}).Error; err != nil {
			return err
		}
		return tx.Where("is_completed = ?", true).Delete(&model.Task{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete completed tasks: %w", err)
	}
	s.hubs.Tasks.Notify()
	s.hubs.Subtasks.Notify()
	return nil
}

// DeleteAll empties both tables.
func (s *TaskStore) DeleteAll(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Subtask{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&model.Task{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete all tasks: %w", err)
	}
	s.hubs.Tasks.Notify()
	s.hubs.Subtasks.Notify()
	return nil
}

// GetByID returns the task, or nil when absent.
func (s *TaskStore) GetByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	err := s.db.WithContext(ctx).First(&task, id).Error
	switch {
	case err == nil:
		return &task, nil
	case err == gorm.ErrRecordNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

// SetCompletion flips the completion flag in place without loading the
// full record. Missing IDs are a no-op.
func (s *TaskStore) SetCompletion(ctx context.Context, id uint, completed bool) error {
	res := s.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).
		Update("is_completed", completed)
	if res.Error != nil {
		return fmt.Errorf("set completion: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.hubs.Tasks.Notify()
	}
	return nil
}

// SetPriority updates the priority in place. Missing IDs are a no-op.
func (s *TaskStore) SetPriority(ctx context.Context, id uint, priority model.Priority) error {
	res := s.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).
		Update("priority", priority)
	if res.Error != nil {
		return fmt.Errorf("set priority: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.hubs.Tasks.Notify()
	}
	return nil
}

// All returns every task ordered by scheduled date ascending.
func (s *TaskStore) All(ctx context.Context) ([]model.Task, error) {
	return s.find(s.db.WithContext(ctx).Order(byScheduledDate))
}

// Active returns incomplete tasks ordered by scheduled date ascending.
func (s *TaskStore) Active(ctx context.Context) ([]model.Task, error) {
	return s.find(s.db.WithContext(ctx).
		Where("is_completed = ?", false).
		Order(byScheduledDate))
}

// Completed returns finished tasks, most recently scheduled first.
func (s *TaskStore) Completed(ctx context.Context) ([]model.Task, error) {
	return s.find(s.db.WithContext(ctx).
		Where("is_completed = ?", true).
		Order("scheduled_date DESC, created_at DESC"))
}

func (s *TaskStore) ByCategory(ctx context.Context, category string) ([]model.Task, error) {
	return s.find(s.db.WithContext(ctx).
		Where("category = ?", category).
		Order(byScheduledDate))
}

func (s *TaskStore) ByPriority(ctx context.Context, priority model.Priority) ([]model.Task, error) {
	return s.find(s.db.WithContext(ctx).
		Where("priority = ?", priority).
		Order(byScheduledDate))
}

// Upcoming returns incomplete tasks due at or before the given instant,
// i.e. due or overdue.
func (s *TaskStore) Upcoming(ctx context.Context, until time.Time) ([]model.Task, error) {
	return s.find(s.db.WithContext(ctx).
		Where("is_completed = ? AND scheduled_date IS NOT NULL AND scheduled_date <= ?", false, until).
		Order(byScheduledDate))
}

// likeEscaper neutralizes LIKE metacharacters so the query is matched
// as a literal substring.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches the query case-insensitively against title or
// description.
func (s *TaskStore) Search(ctx context.Context, query string) ([]model.Task, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	return s.find(s.db.WithContext(ctx).
		Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order(byScheduledDate))
}

// TimeBlockedOn returns time-blocked tasks whose start falls on the same
// local calendar day as the given instant, ordered by start time.
func (s *TaskStore) TimeBlockedOn(ctx context.Context, day time.Time) ([]model.Task, error) {
	from, to := schedule.DayRange(day)
	return s.find(s.db.WithContext(ctx).
		Where("is_time_blocked = ? AND start_time >= ? AND start_time < ?", true, from, to).
		Order("start_time ASC"))
}

// ActiveTimeBlocked returns every incomplete time-blocked task ordered
// by start time; this drives the timeline view and conflict checks.
func (s *TaskStore) ActiveTimeBlocked(ctx context.Context) ([]model.Task, error) {
	return s.find(s.db.WithContext(ctx).
		Where("is_time_blocked = ? AND is_completed = ?", true, false).
		Order("start_time ASC"))
}

func (s *TaskStore) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Task{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func (s *TaskStore) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("is_completed = ?", false).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count active tasks: %w", err)
	}
	return n, nil
}

func (s *TaskStore) find(tx *gorm.DB) ([]model.Task, error) {
	var tasks []model.Task
	if err := tx.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Watch variants deliver the current snapshot immediately and a fresh
// one after every task mutation.

func (s *TaskStore) WatchAll(ctx context.Context) (<-chan []model.Task, error) {
	return watch.Live(ctx, s.All, s.hubs.Tasks)
}

func (s *TaskStore) WatchActive(ctx context.Context) (<-chan []model.Task, error) {
	return watch.Live(ctx, s.Active, s.hubs.Tasks)
}

func (s *TaskStore) WatchCompleted(ctx context.Context) (<-chan []model.Task, error) {
	return watch.Live(ctx, s.Completed, s.hubs.Tasks)
}

func (s *TaskStore) WatchByCategory(ctx context.Context, category string) (<-chan []model.Task, error) {
	return watch.Live(ctx, func(ctx context.Context) ([]model.Task, error) {
		return s.ByCategory(ctx, category)
	}, s.hubs.Tasks)
}

func (s *TaskStore) WatchByPriority(ctx context.Context, priority model.Priority) (<-chan []model.Task, error) {
	return watch.Live(ctx, func(ctx context.Context) ([]model.Task, error) {
		return s.ByPriority(ctx, priority)
	}, s.hubs.Tasks)
}

func (s *TaskStore) WatchUpcoming(ctx context.Context, until time.Time) (<-chan []model.Task, error) {
	return watch.Live(ctx, func(ctx context.Context) ([]model.Task, error) {
		return s.Upcoming(ctx, until)
	}, s.hubs.Tasks)
}

func (s *TaskStore) WatchSearch(ctx context.Context, query string) (<-chan []model.Task, error) {
	return watch.Live(ctx, func(ctx context.Context) ([]model.Task, error) {
		return s.Search(ctx, query)
	}, s.hubs.Tasks)
}

func (s *TaskStore) WatchTimeBlockedOn(ctx context.Context, day time.Time) (<-chan []model.Task, error) {
	return watch.Live(ctx, func(ctx context.Context) ([]model.Task, error) {
		return s.TimeBlockedOn(ctx, day)
	}, s.hubs.Tasks)
}

func (s *TaskStore) WatchActiveTimeBlocked(ctx context.Context) (<-chan []model.Task, error) {
	return watch.Live(ctx, s.ActiveTimeBlocked, s.hubs.Tasks)
}

func (s *TaskStore) WatchCountAll(ctx context.Context) (<-chan int64, error) {
	return watch.Live(ctx, s.CountAll, s.hubs.Tasks)
}

func (s *TaskStore) WatchCountActive(ctx context.Context) (<-chan int64, error) {
	return watch.Live(ctx, s.CountActive, s.hubs.Tasks)
}
