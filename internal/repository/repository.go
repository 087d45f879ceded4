package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fumio65/tick/internal/model"
	"github.com/fumio65/tick/internal/notify"
	"github.com/fumio65/tick/internal/schedule"
	"github.com/fumio65/tick/internal/store"
	"github.com/fumio65/tick/internal/watch"
)

// TaskRepository is the single access point consumers use; the stores
// are never reached around it. It validates writes, keeps reminders in
// step with task state and otherwise passes through to the stores, so
// the storage engine stays swappable without touching call sites.
type TaskRepository struct {
	tasks      *store.TaskStore
	subtasks   *store.SubtaskStore
	engine     *schedule.Engine
	dispatcher notify.Dispatcher
	hubs       *store.Hubs

	now func() time.Time
}

func New(tasks *store.TaskStore, subtasks *store.SubtaskStore, engine *schedule.Engine, dispatcher notify.Dispatcher, hubs *store.Hubs) *TaskRepository {
	return &TaskRepository{
		tasks:      tasks,
		subtasks:   subtasks,
		engine:     engine,
		dispatcher: dispatcher,
		hubs:       hubs,
		now:        time.Now,
	}
}

// CreateTask validates and persists a task, then arms its reminder.
// Conflict policy is deliberately not applied here: callers that want
// to block on overlap run CheckConflicts first.
func (r *TaskRepository) CreateTask(ctx context.Context, task *model.Task) (uint, error) {
	if err := schedule.ValidateTimeBlock(task); err != nil {
		return 0, err
	}
	id, err := r.tasks.Insert(ctx, task)
	if err != nil {
		return 0, err
	}
	r.armReminder(task)
	return id, nil
}

// CreateTasks persists a batch with per-item CreateTask semantics.
func (r *TaskRepository) CreateTasks(ctx context.Context, tasks []model.Task) error {
	for i := range tasks {
		if err := schedule.ValidateTimeBlock(&tasks[i]); err != nil {
			return fmt.Errorf("task %q: %w", tasks[i].Title, err)
		}
	}
	if err := r.tasks.InsertMany(ctx, tasks); err != nil {
		return err
	}
	for i := range tasks {
		r.armReminder(&tasks[i])
	}
	return nil
}

// UpdateTask writes the full record back and re-arms the reminder.
func (r *TaskRepository) UpdateTask(ctx context.Context, task *model.Task) error {
	if err := schedule.ValidateTimeBlock(task); err != nil {
		return err
	}
	if err := r.tasks.Update(ctx, task); err != nil {
		return err
	}
	r.armReminder(task)
	return nil
}

// DeleteTask removes the task, its subtasks and its pending reminder.
func (r *TaskRepository) DeleteTask(ctx context.Context, id uint) error {
	if err := r.tasks.DeleteByID(ctx, id); err != nil {
		return err
	}
	r.dispatcher.CancelReminder(id)
	return nil
}

// DeleteAllCompleted clears finished tasks; their reminders were already
// cancelled on completion.
func (r *TaskRepository) DeleteAllCompleted(ctx context.Context) error {
	return r.tasks.DeleteAllCompleted(ctx)
}

// DeleteAll wipes the store and every pending reminder.
func (r *TaskRepository) DeleteAll(ctx context.Context) error {
	all, err := r.tasks.All(ctx)
	if err != nil {
		return err
	}
	if err := r.tasks.DeleteAll(ctx); err != nil {
		return err
	}
	for _, t := range all {
		r.dispatcher.CancelReminder(t.ID)
	}
	return nil
}

func (r *TaskRepository) GetTask(ctx context.Context, id uint) (*model.Task, error) {
	return r.tasks.GetByID(ctx, id)
}

// SetCompletion toggles the completion flag; completing cancels the
// reminder, reopening re-arms it.
func (r *TaskRepository) SetCompletion(ctx context.Context, id uint, completed bool) error {
	if err := r.tasks.SetCompletion(ctx, id, completed); err != nil {
		return err
	}
	if completed {
		r.dispatcher.CancelReminder(id)
		return nil
	}
	task, err := r.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task != nil {
		r.armReminder(task)
	}
	return nil
}

func (r *TaskRepository) SetPriority(ctx context.Context, id uint, priority model.Priority) error {
	return r.tasks.SetPriority(ctx, id, priority)
}

// CheckConflicts reports active time-blocks overlapping the candidate
// interval; the caller decides whether that blocks the save.
func (r *TaskRepository) CheckConflicts(ctx context.Context, start, end time.Time, excludeID uint) ([]model.Task, error) {
	return r.engine.CheckConflicts(ctx, start, end, excludeID)
}

// armReminder schedules or cancels the task's reminder to match its
// current state. Time-blocked tasks remind at their start, others at
// their scheduled date.
func (r *TaskRepository) armReminder(task *model.Task) {
	at := task.ScheduledDate
	if task.IsTimeBlocked {
		at = task.StartTime
	}
	if task.IsCompleted || at == nil {
		r.dispatcher.CancelReminder(task.ID)
		return
	}
	r.dispatcher.ScheduleReminder(task.ID, task.Title, *at)
}

// RearmReminders schedules reminders for every task still due in the
// future; the binary runs this once on startup.
func (r *TaskRepository) RearmReminders(ctx context.Context) error {
	active, err := r.tasks.Active(ctx)
	if err != nil {
		return err
	}
	now := r.now()
	for i := range active {
		at := active[i].ScheduledDate
		if active[i].IsTimeBlocked {
			at = active[i].StartTime
		}
		if at != nil && at.After(now) {
			r.armReminder(&active[i])
		}
	}
	return nil
}

// Subtask commands.

func (r *TaskRepository) CreateSubtask(ctx context.Context, subtask *model.Subtask) (uint, error) {
	return r.subtasks.Insert(ctx, subtask)
}

func (r *TaskRepository) CreateSubtasks(ctx context.Context, subtasks []model.Subtask) error {
	return r.subtasks.InsertMany(ctx, subtasks)
}

func (r *TaskRepository) UpdateSubtask(ctx context.Context, subtask *model.Subtask) error {
	return r.subtasks.Update(ctx, subtask)
}

func (r *TaskRepository) DeleteSubtask(ctx context.Context, id uint) error {
	return r.subtasks.DeleteByID(ctx, id)
}

func (r *TaskRepository) DeleteSubtasks(ctx context.Context, taskID uint) error {
	return r.subtasks.DeleteForTask(ctx, taskID)
}

func (r *TaskRepository) SetSubtaskCompletion(ctx context.Context, id uint, completed bool) error {
	return r.subtasks.SetCompletion(ctx, id, completed)
}

func (r *TaskRepository) SetSubtaskOrder(ctx context.Context, id uint, index int) error {
	return r.subtasks.SetOrder(ctx, id, index)
}

// SubtaskProgress returns done and total counts for a progress label.
func (r *TaskRepository) SubtaskProgress(ctx context.Context, taskID uint) (done, total int64, err error) {
	if done, err = r.subtasks.CompletedCount(ctx, taskID); err != nil {
		return 0, 0, err
	}
	if total, err = r.subtasks.TotalCount(ctx, taskID); err != nil {
		return 0, 0, err
	}
	return done, total, nil
}

// WithSubtasks joins a task with its ordered subtasks; nil when the
// task is absent.
func (r *TaskRepository) WithSubtasks(ctx context.Context, taskID uint) (*model.TaskWithSubtasks, error) {
	task, err := r.tasks.GetByID(ctx, taskID)
	if err != nil || task == nil {
		return nil, err
	}
	subtasks, err := r.subtasks.GetForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &model.TaskWithSubtasks{Task: *task, Subtasks: subtasks}, nil
}

// WatchWithSubtasks re-emits the joined projection after any mutation
// of either table.
func (r *TaskRepository) WatchWithSubtasks(ctx context.Context, taskID uint) (<-chan *model.TaskWithSubtasks, error) {
	return watch.Live(ctx, func(ctx context.Context) (*model.TaskWithSubtasks, error) {
		return r.WithSubtasks(ctx, taskID)
	}, r.hubs.Tasks, r.hubs.Subtasks)
}

// Query pass-through. Upcoming defaults its cutoff to now.

func (r *TaskRepository) All(ctx context.Context) ([]model.Task, error) { return r.tasks.All(ctx) }

func (r *TaskRepository) Active(ctx context.Context) ([]model.Task, error) {
	return r.tasks.Active(ctx)
}

func (r *TaskRepository) Completed(ctx context.Context) ([]model.Task, error) {
	return r.tasks.Completed(ctx)
}

func (r *TaskRepository) ByCategory(ctx context.Context, category string) ([]model.Task, error) {
	return r.tasks.ByCategory(ctx, category)
}

func (r *TaskRepository) ByPriority(ctx context.Context, priority model.Priority) ([]model.Task, error) {
	return r.tasks.ByPriority(ctx, priority)
}

func (r *TaskRepository) Upcoming(ctx context.Context) ([]model.Task, error) {
	return r.tasks.Upcoming(ctx, r.now())
}

func (r *TaskRepository) UpcomingAt(ctx context.Context, until time.Time) ([]model.Task, error) {
	return r.tasks.Upcoming(ctx, until)
}

func (r *TaskRepository) Search(ctx context.Context, query string) ([]model.Task, error) {
	return r.tasks.Search(ctx, query)
}

func (r *TaskRepository) TimeBlockedOn(ctx context.Context, day time.Time) ([]model.Task, error) {
	return r.tasks.TimeBlockedOn(ctx, day)
}

func (r *TaskRepository) ActiveTimeBlocked(ctx context.Context) ([]model.Task, error) {
	return r.tasks.ActiveTimeBlocked(ctx)
}

func (r *TaskRepository) Counts(ctx context.Context) (all, active int64, err error) {
	if all, err = r.tasks.CountAll(ctx); err != nil {
		return 0, 0, err
	}
	if active, err = r.tasks.CountActive(ctx); err != nil {
		return 0, 0, err
	}
	return all, active, nil
}

func (r *TaskRepository) Subtasks(ctx context.Context, taskID uint) ([]model.Subtask, error) {
	return r.subtasks.GetForTask(ctx, taskID)
}

// Live variants.

func (r *TaskRepository) WatchAll(ctx context.Context) (<-chan []model.Task, error) {
	return r.tasks.WatchAll(ctx)
}

func (r *TaskRepository) WatchActive(ctx context.Context) (<-chan []model.Task, error) {
	return r.tasks.WatchActive(ctx)
}

func (r *TaskRepository) WatchCompleted(ctx context.Context) (<-chan []model.Task, error) {
	return r.tasks.WatchCompleted(ctx)
}

func (r *TaskRepository) WatchByCategory(ctx context.Context, category string) (<-chan []model.Task, error) {
	return r.tasks.WatchByCategory(ctx, category)
}

func (r *TaskRepository) WatchByPriority(ctx context.Context, priority model.Priority) (<-chan []model.Task, error) {
	return r.tasks.WatchByPriority(ctx, priority)
}

func (r *TaskRepository) WatchUpcoming(ctx context.Context) (<-chan []model.Task, error) {
	return r.tasks.WatchUpcoming(ctx, r.now())
}

func (r *TaskRepository) WatchSearch(ctx context.Context, query string) (<-chan []model.Task, error) {
	return r.tasks.WatchSearch(ctx, query)
}

func (r *TaskRepository) WatchTimeBlockedOn(ctx context.Context, day time.Time) (<-chan []model.Task, error) {
	return r.tasks.WatchTimeBlockedOn(ctx, day)
}

func (r *TaskRepository) WatchActiveTimeBlocked(ctx context.Context) (<-chan []model.Task, error) {
	return r.tasks.WatchActiveTimeBlocked(ctx)
}

func (r *TaskRepository) WatchCountAll(ctx context.Context) (<-chan int64, error) {
	return r.tasks.WatchCountAll(ctx)
}

func (r *TaskRepository) WatchCountActive(ctx context.Context) (<-chan int64, error) {
	return r.tasks.WatchCountActive(ctx)
}

func (r *TaskRepository) WatchSubtasks(ctx context.Context, taskID uint) (<-chan []model.Subtask, error) {
	return r.subtasks.WatchForTask(ctx, taskID)
}
