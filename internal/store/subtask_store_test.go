package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fumio65/tick/internal/model"
)

func seedTask(t *testing.T, tasks *TaskStore, title string) uint {
	t.Helper()
	id, err := tasks.Insert(context.Background(), &model.Task{Title: title, Priority: model.PriorityMedium})
	require.NoError(t, err)
	return id
}

func TestSubtaskStore_InsertRequiresParent(t *testing.T) {
	_, subtasks := newStores(t)

	_, err := subtasks.Insert(context.Background(), &model.Subtask{TaskID: 123, Title: "orphan"})
	require.ErrorIs(t, err, ErrParentTaskNotFound)

	total, countErr := subtasks.TotalCount(context.Background(), 123)
	require.NoError(t, countErr)
	require.Zero(t, total)
}

func TestSubtaskStore_InsertManyRejectsWholeBatchOnMissingParent(t *testing.T) {
	tasks, subtasks := newStores(t)
	ctx := context.Background()
	parent := seedTask(t, tasks, "parent")

	err := subtasks.InsertMany(ctx, []model.Subtask{
		{TaskID: parent, Title: "fine"},
		{TaskID: 999, Title: "orphan"},
	})
	require.ErrorIs(t, err, ErrParentTaskNotFound)

	total, err := subtasks.TotalCount(ctx, parent)
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestSubtaskStore_GetForTaskOrdersByIndexThenCreation(t *testing.T) {
	tasks, subtasks := newStores(t)
	ctx := context.Background()
	parent := seedTask(t, tasks, "packing list")

	_, err := subtasks.Insert(ctx, &model.Subtask{TaskID: parent, Title: "passport", OrderIndex: 2})
	require.NoError(t, err)
	_, err = subtasks.Insert(ctx, &model.Subtask{TaskID: parent, Title: "tickets", OrderIndex: 0})
	require.NoError(t, err)
	_, err = subtasks.Insert(ctx, &model.Subtask{TaskID: parent, Title: "charger", OrderIndex: 1})
	require.NoError(t, err)

	list, err := subtasks.GetForTask(ctx, parent)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "tickets", list[0].Title)
	require.Equal(t, "charger", list[1].Title)
	require.Equal(t, "passport", list[2].Title)
}

func TestSubtaskStore_SetOrderMovesItem(t *testing.T) {
	tasks, subtasks := newStores(t)
	ctx := context.Background()
	parent := seedTask(t, tasks, "list")

	first, err := subtasks.Insert(ctx, &model.Subtask{TaskID: parent, Title: "a", OrderIndex: 0})
	require.NoError(t, err)
	_, err = subtasks.Insert(ctx, &model.Subtask{TaskID: parent, Title: "b", OrderIndex: 1})
	require.NoError(t, err)

	require.NoError(t, subtasks.SetOrder(ctx, first, 5))

	list, err := subtasks.GetForTask(ctx, parent)
	require.NoError(t, err)
	require.Equal(t, "b", list[0].Title)
	require.Equal(t, "a", list[1].Title)
}

func TestSubtaskStore_ProgressCounts(t *testing.T) {
	tasks, subtasks := newStores(t)
	ctx := context.Background()
	parent := seedTask(t, tasks, "workout")

	var ids []uint
	for _, title := range []string{"warmup", "squats", "stretch"} {
		id, err := subtasks.Insert(ctx, &model.Subtask{TaskID: parent, Title: title})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, subtasks.SetCompletion(ctx, ids[0], true))
	require.NoError(t, subtasks.SetCompletion(ctx, ids[1], true))

	done, err := subtasks.CompletedCount(ctx, parent)
	require.NoError(t, err)
	total, err := subtasks.TotalCount(ctx, parent)
	require.NoError(t, err)
	require.EqualValues(t, 2, done)
	require.EqualValues(t, 3, total)
}

func TestSubtaskStore_DeleteForTask(t *testing.T) {
	tasks, subtasks := newStores(t)
	ctx := context.Background()
	parent := seedTask(t, tasks, "list")
	other := seedTask(t, tasks, "other list")

	_, err := subtasks.Insert(ctx, &model.Subtask{TaskID: parent, Title: "a"})
	require.NoError(t, err)
	_, err = subtasks.Insert(ctx, &model.Subtask{TaskID: other, Title: "keep"})
	require.NoError(t, err)

	require.NoError(t, subtasks.DeleteForTask(ctx, parent))

	gone, err := subtasks.GetForTask(ctx, parent)
	require.NoError(t, err)
	require.Empty(t, gone)

	kept, err := subtasks.GetForTask(ctx, other)
	require.NoError(t, err)
	require.Len(t, kept, 1)
}

func TestTaskDelete_CascadesToSubtasks(t *testing.T) {
	tasks, subtasks := newStores(t)
	ctx := context.Background()

	parent, err := tasks.Insert(ctx, &model.Task{Title: "Pay bills", ScheduledDate: ptr(at(9, 0)), Priority: model.PriorityMedium})
	require.NoError(t, err)
	_, err = subtasks.Insert(ctx, &model.Subtask{TaskID: parent, Title: "Check balance"})
	require.NoError(t, err)

	require.NoError(t, tasks.DeleteByID(ctx, parent))

	got, err := tasks.GetByID(ctx, parent)
	require.NoError(t, err)
	require.Nil(t, got)

	children, err := subtasks.GetForTask(ctx, parent)
	require.NoError(t, err)
	require.Empty(t, children)
}

func TestDeleteAllCompleted_CascadesCompletedSubtasksOnly(t *testing.T) {
	tasks, subtasks := newStores(t)
	ctx := context.Background()

	doneID := seedTask(t, tasks, "done parent")
	require.NoError(t, tasks.SetCompletion(ctx, doneID, true))
	_, err := subtasks.Insert(ctx, &model.Subtask{TaskID: doneID, Title: "stale"})
	require.NoError(t, err)

	openID := seedTask(t, tasks, "open parent")
	_, err = subtasks.Insert(ctx, &model.Subtask{TaskID: openID, Title: "fresh"})
	require.NoError(t, err)

	require.NoError(t, tasks.DeleteAllCompleted(ctx))

	stale, err := subtasks.GetForTask(ctx, doneID)
	require.NoError(t, err)
	require.Empty(t, stale)

	fresh, err := subtasks.GetForTask(ctx, openID)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
}

func TestSubtaskStore_WatchForTaskSeesCascade(t *testing.T) {
	tasks, subtasks := newStores(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	parent := seedTask(t, tasks, "watched")
	_, err := subtasks.Insert(ctx, &model.Subtask{TaskID: parent, Title: "child"})
	require.NoError(t, err)

	ch, err := subtasks.WatchForTask(ctx, parent)
	require.NoError(t, err)
	require.Len(t, recv(t, ch), 1)

	require.NoError(t, tasks.DeleteByID(ctx, parent))
	require.Empty(t, recv(t, ch))
}
