package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"kovorka/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func ts(h int) time.Time {
	return time.Date(2025, 1, 10, h, 0, 0, 0, time.UTC)
}

func TestJournal_RecordAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	oldEnd, newEnd := ts(14), ts(16)
	entry := &models.ChangeEntry{
		BookingID:  10,
		ChangeType: models.ChangeExtend,
		OldEnd:     &oldEnd,
		NewEnd:     &newEnd,
	}
	require.NoError(t, db.RecordChange(ctx, entry))
	assert.NotZero(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	other := &models.ChangeEntry{BookingID: 20, ChangeType: models.ChangeCancel}
	require.NoError(t, db.RecordChange(ctx, other))

	changes, err := db.ListChanges(ctx, 10, 10)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, models.ChangeExtend, changes[0].ChangeType)
	assert.True(t, changes[0].OldEnd.Equal(oldEnd))
	assert.True(t, changes[0].NewEnd.Equal(newEnd))
	assert.Nil(t, changes[0].OldStart)
}

func TestJournal_ListChangesOrderAndLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry := &models.ChangeEntry{
			BookingID:  10,
			ChangeType: models.ChangeExtend,
			CreatedAt:  ts(10 + i),
		}
		require.NoError(t, db.RecordChange(ctx, entry))
	}

	changes, err := db.ListChanges(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, changes, 3)
	// Newest first.
	assert.True(t, changes[0].CreatedAt.After(changes[2].CreatedAt))
}

func TestJournal_ListAllChanges(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	early := &models.ChangeEntry{BookingID: 1, ChangeType: models.ChangeCreate, CreatedAt: ts(9)}
	late := &models.ChangeEntry{BookingID: 2, ChangeType: models.ChangeCancel, CreatedAt: ts(15)}
	require.NoError(t, db.RecordChange(ctx, early))
	require.NoError(t, db.RecordChange(ctx, late))

	all, err := db.ListAllChanges(ctx, ts(12))
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].BookingID)
}

func TestJournal_SyncQueue(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	task := &models.SyncTask{
		TaskType: "append_change",
		ChangeID: 5,
		Payload:  `{"booking_id":10}`,
		Status:   "pending",
	}
	require.NoError(t, db.CreateSyncTask(ctx, task))
	assert.NotZero(t, task.ID)

	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "append_change", pending[0].TaskType)

	t.Run("RetryScheduling", func(t *testing.T) {
		later := time.Now().Add(time.Hour)
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, "retry", "boom", &later))

		// Scheduled in the future, so not pending yet.
		pending, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)

		past := time.Now().Add(-time.Minute)
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, "retry", "boom again", &past))

		pending, err = db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, 2, pending[0].RetryCount)
		assert.Equal(t, "boom again", pending[0].LastError)
	})

	t.Run("Completed", func(t *testing.T) {
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, "completed", "", nil))

		pending, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}
