package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskgold/engine/internal/constants"
	"github.com/taskgold/engine/internal/locker"
	"github.com/taskgold/engine/internal/storage"
	"github.com/taskgold/engine/internal/store"
	"github.com/taskgold/engine/internal/testutils"
)

func newReclaimFixture(t *testing.T) (*Reclaimer, *storage.Storage, *store.Memory, *testutils.MockNotifier) {
	t.Helper()
	mem := store.NewMemory()
	st, err := storage.NewStorage(mem)
	require.NoError(t, err)
	notifier := new(testutils.MockNotifier)
	reclaimer := NewReclaimer(st, locker.New(), notifier)
	reclaimer.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return reclaimer, st, mem, notifier
}

func seedClaimedTask(t *testing.T, ctx context.Context, st *storage.Storage, mem *store.Memory, holderID int64, claimedAt time.Time) {
	t.Helper()
	require.NoError(t, mem.Append(ctx, store.TableTasks,
		[]string{"7", "Google", "Cafe Blue", "Great place!", "https://example.com", "5", "50", constants.TaskAvailable, "", ""}))
	task, err := st.GetTask(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, st.SetTaskState(ctx, task.Row, constants.TaskClaimed, holderID, claimedAt))
}

func TestReclaimStaleClaim(t *testing.T) {
	ctx := context.Background()
	reclaimer, st, mem, notifier := newReclaimFixture(t)
	notifier.On("Notify", mock.Anything, int64(42), mock.AnythingOfType("string")).Return(nil)

	seedClaimedTask(t, ctx, st, mem, 42, reclaimer.now().Add(-45*time.Minute))

	reclaimed, err := reclaimer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	task, err := st.GetTask(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskAvailable, task.Status)
	assert.Zero(t, task.HolderID)
	assert.True(t, task.ClaimedAt.IsZero())
	notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestReclaimLeavesFreshClaim(t *testing.T) {
	ctx := context.Background()
	reclaimer, st, mem, _ := newReclaimFixture(t)

	seedClaimedTask(t, ctx, st, mem, 42, reclaimer.now().Add(-5*time.Minute))

	reclaimed, err := reclaimer.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, reclaimed)

	task, err := st.GetTask(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskClaimed, task.Status)
	assert.Equal(t, int64(42), task.HolderID)
}

// A task under review has no claim timestamp, so the sweep never touches
// it no matter how long the operator takes.
func TestReclaimLeavesUnderReview(t *testing.T) {
	ctx := context.Background()
	reclaimer, st, mem, _ := newReclaimFixture(t)

	require.NoError(t, mem.Append(ctx, store.TableTasks,
		[]string{"7", "Google", "Cafe Blue", "Great place!", "https://example.com", "5", "50", constants.TaskAvailable, "", ""}))
	task, err := st.GetTask(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, st.SetTaskState(ctx, task.Row, constants.TaskUnderReview, 42, time.Time{}))

	reclaimed, err := reclaimer.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, reclaimed)

	task, err = st.GetTask(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskUnderReview, task.Status)
}

func TestReclaimSecondRunFindsNothing(t *testing.T) {
	ctx := context.Background()
	reclaimer, st, mem, notifier := newReclaimFixture(t)
	notifier.On("Notify", mock.Anything, int64(42), mock.AnythingOfType("string")).Return(nil)

	seedClaimedTask(t, ctx, st, mem, 42, reclaimer.now().Add(-45*time.Minute))

	reclaimed, err := reclaimer.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, reclaimed)

	reclaimed, err = reclaimer.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, reclaimed)
	notifier.AssertNumberOfCalls(t, "Notify", 1)
}

// Notification failures must not keep the task out of the pool.
func TestReclaimSurvivesNotifyFailure(t *testing.T) {
	ctx := context.Background()
	reclaimer, st, mem, notifier := newReclaimFixture(t)
	notifier.On("Notify", mock.Anything, int64(42), mock.AnythingOfType("string")).
		Return(assert.AnError)

	seedClaimedTask(t, ctx, st, mem, 42, reclaimer.now().Add(-45*time.Minute))

	reclaimed, err := reclaimer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	task, err := st.GetTask(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskAvailable, task.Status)
}
