package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskgold/engine/internal/models"
	"github.com/taskgold/engine/internal/storage"
	"github.com/taskgold/engine/internal/store"
	"github.com/taskgold/engine/internal/testutils"
)

func newPayoutFixture(t *testing.T) (*PayoutSweeper, *storage.Storage, *Ledger, *testutils.MockNotifier) {
	t.Helper()
	st, err := storage.NewStorage(store.NewMemory())
	require.NoError(t, err)
	ledger := NewLedger(st)
	notifier := new(testutils.MockNotifier)
	sweeper := NewPayoutSweeper(st, ledger, notifier)
	sweeper.now = func() time.Time { return time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC) }
	return sweeper, st, ledger, notifier
}

// Balance 0, task 7 approved with reward 50: before the cool-down the
// payout row exists and the balance stays 0; after the cool-down one sweep
// credits 50 and removes the row.
func TestSweepCreditsAfterCooldown(t *testing.T) {
	ctx := context.Background()
	sweeper, st, ledger, notifier := newPayoutFixture(t)
	require.NoError(t, st.CreateUser(ctx, models.User{ID: 42, Username: "alice"}))
	notifier.On("Notify", mock.Anything, int64(42), mock.AnythingOfType("string")).Return(nil)

	confirmed := sweeper.now().Add(-25 * time.Hour)
	require.NoError(t, st.AppendPayout(ctx, models.PendingPayout{TaskID: 7, UserID: 42, Reward: 50, ConfirmedAt: confirmed}))

	credited, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, credited)

	balance, err := ledger.GetBalance(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	payouts, err := st.ListPayouts(ctx)
	require.NoError(t, err)
	assert.Empty(t, payouts)
	notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestSweepRespectsCooldown(t *testing.T) {
	ctx := context.Background()
	sweeper, st, ledger, _ := newPayoutFixture(t)
	require.NoError(t, st.CreateUser(ctx, models.User{ID: 42, Username: "alice"}))

	confirmed := sweeper.now().Add(-time.Hour)
	require.NoError(t, st.AppendPayout(ctx, models.PendingPayout{TaskID: 7, UserID: 42, Reward: 50, ConfirmedAt: confirmed}))

	credited, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, credited)

	balance, err := ledger.GetBalance(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, balance)

	payouts, err := st.ListPayouts(ctx)
	require.NoError(t, err)
	assert.Len(t, payouts, 1)
}

// Repeated sweeps over the same rows must credit at most once.
func TestSweepIdempotentUnderRetry(t *testing.T) {
	ctx := context.Background()
	sweeper, st, ledger, notifier := newPayoutFixture(t)
	require.NoError(t, st.CreateUser(ctx, models.User{ID: 42, Username: "alice"}))
	notifier.On("Notify", mock.Anything, int64(42), mock.AnythingOfType("string")).Return(nil)

	confirmed := sweeper.now().Add(-48 * time.Hour)
	require.NoError(t, st.AppendPayout(ctx, models.PendingPayout{TaskID: 7, UserID: 42, Reward: 50, ConfirmedAt: confirmed}))

	for i := 0; i < 3; i++ {
		_, err := sweeper.Run(ctx)
		require.NoError(t, err)
	}

	balance, err := ledger.GetBalance(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
}

// A consumed row is what a crash between credit and delete leaves behind:
// the next sweep removes it without touching the ledger.
func TestSweepDeletesConsumedRowWithoutCredit(t *testing.T) {
	ctx := context.Background()
	sweeper, st, ledger, _ := newPayoutFixture(t)
	require.NoError(t, st.CreateUser(ctx, models.User{ID: 42, Username: "alice"}))

	confirmed := sweeper.now().Add(-48 * time.Hour)
	require.NoError(t, st.AppendPayout(ctx, models.PendingPayout{TaskID: 7, UserID: 42, Reward: 50, ConfirmedAt: confirmed}))
	payouts, err := st.ListPayouts(ctx)
	require.NoError(t, err)
	require.NoError(t, st.MarkPayoutConsumed(ctx, payouts[0].Row))

	credited, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, credited)

	balance, err := ledger.GetBalance(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, balance)

	payouts, err = st.ListPayouts(ctx)
	require.NoError(t, err)
	assert.Empty(t, payouts)
}

type flakyLedger struct {
	inner    BalanceLedger
	failures int
}

func (f *flakyLedger) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return f.inner.GetBalance(ctx, userID)
}

func (f *flakyLedger) Adjust(ctx context.Context, userID, delta int64) (int64, error) {
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("store temporarily unavailable")
	}
	return f.inner.Adjust(ctx, userID, delta)
}

// A transient credit failure must not destroy the payout: the marker is
// cleared again, the row survives the sweep, and the next sweep credits it.
func TestSweepRetriesAfterTransientCreditFailure(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewStorage(store.NewMemory())
	require.NoError(t, err)
	ledger := NewLedger(st)
	flaky := &flakyLedger{inner: ledger, failures: 1}
	notifier := new(testutils.MockNotifier)
	notifier.On("Notify", mock.Anything, int64(42), mock.AnythingOfType("string")).Return(nil)

	sweeper := NewPayoutSweeper(st, flaky, notifier)
	sweeper.now = func() time.Time { return time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, st.CreateUser(ctx, models.User{ID: 42, Username: "alice"}))
	confirmed := sweeper.now().Add(-48 * time.Hour)
	require.NoError(t, st.AppendPayout(ctx, models.PendingPayout{TaskID: 7, UserID: 42, Reward: 50, ConfirmedAt: confirmed}))

	credited, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, credited)

	payouts, err := st.ListPayouts(ctx)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.False(t, payouts[0].Consumed)

	credited, err = sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, credited)

	balance, err := ledger.GetBalance(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	payouts, err = st.ListPayouts(ctx)
	require.NoError(t, err)
	assert.Empty(t, payouts)
}

// One row for an unknown user must not block the rest of the batch, and
// stays pending for later retry.
func TestSweepSkipsBadRow(t *testing.T) {
	ctx := context.Background()
	sweeper, st, ledger, notifier := newPayoutFixture(t)
	require.NoError(t, st.CreateUser(ctx, models.User{ID: 42, Username: "alice"}))
	notifier.On("Notify", mock.Anything, int64(42), mock.AnythingOfType("string")).Return(nil)

	confirmed := sweeper.now().Add(-48 * time.Hour)
	require.NoError(t, st.AppendPayout(ctx, models.PendingPayout{TaskID: 1, UserID: 999, Reward: 10, ConfirmedAt: confirmed}))
	require.NoError(t, st.AppendPayout(ctx, models.PendingPayout{TaskID: 7, UserID: 42, Reward: 50, ConfirmedAt: confirmed}))

	credited, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, credited)

	balance, err := ledger.GetBalance(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	payouts, err := st.ListPayouts(ctx)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, int64(999), payouts[0].UserID)
	assert.False(t, payouts[0].Consumed)
}

// Multiple due rows are deleted bottom-up so earlier deletions do not
// shift the indexes of rows still staged for deletion.
func TestSweepDeletesDescending(t *testing.T) {
	ctx := context.Background()
	sweeper, st, ledger, notifier := newPayoutFixture(t)
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, st.CreateUser(ctx, models.User{ID: id, Username: "u"}))
		notifier.On("Notify", mock.Anything, id, mock.AnythingOfType("string")).Return(nil)
	}

	confirmed := sweeper.now().Add(-48 * time.Hour)
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, st.AppendPayout(ctx, models.PendingPayout{TaskID: id, UserID: id, Reward: 10, ConfirmedAt: confirmed}))
	}

	credited, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, credited)

	payouts, err := st.ListPayouts(ctx)
	require.NoError(t, err)
	assert.Empty(t, payouts)

	for _, id := range []int64{1, 2, 3} {
		balance, err := ledger.GetBalance(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(10), balance)
	}
}
