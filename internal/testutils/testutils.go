package testutils

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/taskgold/engine/internal/models"
)

// MockStorage covers every storage method the usecases consume, so one
// mock satisfies whichever narrow interface a test needs.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetUser(ctx context.Context, userID int64) (models.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStorage) CreateUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStorage) UpdateBalance(ctx context.Context, rowIndex int, balance int64) error {
	args := m.Called(ctx, rowIndex, balance)
	return args.Error(0)
}

func (m *MockStorage) SetBonusPaid(ctx context.Context, rowIndex int) error {
	args := m.Called(ctx, rowIndex)
	return args.Error(0)
}

func (m *MockStorage) GetTask(ctx context.Context, taskID int64) (models.Task, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockStorage) ListTasks(ctx context.Context) ([]models.Task, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *MockStorage) SetTaskState(ctx context.Context, rowIndex int, status string, holderID int64, claimedAt time.Time) error {
	args := m.Called(ctx, rowIndex, status, holderID, claimedAt)
	return args.Error(0)
}

func (m *MockStorage) AppendPayout(ctx context.Context, payout models.PendingPayout) error {
	args := m.Called(ctx, payout)
	return args.Error(0)
}

func (m *MockStorage) ListPayouts(ctx context.Context) ([]models.PendingPayout, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.PendingPayout), args.Error(1)
}

func (m *MockStorage) MarkPayoutConsumed(ctx context.Context, rowIndex int) error {
	args := m.Called(ctx, rowIndex)
	return args.Error(0)
}

func (m *MockStorage) ClearPayoutConsumed(ctx context.Context, rowIndex int) error {
	args := m.Called(ctx, rowIndex)
	return args.Error(0)
}

func (m *MockStorage) DeletePayout(ctx context.Context, rowIndex int) error {
	args := m.Called(ctx, rowIndex)
	return args.Error(0)
}

func (m *MockStorage) AppendWithdrawal(ctx context.Context, w models.Withdrawal) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockStorage) FindWithdrawal(ctx context.Context, createdAt string) (models.Withdrawal, error) {
	args := m.Called(ctx, createdAt)
	return args.Get(0).(models.Withdrawal), args.Error(1)
}

func (m *MockStorage) SetWithdrawalStatus(ctx context.Context, rowIndex int, status string) error {
	args := m.Called(ctx, rowIndex, status)
	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetBalance(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) Adjust(ctx context.Context, userID, delta int64) (int64, error) {
	args := m.Called(ctx, userID, delta)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID int64, text string) error {
	args := m.Called(ctx, userID, text)
	return args.Error(0)
}
