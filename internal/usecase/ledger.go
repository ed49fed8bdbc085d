package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/taskgold/engine/internal/locker"
	"github.com/taskgold/engine/internal/models"
	"github.com/taskgold/engine/internal/storage"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

type LedgerStorage interface {
	GetUser(ctx context.Context, userID int64) (models.User, error)
	UpdateBalance(ctx context.Context, rowIndex int, balance int64) error
}

// Ledger owns every mutation of user balances. The backing store cannot
// serialize concurrent read-modify-writes of a balance cell, so all
// adjustments for one user are funneled through a per-user mutex; going
// around the Ledger to write a balance cell directly is a bug.
type Ledger struct {
	storage LedgerStorage
	locks   *locker.KeyedMutex
}

func NewLedger(storage LedgerStorage) *Ledger {
	return &Ledger{
		storage: storage,
		locks:   locker.New(),
	}
}

// GetBalance returns 0 for unknown users.
func (l *Ledger) GetBalance(ctx context.Context, userID int64) (int64, error) {
	user, err := l.storage.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return user.Balance, nil
}

// Adjust applies a signed delta and returns the new balance. A delta that
// would drive the balance negative is refused before any write.
func (l *Ledger) Adjust(ctx context.Context, userID int64, delta int64) (int64, error) {
	key := userKey(userID)
	l.locks.Lock(key)
	defer l.locks.Unlock(key)

	user, err := l.storage.GetUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to read user for adjustment: %w", err)
	}

	newBalance := user.Balance + delta
	if newBalance < 0 {
		return 0, ErrInsufficientFunds
	}

	if err := l.storage.UpdateBalance(ctx, user.Row, newBalance); err != nil {
		return 0, fmt.Errorf("failed to write balance for user %d: %w", userID, err)
	}
	return newBalance, nil
}

func userKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}
