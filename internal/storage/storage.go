package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/taskgold/engine/internal/models"
	"github.com/taskgold/engine/internal/store"
)

// Column layout of the four tables. Columns are 1-based, matching the
// record store contract.
const (
	UserColID = iota + 1
	UserColUsername
	UserColBalance
	UserColReferrerID
	UserColBonusPaid
)

const (
	TaskColID = iota + 1
	TaskColPlatform
	TaskColLocationName
	TaskColReviewText
	TaskColLocationURL
	TaskColStars
	TaskColReward
	TaskColStatus
	TaskColHolderID
	TaskColClaimedAt
)

const (
	PayoutColTaskID = iota + 1
	PayoutColUserID
	PayoutColReward
	PayoutColConfirmedAt
	PayoutColConsumed
)

const (
	WithdrawalColUserID = iota + 1
	WithdrawalColUsername
	WithdrawalColAmount
	WithdrawalColSkin
	WithdrawalColListingPrice
	WithdrawalColCreatedAt
	WithdrawalColStatus
)

// WithdrawalTimeFormat is second-resolution on purpose: the timestamp is
// the withdrawal's key and travels in operator callback tokens.
const WithdrawalTimeFormat = "2006-01-02 15:04:05"

const markerSet = "1"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
)

type Storage struct {
	records store.RecordStore
}

func NewStorage(records store.RecordStore) (*Storage, error) {
	if records == nil {
		return nil, errors.New("record store is nil")
	}
	return &Storage{records: records}, nil
}

func (s *Storage) GetUser(ctx context.Context, userID int64) (models.User, error) {
	row, err := s.records.Find(ctx, store.TableUsers, UserColID, strconv.FormatInt(userID, 10))
	if errors.Is(err, store.ErrRowNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to find user %d: %w", userID, err)
	}
	return userFromRow(row), nil
}

func (s *Storage) CreateUser(ctx context.Context, user models.User) error {
	referrer := ""
	if user.ReferrerID != 0 {
		referrer = strconv.FormatInt(user.ReferrerID, 10)
	}
	values := []string{
		strconv.FormatInt(user.ID, 10),
		user.Username,
		strconv.FormatInt(user.Balance, 10),
		referrer,
		"",
	}
	if err := s.records.Append(ctx, store.TableUsers, values); err != nil {
		return fmt.Errorf("failed to create user %d: %w", user.ID, err)
	}
	return nil
}

func (s *Storage) UpdateBalance(ctx context.Context, rowIndex int, balance int64) error {
	err := s.records.UpdateCell(ctx, store.TableUsers, rowIndex, UserColBalance, strconv.FormatInt(balance, 10))
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

func (s *Storage) SetBonusPaid(ctx context.Context, rowIndex int) error {
	err := s.records.UpdateCell(ctx, store.TableUsers, rowIndex, UserColBonusPaid, markerSet)
	if err != nil {
		return fmt.Errorf("failed to set bonus marker: %w", err)
	}
	return nil
}

func (s *Storage) GetTask(ctx context.Context, taskID int64) (models.Task, error) {
	row, err := s.records.Find(ctx, store.TableTasks, TaskColID, strconv.FormatInt(taskID, 10))
	if errors.Is(err, store.ErrRowNotFound) {
		return models.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to find task %d: %w", taskID, err)
	}
	return taskFromRow(row), nil
}

func (s *Storage) ListTasks(ctx context.Context) ([]models.Task, error) {
	rows, err := s.records.ReadAll(ctx, store.TableTasks)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	tasks := make([]models.Task, len(rows))
	for i, row := range rows {
		tasks[i] = taskFromRow(row)
	}
	return tasks, nil
}

// SetTaskState writes holder and claim timestamp before the status cell, so
// a concurrent reader that already sees the new status also sees its holder.
func (s *Storage) SetTaskState(ctx context.Context, rowIndex int, status string, holderID int64, claimedAt time.Time) error {
	holder := ""
	if holderID != 0 {
		holder = strconv.FormatInt(holderID, 10)
	}
	claimed := ""
	if !claimedAt.IsZero() {
		claimed = claimedAt.UTC().Format(time.RFC3339)
	}
	if err := s.records.UpdateCell(ctx, store.TableTasks, rowIndex, TaskColHolderID, holder); err != nil {
		return fmt.Errorf("failed to update task holder: %w", err)
	}
	if err := s.records.UpdateCell(ctx, store.TableTasks, rowIndex, TaskColClaimedAt, claimed); err != nil {
		return fmt.Errorf("failed to update claim timestamp: %w", err)
	}
	if err := s.records.UpdateCell(ctx, store.TableTasks, rowIndex, TaskColStatus, status); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return nil
}

func (s *Storage) AppendPayout(ctx context.Context, payout models.PendingPayout) error {
	values := []string{
		strconv.FormatInt(payout.TaskID, 10),
		strconv.FormatInt(payout.UserID, 10),
		strconv.FormatInt(payout.Reward, 10),
		payout.ConfirmedAt.UTC().Format(time.RFC3339),
		"",
	}
	if err := s.records.Append(ctx, store.TablePendingPayouts, values); err != nil {
		return fmt.Errorf("failed to append payout for task %d: %w", payout.TaskID, err)
	}
	return nil
}

func (s *Storage) ListPayouts(ctx context.Context) ([]models.PendingPayout, error) {
	rows, err := s.records.ReadAll(ctx, store.TablePendingPayouts)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	payouts := make([]models.PendingPayout, len(rows))
	for i, row := range rows {
		payouts[i] = payoutFromRow(row)
	}
	return payouts, nil
}

func (s *Storage) MarkPayoutConsumed(ctx context.Context, rowIndex int) error {
	err := s.records.UpdateCell(ctx, store.TablePendingPayouts, rowIndex, PayoutColConsumed, markerSet)
	if err != nil {
		return fmt.Errorf("failed to mark payout consumed: %w", err)
	}
	return nil
}

func (s *Storage) ClearPayoutConsumed(ctx context.Context, rowIndex int) error {
	err := s.records.UpdateCell(ctx, store.TablePendingPayouts, rowIndex, PayoutColConsumed, "")
	if err != nil {
		return fmt.Errorf("failed to clear payout marker: %w", err)
	}
	return nil
}

func (s *Storage) DeletePayout(ctx context.Context, rowIndex int) error {
	err := s.records.DeleteRow(ctx, store.TablePendingPayouts, rowIndex)
	if err != nil {
		return fmt.Errorf("failed to delete payout row %d: %w", rowIndex, err)
	}
	return nil
}

func (s *Storage) AppendWithdrawal(ctx context.Context, w models.Withdrawal) error {
	values := []string{
		strconv.FormatInt(w.UserID, 10),
		w.Username,
		strconv.FormatInt(w.Amount, 10),
		w.Skin,
		strconv.FormatInt(w.ListingPrice, 10),
		w.CreatedAt,
		w.Status,
	}
	if err := s.records.Append(ctx, store.TableWithdrawals, values); err != nil {
		return fmt.Errorf("failed to append withdrawal: %w", err)
	}
	return nil
}

func (s *Storage) FindWithdrawal(ctx context.Context, createdAt string) (models.Withdrawal, error) {
	row, err := s.records.Find(ctx, store.TableWithdrawals, WithdrawalColCreatedAt, createdAt)
	if errors.Is(err, store.ErrRowNotFound) {
		return models.Withdrawal{}, ErrWithdrawalNotFound
	}
	if err != nil {
		return models.Withdrawal{}, fmt.Errorf("failed to find withdrawal %q: %w", createdAt, err)
	}
	return withdrawalFromRow(row), nil
}

func (s *Storage) SetWithdrawalStatus(ctx context.Context, rowIndex int, status string) error {
	err := s.records.UpdateCell(ctx, store.TableWithdrawals, rowIndex, WithdrawalColStatus, status)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	return nil
}

func userFromRow(row store.Row) models.User {
	return models.User{
		ID:         parseInt(row.Cell(UserColID)),
		Username:   row.Cell(UserColUsername),
		Balance:    parseInt(row.Cell(UserColBalance)),
		ReferrerID: parseInt(row.Cell(UserColReferrerID)),
		BonusPaid:  row.Cell(UserColBonusPaid) == markerSet,
		Row:        row.Index,
	}
}

func taskFromRow(row store.Row) models.Task {
	return models.Task{
		ID:           parseInt(row.Cell(TaskColID)),
		Platform:     row.Cell(TaskColPlatform),
		LocationName: row.Cell(TaskColLocationName),
		ReviewText:   row.Cell(TaskColReviewText),
		LocationURL:  row.Cell(TaskColLocationURL),
		Stars:        int(parseInt(row.Cell(TaskColStars))),
		Reward:       parseInt(row.Cell(TaskColReward)),
		Status:       row.Cell(TaskColStatus),
		HolderID:     parseInt(row.Cell(TaskColHolderID)),
		ClaimedAt:    parseTime(row.Cell(TaskColClaimedAt)),
		Row:          row.Index,
	}
}

func payoutFromRow(row store.Row) models.PendingPayout {
	return models.PendingPayout{
		TaskID:      parseInt(row.Cell(PayoutColTaskID)),
		UserID:      parseInt(row.Cell(PayoutColUserID)),
		Reward:      parseInt(row.Cell(PayoutColReward)),
		ConfirmedAt: parseTime(row.Cell(PayoutColConfirmedAt)),
		Consumed:    row.Cell(PayoutColConsumed) == markerSet,
		Row:         row.Index,
	}
}

func withdrawalFromRow(row store.Row) models.Withdrawal {
	return models.Withdrawal{
		UserID:       parseInt(row.Cell(WithdrawalColUserID)),
		Username:     row.Cell(WithdrawalColUsername),
		Amount:       parseInt(row.Cell(WithdrawalColAmount)),
		Skin:         row.Cell(WithdrawalColSkin),
		ListingPrice: parseInt(row.Cell(WithdrawalColListingPrice)),
		CreatedAt:    row.Cell(WithdrawalColCreatedAt),
		Status:       row.Cell(WithdrawalColStatus),
		Row:          row.Index,
	}
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
