package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/taskgold/engine/internal/constants"
	"github.com/taskgold/engine/internal/locker"
	"github.com/taskgold/engine/internal/models"
)

var (
	ErrTaskNotAvailable = errors.New("task is not available")
	ErrNotHolder        = errors.New("task is held by another user")
	ErrAlreadyReviewed  = errors.New("task already left review")
)

type TaskStorage interface {
	GetTask(ctx context.Context, taskID int64) (models.Task, error)
	ListTasks(ctx context.Context) ([]models.Task, error)
	SetTaskState(ctx context.Context, rowIndex int, status string, holderID int64, claimedAt time.Time) error
	AppendPayout(ctx context.Context, payout models.PendingPayout) error
}

// ReferralHook fires after a user's task is approved. Implementations must
// be idempotent per user.
type ReferralHook interface {
	GrantFirstApproval(ctx context.Context, userID int64) error
}

// TaskService is the task lifecycle state machine:
//
//	Available -> Claimed -> UnderReview -> Completed
//	                    \-> Available (release, reject, reclaim)
//
// The store has no compare-and-swap, so Claim re-reads the row under the
// per-task mutex immediately before writing. Within this process that
// closes the race entirely; against a hypothetical external writer the
// residual rule is last write wins.
type TaskService struct {
	storage  TaskStorage
	locks    *locker.KeyedMutex
	referral ReferralHook
	now      func() time.Time
}

func NewTaskService(storage TaskStorage, locks *locker.KeyedMutex, referral ReferralHook) *TaskService {
	return &TaskService{
		storage:  storage,
		locks:    locks,
		referral: referral,
		now:      time.Now,
	}
}

// Available lists claimable tasks for a platform tag.
func (s *TaskService) Available(ctx context.Context, platform string) ([]models.Task, error) {
	tasks, err := s.storage.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	var available []models.Task
	for _, t := range tasks {
		if t.Platform == platform && t.Status == constants.TaskAvailable {
			available = append(available, t)
		}
	}
	return available, nil
}

// Claim takes an available task for userID. On success the caller is the
// presumptive holder.
func (s *TaskService) Claim(ctx context.Context, taskID, userID int64) (models.Task, error) {
	key := taskKey(taskID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	task, err := s.storage.GetTask(ctx, taskID)
	if err != nil {
		return models.Task{}, err
	}
	if task.Status != constants.TaskAvailable {
		return models.Task{}, ErrTaskNotAvailable
	}

	claimedAt := s.now().UTC()
	if err := s.storage.SetTaskState(ctx, task.Row, constants.TaskClaimed, userID, claimedAt); err != nil {
		return models.Task{}, fmt.Errorf("failed to claim task %d: %w", taskID, err)
	}
	task.Status = constants.TaskClaimed
	task.HolderID = userID
	task.ClaimedAt = claimedAt
	return task, nil
}

// Release returns a claimed task to the pool. Only the current holder may
// release it.
func (s *TaskService) Release(ctx context.Context, taskID, userID int64) error {
	key := taskKey(taskID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	task, err := s.storage.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != constants.TaskClaimed || task.HolderID != userID {
		return ErrNotHolder
	}

	if err := s.storage.SetTaskState(ctx, task.Row, constants.TaskAvailable, 0, time.Time{}); err != nil {
		return fmt.Errorf("failed to release task %d: %w", taskID, err)
	}
	return nil
}

// Submit moves the holder's task into review. The claim timestamp is
// cleared so the abandonment sweep ignores rows waiting on the operator.
func (s *TaskService) Submit(ctx context.Context, taskID, userID int64) error {
	key := taskKey(taskID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	task, err := s.storage.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != constants.TaskClaimed || task.HolderID != userID {
		return ErrNotHolder
	}

	if err := s.storage.SetTaskState(ctx, task.Row, constants.TaskUnderReview, userID, time.Time{}); err != nil {
		return fmt.Errorf("failed to submit task %d: %w", taskID, err)
	}
	return nil
}

// Approve completes a task under review and enqueues its reward as a
// pending payout. Replays against a row that already left review no-op
// with ErrAlreadyReviewed, so a stale operator button cannot enqueue the
// payout twice.
func (s *TaskService) Approve(ctx context.Context, taskID, userID int64) (models.Task, error) {
	key := taskKey(taskID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	task, err := s.storage.GetTask(ctx, taskID)
	if err != nil {
		return models.Task{}, err
	}
	if task.Status != constants.TaskUnderReview {
		return models.Task{}, ErrAlreadyReviewed
	}

	// Status first, payout second: a payout row must never exist for a
	// task that is not Completed.
	if err := s.storage.SetTaskState(ctx, task.Row, constants.TaskCompleted, 0, time.Time{}); err != nil {
		return models.Task{}, fmt.Errorf("failed to complete task %d: %w", taskID, err)
	}
	payout := models.PendingPayout{
		TaskID:      taskID,
		UserID:      userID,
		Reward:      task.Reward,
		ConfirmedAt: s.now().UTC(),
	}
	if err := s.storage.AppendPayout(ctx, payout); err != nil {
		return models.Task{}, fmt.Errorf("task %d completed but payout not enqueued: %w", taskID, err)
	}

	if s.referral != nil {
		if err := s.referral.GrantFirstApproval(ctx, userID); err != nil {
			log.Printf("Referral credit for user %d failed: %v", userID, err)
		}
	}

	task.Status = constants.TaskCompleted
	return task, nil
}

// Reject returns a task under review to the pool.
func (s *TaskService) Reject(ctx context.Context, taskID int64) (models.Task, error) {
	key := taskKey(taskID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	task, err := s.storage.GetTask(ctx, taskID)
	if err != nil {
		return models.Task{}, err
	}
	if task.Status != constants.TaskUnderReview {
		return models.Task{}, ErrAlreadyReviewed
	}

	if err := s.storage.SetTaskState(ctx, task.Row, constants.TaskAvailable, 0, time.Time{}); err != nil {
		return models.Task{}, fmt.Errorf("failed to reject task %d: %w", taskID, err)
	}
	task.Status = constants.TaskAvailable
	return task, nil
}

func taskKey(taskID int64) string {
	return "task:" + strconv.FormatInt(taskID, 10)
}
