package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/taskgold/engine/internal/constants"
	"github.com/taskgold/engine/internal/locker"
	"github.com/taskgold/engine/internal/models"
)

type ReclaimStorage interface {
	GetTask(ctx context.Context, taskID int64) (models.Task, error)
	ListTasks(ctx context.Context) ([]models.Task, error)
	SetTaskState(ctx context.Context, rowIndex int, status string, holderID int64, claimedAt time.Time) error
}

// Reclaimer returns timed-out claims to the pool. Rows under review are
// naturally exempt because Submit cleared their claim timestamp. It shares
// the per-task locks with TaskService so a reclaim cannot interleave with
// a live claim or submit on the same row.
type Reclaimer struct {
	storage  ReclaimStorage
	locks    *locker.KeyedMutex
	notifier Notifier
	timeout  time.Duration
	now      func() time.Time
}

func NewReclaimer(storage ReclaimStorage, locks *locker.KeyedMutex, notifier Notifier) *Reclaimer {
	return &Reclaimer{
		storage:  storage,
		locks:    locks,
		notifier: notifier,
		timeout:  constants.AbandonTimeout,
		now:      time.Now,
	}
}

// Run sweeps once and returns the number of reclaimed tasks.
func (r *Reclaimer) Run(ctx context.Context) (int, error) {
	tasks, err := r.storage.ListTasks(ctx)
	if err != nil {
		return 0, fmt.Errorf("abandonment sweep: %w", err)
	}

	reclaimed := 0
	now := r.now().UTC()
	for _, t := range tasks {
		if t.Status != constants.TaskClaimed || t.ClaimedAt.IsZero() {
			continue
		}
		if now.Sub(t.ClaimedAt) <= r.timeout {
			continue
		}
		if err := r.reclaim(ctx, t); err != nil {
			log.Printf("Abandonment sweep: failed to reclaim task %d: %v", t.ID, err)
			continue
		}
		reclaimed++
	}

	log.Printf("Abandonment sweep finished: %d tasks returned", reclaimed)
	return reclaimed, nil
}

func (r *Reclaimer) reclaim(ctx context.Context, stale models.Task) error {
	key := taskKey(stale.ID)
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	// Re-read under the lock: the holder may have submitted or released
	// between the sweep's list and now.
	task, err := r.storage.GetTask(ctx, stale.ID)
	if err != nil {
		return err
	}
	if task.Status != constants.TaskClaimed || task.ClaimedAt.IsZero() {
		return nil
	}
	if r.now().UTC().Sub(task.ClaimedAt) <= r.timeout {
		return nil
	}

	holder := task.HolderID
	if err := r.storage.SetTaskState(ctx, task.Row, constants.TaskAvailable, 0, time.Time{}); err != nil {
		return err
	}

	if r.notifier != nil && holder != 0 {
		text := fmt.Sprintf("⏳ You did not send a screenshot for task %d in time. It has been returned to the available pool.", task.ID)
		if err := r.notifier.Notify(ctx, holder, text); err != nil {
			log.Printf("Abandonment sweep: failed to notify user %d: %v", holder, err)
		}
	}
	return nil
}
