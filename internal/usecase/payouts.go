package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/taskgold/engine/internal/constants"
	"github.com/taskgold/engine/internal/models"
)

type PayoutStorage interface {
	ListPayouts(ctx context.Context) ([]models.PendingPayout, error)
	MarkPayoutConsumed(ctx context.Context, rowIndex int) error
	ClearPayoutConsumed(ctx context.Context, rowIndex int) error
	DeletePayout(ctx context.Context, rowIndex int) error
}

// PayoutSweeper reconciles the deferred payout queue: every pending payout
// older than the cool-down is credited to the ledger exactly once, however
// many times the sweep is re-run over the same rows.
//
// The consumed marker is written before the credit. When the credit
// fails the marker is cleared again so a later sweep retries the row;
// a marker that survives means the sweep died between credit and delete,
// and it stops the next sweep from crediting again. At-most-once is the
// invariant, double credit the failure mode being bought out.
type PayoutSweeper struct {
	storage  PayoutStorage
	ledger   BalanceLedger
	notifier Notifier
	cooldown time.Duration
	now      func() time.Time
}

func NewPayoutSweeper(storage PayoutStorage, ledger BalanceLedger, notifier Notifier) *PayoutSweeper {
	return &PayoutSweeper{
		storage:  storage,
		ledger:   ledger,
		notifier: notifier,
		cooldown: constants.PayoutCooldown,
		now:      time.Now,
	}
}

// Run processes one sweep and returns how many payouts were credited.
// Per-row failures are logged and skipped so one bad row cannot block the
// batch.
func (s *PayoutSweeper) Run(ctx context.Context) (int, error) {
	payouts, err := s.storage.ListPayouts(ctx)
	if err != nil {
		return 0, fmt.Errorf("payout sweep: %w", err)
	}

	credited := 0
	var deletes []int
	now := s.now().UTC()
	for _, p := range payouts {
		if p.Consumed {
			// Credited on an earlier sweep whose delete failed.
			deletes = append(deletes, p.Row)
			continue
		}
		if p.ConfirmedAt.IsZero() || now.Sub(p.ConfirmedAt) < s.cooldown {
			continue
		}

		if err := s.storage.MarkPayoutConsumed(ctx, p.Row); err != nil {
			log.Printf("Payout sweep: failed to mark task %d consumed: %v", p.TaskID, err)
			continue
		}
		newBalance, err := s.ledger.Adjust(ctx, p.UserID, p.Reward)
		if err != nil {
			log.Printf("Payout sweep: failed to credit %d to user %d (task %d): %v", p.Reward, p.UserID, p.TaskID, err)
			// Put the row back in play so a later sweep retries the credit.
			if clearErr := s.storage.ClearPayoutConsumed(ctx, p.Row); clearErr != nil {
				log.Printf("Payout sweep: failed to clear marker for task %d, row needs manual review: %v", p.TaskID, clearErr)
			}
			continue
		}
		credited++
		deletes = append(deletes, p.Row)

		if s.notifier != nil {
			text := fmt.Sprintf("✅ %d gold credited for task %d. Your balance: %d.", p.Reward, p.TaskID, newBalance)
			if err := s.notifier.Notify(ctx, p.UserID, text); err != nil {
				log.Printf("Payout sweep: failed to notify user %d: %v", p.UserID, err)
			}
		}
	}

	// Descending order so earlier deletes do not shift the later indexes.
	sort.Sort(sort.Reverse(sort.IntSlice(deletes)))
	for _, row := range deletes {
		if err := s.storage.DeletePayout(ctx, row); err != nil {
			log.Printf("Payout sweep: failed to delete row %d: %v", row, err)
		}
	}

	log.Printf("Payout sweep finished: %d credited, %d rows removed", credited, len(deletes))
	return credited, nil
}
