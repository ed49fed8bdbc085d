package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/taskgold/engine/internal/constants"
	"github.com/taskgold/engine/internal/models"
	"github.com/taskgold/engine/internal/storage"
)

type ReferralStorage interface {
	GetUser(ctx context.Context, userID int64) (models.User, error)
	SetBonusPaid(ctx context.Context, rowIndex int) error
}

// ReferralService credits the referrer of a user whose task was approved.
// The bonus fires at most once per referred user, guarded by the durable
// BonusPaid marker on the referred user's row; the marker is written
// before the credit, same at-most-once ordering as the payout sweep.
type ReferralService struct {
	storage  ReferralStorage
	ledger   BalanceLedger
	notifier Notifier
	bonus    int64
}

func NewReferralService(storage ReferralStorage, ledger BalanceLedger, notifier Notifier) *ReferralService {
	return &ReferralService{
		storage:  storage,
		ledger:   ledger,
		notifier: notifier,
		bonus:    constants.ReferralBonus,
	}
}

func (s *ReferralService) GrantFirstApproval(ctx context.Context, userID int64) error {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to read referred user: %w", err)
	}
	if user.ReferrerID == 0 || user.BonusPaid {
		return nil
	}

	if err := s.storage.SetBonusPaid(ctx, user.Row); err != nil {
		return fmt.Errorf("failed to set bonus marker for user %d: %w", userID, err)
	}

	newBalance, err := s.ledger.Adjust(ctx, user.ReferrerID, s.bonus)
	if errors.Is(err, storage.ErrUserNotFound) {
		log.Printf("Referrer %d of user %d no longer exists, bonus dropped", user.ReferrerID, userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to credit referrer %d: %w", user.ReferrerID, err)
	}

	if s.notifier != nil {
		text := fmt.Sprintf("🎉 Your referral @%s completed their first task! You earned %d gold.\nNew balance: %d.", user.Username, s.bonus, newBalance)
		if err := s.notifier.Notify(ctx, user.ReferrerID, text); err != nil {
			log.Printf("Failed to notify referrer %d: %v", user.ReferrerID, err)
		}
	}
	return nil
}
