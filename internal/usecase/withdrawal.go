package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/taskgold/engine/internal/constants"
	"github.com/taskgold/engine/internal/models"
	"github.com/taskgold/engine/internal/session"
	"github.com/taskgold/engine/internal/storage"
)

var (
	ErrBelowThreshold     = errors.New("balance below withdrawal threshold")
	ErrAmountBelowMinimum = errors.New("amount below withdrawal minimum")
	ErrInvalidAmount      = errors.New("amount is not a number")
	ErrNoActiveWithdrawal = errors.New("no withdrawal in progress")
	ErrAlreadyCompleted   = errors.New("withdrawal already completed")
)

type WithdrawalStorage interface {
	AppendWithdrawal(ctx context.Context, w models.Withdrawal) error
	FindWithdrawal(ctx context.Context, createdAt string) (models.Withdrawal, error)
	SetWithdrawalStatus(ctx context.Context, rowIndex int, status string) error
}

type BalanceLedger interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	Adjust(ctx context.Context, userID, delta int64) (int64, error)
}

// Quote is what the user is instructed to list before sending proof.
type Quote struct {
	Amount       int64
	ListingPrice int64
	Skin         string
}

// WithdrawalService runs the per-user withdrawal conversation:
// Idle -> AwaitingAmount -> AwaitingProof -> Idle. No balance is touched
// before Complete, so an abandoned conversation leaves no side effects.
type WithdrawalService struct {
	storage  WithdrawalStorage
	ledger   BalanceLedger
	sessions *session.Manager
	now      func() time.Time
	pick     func(n int) int
}

func NewWithdrawalService(storage WithdrawalStorage, ledger BalanceLedger, sessions *session.Manager) *WithdrawalService {
	return &WithdrawalService{
		storage:  storage,
		ledger:   ledger,
		sessions: sessions,
		now:      time.Now,
		pick:     rand.Intn,
	}
}

// Start enters the conversation. The current balance is returned either
// way so the caller can show it with the rejection.
func (s *WithdrawalService) Start(ctx context.Context, userID int64) (int64, error) {
	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	if balance < constants.WithdrawalMinAmount {
		return balance, ErrBelowThreshold
	}

	s.sessions.Update(userID, func(sess *session.Session) {
		sess.State = session.AwaitingAmount
		sess.Amount = 0
		sess.ListingPrice = 0
		sess.Skin = ""
	})
	return balance, nil
}

// SubmitAmount validates the typed amount. Validation failures leave the
// conversation in AwaitingAmount so the user can just type again.
func (s *WithdrawalService) SubmitAmount(ctx context.Context, userID int64, text string) (Quote, error) {
	if s.sessions.Get(userID).State != session.AwaitingAmount {
		return Quote{}, ErrNoActiveWithdrawal
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return Quote{}, ErrInvalidAmount
	}
	if amount < constants.WithdrawalMinAmount {
		return Quote{}, ErrAmountBelowMinimum
	}

	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return Quote{}, err
	}
	if amount > balance {
		return Quote{}, ErrInsufficientFunds
	}

	quote := Quote{
		Amount:       amount,
		ListingPrice: int64(math.Ceil(float64(amount) / constants.PayoutFraction)),
		Skin:         constants.RareSkins[s.pick(len(constants.RareSkins))],
	}
	s.sessions.Update(userID, func(sess *session.Session) {
		sess.State = session.AwaitingProof
		sess.Amount = quote.Amount
		sess.ListingPrice = quote.ListingPrice
		sess.Skin = quote.Skin
	})
	return quote, nil
}

// Complete finalizes the withdrawal once proof has been received. The
// ledger debit happens before the request row is persisted: a pending row
// whose debit is applied late is recoverable by the operator, a debit that
// vanished after the row was persisted is not.
func (s *WithdrawalService) Complete(ctx context.Context, userID int64, username string) (models.Withdrawal, error) {
	sess := s.sessions.Get(userID)
	if sess.State != session.AwaitingProof || sess.Amount == 0 {
		return models.Withdrawal{}, ErrNoActiveWithdrawal
	}

	if _, err := s.ledger.Adjust(ctx, userID, -sess.Amount); err != nil {
		return models.Withdrawal{}, fmt.Errorf("failed to debit withdrawal: %w", err)
	}

	w := models.Withdrawal{
		UserID:       userID,
		Username:     username,
		Amount:       sess.Amount,
		Skin:         sess.Skin,
		ListingPrice: sess.ListingPrice,
		CreatedAt:    s.now().UTC().Format(storage.WithdrawalTimeFormat),
		Status:       constants.WithdrawalPending,
	}
	if err := s.storage.AppendWithdrawal(ctx, w); err != nil {
		// The debit is already applied; surface the failure instead of
		// guessing, the operator reconciles from the ledger log.
		return models.Withdrawal{}, fmt.Errorf("debited %d but failed to persist withdrawal: %w", sess.Amount, err)
	}

	s.Cancel(userID)
	return w, nil
}

// Cancel resets the withdrawal conversation without touching an active
// task claim.
func (s *WithdrawalService) Cancel(userID int64) {
	s.sessions.Update(userID, func(sess *session.Session) {
		sess.State = session.Idle
		sess.Amount = 0
		sess.ListingPrice = 0
		sess.Skin = ""
	})
}

// MarkCompleted is the operator action closing a pending request. Replays
// against an already completed request no-op with ErrAlreadyCompleted.
func (s *WithdrawalService) MarkCompleted(ctx context.Context, createdAt string) (models.Withdrawal, error) {
	w, err := s.storage.FindWithdrawal(ctx, createdAt)
	if err != nil {
		return models.Withdrawal{}, err
	}
	if w.Status == constants.WithdrawalCompleted {
		return models.Withdrawal{}, ErrAlreadyCompleted
	}

	if err := s.storage.SetWithdrawalStatus(ctx, w.Row, constants.WithdrawalCompleted); err != nil {
		return models.Withdrawal{}, err
	}
	w.Status = constants.WithdrawalCompleted
	return w, nil
}
