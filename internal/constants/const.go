package constants

import "time"

// Task statuses as stored in the Status column of the Tasks table.
const (
	TaskAvailable   = "Available"
	TaskClaimed     = "Claimed"
	TaskUnderReview = "UnderReview"
	TaskCompleted   = "Completed"
)

// Withdrawal request statuses.
const (
	WithdrawalPending   = "pending"
	WithdrawalCompleted = "completed"
)

const (
	ReferralBonus       = 10
	WithdrawalMinAmount = 25

	// Listing price is amount / PayoutFraction, rounded up, so the
	// marketplace fee on the listing does not eat into the payout.
	PayoutFraction = 0.8

	AbandonTimeout = 30 * time.Minute
	PayoutCooldown = 24 * time.Hour
)

const (
	DefaultPayoutCronSpec  = "0 * * * *"
	DefaultReclaimCronSpec = "*/10 * * * *"
)

// RareSkins is the pool a withdrawal listing item is drawn from.
var RareSkins = []string{
	"M4 | Flock",
	"UMP45 | Arid",
	"Tec-9 | Tie Dye",
	"MAC-10 | Corrode",
	"MAC-10 | Arid",
	"USP | Corrode",
	"USP | Ghosts",
}
