package models

import "time"

// User is a participant identified by the chat transport's actor id.
// ReferrerID is zero when the user joined without a referral link; it is
// set once at first contact and never changes afterwards.
type User struct {
	ID         int64
	Username   string
	Balance    int64
	ReferrerID int64
	// BonusPaid marks that the one-time referral bonus for this user's
	// first approved task has already been credited to the referrer.
	BonusPaid bool
	Row       int
}

type Task struct {
	ID           int64
	Platform     string
	LocationName string
	ReviewText   string
	LocationURL  string
	Stars        int
	Reward       int64
	Status       string
	HolderID     int64
	ClaimedAt    time.Time
	Row          int
}

// PendingPayout is a durable queue entry: its existence is the only record
// that an approved reward is still owed to the user.
type PendingPayout struct {
	TaskID      int64
	UserID      int64
	Reward      int64
	ConfirmedAt time.Time
	// Consumed is set immediately before the ledger credit, so a sweep
	// interrupted between credit and delete never credits twice.
	Consumed bool
	Row      int
}

// Withdrawal is keyed by its CreatedAt string; the timestamp travels in
// the operator's callback token and is matched back verbatim.
type Withdrawal struct {
	UserID       int64
	Username     string
	Amount       int64
	Skin         string
	ListingPrice int64
	CreatedAt    string
	Status       string
	Row          int
}
