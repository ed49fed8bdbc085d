package usecase

import "context"

// Notifier delivers an outbound message to a user via the chat transport.
// Delivery is best effort; callers must not treat a failure as fatal.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}
