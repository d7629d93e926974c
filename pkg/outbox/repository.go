package outbox

import "context"

// Repository persists outbox messages. Append joins the caller's
// transaction when ctx is a mongo session context.
type Repository interface {
	Append(ctx context.Context, messages ...*Message) error
	// Pending returns unsent messages with fewer than maxAttempts tries, oldest first
	Pending(ctx context.Context, limit, maxAttempts int) ([]*Message, error)
	MarkSent(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id string, cause error) error
	ForKey(ctx context.Context, key string) ([]*Message, error)
}
