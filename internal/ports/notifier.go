package ports

import "context"

// Notifier delivers completion messages to an external channel.
// Delivery is fire-and-forget: implementations log failures and never
// propagate them to the caller.
type Notifier interface {
	Notify(ctx context.Context, message string)
}
