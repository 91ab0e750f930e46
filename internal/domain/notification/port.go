package notification

import "context"

type Repo interface {
	Create(ctx context.Context, n *Notification) error
	// Finalize sets the error field to its terminal value. It only applies
	// while the row still carries the Sending sentinel.
	Finalize(ctx context.Context, id int64, errMsg string) error
	LatestForChannel(ctx context.Context, channelID int64) (*Notification, error)
}
