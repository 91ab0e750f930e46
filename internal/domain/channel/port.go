package channel

import (
	"context"

	"github.com/google/uuid"
)

type Repo interface {
	Create(ctx context.Context, ch *Channel) error
	GetByCode(ctx context.Context, code uuid.UUID) (*Channel, error)
	ListByUser(ctx context.Context, userID int64) ([]*Channel, error)
	ListByCheck(ctx context.Context, checkID int64) ([]*Channel, error)
	// UpdateValue rewrites the configuration payload, e.g. after an OAuth
	// token refresh.
	UpdateValue(ctx context.Context, id int64, value string) error
	SetEmailVerified(ctx context.Context, id int64) error
	Attach(ctx context.Context, channelID, checkID int64) error
	Detach(ctx context.Context, channelID, checkID int64) error
	Delete(ctx context.Context, id int64) error
}
