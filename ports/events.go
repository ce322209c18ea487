package ports

import (
	"context"

	"github.com/lunark-labs/drip/core"
)

// EventPublisher notifies other components about auth and claim milestones.
type EventPublisher interface {
	PublishLogin(ctx context.Context, address, sessionID string) error
	PublishLogout(ctx context.Context, address string) error
	PublishClaimConfirmed(ctx context.Context, claim *core.ClaimTransaction) error
}
