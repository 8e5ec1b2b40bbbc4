package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// EventPublisher publishes events to notify other instances.
// sessionRef is a digest of the credential, never the credential itself.
type EventPublisher interface {
	PublishLogin(ctx context.Context, identity core.Identity, sessionRef string) error
	PublishLogout(ctx context.Context, identity core.Identity, sessionRef string) error
}
