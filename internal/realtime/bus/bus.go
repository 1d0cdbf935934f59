package bus

import (
	"context"

	"github.com/yungbote/ledger-backend/internal/realtime"
)

// Bus is the outbound side of the event relay: committed events leave the
// process through Publish. Consumers subscribe to the channel directly.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	Close() error
}
