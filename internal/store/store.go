package store

import (
	"github.com/tripmesh/gateway/internal/types"
)

// EventStore is the persistence sink consumed by the gateway. The gateway
// treats it as fire-and-forget: failures are logged by the caller, never
// surfaced to clients.
type EventStore interface {
	Ping() error
	AppendMessage(msg types.Message) error
	AppendLocationUpdate(update types.LocationUpdate) error
	Close() error
}
