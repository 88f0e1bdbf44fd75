package gateway

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tripmesh/gateway/internal/auth"
	"github.com/tripmesh/gateway/internal/notify"
	"github.com/tripmesh/gateway/internal/stats"
	"github.com/tripmesh/gateway/internal/types"
)

// Persister is the fire-and-forget sink for messages and location
// updates. Enqueueing never blocks an event handler.
type Persister interface {
	QueueMessage(msg types.Message) bool
	QueueLocationUpdate(update types.LocationUpdate) bool
}

// Gateway is the single-process coordination hub for all vacation
// parties: it owns the connection registry, room membership and presence
// tables and routes every inbound event.
type Gateway struct {
	log      *log.Logger
	registry *Registry
	rooms    *RoomTable
	presence *PresenceTracker
	resolver auth.TokenResolver
	writer   Persister
	notifier notify.Notifier
	limiter  LocationLimiter
	stats    stats.StatsProvider

	// stateLock serializes multi-step membership, presence and broadcast
	// sequences so one room's event order never interleaves
	// inconsistently. It is never held across network I/O.
	stateLock sync.Mutex
}

func NewGateway(logger *log.Logger, resolver auth.TokenResolver, writer Persister,
	notifier notify.Notifier, limiter LocationLimiter, su stats.StatsProvider) (*Gateway, error) {
	g := &Gateway{
		log:      logger,
		registry: NewRegistry(),
		rooms:    NewRoomTable(),
		presence: NewPresenceTracker(),
		resolver: resolver,
		writer:   writer,
		notifier: notifier,
		limiter:  limiter,
		stats:    su,
	}

	if g.notifier == nil {
		g.notifier = notify.NoopNotifier{}
	}

	su.RegisterMetric(stats.ActiveConnections)
	su.RegisterMetric(stats.ActiveRooms)
	su.RegisterMetric(stats.MessagesBroadcast)
	su.RegisterMetric(stats.LocationUpdates)
	su.RegisterMetric(stats.EmergencyAlerts)

	return g, nil
}

// Accept registers a newly upgraded transport and returns its client.
// The caller starts the read and write pumps.
func (g *Gateway) Accept(conn wsConn) *Client {
	c := NewClient(conn, g, g.log)
	c.id = g.registry.Register(c)
	g.stats.Incr(stats.ActiveConnections)

	g.log.Printf("accepted connection %q", c.id)

	return c
}

// Disconnect runs the cleanup contract for a closed connection: registry
// removal, room leave, presence update and a user_left broadcast when the
// user's last connection in the room is gone. Idempotent.
func (g *Gateway) Disconnect(c *Client) {
	g.stateLock.Lock()
	defer g.stateLock.Unlock()

	binding, ok := g.registry.Unregister(c.id)
	if !ok {
		return
	}

	g.stats.Decr(stats.ActiveConnections)
	g.log.Printf("removed connection %q", c.id)

	if binding.VacationID == "" {
		return
	}

	roomEmptied := g.rooms.Leave(binding.VacationID, c.id)
	if roomEmptied {
		g.stats.Decr(stats.ActiveRooms)
	}

	if g.presence.MarkOffline(binding.VacationID, binding.Identity.UserID) {
		g.broadcast(binding.VacationID, EventUserLeft, UserEventPayload{
			UserID:    binding.Identity.UserID,
			UserName:  binding.Identity.UserName,
			Timestamp: Now(),
		}, c.id)
	}

	if roomEmptied {
		g.presence.DropRoom(binding.VacationID)
	}
}

// PresenceSnapshot exposes a room's presence for the HTTP API.
func (g *Gateway) PresenceSnapshot(vacationID string) map[string]types.PresenceEntry {
	return g.presence.Snapshot(vacationID)
}

// Shutdown stops every client and waits for the registry to drain.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.log.Println("shutting down gateway")

	for _, c := range g.registry.Clients() {
		c.stopClient()
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for g.registry.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}
