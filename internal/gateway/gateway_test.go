package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tripmesh/gateway/internal/stats"
	"github.com/tripmesh/gateway/internal/testutil"
)

// newTestGateway creates a Gateway instance for testing purposes
func newTestGateway(t *testing.T, su *stats.MockStatsUpdater) *Gateway {
	su.On("RegisterMetric", mock.Anything).Return().Times(5)
	su.On("Incr", mock.Anything).Return().Maybe()
	su.On("Decr", mock.Anything).Return().Maybe()

	logger := testutil.TestLogger(t)
	g, err := NewGateway(logger, nil, nil, nil, nil, su)
	if err != nil {
		t.Fatalf("failed to create test Gateway: %v", err)
	}
	return g
}

// authenticate runs a full authenticate event for a client and drains the
// authenticated response plus, when a room is given, nothing else from
// the sender's own queue (user_joined excludes the sender).
func authenticate(t *testing.T, g *Gateway, c *Client, userID, userName, roomID string) {
	t.Helper()

	data, err := json.Marshal(AuthenticatePayload{
		UserID:   userID,
		UserName: userName,
		RoomID:   roomID,
	})
	require.NoError(t, err, "expected no error marshaling authenticate payload")

	g.Dispatch(c, &ClientFrame{Event: EventAuthenticate, Data: data})

	frame := mustRecvFrame(t, c)
	require.Equal(t, EventAuthenticated, frame.Event, "expected authenticated response, got %q", frame.Event)
}

// mustRecvFrame pops the next queued frame for a client or fails.
func mustRecvFrame(t *testing.T, c *Client) *ServerFrame {
	t.Helper()

	select {
	case frame := <-c.send:
		require.NotNil(t, frame, "expected a frame to be queued for the client")
		return frame
	default:
		t.Fatal("expected a frame to be queued for the client, but none was")
		return nil
	}
}

// assertNoFrame asserts the client's queue is empty.
func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()

	select {
	case frame := <-c.send:
		t.Fatalf("expected no frame to be queued for the client, got %q", frame.Event)
	default:
	}
}

func TestNewGateway(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("RegisterMetric", mock.Anything).Return().Times(5)

	logger := testutil.TestLogger(t)
	g, err := NewGateway(logger, nil, nil, nil, nil, su)
	assert.NoError(t, err, "expected no error creating Gateway")
	assert.NotNil(t, g, "expected Gateway to be non-nil")
	assert.Equal(t, logger, g.log, "expected logger to be set")
	assert.NotNil(t, g.registry, "expected registry to be initialized")
	assert.NotNil(t, g.rooms, "expected room table to be initialized")
	assert.NotNil(t, g.presence, "expected presence tracker to be initialized")
	assert.NotNil(t, g.notifier, "expected notifier to default to noop")
}

func TestAccept(t *testing.T) {
	g := newTestGateway(t, &stats.MockStatsUpdater{})

	c := g.Accept(nil)
	assert.NotNil(t, c, "expected Accept to return a client")
	assert.NotEmpty(t, c.ID(), "expected the client to be assigned a connection id")
	assert.Equal(t, 1, g.registry.Len(), "expected the client to be registered")

	_, bound := g.registry.Binding(c.ID())
	assert.False(t, bound, "expected no identity bound on accept")
}

func TestDisconnect(t *testing.T) {
	t.Run("bound connection leaves room and broadcasts user_left", func(t *testing.T) {
		g := newTestGateway(t, &stats.MockStatsUpdater{})

		c1 := g.Accept(nil)
		c2 := g.Accept(nil)
		authenticate(t, g, c1, "u1", "Alice", "r1")
		authenticate(t, g, c2, "u2", "Bob", "r1")
		mustRecvFrame(t, c1) // Bob's user_joined

		g.Disconnect(c1)

		assert.Equal(t, 1, g.registry.Len(), "expected only one connection to remain")
		assert.NotContains(t, g.rooms.Members("r1"), c1.ID(), "expected the connection to be removed from the room")
		assert.False(t, g.presence.IsOnline("r1", "u1"), "expected the user to be offline")

		frame := mustRecvFrame(t, c2)
		assert.Equal(t, EventUserLeft, frame.Event, "expected a user_left broadcast")
		payload, ok := frame.Data.(UserEventPayload)
		require.True(t, ok, "expected user_left payload type")
		assert.Equal(t, "u1", payload.UserID, "expected user_left for the disconnected user")
		assert.Equal(t, "Alice", payload.UserName, "expected user_left to carry the display name")
		assert.False(t, payload.Timestamp.IsZero(), "expected user_left to carry a timestamp")
	})

	t.Run("disconnect is idempotent", func(t *testing.T) {
		g := newTestGateway(t, &stats.MockStatsUpdater{})

		c1 := g.Accept(nil)
		c2 := g.Accept(nil)
		authenticate(t, g, c1, "u1", "Alice", "r1")
		authenticate(t, g, c2, "u2", "Bob", "r1")
		mustRecvFrame(t, c1) // Bob's user_joined

		g.Disconnect(c1)
		mustRecvFrame(t, c2) // first user_left

		g.Disconnect(c1)
		assertNoFrame(t, c2)
	})

	t.Run("unbound connection is removed without broadcast", func(t *testing.T) {
		g := newTestGateway(t, &stats.MockStatsUpdater{})

		c := g.Accept(nil)
		g.Disconnect(c)

		assert.Equal(t, 0, g.registry.Len(), "expected the connection to be removed")
	})

	t.Run("second connection of same user keeps presence online", func(t *testing.T) {
		g := newTestGateway(t, &stats.MockStatsUpdater{})

		c1 := g.Accept(nil)
		c2 := g.Accept(nil)
		c3 := g.Accept(nil)
		authenticate(t, g, c1, "u1", "Alice", "r1")
		authenticate(t, g, c2, "u1", "Alice", "r1")
		authenticate(t, g, c3, "u2", "Bob", "r1")

		g.Disconnect(c1)

		assert.True(t, g.presence.IsOnline("r1", "u1"), "expected the user to stay online with a second connection")

		// drain Alice's second join and Bob's join, then assert no
		// user_left was broadcast to the remaining connections
		for len(c3.send) > 0 {
			frame := <-c3.send
			assert.NotEqual(t, EventUserLeft, frame.Event, "expected no user_left while the user is still online")
		}

		g.Disconnect(c2)

		assert.False(t, g.presence.IsOnline("r1", "u1"), "expected the user offline after the last connection closed")

		snapshot := g.PresenceSnapshot("r1")
		entry, ok := snapshot["u1"]
		require.True(t, ok, "expected a presence entry for the user")
		assert.False(t, entry.IsOnline, "expected presence isOnline false")
		assert.False(t, entry.LastSeen.IsZero(), "expected lastSeen to be stamped")
	})

	t.Run("presence is dropped once the room empties", func(t *testing.T) {
		g := newTestGateway(t, &stats.MockStatsUpdater{})

		c1 := g.Accept(nil)
		c2 := g.Accept(nil)
		authenticate(t, g, c1, "u1", "Alice", "r1")
		authenticate(t, g, c2, "u2", "Bob", "r1")

		g.Disconnect(c1)

		snapshot := g.PresenceSnapshot("r1")
		require.Contains(t, snapshot, "u1", "expected the offline entry to survive while the room lives")
		assert.False(t, snapshot["u1"].IsOnline, "expected the user to be offline")

		g.Disconnect(c2)

		assert.Empty(t, g.PresenceSnapshot("r1"), "expected no presence entries after the room emptied")
	})
}

func TestGatewayShutdown(t *testing.T) {
	t.Run("successful shutdown", func(t *testing.T) {
		g := newTestGateway(t, &stats.MockStatsUpdater{})

		c := g.Accept(nil)
		go func() {
			<-c.stop
			g.Disconnect(c)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		err := g.Shutdown(ctx)
		assert.NoError(t, err, "expected no error during shutdown")
		assert.Equal(t, 0, g.registry.Len(), "expected all connections to be removed")
	})

	t.Run("shutdown times out with stuck client", func(t *testing.T) {
		g := newTestGateway(t, &stats.MockStatsUpdater{})

		g.Accept(nil)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := g.Shutdown(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "expected shutdown to time out")
	})
}
