package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmesh/gateway/internal/stats"
)

func TestBroadcast(t *testing.T) {
	t.Run("delivers to every member", func(t *testing.T) {
		g := newTestGateway(t, &stats.MockStatsUpdater{})
		c1 := g.Accept(nil)
		c2 := g.Accept(nil)
		c3 := g.Accept(nil)
		for _, c := range []*Client{c1, c2, c3} {
			g.rooms.Join("r1", c.ID())
		}

		delivered := g.broadcast("r1", EventUserTyping, UserTypingPayload{UserID: "u1", IsTyping: true}, "")
		assert.Equal(t, 3, delivered, "expected delivery to every member")

		for _, c := range []*Client{c1, c2, c3} {
			frame := mustRecvFrame(t, c)
			assert.Equal(t, EventUserTyping, frame.Event, "expected the broadcast event")
		}
	})

	t.Run("excludes the given connection", func(t *testing.T) {
		g := newTestGateway(t, &stats.MockStatsUpdater{})
		c1 := g.Accept(nil)
		c2 := g.Accept(nil)
		g.rooms.Join("r1", c1.ID())
		g.rooms.Join("r1", c2.ID())

		delivered := g.broadcast("r1", EventUserTyping, UserTypingPayload{UserID: "u1", IsTyping: true}, c1.ID())
		assert.Equal(t, 1, delivered, "expected delivery only to the other member")

		assertNoFrame(t, c1)
		mustRecvFrame(t, c2)
	})

	t.Run("skips unregistered members", func(t *testing.T) {
		g := newTestGateway(t, &stats.MockStatsUpdater{})
		c := g.Accept(nil)
		g.rooms.Join("r1", c.ID())
		g.rooms.Join("r1", "gone")

		delivered := g.broadcast("r1", EventUserTyping, UserTypingPayload{UserID: "u1"}, "")
		assert.Equal(t, 1, delivered, "expected the stale member to be skipped")
	})

	t.Run("full send queue drops the frame", func(t *testing.T) {
		g := newTestGateway(t, &stats.MockStatsUpdater{})
		c := g.Accept(nil)
		g.rooms.Join("r1", c.ID())

		for i := 0; i < cap(c.send); i++ {
			require.True(t, c.queueFrame(&ServerFrame{Event: EventUserTyping}), "expected room in the queue")
		}

		delivered := g.broadcast("r1", EventUserTyping, UserTypingPayload{UserID: "u1"}, "")
		assert.Equal(t, 0, delivered, "expected the frame to be dropped for a full queue")
	})

	t.Run("empty room delivers nothing", func(t *testing.T) {
		g := newTestGateway(t, &stats.MockStatsUpdater{})

		delivered := g.broadcast("nowhere", EventUserTyping, UserTypingPayload{UserID: "u1"}, "")
		assert.Equal(t, 0, delivered, "expected no delivery for an unknown room")
	})
}
