package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tripmesh/gateway/internal/testutil"
	"github.com/tripmesh/gateway/internal/types"
)

func TestAsyncWriter(t *testing.T) {
	t.Run("queued writes reach the store", func(t *testing.T) {
		es := &MockEventStore{}
		defer es.AssertExpectations(t)

		msg := types.Message{ID: "m1", VacationID: "r1"}
		update := types.LocationUpdate{UserID: "u1", VacationID: "r1"}
		es.On("AppendMessage", msg).Return(nil).Once()
		es.On("AppendLocationUpdate", update).Return(nil).Once()

		w := NewAsyncWriter(testutil.TestLogger(t), es)
		w.Run()

		assert.True(t, w.QueueMessage(msg), "expected the message to be queued")
		assert.True(t, w.QueueLocationUpdate(update), "expected the update to be queued")

		w.Stop()
	})

	t.Run("store errors do not stop the writer", func(t *testing.T) {
		es := &MockEventStore{}
		defer es.AssertExpectations(t)

		es.On("AppendMessage", mock.Anything).Return(assert.AnError).Once()
		es.On("AppendLocationUpdate", mock.Anything).Return(nil).Once()

		w := NewAsyncWriter(testutil.TestLogger(t), es)
		w.Run()

		assert.True(t, w.QueueMessage(types.Message{ID: "m1"}), "expected the message to be queued")
		assert.True(t, w.QueueLocationUpdate(types.LocationUpdate{UserID: "u1"}), "expected the update to be queued")

		w.Stop()
	})

	t.Run("full queue drops the write", func(t *testing.T) {
		w := &AsyncWriter{
			log:   testutil.TestLogger(t),
			store: &MockEventStore{},
			queue: make(chan writeReq, 1),
			done:  make(chan struct{}),
		}

		assert.True(t, w.QueueMessage(types.Message{ID: "m1"}), "expected room in the queue")
		assert.False(t, w.QueueMessage(types.Message{ID: "m2"}), "expected the write to be dropped when the queue is full")
	})

	t.Run("stop drains pending writes", func(t *testing.T) {
		es := &MockEventStore{}
		defer es.AssertExpectations(t)
		es.On("AppendMessage", mock.Anything).Return(nil).Times(10)

		w := NewAsyncWriter(testutil.TestLogger(t), es)
		for i := 0; i < 10; i++ {
			assert.True(t, w.QueueMessage(types.Message{ID: "m"}), "expected room in the queue")
		}

		// Run after queueing so Stop has a backlog to drain.
		w.Run()
		w.Stop()
	})
}
