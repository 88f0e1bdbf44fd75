package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/tripmesh/gateway/internal/types"
)

func newTestStore(t *testing.T) *BboltStore {
	t.Helper()

	s, err := NewBboltStore(filepath.Join(t.TempDir(), "gateway.db"))
	require.NoError(t, err, "failed to open test store")
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close test store: %v", err)
		}
	})
	return s
}

func TestNewBboltStore(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(), "expected a fresh store to be healthy")
}

func TestAppendMessage(t *testing.T) {
	s := newTestStore(t)

	msg := types.Message{
		ID:         "m1",
		UserID:     "u1",
		UserName:   "Alice",
		VacationID: "r1",
		Content:    "Meet at castle",
		Type:       types.MessageTypeText,
		Reactions:  map[string][]string{},
		Timestamp:  time.Now().UTC().Round(time.Millisecond),
	}

	require.NoError(t, s.AppendMessage(msg), "expected no error appending a message")

	var stored types.Message
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketMessages).Get([]byte("m1"))
		require.NotNil(t, raw, "expected the message to be stored under its id")
		return json.Unmarshal(raw, &stored)
	})
	require.NoError(t, err, "expected no error reading the message back")
	assert.Equal(t, msg, stored, "expected the stored message to round trip")
}

func TestAppendLocationUpdate(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		update := types.LocationUpdate{
			UserID:     "u1",
			VacationID: "r1",
			Latitude:   28.3,
			Longitude:  -81.5,
			Timestamp:  time.Now().UTC().Round(time.Millisecond),
		}
		require.NoError(t, s.AppendLocationUpdate(update), "expected no error appending update %d", i)
	}

	var count int
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLocations).ForEach(func(k, v []byte) error {
			count++
			return nil
		})
	})
	require.NoError(t, err, "expected no error scanning the locations bucket")
	assert.Equal(t, 3, count, "expected every update to get its own sequence key")
}
