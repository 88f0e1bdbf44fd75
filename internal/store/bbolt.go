package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/tripmesh/gateway/internal/types"
)

var (
	bucketMessages  = []byte("messages")
	bucketLocations = []byte("locations")
)

// BboltStore appends gateway events to a local bbolt database. Messages
// are keyed by their server-assigned id, location updates by a
// monotonically increasing sequence number.
type BboltStore struct {
	db *bbolt.DB
}

func NewBboltStore(path string) (*BboltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMessages); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketLocations); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BboltStore{db: db}, nil
}

func (s *BboltStore) Ping() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketMessages) == nil {
			return fmt.Errorf("messages bucket missing")
		}
		return nil
	})
}

func (s *BboltStore) AppendMessage(msg types.Message) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMessages)
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		return b.Put([]byte(msg.ID), data)
	})
}

func (s *BboltStore) AppendLocationUpdate(update types.LocationUpdate) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLocations)
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		data, err := json.Marshal(update)
		if err != nil {
			return fmt.Errorf("marshal location update: %w", err)
		}
		return b.Put(key, data)
	})
}

func (s *BboltStore) Close() error {
	return s.db.Close()
}
