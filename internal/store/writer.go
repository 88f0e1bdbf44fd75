package store

import (
	"log"

	"github.com/tripmesh/gateway/internal/types"
)

const defaultQueueSize = 512

type writeReq struct {
	msg    *types.Message
	update *types.LocationUpdate
}

// AsyncWriter decouples the gateway's real-time delivery from store
// latency. Appends are queued and written by a single background
// goroutine; when the queue is full the write is dropped and logged
// rather than blocking an event handler.
type AsyncWriter struct {
	log   *log.Logger
	store EventStore
	queue chan writeReq
	done  chan struct{}
}

func NewAsyncWriter(logger *log.Logger, es EventStore) *AsyncWriter {
	return &AsyncWriter{
		log:   logger,
		store: es,
		queue: make(chan writeReq, defaultQueueSize),
		done:  make(chan struct{}),
	}
}

func (w *AsyncWriter) Run() {
	go w.drain()
}

func (w *AsyncWriter) drain() {
	defer close(w.done)

	for req := range w.queue {
		switch {
		case req.msg != nil:
			if err := w.store.AppendMessage(*req.msg); err != nil {
				w.log.Println("append message:", err)
			}
		case req.update != nil:
			if err := w.store.AppendLocationUpdate(*req.update); err != nil {
				w.log.Println("append location update:", err)
			}
		}
	}
}

func (w *AsyncWriter) QueueMessage(msg types.Message) bool {
	return w.enqueue(writeReq{msg: &msg})
}

func (w *AsyncWriter) QueueLocationUpdate(update types.LocationUpdate) bool {
	return w.enqueue(writeReq{update: &update})
}

func (w *AsyncWriter) enqueue(req writeReq) bool {
	select {
	case w.queue <- req:
		return true
	default:
		w.log.Println("store queue full, dropping write")
		return false
	}
}

// Stop drains any queued writes and blocks until the writer exits.
func (w *AsyncWriter) Stop() {
	close(w.queue)
	<-w.done
}
