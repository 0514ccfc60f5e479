package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"codybuddy/internal/domain"
)

// CodeWriter persists CodeDocument updates off the broadcast path.
// Enqueue never blocks on the store; updates for one room are applied in Enqueue order.
type CodeWriter interface {
	Enqueue(update domain.CodeUpdate)
	// Pending returns the merge of every update accepted for the room that has not been
	// handed to the store yet.
	Pending(roomID string) (domain.CodeUpdate, bool)
	Close(ctx context.Context) error
}

// CodeSink receives the merged updates of a CoalescingWriter.
// repository.CodeRepository is one; the asynq task writer is another.
type CodeSink interface {
	Upsert(ctx context.Context, update domain.CodeUpdate) error
}

// CoalescingWriter applies updates off the caller's goroutine. Each room has at most one
// write in flight; updates arriving meanwhile are merged into a single pending update, so a
// burst of edits costs at most two writes and the last accepted edit always lands last.
type CoalescingWriter struct {
	sink         CodeSink
	writeTimeout time.Duration

	mu       sync.Mutex
	idle     *sync.Cond
	pending  map[string]domain.CodeUpdate
	accepted map[string]domain.CodeUpdate // pending plus in flight, per room
	draining map[string]bool
	closed   bool
}

// NewCoalescingWriter creates a CoalescingWriter. writeTimeout bounds each Upsert.
func NewCoalescingWriter(sink CodeSink, writeTimeout time.Duration) *CoalescingWriter {
	if sink == nil {
		panic("CodeSink cannot be nil for CoalescingWriter")
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	w := &CoalescingWriter{
		sink:         sink,
		writeTimeout: writeTimeout,
		pending:      make(map[string]domain.CodeUpdate),
		accepted:     make(map[string]domain.CodeUpdate),
		draining:     make(map[string]bool),
	}
	w.idle = sync.NewCond(&w.mu)
	return w
}

// Enqueue records the update and starts a drain goroutine for the room if none is running
func (w *CoalescingWriter) Enqueue(update domain.CodeUpdate) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		logrus.WithField("room_id", update.RoomID).Warn("CodeWriter: update dropped after close")
		return
	}

	if prev, ok := w.pending[update.RoomID]; ok {
		w.pending[update.RoomID] = prev.Merge(update)
	} else {
		w.pending[update.RoomID] = update
	}
	if prev, ok := w.accepted[update.RoomID]; ok {
		w.accepted[update.RoomID] = prev.Merge(update)
	} else {
		w.accepted[update.RoomID] = update
	}

	if !w.draining[update.RoomID] {
		w.draining[update.RoomID] = true
		go w.drain(update.RoomID)
	}
}

func (w *CoalescingWriter) drain(roomID string) {
	logCtx := logrus.WithFields(logrus.Fields{"component": "code_writer", "room_id": roomID})
	for {
		w.mu.Lock()
		update, ok := w.pending[roomID]
		if !ok {
			// everything accepted for the room has been handed over
			delete(w.accepted, roomID)
			delete(w.draining, roomID)
			if len(w.draining) == 0 {
				w.idle.Broadcast()
			}
			w.mu.Unlock()
			return
		}
		delete(w.pending, roomID)
		w.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
		if err := w.sink.Upsert(ctx, update); err != nil {
			logCtx.WithError(err).Error("Failed to persist code update")
		}
		cancel()
	}
}

// Pending implements CodeWriter
func (w *CoalescingWriter) Pending(roomID string) (domain.CodeUpdate, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	update, ok := w.accepted[roomID]
	return update, ok
}

// Flush waits until every update enqueued so far has been written, or ctx ends
func (w *CoalescingWriter) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.mu.Lock()
		for len(w.draining) > 0 {
			w.idle.Wait()
		}
		w.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting updates and drains what is pending
func (w *CoalescingWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.Flush(ctx)
}
