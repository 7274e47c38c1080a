package driver

import (
	"sync"

	"go.uber.org/zap"
)

// SentInstructionInfo is published the moment a packet is placed on the
// wire: request_id is known immediately, sequence_id is read from the
// instruction body (or synthesized to 0 for non-motion packets).
type SentInstructionInfo struct {
	RequestID  uint32
	SequenceID uint32
}

// Bus is a single-publisher, multi-subscriber broadcast channel: every
// currently attached subscriber receives every message. A subscriber that
// falls behind is dropped from a non-blocking send and must resynchronize
// from state rather than rely on individual frames, matching spec.md §4.4's
// lag-tolerant discipline and grounded on the teacher's Hub broadcast
// pattern (internal/server/hub.go).
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   map[int]chan T
	nextID int
	logger *zap.Logger
	name   string
}

// NewBus constructs an empty bus. name is used only in lag warnings.
func NewBus[T any](name string, logger *zap.Logger) *Bus[T] {
	return &Bus[T]{subs: make(map[int]chan T), logger: logger, name: name}
}

// Subscribe attaches a new receiver with a modest buffer; callers must
// drain it promptly or risk the lag-drop below.
func (b *Bus[T]) Subscribe() (id int, ch <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id = b.nextID
	c := make(chan T, 64)
	b.subs[id] = c
	return id, c
}

// Unsubscribe detaches a subscriber and closes its channel. Safe to call
// more than once.
func (b *Bus[T]) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(c)
	}
}

// Publish fans msg out to every subscriber. A subscriber whose buffer is
// full is logged as lagged and skipped for this message; the bus never
// blocks on a slow reader.
func (b *Bus[T]) Publish(msg T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, c := range b.subs {
		select {
		case c <- msg:
		default:
			if b.logger != nil {
				b.logger.Warn("subscriber lagged, message dropped",
					zap.String("bus", b.name), zap.Int("subscriber", id))
			}
		}
	}
}
