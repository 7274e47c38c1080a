// Package driver implements the RMI wire driver: connection handshake,
// priority send queue, response fan-out, and the public façade the
// executor and session layers build on.
package driver

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

// Priority selects where a packet lands in the send queue. Immediate is
// the highest priority and bypasses pause.
type Priority int

const (
	Low Priority = iota
	Standard
	High
	Immediate
)

// DefaultQueueCapacity is the minimum bound spec.md §5 requires.
const DefaultQueueCapacity = 128

// ErrQueueFull is returned by Send when the queue has reached capacity.
var ErrQueueFull = errors.New("driver: send queue is full")

type queueEntry struct {
	requestID uint32
	packet    wire.SendPacket
}

// Queue is the four-level priority send queue described in spec.md §4.3.
// Within a level, FIFO. Immediate bypasses pause; High/Standard/Low respect
// it. send is lock-free from the caller's perspective: Send only ever holds
// the internal mutex briefly to append and signal.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	levels   [4][]queueEntry
	paused   bool
	closed   bool
	nextID   uint32
	capacity int
	logger   *zap.Logger
}

// NewQueue builds a Queue with the given capacity (bounded across all four
// levels combined) and attaches it to ctx: cancelling ctx unblocks any
// goroutine parked in Dequeue.
func NewQueue(ctx context.Context, capacity int, logger *zap.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	q := &Queue{capacity: capacity, logger: logger}
	q.cond = sync.NewCond(&q.mu)
	go func() {
		<-ctx.Done()
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		q.cond.Broadcast()
	}()
	return q
}

// Send enqueues pkt at the given priority and returns its freshly assigned
// monotonic request_id. It fails synchronously with ErrQueueFull when the
// combined queue length is at capacity. A DriverPause, DriverUnpause or
// DriverCancel pseudo-packet is applied to the queue at once instead of
// being enqueued, and returns request_id 0.
func (q *Queue) Send(pkt wire.SendPacket, priority Priority) (uint32, error) {
	switch c := pkt.(type) {
	case wire.DriverPause:
		q.Pause()
		return 0, nil
	case wire.DriverUnpause:
		q.Unpause()
		return 0, nil
	case wire.DriverCancel:
		q.Cancel(c.RequestID)
		return 0, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.length() >= q.capacity {
		return 0, ErrQueueFull
	}

	q.nextID++
	id := q.nextID
	q.levels[priority] = append(q.levels[priority], queueEntry{requestID: id, packet: pkt})
	q.cond.Signal()
	return id, nil
}

func (q *Queue) length() int {
	n := 0
	for _, lvl := range q.levels {
		n += len(lvl)
	}
	return n
}

// Pause flips the pause flag. Only Immediate-priority entries still drain
// while paused.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Unpause clears the pause flag and wakes the writer.
func (q *Queue) Unpause() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Cancel best-effort removes a not-yet-written entry. It reports whether an
// entry was actually removed; doing nothing for an already-transmitted
// request_id is not an error.
func (q *Queue) Cancel(requestID uint32) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for lvl := range q.levels {
		for i, e := range q.levels[lvl] {
			if e.requestID == requestID {
				q.levels[lvl] = append(q.levels[lvl][:i], q.levels[lvl][i+1:]...)
				return true
			}
		}
	}
	return false
}

// Dequeue blocks until a packet is ready to send, honoring pause and
// priority order, or returns ok=false once the queue's context is
// cancelled.
func (q *Queue) Dequeue() (requestID uint32, packet wire.SendPacket, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closed {
			return 0, nil, false
		}
		for lvl := Immediate; lvl >= Low; lvl-- {
			if len(q.levels[lvl]) == 0 {
				continue
			}
			if q.paused && lvl != Immediate {
				continue
			}
			e := q.levels[lvl][0]
			q.levels[lvl] = q.levels[lvl][1:]
			return e.requestID, e.packet, true
		}
		q.cond.Wait()
	}
}
