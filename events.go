package stem

import (
	"context"
	"sync"
)

// EventHandler receives asynchronous events (status code 650) the daemon
// emits out of band. It runs synchronously on the Controller's dispatcher
// goroutine — a slow handler delays only further event delivery, never
// the reader loop reading the socket.
//
// EventHandler must never call Msg/Send on the same Controller: while
// such a call waits for its reply, the dispatcher delivers no further
// events.
type EventHandler func(msg *Message)

// eventQueue is a FIFO of pending event Messages with its own mutex and
// condition variable, drained strictly in enqueue order by the
// dispatcher goroutine.
type eventQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []*Message
	closed  bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) push(msg *Message) {
	q.mu.Lock()
	q.pending = append(q.pending, msg)
	q.mu.Unlock()
	q.cond.Signal()
}

// shutdown marks the queue closed and wakes the dispatcher. Already
// queued messages are not discarded — the dispatcher drains them before
// observing closed.
func (q *eventQueue) shutdown() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Signal()
}

// pop blocks until a message is available or the queue is closed and
// empty, in which case ok is false.
func (q *eventQueue) pop() (msg *Message, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) == 0 {
		if q.closed {
			return nil, false
		}
		q.cond.Wait()
	}
	msg = q.pending[0]
	q.pending = q.pending[1:]
	return msg, true
}

// dispatchLoop drains the event queue one Message at a time, invoking
// the registered EventHandler. It exits only once the queue has been
// shut down and drained — events enqueued before Close must still be
// delivered before Close returns (spec's event completeness property).
//
// gen is fixed at spawn time by Connect and never re-read off the
// Controller, so a concurrent reconnect swapping in a new generation
// cannot be observed mid-loop.
func (c *Controller) dispatchLoop(gen *generation) {
	defer close(gen.dispatchDone)

	for {
		msg, ok := gen.events.pop()
		if !ok {
			return
		}

		if c.eventLimiter != nil {
			_ = c.eventLimiter.Wait(context.Background())
		}

		c.handlerMu.RLock()
		handler := c.handler
		c.handlerMu.RUnlock()

		if handler != nil {
			handler(msg)
		}
	}
}

// SetEventHandler registers the callback invoked for each asynchronous
// event. It replaces any previously registered handler. Passing nil
// silently drops events (they are still consumed off the queue, just not
// delivered) rather than panicking the dispatcher.
func (c *Controller) SetEventHandler(h EventHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handler = h
}
