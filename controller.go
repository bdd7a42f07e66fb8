package stem

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/sammyshj/stem/internal/atomicint"
	"github.com/sammyshj/stem/internal/errd"
)

// replyResult is what the reader loop hands to a blocked Msg caller: the
// next non-event Message, or the error that ended the wait.
type replyResult struct {
	msg *Message
	err error
}

// generation holds everything that is specific to one connect/close
// cycle: the writer gate, reply slot, and event queue all need to start
// fresh on a reconnect, but must never be mutated in place while a
// concurrent Msg call might be reading them. A Controller swaps in a new
// generation, under stateMu, only while PreInit/Closed; Msg snapshots the
// current generation once at the top of the call and then only ever
// touches its own copy.
type generation struct {
	writeLock    chan struct{}
	replySlot    chan replyResult
	events       *eventQueue
	readerDone   chan struct{}
	dispatchDone chan struct{}
	closing      chan struct{}
}

func newGeneration() *generation {
	return &generation{
		writeLock:    make(chan struct{}, 1),
		replySlot:    make(chan replyResult),
		events:       newEventQueue(),
		readerDone:   make(chan struct{}),
		dispatchDone: make(chan struct{}),
		closing:      make(chan struct{}),
	}
}

// Controller composes the Frame Parser, Transport, reader loop, writer
// gate, event dispatcher, and status listener registry into one
// connection to a Tor control port. One Controller is constructed per
// control connection; see New, FromPort, FromSocketFile.
type Controller struct {
	transport Transport

	stateMu sync.Mutex
	state   State
	everRan bool // true once Connect has succeeded at least once; distinguishes INIT from RESET
	gen     *generation

	running atomicint.Int64 // 1 while connected

	handlerMu    sync.RWMutex
	handler      EventHandler
	eventLimiter *rate.Limiter

	statusListeners statusRegistry

	closeOnce sync.Once

	logf func(format string, v ...interface{})
}

func (c *Controller) init() {
	c.gen = newGeneration()
}

// currentGen returns the generation active for the current (or most
// recently active) connection, snapshotted under stateMu so callers never
// race a concurrent Connect/Close swapping it out.
func (c *Controller) currentGen() *generation {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.gen
}

// IsRunning reports whether the Controller is currently connected (true
// between a successful Connect and the next Close).
func (c *Controller) IsRunning() bool {
	return c.running.Load() == 1
}

// Connect starts the Controller's reader and dispatcher workers. If
// already running, Connect is a no-op. The first successful Connect
// notifies status listeners with Init; any subsequent Connect (following
// a Close) notifies with Reset, though the Controller's internal state is
// Init again immediately.
func (c *Controller) Connect() error {
	c.stateMu.Lock()
	if c.running.Load() == 1 {
		c.stateMu.Unlock()
		return nil
	}

	// Re-entering after a Close: the prior reader/dispatcher have fully
	// exited (Close joins them before returning), so a fresh generation
	// lets the workers restart cleanly without racing the old one.
	if c.everRan {
		c.gen = newGeneration()
		c.closeOnce = sync.Once{}
	}
	gen := c.gen

	c.running.Store(1)
	c.state = Init
	notifyState := Init
	if c.everRan {
		notifyState = Reset
	}
	c.everRan = true
	c.stateMu.Unlock()

	go c.readLoop(gen)
	go c.dispatchLoop(gen)

	c.statusListeners.notify(c, notifyState)
	return nil
}

// Close idempotently tears the Controller down: it marks the connection
// no longer running, shuts the transport (unblocking a pending read),
// signals the event queue and any blocked Msg caller, joins both
// workers, and notifies status listeners with Closed. Already-queued
// events are delivered before Close returns.
func (c *Controller) Close() (err error) {
	defer errd.Wrap(&err, "failed to close controller")

	c.closeOnce.Do(func() {
		gen := c.currentGen()

		c.stateMu.Lock()
		c.running.Store(0)
		c.state = Closed
		c.stateMu.Unlock()

		close(gen.closing)
		_ = c.transport.Shutdown()

		gen.events.shutdown()

		<-gen.readerDone
		<-gen.dispatchDone

		_ = c.transport.Close()

		c.statusListeners.notify(c, Closed)
	})
	return nil
}

// AddStatusListener subscribes fn to lifecycle transitions (Init, Reset,
// Closed). If async is true, fn is invoked on its own goroutine for each
// transition (fire-and-forget, no ordering guarantee relative to other
// notifications); otherwise it runs synchronously on the transitioning
// goroutine. Transitions that occurred before subscription are not
// replayed.
func (c *Controller) AddStatusListener(fn StatusListener, async bool) {
	c.statusListeners.add(fn, async)
}

// RemoveStatusListener unsubscribes fn, matched by identity.
func (c *Controller) RemoveStatusListener(fn StatusListener) {
	c.statusListeners.remove(fn)
}

// Msg normalizes cmd to a single trailing CRLF, serializes it against any
// concurrent callers via the writer gate, and blocks until the reader
// loop delivers the matching reply or the connection closes. Must never
// be called from inside an EventHandler on the same Controller.
func (c *Controller) Msg(cmd string) (msg *Message, err error) {
	defer errd.Wrap(&err, "failed to send command")

	if c.running.Load() != 1 {
		return nil, newSocketClosed("controller is not running")
	}
	gen := c.currentGen()

	normalized := normalizeCommand(cmd)

	select {
	case gen.writeLock <- struct{}{}:
	case <-gen.closing:
		return nil, newSocketClosed("controller closed while waiting for writer gate")
	}
	defer func() { <-gen.writeLock }()

	if err := c.transport.Write(normalized); err != nil {
		return nil, newSocketClosed("failed to write command: %w", err)
	}
	if err := c.transport.Flush(); err != nil {
		return nil, newSocketClosed("failed to flush command: %w", err)
	}

	select {
	case result := <-gen.replySlot:
		if result.err != nil {
			return nil, result.err
		}
		return result.msg, nil
	case <-gen.readerDone:
		return nil, newSocketClosed("connection closed while awaiting reply")
	}
}

// Send is an alias for Msg, matching the external naming spec.md uses for
// the solicited-IO operation.
func (c *Controller) Send(cmd string) (*Message, error) {
	return c.Msg(cmd)
}

func normalizeCommand(cmd string) []byte {
	for len(cmd) > 0 && (cmd[len(cmd)-1] == '\r' || cmd[len(cmd)-1] == '\n') {
		cmd = cmd[:len(cmd)-1]
	}
	return []byte(cmd + "\r\n")
}
