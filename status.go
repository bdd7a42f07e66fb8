package stem

import (
	"reflect"
	"sync"
	"time"

	"github.com/sammyshj/stem/internal/xsync"
)

// State is one of the Controller lifecycle states a status listener can
// observe.
type State int

const (
	// PreInit is the state of a freshly constructed Controller that has
	// not yet had Connect called on it.
	PreInit State = iota
	// Init is the state of a running, connected Controller.
	Init
	// Closed is the state after Close.
	Closed
	// Reset is never the Controller's stored state — it is the value
	// delivered to listeners when a Connect follows a prior Close;
	// internally the Controller is Init again immediately.
	Reset
)

func (s State) String() string {
	switch s {
	case PreInit:
		return "PRE_INIT"
	case Init:
		return "INIT"
	case Closed:
		return "CLOSED"
	case Reset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// StatusListener is notified of Controller lifecycle transitions. It must
// not call Msg/Send on the same Controller that invoked it synchronously
// (async == false) — the dispatcher and writer gate are independent of
// status notification, but a synchronous listener runs on the
// transitioning thread, which may itself be inside Close or Connect.
type StatusListener func(c *Controller, state State, timestamp time.Time)

type statusEntry struct {
	fn    StatusListener
	async bool
}

// statusRegistry fans out lifecycle transitions to subscribers. Listeners
// added after a transition do not receive it retroactively; the registry
// mutex is never held while invoking a listener, so a listener calling
// Add/RemoveStatusListener from inside its own callback cannot deadlock.
type statusRegistry struct {
	mu        sync.Mutex
	listeners []statusEntry
}

func (r *statusRegistry) add(fn StatusListener, async bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, statusEntry{fn: fn, async: async})
}

func (r *statusRegistry) remove(fn StatusListener) {
	fnPtr := reflect.ValueOf(fn).Pointer()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.listeners {
		if reflect.ValueOf(e.fn).Pointer() == fnPtr {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// notify snapshots the current listeners under the lock, then invokes
// them without holding it — synchronous listeners run in transition
// order on the caller's goroutine; async listeners run on their own
// goroutine via internal/xsync, with no ordering guarantee relative to
// each other or to the synchronous listeners.
func (r *statusRegistry) notify(c *Controller, state State) {
	timestamp := time.Now()

	r.mu.Lock()
	snapshot := make([]statusEntry, len(r.listeners))
	copy(snapshot, r.listeners)
	r.mu.Unlock()

	for _, e := range snapshot {
		e := e
		if e.async {
			xsync.Go(func() error {
				e.fn(c, state, timestamp)
				return nil
			})
			continue
		}
		e.fn(c, state, timestamp)
	}
}
