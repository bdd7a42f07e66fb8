package stem

import (
	"fmt"
	"log"
	"net"

	"golang.org/x/time/rate"
)

// ControllerOption configures a Controller at construction time, mirroring
// the teacher's functional-option-shaped DialOptions/AcceptOptions.
type ControllerOption func(*Controller)

// WithLogf overrides the default log.Printf sink used for logging
// discarded ProtocolErrors and other non-fatal diagnostics.
func WithLogf(logf func(format string, v ...interface{})) ControllerOption {
	return func(c *Controller) {
		c.logf = logf
	}
}

// WithEventRateLimiter paces event-handler invocations: the dispatcher
// waits on limiter before each call to the registered EventHandler. It
// is never applied to the reader loop, which must never stall. This is
// the explicit backpressure knob spec.md's concurrency model leaves as a
// caller decision.
func WithEventRateLimiter(limiter *rate.Limiter) ControllerOption {
	return func(c *Controller) {
		c.eventLimiter = limiter
	}
}

// New wraps an already-open Transport in a Controller. The Controller is
// constructed in the PreInit state; call Connect to start it.
func New(t Transport, opts ...ControllerOption) *Controller {
	c := &Controller{
		transport: t,
		state:     PreInit,
		logf:      log.Printf,
	}
	c.init()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromPort opens a TCP connection to a Tor control port at host:port and
// returns a Controller over it, constructed but not yet Connect-ed. An
// empty host defaults to "127.0.0.1".
func FromPort(host string, port int, opts ...ControllerOption) (*Controller, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, newSocketError("failed to connect to %s: %w", addr, err)
	}
	return New(newNetTransport(conn), opts...), nil
}

// FromSocketFile opens a Unix domain socket connection to a Tor control
// port at path and returns a Controller over it, constructed but not yet
// Connect-ed.
func FromSocketFile(path string, opts ...ControllerOption) (*Controller, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, newSocketError("failed to connect to socket %s: %w", path, err)
	}
	return New(newNetTransport(conn), opts...), nil
}
