package stem

import (
	"sync"
	"testing"
	"time"

	"github.com/sammyshj/stem/internal/test/assert"
	"github.com/sammyshj/stem/internal/test/pipetest"
)

func newTestController(t *testing.T) (*Controller, *pipetest.Daemon) {
	t.Helper()

	conn, daemon := pipetest.Pipe()
	c := New(newNetTransport(conn), WithLogf(func(string, ...interface{}) {}))
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c, daemon
}

func TestController_msgRoundTrip(t *testing.T) {
	t.Parallel()

	c, daemon := newTestController(t)
	assert.Success(t, c.Connect())

	done := make(chan struct{})
	go func() {
		defer close(done)

		line, err := daemon.ReadLine()
		assert.Success(t, err)
		assert.Equal(t, "command", "GETINFO version", line)
		assert.Success(t, daemon.Send("250-version=0.4.7.13\r\n250 OK\r\n"))
	}()

	msg, err := c.Msg("GETINFO version\r\n")
	assert.Success(t, err)
	assert.Equal(t, "status", "250", msg.StatusCode(-1))

	<-done
}

func TestController_msgNormalizesCRLF(t *testing.T) {
	t.Parallel()

	c, daemon := newTestController(t)
	assert.Success(t, c.Connect())

	done := make(chan struct{})
	go func() {
		defer close(done)

		line, err := daemon.ReadLine()
		assert.Success(t, err)
		assert.Equal(t, "command", "QUIT", line)
		assert.Success(t, daemon.Send("250 closing connection\r\n"))
	}()

	_, err := c.Msg("QUIT")
	assert.Success(t, err)
	<-done
}

func TestController_eventsDoNotBlockReplies(t *testing.T) {
	t.Parallel()

	c, daemon := newTestController(t)

	received := make(chan *Message, 4)
	c.SetEventHandler(func(msg *Message) {
		received <- msg
	})
	assert.Success(t, c.Connect())

	go func() {
		_ = daemon.Send("650 CIRC 1 LAUNCHED\r\n")
		line, err := daemon.ReadLine()
		if err != nil {
			return
		}
		if line == "GETINFO version" {
			_ = daemon.Send("250 OK\r\n")
		}
	}()

	_, err := c.Msg("GETINFO version")
	assert.Success(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "is event", true, msg.IsEvent())
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestController_statusListeners(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(t)

	var mu sync.Mutex
	var seen []State
	c.AddStatusListener(func(_ *Controller, state State, _ time.Time) {
		mu.Lock()
		seen = append(seen, state)
		mu.Unlock()
	}, false)

	assert.Success(t, c.Connect())
	assert.Success(t, c.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "transitions", []State{Init, Closed}, seen)
}

func TestController_reconnectNotifiesReset(t *testing.T) {
	t.Parallel()

	conn1, daemon1 := pipetest.Pipe()
	c := New(newNetTransport(conn1), WithLogf(func(string, ...interface{}) {}))
	defer c.Close()

	var mu sync.Mutex
	var seen []State
	c.AddStatusListener(func(_ *Controller, state State, _ time.Time) {
		mu.Lock()
		seen = append(seen, state)
		mu.Unlock()
	}, false)

	assert.Success(t, c.Connect())
	assert.Success(t, c.Close())
	_ = daemon1

	conn2, _ := pipetest.Pipe()
	c.transport = newNetTransport(conn2)
	assert.Success(t, c.Connect())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "transitions", []State{Init, Closed, Reset}, seen)
}

func TestController_msgAfterCloseFails(t *testing.T) {
	t.Parallel()

	c, _ := newTestController(t)
	assert.Success(t, c.Connect())
	assert.Success(t, c.Close())

	_, err := c.Msg("GETINFO version")
	assert.Error(t, err)
	var sc *SocketClosed
	var ce *ControllerError
	if !asSocketClosed(err, &sc) && !asControllerError(err, &ce) {
		t.Fatalf("expected a SocketClosed/ControllerError, got %v", err)
	}
}

func TestController_concurrentMsg(t *testing.T) {
	t.Parallel()

	conn, daemon := pipetest.Pipe()
	c := New(newNetTransport(conn), WithLogf(func(string, ...interface{}) {}))
	defer c.Close()

	go func() {
		for {
			line, err := daemon.ReadLine()
			if err != nil {
				return
			}
			if line == "GETINFO version" {
				_ = daemon.Send("250 OK\r\n")
			}
		}
	}()

	assert.Success(t, c.Connect())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, _ = c.Msg("GETINFO version")
			}
		}()
	}
	wg.Wait()
}
