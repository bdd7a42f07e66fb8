package stem

import (
	"testing"
	"time"

	"github.com/sammyshj/stem/internal/test/assert"
)

func TestEventQueue_fifoOrder(t *testing.T) {
	t.Parallel()

	q := newEventQueue()
	q.push(&Message{Lines: []Line{{Status: "650", Content: "1"}}})
	q.push(&Message{Lines: []Line{{Status: "650", Content: "2"}}})

	msg, ok := q.pop()
	assert.Equal(t, "ok", true, ok)
	assert.Equal(t, "first", "1", msg.Lines[0].Content)

	msg, ok = q.pop()
	assert.Equal(t, "ok", true, ok)
	assert.Equal(t, "second", "2", msg.Lines[0].Content)
}

func TestEventQueue_shutdownDrainsPending(t *testing.T) {
	t.Parallel()

	q := newEventQueue()
	q.push(&Message{Lines: []Line{{Status: "650", Content: "queued"}}})
	q.shutdown()

	msg, ok := q.pop()
	assert.Equal(t, "ok", true, ok)
	assert.Equal(t, "content", "queued", msg.Lines[0].Content)

	_, ok = q.pop()
	assert.Equal(t, "ok after drain", false, ok)
}

func TestEventQueue_popBlocksUntilPush(t *testing.T) {
	t.Parallel()

	q := newEventQueue()
	done := make(chan struct{})
	go func() {
		defer close(done)
		msg, ok := q.pop()
		if !ok || msg.Lines[0].Content != "later" {
			t.Errorf("unexpected pop result: %v %v", msg, ok)
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.push(&Message{Lines: []Line{{Status: "650", Content: "later"}}})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pop never returned")
	}
}
