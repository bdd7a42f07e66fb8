package stem

import (
	"testing"
	"time"

	"github.com/sammyshj/stem/internal/test/assert"
	"github.com/sammyshj/stem/internal/test/pipetest"
)

func TestNetTransport_readLine(t *testing.T) {
	t.Parallel()

	conn, daemon := pipetest.Pipe()
	defer conn.Close()
	tr := newNetTransport(conn)

	go func() {
		_ = daemon.Send("250 OK\r\n")
	}()

	line, err := tr.ReadLine()
	assert.Success(t, err)
	assert.Equal(t, "line", "250 OK\r\n", string(line))
}

func TestNetTransport_writeFlush(t *testing.T) {
	t.Parallel()

	conn, daemon := pipetest.Pipe()
	defer conn.Close()
	tr := newNetTransport(conn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		line, err := daemon.ReadLine()
		assert.Success(t, err)
		assert.Equal(t, "command", "GETINFO version", line)
	}()

	assert.Success(t, tr.Write([]byte("GETINFO version\r\n")))
	assert.Success(t, tr.Flush())
	<-done
}

func TestNetTransport_shutdownUnblocksRead(t *testing.T) {
	t.Parallel()

	conn, _ := pipetest.Pipe()
	tr := newNetTransport(conn)

	done := make(chan error, 1)
	go func() {
		_, err := tr.ReadLine()
		done <- err
	}()

	assert.Success(t, tr.Shutdown())

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("ReadLine did not unblock")
	}
	_ = tr.Close()
}
