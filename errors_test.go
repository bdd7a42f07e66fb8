package stem

import (
	"errors"
	"testing"

	"github.com/sammyshj/stem/internal/test/assert"
)

func TestProtocolError_unwrapsToCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("short read")
	err := newProtocolError("badly formatted reply line: %w", cause)

	assert.ErrorIs(t, cause, err)

	var pe *ProtocolError
	assert.Equal(t, "is protocol error", true, asProtocolError(err, &pe))

	var ce *ControllerError
	assert.Equal(t, "is controller error", true, asControllerError(err, &ce))
}

func TestSocketClosed_unwrapsToCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("use of closed network connection")
	err := newSocketClosed("failed to write command: %w", cause)

	assert.ErrorIs(t, cause, err)

	var sc *SocketClosed
	assert.Equal(t, "is socket closed", true, asSocketClosed(err, &sc))
}

func TestSocketError_unwrapsToCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := newSocketError("failed to connect to 127.0.0.1:9051: %w", cause)

	assert.ErrorIs(t, cause, err)
}
