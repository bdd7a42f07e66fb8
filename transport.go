package stem

import (
	"bufio"
	"net"

	"golang.org/x/xerrors"

	"github.com/sammyshj/stem/internal/bufpool"
)

// Transport is the collaborator a Controller drives: a line-oriented,
// bidirectional byte stream to the Tor daemon. The core treats a TCP
// socket and a Unix domain socket identically — both satisfy Transport
// through netTransport below.
type Transport interface {
	// ReadLine blocks until a full CRLF-terminated line (terminator
	// included) is available, or returns an error.
	ReadLine() ([]byte, error)
	// Write writes p in its entirety.
	Write(p []byte) error
	// Flush pushes any buffered writes to the wire.
	Flush() error
	// Shutdown half-closes the connection in both directions, unblocking
	// a pending ReadLine with an error. Implementations must tolerate
	// being called on a connection that was never fully established.
	Shutdown() error
	// Close releases the transport's resources. Safe to call after
	// Shutdown.
	Close() error
}

// netTransport adapts a net.Conn (TCP or Unix domain) into a Transport,
// buffering reads and writes the way the teacher's dial.go pools bufio
// Readers/Writers around the raw connection.
type netTransport struct {
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer
}

func newNetTransport(conn net.Conn) *netTransport {
	return &netTransport{
		conn: conn,
		br:   bufpool.GetReader(conn),
		bw:   bufpool.GetWriter(conn),
	}
}

func (t *netTransport) ReadLine() ([]byte, error) {
	var line []byte
	for {
		frag, err := t.br.ReadSlice('\n')
		if len(line)+len(frag) > maxLineLength {
			return nil, xerrors.Errorf("control line exceeds %d bytes", maxLineLength)
		}
		line = append(line, frag...)
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, err
	}
}

func (t *netTransport) Write(p []byte) error {
	_, err := t.bw.Write(p)
	return err
}

func (t *netTransport) Flush() error {
	return t.bw.Flush()
}

func (t *netTransport) Shutdown() error {
	type halfCloser interface {
		CloseRead() error
		CloseWrite() error
	}
	if hc, ok := t.conn.(halfCloser); ok {
		_ = hc.CloseWrite()
		return hc.CloseRead()
	}
	// Connections without a half-close (unusual for TCP/Unix, but the
	// interface only promises net.Conn) fall back to a full close; the
	// reader loop treats the resulting error the same way either way.
	return t.conn.Close()
}

func (t *netTransport) Close() error {
	bufpool.PutReader(t.br)
	bufpool.PutWriter(t.bw)
	return t.conn.Close()
}
