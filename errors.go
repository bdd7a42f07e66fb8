package stem

import (
	"errors"

	"golang.org/x/xerrors"
)

// ControllerError is the umbrella type wrapping every ProtocolError,
// SocketError and SocketClosed this package returns. ParseMessage returns
// its LineReader's own error unwrapped when the read fails before any
// byte of a message. Callers that want to catch any failure from the
// control connection without distinguishing its kind can check
//
//	var ce *stem.ControllerError
//	if errors.As(err, &ce) { ... }
type ControllerError struct {
	err error
}

func (ce *ControllerError) Error() string {
	return ce.err.Error()
}

func (ce *ControllerError) Unwrap() error {
	return ce.err
}

func wrapControllerErr(err error) error {
	if err == nil {
		return nil
	}
	return &ControllerError{err: err}
}

// ProtocolError indicates malformed content read from the control socket:
// a line that is too short, missing its CRLF terminator, carrying an
// unrecognized divider byte, or a data block that hit EOF before its
// terminator. It is local to the reader loop — a discarded message never
// reaches a Msg caller or an event handler.
type ProtocolError struct {
	err error
}

func (pe *ProtocolError) Error() string {
	return pe.err.Error()
}

func (pe *ProtocolError) Unwrap() error {
	return pe.err
}

func newProtocolError(format string, v ...interface{}) error {
	return wrapControllerErr(&ProtocolError{err: xerrors.Errorf(format, v...)})
}

// SocketError is surfaced synchronously from FromPort or FromSocketFile
// when the underlying transport could not be established.
type SocketError struct {
	err error
}

func (se *SocketError) Error() string {
	return se.err.Error()
}

func (se *SocketError) Unwrap() error {
	return se.err
}

func newSocketError(format string, v ...interface{}) error {
	return wrapControllerErr(&SocketError{err: xerrors.Errorf(format, v...)})
}

// SocketClosed is returned by Msg/Send for a request that was in flight
// (or about to be sent) when the connection tore down, whether by an
// explicit Close or because the reader loop detected a transport error.
type SocketClosed struct {
	err error
}

func (sc *SocketClosed) Error() string {
	return sc.err.Error()
}

func (sc *SocketClosed) Unwrap() error {
	return sc.err
}

func newSocketClosed(format string, v ...interface{}) error {
	return wrapControllerErr(&SocketClosed{err: xerrors.Errorf(format, v...)})
}

// asProtocolError reports whether err wraps a *ProtocolError, setting
// *target if so. A thin errors.As wrapper kept alongside the error types
// it inspects so callers outside this package never need to reach past
// the ControllerError wrapper themselves.
func asProtocolError(err error, target **ProtocolError) bool {
	return errors.As(err, target)
}

// asSocketClosed reports whether err wraps a *SocketClosed, setting
// *target if so.
func asSocketClosed(err error, target **SocketClosed) bool {
	return errors.As(err, target)
}

// asControllerError reports whether err wraps a *ControllerError, setting
// *target if so.
func asControllerError(err error, target **ControllerError) bool {
	return errors.As(err, target)
}
