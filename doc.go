// Package stem maintains a long-lived conversational link to a Tor
// control port: a line-oriented text protocol documented in Tor's
// control-spec.
//
// Controller is the main entrypoint. Use FromPort or FromSocketFile to
// open a connection, Connect to start it, Msg to send a command and wait
// for its reply, and SetEventHandler to receive asynchronous events (status
// code 650) the daemon emits out of band.
//
// This package only handles wire-level framing and request/event
// demultiplexing. It does not interpret command semantics (GETINFO,
// SETCONF, circuit building, authentication) — those belong to a layer
// built on top of Controller.
package stem // import "github.com/sammyshj/stem"
