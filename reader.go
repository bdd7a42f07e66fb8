package stem

// readLoop is the reader loop of spec.md §4.2: it runs on its own
// goroutine for the lifetime of one connection generation, continually
// parsing Messages off the Transport and routing them. A Message whose
// terminal line carries status 650 goes to the event queue; everything
// else is handed to whichever Msg call is waiting on the reply slot.
//
// A ProtocolError is logged and the loop continues — the malformed
// message is discarded, never deposited anywhere, so it cannot be
// mistaken for the reply to an in-flight command (spec.md §9's open
// question resolved: framing errors never count against a pending send,
// only a transport error does).
//
// A transport error is fatal to the connection: it wakes any blocked
// reply-slot waiter with SocketClosed and, unless Close already caused it,
// tears the Controller down via Close, then exits without draining the event queue — already queued
// events remain for the dispatcher to deliver.
//
// gen is the generation this loop belongs to, fixed at spawn time by
// Connect; it is never re-read off the Controller, so a concurrent
// reconnect swapping in a new generation cannot be observed mid-loop.
func (c *Controller) readLoop(gen *generation) {
	defer close(gen.readerDone)

	for {
		msg, err := ParseMessage(c.transport)
		if err != nil {
			var pe *ProtocolError
			if asProtocolError(err, &pe) {
				c.logf("stem: discarding malformed control message: %v", pe)
				continue
			}

			deliverFatal(gen, newSocketClosed("control socket closed: %w", err))
			select {
			case <-gen.closing:
				// Close is already tearing this generation down.
			default:
				go c.Close()
			}
			return
		}

		if msg.IsEvent() {
			gen.events.push(msg)
			continue
		}

		select {
		case gen.replySlot <- replyResult{msg: msg}:
		case <-gen.closing:
		}
	}
}

// deliverFatal wakes a blocked Msg caller, if any, with the fatal error
// that ended the connection. If nobody is waiting the send is skipped —
// there is no reply slot receiver to synchronize with.
func deliverFatal(gen *generation, err error) {
	select {
	case gen.replySlot <- replyResult{err: err}:
	default:
	}
}
