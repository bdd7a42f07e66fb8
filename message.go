package stem

import (
	"bytes"

	"github.com/sammyshj/stem/internal/bufpool"
)

// maxLineLength bounds a single control-port line, guarding against a
// misbehaving peer exhausting memory with an unterminated line. Tor's
// own control-spec lines are always short; data blocks (ns/all and the
// like) can run long, so this is generous rather than tight.
const maxLineLength = 1 << 20

// Line is one parsed reply line: a 3-digit status code, the divider byte
// that followed it ('-', ' ', or '+'), and its content with CRLFs and
// (for data blocks) dot-stuffing already removed.
type Line struct {
	Status  string
	Divider byte
	Content string
}

// Message is one complete reply read from the control socket: an ordered,
// non-empty sequence of Lines plus the verbatim bytes they were parsed
// from. The terminal line always has Divider == ' '; every prior line has
// Divider '-' or '+'.
type Message struct {
	Lines      []Line
	RawContent []byte
}

// IsEvent reports whether this is an unsolicited event: a Message whose
// terminal line carries status code "650".
func (m *Message) IsEvent() bool {
	return m.StatusCode(-1) == "650"
}

// RawContentBytes returns the verbatim bytes read from the socket,
// including all CRLFs and the data-block terminator.
func (m *Message) RawContentBytes() []byte {
	return m.RawContent
}

// StatusCode returns the status code for the line at idx. Following the
// control-spec convention that the terminal line carries the overall
// status, idx may be negative to index from the end (-1 is the last
// line, matching Python slice semantics).
func (m *Message) StatusCode(idx int) string {
	if idx < 0 {
		idx += len(m.Lines)
	}
	return m.Lines[idx].Status
}

// Content returns the parsed lines: status code, divider, and content,
// with status codes and dividers intact.
func (m *Message) Content() []Line {
	return m.Lines
}

// String renders the message's content lines joined with "\n", with
// status codes and dividers stripped — the same rendering as Python
// stem's str(ControlMessage).
func (m *Message) String() string {
	var b bytes.Buffer
	for i, line := range m.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line.Content)
	}
	return b.String()
}

// Encode re-serializes the message to the exact wire form it would have
// been read from: status+divider+content lines terminated by CRLF, with
// data-block content re-split on "\n", dot-stuffed, and terminated by
// ".\r\n". Round-tripping a Message parsed from bytes B through Encode
// reproduces B.
func (m *Message) Encode() []byte {
	var b bytes.Buffer
	for _, line := range m.Lines {
		b.WriteString(line.Status)
		b.WriteByte(line.Divider)
		if line.Divider != '+' {
			b.WriteString(line.Content)
			b.WriteString("\r\n")
			continue
		}
		segments := bytes.Split([]byte(line.Content), []byte("\n"))
		b.Write(segments[0])
		b.WriteString("\r\n")
		for _, dataLine := range segments[1:] {
			if bytes.HasPrefix(dataLine, []byte(".")) {
				b.WriteByte('.')
			}
			b.Write(dataLine)
			b.WriteString("\r\n")
		}
		b.WriteString(".\r\n")
	}
	return b.Bytes()
}

// LineReader is the minimal collaborator the Frame Parser needs: a
// blocking source of CRLF-terminated lines, their terminator included.
// Transport satisfies this directly.
type LineReader interface {
	ReadLine() ([]byte, error)
}

// ParseMessage pulls lines from lr until it has one complete Message or
// hits a ProtocolError. It never returns a partially built Message: EOF
// or a malformed line mid-message is always reported as an error, never
// silently truncated.
func ParseMessage(lr LineReader) (*Message, error) {
	var lines []Line
	raw := bufpool.Get()
	defer bufpool.Put(raw)

	for {
		line, err := lr.ReadLine()
		if err != nil {
			if len(lines) > 0 || raw.Len() > 0 || len(line) > 0 {
				return nil, newProtocolError("control socket closed mid-message: %w", err)
			}
			return nil, err
		}
		raw.Write(line)

		// Status code, divider and CRLF need at least 6 bytes.
		if len(line) < 6 {
			return nil, newProtocolError("badly formatted reply line: too short: %q", line)
		}
		if !bytes.HasSuffix(line, []byte("\r\n")) {
			return nil, newProtocolError("reply line missing CRLF: %q", line)
		}

		status := string(line[:3])
		divider := line[3]
		content := string(line[4 : len(line)-2])

		switch divider {
		case '-':
			lines = append(lines, Line{Status: status, Divider: divider, Content: content})
		case ' ':
			lines = append(lines, Line{Status: status, Divider: divider, Content: content})
			rawCopy := make([]byte, raw.Len())
			copy(rawCopy, raw.Bytes())
			return &Message{Lines: lines, RawContent: rawCopy}, nil
		case '+':
			dataContent, err := readDataBlock(lr, raw, content)
			if err != nil {
				return nil, err
			}
			lines = append(lines, Line{Status: status, Divider: divider, Content: dataContent})
		default:
			return nil, newProtocolError("unrecognized divider %q in line %q", divider, line)
		}
	}
}

// readDataBlock reads the lines of a '+' data block until a line exactly
// ".\r\n", undoing dot-stuffing (a leading ".." becomes ".") and joining
// data lines with "\n" rather than CRLF, per control-spec section 2.4.
// header is the content of the "+" line itself (e.g. "ns/all=" in
// "250+ns/all=\r\n"), which seeds the accumulator — the data block's
// content is the header line's content, not just the lines that follow
// it. All bytes read, including the terminator, are appended to raw.
func readDataBlock(lr LineReader, raw *bytes.Buffer, header string) (string, error) {
	var content bytes.Buffer
	content.WriteString(header)

	for {
		line, err := lr.ReadLine()
		if err != nil {
			return "", newProtocolError("control socket closed mid-data-block: %w", err)
		}
		raw.Write(line)

		if !bytes.HasSuffix(line, []byte("\r\n")) {
			return "", newProtocolError("data line missing CRLF: %q", line)
		}
		if bytes.Equal(line, []byte(".\r\n")) {
			return content.String(), nil
		}

		line = line[:len(line)-2]
		if bytes.HasPrefix(line, []byte("..")) {
			line = line[1:]
		}

		content.WriteByte('\n')
		content.Write(line)
	}
}
