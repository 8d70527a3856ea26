package stream

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// message is one dispatched server-sent event.
type message struct {
	Event string
	Data  string
	ID    string
}

// decoder splits a text/event-stream body into messages.
type decoder struct {
	r *bufio.Reader
	// skipLF is set after a line ended on CR; a LF read next belongs to that terminator.
	skipLF bool
}

func newDecoder(r io.Reader) *decoder {
	return &decoder{r: bufio.NewReader(r)}
}

// Next returns the next message with a non-empty data buffer. A partial
// message at end of input is discarded and io.EOF returned.
func (d *decoder) Next() (message, error) {
	var (
		msg     message
		data    strings.Builder
		hasData bool
	)
	for {
		line, err := d.readLine()
		if err != nil {
			return message{}, err
		}

		if line == "" {
			if hasData {
				msg.Data = strings.TrimSuffix(data.String(), "\n")
				return msg, nil
			}
			msg = message{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "event":
			msg.Event = value
		case "id":
			msg.ID = value
		}
	}
}

// readLine returns one line without its terminator. CRLF, LF and lone CR all
// end a line. A CR returns at once, so a frame ending in CR is dispatched
// without waiting for further bytes.
func (d *decoder) readLine() (string, error) {
	var b strings.Builder
	for {
		c, err := d.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && b.Len() > 0 {
				// unterminated final line never completes a message
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		if d.skipLF {
			d.skipLF = false
			if c == '\n' {
				continue
			}
		}
		switch c {
		case '\n':
			return b.String(), nil
		case '\r':
			d.skipLF = true
			return b.String(), nil
		default:
			b.WriteByte(c)
		}
	}
}
