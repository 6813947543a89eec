package lineserver

import (
	"bytes"
	"strings"
)

// LineBuffer accumulates raw bytes from one connection and yields complete
// newline-terminated frames. Bytes after the last '\n' stay buffered for the
// next append. No maximum buffered length is enforced.
type LineBuffer struct {
	buf []byte
}

func (b *LineBuffer) Append(p []byte) {
	b.buf = append(b.buf, p...)
}

// Next returns the next complete frame, with the terminator removed, one
// optional trailing '\r' stripped and surrounding whitespace trimmed.
// Frames that trim to empty are skipped.
func (b *LineBuffer) Next() (string, bool) {
	for {
		i := bytes.IndexByte(b.buf, '\n')
		if i < 0 {
			return "", false
		}
		line := string(b.buf[:i])
		b.buf = b.buf[i+1:]

		line = strings.TrimSuffix(line, "\r")
		line = strings.TrimSpace(line)
		if line != "" {
			return line, true
		}
	}
}

func (b *LineBuffer) Pending() int { return len(b.buf) }
