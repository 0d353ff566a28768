package fchat

import (
	"strings"
	"sync"

	"github.com/armon/circbuf"
)

// wireTapSize bounds the retained tail of raw wire traffic per connection.
const wireTapSize = 16 * 1024

// wireTap retains the most recent raw wire traffic in a fixed-size ring so
// an unexpected disconnect can be logged with the frames that led up to it.
// Uses github.com/armon/circbuf so old traffic falls off without growth.
type wireTap struct {
	mu  sync.Mutex
	buf *circbuf.Buffer
}

// newWireTap creates a tap retaining wireTapSize bytes.
func newWireTap() *wireTap {
	// NewBuffer only fails for non-positive sizes.
	buf, _ := circbuf.NewBuffer(wireTapSize)
	return &wireTap{buf: buf}
}

// record appends one frame with a direction prefix.
func (t *wireTap) record(direction string, frame string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write([]byte(direction))
	t.buf.Write([]byte(" "))
	t.buf.Write([]byte(frame))
	t.buf.Write([]byte("\n"))
}

// tail returns the retained traffic, trimmed to whole lines.
func (t *wireTap) tail() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.buf.String()
	// The ring may have cut the oldest line mid-frame; drop the fragment.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 && t.buf.TotalWritten() > t.buf.Size() {
		s = s[idx+1:]
	}
	return s
}
