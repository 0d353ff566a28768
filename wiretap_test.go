package fchat

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestWireTapRecordsLines verifies frames are retained one per line with
// direction prefixes.
func TestWireTapRecordsLines(t *testing.T) {
	tap := newWireTap()
	tap.record(">>", "PIN")
	tap.record("<<", "PIN")
	tap.record("<<", `CON {"count":5}`)

	lines := strings.Split(strings.TrimSuffix(tap.tail(), "\n"), "\n")
	assert.Equal(t, []string{">> PIN", "<< PIN", `<< CON {"count":5}`}, lines)
}

// TestWireTapOverflowKeepsRecent verifies old traffic falls off and no
// partial line survives at the front after wraparound.
func TestWireTapOverflowKeepsRecent(t *testing.T) {
	tap := newWireTap()
	for i := 0; i < 2000; i++ {
		tap.record("<<", fmt.Sprintf(`MSG {"channel":"Lounge","message":"frame %04d"}`, i))
	}

	tail := tap.tail()
	assert.NotContains(t, tail, "frame 0000", "oldest traffic must be gone")
	assert.Contains(t, tail, "frame 1999", "newest traffic must be retained")
	assert.True(t, strings.HasPrefix(tail, "<< "), "tail must start at a line boundary")
}
