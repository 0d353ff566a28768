package fchat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransportWriteBeforeOpen verifies the writability gate reports the
// not-yet-open reason instead of dereferencing a missing socket.
func TestTransportWriteBeforeOpen(t *testing.T) {
	tr := newTransport()

	err := tr.writeFrame("PIN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not yet open")
}

// TestTransportWriteAfterClose verifies writes fail with the recorded
// close reason.
func TestTransportWriteAfterClose(t *testing.T) {
	tr := newTransport()
	tr.attach(newScriptedWire())
	require.NoError(t, tr.writeFrame("PIN"))

	tr.close()
	err := tr.writeFrame("PIN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

// TestTransportFirstFailureReasonWins verifies later failures don't
// overwrite the original reason.
func TestTransportFirstFailureReasonWins(t *testing.T) {
	tr := newTransport()
	tr.attach(newScriptedWire())

	tr.fail("read timed out")
	tr.fail("socket reset")

	err := tr.writeFrame("PIN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read timed out")
	assert.NotContains(t, err.Error(), "socket reset")
}

// TestTransportTapRecordsBothDirections verifies outbound writes land in
// the wire tap alongside tapped inbound traffic.
func TestTransportTapRecordsBothDirections(t *testing.T) {
	tr := newTransport()
	tr.attach(newScriptedWire())

	require.NoError(t, tr.writeFrame(`JCH {"channel":"Lounge"}`))
	tr.tap.record("<<", `JCH {"channel":"Lounge","character":{"identity":"Alice"}}`)

	tail := tr.tap.tail()
	assert.Contains(t, tail, `>> JCH {"channel":"Lounge"}`)
	assert.Contains(t, tail, `<< JCH`)
}
