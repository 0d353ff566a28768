package fchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// testCharacter is the identified character used by test fixtures.
const testCharacter = CharacterName("Alice")

// scriptedWire is a WireConn double driven entirely by the test: inbound
// frames are injected with Push, outbound frames are recorded, and an
// optional Respond hook scripts server reactions to individual writes.
type scriptedWire struct {
	mu       sync.Mutex
	written  []string
	inbound  chan string
	closed   chan struct{}
	closeErr error
	once     sync.Once

	// EchoTyping makes the wire behave like the real server for typing
	// frames: every outbound TPN is echoed back verbatim. Brackets depend
	// on these echoes to open and close.
	EchoTyping bool

	// Respond, if set, is consulted for every outbound frame; returned
	// frames are injected inbound after any typing echo.
	Respond func(frame string) []string
}

// newScriptedWire creates a wire that echoes typing frames.
func newScriptedWire() *scriptedWire {
	return &scriptedWire{
		inbound:    make(chan string, 64),
		closed:     make(chan struct{}),
		closeErr:   errors.New("scripted wire closed"),
		EchoTyping: true,
	}
}

// Push injects one inbound frame as if the server sent it.
func (w *scriptedWire) Push(frame string) {
	select {
	case w.inbound <- frame:
	case <-w.closed:
	}
}

// ReadMessage blocks for the next injected frame.
func (w *scriptedWire) ReadMessage() (int, []byte, error) {
	select {
	case frame := <-w.inbound:
		return websocket.TextMessage, []byte(frame), nil
	case <-w.closed:
		return 0, nil, w.closeErr
	}
}

// WriteMessage records the frame and runs the scripted server reaction.
func (w *scriptedWire) WriteMessage(_ int, data []byte) error {
	select {
	case <-w.closed:
		return w.closeErr
	default:
	}
	frame := string(data)

	w.mu.Lock()
	w.written = append(w.written, frame)
	respond := w.Respond
	echo := w.EchoTyping
	w.mu.Unlock()

	if echo && strings.HasPrefix(frame, CodeTPN+" ") {
		w.Push(frame)
	}
	if respond != nil {
		for _, reply := range respond(frame) {
			w.Push(reply)
		}
	}
	return nil
}

// SetRespond swaps the scripted server reaction, returning the previous
// hook so callers can restore it.
func (w *scriptedWire) SetRespond(respond func(frame string) []string) func(frame string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev := w.Respond
	w.Respond = respond
	return prev
}

// Close terminates the wire; pending reads fail.
func (w *scriptedWire) Close() error {
	w.once.Do(func() { close(w.closed) })
	return nil
}

// Written returns a snapshot of all recorded outbound frames.
func (w *scriptedWire) Written() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.written))
	copy(out, w.written)
	return out
}

// WrittenWithCode returns the recorded outbound frames with the given code.
func (w *scriptedWire) WrittenWithCode(code string) []string {
	var out []string
	for _, frame := range w.Written() {
		if frame == code || strings.HasPrefix(frame, code+" ") {
			out = append(out, frame)
		}
	}
	return out
}

// scriptedDialer is a Dialer returning a fixed wire.
type scriptedDialer struct {
	wire *scriptedWire
	err  error
}

func (d scriptedDialer) Dial(context.Context, string) (WireConn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.wire, nil
}

// sinkEvent is one recorded sink callback.
type sinkEvent struct {
	Name string
	Args []any
}

// recordingSink captures every sink callback in invocation order.
type recordingSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

func newRecordingSink() *recordingSink {
	return &recordingSink{}
}

func (r *recordingSink) record(name string, args ...any) {
	r.mu.Lock()
	r.events = append(r.events, sinkEvent{Name: name, Args: args})
	r.mu.Unlock()
}

// Events returns a snapshot of all recorded events.
func (r *recordingSink) Events() []sinkEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sinkEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events with the given callback name.
func (r *recordingSink) Named(name string) []sinkEvent {
	var out []sinkEvent
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// WaitFor blocks until an event with the given name is recorded.
func (r *recordingSink) WaitFor(t *testing.T, name string) sinkEvent {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if events := r.Named(name); len(events) > 0 {
			return events[0]
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for sink event %q; got %v", name, r.Events())
	return sinkEvent{}
}

func (r *recordingSink) IdentifiedAs(character CharacterName) {
	r.record("IdentifiedAs", character)
}

func (r *recordingSink) ServerHelloReceived(message string) {
	r.record("ServerHelloReceived", message)
}

func (r *recordingSink) ServerVariableReceived(name string, value any) {
	r.record("ServerVariableReceived", name, value)
}

func (r *recordingSink) ConnectedCountReceived(count int) {
	r.record("ConnectedCountReceived", count)
}

func (r *recordingSink) ExtendedFeaturesEnabled() {
	r.record("ExtendedFeaturesEnabled")
}

func (r *recordingSink) ErrorReceived(number int, message string) {
	r.record("ErrorReceived", number, message)
}

func (r *recordingSink) UptimeReceived(uptime ServerUptime) {
	r.record("UptimeReceived", uptime)
}

func (r *recordingSink) DisconnectedFromServer(reason DisconnectReason) {
	r.record("DisconnectedFromServer", reason)
}

func (r *recordingSink) BroadcastReceived(sender CharacterName, message string, meta MessageMeta) {
	r.record("BroadcastReceived", sender, message, meta)
}

func (r *recordingSink) SystemMessageReceived(channel ChannelName, message string, meta MessageMeta) {
	r.record("SystemMessageReceived", channel, message, meta)
}

func (r *recordingSink) ConsoleMessageReceived(message string, meta MessageMeta) {
	r.record("ConsoleMessageReceived", message, meta)
}

func (r *recordingSink) ServerOpsReceived(ops []CharacterName) {
	r.record("ServerOpsReceived", ops)
}

func (r *recordingSink) ServerOpAdded(character CharacterName) {
	r.record("ServerOpAdded", character)
}

func (r *recordingSink) ServerOpRemoved(character CharacterName) {
	r.record("ServerOpRemoved", character)
}

func (r *recordingSink) FriendsListReceived(friends []CharacterName) {
	r.record("FriendsListReceived", friends)
}

func (r *recordingSink) IgnoreListReceived(characters []CharacterName) {
	r.record("IgnoreListReceived", characters)
}

func (r *recordingSink) CharacterIgnored(character CharacterName) {
	r.record("CharacterIgnored", character)
}

func (r *recordingSink) CharacterUnignored(character CharacterName) {
	r.record("CharacterUnignored", character)
}

func (r *recordingSink) IgnoredMessageNotified(character CharacterName) {
	r.record("IgnoredMessageNotified", character)
}

func (r *recordingSink) CharactersBatchReceived(entries []CharacterStatusEntry) {
	r.record("CharactersBatchReceived", entries)
}

func (r *recordingSink) CharacterCameOnline(character CharacterName, gender string, status OnlineStatus) {
	r.record("CharacterCameOnline", character, gender, status)
}

func (r *recordingSink) CharacterWentOffline(character CharacterName) {
	r.record("CharacterWentOffline", character)
}

func (r *recordingSink) CharacterStatusChanged(character CharacterName, status OnlineStatus, message string) {
	r.record("CharacterStatusChanged", character, status, message)
}

func (r *recordingSink) CharacterTypingStatusChanged(character CharacterName, status TypingStatus) {
	r.record("CharacterTypingStatusChanged", character, status)
}

func (r *recordingSink) JoinedChannel(channel ChannelName, title string) {
	r.record("JoinedChannel", channel, title)
}

func (r *recordingSink) ChannelCharacterJoined(channel ChannelName, character CharacterName) {
	r.record("ChannelCharacterJoined", channel, character)
}

func (r *recordingSink) LeftChannel(channel ChannelName) {
	r.record("LeftChannel", channel)
}

func (r *recordingSink) ChannelCharacterLeft(channel ChannelName, character CharacterName) {
	r.record("ChannelCharacterLeft", channel, character)
}

func (r *recordingSink) ChannelOpsReceived(channel ChannelName, ops []CharacterName) {
	r.record("ChannelOpsReceived", channel, ops)
}

func (r *recordingSink) ChannelOpAdded(channel ChannelName, character CharacterName) {
	r.record("ChannelOpAdded", channel, character)
}

func (r *recordingSink) ChannelOpRemoved(channel ChannelName, character CharacterName) {
	r.record("ChannelOpRemoved", channel, character)
}

func (r *recordingSink) ChannelOwnerChanged(channel ChannelName, character CharacterName) {
	r.record("ChannelOwnerChanged", channel, character)
}

func (r *recordingSink) ChannelCharactersReceived(channel ChannelName, characters []CharacterName, mode string) {
	r.record("ChannelCharactersReceived", channel, characters, mode)
}

func (r *recordingSink) ChannelDescriptionReceived(channel ChannelName, description string) {
	r.record("ChannelDescriptionReceived", channel, description)
}

func (r *recordingSink) ChannelHistoryCleared(channel ChannelName) {
	r.record("ChannelHistoryCleared", channel)
}

func (r *recordingSink) InvitedToChannel(channel ChannelName, title string, sender CharacterName) {
	r.record("InvitedToChannel", channel, title, sender)
}

func (r *recordingSink) PublicChannelsListed(channels []ChannelListEntry) {
	r.record("PublicChannelsListed", channels)
}

func (r *recordingSink) PrivateChannelsListed(channels []ChannelListEntry) {
	r.record("PrivateChannelsListed", channels)
}

func (r *recordingSink) KickedFromChannel(channel ChannelName, operator CharacterName) {
	r.record("KickedFromChannel", channel, operator)
}

func (r *recordingSink) ChannelCharacterKicked(channel ChannelName, operator, character CharacterName) {
	r.record("ChannelCharacterKicked", channel, operator, character)
}

func (r *recordingSink) BannedFromChannel(channel ChannelName, operator CharacterName) {
	r.record("BannedFromChannel", channel, operator)
}

func (r *recordingSink) ChannelCharacterBanned(channel ChannelName, operator, character CharacterName) {
	r.record("ChannelCharacterBanned", channel, operator, character)
}

func (r *recordingSink) TimedOutFromChannel(channel ChannelName, operator CharacterName, seconds int) {
	r.record("TimedOutFromChannel", channel, operator, seconds)
}

func (r *recordingSink) ChannelCharacterTimedOut(channel ChannelName, operator, character CharacterName, seconds int) {
	r.record("ChannelCharacterTimedOut", channel, operator, character, seconds)
}

func (r *recordingSink) ChannelMessageReceived(channel ChannelName, sender CharacterName, message string, meta MessageMeta) {
	r.record("ChannelMessageReceived", channel, sender, message, meta)
}

func (r *recordingSink) ChannelAdReceived(channel ChannelName, sender CharacterName, message string, meta MessageMeta) {
	r.record("ChannelAdReceived", channel, sender, message, meta)
}

func (r *recordingSink) PMConvoHistoryCleared(interlocutor CharacterName) {
	r.record("PMConvoHistoryCleared", interlocutor)
}

func (r *recordingSink) PMConvoMessageReceived(interlocutor, sender CharacterName, message string, meta MessageMeta) {
	r.record("PMConvoMessageReceived", interlocutor, sender, message, meta)
}

func (r *recordingSink) RollReceived(roll RollResult, meta MessageMeta) {
	r.record("RollReceived", roll, meta)
}

func (r *recordingSink) BottleSpinReceived(spin BottleSpinResult, meta MessageMeta) {
	r.record("BottleSpinReceived", spin, meta)
}

func (r *recordingSink) RTBEventReceived(eventType string, payload json.RawMessage) {
	r.record("RTBEventReceived", eventType, string(payload))
}

func (r *recordingSink) PartnerSearchResultsReceived(result PartnerSearchResult) {
	r.record("PartnerSearchResultsReceived", result)
}

// testConfig returns a ClientConfig with short retry timing for tests.
func testConfig() ClientConfig {
	cfg := DefaultClientConfig()
	cfg.Endpoint = "ws://test.invalid/chat2"
	cfg.StatusRetryDelay = time.Millisecond
	return cfg
}

// newTestConn connects a Conn over a scripted wire. The connection is not
// identified; use newIdentifiedTestConn for that.
func newTestConn(t *testing.T) (*Conn, *scriptedWire, *recordingSink) {
	t.Helper()
	wire := newScriptedWire()
	sink := newRecordingSink()
	conn, err := ConnectWithDialer(context.Background(), testConfig(), sink, scriptedDialer{wire: wire})
	require.NoError(t, err)
	t.Cleanup(conn.Dispose)
	return conn, wire, sink
}

// newIdentifiedTestConn connects and completes the identify handshake for
// testCharacter.
func newIdentifiedTestConn(t *testing.T) (*Conn, *scriptedWire, *recordingSink) {
	t.Helper()
	conn, wire, sink := newTestConn(t)
	identifyTestConn(t, conn, wire)
	return conn, wire, sink
}

// identifyTestConn runs the identify handshake against the scripted wire,
// answering the IDN request with a canonical-cased echo.
func identifyTestConn(t *testing.T, conn *Conn, wire *scriptedWire) {
	t.Helper()
	var prev func(frame string) []string
	prev = wire.SetRespond(func(frame string) []string {
		if strings.HasPrefix(frame, CodeIDN+" ") {
			return []string{fmt.Sprintf(`IDN {"character":%q}`, testCharacter)}
		}
		if prev != nil {
			return prev(frame)
		}
		return nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Identify(ctx, "account", "ticket", testCharacter))
	wire.SetRespond(prev)
}
