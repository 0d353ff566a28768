package fchat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRosterHandlers verifies the online/offline/status push translations.
func TestRosterHandlers(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`NLN {"identity":"Bob","gender":"Male","status":"online"}`)
	ev := sink.WaitFor(t, "CharacterCameOnline")
	assert.Equal(t, CharacterName("Bob"), ev.Args[0])
	assert.Equal(t, "Male", ev.Args[1])
	assert.Equal(t, StatusOnline, ev.Args[2])

	wire.Push(`STA {"character":"Bob","status":"away","statusmsg":"back &lt;soon&gt;"}`)
	ev = sink.WaitFor(t, "CharacterStatusChanged")
	assert.Equal(t, StatusAway, ev.Args[1])
	assert.Equal(t, "back <soon>", ev.Args[2])

	wire.Push(`FLN {"character":"Bob"}`)
	ev = sink.WaitFor(t, "CharacterWentOffline")
	assert.Equal(t, CharacterName("Bob"), ev.Args[0])
}

// TestCharacterListBatch verifies LIS tuple decoding, skipping short
// tuples.
func TestCharacterListBatch(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`LIS {"characters":[["Bob","Male","online",""],["Cara","Female","busy","writing"],["Broken"]]}`)
	ev := sink.WaitFor(t, "CharactersBatchReceived")

	entries := ev.Args[0].([]CharacterStatusEntry)
	require.Len(t, entries, 2)
	assert.Equal(t, CharacterName("Bob"), entries[0].Character)
	assert.Equal(t, StatusBusy, entries[1].Status)
	assert.Equal(t, "writing", entries[1].StatusMessage)
}

// TestServerMetaHandlers verifies hello, count, variables, ops and friends.
func TestServerMetaHandlers(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`HLO {"message":"Welcome"}`)
	ev := sink.WaitFor(t, "ServerHelloReceived")
	assert.Equal(t, "Welcome", ev.Args[0])

	wire.Push(`ADL {"ops":["Ara","Ben"]}`)
	ev = sink.WaitFor(t, "ServerOpsReceived")
	assert.Equal(t, []CharacterName{"Ara", "Ben"}, ev.Args[0])

	wire.Push(`AOP {"character":"Cara"}`)
	ev = sink.WaitFor(t, "ServerOpAdded")
	assert.Equal(t, CharacterName("Cara"), ev.Args[0])

	wire.Push(`DOP {"character":"Cara"}`)
	ev = sink.WaitFor(t, "ServerOpRemoved")
	assert.Equal(t, CharacterName("Cara"), ev.Args[0])

	wire.Push(`FRL {"characters":["Dan","Eve"]}`)
	ev = sink.WaitFor(t, "FriendsListReceived")
	assert.Equal(t, []CharacterName{"Dan", "Eve"}, ev.Args[0])
}

// TestIgnoreListHandlers verifies the action demultiplexing of inbound IGN.
func TestIgnoreListHandlers(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`IGN {"action":"init","characters":["Troll"]}`)
	ev := sink.WaitFor(t, "IgnoreListReceived")
	assert.Equal(t, []CharacterName{"Troll"}, ev.Args[0])

	wire.Push(`IGN {"action":"add","character":"Pest"}`)
	ev = sink.WaitFor(t, "CharacterIgnored")
	assert.Equal(t, CharacterName("Pest"), ev.Args[0])

	wire.Push(`IGN {"action":"delete","character":"Pest"}`)
	ev = sink.WaitFor(t, "CharacterUnignored")
	assert.Equal(t, CharacterName("Pest"), ev.Args[0])

	wire.Push(`IGN {"action":"notify","character":"Troll"}`)
	ev = sink.WaitFor(t, "IgnoredMessageNotified")
	assert.Equal(t, CharacterName("Troll"), ev.Args[0])
}

// TestChannelJoinLeaveSelfVsOther verifies join/leave events branch on
// whether the affected character is the identified one.
func TestChannelJoinLeaveSelfVsOther(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`JCH {"channel":"Lounge","title":"The Lounge","character":{"identity":"Alice"}}`)
	ev := sink.WaitFor(t, "JoinedChannel")
	assert.Equal(t, ChannelName("Lounge"), ev.Args[0])
	assert.Equal(t, "The Lounge", ev.Args[1])

	wire.Push(`JCH {"channel":"Lounge","character":{"identity":"Bob"}}`)
	ev = sink.WaitFor(t, "ChannelCharacterJoined")
	assert.Equal(t, CharacterName("Bob"), ev.Args[1])

	wire.Push(`LCH {"channel":"Lounge","character":"Bob"}`)
	ev = sink.WaitFor(t, "ChannelCharacterLeft")
	assert.Equal(t, CharacterName("Bob"), ev.Args[1])

	wire.Push(`LCH {"channel":"Lounge","character":"Alice"}`)
	ev = sink.WaitFor(t, "LeftChannel")
	assert.Equal(t, ChannelName("Lounge"), ev.Args[0])
}

// TestChannelStateHandlers verifies member lists, descriptions, op changes
// and ownership.
func TestChannelStateHandlers(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`ICH {"channel":"Lounge","mode":"both","users":[{"identity":"Bob"},{"identity":"Cara"}]}`)
	ev := sink.WaitFor(t, "ChannelCharactersReceived")
	assert.Equal(t, []CharacterName{"Bob", "Cara"}, ev.Args[1])
	assert.Equal(t, "both", ev.Args[2])

	wire.Push(`CDS {"channel":"Lounge","description":"Rules: be kind &amp; stay on topic"}`)
	ev = sink.WaitFor(t, "ChannelDescriptionReceived")
	assert.Equal(t, "Rules: be kind & stay on topic", ev.Args[1])

	wire.Push(`COL {"channel":"Lounge","oplist":["Bob"]}`)
	ev = sink.WaitFor(t, "ChannelOpsReceived")
	assert.Equal(t, []CharacterName{"Bob"}, ev.Args[1])

	wire.Push(`COA {"channel":"Lounge","character":"Cara"}`)
	ev = sink.WaitFor(t, "ChannelOpAdded")
	assert.Equal(t, CharacterName("Cara"), ev.Args[1])

	wire.Push(`COR {"channel":"Lounge","character":"Cara"}`)
	ev = sink.WaitFor(t, "ChannelOpRemoved")
	assert.Equal(t, CharacterName("Cara"), ev.Args[1])

	wire.Push(`CSO {"channel":"Lounge","character":"Bob"}`)
	ev = sink.WaitFor(t, "ChannelOwnerChanged")
	assert.Equal(t, CharacterName("Bob"), ev.Args[1])

	wire.Push(`CIU {"sender":"Bob","title":"Secret Club","name":"ADH-123"}`)
	ev = sink.WaitFor(t, "InvitedToChannel")
	assert.Equal(t, ChannelName("ADH-123"), ev.Args[0])
	assert.Equal(t, "Secret Club", ev.Args[1])
	assert.Equal(t, CharacterName("Bob"), ev.Args[2])
}

// TestModerationSelfVsOther verifies kick/ban/timeout events disambiguate
// the identified character from bystanders.
func TestModerationSelfVsOther(t *testing.T) {
	tests := []struct {
		name      string
		frame     string
		wantEvent string
		wantArgs  []any
	}{
		{
			name:      "kicked myself",
			frame:     `CKU {"channel":"Lounge","operator":"Mod","character":"Alice"}`,
			wantEvent: "KickedFromChannel",
			wantArgs:  []any{ChannelName("Lounge"), CharacterName("Mod")},
		},
		{
			name:      "kicked someone else",
			frame:     `CKU {"channel":"Lounge","operator":"Mod","character":"Bob"}`,
			wantEvent: "ChannelCharacterKicked",
			wantArgs:  []any{ChannelName("Lounge"), CharacterName("Mod"), CharacterName("Bob")},
		},
		{
			name:      "banned myself",
			frame:     `CBU {"channel":"Lounge","operator":"Mod","character":"Alice"}`,
			wantEvent: "BannedFromChannel",
			wantArgs:  []any{ChannelName("Lounge"), CharacterName("Mod")},
		},
		{
			name:      "banned someone else",
			frame:     `CBU {"channel":"Lounge","operator":"Mod","character":"Bob"}`,
			wantEvent: "ChannelCharacterBanned",
			wantArgs:  []any{ChannelName("Lounge"), CharacterName("Mod"), CharacterName("Bob")},
		},
		{
			name:      "timed out myself",
			frame:     `CTU {"channel":"Lounge","operator":"Mod","character":"Alice","length":30}`,
			wantEvent: "TimedOutFromChannel",
			wantArgs:  []any{ChannelName("Lounge"), CharacterName("Mod"), 30},
		},
		{
			name:      "timed out someone else",
			frame:     `CTU {"channel":"Lounge","operator":"Mod","character":"Bob","length":30}`,
			wantEvent: "ChannelCharacterTimedOut",
			wantArgs:  []any{ChannelName("Lounge"), CharacterName("Mod"), CharacterName("Bob"), 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, wire, sink := newIdentifiedTestConn(t)
			wire.Push(tt.frame)
			ev := sink.WaitFor(t, tt.wantEvent)
			assert.Equal(t, tt.wantArgs, ev.Args)
		})
	}
}

// TestMessageHandlers verifies channel, ad, PM and broadcast delivery with
// entity unescaping and live metadata.
func TestMessageHandlers(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`MSG {"character":"Bob","channel":"Lounge","message":"1 &lt; 2"}`)
	ev := sink.WaitFor(t, "ChannelMessageReceived")
	assert.Equal(t, CharacterName("Bob"), ev.Args[1])
	assert.Equal(t, "1 < 2", ev.Args[2])
	assert.False(t, ev.Args[3].(MessageMeta).IsHistorical)

	wire.Push(`LRP {"character":"Bob","channel":"Lounge","message":"looking for rp"}`)
	ev = sink.WaitFor(t, "ChannelAdReceived")
	assert.Equal(t, "looking for rp", ev.Args[2])

	wire.Push(`PRI {"character":"Bob","message":"hey"}`)
	ev = sink.WaitFor(t, "PMConvoMessageReceived")
	assert.Equal(t, CharacterName("Bob"), ev.Args[0], "interlocutor is the sender for live PMs")
	assert.Equal(t, CharacterName("Bob"), ev.Args[1])

	wire.Push(`BRO {"character":"Admin","message":"maintenance at midnight"}`)
	ev = sink.WaitFor(t, "BroadcastReceived")
	assert.Equal(t, CharacterName("Admin"), ev.Args[0])

	wire.Push(`SYS {"message":"note","channel":"Lounge"}`)
	ev = sink.WaitFor(t, "SystemMessageReceived")
	assert.Equal(t, ChannelName("Lounge"), ev.Args[0])
}

// TestRollHandlers verifies dice/bottle discrimination and the private
// roll interlocutor determination for both directions.
func TestRollHandlers(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		check func(t *testing.T, sink *recordingSink)
	}{
		{
			name:  "channel dice roll",
			frame: `RLL {"type":"dice","channel":"Lounge","character":"Bob","rolls":["1d20"],"results":[17],"endresult":17,"message":"Bob rolls 1d20: 17"}`,
			check: func(t *testing.T, sink *recordingSink) {
				ev := sink.WaitFor(t, "RollReceived")
				roll := ev.Args[0].(RollResult)
				assert.Equal(t, ChannelName("Lounge"), roll.Channel)
				assert.Equal(t, CharacterName("Bob"), roll.Roller)
				assert.Equal(t, 17, roll.EndResult)
				assert.True(t, roll.Interlocutor.IsEmpty())
			},
		},
		{
			name:  "private roll from the other side",
			frame: `RLL {"type":"dice","character":"Bob","recipient":"Alice","rolls":["1d6"],"results":[4],"endresult":4,"message":"Bob rolls 1d6: 4"}`,
			check: func(t *testing.T, sink *recordingSink) {
				ev := sink.WaitFor(t, "RollReceived")
				roll := ev.Args[0].(RollResult)
				assert.Equal(t, CharacterName("Bob"), roll.Interlocutor)
			},
		},
		{
			name:  "private roll from me",
			frame: `RLL {"type":"dice","character":"Alice","recipient":"Bob","rolls":["1d6"],"results":[2],"endresult":2,"message":"Alice rolls 1d6: 2"}`,
			check: func(t *testing.T, sink *recordingSink) {
				ev := sink.WaitFor(t, "RollReceived")
				roll := ev.Args[0].(RollResult)
				assert.Equal(t, CharacterName("Bob"), roll.Interlocutor)
			},
		},
		{
			name:  "bottle spin",
			frame: `RLL {"type":"bottle","channel":"Lounge","character":"Bob","target":"Cara","message":"Bob spins the bottle: Cara"}`,
			check: func(t *testing.T, sink *recordingSink) {
				ev := sink.WaitFor(t, "BottleSpinReceived")
				spin := ev.Args[0].(BottleSpinResult)
				assert.Equal(t, CharacterName("Bob"), spin.Spinner)
				assert.Equal(t, CharacterName("Cara"), spin.Target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, wire, sink := newIdentifiedTestConn(t)
			wire.Push(tt.frame)
			tt.check(t, sink)
		})
	}
}

// TestTypingStatusHandler verifies other characters' typing indicators
// reach the sink while our own stray echoes are dropped.
func TestTypingStatusHandler(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`TPN {"character":"Alice","status":"TYPING"}`)
	wire.Push(`TPN {"character":"Bob","status":"PAUSED"}`)

	ev := sink.WaitFor(t, "CharacterTypingStatusChanged")
	assert.Equal(t, CharacterName("Bob"), ev.Args[0])
	assert.Equal(t, TypingStatusPaused, ev.Args[1])
	assert.Len(t, sink.Named("CharacterTypingStatusChanged"), 1)
}

// TestChannelListHandlers verifies CHA/ORS listing decode.
func TestChannelListHandlers(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`CHA {"channels":[{"name":"Lounge","mode":"both","characters":52}]}`)
	ev := sink.WaitFor(t, "PublicChannelsListed")
	channels := ev.Args[0].([]ChannelListEntry)
	require.Len(t, channels, 1)
	assert.Equal(t, ChannelName("Lounge"), channels[0].Name)
	assert.Equal(t, "Lounge", channels[0].Title, "title falls back to name")
	assert.Equal(t, 52, channels[0].Characters)

	wire.Push(`ORS {"channels":[{"name":"ADH-777","title":"Hideout","characters":3}]}`)
	ev = sink.WaitFor(t, "PrivateChannelsListed")
	channels = ev.Args[0].([]ChannelListEntry)
	require.Len(t, channels, 1)
	assert.Equal(t, "Hideout", channels[0].Title)
}

// TestUptimeHandler verifies UPT decoding.
func TestUptimeHandler(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`UPT {"starttime":1700000000,"accepted":120000,"channels":800,"users":4000,"maxusers":6000}`)
	ev := sink.WaitFor(t, "UptimeReceived")
	uptime := ev.Args[0].(ServerUptime)
	assert.Equal(t, time.Unix(1700000000, 0), uptime.StartTime)
	assert.Equal(t, 120000, uptime.Connections)
	assert.Equal(t, 6000, uptime.MaxUsers)
}

// TestPartnerSearchHandler verifies FKS result decoding.
func TestPartnerSearchHandler(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`FKS {"characters":["Bob","Cara"],"kinks":[10,20]}`)
	ev := sink.WaitFor(t, "PartnerSearchResultsReceived")
	result := ev.Args[0].(PartnerSearchResult)
	assert.Equal(t, []CharacterName{"Bob", "Cara"}, result.Characters)
	assert.Equal(t, []int{10, 20}, result.Kinks)
}

// TestRTBHandler verifies bridge events pass through verbatim.
func TestRTBHandler(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`RTB {"type":"note","sender":"Bob","id":991}`)
	ev := sink.WaitFor(t, "RTBEventReceived")
	assert.Equal(t, "note", ev.Args[0])
	assert.Contains(t, ev.Args[1], `"id":991`)
}

// TestHistoricalReplay verifies the XHM demultiplexer: the same subtype
// targets different sink methods depending on the composite channel id, and
// every call is flagged historical with the server timestamp.
func TestHistoricalReplay(t *testing.T) {
	tests := []struct {
		name      string
		frame     string
		wantEvent string
		check     func(t *testing.T, ev sinkEvent)
	}{
		{
			name:      "channel message",
			frame:     `XHM {"channel":"ch:Lounge","messagetype":"MSG","character":"Bob","message":"old news","timestamp":1700000100}`,
			wantEvent: "ChannelMessageReceived",
			check: func(t *testing.T, ev sinkEvent) {
				assert.Equal(t, ChannelName("Lounge"), ev.Args[0])
				meta := ev.Args[3].(MessageMeta)
				assert.True(t, meta.IsHistorical)
				assert.Equal(t, time.Unix(1700000100, 0), meta.Time)
			},
		},
		{
			name:      "pm message same subtype different target",
			frame:     `XHM {"channel":"pm:Bob","messagetype":"MSG","character":"Bob","message":"old pm","timestamp":1700000200}`,
			wantEvent: "PMConvoMessageReceived",
			check: func(t *testing.T, ev sinkEvent) {
				assert.Equal(t, CharacterName("Bob"), ev.Args[0])
				assert.True(t, ev.Args[3].(MessageMeta).IsHistorical)
			},
		},
		{
			name:      "pm message I sent from another session",
			frame:     `XHM {"channel":"pm:Bob","messagetype":"MSG","character":"Alice","message":"my old reply","timestamp":1700000300}`,
			wantEvent: "PMConvoMessageReceived",
			check: func(t *testing.T, ev sinkEvent) {
				assert.Equal(t, CharacterName("Bob"), ev.Args[0], "conversation stays with the interlocutor")
				assert.Equal(t, CharacterName("Alice"), ev.Args[1])
			},
		},
		{
			name:      "channel ad",
			frame:     `XHM {"channel":"ch:Lounge","messagetype":"LRP","character":"Bob","message":"old ad","timestamp":1700000400}`,
			wantEvent: "ChannelAdReceived",
			check: func(t *testing.T, ev sinkEvent) {
				assert.True(t, ev.Args[3].(MessageMeta).IsHistorical)
			},
		},
		{
			name:      "clear marker",
			frame:     `XHM {"channel":"ch:Lounge","messagetype":"CLR","timestamp":1700000500}`,
			wantEvent: "ChannelHistoryCleared",
			check: func(t *testing.T, ev sinkEvent) {
				assert.Equal(t, ChannelName("Lounge"), ev.Args[0])
			},
		},
		{
			name:      "pm clear marker",
			frame:     `XHM {"channel":"pm:Bob","messagetype":"CLR","timestamp":1700000500}`,
			wantEvent: "PMConvoHistoryCleared",
			check: func(t *testing.T, ev sinkEvent) {
				assert.Equal(t, CharacterName("Bob"), ev.Args[0], "composite id stripped to the interlocutor")
			},
		},
		{
			name:      "channel system message",
			frame:     `XHM {"channel":"ch:Lounge","messagetype":"SYS","message":"was cleared","timestamp":1700000600}`,
			wantEvent: "SystemMessageReceived",
			check: func(t *testing.T, ev sinkEvent) {
				assert.True(t, ev.Args[2].(MessageMeta).IsHistorical)
			},
		},
		{
			name:      "channel roll replay",
			frame:     `XHM {"channel":"ch:Lounge","messagetype":"ROLL","character":"Bob","rolls":["1d20"],"results":[3],"endresult":3,"message":"Bob rolls 1d20: 3","timestamp":1700000700}`,
			wantEvent: "RollReceived",
			check: func(t *testing.T, ev sinkEvent) {
				roll := ev.Args[0].(RollResult)
				assert.Equal(t, ChannelName("Lounge"), roll.Channel)
				assert.True(t, ev.Args[1].(MessageMeta).IsHistorical)
			},
		},
		{
			name:      "channel spin replay",
			frame:     `XHM {"channel":"ch:Lounge","messagetype":"SPIN","character":"Bob","target":"Cara","message":"spin","timestamp":1700000800}`,
			wantEvent: "BottleSpinReceived",
			check: func(t *testing.T, ev sinkEvent) {
				spin := ev.Args[0].(BottleSpinResult)
				assert.Equal(t, CharacterName("Cara"), spin.Target)
			},
		},
		{
			name:      "console message",
			frame:     `XHM {"channel":"con","messagetype":"SYS","message":"server restarted","timestamp":1700000900}`,
			wantEvent: "ConsoleMessageReceived",
			check: func(t *testing.T, ev sinkEvent) {
				assert.Equal(t, "server restarted", ev.Args[0])
				assert.True(t, ev.Args[1].(MessageMeta).IsHistorical)
			},
		},
		{
			name:      "console broadcast replay",
			frame:     `XHM {"channel":"con","messagetype":"BRO","character":"Admin","message":"old broadcast","timestamp":1700001000}`,
			wantEvent: "BroadcastReceived",
			check: func(t *testing.T, ev sinkEvent) {
				assert.Equal(t, CharacterName("Admin"), ev.Args[0])
				assert.True(t, ev.Args[2].(MessageMeta).IsHistorical)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, wire, sink := newIdentifiedTestConn(t)
			wire.Push(tt.frame)
			ev := sink.WaitFor(t, tt.wantEvent)
			tt.check(t, ev)
		})
	}
}

// TestExtendedPrivateMessage verifies XPM routes by conversation owner.
func TestExtendedPrivateMessage(t *testing.T) {
	_, wire, sink := newIdentifiedTestConn(t)

	wire.Push(`XPM {"character":"Alice","conversation":"Bob","message":"sent elsewhere"}`)
	ev := sink.WaitFor(t, "PMConvoMessageReceived")
	assert.Equal(t, CharacterName("Bob"), ev.Args[0])
	assert.Equal(t, CharacterName("Alice"), ev.Args[1])
}

// TestExtendedFeaturesFlag verifies XNN flips the session flag once and
// gates the tab-close notification.
func TestExtendedFeaturesFlag(t *testing.T) {
	conn, wire, sink := newIdentifiedTestConn(t)

	assert.False(t, conn.HasExtendedFeatures())
	err := conn.NotifyTabClosed(context.Background(), CharacterName("Bob"))
	assert.Error(t, err, "tab close requires extended features")

	wire.Push("XNN")
	sink.WaitFor(t, "ExtendedFeaturesEnabled")
	assert.True(t, conn.HasExtendedFeatures())

	wire.Push("XNN")
	time.Sleep(10 * time.Millisecond)
	assert.Len(t, sink.Named("ExtendedFeaturesEnabled"), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.NotifyTabClosed(ctx, CharacterName("Bob")))
	assert.Len(t, wire.WrittenWithCode(CodeXTN), 1)
}
