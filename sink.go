package fchat

import "encoding/json"

// ChatConnectionSink is the callback interface receiving every decoded
// protocol event. The connection invokes it from the dispatch goroutine in
// strict wire-arrival order and never concurrently with itself, so
// implementations need no locking against the connection but must not block
// indefinitely: a slow callback delays processing of the next wire frame.
//
// All calls are fire-and-forget; the connection never inspects a result.
type ChatConnectionSink interface {
	// IdentifiedAs reports the canonical character name after a successful
	// identify handshake.
	IdentifiedAs(character CharacterName)
	// ServerHelloReceived carries the HLO banner text.
	ServerHelloReceived(message string)
	// ServerVariableReceived carries one VAR name/value pair.
	ServerVariableReceived(name string, value any)
	// ConnectedCountReceived reports the number of connected characters.
	ConnectedCountReceived(count int)
	// ExtendedFeaturesEnabled signals the server negotiated extended
	// features for this session.
	ExtendedFeaturesEnabled()
	// ErrorReceived reports every ERR frame, bracketed or not.
	ErrorReceived(number int, message string)
	// UptimeReceived carries decoded UPT statistics.
	UptimeReceived(uptime ServerUptime)
	// DisconnectedFromServer reports the classified teardown reason.
	// Called exactly once per connection.
	DisconnectedFromServer(reason DisconnectReason)

	// BroadcastReceived carries a server-wide broadcast.
	BroadcastReceived(sender CharacterName, message string, meta MessageMeta)
	// SystemMessageReceived carries a SYS message; channel may be empty.
	SystemMessageReceived(channel ChannelName, message string, meta MessageMeta)
	// ConsoleMessageReceived carries console-scoped historical replay.
	ConsoleMessageReceived(message string, meta MessageMeta)

	// ServerOpsReceived carries the initial server operator list.
	ServerOpsReceived(ops []CharacterName)
	// ServerOpAdded reports a promoted server operator.
	ServerOpAdded(character CharacterName)
	// ServerOpRemoved reports a demoted server operator.
	ServerOpRemoved(character CharacterName)
	// FriendsListReceived carries the initial friends list.
	FriendsListReceived(friends []CharacterName)
	// IgnoreListReceived carries the initial ignore list.
	IgnoreListReceived(characters []CharacterName)
	// CharacterIgnored confirms an ignore list addition.
	CharacterIgnored(character CharacterName)
	// CharacterUnignored confirms an ignore list removal.
	CharacterUnignored(character CharacterName)
	// IgnoredMessageNotified reports a message suppressed by ignore.
	IgnoredMessageNotified(character CharacterName)

	// CharactersBatchReceived carries one LIS batch of online characters.
	CharactersBatchReceived(entries []CharacterStatusEntry)
	// CharacterCameOnline reports a character coming online.
	CharacterCameOnline(character CharacterName, gender string, status OnlineStatus)
	// CharacterWentOffline reports a character going offline.
	CharacterWentOffline(character CharacterName)
	// CharacterStatusChanged reports a status or status-message change.
	CharacterStatusChanged(character CharacterName, status OnlineStatus, message string)
	// CharacterTypingStatusChanged reports a typing indicator change.
	CharacterTypingStatusChanged(character CharacterName, status TypingStatus)

	// JoinedChannel reports that the identified character joined a channel.
	JoinedChannel(channel ChannelName, title string)
	// ChannelCharacterJoined reports another character joining a channel.
	ChannelCharacterJoined(channel ChannelName, character CharacterName)
	// LeftChannel reports that the identified character left a channel.
	LeftChannel(channel ChannelName)
	// ChannelCharacterLeft reports another character leaving a channel.
	ChannelCharacterLeft(channel ChannelName, character CharacterName)
	// ChannelOpsReceived carries a channel's operator list.
	ChannelOpsReceived(channel ChannelName, ops []CharacterName)
	// ChannelOpAdded reports a promoted channel operator.
	ChannelOpAdded(channel ChannelName, character CharacterName)
	// ChannelOpRemoved reports a demoted channel operator.
	ChannelOpRemoved(channel ChannelName, character CharacterName)
	// ChannelOwnerChanged reports a channel ownership transfer.
	ChannelOwnerChanged(channel ChannelName, character CharacterName)
	// ChannelCharactersReceived carries the initial channel member list.
	ChannelCharactersReceived(channel ChannelName, characters []CharacterName, mode string)
	// ChannelDescriptionReceived carries a channel description.
	ChannelDescriptionReceived(channel ChannelName, description string)
	// ChannelHistoryCleared reports a historical-replay clear marker.
	ChannelHistoryCleared(channel ChannelName)
	// InvitedToChannel reports a channel invitation.
	InvitedToChannel(channel ChannelName, title string, sender CharacterName)
	// PublicChannelsListed carries the CHA channel listing.
	PublicChannelsListed(channels []ChannelListEntry)
	// PrivateChannelsListed carries the ORS channel listing.
	PrivateChannelsListed(channels []ChannelListEntry)

	// KickedFromChannel reports the identified character being kicked.
	KickedFromChannel(channel ChannelName, operator CharacterName)
	// ChannelCharacterKicked reports another character being kicked.
	ChannelCharacterKicked(channel ChannelName, operator, character CharacterName)
	// BannedFromChannel reports the identified character being banned.
	BannedFromChannel(channel ChannelName, operator CharacterName)
	// ChannelCharacterBanned reports another character being banned.
	ChannelCharacterBanned(channel ChannelName, operator, character CharacterName)
	// TimedOutFromChannel reports the identified character being timed out.
	TimedOutFromChannel(channel ChannelName, operator CharacterName, seconds int)
	// ChannelCharacterTimedOut reports another character being timed out.
	ChannelCharacterTimedOut(channel ChannelName, operator, character CharacterName, seconds int)

	// ChannelMessageReceived carries a channel chat message.
	ChannelMessageReceived(channel ChannelName, sender CharacterName, message string, meta MessageMeta)
	// ChannelAdReceived carries a channel ad message.
	ChannelAdReceived(channel ChannelName, sender CharacterName, message string, meta MessageMeta)
	// PMConvoMessageReceived carries a private message. Interlocutor names
	// the conversation; sender names who wrote the message.
	PMConvoMessageReceived(interlocutor, sender CharacterName, message string, meta MessageMeta)
	// PMConvoHistoryCleared reports a historical-replay clear marker for a
	// private conversation.
	PMConvoHistoryCleared(interlocutor CharacterName)
	// RollReceived carries a dice roll result.
	RollReceived(roll RollResult, meta MessageMeta)
	// BottleSpinReceived carries a bottle spin result.
	BottleSpinReceived(spin BottleSpinResult, meta MessageMeta)
	// RTBEventReceived carries a real-time bridge event verbatim.
	RTBEventReceived(eventType string, payload json.RawMessage)
	// PartnerSearchResultsReceived carries FKS search results.
	PartnerSearchResultsReceived(result PartnerSearchResult)
}

// PartialSink is an optional-fields construction of ChatConnectionSink.
// Absent fields become no-ops, so callers only wire the events they care
// about. Complete returns the full-interface adapter.
type PartialSink struct {
	OnIdentifiedAs             func(character CharacterName)
	OnServerHello              func(message string)
	OnServerVariable           func(name string, value any)
	OnConnectedCount           func(count int)
	OnExtendedFeaturesEnabled  func()
	OnError                    func(number int, message string)
	OnUptime                   func(uptime ServerUptime)
	OnDisconnected             func(reason DisconnectReason)
	OnBroadcast                func(sender CharacterName, message string, meta MessageMeta)
	OnSystemMessage            func(channel ChannelName, message string, meta MessageMeta)
	OnConsoleMessage           func(message string, meta MessageMeta)
	OnServerOps                func(ops []CharacterName)
	OnServerOpAdded            func(character CharacterName)
	OnServerOpRemoved          func(character CharacterName)
	OnFriendsList              func(friends []CharacterName)
	OnIgnoreList               func(characters []CharacterName)
	OnCharacterIgnored         func(character CharacterName)
	OnCharacterUnignored       func(character CharacterName)
	OnIgnoredMessageNotified   func(character CharacterName)
	OnCharactersBatch          func(entries []CharacterStatusEntry)
	OnCharacterOnline          func(character CharacterName, gender string, status OnlineStatus)
	OnCharacterOffline         func(character CharacterName)
	OnCharacterStatus          func(character CharacterName, status OnlineStatus, message string)
	OnCharacterTypingStatus    func(character CharacterName, status TypingStatus)
	OnJoinedChannel            func(channel ChannelName, title string)
	OnChannelCharacterJoined   func(channel ChannelName, character CharacterName)
	OnLeftChannel              func(channel ChannelName)
	OnChannelCharacterLeft     func(channel ChannelName, character CharacterName)
	OnChannelOps               func(channel ChannelName, ops []CharacterName)
	OnChannelOpAdded           func(channel ChannelName, character CharacterName)
	OnChannelOpRemoved         func(channel ChannelName, character CharacterName)
	OnChannelOwnerChanged      func(channel ChannelName, character CharacterName)
	OnChannelCharacters        func(channel ChannelName, characters []CharacterName, mode string)
	OnChannelDescription       func(channel ChannelName, description string)
	OnChannelHistoryCleared    func(channel ChannelName)
	OnInvitedToChannel         func(channel ChannelName, title string, sender CharacterName)
	OnPublicChannelsListed     func(channels []ChannelListEntry)
	OnPrivateChannelsListed    func(channels []ChannelListEntry)
	OnKickedFromChannel        func(channel ChannelName, operator CharacterName)
	OnChannelCharacterKicked   func(channel ChannelName, operator, character CharacterName)
	OnBannedFromChannel        func(channel ChannelName, operator CharacterName)
	OnChannelCharacterBanned   func(channel ChannelName, operator, character CharacterName)
	OnTimedOutFromChannel      func(channel ChannelName, operator CharacterName, seconds int)
	OnChannelCharacterTimedOut func(channel ChannelName, operator, character CharacterName, seconds int)
	OnChannelMessage           func(channel ChannelName, sender CharacterName, message string, meta MessageMeta)
	OnChannelAd                func(channel ChannelName, sender CharacterName, message string, meta MessageMeta)
	OnPMConvoMessage           func(interlocutor, sender CharacterName, message string, meta MessageMeta)
	OnPMConvoHistoryCleared    func(interlocutor CharacterName)
	OnRoll                     func(roll RollResult, meta MessageMeta)
	OnBottleSpin               func(spin BottleSpinResult, meta MessageMeta)
	OnRTBEvent                 func(eventType string, payload json.RawMessage)
	OnPartnerSearchResults     func(result PartnerSearchResult)
}

// Complete returns a ChatConnectionSink where every absent field is a no-op.
func (p PartialSink) Complete() ChatConnectionSink {
	return &partialSinkAdapter{p: p}
}

// partialSinkAdapter implements ChatConnectionSink over a PartialSink.
type partialSinkAdapter struct {
	p PartialSink
}

func (a *partialSinkAdapter) IdentifiedAs(character CharacterName) {
	if a.p.OnIdentifiedAs != nil {
		a.p.OnIdentifiedAs(character)
	}
}

func (a *partialSinkAdapter) ServerHelloReceived(message string) {
	if a.p.OnServerHello != nil {
		a.p.OnServerHello(message)
	}
}

func (a *partialSinkAdapter) ServerVariableReceived(name string, value any) {
	if a.p.OnServerVariable != nil {
		a.p.OnServerVariable(name, value)
	}
}

func (a *partialSinkAdapter) ConnectedCountReceived(count int) {
	if a.p.OnConnectedCount != nil {
		a.p.OnConnectedCount(count)
	}
}

func (a *partialSinkAdapter) ExtendedFeaturesEnabled() {
	if a.p.OnExtendedFeaturesEnabled != nil {
		a.p.OnExtendedFeaturesEnabled()
	}
}

func (a *partialSinkAdapter) ErrorReceived(number int, message string) {
	if a.p.OnError != nil {
		a.p.OnError(number, message)
	}
}

func (a *partialSinkAdapter) UptimeReceived(uptime ServerUptime) {
	if a.p.OnUptime != nil {
		a.p.OnUptime(uptime)
	}
}

func (a *partialSinkAdapter) DisconnectedFromServer(reason DisconnectReason) {
	if a.p.OnDisconnected != nil {
		a.p.OnDisconnected(reason)
	}
}

func (a *partialSinkAdapter) BroadcastReceived(sender CharacterName, message string, meta MessageMeta) {
	if a.p.OnBroadcast != nil {
		a.p.OnBroadcast(sender, message, meta)
	}
}

func (a *partialSinkAdapter) SystemMessageReceived(channel ChannelName, message string, meta MessageMeta) {
	if a.p.OnSystemMessage != nil {
		a.p.OnSystemMessage(channel, message, meta)
	}
}

func (a *partialSinkAdapter) ConsoleMessageReceived(message string, meta MessageMeta) {
	if a.p.OnConsoleMessage != nil {
		a.p.OnConsoleMessage(message, meta)
	}
}

func (a *partialSinkAdapter) ServerOpsReceived(ops []CharacterName) {
	if a.p.OnServerOps != nil {
		a.p.OnServerOps(ops)
	}
}

func (a *partialSinkAdapter) ServerOpAdded(character CharacterName) {
	if a.p.OnServerOpAdded != nil {
		a.p.OnServerOpAdded(character)
	}
}

func (a *partialSinkAdapter) ServerOpRemoved(character CharacterName) {
	if a.p.OnServerOpRemoved != nil {
		a.p.OnServerOpRemoved(character)
	}
}

func (a *partialSinkAdapter) FriendsListReceived(friends []CharacterName) {
	if a.p.OnFriendsList != nil {
		a.p.OnFriendsList(friends)
	}
}

func (a *partialSinkAdapter) IgnoreListReceived(characters []CharacterName) {
	if a.p.OnIgnoreList != nil {
		a.p.OnIgnoreList(characters)
	}
}

func (a *partialSinkAdapter) CharacterIgnored(character CharacterName) {
	if a.p.OnCharacterIgnored != nil {
		a.p.OnCharacterIgnored(character)
	}
}

func (a *partialSinkAdapter) CharacterUnignored(character CharacterName) {
	if a.p.OnCharacterUnignored != nil {
		a.p.OnCharacterUnignored(character)
	}
}

func (a *partialSinkAdapter) IgnoredMessageNotified(character CharacterName) {
	if a.p.OnIgnoredMessageNotified != nil {
		a.p.OnIgnoredMessageNotified(character)
	}
}

func (a *partialSinkAdapter) CharactersBatchReceived(entries []CharacterStatusEntry) {
	if a.p.OnCharactersBatch != nil {
		a.p.OnCharactersBatch(entries)
	}
}

func (a *partialSinkAdapter) CharacterCameOnline(character CharacterName, gender string, status OnlineStatus) {
	if a.p.OnCharacterOnline != nil {
		a.p.OnCharacterOnline(character, gender, status)
	}
}

func (a *partialSinkAdapter) CharacterWentOffline(character CharacterName) {
	if a.p.OnCharacterOffline != nil {
		a.p.OnCharacterOffline(character)
	}
}

func (a *partialSinkAdapter) CharacterStatusChanged(character CharacterName, status OnlineStatus, message string) {
	if a.p.OnCharacterStatus != nil {
		a.p.OnCharacterStatus(character, status, message)
	}
}

func (a *partialSinkAdapter) CharacterTypingStatusChanged(character CharacterName, status TypingStatus) {
	if a.p.OnCharacterTypingStatus != nil {
		a.p.OnCharacterTypingStatus(character, status)
	}
}

func (a *partialSinkAdapter) JoinedChannel(channel ChannelName, title string) {
	if a.p.OnJoinedChannel != nil {
		a.p.OnJoinedChannel(channel, title)
	}
}

func (a *partialSinkAdapter) ChannelCharacterJoined(channel ChannelName, character CharacterName) {
	if a.p.OnChannelCharacterJoined != nil {
		a.p.OnChannelCharacterJoined(channel, character)
	}
}

func (a *partialSinkAdapter) LeftChannel(channel ChannelName) {
	if a.p.OnLeftChannel != nil {
		a.p.OnLeftChannel(channel)
	}
}

func (a *partialSinkAdapter) ChannelCharacterLeft(channel ChannelName, character CharacterName) {
	if a.p.OnChannelCharacterLeft != nil {
		a.p.OnChannelCharacterLeft(channel, character)
	}
}

func (a *partialSinkAdapter) ChannelOpsReceived(channel ChannelName, ops []CharacterName) {
	if a.p.OnChannelOps != nil {
		a.p.OnChannelOps(channel, ops)
	}
}

func (a *partialSinkAdapter) ChannelOpAdded(channel ChannelName, character CharacterName) {
	if a.p.OnChannelOpAdded != nil {
		a.p.OnChannelOpAdded(channel, character)
	}
}

func (a *partialSinkAdapter) ChannelOpRemoved(channel ChannelName, character CharacterName) {
	if a.p.OnChannelOpRemoved != nil {
		a.p.OnChannelOpRemoved(channel, character)
	}
}

func (a *partialSinkAdapter) ChannelOwnerChanged(channel ChannelName, character CharacterName) {
	if a.p.OnChannelOwnerChanged != nil {
		a.p.OnChannelOwnerChanged(channel, character)
	}
}

func (a *partialSinkAdapter) ChannelCharactersReceived(channel ChannelName, characters []CharacterName, mode string) {
	if a.p.OnChannelCharacters != nil {
		a.p.OnChannelCharacters(channel, characters, mode)
	}
}

func (a *partialSinkAdapter) ChannelDescriptionReceived(channel ChannelName, description string) {
	if a.p.OnChannelDescription != nil {
		a.p.OnChannelDescription(channel, description)
	}
}

func (a *partialSinkAdapter) ChannelHistoryCleared(channel ChannelName) {
	if a.p.OnChannelHistoryCleared != nil {
		a.p.OnChannelHistoryCleared(channel)
	}
}

func (a *partialSinkAdapter) InvitedToChannel(channel ChannelName, title string, sender CharacterName) {
	if a.p.OnInvitedToChannel != nil {
		a.p.OnInvitedToChannel(channel, title, sender)
	}
}

func (a *partialSinkAdapter) PublicChannelsListed(channels []ChannelListEntry) {
	if a.p.OnPublicChannelsListed != nil {
		a.p.OnPublicChannelsListed(channels)
	}
}

func (a *partialSinkAdapter) PrivateChannelsListed(channels []ChannelListEntry) {
	if a.p.OnPrivateChannelsListed != nil {
		a.p.OnPrivateChannelsListed(channels)
	}
}

func (a *partialSinkAdapter) KickedFromChannel(channel ChannelName, operator CharacterName) {
	if a.p.OnKickedFromChannel != nil {
		a.p.OnKickedFromChannel(channel, operator)
	}
}

func (a *partialSinkAdapter) ChannelCharacterKicked(channel ChannelName, operator, character CharacterName) {
	if a.p.OnChannelCharacterKicked != nil {
		a.p.OnChannelCharacterKicked(channel, operator, character)
	}
}

func (a *partialSinkAdapter) BannedFromChannel(channel ChannelName, operator CharacterName) {
	if a.p.OnBannedFromChannel != nil {
		a.p.OnBannedFromChannel(channel, operator)
	}
}

func (a *partialSinkAdapter) ChannelCharacterBanned(channel ChannelName, operator, character CharacterName) {
	if a.p.OnChannelCharacterBanned != nil {
		a.p.OnChannelCharacterBanned(channel, operator, character)
	}
}

func (a *partialSinkAdapter) TimedOutFromChannel(channel ChannelName, operator CharacterName, seconds int) {
	if a.p.OnTimedOutFromChannel != nil {
		a.p.OnTimedOutFromChannel(channel, operator, seconds)
	}
}

func (a *partialSinkAdapter) ChannelCharacterTimedOut(channel ChannelName, operator, character CharacterName, seconds int) {
	if a.p.OnChannelCharacterTimedOut != nil {
		a.p.OnChannelCharacterTimedOut(channel, operator, character, seconds)
	}
}

func (a *partialSinkAdapter) ChannelMessageReceived(channel ChannelName, sender CharacterName, message string, meta MessageMeta) {
	if a.p.OnChannelMessage != nil {
		a.p.OnChannelMessage(channel, sender, message, meta)
	}
}

func (a *partialSinkAdapter) ChannelAdReceived(channel ChannelName, sender CharacterName, message string, meta MessageMeta) {
	if a.p.OnChannelAd != nil {
		a.p.OnChannelAd(channel, sender, message, meta)
	}
}

func (a *partialSinkAdapter) PMConvoHistoryCleared(interlocutor CharacterName) {
	if a.p.OnPMConvoHistoryCleared != nil {
		a.p.OnPMConvoHistoryCleared(interlocutor)
	}
}

func (a *partialSinkAdapter) PMConvoMessageReceived(interlocutor, sender CharacterName, message string, meta MessageMeta) {
	if a.p.OnPMConvoMessage != nil {
		a.p.OnPMConvoMessage(interlocutor, sender, message, meta)
	}
}

func (a *partialSinkAdapter) RollReceived(roll RollResult, meta MessageMeta) {
	if a.p.OnRoll != nil {
		a.p.OnRoll(roll, meta)
	}
}

func (a *partialSinkAdapter) BottleSpinReceived(spin BottleSpinResult, meta MessageMeta) {
	if a.p.OnBottleSpin != nil {
		a.p.OnBottleSpin(spin, meta)
	}
}

func (a *partialSinkAdapter) RTBEventReceived(eventType string, payload json.RawMessage) {
	if a.p.OnRTBEvent != nil {
		a.p.OnRTBEvent(eventType, payload)
	}
}

func (a *partialSinkAdapter) PartnerSearchResultsReceived(result PartnerSearchResult) {
	if a.p.OnPartnerSearchResults != nil {
		a.p.OnPartnerSearchResults(result)
	}
}
