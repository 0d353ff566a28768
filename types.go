package fchat

import (
	"fmt"
	"strings"
	"time"
)

// CharacterName is a validated character name. Names are compared
// case-insensitively by the server but delivered with canonical casing,
// so the value preserves the wire form and Equals folds case.
type CharacterName string

// NewCharacterName validates and wraps a character name.
func NewCharacterName(s string) (CharacterName, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("character name is empty")
	}
	if len(s) > 64 {
		return "", fmt.Errorf("character name too long: %d bytes", len(s))
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return "", fmt.Errorf("character name contains control characters")
		}
	}
	return CharacterName(s), nil
}

// Equals compares two character names case-insensitively.
func (c CharacterName) Equals(other CharacterName) bool {
	return strings.EqualFold(string(c), string(other))
}

// IsEmpty reports whether this is the unidentified sentinel.
func (c CharacterName) IsEmpty() bool {
	return c == ""
}

func (c CharacterName) String() string { return string(c) }

// ChannelName is a validated channel identifier. Public channels use their
// title; private channels use an opaque ADH-prefixed id.
type ChannelName string

// NewChannelName validates and wraps a channel name.
func NewChannelName(s string) (ChannelName, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("channel name is empty")
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return "", fmt.Errorf("channel name contains control characters")
		}
	}
	return ChannelName(s), nil
}

// Equals compares two channel names case-insensitively.
func (c ChannelName) Equals(other ChannelName) bool {
	return strings.EqualFold(string(c), string(other))
}

func (c ChannelName) String() string { return string(c) }

// OnlineStatus is a character's advertised availability.
type OnlineStatus string

// Online statuses understood by the server.
const (
	StatusOnline  OnlineStatus = "online"
	StatusLooking OnlineStatus = "looking"
	StatusBusy    OnlineStatus = "busy"
	StatusAway    OnlineStatus = "away"
	StatusDND     OnlineStatus = "dnd"
	StatusIdle    OnlineStatus = "idle"
	StatusOffline OnlineStatus = "offline"
	StatusCrown   OnlineStatus = "crown"
)

// TypingStatus is a character's typing indicator state.
type TypingStatus string

// Typing statuses carried by TPN frames.
const (
	TypingStatusTyping TypingStatus = "typing"
	TypingStatusPaused TypingStatus = "paused"
	TypingStatusNone   TypingStatus = "none"
)

// typingStatusFromWire maps the server's upper-case TPN status values.
func typingStatusFromWire(s string) TypingStatus {
	switch strings.ToUpper(s) {
	case "TYPING":
		return TypingStatusTyping
	case "PAUSED":
		return TypingStatusPaused
	default:
		return TypingStatusNone
	}
}

// wire returns the upper-case form TPN frames carry.
func (t TypingStatus) wire() string {
	return strings.ToUpper(string(t))
}

// DisconnectReason classifies why a connection ended. Reported exactly once
// per connection through the sink.
type DisconnectReason int

const (
	// UnexpectedDisconnect is any teardown the client neither requested nor
	// was told about: transport failure, loop failure, router restart.
	UnexpectedDisconnect DisconnectReason = iota
	// RequestedDisconnect is an explicit caller-initiated logout or dispose.
	RequestedDisconnect
	// KickedFromServer is a teardown following the banned-from-server error.
	KickedFromServer
)

// String returns a human-readable representation of the disconnect reason.
func (r DisconnectReason) String() string {
	switch r {
	case UnexpectedDisconnect:
		return "UNEXPECTED_DISCONNECT"
	case RequestedDisconnect:
		return "REQUESTED_DISCONNECT"
	case KickedFromServer:
		return "KICKED_FROM_SERVER"
	default:
		return "UNKNOWN"
	}
}

// CharacterStatusEntry is one character's snapshot from a LIS batch.
type CharacterStatusEntry struct {
	Character     CharacterName
	Gender        string
	Status        OnlineStatus
	StatusMessage string
}

// ChannelListEntry is one channel from a CHA or ORS listing.
type ChannelListEntry struct {
	Name       ChannelName
	Title      string
	Mode       string
	Characters int
}

// PartnerSearchResult carries the characters matched by an FKS search.
type PartnerSearchResult struct {
	Characters []CharacterName
	Kinks      []int
}

// RollResult is a decoded dice roll. For private rolls Channel is empty and
// Interlocutor names the other side of the conversation.
type RollResult struct {
	Channel      ChannelName
	Interlocutor CharacterName
	Roller       CharacterName
	Rolls        []string
	Results      []int
	EndResult    int
	Message      string
}

// BottleSpinResult is a decoded bottle spin.
type BottleSpinResult struct {
	Channel ChannelName
	Spinner CharacterName
	Target  CharacterName
	Message string
}

// ServerUptime is the decoded UPT response.
type ServerUptime struct {
	StartTime   time.Time
	Connections int
	Channels    int
	Users       int
	MaxUsers    int
}

// MessageMeta distinguishes live traffic from historical replay. Historical
// messages carry the server-supplied timestamp instead of receipt time.
type MessageMeta struct {
	IsHistorical bool
	Time         time.Time
}

// liveMeta stamps a live message with the local receipt time.
func liveMeta() MessageMeta {
	return MessageMeta{Time: time.Now()}
}

// historicalMeta stamps a replayed message with the server timestamp.
func historicalMeta(t time.Time) MessageMeta {
	return MessageMeta{IsHistorical: true, Time: t}
}
