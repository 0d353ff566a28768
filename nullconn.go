package fchat

import "context"

// NullChatConnection is the "no connection" object: a ChatConnection that
// is always disposed. Messaging and membership calls succeed as silent
// no-ops so UI code paths don't need nil checks; operations whose silent
// success would mislead (moderation lists, channel creation, searches,
// reports) fail with ErrUnavailable instead.
type NullChatConnection struct{}

var _ ChatConnection = NullChatConnection{}

// Null is the shared null connection instance.
var Null = NullChatConnection{}

func (NullChatConnection) Identify(context.Context, string, string, CharacterName) error {
	return ErrUnavailable
}

func (NullChatConnection) IdentifiedCharacter() CharacterName { return "" }

func (NullChatConnection) HasExtendedFeatures() bool { return false }

func (NullChatConnection) ServerVariable(string) (any, bool) { return nil, false }

func (NullChatConnection) JoinChannel(context.Context, ChannelName) error { return nil }

func (NullChatConnection) LeaveChannel(context.Context, ChannelName) error { return nil }

func (NullChatConnection) SendChannelMessage(context.Context, ChannelName, string) error { return nil }

func (NullChatConnection) SendChannelAd(context.Context, ChannelName, string) error { return nil }

func (NullChatConnection) SendPrivateMessage(context.Context, CharacterName, string) error {
	return nil
}

func (NullChatConnection) SetTypingStatus(context.Context, CharacterName, TypingStatus) error {
	return nil
}

func (NullChatConnection) SetStatus(context.Context, OnlineStatus, string) error { return nil }

func (NullChatConnection) SetIdleStatus(context.Context, bool) error { return nil }

func (NullChatConnection) RollDice(context.Context, ChannelName, string) error { return nil }

func (NullChatConnection) RollDicePrivate(context.Context, CharacterName, string) error { return nil }

func (NullChatConnection) SpinBottle(context.Context, ChannelName) error { return nil }

func (NullChatConnection) KickFromChannel(context.Context, ChannelName, CharacterName) error {
	return nil
}

func (NullChatConnection) BanFromChannel(context.Context, ChannelName, CharacterName) error {
	return nil
}

func (NullChatConnection) UnbanFromChannel(context.Context, ChannelName, CharacterName) error {
	return nil
}

func (NullChatConnection) TimeoutFromChannel(context.Context, ChannelName, CharacterName, int) error {
	return nil
}

func (NullChatConnection) InviteToChannel(context.Context, ChannelName, CharacterName) error {
	return nil
}

func (NullChatConnection) SetChannelDescription(context.Context, ChannelName, string) error {
	return nil
}

func (NullChatConnection) SetChannelMode(context.Context, ChannelName, string) error {
	return nil
}

func (NullChatConnection) SetChannelOwner(context.Context, ChannelName, CharacterName) error {
	return nil
}

func (NullChatConnection) ChannelAddOp(context.Context, ChannelName, CharacterName) error {
	return nil
}

func (NullChatConnection) ChannelRemoveOp(context.Context, ChannelName, CharacterName) error {
	return nil
}

func (NullChatConnection) GetChannelOpList(context.Context, ChannelName) error {
	return ErrUnavailable
}

func (NullChatConnection) GetChannelBanList(context.Context, ChannelName) error {
	return ErrUnavailable
}

func (NullChatConnection) CreatePrivateChannel(context.Context, string) error {
	return ErrUnavailable
}

func (NullChatConnection) IgnoreCharacter(context.Context, CharacterName) error { return nil }

func (NullChatConnection) UnignoreCharacter(context.Context, CharacterName) error { return nil }

func (NullChatConnection) NotifyIgnoredMessage(context.Context, CharacterName) error { return nil }

func (NullChatConnection) ListPublicChannels(context.Context) error { return nil }

func (NullChatConnection) ListPrivateChannels(context.Context) error { return nil }

func (NullChatConnection) AccountBan(context.Context, CharacterName) error { return ErrUnavailable }

func (NullChatConnection) AccountKick(context.Context, CharacterName) error { return ErrUnavailable }

func (NullChatConnection) RequestUptime(context.Context) error { return nil }

func (NullChatConnection) SearchPartners(context.Context, []int, []string) error {
	return ErrUnavailable
}

func (NullChatConnection) SubmitReport(context.Context, string, CharacterName, ChannelName) error {
	return ErrUnavailable
}

func (NullChatConnection) NotifyTabClosed(context.Context, CharacterName) error { return nil }

func (NullChatConnection) Quiesce(context.Context) error { return nil }

func (NullChatConnection) LogOut() {}

func (NullChatConnection) Dispose() {}

func (NullChatConnection) IsDisposed() bool { return true }
