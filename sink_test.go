package fchat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPartialSinkDelegation verifies set fields receive their events.
func TestPartialSinkDelegation(t *testing.T) {
	var identified CharacterName
	var errNumber int

	sink := PartialSink{
		OnIdentifiedAs: func(character CharacterName) { identified = character },
		OnError:        func(number int, _ string) { errNumber = number },
	}.Complete()

	sink.IdentifiedAs(CharacterName("Alice"))
	sink.ErrorReceived(26, "no such channel")

	assert.Equal(t, CharacterName("Alice"), identified)
	assert.Equal(t, 26, errNumber)
}

// TestPartialSinkAbsentFieldsAreNoOps verifies unset fields don't panic.
func TestPartialSinkAbsentFieldsAreNoOps(t *testing.T) {
	sink := PartialSink{}.Complete()

	assert.NotPanics(t, func() {
		sink.IdentifiedAs(CharacterName("Alice"))
		sink.ServerHelloReceived("hello")
		sink.ConnectedCountReceived(1)
		sink.ExtendedFeaturesEnabled()
		sink.ErrorReceived(1, "x")
		sink.DisconnectedFromServer(UnexpectedDisconnect)
		sink.ChannelMessageReceived("Lounge", "Bob", "hi", liveMeta())
		sink.PMConvoMessageReceived("Bob", "Bob", "hi", liveMeta())
		sink.PMConvoHistoryCleared("Bob")
		sink.RollReceived(RollResult{}, liveMeta())
		sink.BottleSpinReceived(BottleSpinResult{}, liveMeta())
		sink.KickedFromChannel("Lounge", "Mod")
		sink.RTBEventReceived("note", nil)
	})
}
