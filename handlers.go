package fchat

import (
	"time"

	"github.com/rs/zerolog/log"
)

// errBody is the ERR frame body.
type errBody struct {
	Number  int    `json:"number"`
	Message string `json:"message"`
}

// buildHandlerTable maps every inbound code this client understands to its
// translation into sink events. Codes absent from the table are treated as
// unknown and logged; they never fail the connection.
func (c *Conn) buildHandlerTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		CodeIDN: c.handleIDN,
		CodeVAR: c.handleVAR,
		CodeHLO: c.handleHLO,
		CodeCON: c.handleCON,
		CodeAOP: c.handleAOP,
		CodeDOP: c.handleDOP,
		CodeADL: c.handleADL,
		CodeFRL: c.handleFRL,
		CodeIGN: c.handleIGN,
		CodeLIS: c.handleLIS,
		CodeBRO: c.handleBRO,
		CodeNLN: c.handleNLN,
		CodeFLN: c.handleFLN,
		CodeJCH: c.handleJCH,
		CodeLCH: c.handleLCH,
		CodeCOL: c.handleCOL,
		CodeCOA: c.handleCOA,
		CodeCOR: c.handleCOR,
		CodeCSO: c.handleCSO,
		CodeICH: c.handleICH,
		CodeCDS: c.handleCDS,
		CodeSTA: c.handleSTA,
		CodeTPN: c.handleTPN,
		CodePRI: c.handlePRI,
		CodeMSG: c.handleMSG,
		CodeLRP: c.handleLRP,
		CodeRLL: c.handleRLL,
		CodeCIU: c.handleCIU,
		CodeRTB: c.handleRTB,
		CodeCKU: c.handleCKU,
		CodeCBU: c.handleCBU,
		CodeCTU: c.handleCTU,
		CodeERR: c.handleERR,
		CodeSYS: c.handleSYS,
		CodeUPT: c.handleUPT,
		CodeCHA: c.handleCHA,
		CodeORS: c.handleORS,
		CodeFKS: c.handleFKS,
		CodeXHM: c.handleXHM,
		CodeXPM: c.handleXPM,
		CodeXNN: c.handleXNN,
	}
}

// isMe reports whether a wire character name is the identified character.
func (c *Conn) isMe(name string) bool {
	return c.IdentifiedCharacter().Equals(CharacterName(name))
}

func (c *Conn) handleIDN(m *Handleable) error {
	var body struct {
		Character string `json:"character"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	name, err := NewCharacterName(body.Character)
	if err != nil {
		return err
	}
	c.stateMu.Lock()
	c.identified = name
	c.stateMu.Unlock()
	m.MarkHandled()
	c.sink.IdentifiedAs(name)
	return nil
}

func (c *Conn) handleVAR(m *Handleable) error {
	var body struct {
		Variable string `json:"variable"`
		Value    any    `json:"value"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	c.stateMu.Lock()
	c.serverVars[body.Variable] = body.Value
	c.stateMu.Unlock()
	m.MarkHandled()
	c.sink.ServerVariableReceived(body.Variable, body.Value)
	return nil
}

func (c *Conn) handleHLO(m *Handleable) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ServerHelloReceived(unescapeEntities(body.Message))
	return nil
}

func (c *Conn) handleCON(m *Handleable) error {
	var body struct {
		Count int `json:"count"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ConnectedCountReceived(body.Count)
	return nil
}

func (c *Conn) handleAOP(m *Handleable) error {
	var body characterBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ServerOpAdded(CharacterName(body.Character))
	return nil
}

func (c *Conn) handleDOP(m *Handleable) error {
	var body characterBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ServerOpRemoved(CharacterName(body.Character))
	return nil
}

func (c *Conn) handleADL(m *Handleable) error {
	var body struct {
		Ops []string `json:"ops"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ServerOpsReceived(toCharacterNames(body.Ops))
	return nil
}

func (c *Conn) handleFRL(m *Handleable) error {
	var body struct {
		Characters []string `json:"characters"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.FriendsListReceived(toCharacterNames(body.Characters))
	return nil
}

// handleIGN demultiplexes inbound ignore list traffic on its action field.
func (c *Conn) handleIGN(m *Handleable) error {
	var body struct {
		Action     string   `json:"action"`
		Character  string   `json:"character"`
		Characters []string `json:"characters"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	switch body.Action {
	case "init":
		c.sink.IgnoreListReceived(toCharacterNames(body.Characters))
	case "add":
		c.sink.CharacterIgnored(CharacterName(body.Character))
	case "delete":
		c.sink.CharacterUnignored(CharacterName(body.Character))
	case "notify":
		c.sink.IgnoredMessageNotified(CharacterName(body.Character))
	default:
		log.Warn().Str("action", body.Action).Msg("unknown ignore list action")
	}
	return nil
}

// handleLIS decodes one batch of the initial online-characters dump. The
// wire form is an array of [name, gender, status, statusmsg] tuples.
func (c *Conn) handleLIS(m *Handleable) error {
	var body struct {
		Characters [][]string `json:"characters"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	entries := make([]CharacterStatusEntry, 0, len(body.Characters))
	for _, tuple := range body.Characters {
		if len(tuple) < 4 {
			log.Warn().Int("fields", len(tuple)).Msg("short character list tuple")
			continue
		}
		entries = append(entries, CharacterStatusEntry{
			Character:     CharacterName(tuple[0]),
			Gender:        tuple[1],
			Status:        OnlineStatus(tuple[2]),
			StatusMessage: unescapeEntities(tuple[3]),
		})
	}
	c.sink.CharactersBatchReceived(entries)
	return nil
}

func (c *Conn) handleBRO(m *Handleable) error {
	var body struct {
		Character string `json:"character"`
		Message   string `json:"message"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.BroadcastReceived(CharacterName(body.Character), unescapeEntities(body.Message), liveMeta())
	return nil
}

func (c *Conn) handleNLN(m *Handleable) error {
	var body struct {
		Identity string `json:"identity"`
		Gender   string `json:"gender"`
		Status   string `json:"status"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.CharacterCameOnline(CharacterName(body.Identity), body.Gender, OnlineStatus(body.Status))
	return nil
}

func (c *Conn) handleFLN(m *Handleable) error {
	var body characterBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.CharacterWentOffline(CharacterName(body.Character))
	return nil
}

// handleJCH branches on identity: our own join confirms channel entry and
// carries the title; anyone else's is a membership event.
func (c *Conn) handleJCH(m *Handleable) error {
	var body struct {
		Channel   string `json:"channel"`
		Title     string `json:"title"`
		Character struct {
			Identity string `json:"identity"`
		} `json:"character"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	if c.isMe(body.Character.Identity) {
		c.sink.JoinedChannel(ChannelName(body.Channel), unescapeEntities(body.Title))
	} else {
		c.sink.ChannelCharacterJoined(ChannelName(body.Channel), CharacterName(body.Character.Identity))
	}
	return nil
}

func (c *Conn) handleLCH(m *Handleable) error {
	var body channelCharacterBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	if c.isMe(body.Character) {
		c.sink.LeftChannel(ChannelName(body.Channel))
	} else {
		c.sink.ChannelCharacterLeft(ChannelName(body.Channel), CharacterName(body.Character))
	}
	return nil
}

func (c *Conn) handleCOL(m *Handleable) error {
	var body struct {
		Channel string   `json:"channel"`
		OpList  []string `json:"oplist"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ChannelOpsReceived(ChannelName(body.Channel), toCharacterNames(body.OpList))
	return nil
}

func (c *Conn) handleCOA(m *Handleable) error {
	var body channelCharacterBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ChannelOpAdded(ChannelName(body.Channel), CharacterName(body.Character))
	return nil
}

func (c *Conn) handleCOR(m *Handleable) error {
	var body channelCharacterBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ChannelOpRemoved(ChannelName(body.Channel), CharacterName(body.Character))
	return nil
}

func (c *Conn) handleCSO(m *Handleable) error {
	var body channelCharacterBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ChannelOwnerChanged(ChannelName(body.Channel), CharacterName(body.Character))
	return nil
}

func (c *Conn) handleICH(m *Handleable) error {
	var body struct {
		Channel string `json:"channel"`
		Mode    string `json:"mode"`
		Users   []struct {
			Identity string `json:"identity"`
		} `json:"users"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	characters := make([]CharacterName, 0, len(body.Users))
	for _, u := range body.Users {
		characters = append(characters, CharacterName(u.Identity))
	}
	c.sink.ChannelCharactersReceived(ChannelName(body.Channel), characters, body.Mode)
	return nil
}

func (c *Conn) handleCDS(m *Handleable) error {
	var body struct {
		Channel     string `json:"channel"`
		Description string `json:"description"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ChannelDescriptionReceived(ChannelName(body.Channel), unescapeEntities(body.Description))
	return nil
}

func (c *Conn) handleSTA(m *Handleable) error {
	var body struct {
		Character     string `json:"character"`
		Status        string `json:"status"`
		StatusMessage string `json:"statusmsg"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.CharacterStatusChanged(CharacterName(body.Character), OnlineStatus(body.Status), unescapeEntities(body.StatusMessage))
	return nil
}

// handleTPN only sees TPN frames no bracket consumed: other characters'
// typing indicators, plus our own echoes arriving outside any bracket.
func (c *Conn) handleTPN(m *Handleable) error {
	var body tpnBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	if c.isMe(body.Character) {
		// Stray marker echo, e.g. after a cancelled bracket. Dropped.
		return nil
	}
	c.sink.CharacterTypingStatusChanged(CharacterName(body.Character), typingStatusFromWire(body.Status))
	return nil
}

func (c *Conn) handlePRI(m *Handleable) error {
	var body struct {
		Character string `json:"character"`
		Message   string `json:"message"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	sender := CharacterName(body.Character)
	c.sink.PMConvoMessageReceived(sender, sender, unescapeEntities(body.Message), liveMeta())
	return nil
}

func (c *Conn) handleMSG(m *Handleable) error {
	var body struct {
		Character string `json:"character"`
		Channel   string `json:"channel"`
		Message   string `json:"message"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ChannelMessageReceived(ChannelName(body.Channel), CharacterName(body.Character), unescapeEntities(body.Message), liveMeta())
	return nil
}

func (c *Conn) handleLRP(m *Handleable) error {
	var body struct {
		Character string `json:"character"`
		Channel   string `json:"channel"`
		Message   string `json:"message"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ChannelAdReceived(ChannelName(body.Channel), CharacterName(body.Character), unescapeEntities(body.Message), liveMeta())
	return nil
}

// rllBody covers both roll results and bottle spins; Type discriminates.
type rllBody struct {
	Type      string   `json:"type"`
	Channel   string   `json:"channel"`
	Recipient string   `json:"recipient"`
	Character string   `json:"character"`
	Target    string   `json:"target"`
	Rolls     []string `json:"rolls"`
	Results   []int    `json:"results"`
	EndResult int      `json:"endresult"`
	Message   string   `json:"message"`
}

// handleRLL discriminates dice rolls from bottle spins, and for channel-less
// dice rolls works out which side of the roll is the conversation partner.
func (c *Conn) handleRLL(m *Handleable) error {
	var body rllBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()

	if body.Type == "bottle" {
		c.sink.BottleSpinReceived(BottleSpinResult{
			Channel: ChannelName(body.Channel),
			Spinner: CharacterName(body.Character),
			Target:  CharacterName(body.Target),
			Message: unescapeEntities(body.Message),
		}, liveMeta())
		return nil
	}

	roll := RollResult{
		Channel:   ChannelName(body.Channel),
		Roller:    CharacterName(body.Character),
		Rolls:     body.Rolls,
		Results:   body.Results,
		EndResult: body.EndResult,
		Message:   unescapeEntities(body.Message),
	}
	if body.Channel == "" {
		// Private roll: the interlocutor is whichever side isn't us.
		if c.isMe(body.Character) {
			roll.Interlocutor = CharacterName(body.Recipient)
		} else {
			roll.Interlocutor = CharacterName(body.Character)
		}
	}
	c.sink.RollReceived(roll, liveMeta())
	return nil
}

func (c *Conn) handleCIU(m *Handleable) error {
	var body struct {
		Sender string `json:"sender"`
		Title  string `json:"title"`
		Name   string `json:"name"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.InvitedToChannel(ChannelName(body.Name), unescapeEntities(body.Title), CharacterName(body.Sender))
	return nil
}

// handleRTB forwards real-time bridge events verbatim; their payloads are
// account-level and not interpreted here.
func (c *Conn) handleRTB(m *Handleable) error {
	var body struct {
		Type string `json:"type"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.RTBEventReceived(body.Type, m.Msg.Body)
	return nil
}

type moderationBody struct {
	Channel   string `json:"channel"`
	Operator  string `json:"operator"`
	Character string `json:"character"`
	Length    int    `json:"length"`
}

func (c *Conn) handleCKU(m *Handleable) error {
	var body moderationBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	if c.isMe(body.Character) {
		c.sink.KickedFromChannel(ChannelName(body.Channel), CharacterName(body.Operator))
	} else {
		c.sink.ChannelCharacterKicked(ChannelName(body.Channel), CharacterName(body.Operator), CharacterName(body.Character))
	}
	return nil
}

func (c *Conn) handleCBU(m *Handleable) error {
	var body moderationBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	if c.isMe(body.Character) {
		c.sink.BannedFromChannel(ChannelName(body.Channel), CharacterName(body.Operator))
	} else {
		c.sink.ChannelCharacterBanned(ChannelName(body.Channel), CharacterName(body.Operator), CharacterName(body.Character))
	}
	return nil
}

func (c *Conn) handleCTU(m *Handleable) error {
	var body moderationBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	if c.isMe(body.Character) {
		c.sink.TimedOutFromChannel(ChannelName(body.Channel), CharacterName(body.Operator), body.Length)
	} else {
		c.sink.ChannelCharacterTimedOut(ChannelName(body.Channel), CharacterName(body.Operator), CharacterName(body.Character), body.Length)
	}
	return nil
}

// handleERR reports every error frame to the sink, whether or not a bracket
// already turned it into a call failure. The banned-from-server error
// additionally tears the connection down so the disconnect classifies as a
// server kick.
func (c *Conn) handleERR(m *Handleable) error {
	var body errBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.ErrorReceived(body.Number, unescapeEntities(body.Message))
	if body.Number == ErrNumBannedFromServer {
		log.Warn().Msg("banned from server")
		c.markBanned()
		c.disposeInternal()
	}
	return nil
}

func (c *Conn) handleSYS(m *Handleable) error {
	var body struct {
		Message string `json:"message"`
		Channel string `json:"channel"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.SystemMessageReceived(ChannelName(body.Channel), unescapeEntities(body.Message), liveMeta())
	return nil
}

func (c *Conn) handleUPT(m *Handleable) error {
	var body struct {
		StartTime int64 `json:"starttime"`
		Accepted  int   `json:"accepted"`
		Channels  int   `json:"channels"`
		Users     int   `json:"users"`
		MaxUsers  int   `json:"maxusers"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.UptimeReceived(ServerUptime{
		StartTime:   time.Unix(body.StartTime, 0),
		Connections: body.Accepted,
		Channels:    body.Channels,
		Users:       body.Users,
		MaxUsers:    body.MaxUsers,
	})
	return nil
}

type channelListBody struct {
	Channels []struct {
		Name       string `json:"name"`
		Title      string `json:"title"`
		Mode       string `json:"mode"`
		Characters int    `json:"characters"`
	} `json:"channels"`
}

func (b channelListBody) entries() []ChannelListEntry {
	out := make([]ChannelListEntry, 0, len(b.Channels))
	for _, ch := range b.Channels {
		title := ch.Title
		if title == "" {
			title = ch.Name
		}
		out = append(out, ChannelListEntry{
			Name:       ChannelName(ch.Name),
			Title:      unescapeEntities(title),
			Mode:       ch.Mode,
			Characters: ch.Characters,
		})
	}
	return out
}

func (c *Conn) handleCHA(m *Handleable) error {
	var body channelListBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.PublicChannelsListed(body.entries())
	return nil
}

func (c *Conn) handleORS(m *Handleable) error {
	var body channelListBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.PrivateChannelsListed(body.entries())
	return nil
}

func (c *Conn) handleFKS(m *Handleable) error {
	var body struct {
		Characters []string `json:"characters"`
		Kinks      []int    `json:"kinks"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	c.sink.PartnerSearchResultsReceived(PartnerSearchResult{
		Characters: toCharacterNames(body.Characters),
		Kinks:      body.Kinks,
	})
	return nil
}

// xhmBody is a historical replay frame: one backlog message for a channel
// ("ch:Name"), a PM conversation ("pm:Name"), or the console ("con"),
// tagged with a nested message subtype and the original send time.
type xhmBody struct {
	Channel     string   `json:"channel"`
	MessageType string   `json:"messagetype"`
	Character   string   `json:"character"`
	Message     string   `json:"message"`
	Timestamp   int64    `json:"timestamp"`
	Target      string   `json:"target"`
	Rolls       []string `json:"rolls"`
	Results     []int    `json:"results"`
	EndResult   int      `json:"endresult"`
}

const (
	xhmChannelPrefix = "ch:"
	xhmPMPrefix      = "pm:"
	xhmConsole       = "con"
)

// handleXHM replays backlog. Each frame is demultiplexed twice: first on
// the composite channel id, then on the message subtype, and the resulting
// sink call carries the server timestamp flagged historical instead of the
// local receipt time.
func (c *Conn) handleXHM(m *Handleable) error {
	var body xhmBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()

	meta := historicalMeta(time.Unix(body.Timestamp, 0))
	sender := CharacterName(body.Character)
	text := unescapeEntities(body.Message)

	switch {
	case len(body.Channel) > len(xhmChannelPrefix) && body.Channel[:len(xhmChannelPrefix)] == xhmChannelPrefix:
		channel := ChannelName(body.Channel[len(xhmChannelPrefix):])
		switch body.MessageType {
		case "CLR":
			c.sink.ChannelHistoryCleared(channel)
		case "MSG":
			c.sink.ChannelMessageReceived(channel, sender, text, meta)
		case "LRP":
			c.sink.ChannelAdReceived(channel, sender, text, meta)
		case "SYS":
			c.sink.SystemMessageReceived(channel, text, meta)
		case "ROLL":
			c.sink.RollReceived(RollResult{
				Channel:   channel,
				Roller:    sender,
				Rolls:     body.Rolls,
				Results:   body.Results,
				EndResult: body.EndResult,
				Message:   text,
			}, meta)
		case "SPIN":
			c.sink.BottleSpinReceived(BottleSpinResult{
				Channel: channel,
				Spinner: sender,
				Target:  CharacterName(body.Target),
				Message: text,
			}, meta)
		default:
			log.Warn().Str("messagetype", body.MessageType).Msg("unknown channel replay subtype")
		}

	case len(body.Channel) > len(xhmPMPrefix) && body.Channel[:len(xhmPMPrefix)] == xhmPMPrefix:
		interlocutor := CharacterName(body.Channel[len(xhmPMPrefix):])
		switch body.MessageType {
		case "CLR":
			c.sink.PMConvoHistoryCleared(interlocutor)
		case "MSG":
			c.sink.PMConvoMessageReceived(interlocutor, sender, text, meta)
		case "ROLL":
			c.sink.RollReceived(RollResult{
				Interlocutor: interlocutor,
				Roller:       sender,
				Rolls:        body.Rolls,
				Results:      body.Results,
				EndResult:    body.EndResult,
				Message:      text,
			}, meta)
		default:
			log.Warn().Str("messagetype", body.MessageType).Msg("unknown pm replay subtype")
		}

	case body.Channel == xhmConsole:
		switch body.MessageType {
		case "SYS", "MSG":
			c.sink.ConsoleMessageReceived(text, meta)
		case "BRO":
			c.sink.BroadcastReceived(sender, text, meta)
		default:
			log.Warn().Str("messagetype", body.MessageType).Msg("unknown console replay subtype")
		}

	default:
		log.Warn().Str("channel", body.Channel).Msg("unknown replay target")
	}
	return nil
}

// handleXPM is the extended private message: same shape as PRI plus an
// explicit conversation owner, so messages we sent from another session
// land in the right conversation.
func (c *Conn) handleXPM(m *Handleable) error {
	var body struct {
		Character    string `json:"character"`
		Conversation string `json:"conversation"`
		Message      string `json:"message"`
	}
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	m.MarkHandled()
	interlocutor := CharacterName(body.Conversation)
	if interlocutor.IsEmpty() {
		interlocutor = CharacterName(body.Character)
	}
	c.sink.PMConvoMessageReceived(interlocutor, CharacterName(body.Character), unescapeEntities(body.Message), liveMeta())
	return nil
}

// handleXNN flips the extended-features flag for the session.
func (c *Conn) handleXNN(m *Handleable) error {
	m.MarkHandled()
	c.stateMu.Lock()
	already := c.extendedFeatures
	c.extendedFeatures = true
	c.stateMu.Unlock()
	if !already {
		c.sink.ExtendedFeaturesEnabled()
	}
	return nil
}

// toCharacterNames converts a wire name list without validation; server
// supplied lists are trusted for casing and shape.
func toCharacterNames(names []string) []CharacterName {
	out := make([]CharacterName, 0, len(names))
	for _, n := range names {
		out = append(out, CharacterName(n))
	}
	return out
}
