// Package fchat implements a client for the F-Chat real-time chat protocol:
// a line-oriented, JSON-bodied command protocol carried over a websocket.
//
// The package owns the transport write path, the inbound dispatch loop, the
// bracketing correlation mechanism for request/response attribution, the
// per-code translation of wire messages into semantic sink events, and the
// identify handshake. Rendering, persistence, and notification concerns are
// external collaborators behind the ChatConnectionSink interface.
//
// Architecture:
//   - One Conn per transport session; reconnection creates a new Conn
//   - A single dispatch goroutine processes frames in wire-arrival order
//   - Outbound transactional sends are serialized by a single-holder mutex
//     and bounded by synthetic typing-status markers (brackets)
//   - Asynchronous server pushes are translated by per-code handlers into
//     sink callbacks, invoked strictly in wire order
package fchat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ChatConnection is the command-side contract of a chat session. This is
// the only surface the rest of an application should depend on;
// NullChatConnection is a drop-in implementation for "no connection yet".
type ChatConnection interface {
	// Identify performs the IDN handshake. Calling it twice on one
	// connection is a programming error.
	Identify(ctx context.Context, account, ticket string, character CharacterName) error
	// IdentifiedCharacter returns the canonical identified character, or
	// the empty sentinel before the handshake completes.
	IdentifiedCharacter() CharacterName
	// HasExtendedFeatures reports whether the server negotiated extended
	// features for this session.
	HasExtendedFeatures() bool
	// ServerVariable returns a server variable received via VAR.
	ServerVariable(name string) (any, bool)

	JoinChannel(ctx context.Context, channel ChannelName) error
	LeaveChannel(ctx context.Context, channel ChannelName) error
	SendChannelMessage(ctx context.Context, channel ChannelName, message string) error
	SendChannelAd(ctx context.Context, channel ChannelName, message string) error
	SendPrivateMessage(ctx context.Context, recipient CharacterName, message string) error
	SetTypingStatus(ctx context.Context, character CharacterName, status TypingStatus) error
	SetStatus(ctx context.Context, status OnlineStatus, message string) error
	SetIdleStatus(ctx context.Context, idle bool) error
	RollDice(ctx context.Context, channel ChannelName, dice string) error
	RollDicePrivate(ctx context.Context, recipient CharacterName, dice string) error
	SpinBottle(ctx context.Context, channel ChannelName) error

	KickFromChannel(ctx context.Context, channel ChannelName, character CharacterName) error
	BanFromChannel(ctx context.Context, channel ChannelName, character CharacterName) error
	UnbanFromChannel(ctx context.Context, channel ChannelName, character CharacterName) error
	TimeoutFromChannel(ctx context.Context, channel ChannelName, character CharacterName, minutes int) error
	InviteToChannel(ctx context.Context, channel ChannelName, character CharacterName) error
	SetChannelDescription(ctx context.Context, channel ChannelName, description string) error
	SetChannelMode(ctx context.Context, channel ChannelName, mode string) error
	SetChannelOwner(ctx context.Context, channel ChannelName, character CharacterName) error
	ChannelAddOp(ctx context.Context, channel ChannelName, character CharacterName) error
	ChannelRemoveOp(ctx context.Context, channel ChannelName, character CharacterName) error
	GetChannelOpList(ctx context.Context, channel ChannelName) error
	GetChannelBanList(ctx context.Context, channel ChannelName) error
	CreatePrivateChannel(ctx context.Context, title string) error

	IgnoreCharacter(ctx context.Context, character CharacterName) error
	UnignoreCharacter(ctx context.Context, character CharacterName) error
	NotifyIgnoredMessage(ctx context.Context, character CharacterName) error
	ListPublicChannels(ctx context.Context) error
	ListPrivateChannels(ctx context.Context) error
	AccountBan(ctx context.Context, character CharacterName) error
	AccountKick(ctx context.Context, character CharacterName) error
	RequestUptime(ctx context.Context) error
	SearchPartners(ctx context.Context, kinks []int, genders []string) error
	SubmitReport(ctx context.Context, report string, character CharacterName, channel ChannelName) error
	NotifyTabClosed(ctx context.Context, character CharacterName) error

	// Quiesce runs an empty bracket, flushing the wire without a payload.
	Quiesce(ctx context.Context) error
	// LogOut marks the teardown as caller-requested and disposes.
	LogOut()
	// Dispose tears the connection down. Idempotent.
	Dispose()
	// IsDisposed reports whether the connection has been torn down.
	IsDisposed() bool
}

// handlerFunc translates one inbound message into sink events. Handlers
// mark the message handled themselves.
type handlerFunc func(m *Handleable) error

// Conn is the live protocol client. One Conn maps to exactly one transport
// session; it is created by Connect and destroyed by Dispose (explicit, or
// implicit on transport close or a fatal server error).
type Conn struct {
	cfg       ClientConfig
	sink      ChatConnectionSink
	transport *transport
	incoming  *AsyncBuffer[string]

	// sendMutex is the only lock serializing bracketed sends; its holder
	// owns the wire for one start/payload/stop triplet.
	sendMutex *Mutex

	// subs is the live bracket subscription list, snapshot-copied for
	// iteration so brackets can register and unregister mid-dispatch.
	subsMu sync.Mutex
	subs   []*IncomingMessageSink

	handlers map[string]handlerFunc

	stateMu             sync.Mutex
	identified          CharacterName
	identifying         bool
	extendedFeatures    bool
	serverVars          map[string]any
	lastStatus          OnlineStatus
	lastStatusMessage   string
	idle                bool
	preIdleStatus       OnlineStatus
	preIdleMessage      string
	banned              bool
	requestedDisconnect bool
	disposed            bool

	disposeOnce sync.Once
	loopCtx     context.Context
	loopCancel  context.CancelFunc
}

var _ ChatConnection = (*Conn)(nil)

// newConn wires a connection around an opened transport. The dispatch loop
// is started by the caller.
func newConn(cfg ClientConfig, sink ChatConnectionSink, t *transport) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		cfg:        cfg,
		sink:       sink,
		transport:  t,
		incoming:   NewAsyncBuffer[string](),
		sendMutex:  NewMutex(),
		serverVars: make(map[string]any),
		lastStatus: StatusOnline,
		loopCtx:    ctx,
		loopCancel: cancel,
	}
	c.handlers = c.buildHandlerTable()
	return c
}

// IdentifiedCharacter returns the identified character, or the empty
// sentinel before the handshake completes.
func (c *Conn) IdentifiedCharacter() CharacterName {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.identified
}

// HasExtendedFeatures reports whether XNN was received for this session.
func (c *Conn) HasExtendedFeatures() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.extendedFeatures
}

// ServerVariable returns the value of a VAR-delivered server variable.
func (c *Conn) ServerVariable(name string) (any, bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	v, ok := c.serverVars[name]
	return v, ok
}

// IsDisposed reports whether the connection has been torn down.
func (c *Conn) IsDisposed() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.disposed
}

// dispatchLoop is the connection's lifetime task: it dequeues raw frames in
// arrival order and processes them one at a time. Handler invocations are
// serial, so sink callbacks for one connection are strictly ordered. The
// loop exits when disposal cancels its context.
func (c *Conn) dispatchLoop() {
	log.Debug().Msg("dispatch loop started")
	defer log.Debug().Msg("dispatch loop stopped")

	for {
		frame, err := c.incoming.Dequeue(c.loopCtx)
		if err != nil {
			// Cancellation is the disposal path.
			return
		}
		c.processFrame(frame)
	}
}

// processFrame parses and routes one wire frame. A failure processing one
// message is logged and swallowed so a bad frame never kills the whole
// connection.
func (c *Conn) processFrame(frame string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("frame", frame).Msg("message handler panicked")
		}
	}()

	msg, err := ParseServerMessage(frame)
	if err != nil {
		log.Warn().Err(err).Str("frame", frame).Msg("unparseable wire frame")
		return
	}

	// Keep-alive is echoed back immediately and never forwarded further.
	if msg.Code == CodePIN {
		if err := c.transport.writeFrame(CodePIN); err != nil {
			log.Warn().Err(err).Msg("failed to echo keep-alive")
		}
		return
	}

	h := NewHandleable(msg)

	// Offer to bracket subscriptions in registration order, stopping at
	// the first that consumes it.
	for _, sub := range c.snapshotSubs() {
		sub.Deliver(c.loopCtx, h)
		if h.Handled() {
			return
		}
	}

	if fn, ok := c.handlers[msg.Code]; ok {
		if err := fn(h); err != nil {
			log.Warn().Err(err).Str("code", msg.Code).Msg("message handler failed")
			return
		}
	}

	if !h.Handled() {
		log.Warn().Str("code", msg.Code).Msg("unhandled server message")
	}
}

// snapshotSubs returns a copy of the live subscription list.
func (c *Conn) snapshotSubs() []*IncomingMessageSink {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	out := make([]*IncomingMessageSink, len(c.subs))
	copy(out, c.subs)
	return out
}

func (c *Conn) addSubscription(s *IncomingMessageSink) {
	c.subsMu.Lock()
	c.subs = append(c.subs, s)
	c.subsMu.Unlock()
}

func (c *Conn) removeSubscription(s *IncomingMessageSink) {
	c.subsMu.Lock()
	for i, sub := range c.subs {
		if sub == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.subsMu.Unlock()
}

// writeMessage encodes and sends one outbound command frame.
func (c *Conn) writeMessage(msg *ClientMessage) error {
	frame, err := msg.Encode()
	if err != nil {
		return err
	}
	return c.transport.writeFrame(frame)
}

// writeTypingMarker sends the TPN transition used as a bracket boundary.
func (c *Conn) writeTypingMarker(character CharacterName, status TypingStatus) error {
	return c.writeMessage(&ClientMessage{
		Code: CodeTPN,
		Body: tpnBody{Character: character.String(), Status: status.wire()},
	})
}

// tpnBody is the TPN frame body, shared between markers, typing status
// commands, and echo detection.
type tpnBody struct {
	Character string `json:"character"`
	Status    string `json:"status"`
}

// typingEchoFor reports whether a message is a TPN echo for the given
// character and, if so, its status.
func typingEchoFor(msg *ServerMessage, character CharacterName) (TypingStatus, bool) {
	if msg.Code != CodeTPN || !msg.HasBody() {
		return "", false
	}
	var body tpnBody
	if err := msg.DecodeBody(&body); err != nil {
		return "", false
	}
	if !character.Equals(CharacterName(body.Character)) {
		return "", false
	}
	return typingStatusFromWire(body.Status), true
}

// ERRAsFailure is the standard bracket response callback: an error frame
// becomes a typed ServerError failing the bracket; anything else is left
// alone. The error frame is deliberately not marked handled so it also
// flows to the default handler and reaches the sink.
func ERRAsFailure(m *Handleable) error {
	if m.Msg.Code != CodeERR {
		return nil
	}
	var body errBody
	if err := m.Msg.DecodeBody(&body); err != nil {
		return err
	}
	return &ServerError{Number: body.Number, Message: unescapeEntities(body.Message)}
}

// bracketedSend runs one transactional outbound operation: acquire the
// single-writer mutex, write the TYPING marker / payload / NONE marker
// triplet, then drain responses through a transient subscription until the
// NONE marker echo closes the window.
//
// The wire protocol has no request id; attribution works because the server
// echoes typing transitions in order relative to the payload and only one
// bracket is ever in flight. The first TYPING echo for the identified
// character opens the window; messages inside the window go to respond; the
// matching NONE echo terminates the bracket. A nil payload is a valid
// bracket used purely to flush.
func (c *Conn) bracketedSend(ctx context.Context, payload *ClientMessage, respond func(*Handleable) error) error {
	me := c.IdentifiedCharacter()
	if me.IsEmpty() {
		return ErrNotIdentified
	}
	if c.IsDisposed() {
		return ErrDisposed
	}

	if err := c.sendMutex.Acquire(ctx); err != nil {
		return err
	}
	defer c.sendMutex.Release()

	bracketID := uuid.NewString()[:8]
	code := ""
	if payload != nil {
		code = payload.Code
	}
	log.Debug().Str("bracket", bracketID).Str("code", code).Msg("bracket opened")

	// Registered before the first write so the echo cannot be dispatched
	// ahead of the subscription. Removal and disposal on every exit path.
	sub := NewIncomingMessageSink()
	c.addSubscription(sub)
	defer func() {
		c.removeSubscription(sub)
		sub.Dispose()
		log.Debug().Str("bracket", bracketID).Msg("bracket closed")
	}()

	if err := c.writeTypingMarker(me, TypingStatusTyping); err != nil {
		return err
	}
	if payload != nil {
		if err := c.writeMessage(payload); err != nil {
			return err
		}
	}
	if err := c.writeTypingMarker(me, TypingStatusNone); err != nil {
		return err
	}

	inside := false
	for {
		m, err := sub.ReadMessage(ctx)
		if err != nil {
			return err
		}
		if st, ok := typingEchoFor(m.Msg, me); ok {
			if !inside && st == TypingStatusTyping {
				inside = true
				m.MarkHandled()
				continue
			}
			if inside && st == TypingStatusNone {
				m.MarkHandled()
				return nil
			}
		}
		if inside && respond != nil {
			log.Debug().Str("bracket", bracketID).Str("code", m.Msg.Code).Msg("bracket response")
			if err := respond(m); err != nil {
				log.Debug().Str("bracket", bracketID).Str("code", m.Msg.Code).Err(err).Msg("bracket rejected")
				return err
			}
		}
	}
}

// idnRequestBody is the IDN handshake request.
type idnRequestBody struct {
	Method        string `json:"method"`
	Account       string `json:"account"`
	Ticket        string `json:"ticket"`
	Character     string `json:"character"`
	ClientName    string `json:"cname"`
	ClientVersion string `json:"cversion"`
}

// Identify performs the IDN handshake: unidentified, awaiting the IDN echo,
// identified. An error frame during the wait fails the handshake without a
// state change. Identifying twice is a programming error.
func (c *Conn) Identify(ctx context.Context, account, ticket string, character CharacterName) error {
	c.stateMu.Lock()
	if !c.identified.IsEmpty() || c.identifying {
		c.stateMu.Unlock()
		return ErrAlreadyIdentified
	}
	c.identifying = true
	c.stateMu.Unlock()
	defer func() {
		c.stateMu.Lock()
		c.identifying = false
		c.stateMu.Unlock()
	}()

	sub := NewIncomingMessageSink()
	c.addSubscription(sub)
	defer func() {
		c.removeSubscription(sub)
		sub.Dispose()
	}()

	err := c.writeMessage(&ClientMessage{
		Code: CodeIDN,
		Body: idnRequestBody{
			Method:        "ticket",
			Account:       account,
			Ticket:        ticket,
			Character:     character.String(),
			ClientName:    c.cfg.ClientName,
			ClientVersion: c.cfg.ClientVersion,
		},
	})
	if err != nil {
		return err
	}

	for {
		m, err := sub.ReadMessage(ctx)
		if err != nil {
			return err
		}
		switch m.Msg.Code {
		case CodeIDN:
			var body struct {
				Character string `json:"character"`
			}
			if err := m.Msg.DecodeBody(&body); err != nil {
				return err
			}
			name, err := NewCharacterName(body.Character)
			if err != nil {
				return fmt.Errorf("server returned invalid character name: %w", err)
			}
			c.stateMu.Lock()
			c.identified = name
			c.stateMu.Unlock()
			// Left unhandled so the default IDN handler notifies the
			// sink from the dispatch goroutine, in wire order.
			log.Info().Str("character", name.String()).Msg("identified")
			return nil
		case CodeERR:
			var body errBody
			if derr := m.Msg.DecodeBody(&body); derr == nil {
				return fmt.Errorf("%w: server error %d: %s", ErrIdentificationFailed, body.Number, unescapeEntities(body.Message))
			}
			return ErrIdentificationFailed
		}
	}
}

// --- Channel membership and messaging ---

type channelBody struct {
	Channel string `json:"channel"`
}

type channelCharacterBody struct {
	Channel   string `json:"channel"`
	Character string `json:"character"`
}

type channelMessageBody struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// JoinChannel requests entry into a channel.
func (c *Conn) JoinChannel(ctx context.Context, channel ChannelName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeJCH, Body: channelBody{Channel: channel.String()}}, ERRAsFailure)
}

// LeaveChannel leaves a channel.
func (c *Conn) LeaveChannel(ctx context.Context, channel ChannelName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeLCH, Body: channelBody{Channel: channel.String()}}, ERRAsFailure)
}

// SendChannelMessage sends a chat message to a channel.
func (c *Conn) SendChannelMessage(ctx context.Context, channel ChannelName, message string) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeMSG, Body: channelMessageBody{Channel: channel.String(), Message: message}}, ERRAsFailure)
}

// SendChannelAd sends an ad message to a channel.
func (c *Conn) SendChannelAd(ctx context.Context, channel ChannelName, message string) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeLRP, Body: channelMessageBody{Channel: channel.String(), Message: message}}, ERRAsFailure)
}

// SendPrivateMessage sends a private message to another character.
func (c *Conn) SendPrivateMessage(ctx context.Context, recipient CharacterName, message string) error {
	body := struct {
		Recipient string `json:"recipient"`
		Message   string `json:"message"`
	}{recipient.String(), message}
	return c.bracketedSend(ctx, &ClientMessage{Code: CodePRI, Body: body}, ERRAsFailure)
}

// SetTypingStatus reports a typing indicator change for a PM conversation.
func (c *Conn) SetTypingStatus(ctx context.Context, character CharacterName, status TypingStatus) error {
	return c.bracketedSend(ctx, &ClientMessage{
		Code: CodeTPN,
		Body: tpnBody{Character: character.String(), Status: status.wire()},
	}, ERRAsFailure)
}

// --- Status ---

type staBody struct {
	Status        string `json:"status"`
	StatusMessage string `json:"statusmsg"`
}

// SetStatus updates the identified character's status. The server's "status
// updates too fast" throttle is treated as recoverable: the attempt is
// repeated with a fixed backoff, up to the configured attempt limit, and
// the throttle never surfaces to the caller unless retries are exhausted.
func (c *Conn) SetStatus(ctx context.Context, status OnlineStatus, message string) error {
	return c.sendStatus(ctx, status, message, true)
}

// sendStatus is SetStatus with control over last-status bookkeeping, so the
// idle synthesizer can push a status without clobbering the restore point.
func (c *Conn) sendStatus(ctx context.Context, status OnlineStatus, message string, remember bool) error {
	var lastThrottle *ServerError
	for attempt := 1; attempt <= c.cfg.StatusRetryAttempts; attempt++ {
		throttled := false
		err := c.bracketedSend(ctx, &ClientMessage{
			Code: CodeSTA,
			Body: staBody{Status: string(status), StatusMessage: message},
		}, func(m *Handleable) error {
			if m.Msg.Code == CodeERR {
				var body errBody
				if derr := m.Msg.DecodeBody(&body); derr == nil && body.Number == ErrNumStatusUpdateThrottled {
					// Recoverable inside the bracket: consume the
					// error and signal another attempt.
					throttled = true
					lastThrottle = &ServerError{Number: body.Number, Message: unescapeEntities(body.Message)}
					m.MarkHandled()
					return nil
				}
			}
			return ERRAsFailure(m)
		})
		if err != nil {
			return err
		}
		if !throttled {
			if remember {
				c.stateMu.Lock()
				c.lastStatus = status
				c.lastStatusMessage = message
				c.stateMu.Unlock()
			}
			return nil
		}
		log.Debug().Int("attempt", attempt).Msg("status update throttled, retrying")

		select {
		case <-time.After(c.cfg.StatusRetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastThrottle
}

// SetIdleStatus propagates the idle state. With extended features the
// dedicated XIS frame carries it; otherwise ordinary status changes are
// synthesized, remembering the pre-idle status so un-idling restores it.
func (c *Conn) SetIdleStatus(ctx context.Context, idle bool) error {
	if c.HasExtendedFeatures() {
		mode := "online"
		if idle {
			mode = "idle"
		}
		body := struct {
			Status string `json:"status"`
		}{mode}
		return c.bracketedSend(ctx, &ClientMessage{Code: CodeXIS, Body: body}, ERRAsFailure)
	}

	c.stateMu.Lock()
	if idle == c.idle {
		c.stateMu.Unlock()
		return nil
	}
	var status OnlineStatus
	var message string
	if idle {
		c.preIdleStatus = c.lastStatus
		c.preIdleMessage = c.lastStatusMessage
		status, message = StatusIdle, c.lastStatusMessage
	} else {
		status, message = c.preIdleStatus, c.preIdleMessage
	}
	c.idle = idle
	c.stateMu.Unlock()

	return c.sendStatus(ctx, status, message, false)
}

// --- Rolls and spins ---

// RollDice rolls dice in a channel, e.g. "2d6+3".
func (c *Conn) RollDice(ctx context.Context, channel ChannelName, dice string) error {
	body := struct {
		Channel string `json:"channel"`
		Dice    string `json:"dice"`
	}{channel.String(), dice}
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeRLL, Body: body}, ERRAsFailure)
}

// RollDicePrivate rolls dice in a private conversation.
func (c *Conn) RollDicePrivate(ctx context.Context, recipient CharacterName, dice string) error {
	body := struct {
		Recipient string `json:"recipient"`
		Dice      string `json:"dice"`
	}{recipient.String(), dice}
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeRLL, Body: body}, ERRAsFailure)
}

// SpinBottle spins the bottle in a channel. On the wire this is a roll
// whose dice field is the literal "bottle".
func (c *Conn) SpinBottle(ctx context.Context, channel ChannelName) error {
	body := struct {
		Channel string `json:"channel"`
		Dice    string `json:"dice"`
	}{channel.String(), "bottle"}
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeRLL, Body: body}, ERRAsFailure)
}

// --- Channel moderation ---

// KickFromChannel kicks a character from a channel.
func (c *Conn) KickFromChannel(ctx context.Context, channel ChannelName, character CharacterName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeCKU, Body: channelCharacterBody{channel.String(), character.String()}}, ERRAsFailure)
}

// BanFromChannel bans a character from a channel.
func (c *Conn) BanFromChannel(ctx context.Context, channel ChannelName, character CharacterName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeCBU, Body: channelCharacterBody{channel.String(), character.String()}}, ERRAsFailure)
}

// UnbanFromChannel lifts a channel ban.
func (c *Conn) UnbanFromChannel(ctx context.Context, channel ChannelName, character CharacterName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeCUB, Body: channelCharacterBody{channel.String(), character.String()}}, ERRAsFailure)
}

// TimeoutFromChannel times a character out of a channel for the given
// number of minutes.
func (c *Conn) TimeoutFromChannel(ctx context.Context, channel ChannelName, character CharacterName, minutes int) error {
	body := struct {
		Channel   string `json:"channel"`
		Character string `json:"character"`
		Length    int    `json:"length"`
	}{channel.String(), character.String(), minutes}
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeCTU, Body: body}, ERRAsFailure)
}

// InviteToChannel invites a character to a private channel.
func (c *Conn) InviteToChannel(ctx context.Context, channel ChannelName, character CharacterName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeCIU, Body: channelCharacterBody{channel.String(), character.String()}}, ERRAsFailure)
}

// SetChannelDescription updates a channel's description.
func (c *Conn) SetChannelDescription(ctx context.Context, channel ChannelName, description string) error {
	body := struct {
		Channel     string `json:"channel"`
		Description string `json:"description"`
	}{channel.String(), description}
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeCDS, Body: body}, ERRAsFailure)
}

// SetChannelMode sets what a channel carries: "chat", "ads" or "both".
func (c *Conn) SetChannelMode(ctx context.Context, channel ChannelName, mode string) error {
	body := struct {
		Channel string `json:"channel"`
		Mode    string `json:"mode"`
	}{channel.String(), mode}
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeRMO, Body: body}, ERRAsFailure)
}

// SetChannelOwner transfers channel ownership.
func (c *Conn) SetChannelOwner(ctx context.Context, channel ChannelName, character CharacterName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeCSO, Body: channelCharacterBody{channel.String(), character.String()}}, ERRAsFailure)
}

// ChannelAddOp promotes a channel operator.
func (c *Conn) ChannelAddOp(ctx context.Context, channel ChannelName, character CharacterName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeCOA, Body: channelCharacterBody{channel.String(), character.String()}}, ERRAsFailure)
}

// ChannelRemoveOp demotes a channel operator.
func (c *Conn) ChannelRemoveOp(ctx context.Context, channel ChannelName, character CharacterName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeCOR, Body: channelCharacterBody{channel.String(), character.String()}}, ERRAsFailure)
}

// GetChannelOpList requests a channel's operator list.
func (c *Conn) GetChannelOpList(ctx context.Context, channel ChannelName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeCOL, Body: channelBody{Channel: channel.String()}}, ERRAsFailure)
}

// GetChannelBanList requests a channel's ban list.
func (c *Conn) GetChannelBanList(ctx context.Context, channel ChannelName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeRST, Body: channelBody{Channel: channel.String()}}, ERRAsFailure)
}

// CreatePrivateChannel creates a private channel with the given title.
func (c *Conn) CreatePrivateChannel(ctx context.Context, title string) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeCCR, Body: channelBody{Channel: title}}, ERRAsFailure)
}

// --- Ignore list ---

type ignBody struct {
	Action    string `json:"action"`
	Character string `json:"character"`
}

// IgnoreCharacter adds a character to the ignore list.
func (c *Conn) IgnoreCharacter(ctx context.Context, character CharacterName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeIGN, Body: ignBody{"add", character.String()}}, ERRAsFailure)
}

// UnignoreCharacter removes a character from the ignore list.
func (c *Conn) UnignoreCharacter(ctx context.Context, character CharacterName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeIGN, Body: ignBody{"delete", character.String()}}, ERRAsFailure)
}

// NotifyIgnoredMessage tells the server an ignored character's message was
// suppressed, which the protocol requires for its ignore bookkeeping.
func (c *Conn) NotifyIgnoredMessage(ctx context.Context, character CharacterName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeIGN, Body: ignBody{"notify", character.String()}}, ERRAsFailure)
}

// --- Global queries and server operations ---

// ListPublicChannels requests the public channel list.
func (c *Conn) ListPublicChannels(ctx context.Context) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeCHA}, ERRAsFailure)
}

// ListPrivateChannels requests the open private channel list.
func (c *Conn) ListPrivateChannels(ctx context.Context) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeORS}, ERRAsFailure)
}

type characterBody struct {
	Character string `json:"character"`
}

// AccountBan bans a character's account from the server. Ops only.
func (c *Conn) AccountBan(ctx context.Context, character CharacterName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeACB, Body: characterBody{character.String()}}, ERRAsFailure)
}

// AccountKick kicks a character from the server. Ops only.
func (c *Conn) AccountKick(ctx context.Context, character CharacterName) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeKIK, Body: characterBody{character.String()}}, ERRAsFailure)
}

// RequestUptime requests server uptime statistics.
func (c *Conn) RequestUptime(ctx context.Context) error {
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeUPT}, ERRAsFailure)
}

// SearchPartners runs a partner search by kink ids and genders.
func (c *Conn) SearchPartners(ctx context.Context, kinks []int, genders []string) error {
	body := struct {
		Kinks   []int    `json:"kinks"`
		Genders []string `json:"genders,omitempty"`
	}{kinks, genders}
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeFKS, Body: body}, ERRAsFailure)
}

// SubmitReport files a staff report against a character, optionally scoped
// to a channel.
func (c *Conn) SubmitReport(ctx context.Context, report string, character CharacterName, channel ChannelName) error {
	body := struct {
		Action    string `json:"action"`
		Report    string `json:"report"`
		Character string `json:"character"`
		Channel   string `json:"channel,omitempty"`
	}{"report", report, character.String(), channel.String()}
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeSFC, Body: body}, ERRAsFailure)
}

// NotifyTabClosed tells the server a PM tab was closed. Extended feature;
// calling it without extended features is a programming error.
func (c *Conn) NotifyTabClosed(ctx context.Context, character CharacterName) error {
	if !c.HasExtendedFeatures() {
		return errors.New("tab close notification requires extended features")
	}
	return c.bracketedSend(ctx, &ClientMessage{Code: CodeXTN, Body: characterBody{character.String()}}, ERRAsFailure)
}

// Quiesce runs an empty bracket: the markers are written and drained with
// no payload in between, flushing anything ahead of them on the wire.
func (c *Conn) Quiesce(ctx context.Context) error {
	return c.bracketedSend(ctx, nil, nil)
}

// --- Teardown ---

// transportClosed is invoked by the read pump when the socket fails or
// closes after open. Disposal classifies and reports the reason.
func (c *Conn) transportClosed(err error) {
	log.Debug().Err(err).Msg("transport closed")
	c.disposeInternal()
}

// markBanned records that the server banned this account. Set before
// disposal so classification reports KickedFromServer.
func (c *Conn) markBanned() {
	c.stateMu.Lock()
	c.banned = true
	c.stateMu.Unlock()
}

// LogOut marks the teardown as caller-requested and disposes.
func (c *Conn) LogOut() {
	c.Dispose()
}

// Dispose tears the connection down as a caller-initiated disconnect.
// Idempotent: repeated calls have the effect of exactly one.
func (c *Conn) Dispose() {
	c.stateMu.Lock()
	if !c.disposed {
		c.requestedDisconnect = true
	}
	c.stateMu.Unlock()
	c.disposeInternal()
}

// disposeInternal performs the one-time teardown: classify the disconnect,
// stop the dispatch loop, terminate subscriptions, close the transport, and
// report the reason to the sink exactly once.
//
// Classification is mutually exclusive, first match wins: banned, then
// caller-requested, then unexpected.
func (c *Conn) disposeInternal() {
	c.disposeOnce.Do(func() {
		c.stateMu.Lock()
		c.disposed = true
		banned := c.banned
		requested := c.requestedDisconnect
		c.stateMu.Unlock()

		reason := UnexpectedDisconnect
		if banned {
			reason = KickedFromServer
		} else if requested {
			reason = RequestedDisconnect
		}

		c.loopCancel()
		for _, sub := range c.snapshotSubs() {
			sub.Dispose()
		}
		c.transport.close()
		unregisterConn(c)

		if reason == UnexpectedDisconnect {
			log.Debug().Str("recent_traffic", c.transport.tap.tail()).Msg("unexpected disconnect wire tail")
		}
		log.Info().Str("reason", reason.String()).Msg("disconnected")

		c.sink.DisconnectedFromServer(reason)
	})
}
