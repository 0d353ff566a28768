package fchat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Server message codes handled by this client. Each code is exactly three
// ASCII letters on the wire, optionally followed by a single space and one
// JSON object or array.
const (
	// CodeIDN is the identification echo sent after a successful handshake.
	CodeIDN = "IDN"
	// CodeVAR carries a single server variable (name/value pair).
	CodeVAR = "VAR"
	// CodeHLO is the server hello banner.
	CodeHLO = "HLO"
	// CodeCON reports the number of connected characters.
	CodeCON = "CON"
	// CodeAOP announces a new server operator.
	CodeAOP = "AOP"
	// CodeDOP announces a demoted server operator.
	CodeDOP = "DOP"
	// CodeFRL is the initial friends list.
	CodeFRL = "FRL"
	// CodeIGN carries ignore list operations (init/add/delete/notify).
	CodeIGN = "IGN"
	// CodeADL is the initial server operator list.
	CodeADL = "ADL"
	// CodeLIS is a batch of online characters with status and gender.
	CodeLIS = "LIS"
	// CodeBRO is a server-wide broadcast.
	CodeBRO = "BRO"
	// CodeNLN announces a character coming online.
	CodeNLN = "NLN"
	// CodeFLN announces a character going offline.
	CodeFLN = "FLN"
	// CodeJCH announces a channel join (ours or someone else's).
	CodeJCH = "JCH"
	// CodeLCH announces a channel leave (ours or someone else's).
	CodeLCH = "LCH"
	// CodeCOL is the channel operator list.
	CodeCOL = "COL"
	// CodeCOA announces a promoted channel operator.
	CodeCOA = "COA"
	// CodeCOR announces a demoted channel operator.
	CodeCOR = "COR"
	// CodeCSO announces a channel ownership change.
	CodeCSO = "CSO"
	// CodeICH is the initial channel member list.
	CodeICH = "ICH"
	// CodeCDS carries a channel description.
	CodeCDS = "CDS"
	// CodeSTA announces a character status change.
	CodeSTA = "STA"
	// CodeTPN announces a typing status change. The client also reuses TPN
	// transitions for its own identified character as bracket markers.
	CodeTPN = "TPN"
	// CodePRI is a private message.
	CodePRI = "PRI"
	// CodeMSG is a channel chat message.
	CodeMSG = "MSG"
	// CodeLRP is a channel ad message.
	CodeLRP = "LRP"
	// CodeRLL is a dice roll or bottle spin, discriminated by the body type.
	CodeRLL = "RLL"
	// CodeCIU is a channel invitation.
	CodeCIU = "CIU"
	// CodeRTB is a real-time bridge event (friend requests, notes, ...).
	CodeRTB = "RTB"
	// CodeCKU announces a channel kick.
	CodeCKU = "CKU"
	// CodeCBU announces a channel ban.
	CodeCBU = "CBU"
	// CodeCUB lifts a channel ban (outbound only).
	CodeCUB = "CUB"
	// CodeCTU announces a channel timeout.
	CodeCTU = "CTU"
	// CodeERR is a server error frame.
	CodeERR = "ERR"
	// CodeSYS is a system message, optionally scoped to a channel.
	CodeSYS = "SYS"
	// CodePIN is the keep-alive ping, echoed back verbatim.
	CodePIN = "PIN"
	// CodeUPT reports server uptime statistics.
	CodeUPT = "UPT"
	// CodeCHA is the public channel list (response to an outbound CHA).
	CodeCHA = "CHA"
	// CodeORS is the private channel list (response to an outbound ORS).
	CodeORS = "ORS"
	// CodeFKS carries partner search results.
	CodeFKS = "FKS"
	// CodeSFC is a staff report call (outbound submission).
	CodeSFC = "SFC"
	// CodeKIK kicks a character from the server (outbound, ops only).
	CodeKIK = "KIK"
	// CodeACB account-bans a character from the server (outbound, ops only).
	CodeACB = "ACB"
	// CodeCCR creates a private channel (outbound).
	CodeCCR = "CCR"
	// CodeRST is the channel ban list query (outbound).
	CodeRST = "RST"
	// CodeRMO sets a channel's message mode (outbound).
	CodeRMO = "RMO"
	// CodeXHM is the extended historical replay push.
	CodeXHM = "XHM"
	// CodeXPM is the extended private message push (server timestamped).
	CodeXPM = "XPM"
	// CodeXNN signals that extended features are enabled for this session.
	CodeXNN = "XNN"
	// CodeXIS is the extended idle state frame (outbound, extended only).
	CodeXIS = "XIS"
	// CodeXTN is the extended tab-close notification (outbound, extended only).
	CodeXTN = "XTN"
)

// ServerMessage is one decoded wire frame: a three-letter code plus an
// optional raw JSON body. The body is kept raw so each handler can decode
// only the shape it needs.
type ServerMessage struct {
	Code string
	Body json.RawMessage
}

// HasBody reports whether the frame carried a JSON body.
func (m *ServerMessage) HasBody() bool {
	return len(m.Body) > 0
}

// DecodeBody unmarshals the JSON body into v.
// Returns an error for bodyless frames.
func (m *ServerMessage) DecodeBody(v any) error {
	if !m.HasBody() {
		return fmt.Errorf("%s: frame has no body", m.Code)
	}
	if err := json.Unmarshal(m.Body, v); err != nil {
		return fmt.Errorf("%s: decode body: %w", m.Code, err)
	}
	return nil
}

// ParseServerMessage parses one raw wire frame. The frame is split on the
// first space: code before, JSON body after. A bare code is a valid frame
// with no body. Anything past the first split belongs to the body verbatim.
func ParseServerMessage(raw string) (*ServerMessage, error) {
	code := raw
	var body string
	if idx := strings.IndexByte(raw, ' '); idx >= 0 {
		code = raw[:idx]
		body = raw[idx+1:]
	}
	if !validCode(code) {
		return nil, fmt.Errorf("invalid message code %q", code)
	}
	msg := &ServerMessage{Code: code}
	if body != "" {
		if !json.Valid([]byte(body)) {
			return nil, fmt.Errorf("%s: body is not valid JSON", code)
		}
		msg.Body = json.RawMessage(body)
	}
	return msg, nil
}

// validCode checks the three-ASCII-letter code constraint.
func validCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

// ClientMessage is one outbound command: a code plus an optional body that
// is JSON-encoded at write time. A nil body produces a bare-code frame.
type ClientMessage struct {
	Code string
	Body any
}

// Encode serializes the message to its wire form.
func (m *ClientMessage) Encode() (string, error) {
	if !validCode(m.Code) {
		return "", fmt.Errorf("invalid message code %q", m.Code)
	}
	if m.Body == nil {
		return m.Code, nil
	}
	body, err := json.Marshal(m.Body)
	if err != nil {
		return "", fmt.Errorf("%s: encode body: %w", m.Code, err)
	}
	return m.Code + " " + string(body), nil
}

// Handleable wraps a ServerMessage with a mutable consumed flag so the
// dispatch loop can short-circuit once a bracket or handler has claimed it.
// The flag is only touched from the dispatch goroutine and from the bracket
// currently being offered the message, never concurrently.
type Handleable struct {
	Msg     *ServerMessage
	handled bool
}

// NewHandleable wraps a server message for dispatch.
func NewHandleable(msg *ServerMessage) *Handleable {
	return &Handleable{Msg: msg}
}

// MarkHandled flags the message as consumed.
func (h *Handleable) MarkHandled() {
	h.handled = true
}

// Handled reports whether the message has been consumed.
func (h *Handleable) Handled() bool {
	return h.handled
}

// unescapeEntities reverses the HTML-style escaping the server applies to
// freeform text fields. Only the three entities the server emits are
// decoded; &amp; must be decoded last so double escapes survive one level.
func unescapeEntities(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}
