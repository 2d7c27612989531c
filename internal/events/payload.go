package events

import "encoding/json"

// Event kinds the titler cares about. Everything else on the stream is
// ignored.
const (
	TypeMessagePartUpdated = "message.part.updated"
	TypeSessionIdle        = "session.idle"
)

// Envelope is the host's generic event wrapper.
type Envelope struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// properties is a permissive superset of the payload shapes different host
// versions emit. Fields that don't apply to a given event simply stay zero.
type properties struct {
	SessionID string `json:"sessionID"`
	Session   struct {
		ID string `json:"id"`
	} `json:"session"`
	Info struct {
		SessionID string `json:"sessionID"`
		Role      string `json:"role"`
	} `json:"info"`
	Part struct {
		SessionID string `json:"sessionID"`
		Type      string `json:"type"`
		Text      string `json:"text"`
	} `json:"part"`
	Message struct {
		Role string `json:"role"`
	} `json:"message"`
}

// SessionID extracts the session identifier from an event payload, trying
// the known field paths in a fixed order and returning the first match.
func SessionID(raw json.RawMessage) string {
	var p properties
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}

	for _, candidate := range []string{
		p.Part.SessionID,
		p.Info.SessionID,
		p.SessionID,
		p.Session.ID,
	} {
		if candidate != "" {
			return candidate
		}
	}

	return ""
}

// MessageText extracts the updated text part and the role of its message
// from a message.part.updated payload. Either value may be empty when the
// payload carries none.
func MessageText(raw json.RawMessage) (text, role string) {
	var p properties
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", ""
	}

	if p.Part.Type == "" || p.Part.Type == "text" {
		text = p.Part.Text
	}

	for _, candidate := range []string{p.Info.Role, p.Message.Role} {
		if candidate != "" {
			role = candidate
			break
		}
	}

	return text, role
}
