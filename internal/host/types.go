package host

import (
	"encoding/json"
	"sort"
	"strings"
)

// Session is the host-owned conversation thread. The titler only ever reads
// and rewrites its title; real sessions are never created or deleted here.
type Session struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MessagePart is one segment of a message body.
type MessagePart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Message is a single conversation message as returned by the host.
type Message struct {
	ID    string        `json:"id"`
	Role  string        `json:"role"`
	Parts []MessagePart `json:"parts"`
}

// Text concatenates the message's text parts.
func (m Message) Text() string {
	var b strings.Builder
	for _, part := range m.Parts {
		if part.Type != "" && part.Type != "text" {
			continue
		}
		if part.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

// Turn is the conversation opening used for title generation: the first user
// message with extractable text and, once present, the first assistant
// response.
type Turn struct {
	UserText      string
	AssistantText string
}

// ExtractTurn scans an ordered message list for the opening turn.
// AssistantText is empty until the assistant has responded.
func ExtractTurn(messages []Message) Turn {
	var turn Turn
	for _, msg := range messages {
		text := msg.Text()
		if text == "" {
			continue
		}
		switch msg.Role {
		case "user":
			if turn.UserText == "" {
				turn.UserText = text
			}
		case "assistant":
			if turn.AssistantText == "" {
				turn.AssistantText = text
			}
		}
		if turn.UserText != "" && turn.AssistantText != "" {
			break
		}
	}
	return turn
}

// ModelRef identifies a concrete model at a concrete provider.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

func (r ModelRef) String() string {
	return r.ProviderID + "/" + r.ModelID
}

// Provider is one entry of the host's provider catalog. Hosts disagree on
// the shape of the model list (array of id-bearing entries vs. mapping keyed
// by id), so it is kept raw and normalized on demand.
type Provider struct {
	ID     string          `json:"id"`
	Models json.RawMessage `json:"models"`
}

// ModelIDs normalizes the provider's model list into a flat, ordered slice
// of model ids. Mapping-shaped lists are sorted for determinism.
func (p Provider) ModelIDs() []string {
	if len(p.Models) == 0 {
		return nil
	}

	var entries []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(p.Models, &entries); err == nil {
		ids := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.ID != "" {
				ids = append(ids, entry.ID)
			}
		}
		return ids
	}

	var mapped map[string]json.RawMessage
	if err := json.Unmarshal(p.Models, &mapped); err == nil {
		ids := make([]string, 0, len(mapped))
		for id := range mapped {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids
	}

	return nil
}

// GenerateResponse is the host's reply to a generation request. Some host
// versions return structured parts, older ones a flat content field.
type GenerateResponse struct {
	Parts   []MessagePart `json:"parts"`
	Content string        `json:"content"`
}

// Text returns the first non-empty text segment of the response, falling
// back to the flat content field.
func (r GenerateResponse) Text() string {
	for _, part := range r.Parts {
		if part.Type != "" && part.Type != "text" {
			continue
		}
		if text := strings.TrimSpace(part.Text); text != "" {
			return text
		}
	}
	return strings.TrimSpace(r.Content)
}
