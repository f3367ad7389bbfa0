package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message is the normalized inbound message handed to the router. Only
// the fields the pipeline needs survive parsing.
type Message struct {
	ChatID   int64
	UserID   int64
	ChatType string // "private", "group", "supergroup", "channel"
	Text     string
}

// IsPrivate reports whether the message came from a one-on-one chat.
func (m *Message) IsPrivate() bool {
	return m.ChatType == "private"
}

// IsCommand reports whether the text is a bot command and returns the
// command name (without the slash or any @botname suffix) and the rest
// of the line.
func (m *Message) IsCommand() (string, string, bool) {
	if !strings.HasPrefix(m.Text, "/") {
		return "", "", false
	}
	parts := strings.SplitN(m.Text, " ", 2)
	cmd := strings.TrimPrefix(parts[0], "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	args := ""
	if len(parts) == 2 {
		args = strings.TrimSpace(parts[1])
	}
	return strings.ToLower(cmd), args, cmd != ""
}

// Wire shapes for the subset of the webhook update we consume. Every
// field is optional on the wire; ParseUpdate is the defensive boundary.
type webhookUpdate struct {
	UpdateID int64           `json:"update_id"`
	Message  *webhookMessage `json:"message"`
}

type webhookMessage struct {
	MessageID int64        `json:"message_id"`
	From      *webhookUser `json:"from"`
	Chat      *webhookChat `json:"chat"`
	Text      string       `json:"text"`
}

type webhookUser struct {
	ID int64 `json:"id"`
}

type webhookChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// ParseUpdate decodes a webhook payload into a Message. It returns
// (nil, nil) for updates the pipeline ignores: edits, channel posts,
// messages without text, or messages without a sender. Only malformed
// JSON is an error.
func ParseUpdate(payload []byte) (*Message, error) {
	var update webhookUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		return nil, fmt.Errorf("gateway: malformed webhook payload: %w", err)
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return nil, nil
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil, nil
	}

	return &Message{
		ChatID:   msg.Chat.ID,
		UserID:   msg.From.ID,
		ChatType: msg.Chat.Type,
		Text:     msg.Text,
	}, nil
}
