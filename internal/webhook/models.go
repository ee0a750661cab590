// Package webhook receives Whapi channel callbacks and dispatches inbound
// user messages to the conversation flow.
package webhook

import "strings"

// Payload is the envelope Whapi posts for channel events. Only the messages
// array matters to this service; status and presence events arrive on the
// same endpoint and are dropped.
type Payload struct {
	Messages  []Message        `json:"messages"`
	Statuses  []map[string]any `json:"statuses"`
	Event     Event            `json:"event"`
	ChannelID string           `json:"channel_id"`
}

type Event struct {
	Type  string `json:"type"`
	Event string `json:"event"`
}

// isMessagePost reports whether the envelope carries new inbound messages.
// Status updates and other event kinds share the endpoint and must be
// skipped. Envelopes without event markers are treated as message posts.
func (p Payload) isMessagePost() bool {
	if p.Event.Type != "" && p.Event.Type != "messages" {
		return false
	}
	if p.Event.Event != "" && p.Event.Event != "post" {
		return false
	}
	return true
}

// Message is one inbound WhatsApp message. Button clicks arrive in two
// shapes depending on channel version: type "button" with a button_response
// object, or type "reply" with a nested buttons_reply.
type Message struct {
	ID             string          `json:"id"`
	FromMe         bool            `json:"from_me"`
	Type           string          `json:"type"`
	ChatID         string          `json:"chat_id"`
	From           string          `json:"from"`
	FromName       string          `json:"from_name"`
	Text           *TextBody       `json:"text"`
	ButtonResponse *ButtonResponse `json:"button_response"`
	Reply          *ButtonReply    `json:"reply"`
}

// ButtonResponse carries the pressed button's label.
type ButtonResponse struct {
	Text string `json:"text"`
	ID   string `json:"id"`
}

type TextBody struct {
	Body string `json:"body"`
}

// ButtonReply is the interactive-button response shape. The pressed button's
// title is the user's answer text.
type ButtonReply struct {
	Type         string `json:"type"`
	ButtonsReply *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"buttons_reply"`
}

// Body extracts the user-visible text of the message: button label for
// interactive replies, text body otherwise. Empty means nothing actionable.
func (m Message) Body() string {
	if m.ButtonResponse != nil {
		return strings.TrimSpace(m.ButtonResponse.Text)
	}
	if m.Reply != nil && m.Reply.ButtonsReply != nil {
		return strings.TrimSpace(m.Reply.ButtonsReply.Title)
	}
	if m.Text != nil {
		return strings.TrimSpace(m.Text.Body)
	}
	return ""
}

// Sender returns the phone number to key conversation state on. Whapi chat
// IDs look like "919876543210@s.whatsapp.net"; the bare from field is
// preferred, the chat ID prefix is the fallback.
func (m Message) Sender() string {
	if m.From != "" {
		return m.From
	}
	if i := strings.IndexByte(m.ChatID, '@'); i > 0 {
		return m.ChatID[:i]
	}
	return ""
}
