// Package memory holds conversation state for a single agent run. A History
// is an ordered, append-only sequence of (role, content) messages that is
// discarded when the run ends.
package memory

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// History is an append-only message sequence. It is not safe for concurrent
// use; a run owns its history.
type History struct {
	messages []llms.MessageContent
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// NewHistoryWithSystem creates a history seeded with a system message.
func NewHistoryWithSystem(systemPrompt string) *History {
	h := &History{}
	if systemPrompt != "" {
		h.Append(llms.ChatMessageTypeSystem, systemPrompt)
	}
	return h
}

// Append adds a text message with the given role.
func (h *History) Append(role llms.ChatMessageType, content string) {
	h.messages = append(h.messages, llms.TextParts(role, content))
}

// AppendMessage adds a prebuilt message (for tool calls and tool responses).
func (h *History) AppendMessage(msg llms.MessageContent) {
	h.messages = append(h.messages, msg)
}

// Messages returns a copy of the message sequence, in order.
func (h *History) Messages() []llms.MessageContent {
	out := make([]llms.MessageContent, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages.
func (h *History) Len() int {
	return len(h.messages)
}

// Last returns the most recent message, or false if the history is empty.
func (h *History) Last() (llms.MessageContent, bool) {
	if len(h.messages) == 0 {
		return llms.MessageContent{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// LastText returns the text of the most recent message with the given role.
func (h *History) LastText(role llms.ChatMessageType) string {
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].Role == role {
			return TextOf(h.messages[i])
		}
	}
	return ""
}

// Window trims the history to the last n messages. A leading system message
// is always preserved.
func (h *History) Window(n int) {
	if n <= 0 || len(h.messages) <= n {
		return
	}

	var system *llms.MessageContent
	if h.messages[0].Role == llms.ChatMessageTypeSystem {
		system = &h.messages[0]
		if n == 1 {
			h.messages = []llms.MessageContent{*system}
			return
		}
		n--
	}

	tail := h.messages[len(h.messages)-n:]
	if system != nil {
		trimmed := make([]llms.MessageContent, 0, n+1)
		trimmed = append(trimmed, *system)
		trimmed = append(trimmed, tail...)
		h.messages = trimmed
		return
	}
	h.messages = append([]llms.MessageContent(nil), tail...)
}

// Transcript renders the history as "role: content" lines, one per message.
func (h *History) Transcript() string {
	var sb strings.Builder
	for _, msg := range h.messages {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, TextOf(msg))
	}
	return sb.String()
}

// TextOf extracts the concatenated text parts of a message.
func TextOf(msg llms.MessageContent) string {
	var sb strings.Builder
	for _, part := range msg.Parts {
		if text, ok := part.(llms.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String()
}
