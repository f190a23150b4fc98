package chat

import (
	"errors"
	"fmt"

	"github.com/notexe/mcp-chat/internal/api"
)

// ErrUnknownToolCall is returned when a tool result does not answer an
// outstanding assistant tool call.
var ErrUnknownToolCall = errors.New("tool result does not match a pending tool call")

// Conversation is the append-only message sequence of a single query.
// Every tool message answers exactly one earlier assistant tool call.
type Conversation struct {
	messages []api.Message
	pending  map[string]bool
}

// NewConversation starts a conversation with the user's query.
func NewConversation(query string) *Conversation {
	return &Conversation{
		messages: []api.Message{{Role: api.RoleUser, Content: query}},
		pending:  make(map[string]bool),
	}
}

// AddAssistant appends an assistant message. Each tool call it carries
// becomes pending until answered by AddToolResult.
func (c *Conversation) AddAssistant(content string, toolCalls ...api.ToolCall) {
	msg := api.Message{
		Role:    api.RoleAssistant,
		Content: content,
	}
	if len(toolCalls) > 0 {
		msg.ToolCalls = append([]api.ToolCall(nil), toolCalls...)
		for _, call := range toolCalls {
			c.pending[call.ID] = true
		}
	}
	c.messages = append(c.messages, msg)
}

// AddToolResult appends the result of a pending tool call.
func (c *Conversation) AddToolResult(toolCallID, toolName, result string) error {
	if !c.pending[toolCallID] {
		return fmt.Errorf("%w: %q", ErrUnknownToolCall, toolCallID)
	}
	delete(c.pending, toolCallID)

	c.messages = append(c.messages, api.Message{
		Role:       api.RoleTool,
		Content:    result,
		Name:       toolName,
		ToolCallID: toolCallID,
	})
	return nil
}

// Messages returns a copy of the messages in chronological order.
func (c *Conversation) Messages() []api.Message {
	out := make([]api.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}
