// Copyright 2026 Stratum Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package conversation holds the append-only message history for one
// session, with lossless JSON serialization.
package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/stratum-ai/stratum/pkg/llm"
)

// Conversation is an ordered, append-only sequence of messages with an
// optional system preamble.
type Conversation struct {
	SystemPrompt  string        `json:"system_prompt,omitempty"`
	Messages      []llm.Message `json:"messages"`
	EnableCaching bool          `json:"enable_caching,omitempty"`
}

// New creates an empty conversation.
func New() *Conversation {
	return &Conversation{}
}

// AddUserMessage appends a plain-text user message.
func (c *Conversation) AddUserMessage(text string) {
	c.Messages = append(c.Messages, llm.UserMessage(text))
}

// AddAssistantText appends a plain-text assistant message.
func (c *Conversation) AddAssistantText(text string) {
	c.Messages = append(c.Messages, llm.AssistantMessage(llm.TextBlock(text)))
}

// AddAssistantMessage appends an assistant message with arbitrary blocks
// (text plus tool-use).
func (c *Conversation) AddAssistantMessage(blocks ...llm.ContentBlock) {
	c.Messages = append(c.Messages, llm.AssistantMessage(blocks...))
}

// AddToolResult appends the user message that carries a tool result back
// to the model.
func (c *Conversation) AddToolResult(toolUseID, content string, isError bool) {
	c.Messages = append(c.Messages, llm.ToolResultMessage(toolUseID, content, isError))
}

// AddMessage appends an arbitrary message.
func (c *Conversation) AddMessage(msg llm.Message) {
	c.Messages = append(c.Messages, msg)
}

// Len returns the message count.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// LastUserText returns the text of the most recent user message, or "".
func (c *Conversation) LastUserText() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == llm.RoleUser {
			return c.Messages[i].Text()
		}
	}
	return ""
}

// Clear drops the history, keeping the system prompt.
func (c *Conversation) Clear() {
	c.Messages = nil
}

// Serialize emits the lossless JSON snapshot.
func (c *Conversation) Serialize() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize conversation: %w", err)
	}
	return data, nil
}

// Deserialize restores a conversation from a snapshot.
func Deserialize(data []byte) (*Conversation, error) {
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to deserialize conversation: %w", err)
	}
	return &c, nil
}
