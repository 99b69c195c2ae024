package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-ai/stratum/pkg/llm"
)

func TestConversationAppendOrder(t *testing.T) {
	c := New()
	c.AddUserMessage("hello")
	c.AddAssistantText("hi there")
	c.AddAssistantMessage(
		llm.TextBlock("let me check"),
		llm.ToolUseBlock("call-1", "search", map[string]any{"query": "weather"}),
	)
	c.AddToolResult("call-1", "sunny", false)

	require.Equal(t, 4, c.Len())
	assert.Equal(t, llm.RoleUser, c.Messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, c.Messages[1].Role)
	assert.Equal(t, llm.RoleAssistant, c.Messages[2].Role)
	assert.Equal(t, llm.RoleUser, c.Messages[3].Role, "tool results re-enter as user messages")
	assert.Equal(t, "call-1", c.Messages[3].Content[0].ToolUseID)
	assert.Equal(t, "hello", c.LastUserText())
}

func TestConversationRoundTrip(t *testing.T) {
	c := New()
	c.SystemPrompt = "You are a research assistant."
	c.EnableCaching = true
	c.AddUserMessage("compare raft and paxos")
	c.AddAssistantMessage(
		llm.TextBlock("searching"),
		llm.ToolUseBlock("call-9", "search", map[string]any{"query": "raft vs paxos", "limit": float64(3)}),
	)
	c.AddToolResult("call-9", "results...", false)
	c.AddAssistantText("Raft favors understandability.")

	data, err := c.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, c.SystemPrompt, restored.SystemPrompt)
	assert.Equal(t, c.EnableCaching, restored.EnableCaching)
	require.Equal(t, c.Len(), restored.Len())
	for i := range c.Messages {
		assert.Equal(t, c.Messages[i].Role, restored.Messages[i].Role)
		assert.Equal(t, c.Messages[i].Content, restored.Messages[i].Content)
		assert.True(t, c.Messages[i].Timestamp.Equal(restored.Messages[i].Timestamp),
			"timestamps survive the round trip")
	}
}

func TestDeserializeCorrupt(t *testing.T) {
	_, err := Deserialize([]byte("{ corrupt json"))
	assert.Error(t, err)
}
