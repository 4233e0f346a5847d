package backend

import "encoding/json"

// Message roles understood by the messages API.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content block types.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Stop reasons.
const (
	StopEndTurn = "end_turn"
	StopToolUse = "tool_use"
)

// Message represents a message in the conversation
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock represents different content types (text, tool_use, tool_result)
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Tool represents a tool definition offered to the model
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Request represents the request body for the messages API
type Request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Tools     []Tool    `json:"tools,omitempty"`
}

// Reply represents the response from the messages API
type Reply struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      map[string]any `json:"usage"`
}

// apiError represents an error response from the messages API
type apiError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// UserText builds a user message holding a single text block.
func UserText(text string) Message {
	return Message{
		Role:    RoleUser,
		Content: []ContentBlock{{Type: BlockText, Text: text}},
	}
}

// ToolResult builds the user message that answers a tool_use request. The
// request id must be echoed back unchanged so the model can correlate it.
func ToolResult(toolUseID, content string, isError bool) Message {
	return Message{
		Role: RoleUser,
		Content: []ContentBlock{{
			Type:      BlockToolResult,
			ToolUseID: toolUseID,
			Content:   content,
			IsError:   isError,
		}},
	}
}

// TextContent concatenates all text blocks of the reply in order.
func (r *Reply) TextContent() string {
	var out string
	for _, block := range r.Content {
		if block.Type == BlockText {
			out += block.Text
		}
	}
	return out
}

// FirstToolUse returns the index of the first tool_use block of the reply,
// or -1 when the reply requests no tools.
func (r *Reply) FirstToolUse() int {
	for i := range r.Content {
		if r.Content[i].Type == BlockToolUse {
			return i
		}
	}
	return -1
}
