package llm

import "context"

// EventKind tags the variants of StreamEvent.
type EventKind string

const (
	EventContent          EventKind = "content"
	EventReasoning        EventKind = "reasoning"
	EventToolCallFragment EventKind = "tool_call_fragment"
	EventError            EventKind = "error"
	EventDone             EventKind = "done"
)

// StreamEvent is the provider-agnostic shape every adapter normalizes its
// upstream stream into. Content carries the text delta for content and
// reasoning events, and the error description for error events. Fragment is
// only meaningful for tool_call_fragment events.
type StreamEvent struct {
	Kind     EventKind
	Content  string
	Fragment ToolCallFragment
}

// ToolCallFragment is one incremental piece of a tool call as delivered by a
// streaming provider. Fragments sharing an Index belong to the same call;
// ArgumentsDelta values are concatenated across fragments.
type ToolCallFragment struct {
	Index          int
	ID             string
	Type           string
	Name           string
	ArgumentsDelta string
}

// ToolCall is a fully assembled tool invocation request from the model,
// in the OpenAI-compatible wire shape.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction holds the function name and its JSON-encoded arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// --- Outgoing message shapes ---

// ImageURL is the image_url part payload in multi-part message content.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ContentPart is one element of a multi-part user message (text or image).
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// Message is one entry of the outgoing message list sent to a provider.
// Content is either a plain string, a []ContentPart (multi-part user turns
// with image attachments), or nil (assistant messages that carry tool calls).
type Message struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	Reasoning  string     `json:"reasoning,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// CompletionRequest is the provider-agnostic input to StreamCompletion.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Tools       []Tool
	ToolChoice  string
	MaxTokens   int
	Temperature float64
}

// Provider streams one chat completion as a lazy, finite, non-restartable
// sequence of StreamEvents. The returned channel is closed after a terminal
// done or error event; callers must drain it. Request-construction and
// transport failures surface as a single error event, never as a panic.
type Provider interface {
	StreamCompletion(ctx context.Context, req CompletionRequest) <-chan StreamEvent
}
