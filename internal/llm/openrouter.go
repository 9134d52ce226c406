package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	chatCompletionTimeout    = 60 * time.Second
	doneSentinel             = "[DONE]"
)

// OpenRouterProvider implements Provider over OpenRouter's raw HTTP SSE
// chat-completions endpoint. OpenRouter exposes a `reasoning` delta field
// alongside `content`, which the SDK-based variant does not surface.
type OpenRouterProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenRouterProvider creates an OpenRouter provider. baseURL may be empty
// to use the public endpoint; a nil client gets a 60s-timeout default.
func NewOpenRouterProvider(baseURL, apiKey string, client *http.Client) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: chatCompletionTimeout}
	}
	return &OpenRouterProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

// chatCompletionsBody is the OpenRouter request payload.
type chatCompletionsBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  string    `json:"tool_choice,omitempty"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// streamChunk is the subset of one `data:` frame we care about.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
}

// StreamCompletion implements Provider. It parses `data: <json>` lines until
// the literal `data: [DONE]` sentinel. Malformed JSON lines are skipped, not
// fatal; transport and HTTP-status failures abort the sequence with a single
// error event.
func (p *OpenRouterProvider) StreamCompletion(ctx context.Context, req CompletionRequest) <-chan StreamEvent {
	events := make(chan StreamEvent, 32)

	go func() {
		defer close(events)

		body := chatCompletionsBody{
			Model:       req.Model,
			Messages:    req.Messages,
			Tools:       req.Tools,
			ToolChoice:  req.ToolChoice,
			Stream:      true,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}
		payload, err := json.Marshal(body)
		if err != nil {
			events <- StreamEvent{Kind: EventError, Content: fmt.Sprintf("failed to encode chat completion request: %v", err)}
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			events <- StreamEvent{Kind: EventError, Content: fmt.Sprintf("failed to build chat completion request: %v", err)}
			return
		}
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")

		resp, err := p.client.Do(httpReq)
		if err != nil {
			events <- StreamEvent{Kind: EventError, Content: fmt.Sprintf("chat completion request failed: %v", err)}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			events <- StreamEvent{Kind: EventError, Content: fmt.Sprintf("chat completion request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))}
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == doneSentinel {
				events <- StreamEvent{Kind: EventDone}
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				log.Printf("[OpenRouterProvider] Skipping malformed stream chunk: %v", err)
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta

			if delta.Reasoning != "" {
				events <- StreamEvent{Kind: EventReasoning, Content: delta.Reasoning}
			}
			if delta.Content != "" {
				events <- StreamEvent{Kind: EventContent, Content: delta.Content}
			}
			for _, tc := range delta.ToolCalls {
				events <- StreamEvent{Kind: EventToolCallFragment, Fragment: ToolCallFragment{
					Index:          tc.Index,
					ID:             tc.ID,
					Type:           tc.Type,
					Name:           tc.Function.Name,
					ArgumentsDelta: tc.Function.Arguments,
				}}
			}
		}

		if err := scanner.Err(); err != nil {
			events <- StreamEvent{Kind: EventError, Content: fmt.Sprintf("chat completion stream read failed: %v", err)}
			return
		}
		// Upstream closed the body without the [DONE] sentinel; treat the
		// stream as complete rather than failed.
		events <- StreamEvent{Kind: EventDone}
	}()

	return events
}
