package llm

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider implements Provider against Groq's OpenAI-compatible API
// using the official OpenAI Go SDK (the SDK-based streaming variant).
type GroqProvider struct {
	client openai.Client
}

// NewGroqProvider creates a Groq provider. baseURL may be empty to use the
// public Groq endpoint; tests point it at a local server.
func NewGroqProvider(baseURL, apiKey string) *GroqProvider {
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)
	return &GroqProvider{client: client}
}

// StreamCompletion implements Provider. Each SDK chunk yields at most one
// content delta and zero or more index-addressed tool-call fragments.
func (p *GroqProvider) StreamCompletion(ctx context.Context, req CompletionRequest) <-chan StreamEvent {
	events := make(chan StreamEvent, 32)

	go func() {
		defer close(events)

		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(req.Model),
			Messages: toOpenAIMessages(req.Messages),
		}
		if req.MaxTokens > 0 {
			params.MaxTokens = openai.Int(int64(req.MaxTokens))
		}
		if req.Temperature > 0 {
			params.Temperature = openai.Float(req.Temperature)
		}
		if len(req.Tools) > 0 {
			params.Tools = toOpenAITools(req.Tools)
		}
		if req.ToolChoice != "" {
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
				OfAuto: openai.String(req.ToolChoice),
			}
		}

		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta

			if delta.Content != "" {
				events <- StreamEvent{Kind: EventContent, Content: delta.Content}
			}
			for _, tc := range delta.ToolCalls {
				events <- StreamEvent{Kind: EventToolCallFragment, Fragment: ToolCallFragment{
					Index:          int(tc.Index),
					ID:             tc.ID,
					Type:           string(tc.Type),
					Name:           tc.Function.Name,
					ArgumentsDelta: tc.Function.Arguments,
				}}
			}
		}

		if err := stream.Err(); err != nil {
			events <- StreamEvent{Kind: EventError, Content: err.Error()}
			return
		}
		events <- StreamEvent{Kind: EventDone}
	}()

	return events
}
