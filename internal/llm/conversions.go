package llm

import (
	"github.com/openai/openai-go/v3"
)

// contentText returns the plain-text content of a message, or "" when the
// content is nil or multi-part.
func contentText(content any) string {
	if s, ok := content.(string); ok {
		return s
	}
	return ""
}

// toOpenAIMessages converts the internal message list to the OpenAI SDK's
// param union. Assistant messages carrying tool calls keep their calls and a
// nil content; multi-part user content maps to text and image_url parts in
// order.
func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			result = append(result, openai.SystemMessage(contentText(msg.Content)))
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				assistant := openai.ChatCompletionAssistantMessageParam{}
				for _, tc := range msg.ToolCalls {
					assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
						OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
							ID: tc.ID,
							Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
								Name:      tc.Function.Name,
								Arguments: tc.Function.Arguments,
							},
						},
					})
				}
				result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
				continue
			}
			result = append(result, openai.AssistantMessage(contentText(msg.Content)))
		case "tool":
			result = append(result, openai.ToolMessage(contentText(msg.Content), msg.ToolCallID))
		default:
			if parts, ok := msg.Content.([]ContentPart); ok {
				converted := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
				for _, part := range parts {
					if part.Type == "image_url" && part.ImageURL != nil {
						converted = append(converted, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    part.ImageURL.URL,
							Detail: part.ImageURL.Detail,
						}))
						continue
					}
					converted = append(converted, openai.TextContentPart(part.Text))
				}
				result = append(result, openai.UserMessage(converted))
				continue
			}
			result = append(result, openai.UserMessage(contentText(msg.Content)))
		}
	}

	return result
}

// toOpenAITools converts internal function-tool definitions to SDK params.
func toOpenAITools(tools []Tool) []openai.ChatCompletionToolUnionParam {
	result := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		result = append(result, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        tool.Function.Name,
			Description: openai.String(tool.Function.Description),
			Parameters:  openai.FunctionParameters(tool.Function.Parameters),
		}))
	}
	return result
}
