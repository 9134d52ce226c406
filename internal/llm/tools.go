package llm

// Tool is an OpenAI-compatible function tool offered to the model.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction describes the callable function and its JSON-schema parameters.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// WebSearchToolName is the only tool this service ever offers or executes.
const WebSearchToolName = "web_search"

// WebSearchTool returns the function-tool definition advertised to the model.
func WebSearchTool() Tool {
	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        WebSearchToolName,
			Description: "Search the web for recent and relevant information on a given topic.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query to use.",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}
