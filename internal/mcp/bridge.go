package mcp

import (
	"encoding/json"

	"github.com/go-deepseek/deepseek/request"
)

// ToFunctionTools converts MCP tools to the chat completions function-tool
// format: {type: "function", function: {name, description, parameters}}.
func ToFunctionTools(mcpTools []Tool) []request.Tool {
	tools := make([]request.Tool, 0, len(mcpTools))

	for _, t := range mcpTools {
		tool := request.Tool{
			Type: "function",
			Function: &request.ToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  parameters(t),
			},
		}
		tools = append(tools, tool)
	}

	return tools
}

// parameters prefers the raw schema a server supplied and falls back to the
// structured input schema.
func parameters(t Tool) map[string]interface{} {
	if len(t.RawInputSchema) > 0 {
		var raw map[string]interface{}
		if err := json.Unmarshal(t.RawInputSchema, &raw); err == nil && raw != nil {
			return raw
		}
	}

	schemaType := t.InputSchema.Type
	if schemaType == "" {
		schemaType = "object"
	}

	properties := t.InputSchema.Properties
	if properties == nil {
		properties = map[string]interface{}{}
	}

	params := map[string]interface{}{
		"type":       schemaType,
		"properties": properties,
	}

	if len(t.InputSchema.Required) > 0 {
		params["required"] = t.InputSchema.Required
	}
	if len(t.InputSchema.Defs) > 0 {
		params["$defs"] = t.InputSchema.Defs
	}

	return params
}
