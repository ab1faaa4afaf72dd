package agent

import (
	"encoding/json"

	mmcp "github.com/mark3labs/mcp-go/mcp"
	"google.golang.org/genai"
)

// FunctionDeclarations converts MCP tool definitions into Gemini function
// declarations.
func FunctionDeclarations(tools []mmcp.Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  toolParameters(tool),
		})
	}
	return decls
}

func toolParameters(tool mmcp.Tool) *genai.Schema {
	properties := tool.InputSchema.Properties
	required := tool.InputSchema.Required

	if len(tool.RawInputSchema) > 0 {
		var raw struct {
			Properties map[string]any `json:"properties"`
			Required   []string       `json:"required"`
		}
		if err := json.Unmarshal(tool.RawInputSchema, &raw); err == nil {
			properties, required = raw.Properties, raw.Required
		}
	}

	if len(properties) == 0 {
		return nil
	}

	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Required:   required,
		Properties: make(map[string]*genai.Schema, len(properties)),
	}
	for name, def := range properties {
		prop, _ := def.(map[string]any)
		schema.Properties[name] = convertProperty(prop)
	}
	return schema
}

// convertProperty maps one JSON schema property. Gemini rejects arrays without
// an items schema, so those default to string items.
func convertProperty(def map[string]any) *genai.Schema {
	typ, _ := def["type"].(string)
	schema := &genai.Schema{Type: convertType(typ)}

	if desc, ok := def["description"].(string); ok {
		schema.Description = desc
	}
	schema.Enum = stringList(def["enum"])
	if v, ok := number(def["minimum"]); ok {
		schema.Minimum = &v
	}
	if v, ok := number(def["maximum"]); ok {
		schema.Maximum = &v
	}

	switch schema.Type {
	case genai.TypeArray:
		if items, ok := def["items"].(map[string]any); ok {
			schema.Items = convertProperty(items)
		} else {
			schema.Items = &genai.Schema{Type: genai.TypeString}
		}
	case genai.TypeObject:
		if props, ok := def["properties"].(map[string]any); ok && len(props) > 0 {
			schema.Properties = make(map[string]*genai.Schema, len(props))
			for name, sub := range props {
				subDef, _ := sub.(map[string]any)
				schema.Properties[name] = convertProperty(subDef)
			}
		}
		schema.Required = stringList(def["required"])
	}
	return schema
}

func convertType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// stringList accepts both decoded JSON arrays and Go string slices.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		var out []string
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
