package registry

// Several tool servers report permissive or missing input schemas, which
// makes the model guess at argument shapes. The override table pins the
// schemas we know to be correct; everything else falls back to the
// server-reported schema, normalized into a closed object schema.

// emptySchema is the degraded default: an object with no properties, no
// required fields, and no additional properties.
func emptySchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"required":             []string{},
		"additionalProperties": false,
	}
}

func objectSchema(properties map[string]any, required []string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// schemaOverrides maps serverName → toolName → pinned schema.
var schemaOverrides = map[string]map[string]func() map[string]any{
	"gsuite": {
		"list_emails": func() map[string]any {
			return objectSchema(map[string]any{
				"maxResults": map[string]any{"type": "number", "default": 10},
				"query":      map[string]any{"type": "string"},
			}, nil)
		},
		"search_emails": func() map[string]any {
			return objectSchema(map[string]any{
				"maxResults": map[string]any{"type": "number", "default": 10},
				"query":      map[string]any{"type": "string"},
			}, nil)
		},
		"send_email": func() map[string]any {
			return objectSchema(map[string]any{
				"to":      map[string]any{"type": "string"},
				"subject": map[string]any{"type": "string"},
				"body":    map[string]any{"type": "string"},
			}, []string{"to", "subject", "body"})
		},
	},
	"exa": {
		"web_search_exa": func() map[string]any {
			return objectSchema(map[string]any{
				"query":      map[string]any{"type": "string", "description": "Search query"},
				"numResults": map[string]any{"type": "number", "default": 5, "description": "Number of results to return"},
			}, []string{"query"})
		},
		"company_research": func() map[string]any {
			return objectSchema(map[string]any{
				"query":      map[string]any{"type": "string", "description": "Company name or domain to research"},
				"numResults": map[string]any{"type": "number", "default": 5, "description": "Number of results to return"},
			}, []string{"query"})
		},
	},
	"google-calendar": {
		"list-events": func() map[string]any {
			return objectSchema(map[string]any{
				"maxResults": map[string]any{"type": "number", "default": 10},
				"timeMin":    map[string]any{"type": "string", "format": "date-time"},
				"timeMax":    map[string]any{"type": "string", "format": "date-time"},
			}, nil)
		},
		"search-events": func() map[string]any {
			return objectSchema(map[string]any{
				"maxResults": map[string]any{"type": "number", "default": 10},
				"timeMin":    map[string]any{"type": "string", "format": "date-time"},
				"timeMax":    map[string]any{"type": "string", "format": "date-time"},
			}, nil)
		},
		"create-event": func() map[string]any {
			return objectSchema(map[string]any{
				"summary":     map[string]any{"type": "string"},
				"start":       map[string]any{"type": "string", "format": "date-time"},
				"end":         map[string]any{"type": "string", "format": "date-time"},
				"description": map[string]any{"type": "string"},
			}, []string{"summary", "start", "end"})
		},
	},
}

// NormalizeSchema derives the canonical input schema for a tool: the
// static override if one exists, otherwise the server-reported schema
// folded into a closed object schema, otherwise the empty default. A
// malformed reported schema never fails — it degrades to the default.
func NormalizeSchema(serverName, toolName string, reported map[string]any) map[string]any {
	if byTool, ok := schemaOverrides[serverName]; ok {
		if build, ok := byTool[toolName]; ok {
			return build()
		}
	}

	schema := emptySchema()
	if reported == nil {
		return schema
	}

	if props, ok := reported["properties"].(map[string]any); ok {
		schema["properties"] = props
	}
	switch req := reported["required"].(type) {
	case []string:
		schema["required"] = req
	case []any:
		names := make([]string, 0, len(req))
		for _, item := range req {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
		schema["required"] = names
	}

	return schema
}

// RequiredFields returns the required property names from a canonical schema.
func RequiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		names := make([]string, 0, len(req))
		for _, item := range req {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
		return names
	}
	return nil
}
