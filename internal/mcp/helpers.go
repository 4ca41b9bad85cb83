package mcpserver

import (
	"encoding/json"
	"math"
)

// intArg reads a numeric tool argument. JSON numbers arrive as float64.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(math.Round(v)), true
	case int:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return int(math.Round(f)), err == nil
	}
	return 0, false
}

func intArgOr(args map[string]any, key string, fallback int) int {
	if v, ok := intArg(args, key); ok {
		return v
	}
	return fallback
}

// parseValue decodes a prop value sent as JSON text. Anything that is not
// valid JSON is taken as a plain string, so agents can pass copy as-is.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
