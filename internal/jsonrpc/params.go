package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// bindParams accepts either a positional JSON array or a named JSON object
// and returns the raw value for each of fieldOrder (nil if the caller
// omitted an optional field). fieldOrder also defines positional order: the
// first array element binds to fieldOrder[0], and so on.
func bindParams(params json.RawMessage, fieldOrder []string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(fieldOrder))
	if len(params) == 0 || string(params) == "null" {
		return out, nil
	}

	var probe interface{}
	if err := json.Unmarshal(params, &probe); err != nil {
		return nil, fmt.Errorf("params is not valid JSON: %w", err)
	}

	switch probe.(type) {
	case []interface{}:
		var arr []json.RawMessage
		if err := json.Unmarshal(params, &arr); err != nil {
			return nil, err
		}
		if len(arr) > len(fieldOrder) {
			return nil, fmt.Errorf("too many positional params: got %d, want at most %d", len(arr), len(fieldOrder))
		}
		for i, raw := range arr {
			out[fieldOrder[i]] = raw
		}
		return out, nil
	case map[string]interface{}:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(params, &obj); err != nil {
			return nil, err
		}
		for _, name := range fieldOrder {
			if raw, ok := obj[name]; ok {
				out[name] = raw
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("params must be an array or object")
	}
}

func requireString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || len(raw) == 0 {
		return "", fmt.Errorf("missing required param %q", name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("param %q must be a string", name)
	}
	return s, nil
}

func optionalBool(fields map[string]json.RawMessage, name string, def bool) (bool, error) {
	raw, ok := fields[name]
	if !ok || len(raw) == 0 {
		return def, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, fmt.Errorf("param %q must be a boolean", name)
	}
	return b, nil
}

func requireInt(fields map[string]json.RawMessage, name string) (int64, error) {
	raw, ok := fields[name]
	if !ok || len(raw) == 0 {
		return 0, fmt.Errorf("missing required param %q", name)
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, fmt.Errorf("param %q must be an integer", name)
	}
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("param %q must be an integer", name)
	}
	return v, nil
}
