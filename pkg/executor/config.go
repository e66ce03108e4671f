package executor

// GetString reads a required string field.
func GetString(cfg map[string]interface{}, key string) (string, bool) {
	v, ok := cfg[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetStringDefault reads a string field or returns def.
func GetStringDefault(cfg map[string]interface{}, key, def string) string {
	if s, ok := GetString(cfg, key); ok {
		return s
	}
	return def
}

// GetIntDefault reads an int-ish field (int, int64, or float64 as
// produced by JSON decoding) or returns def.
func GetIntDefault(cfg map[string]interface{}, key string, def int) int {
	v, ok := cfg[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// GetFloatDefault reads a numeric field (int, int64, or float64) or
// returns def.
func GetFloatDefault(cfg map[string]interface{}, key string, def float64) float64 {
	v, ok := cfg[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// GetBoolDefault reads a bool field or returns def.
func GetBoolDefault(cfg map[string]interface{}, key string, def bool) bool {
	v, ok := cfg[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// GetStringSlice reads a []string field, accepting either []string or
// []interface{} of strings (the shape JSON decoding produces).
func GetStringSlice(cfg map[string]interface{}, key string) []string {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// GetMapSlice reads a []map[string]interface{} field, accepting the
// []interface{} of map[string]interface{} shape JSON decoding produces.
func GetMapSlice(cfg map[string]interface{}, key string) []map[string]interface{} {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []map[string]interface{}:
		return s
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(s))
		for _, item := range s {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
