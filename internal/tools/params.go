package tools

import "fmt"

func stringParam(params map[string]any, name string, required bool) (string, error) {
	v, ok := params[name]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing parameter %q", name)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string", name)
	}
	if required && s == "" {
		return "", fmt.Errorf("parameter %q is empty", name)
	}
	return s, nil
}

func boolParam(params map[string]any, name string) bool {
	b, _ := params[name].(bool)
	return b
}
