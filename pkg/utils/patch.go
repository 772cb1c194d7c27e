package utils

import (
	"encoding/json"
	"fmt"
)

// SentFields returns the top-level JSON keys present in a request body,
// so PATCH handlers can tell an absent field from an explicit null.
func SentFields(rawRequestBody []byte) (map[string]bool, error) {
	var sent map[string]json.RawMessage
	if err := json.Unmarshal(rawRequestBody, &sent); err != nil {
		return nil, fmt.Errorf("decode patch body: %w", err)
	}
	fields := make(map[string]bool, len(sent))
	for k := range sent {
		fields[k] = true
	}
	return fields, nil
}
