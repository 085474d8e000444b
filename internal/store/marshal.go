package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalPasses converts the pass list to JSON TEXT for storage.
// HTML escaping is disabled so the stored text matches what was requested.
func marshalPasses(passes []string) (string, error) {
	if passes == nil {
		passes = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(passes); err != nil {
		return "", fmt.Errorf("marshal passes: %w", err)
	}
	// Encoder adds a trailing newline
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalPasses parses JSON TEXT to a pass list. Never returns nil.
func unmarshalPasses(data string) ([]string, error) {
	passes := []string{}
	if data == "" {
		return passes, nil
	}
	if err := json.Unmarshal([]byte(data), &passes); err != nil {
		return nil, fmt.Errorf("unmarshal passes: %w", err)
	}
	if passes == nil {
		passes = []string{}
	}
	return passes, nil
}
