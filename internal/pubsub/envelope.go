package pubsub

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// maxEnvelopeDepth bounds how many nested "data" wrappers are peeled off.
const maxEnvelopeDepth = 4

// Unwrap returns the message body inside any CloudEvent-style envelopes.
// A JSON object with a "data" field is replaced by that field, repeatedly;
// a data field holding a JSON-encoded string is decoded first. Bodies without
// an envelope are returned unchanged.
func Unwrap(body []byte) ([]byte, error) {
	current := bytes.TrimSpace(body)
	for depth := 0; depth < maxEnvelopeDepth; depth++ {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(current, &obj); err != nil {
			if depth == 0 {
				return nil, fmt.Errorf("decode message: %w", err)
			}
			return current, nil
		}
		data, ok := obj["data"]
		if !ok {
			return current, nil
		}
		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '"' {
			var inner string
			if err := json.Unmarshal(data, &inner); err != nil {
				return nil, fmt.Errorf("decode data field: %w", err)
			}
			data = bytes.TrimSpace([]byte(inner))
		}
		if len(data) == 0 || data[0] != '{' {
			return nil, fmt.Errorf("decode data field: not a JSON object")
		}
		current = data
	}
	return current, nil
}
