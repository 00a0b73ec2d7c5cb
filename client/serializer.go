package client

import (
	"encoding/json"
	"fmt"
)

// Serializer converts structured payloads to and from the JSON carried by
// the broker.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONSerializer is the default Serializer. Raw JSON and byte slices that
// already hold valid JSON pass through unchanged.
type JSONSerializer struct{}

func (JSONSerializer) Marshal(v any) ([]byte, error) {
	switch p := v.(type) {
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, fmt.Errorf("raw payload is not valid JSON")
		}
		return p, nil
	case []byte:
		if json.Valid(p) {
			return p, nil
		}
	}
	return json.Marshal(v)
}

func (JSONSerializer) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		data = []byte("null")
	}
	return json.Unmarshal(data, v)
}

// Decode unmarshals a received payload with the client's serializer.
func (c *Client) Decode(payload json.RawMessage, v any) error {
	if err := c.serializer.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
