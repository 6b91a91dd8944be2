package ast

import (
	"encoding/json"
	"fmt"
)

// ParseBytes parses a serialized class descriptor from a byte slice.
func ParseBytes(data []byte) (*Class, error) {
	var class Class
	if err := json.Unmarshal(data, &class); err != nil {
		return nil, fmt.Errorf("failed to parse class descriptor: %w", err)
	}
	return &class, nil
}

// Marshal serializes a class descriptor.
func Marshal(class *Class) ([]byte, error) {
	data, err := json.Marshal(class)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize class %s: %w", class.Name, err)
	}
	return data, nil
}
