package utils

import (
	"encoding/json"
)

// MarshalToJSON renders any value as a JSON string. Used for event payloads
// and cached objects.
func MarshalToJSON[T any](input T) (string, error) {
	jsonData, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

// UnmarshalFromJSON decodes JSON bytes into the given target.
func UnmarshalFromJSON[T any](data []byte, output *T) error {
	return json.Unmarshal(data, output)
}
