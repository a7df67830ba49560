package util

import (
	"encoding/json"

	"github.com/keshon/savepoint/internal/fsio"
)

// WriteJSON writes a JSON file atomically.
var WriteJSON = func(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return fsio.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// ReadJSON reads a JSON file and unmarshals it into v.
var ReadJSON = func(path string, v any) error {
	data, err := fsio.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
