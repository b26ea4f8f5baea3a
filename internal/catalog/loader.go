package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

type document struct {
	Items []ContentItem       `json:"items"`
	Paths []CertificationPath `json:"paths"`
}

// LoadFile reads catalog definitions from a JSON document and validates them
// into a Registry.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Load(raw)
}

// Load parses catalog definitions from raw JSON.
func Load(raw []byte) (*Registry, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewRegistry(doc.Items, doc.Paths)
}
