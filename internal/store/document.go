package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the portable form of a collection. It is the shape written to
// the remote document store and to exports.
type Document struct {
	Items []Item   `json:"items" yaml:"items"`
	Gaps  []string `json:"gaps" yaml:"gaps"`
}

// NewDocument snapshots a collection into a document.
// Slices are never nil so the JSON form always carries arrays.
func NewDocument(c Collection) Document {
	c = c.Clone()
	doc := Document{Items: c.Items, Gaps: c.Gaps}
	if doc.Items == nil {
		doc.Items = []Item{}
	}
	if doc.Gaps == nil {
		doc.Gaps = []string{}
	}
	for i := range doc.Items {
		doc.Items[i].IsProcessing = false
	}
	return doc
}

// Collection converts the document back into a collection.
func (d Document) Collection() Collection {
	return Collection{Items: d.Items, Gaps: d.Gaps}.Clone()
}

// EncodeJSON renders the document as indented JSON.
func (d Document) EncodeJSON() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// EncodeYAML renders the document as YAML.
func (d Document) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode document yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode document yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeDocument parses a document from JSON. A bare array of items (the
// older export shape) is accepted with an empty gaps list.
func DecodeDocument(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode document: empty input")
	}

	var doc Document
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &doc.Items); err != nil {
			return nil, fmt.Errorf("decode document items: %w", err)
		}
	} else if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DecodeYAMLDocument parses a document exported as YAML.
func DecodeYAMLDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document yaml: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	seen := make(map[string]bool, len(d.Items))
	for i := range d.Items {
		it := &d.Items[i]
		if strings.TrimSpace(it.ID) == "" {
			return fmt.Errorf("item %d: missing id", i)
		}
		if seen[it.ID] {
			return fmt.Errorf("item %d: duplicate id %q", i, it.ID)
		}
		seen[it.ID] = true
		if it.Soil.Status == "" {
			it.Soil.Status = StatusActive
		}
		if !it.Soil.Status.Valid() {
			return fmt.Errorf("item %s: invalid status %q", it.ID, it.Soil.Status)
		}
		if it.Soil.Strength < 0 || it.Soil.Strength > 1 {
			return fmt.Errorf("item %s: strength %v out of range", it.ID, it.Soil.Strength)
		}
		it.IsProcessing = false
	}
	return nil
}
