package crdt

import (
	"encoding/json"
	"fmt"
	"os"
)

// Save writes a JSON snapshot of the document to the given path.
func Save(fileName string, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	if err := os.WriteFile(fileName, data, 0644); err != nil {
		return fmt.Errorf("save document to %s: %w", fileName, err)
	}
	return nil
}

// Load reads a JSON snapshot of a document from the given path.
func Load(fileName string) (Document, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return Document{}, fmt.Errorf("load document from %s: %w", fileName, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}
