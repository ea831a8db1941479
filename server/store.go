package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/burntcarrot/coedit/crdt"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	name TEXT PRIMARY KEY,
	characters TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// snapshotStore persists document snapshots, so a session survives every
// client disconnecting.
type snapshotStore struct {
	db *sql.DB
}

func newSnapshotStore(path string) (*snapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &snapshotStore{db: db}, nil
}

// Save upserts a document snapshot.
func (s *snapshotStore) Save(name string, doc crdt.Document) error {
	data, err := json.Marshal(doc.Characters)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", name, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO documents (name, characters, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET characters = excluded.characters, updated_at = excluded.updated_at`,
		name, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", name, err)
	}
	return nil
}

// Load returns a document snapshot and whether one exists.
func (s *snapshotStore) Load(name string) (crdt.Document, bool, error) {
	var data string
	err := s.db.QueryRow(`SELECT characters FROM documents WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return crdt.Document{}, false, nil
	}
	if err != nil {
		return crdt.Document{}, false, fmt.Errorf("load document %s: %w", name, err)
	}

	var doc crdt.Document
	if err := json.Unmarshal([]byte(data), &doc.Characters); err != nil {
		return crdt.Document{}, false, fmt.Errorf("unmarshal document %s: %w", name, err)
	}
	return doc, true, nil
}

func (s *snapshotStore) Close() error {
	return s.db.Close()
}
