package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore persists a Ledger's Document to disk using the same
// write-temp-then-rename discipline as internal/checkpoint, so a crash
// mid-save never corrupts the previously committed ledger file.
type FileStore struct {
	Path    string
	Project string
	Pretty  bool

	created time.Time
}

// NewFileStore returns a FileStore rooted at path for project, stamping
// Created with now unless a prior file already exists (Load restores it).
func NewFileStore(path, project string) *FileStore {
	return &FileStore{Path: path, Project: project, Pretty: true, created: time.Now()}
}

// Save serializes l and atomically writes it to fs.Path.
func (fs *FileStore) Save(l *Ledger) error {
	doc := l.ToData(fs.Project, fs.created)

	var data []byte
	var err error
	if fs.Pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("marshal ledger document: %w", err)
	}

	dir := filepath.Dir(fs.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(fs.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger file: %w", err)
	}
	if err := os.Rename(tmpPath, fs.Path); err != nil {
		return fmt.Errorf("rename temp ledger file onto %s: %w", fs.Path, err)
	}
	return nil
}

// Load reads fs.Path and reconstructs a Ledger via FromData. A missing
// file is reported as os.ErrNotExist so callers can treat "no ledger yet"
// as the fresh-start case, same as checkpoint.Service.Load's file_error.
func (fs *FileStore) Load() (*Ledger, error) {
	raw, err := os.ReadFile(fs.Path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse ledger file %s: %w", fs.Path, err)
	}

	if created, err := time.Parse(time.RFC3339, doc.Meta.Created); err == nil {
		fs.created = created
	}
	if doc.Meta.Project != "" {
		fs.Project = doc.Meta.Project
	}

	return FromData(doc)
}
