// Package models defines the domain types for Berkana.
package models

import (
	"encoding/json"
	"time"
)

// DocType is the root node type of a rich-text note document.
const DocType = "doc"

// FileMeta describes one entry in a data directory.
type FileMeta struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	IsDir   bool      `json:"is_dir,omitempty"`
}

// NoteDocument is the on-disk shape of a note file. The file name is the
// note's display title; ID is its identity and survives renames.
type NoteDocument struct {
	ID         string          `json:"id"`
	LastOpened int64           `json:"lastOpened"` // Unix milliseconds
	Type       string          `json:"type"`
	Content    json.RawMessage `json:"content,omitempty"`
}

// NoteSummary is the lightweight record returned when listing a folder.
type NoteSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	LastOpened int64  `json:"lastOpened"`
}

// NoteFile is a note that has been opened for editing.
type NoteFile struct {
	FilePath string          `json:"filePath"`
	Content  json.RawMessage `json:"content"`
	Checksum string          `json:"checksum"`
}

// CreatedNote is returned after a note file has been created.
type CreatedNote struct {
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
}

// RenamedNote is returned after a rename (or a no-op rename).
type RenamedNote struct {
	FilePath    string `json:"filePath"`
	NewFileName string `json:"newFileName"`
}

// Millis converts t to Unix milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
