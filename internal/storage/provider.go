// Package storage defines the data-directory file-system abstraction.
package storage

import "github.com/starford/berkana/internal/models"

// Provider is the interface for file operations under one data root.
// All paths are relative to that root.
type Provider interface {
	// ListDirs returns the names of the immediate sub-directories of dir.
	ListDirs(dir string) ([]string, error)
	// ListFiles returns metadata for the regular files in dir with the given extension.
	ListFiles(dir, ext string) ([]models.FileMeta, error)
	// Exists reports whether a file or directory exists at path.
	Exists(path string) bool
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Mkdir creates the directory at path. Its parent must exist.
	Mkdir(path string) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Abs resolves path to an absolute file-system path.
	Abs(path string) (string, error)
}
