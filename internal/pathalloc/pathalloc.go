// Package pathalloc picks collision-free names for new files and folders.
package pathalloc

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/berkana/internal/apperr"
)

// unsafeChars are stripped from user-supplied titles before they become file names.
const unsafeChars = `\/:*?"<>|`

// Checker reports whether a path (relative to the checker's root) is taken.
type Checker interface {
	Exists(path string) bool
}

// Unique returns the first name in the sequence name, "name (1)", "name (2)", ...
// whose path under dir is free, together with that path. ext is appended as
// ".ext" when non-empty; pass "" for directories.
//
// Nothing is created. Callers are expected to create the path right away.
func Unique(c Checker, dir, name, ext string) (string, string) {
	candidate := name
	p := join(dir, candidate, ext)
	for n := 1; c.Exists(p); n++ {
		candidate = fmt.Sprintf("%s (%d)", name, n)
		p = join(dir, candidate, ext)
	}
	return candidate, p
}

// Sanitize strips characters that are unsafe in file names and trims whitespace.
func Sanitize(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeChars, r) {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(cleaned)
}

// Clean sanitizes name and rejects results that cannot name a file. Names
// starting with a dot are rejected because listings skip hidden entries.
func Clean(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: name is required", apperr.ErrInvalid)
	}
	s := Sanitize(name)
	switch s {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q is not a usable name", apperr.ErrInvalid, name)
	}
	if strings.HasPrefix(s, ".") {
		return "", fmt.Errorf("%w: %q must not start with a dot", apperr.ErrInvalid, name)
	}
	return s, nil
}

func join(dir, name, ext string) string {
	if ext != "" {
		name += "." + ext
	}
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}
