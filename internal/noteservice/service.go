// Package noteservice manages per-folder note files: listing, creation,
// opening, renaming, saving, and deletion.
package noteservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/checksum"
	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/pathalloc"
	"github.com/starford/berkana/internal/storage"
)

const noteExt = "json"

var initialContent = json.RawMessage(`[{"type":"paragraph"}]`)

// Service reads and writes note files under the notes root.
type Service struct {
	store  storage.Provider
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewService creates a new note service.
func NewService(store storage.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// ListFolders returns the folder names under the notes root. A failure is
// logged and reported as an empty list.
func (s *Service) ListFolders(_ context.Context) []string {
	dirs, err := s.store.ListDirs("")
	if err != nil {
		s.logger.Error("list folders failed", slog.String("error", err.Error()))
		return []string{}
	}
	return nonNilSlice(dirs)
}

// ListNotes returns a summary of every note in folder. Files written before
// notes carried an id or lastOpened are upgraded and rewritten in place.
// Unreadable files are logged and left out.
func (s *Service) ListNotes(_ context.Context, folder string) []models.NoteSummary {
	if err := validFolder(folder); err != nil {
		s.logger.Warn("list notes: bad folder", slog.String("folder", folder), slog.String("error", err.Error()))
		return []models.NoteSummary{}
	}
	if !s.store.Exists(folder) {
		return []models.NoteSummary{}
	}
	files, err := s.store.ListFiles(folder, noteExt)
	if err != nil {
		s.logger.Error("list notes failed", slog.String("folder", folder), slog.String("error", err.Error()))
		return []models.NoteSummary{}
	}

	out := make([]models.NoteSummary, 0, len(files))
	for _, f := range files {
		sum, err := s.loadSummary(f)
		if err != nil {
			s.logger.Warn("list notes: skipping file",
				slog.String("path", f.Path),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, sum)
	}
	return out
}

// loadSummary reads one note, upgrading it to the current shape if needed.
func (s *Service) loadSummary(f models.FileMeta) (models.NoteSummary, error) {
	data, err := s.store.Read(f.Path)
	if err != nil {
		return models.NoteSummary{}, err
	}
	doc, err := parseDocument(data)
	if err != nil {
		return models.NoteSummary{}, err
	}
	if s.upgrade(doc, f.ModTime) {
		encoded, err := doc.encode()
		if err != nil {
			return models.NoteSummary{}, err
		}
		if err := s.store.Write(f.Path, encoded); err != nil {
			return models.NoteSummary{}, err
		}
		s.logger.Info("upgraded legacy note", slog.String("path", f.Path))
	}
	opened, _ := doc.lastOpened()
	return models.NoteSummary{
		ID:         doc.id(),
		Title:      strings.TrimSuffix(f.Name, "."+noteExt),
		LastOpened: opened,
	}, nil
}

// upgrade fills in the identity fields older note files lack. A missing
// lastOpened falls back to the file's modification time.
func (s *Service) upgrade(doc document, modTime time.Time) bool {
	changed := false
	if doc.id() == "" {
		doc.set("id", s.newID())
		changed = true
	}
	if _, ok := doc.lastOpened(); !ok {
		doc.set("lastOpened", models.Millis(modTime))
		changed = true
	}
	return changed
}

// CreateFolder creates a new folder, suffixing the name if it is taken.
func (s *Service) CreateFolder(_ context.Context, name string) (string, error) {
	cleaned, err := pathalloc.Clean(name)
	if err != nil {
		return "", err
	}
	unique, p := pathalloc.Unique(s.store, "", cleaned, "")
	if err := s.store.Mkdir(p); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", apperr.ErrAlreadyExists
		}
		s.logger.Error("create folder failed", slog.String("folder", unique), slog.String("error", err.Error()))
		return "", err
	}
	return unique, nil
}

// CreateNote writes a new, empty note into folder.
func (s *Service) CreateNote(_ context.Context, folder, title string) (*models.CreatedNote, error) {
	if err := validFolder(folder); err != nil {
		return nil, err
	}
	cleaned, err := pathalloc.Clean(title)
	if err != nil {
		return nil, err
	}
	if !s.store.Exists(folder) {
		return nil, fmt.Errorf("folder %q: %w", folder, apperr.ErrNotFound)
	}
	name, p := pathalloc.Unique(s.store, folder, cleaned, noteExt)

	data, err := json.MarshalIndent(models.NoteDocument{
		ID:         s.newID(),
		LastOpened: models.Millis(s.now()),
		Type:       models.DocType,
		Content:    initialContent,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(p, data); err != nil {
		s.logger.Error("create note failed", slog.String("path", p), slog.String("error", err.Error()))
		return nil, err
	}
	return &models.CreatedNote{FileName: name, FilePath: p}, nil
}

// ReadNote opens a note, stamping lastOpened with the current time before
// returning the document.
func (s *Service) ReadNote(_ context.Context, folder, fileName string) (*models.NoteFile, error) {
	p, err := notePath(folder, fileName)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	now := s.now()
	s.upgrade(doc, now)
	doc.set("lastOpened", models.Millis(now))

	encoded, err := doc.encode()
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(p, encoded); err != nil {
		return nil, err
	}
	return &models.NoteFile{
		FilePath: p,
		Content:  encoded,
		Checksum: checksum.Sum(encoded),
	}, nil
}

// RenameNote gives the note at filePath a new title. Renaming to the current
// title is a no-op that reports the unchanged path.
func (s *Service) RenameNote(_ context.Context, filePath, newTitle string) (*models.RenamedNote, error) {
	if err := validNoteFile(filePath); err != nil {
		return nil, err
	}
	if strings.TrimSpace(newTitle) == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrInvalid)
	}
	oldTitle := strings.TrimSuffix(path.Base(filePath), "."+noteExt)
	if newTitle == oldTitle {
		return &models.RenamedNote{FilePath: filePath, NewFileName: oldTitle}, nil
	}
	cleaned, err := pathalloc.Clean(newTitle)
	if err != nil {
		return nil, err
	}
	if cleaned == oldTitle {
		return &models.RenamedNote{FilePath: filePath, NewFileName: oldTitle}, nil
	}
	if !s.store.Exists(filePath) {
		return nil, apperr.ErrNotFound
	}

	name, newPath := pathalloc.Unique(s.store, path.Dir(filePath), cleaned, noteExt)
	if err := s.store.Move(filePath, newPath); err != nil {
		s.logger.Error("rename note failed",
			slog.String("from", filePath),
			slog.String("to", newPath),
			slog.String("error", err.Error()))
		return nil, err
	}
	return &models.RenamedNote{FilePath: newPath, NewFileName: name}, nil
}

// DeleteNote removes a note file.
func (s *Service) DeleteNote(_ context.Context, folder, fileName string) error {
	p, err := notePath(folder, fileName)
	if err != nil {
		return err
	}
	if !s.store.Exists(p) {
		return apperr.ErrNotFound
	}
	if err := s.store.Delete(p); err != nil {
		s.logger.Error("delete note failed", slog.String("path", p), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// SaveNote overwrites a note with already-serialized content. A non-empty
// ifMatch must equal the checksum of the bytes currently on disk.
// It returns the checksum of the new content.
func (s *Service) SaveNote(_ context.Context, filePath string, content []byte, ifMatch string) (string, error) {
	if err := validNoteFile(filePath); err != nil {
		return "", err
	}
	if !json.Valid(content) {
		return "", fmt.Errorf("%w: content is not valid JSON", apperr.ErrInvalid)
	}
	existing, err := s.store.Read(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.ErrNotFound
		}
		return "", err
	}
	if !checksum.Match(existing, ifMatch) {
		return "", apperr.ErrConflict
	}
	if err := s.store.Write(filePath, content); err != nil {
		s.logger.Error("save note failed", slog.String("path", filePath), slog.String("error", err.Error()))
		return "", err
	}
	return checksum.Sum(content), nil
}

// notePath builds the relative path of a note from its folder and title.
func notePath(folder, fileName string) (string, error) {
	if err := validFolder(folder); err != nil {
		return "", err
	}
	if err := validSegment(fileName); err != nil {
		return "", err
	}
	return folder + "/" + fileName + "." + noteExt, nil
}

func validFolder(folder string) error {
	return validSegment(folder)
}

// validNoteFile accepts "<folder>/<title>.json".
func validNoteFile(filePath string) error {
	dir, file := path.Split(filePath)
	if err := validFolder(strings.TrimSuffix(dir, "/")); err != nil {
		return err
	}
	if !strings.HasSuffix(file, "."+noteExt) {
		return fmt.Errorf("%w: %q is not a note file", apperr.ErrInvalid, filePath)
	}
	return validSegment(strings.TrimSuffix(file, "."+noteExt))
}

// validSegment rejects anything that is not a single, plain path element.
func validSegment(s string) error {
	if strings.TrimSpace(s) == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("%w: %q", apperr.ErrInvalid, s)
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
