// Package autosave defers note and diet writes so that a burst of edits
// results in a single write of the latest state.
package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/debounce"
	"github.com/starford/berkana/internal/diet"
	"github.com/starford/berkana/internal/models"
)

// Default delays.
const (
	DefaultNoteDelay   = 400 * time.Millisecond
	DefaultRenameDelay = 750 * time.Millisecond
	DefaultDayDelay    = 500 * time.Millisecond
)

// ErrClosed is returned for writes scheduled after Close.
var ErrClosed = errors.New("autosave: closed")

// NoteWriter is the subset of the note service the saver needs.
type NoteWriter interface {
	SaveNote(ctx context.Context, filePath string, content []byte, ifMatch string) (string, error)
	RenameNote(ctx context.Context, filePath, newTitle string) (*models.RenamedNote, error)
}

// DayWriter is the subset of the diet store the saver needs.
type DayWriter interface {
	SaveDay(ctx context.Context, date string, items []models.DayItem) error
}

// Delays configures how long each kind of write waits for further edits.
type Delays struct {
	Note   time.Duration
	Rename time.Duration
	Day    time.Duration
}

func (d Delays) withDefaults() Delays {
	if d.Note <= 0 {
		d.Note = DefaultNoteDelay
	}
	if d.Rename <= 0 {
		d.Rename = DefaultRenameDelay
	}
	if d.Day <= 0 {
		d.Day = DefaultDayDelay
	}
	return d
}

// RenameHook is called after a deferred rename succeeds.
type RenameHook func(oldPath string, r *models.RenamedNote)

// Saver schedules deferred writes.
type Saver struct {
	notes    NoteWriter
	days     DayWriter
	delays   Delays
	group    *debounce.Group
	logger   *slog.Logger
	onRename RenameHook
}

// Option configures a Saver.
type Option func(*Saver)

// WithDelays overrides the default delays. Zero fields keep their default.
func WithDelays(d Delays) Option {
	return func(s *Saver) { s.delays = d.withDefaults() }
}

// WithLogger sets the logger used for failed writes.
func WithLogger(l *slog.Logger) Option {
	return func(s *Saver) { s.logger = l }
}

// WithRenameHook registers fn to observe completed renames.
func WithRenameHook(fn RenameHook) Option {
	return func(s *Saver) { s.onRename = fn }
}

// New creates a saver over the note service and diet store.
func New(notes NoteWriter, days DayWriter, opts ...Option) *Saver {
	s := &Saver{
		notes:  notes,
		days:   days,
		delays: Delays{}.withDefaults(),
		group:  debounce.New(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func noteKey(filePath string) string   { return "note:" + filePath }
func renameKey(filePath string) string { return "rename:" + filePath }
func dayKey(date string) string        { return "day:" + date }

// SaveNote schedules content to be written to filePath. Content must be JSON.
func (s *Saver) SaveNote(filePath string, content []byte) error {
	if strings.TrimSpace(filePath) == "" {
		return fmt.Errorf("%w: filePath is required", apperr.ErrInvalid)
	}
	if !json.Valid(content) {
		return fmt.Errorf("%w: content is not valid JSON", apperr.ErrInvalid)
	}
	body := append([]byte(nil), content...)
	ok := s.group.Schedule(noteKey(filePath), s.delays.Note, func() {
		if _, err := s.notes.SaveNote(context.Background(), filePath, body, ""); err != nil {
			s.logger.Error("autosave: save note failed",
				slog.String("path", filePath),
				slog.String("error", err.Error()),
			)
		}
	})
	if !ok {
		return ErrClosed
	}
	return nil
}

// RenameNote schedules a title change for filePath. A content save pending
// for the same note is written first.
func (s *Saver) RenameNote(filePath, title string) error {
	if strings.TrimSpace(filePath) == "" {
		return fmt.Errorf("%w: filePath is required", apperr.ErrInvalid)
	}
	ok := s.group.Schedule(renameKey(filePath), s.delays.Rename, func() {
		s.group.FlushKey(noteKey(filePath))
		r, err := s.notes.RenameNote(context.Background(), filePath, title)
		if err != nil {
			s.logger.Error("autosave: rename note failed",
				slog.String("path", filePath),
				slog.String("error", err.Error()),
			)
			return
		}
		if s.onRename != nil && r.FilePath != filePath {
			s.onRename(filePath, r)
		}
	})
	if !ok {
		return ErrClosed
	}
	return nil
}

// SaveDay schedules a full replace of the day's list.
func (s *Saver) SaveDay(date string, items []models.DayItem) error {
	if _, err := diet.ParseDate(date); err != nil {
		return err
	}
	snapshot := append([]models.DayItem(nil), items...)
	ok := s.group.Schedule(dayKey(date), s.delays.Day, func() {
		if err := s.days.SaveDay(context.Background(), date, snapshot); err != nil {
			s.logger.Error("autosave: save day failed",
				slog.String("date", date),
				slog.String("error", err.Error()),
			)
		}
	})
	if !ok {
		return ErrClosed
	}
	return nil
}

// CancelNote drops deferred writes for filePath, e.g. before it is deleted.
func (s *Saver) CancelNote(filePath string) {
	s.group.Cancel(noteKey(filePath))
	s.group.Cancel(renameKey(filePath))
}

// CancelDay drops a deferred write for date and waits for one already in
// progress, so a direct save of the day is not overwritten.
func (s *Saver) CancelDay(date string) {
	s.group.Cancel(dayKey(date))
	s.group.FlushKey(dayKey(date))
}

// FlushDay writes the pending list for date now, or waits for a write already
// in progress, so a following edit sees it.
func (s *Saver) FlushDay(date string) {
	s.group.FlushKey(dayKey(date))
}

// Flush writes everything pending and waits for it.
func (s *Saver) Flush() {
	s.group.Flush()
}

// Close flushes pending writes and stops accepting new ones.
func (s *Saver) Close() {
	s.group.Flush()
	s.group.Stop()
}
