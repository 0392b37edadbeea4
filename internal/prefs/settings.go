package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/models"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

const (
	keyGoals = "goals"
	keyTheme = "theme"
)

// Settings are the user preferences.
type Settings struct {
	Goals models.Goals `json:"goals"`
	Theme string       `json:"theme"`
}

// Defaults returns the settings used before anything is stored.
func Defaults() Settings {
	return Settings{Goals: models.DefaultGoals(), Theme: ThemeLight}
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	if err := validation.ValidateStruct(&s.Goals,
		validation.Field(&s.Goals.Kcal, validation.Min(0.0)),
		validation.Field(&s.Goals.Protein, validation.Min(0.0)),
		validation.Field(&s.Goals.Fiber, validation.Min(0.0)),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(s,
		validation.Field(&s.Theme, validation.Required, validation.In(ThemeLight, ThemeDark)),
	)
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Goals *models.Goals `json:"goals,omitempty"`
	Theme *string       `json:"theme,omitempty"`
}

// Service keeps the current settings in memory and writes changes through
// to the database.
type Service struct {
	db     *DB
	logger *slog.Logger

	mu  sync.RWMutex
	cur Settings
}

// NewService loads stored settings once. Unreadable or invalid values fall
// back to their defaults.
func NewService(ctx context.Context, db *DB, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	kv, err := db.All(ctx)
	if err != nil {
		return nil, err
	}
	s := &Service{db: db, logger: logger, cur: Defaults()}

	if raw, ok := kv[keyGoals]; ok {
		candidate := s.cur
		if err := json.Unmarshal([]byte(raw), &candidate.Goals); err != nil || candidate.Validate() != nil {
			logger.Warn("prefs: ignoring stored goals", slog.String("value", raw))
		} else {
			s.cur = candidate
		}
	}
	if raw, ok := kv[keyTheme]; ok {
		candidate := s.cur
		candidate.Theme = raw
		if candidate.Validate() != nil {
			logger.Warn("prefs: ignoring stored theme", slog.String("value", raw))
		} else {
			s.cur.Theme = raw
		}
	}
	return s, nil
}

// Get returns the current settings.
func (s *Service) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Goals returns the current nutrient goals.
func (s *Service) Goals() models.Goals {
	return s.Get().Goals
}

// Update applies p, validates the result, and persists it.
func (s *Service) Update(ctx context.Context, p Patch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	kv := make(map[string]string, 2)
	if p.Goals != nil {
		next.Goals = *p.Goals
		data, err := json.Marshal(next.Goals)
		if err != nil {
			return s.cur, fmt.Errorf("prefs: encode goals: %w", err)
		}
		kv[keyGoals] = string(data)
	}
	if p.Theme != nil {
		next.Theme = *p.Theme
		kv[keyTheme] = next.Theme
	}
	if err := next.Validate(); err != nil {
		return s.cur, fmt.Errorf("%w: %s", apperr.ErrInvalid, err.Error())
	}
	if len(kv) == 0 {
		return s.cur, nil
	}
	if err := s.db.SetMany(ctx, kv); err != nil {
		return s.cur, err
	}
	s.cur = next
	return next, nil
}

// Reset removes the stored settings and returns the defaults.
func (s *Service) Reset(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{keyGoals, keyTheme} {
		if err := s.db.Delete(ctx, key); err != nil {
			return s.cur, err
		}
	}
	s.cur = Defaults()
	return s.cur, nil
}
