// Package diet stores one food list per calendar day under the diet root.
package diet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/catalog"
	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/nutrition"
	"github.com/starford/berkana/internal/storage"
)

// MaxRangeDays bounds LoadRange.
const MaxRangeDays = 366

// Store reads and writes diet day files. Entry edits are serialized so
// concurrent load-modify-save cycles do not lose writes.
type Store struct {
	store  storage.Provider
	logger *slog.Logger
	newID  func() string
	mu     sync.Mutex
}

// NewStore creates a diet store over the given provider.
func NewStore(store storage.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{store: store, logger: logger, newID: uuid.NewString}
}

// ParseDate validates a YYYY-MM-DD day key.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", apperr.ErrInvalid, date)
	}
	return t, nil
}

func dayPath(date string) (string, error) {
	if _, err := ParseDate(date); err != nil {
		return "", err
	}
	return date + ".json", nil
}

// LoadDay returns the items recorded for date. A day with no file is empty.
func (s *Store) LoadDay(_ context.Context, date string) ([]models.DayItem, error) {
	p, err := dayPath(date)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(p)
	if errors.Is(err, os.ErrNotExist) {
		return []models.DayItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("diet: load %s: %w", date, err)
	}
	var items []models.DayItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("diet: decode %s: %w", date, err)
	}
	if items == nil {
		items = []models.DayItem{}
	}
	return items, nil
}

// LoadRange returns per-day totals for every date from start to end
// inclusive. Days that are missing or unreadable count as zero.
func (s *Store) LoadRange(ctx context.Context, start, end string) ([]models.DayTotals, error) {
	from, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: start %s is after end %s", apperr.ErrInvalid, start, end)
	}
	span := int(to.Sub(from).Hours()/24) + 1
	if span > MaxRangeDays {
		return nil, fmt.Errorf("%w: range of %d days exceeds %d", apperr.ErrInvalid, span, MaxRangeDays)
	}

	out := make([]models.DayTotals, 0, span)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		date := d.Format(models.DateLayout)
		row := models.DayTotals{Date: date}
		items, err := s.LoadDay(ctx, date)
		if err != nil {
			s.logger.Warn("diet day unreadable",
				slog.String("date", date),
				slog.String("error", err.Error()),
			)
		} else {
			t := nutrition.ComputeTotals(items)
			row.Kcal, row.Protein, row.Fiber = t.Kcal, t.Protein, t.Fiber
		}
		out = append(out, row)
	}
	return out, nil
}

// SaveDay replaces the day's list. An empty list is written as [].
func (s *Store) SaveDay(_ context.Context, date string, items []models.DayItem) error {
	p, err := dayPath(date)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.DayItem{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("diet: encode %s: %w", date, err)
	}
	if err := s.store.Write(p, data); err != nil {
		return fmt.Errorf("diet: save %s: %w", date, err)
	}
	return nil
}

// NewEntry builds an entry for grams of a food. With a catalog item that has
// nutrient data the per-100g values are scaled; otherwise nutrients are zero.
func (s *Store) NewEntry(name string, item *catalog.Item, grams float64) (models.FoodEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" && item != nil {
		name = item.Name
	}
	if name == "" {
		return models.FoodEntry{}, fmt.Errorf("%w: food name is required", apperr.ErrInvalid)
	}
	if grams <= 0 {
		return models.FoodEntry{}, fmt.Errorf("%w: grams must be greater than 0", apperr.ErrInvalid)
	}
	e := models.FoodEntry{ID: s.newID(), Name: name, Grams: grams}
	if item.HasNutrients() {
		e.Protein = item.Protein * grams / 100
		e.Kcal = item.Calories * grams / 100
		e.Fiber = item.Fiber * grams / 100
	}
	return e, nil
}

// AddEntry appends e to the day.
func (s *Store) AddEntry(ctx context.Context, date string, e models.FoodEntry) ([]models.DayItem, error) {
	if e.ID == "" {
		return nil, fmt.Errorf("%w: entry id is required", apperr.ErrInvalid)
	}
	return s.modify(ctx, date, func(items []models.DayItem) ([]models.DayItem, error) {
		return append(items, models.FoodItem(e)), nil
	})
}

// UpdateEntry replaces the entry with e.ID.
func (s *Store) UpdateEntry(ctx context.Context, date string, e models.FoodEntry) ([]models.DayItem, error) {
	return s.EditEntry(ctx, date, e.ID, func(cur *models.FoodEntry) error {
		*cur = e
		return nil
	})
}

// EditEntry applies fn to the entry with id and saves the day. The id
// cannot be changed by fn.
func (s *Store) EditEntry(ctx context.Context, date, id string, fn func(*models.FoodEntry) error) ([]models.DayItem, error) {
	return s.modify(ctx, date, func(items []models.DayItem) ([]models.DayItem, error) {
		i := indexOf(items, id)
		if i < 0 {
			return nil, fmt.Errorf("diet: entry %s on %s: %w", id, date, apperr.ErrNotFound)
		}
		e := *items[i].Food
		if err := fn(&e); err != nil {
			return nil, err
		}
		if e.Grams < 0 || e.Kcal < 0 || e.Protein < 0 || e.Fiber < 0 {
			return nil, fmt.Errorf("%w: amounts must not be negative", apperr.ErrInvalid)
		}
		e.ID = id
		items[i] = models.FoodItem(e)
		return items, nil
	})
}

// DeleteEntry removes the entry with id from the day.
func (s *Store) DeleteEntry(ctx context.Context, date, id string) ([]models.DayItem, error) {
	return s.modify(ctx, date, func(items []models.DayItem) ([]models.DayItem, error) {
		i := indexOf(items, id)
		if i < 0 {
			return nil, fmt.Errorf("diet: entry %s on %s: %w", id, date, apperr.ErrNotFound)
		}
		return append(items[:i], items[i+1:]...), nil
	})
}

func (s *Store) modify(ctx context.Context, date string, fn func([]models.DayItem) ([]models.DayItem, error)) ([]models.DayItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.LoadDay(ctx, date)
	if err != nil {
		return nil, err
	}
	items, err = fn(items)
	if err != nil {
		return nil, err
	}
	if err := s.SaveDay(ctx, date, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Entry returns the entry with id, if present.
func Entry(items []models.DayItem, id string) (models.FoodEntry, bool) {
	i := indexOf(items, id)
	if i < 0 {
		return models.FoodEntry{}, false
	}
	return *items[i].Food, true
}

func indexOf(items []models.DayItem, id string) int {
	if id == "" {
		return -1
	}
	for i, it := range items {
		if it.Food != nil && it.Food.ID == id {
			return i
		}
	}
	return -1
}
