package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DateLayout is the calendar-day key used for diet files.
const DateLayout = "2006-01-02"

// FoodEntry is a snapshot of the nutrients for a food and gram amount.
// Nutrients are fixed at creation and only change through explicit edits.
type FoodEntry struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Grams   float64 `json:"grams"`
	Protein float64 `json:"protein"`
	Kcal    float64 `json:"kcal"`
	Fiber   float64 `json:"fiber"`
}

// DayItem is one element of a diet day file. Older files stored bare food
// names, so an item is either a FoodEntry or a legacy string. Anything else
// is kept verbatim so a save does not lose it.
type DayItem struct {
	Food   *FoodEntry
	Legacy string
	raw    json.RawMessage
}

// FoodItem wraps e as a DayItem.
func FoodItem(e FoodEntry) DayItem {
	return DayItem{Food: &e}
}

// LegacyItem wraps a bare food name as a DayItem.
func LegacyItem(name string) DayItem {
	return DayItem{Legacy: name}
}

// MarshalJSON implements json.Marshaler.
func (d DayItem) MarshalJSON() ([]byte, error) {
	switch {
	case d.Food != nil:
		return json.Marshal(d.Food)
	case d.raw != nil:
		return d.raw, nil
	default:
		return json.Marshal(d.Legacy)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Numeric fields are read
// leniently: a missing, empty, or non-numeric value becomes 0.
func (d *DayItem) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*d = DayItem{}
	switch {
	case len(trimmed) > 0 && trimmed[0] == '"':
		return json.Unmarshal(trimmed, &d.Legacy)
	case len(trimmed) > 0 && trimmed[0] == '{':
		var aux struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Grams   any    `json:"grams"`
			Protein any    `json:"protein"`
			Kcal    any    `json:"kcal"`
			Fiber   any    `json:"fiber"`
		}
		if err := json.Unmarshal(trimmed, &aux); err != nil {
			return err
		}
		d.Food = &FoodEntry{
			ID:      aux.ID,
			Name:    aux.Name,
			Grams:   lenientFloat(aux.Grams),
			Protein: lenientFloat(aux.Protein),
			Kcal:    lenientFloat(aux.Kcal),
			Fiber:   lenientFloat(aux.Fiber),
		}
		return nil
	default:
		d.raw = append(json.RawMessage(nil), trimmed...)
		return nil
	}
}

func lenientFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// DayTotals is one point of a multi-day nutrient series.
type DayTotals struct {
	Date    string  `json:"date"`
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein"`
	Fiber   float64 `json:"fiber"`
}

// Goals are the user's daily nutrient targets.
type Goals struct {
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein"`
	Fiber   float64 `json:"fiber"`
}

// DefaultGoals are used until the user sets their own.
func DefaultGoals() Goals {
	return Goals{Kcal: 2000, Protein: 120, Fiber: 30}
}
