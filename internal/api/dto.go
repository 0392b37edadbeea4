package api

import (
	"encoding/json"

	"github.com/starford/berkana/internal/catalog"
	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/nutrition"
)

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest struct {
	Name string `json:"name" example:"Work" validate:"required"`
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title string `json:"title" example:"Todo" validate:"required"`
}

// SaveNoteRequest carries a full note document for SaveNote and autosave.
type SaveNoteRequest struct {
	FilePath string          `json:"filePath" example:"Work/Todo.json" validate:"required"`
	Content  json.RawMessage `json:"content" validate:"required"`
}

// RenameNoteRequest is the request body for renaming a note.
type RenameNoteRequest struct {
	FilePath string `json:"filePath" example:"Work/Todo.json" validate:"required"`
	Title    string `json:"title" example:"Done" validate:"required"`
}

// FolderListResponse wraps folder names.
type FolderListResponse struct {
	Folders []string `json:"folders" validate:"required"`
}

// NoteListResponse wraps the notes of one folder.
type NoteListResponse struct {
	Notes []models.NoteSummary `json:"notes" validate:"required"`
}

// FoodSearchResponse wraps matching food names.
type FoodSearchResponse struct {
	Results []string `json:"results" validate:"required"`
}

// FoodDetails is a catalog row.
type FoodDetails = catalog.Item

// DayResponse is one diet day with its totals and goal progress.
type DayResponse struct {
	Date     string             `json:"date" example:"2025-01-02"`
	Items    []models.DayItem   `json:"items"`
	Totals   nutrition.Totals   `json:"totals"`
	Progress nutrition.Progress `json:"progress"`
}

// AddEntryRequest adds grams of a food to a day. A name not in the catalog
// is recorded with zero nutrients.
type AddEntryRequest struct {
	Name  string  `json:"name" example:"Chickpeas" validate:"required"`
	Grams float64 `json:"grams" example:"150" validate:"required"`
}

// UpdateEntryRequest overrides fields of an entry. Omitted fields keep
// their value; nutrients are not rescaled when grams change.
type UpdateEntryRequest struct {
	Name    *string  `json:"name,omitempty"`
	Grams   *float64 `json:"grams,omitempty"`
	Protein *float64 `json:"protein,omitempty"`
	Kcal    *float64 `json:"kcal,omitempty"`
	Fiber   *float64 `json:"fiber,omitempty"`
}

// RangeResponse wraps per-day totals.
type RangeResponse struct {
	Days []models.DayTotals `json:"days"`
}
