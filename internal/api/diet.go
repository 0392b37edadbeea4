package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/catalog"
	"github.com/starford/berkana/internal/diet"
	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/nutrition"
)

func (h *Handler) dayResponse(date string, items []models.DayItem) DayResponse {
	if items == nil {
		items = []models.DayItem{}
	}
	totals := nutrition.ComputeTotals(items)
	return DayResponse{
		Date:     date,
		Items:    items,
		Totals:   totals,
		Progress: nutrition.Compare(totals, h.prefs.Goals()),
	}
}

// GetDay handles GET /api/diet/days/{date}. An unreadable day file is
// logged and served as an empty day.
//
//	@Summary	Load one day's food list with totals and goal progress
//	@Tags		diet
//	@Produce	json
//	@Param		date	path		string	true	"YYYY-MM-DD"
//	@Success	200		{object}	DayResponse
//	@Failure	400		{object}	errResponse
//	@Router		/diet/days/{date} [get]
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	date := param(r, "date")
	if _, err := diet.ParseDate(date); err != nil {
		h.fail(w, "load day", err)
		return
	}
	items, err := h.diet.LoadDay(r.Context(), date)
	if err != nil {
		h.logger.Error("load day failed", slog.String("date", date), slog.String("error", err.Error()))
		items = nil
	}
	writeJSON(w, http.StatusOK, h.dayResponse(date, items))
}

// SaveDay handles PUT /api/diet/days/{date} with the full item list. A
// deferred autosave of the same day is dropped.
func (h *Handler) SaveDay(w http.ResponseWriter, r *http.Request) {
	date := param(r, "date")
	var items []models.DayItem
	if !decodeJSON(w, r, &items) {
		return
	}
	h.saver.CancelDay(date)
	if err := h.diet.SaveDay(r.Context(), date, items); err != nil {
		h.fail(w, "save day", err, slog.String("date", date))
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{"day": h.dayResponse(date, items)}))
}

// AutosaveDay handles POST /api/diet/days/{date}/autosave. The list is
// written once the day has been quiet for the autosave delay.
func (h *Handler) AutosaveDay(w http.ResponseWriter, r *http.Request) {
	date := param(r, "date")
	var items []models.DayItem
	if !decodeJSON(w, r, &items) {
		return
	}
	if err := h.saver.SaveDay(date, items); err != nil {
		h.fail(w, "autosave day", err, slog.String("date", date))
		return
	}
	writeJSON(w, http.StatusAccepted, ok(nil))
}

// AddEntry handles POST /api/diet/days/{date}/entries.
//
//	@Summary	Add grams of a food to a day
//	@Tags		diet
//	@Accept		json
//	@Produce	json
//	@Param		date	path		string			true	"YYYY-MM-DD"
//	@Param		body	body		AddEntryRequest	true	"Food and amount"
//	@Success	201		{object}	map[string]any
//	@Failure	400		{object}	errResponse
//	@Router		/diet/days/{date}/entries [post]
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	date := param(r, "date")
	var req AddEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item := h.lookupFood(r, req.Name)
	entry, err := h.diet.NewEntry(req.Name, item, req.Grams)
	if err != nil {
		h.fail(w, "add entry", err)
		return
	}
	h.saver.FlushDay(date)
	items, err := h.diet.AddEntry(r.Context(), date, entry)
	if err != nil {
		h.fail(w, "add entry", err, slog.String("date", date))
		return
	}
	writeJSON(w, http.StatusCreated, ok(map[string]any{
		"entry": entry,
		"day":   h.dayResponse(date, items),
	}))
}

// lookupFood finds name in the catalog. Names not in the catalog, or a
// catalog that fails to load, are treated as free text.
func (h *Handler) lookupFood(r *http.Request, name string) *catalog.Item {
	item, err := h.catalog.Details(r.Context(), strings.TrimSpace(name))
	if err != nil {
		h.logger.Warn("food lookup failed", slog.String("name", name), slog.String("error", err.Error()))
		return nil
	}
	return item
}

// UpdateEntry handles PUT /api/diet/days/{date}/entries/{id}.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	date, id := param(r, "date"), param(r, "id")
	var req UpdateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.saver.FlushDay(date)
	items, err := h.diet.EditEntry(r.Context(), date, id, func(e *models.FoodEntry) error {
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fmt.Errorf("%w: name must not be blank", apperr.ErrInvalid)
			}
			e.Name = name
		}
		if req.Grams != nil {
			e.Grams = *req.Grams
		}
		if req.Protein != nil {
			e.Protein = *req.Protein
		}
		if req.Kcal != nil {
			e.Kcal = *req.Kcal
		}
		if req.Fiber != nil {
			e.Fiber = *req.Fiber
		}
		return nil
	})
	if err != nil {
		h.fail(w, "update entry", err, slog.String("date", date), slog.String("id", id))
		return
	}
	entry, _ := diet.Entry(items, id)
	writeJSON(w, http.StatusOK, ok(map[string]any{
		"entry": entry,
		"day":   h.dayResponse(date, items),
	}))
}

// DeleteEntry handles DELETE /api/diet/days/{date}/entries/{id}.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	date, id := param(r, "date"), param(r, "id")
	h.saver.FlushDay(date)
	items, err := h.diet.DeleteEntry(r.Context(), date, id)
	if err != nil {
		h.fail(w, "delete entry", err, slog.String("date", date), slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{"day": h.dayResponse(date, items)}))
}

// Range handles GET /api/diet/range?start=&end=.
func (h *Handler) Range(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, err := h.diet.LoadRange(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		h.fail(w, "load range", err)
		return
	}
	writeJSON(w, http.StatusOK, RangeResponse{Days: days})
}

// Graph handles GET /api/diet/graph?end=&days=&metric=. end defaults to
// today and days to the shortest period.
//
//	@Summary	Daily series of one nutrient with its goal line
//	@Tags		diet
//	@Produce	json
//	@Param		end		query		string	false	"Last day, YYYY-MM-DD"
//	@Param		days	query		int		false	"Period length"	Enums(7, 30, 90)
//	@Param		metric	query		string	false	"Metric"		Enums(Calories, Protein, Fiber)
//	@Success	200		{object}	nutrition.Chart
//	@Router		/diet/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric, err := nutrition.ParseMetric(q.Get("metric"))
	if err != nil {
		h.fail(w, "graph", err)
		return
	}

	period := nutrition.Periods[0]
	if v := q.Get("days"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 1 || n > diet.MaxRangeDays {
			h.fail(w, "graph", fmt.Errorf("%w: days must be between 1 and %d", apperr.ErrInvalid, diet.MaxRangeDays))
			return
		}
		period = n
	}

	end := h.now()
	if v := q.Get("end"); v != "" {
		if end, err = diet.ParseDate(v); err != nil {
			h.fail(w, "graph", err)
			return
		}
	}

	start, last := nutrition.Window(end, period)
	days, err := h.diet.LoadRange(r.Context(), start, last)
	if err != nil {
		h.fail(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, nutrition.Series(days, metric, h.prefs.Goals()))
}
