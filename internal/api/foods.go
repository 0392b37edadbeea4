package api

import (
	"log/slog"
	"net/http"
)

// SearchFoods handles GET /api/foods/search?q=. A catalog that cannot be
// loaded yields no results.
//
//	@Summary	Search food names
//	@Tags		foods
//	@Produce	json
//	@Param		q	query		string	true	"At least two characters"
//	@Success	200	{object}	FoodSearchResponse
//	@Router		/foods/search [get]
func (h *Handler) SearchFoods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	names, err := h.catalog.Search(r.Context(), q)
	if err != nil {
		h.logger.Error("food search failed", slog.String("q", q), slog.String("error", err.Error()))
		names = nil
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, FoodSearchResponse{Results: names})
}

// FoodDetails handles GET /api/foods/details?name=. Unknown names and load
// failures give null.
func (h *Handler) FoodDetails(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	item, err := h.catalog.Details(r.Context(), name)
	if err != nil {
		h.logger.Error("food details failed", slog.String("name", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if item == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, (*FoodDetails)(item))
}
