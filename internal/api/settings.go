package api

import (
	"net/http"

	"github.com/starford/berkana/internal/prefs"
)

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.prefs.Get())
}

// UpdateSettings handles PUT /api/settings. Omitted fields are unchanged.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch prefs.Patch
	if !decodeJSON(w, r, &patch) {
		return
	}
	s, err := h.prefs.Update(r.Context(), patch)
	if err != nil {
		h.fail(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{"settings": s}))
}

// ResetSettings handles DELETE /api/settings, restoring the defaults.
func (h *Handler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.prefs.Reset(r.Context())
	if err != nil {
		h.fail(w, "reset settings", err)
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{"settings": s}))
}
