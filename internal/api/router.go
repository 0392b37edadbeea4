package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/berkana/internal/autosave"
	"github.com/starford/berkana/internal/catalog"
	"github.com/starford/berkana/internal/diet"
	"github.com/starford/berkana/internal/noteservice"
	"github.com/starford/berkana/internal/prefs"
)

// Deps are the services the API serves.
type Deps struct {
	Notes   *noteservice.Service
	Diet    *diet.Store
	Catalog *catalog.Catalog
	Prefs   *prefs.Service
	Saver   *autosave.Saver
	Events  http.Handler
	Logger  *slog.Logger
}

// Handler holds API route handlers.
type Handler struct {
	notes   *noteservice.Service
	diet    *diet.Store
	catalog *catalog.Catalog
	prefs   *prefs.Service
	saver   *autosave.Saver
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		notes:   d.Notes,
		diet:    d.Diet,
		catalog: d.Catalog,
		prefs:   d.Prefs,
		saver:   d.Saver,
		logger:  logger,
		now:     time.Now,
	}
}

// NewRouter creates a chi router with all API routes mounted.
// d.Events, if non-nil, is mounted at GET /events behind the same auth.
func NewRouter(d Deps, authEnabled bool, token string) chi.Router {
	return newRouter(NewHandler(d), d.Events, authEnabled, token)
}

func newRouter(h *Handler, events http.Handler, authEnabled bool, token string) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/folders", func(r chi.Router) {
		r.Get("/", h.ListFolders)
		r.Post("/", h.CreateFolder)
		r.Get("/{folder}/notes", h.ListNotes)
		r.Post("/{folder}/notes", h.CreateNote)
		r.Get("/{folder}/notes/{file}", h.ReadNote)
		r.Delete("/{folder}/notes/{file}", h.DeleteNote)
	})

	r.Route("/notes", func(r chi.Router) {
		r.Put("/content", h.SaveNote)
		r.Post("/rename", h.RenameNote)
		r.Post("/autosave", h.AutosaveNote)
		r.Post("/autorename", h.AutorenameNote)
	})

	r.Get("/foods/search", h.SearchFoods)
	r.Get("/foods/details", h.FoodDetails)

	r.Route("/diet", func(r chi.Router) {
		r.Get("/days/{date}", h.GetDay)
		r.Put("/days/{date}", h.SaveDay)
		r.Post("/days/{date}/autosave", h.AutosaveDay)
		r.Post("/days/{date}/entries", h.AddEntry)
		r.Put("/days/{date}/entries/{id}", h.UpdateEntry)
		r.Delete("/days/{date}/entries/{id}", h.DeleteEntry)
		r.Get("/range", h.Range)
		r.Get("/graph", h.Graph)
	})

	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	r.Delete("/settings", h.ResetSettings)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
