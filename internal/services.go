package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/berkana/internal/catalog"
	"github.com/starford/berkana/internal/diet"
	"github.com/starford/berkana/internal/noteservice"
	"github.com/starford/berkana/internal/prefs"
	"github.com/starford/berkana/internal/storage"
)

// services are the stores shared by the HTTP and MCP front ends.
type services struct {
	notes   *noteservice.Service
	diet    *diet.Store
	catalog *catalog.Catalog
	prefs   *prefs.Service
	db      *prefs.DB
}

func (s *services) Close() error {
	return s.db.Close()
}

func openServices(ctx context.Context, cfg *Config, logger *slog.Logger) (*services, error) {
	for _, dir := range []string{cfg.Data.NotesPath(), cfg.Data.DietPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	notesFS, err := storage.NewFS(cfg.Data.NotesPath())
	if err != nil {
		return nil, fmt.Errorf("init notes storage: %w", err)
	}
	dietFS, err := storage.NewFS(cfg.Data.DietPath())
	if err != nil {
		return nil, fmt.Errorf("init diet storage: %w", err)
	}

	db, err := prefs.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init prefs: %w", err)
	}
	settings, err := prefs.NewService(ctx, db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load prefs: %w", err)
	}

	return &services{
		notes: noteservice.NewService(notesFS, logger),
		diet:  diet.NewStore(dietFS, logger),
		catalog: catalog.New(cfg.Catalog.Path,
			catalog.WithSearchLimit(cfg.Catalog.SearchLimit),
			catalog.WithMinQuery(cfg.Catalog.MinQuery),
			catalog.WithLogger(logger),
		),
		prefs: settings,
		db:    db,
	}, nil
}
