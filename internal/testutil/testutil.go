// Package testutil provides shared test helpers for data directories,
// catalogs, and the preference database.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/berkana/internal/prefs"
	"github.com/starford/berkana/internal/storage"
)

// SampleCatalog is a small food catalog in the expected CSV layout.
const SampleCatalog = `name,Calories,Protein (g),Fiber (g),Serving Weight 1 (g),Serving Description 1 (g)
Chicken Breast,165,31,0,140,1 breast
Chickpeas,164,8.9,7.6,164,1 cup
White Rice,130,2.7,0.4,158,1 cup
Lentils,150,2.5,1.0,198,1 cup
Mystery Paste,90,,,,
`

// DataDir is a temporary data directory with its notes and diet roots.
type DataDir struct {
	Root  string
	Notes *storage.FS
	Diet  *storage.FS
}

// TestDataDir creates a temporary data directory with notes/ and diet/.
func TestDataDir(t *testing.T) DataDir {
	t.Helper()
	root := t.TempDir()
	d := DataDir{Root: root}
	for _, sub := range []struct {
		name string
		dst  **storage.FS
	}{{"notes", &d.Notes}, {"diet", &d.Diet}} {
		dir := filepath.Join(root, sub.name)
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		fs, err := storage.NewFS(dir)
		if err != nil {
			t.Fatal(err)
		}
		*sub.dst = fs
	}
	return d
}

// WriteCatalog writes csv to a temporary file and returns its path.
func WriteCatalog(t *testing.T, csv string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "foods.csv")
	if err := os.WriteFile(p, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// TestPrefs opens a temporary preference database that is closed on cleanup.
func TestPrefs(t *testing.T) *prefs.DB {
	t.Helper()
	db, err := prefs.Open(filepath.Join(t.TempDir(), "berkana-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
