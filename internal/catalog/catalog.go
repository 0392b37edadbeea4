// Package catalog serves the read-only food reference table loaded from CSV.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Column headers in the source CSV.
const (
	ColName               = "name"
	ColCalories           = "Calories"
	ColProtein            = "Protein (g)"
	ColFiber              = "Fiber (g)"
	ColServingWeight      = "Serving Weight 1 (g)"
	ColServingDescription = "Serving Description 1 (g)"
)

// Defaults for Search.
const (
	DefaultSearchLimit = 25
	DefaultMinQuery    = 2
)

// Item is one catalog row. Nutrient values are per 100 g.
type Item struct {
	Name               string            `json:"name"`
	Calories           float64           `json:"calories"`
	Protein            float64           `json:"protein"`
	Fiber              float64           `json:"fiber"`
	ServingWeight      string            `json:"servingWeight,omitempty"`
	ServingDescription string            `json:"servingDescription,omitempty"`
	Fields             map[string]string `json:"fields"`

	hasProtein bool
}

// HasNutrients reports whether the row carries nutrient data. Rows without a
// protein value are treated like free-text foods.
func (i *Item) HasNutrients() bool {
	return i != nil && i.hasProtein
}

// Catalog loads the CSV on first use and keeps it for the process lifetime.
type Catalog struct {
	path        string
	searchLimit int
	minQuery    int
	logger      *slog.Logger
	read        func(path string) ([]Item, error)

	group singleflight.Group
	mu    sync.RWMutex
	items []Item
	ready bool
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithSearchLimit caps the number of names Search returns.
func WithSearchLimit(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.searchLimit = n
		}
	}
}

// WithMinQuery sets the shortest search term that is matched.
func WithMinQuery(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.minQuery = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a catalog backed by the CSV file at path. Nothing is read
// until the first call that needs the data.
func New(path string, opts ...Option) *Catalog {
	c := &Catalog{
		path:        path,
		searchLimit: DefaultSearchLimit,
		minQuery:    DefaultMinQuery,
		logger:      slog.Default(),
		read:        readFile,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns every catalog item. The first callers share a single read of
// the file; later callers get the cached result. A failed load is not cached.
func (c *Catalog) Load(ctx context.Context) ([]Item, error) {
	c.mu.RLock()
	if c.ready {
		items := c.items
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()

	ch := c.group.DoChan("load", func() (any, error) {
		c.mu.RLock()
		if c.ready {
			items := c.items
			c.mu.RUnlock()
			return items, nil
		}
		c.mu.RUnlock()

		items, err := c.read(c.path)
		if err != nil {
			c.logger.Error("catalog: load failed", slog.String("path", c.path), slog.String("error", err.Error()))
			return nil, err
		}
		c.mu.Lock()
		c.items, c.ready = items, true
		c.mu.Unlock()
		c.logger.Info("catalog: loaded", slog.String("path", c.path), slog.Int("items", len(items)))
		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Item), nil
	}
}

// Len returns the number of loaded items, or 0 before the first load.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Search returns the names containing term, case-insensitively, in catalog
// order. Terms shorter than the minimum query length match nothing.
func (c *Catalog) Search(ctx context.Context, term string) ([]string, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < c.minQuery {
		return []string{}, nil
	}
	items, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(term)
	out := []string{}
	for i := range items {
		if items[i].Name == "" {
			continue
		}
		if strings.Contains(strings.ToLower(items[i].Name), needle) {
			out = append(out, items[i].Name)
			if len(out) == c.searchLimit {
				break
			}
		}
	}
	return out, nil
}

// Details returns the first item named exactly name, or nil.
func (c *Catalog) Details(ctx context.Context, name string) (*Item, error) {
	if name == "" {
		return nil, nil
	}
	items, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Name == name {
			it := items[i]
			return &it, nil
		}
	}
	return nil, nil
}

func readFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads catalog rows from CSV with a header row.
func Parse(r io.Reader) ([]Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog: empty file")
		}
		return nil, fmt.Errorf("catalog: read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	hasName := false
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if header[i] == ColName {
			hasName = true
		}
	}
	if !hasName {
		return nil, fmt.Errorf("catalog: header has no %q column", ColName)
	}

	var items []Item
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read row: %w", err)
		}
		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				fields[col] = rec[i]
			}
		}
		protein, hasProtein := fields[ColProtein]
		items = append(items, Item{
			Name:               fields[ColName],
			Calories:           number(fields[ColCalories]),
			Protein:            number(protein),
			Fiber:              number(fields[ColFiber]),
			ServingWeight:      fields[ColServingWeight],
			ServingDescription: fields[ColServingDescription],
			Fields:             fields,
			hasProtein:         hasProtein && strings.TrimSpace(protein) != "",
		})
	}
	return items, nil
}

// number parses a nutrient cell; blanks and junk read as 0.
func number(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
