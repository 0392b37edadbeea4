// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes notes and diet data for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/catalog"
	"github.com/starford/berkana/internal/diet"
	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/noteservice"
	"github.com/starford/berkana/internal/nutrition"
	"github.com/starford/berkana/internal/prefs"
)

const layoutURI = "berkana://data-layout"

// Server wraps the MCP server with Berkana tools.
type Server struct {
	mcp     *server.MCPServer
	notes   *noteservice.Service
	diet    *diet.Store
	catalog *catalog.Catalog
	prefs   *prefs.Service
	logger  *slog.Logger
}

// New creates a new MCP server with all tools registered.
func New(notes *noteservice.Service, days *diet.Store, cat *catalog.Catalog, settings *prefs.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{notes: notes, diet: days, catalog: cat, prefs: settings, logger: logger}

	s.mcp = server.NewMCPServer(
		"Berkana",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List the note folders."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the notes in a folder with their id, title, and last-opened time."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Folder name")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note document. See the "+layoutURI+" resource for its shape."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Folder name")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title (file name without .json)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("search_foods",
		mcp.WithDescription("Search the food catalog by name (case-insensitive substring, at least two characters)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Part of a food name")),
	), s.searchFoods)

	s.mcp.AddTool(mcp.NewTool("food_details",
		mcp.WithDescription("Return the catalog row for an exact food name. Nutrients are per 100 g."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Exact food name as returned by search_foods")),
	), s.foodDetails)

	s.mcp.AddTool(mcp.NewTool("load_day",
		mcp.WithDescription("Return the food entries recorded on a day."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Day in YYYY-MM-DD format")),
	), s.loadDay)

	s.mcp.AddTool(mcp.NewTool("day_summary",
		mcp.WithDescription("Summarize a day's calories, protein, and fiber against the user's goals."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Day in YYYY-MM-DD format")),
	), s.daySummary)

	s.mcp.AddTool(mcp.NewTool("add_food_entry",
		mcp.WithDescription("Record grams of a food on a day. Names found in the catalog get their nutrients scaled; other names are stored with zero nutrients."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Day in YYYY-MM-DD format")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Food name")),
		mcp.WithNumber("grams", mcp.Required(), mcp.Description("Amount eaten in grams")),
	), s.addFoodEntry)

	s.mcp.AddResource(
		mcp.NewResource(layoutURI, "Data Layout",
			mcp.WithResourceDescription("How notes, diet days, and the food catalog are stored."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listFolders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders := s.notes.ListFolders(ctx)
	if len(folders) == 0 {
		return mcp.NewToolResultText("no folders"), nil
	}
	return mcp.NewToolResultText(strings.Join(folders, "\n")), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.notes.ListNotes(ctx, folder))
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.notes.ReadNote(ctx, folder, title)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s/%s", folder, title)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(note.Content)), nil
}

func (s *Server) searchFoods(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names, err := s.catalog.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) foodDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.catalog.Details(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if item == nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown food: %s", name)), nil
	}
	return jsonResult(item)
}

func (s *Server) loadDay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.diet.LoadDay(ctx, date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) daySummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.diet.LoadDay(ctx, date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(summarize(date, items, s.prefs.Goals())), nil
}

func summarize(date string, items []models.DayItem, goals models.Goals) string {
	p := nutrition.Compare(nutrition.ComputeTotals(items), goals)
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d entries\n", date, len(items))
	fmt.Fprintf(&b, "Calories: %s\n", p.Kcal.Display)
	fmt.Fprintf(&b, "Protein: %s\n", p.Protein.Display)
	fmt.Fprintf(&b, "Fiber: %s\n", p.Fiber.Display)
	return b.String()
}

func (s *Server) addFoodEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	grams, err := req.RequireFloat("grams")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Unknown names, or a catalog that fails to load, become free-text entries.
	item, err := s.catalog.Details(ctx, strings.TrimSpace(name))
	if err != nil {
		s.logger.Warn("food lookup failed", slog.String("name", name), slog.String("error", err.Error()))
		item = nil
	}
	entry, err := s.diet.NewEntry(name, item, grams)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.diet.AddEntry(ctx, date, entry); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entry)
}

func (s *Server) readLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      layoutURI,
			MIMEType: "text/markdown",
			Text:     DataLayout,
		},
	}, nil
}
