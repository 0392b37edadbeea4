package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/berkana/internal/autosave"
	"github.com/starford/berkana/internal/catalog"
	"github.com/starford/berkana/internal/diet"
	"github.com/starford/berkana/internal/noteservice"
	"github.com/starford/berkana/internal/prefs"
	"github.com/starford/berkana/internal/testutil"
)

type testEnv struct {
	router http.Handler
	data   testutil.DataDir
	saver  *autosave.Saver
}

// newTestEnv wires every service over a temp data dir. A non-empty token
// turns on auth. events, if non-nil, is mounted at /events.
func newTestEnv(t *testing.T, token string, events http.Handler) *testEnv {
	t.Helper()
	return newTestEnvWithCatalog(t, token, events, testutil.WriteCatalog(t, testutil.SampleCatalog))
}

func newTestEnvWithCatalog(t *testing.T, token string, events http.Handler, catalogPath string) *testEnv {
	t.Helper()
	logger := testutil.Logger()
	data := testutil.TestDataDir(t)

	notes := noteservice.NewService(data.Notes, logger)
	days := diet.NewStore(data.Diet, logger)
	settings, err := prefs.NewService(context.Background(), testutil.TestPrefs(t), logger)
	if err != nil {
		t.Fatalf("prefs: %v", err)
	}
	saver := autosave.New(notes, days, autosave.WithLogger(logger),
		autosave.WithDelays(autosave.Delays{Note: time.Hour, Rename: time.Hour, Day: time.Hour}))
	t.Cleanup(saver.Close)

	h := NewHandler(Deps{
		Notes:   notes,
		Diet:    days,
		Catalog: catalog.New(catalogPath, catalog.WithLogger(logger)),
		Prefs:   settings,
		Saver:   saver,
		Logger:  logger,
	})
	h.now = func() time.Time { return time.Date(2025, 1, 3, 15, 0, 0, 0, time.UTC) }

	return &testEnv{
		router: newRouter(h, events, token != "", token),
		data:   data,
		saver:  saver,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestFolders_CreateAndList(t *testing.T) {
	env := newTestEnv(t, "", nil)

	for _, want := range []string{"Work", "Work (1)"} {
		w := env.do(t, http.MethodPost, "/folders", CreateFolderRequest{Name: "Work"})
		if w.Code != http.StatusCreated {
			t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
		}
		got := decode[map[string]any](t, w)
		if got["success"] != true || got["folderName"] != want {
			t.Errorf("create = %v, want folderName %q", got, want)
		}
	}

	w := env.do(t, http.MethodGet, "/folders", nil)
	list := decode[FolderListResponse](t, w)
	if len(list.Folders) != 2 || list.Folders[0] != "Work" {
		t.Errorf("folders = %v", list.Folders)
	}

	w = env.do(t, http.MethodPost, "/folders", CreateFolderRequest{Name: "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank name = %d, want 400", w.Code)
	}
	if got := decode[map[string]any](t, w); got["success"] != false {
		t.Errorf("failure body = %v", got)
	}
}

func TestNotes_CreateReadSave(t *testing.T) {
	env := newTestEnv(t, "", nil)
	env.do(t, http.MethodPost, "/folders", CreateFolderRequest{Name: "Work"})

	w := env.do(t, http.MethodPost, "/folders/Work/notes", CreateNoteRequest{Title: "Plan"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create note = %d, %s", w.Code, w.Body.String())
	}
	created := decode[map[string]any](t, w)
	if created["filePath"] != "Work/Plan.json" {
		t.Errorf("created = %v", created)
	}

	w = env.do(t, http.MethodGet, "/folders/Work/notes", nil)
	notes := decode[NoteListResponse](t, w)
	if len(notes.Notes) != 1 || notes.Notes[0].Title != "Plan" {
		t.Fatalf("notes = %+v", notes.Notes)
	}

	w = env.do(t, http.MethodGet, "/folders/Work/notes/Plan", nil)
	var opened struct {
		FilePath string          `json:"filePath"`
		Content  json.RawMessage `json:"content"`
		Checksum string          `json:"checksum"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &opened); err != nil {
		t.Fatal(err)
	}
	if opened.Checksum == "" || w.Header().Get("ETag") != opened.Checksum {
		t.Errorf("checksum = %q, etag = %q", opened.Checksum, w.Header().Get("ETag"))
	}

	doc := `{"id":"x","lastOpened":1,"type":"doc","content":[{"type":"paragraph","text":"hi"}]}`
	w = env.do(t, http.MethodPut, "/notes/content",
		map[string]any{"filePath": "Work/Plan.json", "content": json.RawMessage(doc)},
		"If-Match", "stale")
	if w.Code != http.StatusConflict {
		t.Errorf("stale If-Match = %d, want 409", w.Code)
	}

	w = env.do(t, http.MethodPut, "/notes/content",
		map[string]any{"filePath": "Work/Plan.json", "content": json.RawMessage(doc)},
		"If-Match", opened.Checksum)
	if w.Code != http.StatusOK {
		t.Fatalf("save = %d, %s", w.Code, w.Body.String())
	}
	onDisk, err := os.ReadFile(filepath.Join(env.data.Root, "notes", "Work", "Plan.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(onDisk) != doc {
		t.Errorf("on disk = %s", onDisk)
	}
}

func TestNotes_ReadMissingIsNull(t *testing.T) {
	env := newTestEnv(t, "", nil)
	w := env.do(t, http.MethodGet, "/folders/Nope/notes/Nothing", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "null" {
		t.Errorf("missing note = %d %q, want 200 null", w.Code, w.Body.String())
	}
}

func TestNotes_CreateInMissingFolder(t *testing.T) {
	env := newTestEnv(t, "", nil)
	w := env.do(t, http.MethodPost, "/folders/Ghost/notes", CreateNoteRequest{Title: "Plan"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestNotes_RenameAndDelete(t *testing.T) {
	env := newTestEnv(t, "", nil)
	env.do(t, http.MethodPost, "/folders", CreateFolderRequest{Name: "Work"})
	env.do(t, http.MethodPost, "/folders/Work/notes", CreateNoteRequest{Title: "Plan"})

	w := env.do(t, http.MethodPost, "/notes/rename", RenameNoteRequest{FilePath: "Work/Plan.json", Title: "Road:map"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename = %d, %s", w.Code, w.Body.String())
	}
	renamed := decode[map[string]any](t, w)
	if renamed["filePath"] != "Work/Roadmap.json" || renamed["newFileName"] != "Roadmap" {
		t.Errorf("renamed = %v", renamed)
	}

	w = env.do(t, http.MethodDelete, "/folders/Work/notes/Roadmap", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	w = env.do(t, http.MethodDelete, "/folders/Work/notes/Roadmap", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestNotes_Autosave(t *testing.T) {
	env := newTestEnv(t, "", nil)
	env.do(t, http.MethodPost, "/folders", CreateFolderRequest{Name: "Work"})
	env.do(t, http.MethodPost, "/folders/Work/notes", CreateNoteRequest{Title: "Plan"})

	w := env.do(t, http.MethodPost, "/notes/autosave", `{"filePath":"Work/Plan.json","content":{"v":1}}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("autosave = %d, %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodPost, "/notes/autosave", `{"filePath":"Work/Plan.json","content":{"v":2}}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("autosave = %d", w.Code)
	}
	before, err := os.ReadFile(filepath.Join(env.data.Root, "notes", "Work", "Plan.json"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(before), `"v"`) {
		t.Fatalf("written before the delay: %s", before)
	}
	env.saver.Flush()

	onDisk, err := os.ReadFile(filepath.Join(env.data.Root, "notes", "Work", "Plan.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(onDisk) != `{"v":2}` {
		t.Errorf("on disk = %s", onDisk)
	}

	w = env.do(t, http.MethodPost, "/notes/autosave", `{"filePath":"","content":{}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank path = %d, want 400", w.Code)
	}
}

func TestFoods_SearchAndDetails(t *testing.T) {
	env := newTestEnv(t, "", nil)

	w := env.do(t, http.MethodGet, "/foods/search?q=chi", nil)
	res := decode[FoodSearchResponse](t, w)
	if len(res.Results) != 2 || res.Results[0] != "Chicken Breast" || res.Results[1] != "Chickpeas" {
		t.Errorf("results = %v", res.Results)
	}

	w = env.do(t, http.MethodGet, "/foods/search?q=c", nil)
	if res := decode[FoodSearchResponse](t, w); len(res.Results) != 0 {
		t.Errorf("short query results = %v", res.Results)
	}

	w = env.do(t, http.MethodGet, "/foods/details?name=Lentils", nil)
	item := decode[map[string]any](t, w)
	if item["name"] != "Lentils" || item["calories"] != float64(150) {
		t.Errorf("details = %v", item)
	}

	w = env.do(t, http.MethodGet, "/foods/details?name=Unobtainium", nil)
	if strings.TrimSpace(w.Body.String()) != "null" {
		t.Errorf("unknown food = %q, want null", w.Body.String())
	}
}

func TestFoods_MissingCatalogDegrades(t *testing.T) {
	env := newTestEnvWithCatalog(t, "", nil, filepath.Join(t.TempDir(), "absent.csv"))
	w := env.do(t, http.MethodGet, "/foods/search?q=rice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if res := decode[FoodSearchResponse](t, w); len(res.Results) != 0 {
		t.Errorf("results = %v", res.Results)
	}

	w = env.do(t, http.MethodPost, "/diet/days/2025-01-02/entries", AddEntryRequest{Name: "Rice", Grams: 100})
	if w.Code != http.StatusCreated {
		t.Fatalf("add with no catalog = %d, %s", w.Code, w.Body.String())
	}
}

func TestDiet_EntryLifecycle(t *testing.T) {
	env := newTestEnv(t, "", nil)
	const base = "/diet/days/2025-01-02"

	w := env.do(t, http.MethodPost, base+"/entries", AddEntryRequest{Name: "Lentils", Grams: 200})
	if w.Code != http.StatusCreated {
		t.Fatalf("add = %d, %s", w.Code, w.Body.String())
	}
	var added struct {
		Entry struct {
			ID      string  `json:"id"`
			Protein float64 `json:"protein"`
			Kcal    float64 `json:"kcal"`
			Fiber   float64 `json:"fiber"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &added); err != nil {
		t.Fatal(err)
	}
	if added.Entry.Protein != 5 || added.Entry.Kcal != 300 || added.Entry.Fiber != 2 {
		t.Errorf("entry = %+v", added.Entry)
	}

	w = env.do(t, http.MethodGet, base, nil)
	day := decode[DayResponse](t, w)
	if len(day.Items) != 1 || day.Totals.Kcal != 300 {
		t.Errorf("day = %+v", day)
	}
	if day.Progress.Kcal.Display != "300 / 2000 kcal" || day.Progress.Protein.Display != "5.0 / 120 g" {
		t.Errorf("progress = %+v", day.Progress)
	}

	w = env.do(t, http.MethodPut, base+"/entries/"+added.Entry.ID, `{"grams":100,"kcal":150}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodGet, base, nil)
	day = decode[DayResponse](t, w)
	if day.Totals.Kcal != 150 || day.Items[0].Food.Protein != 5 {
		t.Errorf("after update = %+v", day.Totals)
	}

	w = env.do(t, http.MethodPut, base+"/entries/missing", `{"grams":1}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}

	w = env.do(t, http.MethodDelete, base+"/entries/"+added.Entry.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	w = env.do(t, http.MethodGet, base, nil)
	if day := decode[DayResponse](t, w); len(day.Items) != 0 {
		t.Errorf("items after delete = %v", day.Items)
	}
}

func TestDiet_FreeTextAndInvalid(t *testing.T) {
	env := newTestEnv(t, "", nil)
	w := env.do(t, http.MethodPost, "/diet/days/2025-01-02/entries", AddEntryRequest{Name: "Grandma's soup", Grams: 300})
	if w.Code != http.StatusCreated {
		t.Fatalf("free text = %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/diet/days/2025-01-02/entries", AddEntryRequest{Name: "Rice", Grams: 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero grams = %d, want 400", w.Code)
	}
	w = env.do(t, http.MethodGet, "/diet/days/yesterday", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", w.Code)
	}
}

func TestDiet_SaveDayAndCorruptFile(t *testing.T) {
	env := newTestEnv(t, "", nil)
	w := env.do(t, http.MethodPut, "/diet/days/2025-01-01", `["Banana",{"id":"a","name":"Rice","grams":100,"kcal":130,"protein":2.7,"fiber":0.4}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("save day = %d, %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodGet, "/diet/days/2025-01-01", nil)
	day := decode[DayResponse](t, w)
	if len(day.Items) != 2 || day.Items[0].Legacy != "Banana" || day.Totals.Kcal != 130 {
		t.Errorf("day = %+v", day)
	}

	if err := os.WriteFile(filepath.Join(env.data.Root, "diet", "2025-01-05.json"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	w = env.do(t, http.MethodGet, "/diet/days/2025-01-05", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("corrupt day = %d", w.Code)
	}
	if day := decode[DayResponse](t, w); len(day.Items) != 0 {
		t.Errorf("corrupt day items = %v", day.Items)
	}
}

func TestDiet_AutosaveDay(t *testing.T) {
	env := newTestEnv(t, "", nil)
	dayFile := filepath.Join(env.data.Root, "diet", "2025-01-02.json")

	w := env.do(t, http.MethodPost, "/diet/days/2025-01-02/autosave", `["Apple"]`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("autosave day = %d, %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodPost, "/diet/days/2025-01-02/autosave", `["Apple","Pear"]`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("autosave day = %d", w.Code)
	}
	if _, err := os.Stat(dayFile); !os.IsNotExist(err) {
		t.Fatalf("day written before the delay: %v", err)
	}

	// An entry edit sees the deferred list first.
	w = env.do(t, http.MethodPost, "/diet/days/2025-01-02/entries", AddEntryRequest{Name: "Lentils", Grams: 200})
	if w.Code != http.StatusCreated {
		t.Fatalf("add entry = %d, %s", w.Code, w.Body.String())
	}
	day := decode[DayResponse](t, env.do(t, http.MethodGet, "/diet/days/2025-01-02", nil))
	if len(day.Items) != 3 || day.Items[1].Legacy != "Pear" || day.Items[2].Food == nil {
		t.Errorf("after add = %+v", day.Items)
	}

	// A direct save drops a deferred one.
	env.do(t, http.MethodPost, "/diet/days/2025-01-02/autosave", `["Stale"]`)
	w = env.do(t, http.MethodPut, "/diet/days/2025-01-02", `["Fresh"]`)
	if w.Code != http.StatusOK {
		t.Fatalf("save day = %d", w.Code)
	}
	env.saver.Flush()
	day = decode[DayResponse](t, env.do(t, http.MethodGet, "/diet/days/2025-01-02", nil))
	if len(day.Items) != 1 || day.Items[0].Legacy != "Fresh" {
		t.Errorf("after direct save = %+v", day.Items)
	}

	w = env.do(t, http.MethodPost, "/diet/days/2025-02-30/autosave", `[]`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", w.Code)
	}
}

func TestDiet_RangeAndGraph(t *testing.T) {
	env := newTestEnv(t, "", nil)
	env.do(t, http.MethodPost, "/diet/days/2025-01-02/entries", AddEntryRequest{Name: "Lentils", Grams: 100})

	w := env.do(t, http.MethodGet, "/diet/range?start=2025-01-01&end=2025-01-03", nil)
	rng := decode[RangeResponse](t, w)
	if len(rng.Days) != 3 || rng.Days[1].Kcal != 150 {
		t.Errorf("range = %+v", rng.Days)
	}

	w = env.do(t, http.MethodGet, "/diet/range?start=2025-01-03&end=2025-01-01", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("reversed range = %d, want 400", w.Code)
	}

	// end defaults to the handler clock (2025-01-03).
	w = env.do(t, http.MethodGet, "/diet/graph?metric=protein", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("graph = %d, %s", w.Code, w.Body.String())
	}
	var chart struct {
		Metric string  `json:"metric"`
		Goal   float64 `json:"goal"`
		Points []struct {
			Label string  `json:"label"`
			Value float64 `json:"value"`
		} `json:"points"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &chart); err != nil {
		t.Fatal(err)
	}
	if chart.Metric != "Protein" || chart.Goal != 120 || len(chart.Points) != 7 {
		t.Fatalf("chart = %+v", chart)
	}
	if chart.Points[5].Label != "Jan 2" || chart.Points[5].Value != 2.5 {
		t.Errorf("point = %+v", chart.Points[5])
	}

	w = env.do(t, http.MethodGet, "/diet/graph?metric=sugar", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad metric = %d, want 400", w.Code)
	}
	w = env.do(t, http.MethodGet, "/diet/graph?days=0", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad days = %d, want 400", w.Code)
	}
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t, "", nil)
	w := env.do(t, http.MethodGet, "/settings", nil)
	if got := decode[prefs.Settings](t, w); got != prefs.Defaults() {
		t.Errorf("settings = %+v", got)
	}

	w = env.do(t, http.MethodPut, "/settings", `{"goals":{"kcal":1800,"protein":100,"fiber":25}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/diet/days/2025-01-02/entries", AddEntryRequest{Name: "Lentils", Grams: 100})
	var added struct {
		Day DayResponse `json:"day"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &added); err != nil {
		t.Fatal(err)
	}
	if added.Day.Progress.Kcal.Display != "150 / 1800 kcal" {
		t.Errorf("progress uses stale goals: %q", added.Day.Progress.Kcal.Display)
	}

	w = env.do(t, http.MethodPut, "/settings", `{"theme":"sepia"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad theme = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodDelete, "/settings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset = %d, %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodGet, "/settings", nil)
	if got := decode[prefs.Settings](t, w); got != prefs.Defaults() {
		t.Errorf("after reset = %+v", got)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := newTestEnv(t, "secret123", nil)
	w := env.do(t, http.MethodPost, "/folders", CreateFolderRequest{Name: "Work"}, "Authorization", "Bearer secret123")
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := newTestEnv(t, "secret123", nil)
	w := env.do(t, http.MethodGet, "/folders", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := newTestEnv(t, "secret123", nil)
	w := env.do(t, http.MethodGet, "/folders", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	env := newTestEnv(t, "", nil)
	w := env.do(t, http.MethodGet, "/folders", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// blockingSSE writes headers and blocks until the request is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	env := newTestEnv(t, "secret", blockingSSE)
	w := env.do(t, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	env := newTestEnv(t, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}

func TestSSEEvents_QueryToken(t *testing.T) {
	env := newTestEnv(t, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with query token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_QueryTokenIgnoredOnWrites(t *testing.T) {
	env := newTestEnv(t, "tok", nil)
	w := env.do(t, http.MethodPost, "/folders?access_token=tok", CreateFolderRequest{Name: "Work"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST with query token = %d, want 401", w.Code)
	}
}
