package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/berkana/internal/apperr"
)

// param returns a decoded URL parameter. Encoded characters from clients
// that escape spaces or brackets are tolerated.
func param(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListFolders handles GET /api/folders.
//
//	@Summary	List note folders
//	@Tags		notes
//	@Produce	json
//	@Success	200	{object}	FolderListResponse
//	@Router		/folders [get]
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FolderListResponse{Folders: h.notes.ListFolders(r.Context())})
}

// CreateFolder handles POST /api/folders.
//
//	@Summary	Create a folder, suffixing the name if it is taken
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateFolderRequest	true	"Folder name"
//	@Success	201		{object}	map[string]any
//	@Failure	400		{object}	errResponse
//	@Router		/folders [post]
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name, err := h.notes.CreateFolder(r.Context(), req.Name)
	if err != nil {
		h.fail(w, "create folder", err, slog.String("name", req.Name))
		return
	}
	writeJSON(w, http.StatusCreated, ok(map[string]any{"folderName": name}))
}

// ListNotes handles GET /api/folders/{folder}/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes := h.notes.ListNotes(r.Context(), param(r, "folder"))
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes})
}

// CreateNote handles POST /api/folders/{folder}/notes.
//
//	@Summary	Create an empty note in a folder
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		folder	path		string				true	"Folder name"
//	@Param		body	body		CreateNoteRequest	true	"Note title"
//	@Success	201		{object}	map[string]any
//	@Failure	404		{object}	errResponse
//	@Router		/folders/{folder}/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	folder := param(r, "folder")
	created, err := h.notes.CreateNote(r.Context(), folder, req.Title)
	if err != nil {
		h.fail(w, "create note", err, slog.String("folder", folder))
		return
	}
	writeJSON(w, http.StatusCreated, ok(map[string]any{
		"fileName": created.FileName,
		"filePath": created.FilePath,
	}))
}

// ReadNote handles GET /api/folders/{folder}/notes/{file}. Any failure is
// logged and answered with a null body.
func (h *Handler) ReadNote(w http.ResponseWriter, r *http.Request) {
	folder, file := param(r, "folder"), param(r, "file")
	note, err := h.notes.ReadNote(r.Context(), folder, file)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			h.logger.Error("read note failed",
				slog.String("folder", folder),
				slog.String("file", file),
				slog.String("error", err.Error()))
		}
		writeJSON(w, http.StatusOK, nil)
		return
	}
	w.Header().Set("ETag", note.Checksum)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/folders/{folder}/notes/{file}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	folder, file := param(r, "folder"), param(r, "file")
	h.saver.CancelNote(folder + "/" + file + ".json")
	if err := h.notes.DeleteNote(r.Context(), folder, file); err != nil {
		h.fail(w, "delete note", err, slog.String("folder", folder), slog.String("file", file))
		return
	}
	writeJSON(w, http.StatusOK, ok(nil))
}

// SaveNote handles PUT /api/notes/content.
//
//	@Summary	Overwrite a note with optimistic concurrency
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		If-Match	header		string			false	"SHA-256 checksum of the content being replaced"
//	@Param		body		body		SaveNoteRequest	true	"Full document"
//	@Success	200			{object}	map[string]any
//	@Failure	409			{object}	errResponse
//	@Router		/notes/content [put]
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	var req SaveNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sum, err := h.notes.SaveNote(r.Context(), req.FilePath, req.Content, r.Header.Get("If-Match"))
	if err != nil {
		h.fail(w, "save note", err, slog.String("path", req.FilePath))
		return
	}
	w.Header().Set("ETag", sum)
	writeJSON(w, http.StatusOK, ok(map[string]any{"checksum": sum}))
}

// RenameNote handles POST /api/notes/rename.
func (h *Handler) RenameNote(w http.ResponseWriter, r *http.Request) {
	var req RenameNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	renamed, err := h.notes.RenameNote(r.Context(), req.FilePath, req.Title)
	if err != nil {
		h.fail(w, "rename note", err, slog.String("path", req.FilePath))
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{
		"filePath":    renamed.FilePath,
		"newFileName": renamed.NewFileName,
	}))
}

// AutosaveNote handles POST /api/notes/autosave. The write happens after
// the note has been quiet for the autosave delay.
func (h *Handler) AutosaveNote(w http.ResponseWriter, r *http.Request) {
	var req SaveNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.saver.SaveNote(req.FilePath, req.Content); err != nil {
		h.fail(w, "autosave note", err, slog.String("path", req.FilePath))
		return
	}
	writeJSON(w, http.StatusAccepted, ok(nil))
}

// AutorenameNote handles POST /api/notes/autorename.
func (h *Handler) AutorenameNote(w http.ResponseWriter, r *http.Request) {
	var req RenameNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.saver.RenameNote(req.FilePath, req.Title); err != nil {
		h.fail(w, "autorename note", err, slog.String("path", req.FilePath))
		return
	}
	writeJSON(w, http.StatusAccepted, ok(nil))
}
