package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
	"github.com/inkfold/notecore/internal/observability/metrics"
	"github.com/inkfold/notecore/internal/tags"
)

const maxImageBytes = 20 << 20

type Router struct {
	recognizer ports.NoteRecognizer
	similar    ports.SimilarNotesFinder
	repo       ports.NoteRepository
	tags       *tags.Repository
	metrics    *metrics.APIMetrics
	service    string
}

func NewRouter(
	recognizer ports.NoteRecognizer,
	similar ports.SimilarNotesFinder,
	repo ports.NoteRepository,
	tagRepo *tags.Repository,
	apiMetrics *metrics.APIMetrics,
	service string,
) *Router {
	return &Router{
		recognizer: recognizer,
		similar:    similar,
		repo:       repo,
		tags:       tagRepo,
		metrics:    apiMetrics,
		service:    service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("POST /v1/notes", rt.createNote)
	mux.HandleFunc("GET /v1/notes/{id}", rt.getNote)
	mux.HandleFunc("POST /v1/notes/{id}/recognize", rt.recognizeNote)
	mux.HandleFunc("GET /v1/notes/{id}/similar", rt.similarNotes)

	mux.HandleFunc("GET /v1/tags", rt.listTags)
	mux.HandleFunc("POST /v1/tags", rt.createTag)
	mux.HandleFunc("DELETE /v1/tags/{title}", rt.deleteTag)

	mux.HandleFunc("GET /v1/notes/{id}/tags", rt.noteTags)
	mux.HandleFunc("PUT /v1/notes/{id}/tags", rt.setNoteTags)
	mux.HandleFunc("POST /v1/notes/{id}/tags", rt.addNoteTag)
	mux.HandleFunc("DELETE /v1/notes/{id}/tags/{title}", rt.removeNoteTag)

	return requestIDMiddleware(accessLogMiddleware(metricsMiddleware(rt.metrics, rt.service, mux)))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		FolderID string `json:"folder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	note := &domain.Note{
		ID:        req.ID,
		Title:     req.Title,
		FolderID:  req.FolderID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := rt.repo.Create(r.Context(), note); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (rt *Router) getNote(w http.ResponseWriter, r *http.Request) {
	note, err := rt.repo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (rt *Router) recognizeNote(w http.ResponseWriter, r *http.Request) {
	noteID := r.PathValue("id")

	file, _, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'image' is required"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable image payload"})
		return
	}

	// An absent mode falls through to the configured default inside the
	// use case.
	opts := domain.RecognizeOptions{
		Mode:              domain.RecognitionMode(r.FormValue("mode")),
		SpellcheckEnabled: r.FormValue("spellcheck") == "true",
	}

	result, err := rt.recognizer.Recognize(r.Context(), noteID, image, opts)
	if rt.metrics != nil {
		backend := string(opts.Mode)
		if result != nil {
			backend = string(result.Backend)
		}
		rt.metrics.RecordRecognition(rt.service, backend, err)
		if err == nil && opts.Mode == domain.ModeCloudHighFidelity && result.Backend == domain.ModeOnDevice {
			rt.metrics.RecordQuotaFallback()
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) similarNotes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	results, err := rt.similar.SimilarNotes(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []domain.SimilarityResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (rt *Router) listTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": rt.tags.All()})
}

func (rt *Router) createTag(w http.ResponseWriter, r *http.Request) {
	tag, ok := decodeTag(w, r)
	if !ok {
		return
	}
	created := rt.tags.Add(tag)
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{"created": created, "tag": tag})
}

func (rt *Router) deleteTag(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")
	if !rt.tags.Delete(domain.Tag{Title: title}) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown tag: " + title})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) noteTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": rt.tags.NoteTags(r.PathValue("id"))})
}

func (rt *Router) setNoteTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tags []tagPayload `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	list := make([]domain.Tag, 0, len(req.Tags))
	for _, p := range req.Tags {
		list = append(list, p.toDomain())
	}
	noteID := r.PathValue("id")
	rt.tags.SetNoteTags(list, noteID)
	writeJSON(w, http.StatusOK, map[string]any{"tags": rt.tags.NoteTags(noteID)})
}

func (rt *Router) addNoteTag(w http.ResponseWriter, r *http.Request) {
	tag, ok := decodeTag(w, r)
	if !ok {
		return
	}
	noteID := r.PathValue("id")
	added := rt.tags.AddToNote(tag, noteID)
	writeJSON(w, http.StatusOK, map[string]any{"added": added, "tags": rt.tags.NoteTags(noteID)})
}

func (rt *Router) removeNoteTag(w http.ResponseWriter, r *http.Request) {
	noteID := r.PathValue("id")
	title := r.PathValue("title")
	if !rt.tags.RemoveFromNote(domain.Tag{Title: title}, noteID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "note does not carry tag: " + title})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tagPayload struct {
	Title string  `json:"title"`
	Red   float64 `json:"colorRed"`
	Green float64 `json:"colorGreen"`
	Blue  float64 `json:"colorBlue"`
}

func (p tagPayload) toDomain() domain.Tag {
	return domain.NewTag(strings.TrimSpace(p.Title), domain.TagColor{Red: p.Red, Green: p.Green, Blue: p.Blue})
}

func decodeTag(w http.ResponseWriter, r *http.Request) (domain.Tag, bool) {
	var payload tagPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return domain.Tag{}, false
	}
	return payload.toDomain(), true
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
