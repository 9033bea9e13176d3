package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/solarlabel/internal/label"
	"github.com/lehigh-university-libraries/solarlabel/internal/models"
	"github.com/lehigh-university-libraries/solarlabel/internal/render"
	"github.com/lehigh-university-libraries/solarlabel/internal/storage"
)

type Handler struct {
	sessionStore *storage.SessionStore
	images       *storage.ImageRegistry
	recorder     *label.Recorder
	renderer     render.Renderer

	// uploaded images are saved here
	uploadDir  string
	httpClient *http.Client

	// labeling events are applied one at a time, like GUI events
	eventsMu sync.Mutex
}

func New(recorder *label.Recorder, images *storage.ImageRegistry, uploadDir string) *Handler {
	if images == nil {
		images = storage.NewImageRegistry()
	}
	return &Handler{
		sessionStore: storage.New(),
		images:       images,
		recorder:     recorder,
		renderer:     render.StaticRenderer{},
		uploadDir:    uploadDir,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Routes registers the API on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/images", h.HandleImages)
	mux.HandleFunc("/api/images/upload", h.HandleUpload)
	mux.HandleFunc("/static/", h.HandleStatic)
	mux.HandleFunc("/", h.HandleStatic)
	mux.HandleFunc("/api/sessions", h.HandleSessions)
	mux.HandleFunc("/api/sessions/", h.HandleSessionDetail)
	mux.HandleFunc("/api/labels", h.HandleLabels)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, data, http.StatusOK)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*storage.SessionEntry, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func sessionView(entry *storage.SessionEntry) models.LabelingSession {
	view := models.LabelingSession{
		ID:        entry.ID,
		Image:     entry.Image,
		Title:     entry.Title,
		State:     entry.Session.State().String(),
		Recorded:  entry.Session.Recorded(),
		CreatedAt: entry.CreatedAt,
	}
	if rect, ok := entry.Session.Pending(); ok {
		view.Pending = regionOf(rect)
	}
	return view
}

func regionOf(r label.Rect) *models.Region {
	return &models.Region{X0: r.X0, Y0: r.Y0, X1: r.X1, Y1: r.Y1}
}
