package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/solarlabel/internal/label"
	"github.com/lehigh-university-libraries/solarlabel/internal/labeling"
	"github.com/lehigh-university-libraries/solarlabel/internal/models"
	"github.com/lehigh-university-libraries/solarlabel/internal/render"
	"github.com/lehigh-university-libraries/solarlabel/internal/storage"
)

type createSessionRequest struct {
	ImagePath string  `json:"image_path"`
	Zoom      float64 `json:"zoom"`
	OffsetX   float64 `json:"offset_x"`
	OffsetY   float64 `json:"offset_y"`
}

type eventRequest struct {
	Type    string  `json:"type"` // "press", "drag", "release", "submit", "cancel"
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Comment string  `json:"comment"`
}

type eventResponse struct {
	Session   models.LabelingSession `json:"session"`
	Label     *label.Label           `json:"label,omitempty"`
	Retracted *models.Region         `json:"retracted,omitempty"`
}

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries := h.sessionStore.List()
		sessionList := make([]models.LabelingSession, 0, len(entries))
		h.eventsMu.Lock()
		for _, entry := range entries {
			sessionList = append(sessionList, sessionView(entry))
		}
		h.eventsMu.Unlock()
		h.writeJSON(w, sessionList)
	case http.MethodPost:
		h.createSession(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var request createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImagePath == "" {
		h.writeError(w, "image_path is required", http.StatusBadRequest)
		return
	}

	img, ok := h.images.Get(request.ImagePath)
	if !ok {
		h.writeError(w, "Image not registered: "+request.ImagePath, http.StatusNotFound)
		return
	}

	viewport, err := render.NewViewport(request.Zoom, request.OffsetX, request.OffsetY)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	surface, err := h.renderer.Render(r.Context(), img, viewport)
	if err != nil {
		if errors.Is(err, render.ErrImageUnavailable) {
			h.writeError(w, err.Error(), http.StatusGone)
			return
		}
		h.writeError(w, "Failed to render image: "+err.Error(), http.StatusInternalServerError)
		return
	}

	meta := label.Metadata{Timestamp: img.Timestamp(), Wavelength: img.Wavelength}

	entry := &storage.SessionEntry{
		ID:        uuid.NewString(),
		Image:     img,
		Title:     surface.Title(),
		Session:   labeling.NewSession(meta, surface.Mapping(), h.recorder, labeling.Hooks{}),
		CreatedAt: time.Now(),
	}
	h.sessionStore.Set(entry.ID, entry)

	slog.Info("Labeling session opened", "session_id", entry.ID, "image", img.Path)
	h.writeJSONStatus(w, sessionView(entry), http.StatusCreated)
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	sessionID, action, _ := strings.Cut(rest, "/")

	entry, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	if action == "events" {
		if r.Method != http.MethodPost {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleEvent(w, r, entry)
		return
	}
	if action != "" {
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.eventsMu.Lock()
		view := sessionView(entry)
		h.eventsMu.Unlock()
		h.writeJSON(w, view)
	case http.MethodDelete:
		h.sessionStore.Delete(sessionID)
		slog.Info("Labeling session closed", "session_id", sessionID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request, entry *storage.SessionEntry) {
	var request eventRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.eventsMu.Lock()
	defer h.eventsMu.Unlock()

	session := entry.Session
	pending, hadPending := session.Pending()
	var response eventResponse
	var err error

	switch request.Type {
	case "press":
		err = session.Press(request.X, request.Y)
	case "drag":
		err = session.Drag(request.X, request.Y)
	case "release":
		_, err = session.Release(request.X, request.Y)
	case "submit":
		response.Label, err = session.Submit(request.Comment)
		if err == nil && response.Label == nil && hadPending {
			response.Retracted = regionOf(pending)
		}
	case "cancel":
		err = session.Cancel()
		if err == nil && hadPending {
			response.Retracted = regionOf(pending)
		}
	default:
		h.writeError(w, "Invalid event type: "+request.Type, http.StatusBadRequest)
		return
	}

	if err != nil {
		if errors.Is(err, labeling.ErrInvalidTransition) {
			h.writeError(w, err.Error(), http.StatusConflict)
			return
		}
		if errors.Is(err, label.ErrLineTooLong) {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.writeError(w, "Failed to apply event: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response.Session = sessionView(entry)
	h.writeJSON(w, response)
}
