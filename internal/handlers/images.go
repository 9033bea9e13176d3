package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/solarlabel/internal/label"
	"github.com/lehigh-university-libraries/solarlabel/internal/models"
)

func (h *Handler) HandleImages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, h.images.List())
	case http.MethodPost:
		var img models.FetchedImage
		if err := json.NewDecoder(r.Body).Decode(&img); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(img.Path) == "" {
			h.writeError(w, "path is required", http.StatusBadRequest)
			return
		}
		if img.ObservedAt.IsZero() {
			h.writeError(w, "observed_at is required", http.StatusBadRequest)
			return
		}
		if _, err := os.Stat(img.Path); err != nil {
			h.writeError(w, "Image file not readable: "+err.Error(), http.StatusBadRequest)
			return
		}
		h.images.Add(img)
		h.writeJSONStatus(w, img, http.StatusCreated)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	labels, err := label.ReadLog(h.recorder.Path())
	if err != nil {
		h.writeError(w, "Failed to read labels: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if labels == nil {
		labels = []label.Label{}
	}
	h.writeJSON(w, labels)
}
