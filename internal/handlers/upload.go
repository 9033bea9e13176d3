package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/solarlabel/internal/models"
)

// HandleUpload adds an image that was not fetched by this process, either as a
// multipart file or by URL
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.uploadDir == "" {
		h.writeError(w, "Uploads are disabled", http.StatusServiceUnavailable)
		return
	}

	// Check if this is a JSON request with image URL
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r)
		return
	}

	h.handleFileUpload(w, r)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageURL   string `json:"image_url"`
		ObservedAt string `json:"observed_at"`
		Instrument string `json:"instrument"`
		Wavelength string `json:"wavelength"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}

	img, err := imageMetadata(request.ObservedAt, request.Instrument, request.Wavelength)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := h.downloadImageFromURL(r.Context(), request.ImageURL)
	if err != nil {
		h.writeUploadError(w, err, http.StatusBadGateway)
		return
	}

	h.finishUpload(w, data, img)
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+1<<20)

	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	img, err := imageMetadata(r.FormValue("observed_at"), r.FormValue("instrument"), r.FormValue("wavelength"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(data) > maxImageBytes {
		h.writeError(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}

	h.finishUpload(w, data, img)
}

func (h *Handler) finishUpload(w http.ResponseWriter, data []byte, img models.FetchedImage) {
	saved, err := h.saveImage(data, img)
	if err != nil {
		h.writeUploadError(w, err, http.StatusInternalServerError)
		return
	}
	h.writeJSONStatus(w, saved, http.StatusCreated)
}

func (h *Handler) writeUploadError(w http.ResponseWriter, err error, code int) {
	if errors.Is(err, errInvalidUpload) {
		code = http.StatusBadRequest
	}
	h.writeError(w, err.Error(), code)
}
