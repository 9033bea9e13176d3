package handlers

import (
	_ "embed"
	"net/http"
	"strings"
)

//go:embed static/index.html
var indexHTML []byte

// HandleStatic serves the labeling page and the files of registered images
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/static/")
	switch {
	case r.URL.Path == "/" || name == "index.html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(indexHTML)
	case name == "image":
		// only registered images are served, never arbitrary paths
		path := r.URL.Query().Get("path")
		if _, ok := h.images.Get(path); !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jp2")
		http.ServeFile(w, r, path)
	default:
		http.NotFound(w, r)
	}
}
