package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"

	"github.com/dcarter/nova-canvas-studio/internal/filehandler"
)

// POST /api/pick
// Opens a native OS file picker and returns the selected image, base64
// encoded, ready to attach as a source/reference/conditioning input.
// Body: {"multiple": bool}
func handlePick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Multiple bool `json:"multiple"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	filters := zenity.FileFilters{
		{
			Name:     "Images",
			Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp"},
		},
	}

	var paths []string
	if req.Multiple {
		selected, err := zenity.SelectFileMultiple(zenity.Title("Select images"), filters)
		if err != nil {
			if errors.Is(err, zenity.ErrCanceled) {
				respondJSON(w, http.StatusOK, map[string]interface{}{"files": []interface{}{}})
				return
			}
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		paths = selected
	} else {
		selected, err := zenity.SelectFile(zenity.Title("Select an image"), filters)
		if err != nil {
			if errors.Is(err, zenity.ErrCanceled) {
				respondJSON(w, http.StatusOK, map[string]interface{}{"files": []interface{}{}})
				return
			}
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		paths = []string{selected}
	}

	type pickedFile struct {
		Path     string `json:"path"`
		Name     string `json:"name"`
		MIMEType string `json:"mimeType"`
		Data     string `json:"data"`
		Metadata string `json:"metadata,omitempty"`
	}

	files := make([]pickedFile, 0, len(paths))
	for _, p := range paths {
		data, mime, err := filehandler.LoadImageFile(p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("Skipping unloadable image")
			continue
		}
		pf := pickedFile{
			Path:     p,
			Name:     filepath.Base(p),
			MIMEType: mime,
			Data:     base64.StdEncoding.EncodeToString(data),
		}
		// EXIF is informational only; extraction failures are fine.
		if meta, err := filehandler.ExtractImageMetadata(p); err == nil {
			pf.Metadata = meta.Summary()
		}
		files = append(files, pf)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

// POST /api/inspect
// Body: {"path": "/abs/path.jpg"}
// Returns the EXIF summary for a local image without loading its pixels.
func handleInspect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" || containsPathTraversal(req.Path) {
		httpError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if _, err := os.Stat(req.Path); err != nil {
		httpError(w, http.StatusNotFound, "file not found")
		return
	}

	meta, err := filehandler.ExtractImageMetadata(req.Path)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"summary": "No metadata available",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"summary":     meta.Summary(),
		"hasGPS":      meta.HasGPS,
		"hasDate":     meta.HasDate,
		"cameraMake":  meta.CameraMake,
		"cameraModel": meta.CameraModel,
	})
}
