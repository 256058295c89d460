package main

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/dcarter/nova-canvas-studio/internal/filehandler"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard
// (APPNOTE 6.3.7). Registered in init() with the highest level the Go
// library supports; session bundles are small so the extra CPU is cheap.
const zipMethodZstd uint16 = 93

func init() {
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	})
}

// sessionImagePath resolves an image name inside the session's output
// directory, rejecting anything that would escape it.
func sessionImagePath(sess *session, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	if containsPathTraversal(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid name")
	}
	return filepath.Join(sess.OutputDir, name), nil
}

// GET /api/images?sessionId=...
// Lists the most recent generation's images in response order, falling back
// to everything in the session directory.
func handleListImages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sess, ok := sessionFromRequest(w, r.URL.Query().Get("sessionId"))
	if !ok {
		return
	}

	paths := sess.getLastFiles()
	if len(paths) == 0 {
		var err error
		paths, err = filehandler.ListImages(sess.OutputDir)
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": sess.ID,
		"images":    imageEntries(sess.ID, paths),
	})
}

// GET /api/images/file?sessionId=...&name=...
// Serves one generated image for display or download.
func handleImageFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sess, ok := sessionFromRequest(w, r.URL.Query().Get("sessionId"))
	if !ok {
		return
	}

	path, err := sessionImagePath(sess, r.URL.Query().Get("name"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	}
	http.ServeFile(w, r, path)
}

// GET /api/images/thumbnail?sessionId=...&name=...
func handleThumbnail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sess, ok := sessionFromRequest(w, r.URL.Query().Get("sessionId"))
	if !ok {
		return
	}

	path, err := sessionImagePath(sess, r.URL.Query().Get("name"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			httpError(w, http.StatusNotFound, "image not found")
			return
		}
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	thumb, mime, err := filehandler.Thumbnail(data, filehandler.DefaultThumbnailMaxDimension)
	if err != nil {
		// Fall back to the original when the format can't be re-encoded.
		log.Debug().Err(err).Str("path", path).Msg("Thumbnail failed, serving original")
		http.ServeFile(w, r, path)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "max-age=3600")
	w.Write(thumb)
}

// GET /api/images/zip?sessionId=...
// Bundles every image in the session directory into one ZIP download.
func handleImagesZip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sess, ok := sessionFromRequest(w, r.URL.Query().Get("sessionId"))
	if !ok {
		return
	}

	paths, err := filehandler.ListImages(sess.OutputDir)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(paths) == 0 {
		httpError(w, http.StatusNotFound, "no images in this session")
		return
	}

	zipName := fmt.Sprintf("canvas-%s.zip", sess.StartedAt.Format(filehandler.SessionDirLayout))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", zipName))

	zw := zip.NewWriter(w)
	for _, p := range paths {
		header := &zip.FileHeader{
			Name:   filepath.Base(p),
			Method: zipMethodZstd,
		}
		entry, err := zw.CreateHeader(header)
		if err != nil {
			log.Error().Err(err).Str("path", p).Msg("Failed to create zip entry")
			return
		}
		f, err := os.Open(p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("Skipping unreadable file in zip")
			continue
		}
		_, err = io.Copy(entry, f)
		f.Close()
		if err != nil {
			log.Error().Err(err).Str("path", p).Msg("Failed to write zip entry")
			return
		}
	}
	if err := zw.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to finalize zip")
	}

	log.Info().
		Str("session_id", sess.ID).
		Int("files", len(paths)).
		Msg("Session zip downloaded")
}
