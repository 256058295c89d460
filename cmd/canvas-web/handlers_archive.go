package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dcarter/nova-canvas-studio/internal/s3util"
)

// archiveLinkExpiry bounds how long a shared archive link stays valid.
const archiveLinkExpiry = 1 * time.Hour

type archiveEntry struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// GET /api/archive?sessionId=...
// Returns pre-signed GET URLs for the session's archived images, in upload
// order. Uploads run in the background after a generation, so an empty list
// can also mean the archive is still in flight.
func handleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if archiveBucket == "" || presigner == nil {
		httpError(w, http.StatusNotFound, "archiving is not enabled")
		return
	}

	sess, ok := sessionFromRequest(w, r.URL.Query().Get("sessionId"))
	if !ok {
		return
	}

	keys := sess.getArchivedKeys()
	entries := make([]archiveEntry, 0, len(keys))
	for _, key := range keys {
		url, err := s3util.PresignImage(r.Context(), presigner, archiveBucket, key, archiveLinkExpiry)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("Failed to presign archived image")
			httpError(w, http.StatusInternalServerError, "could not sign archive links")
			return
		}
		entries = append(entries, archiveEntry{Key: key, URL: url})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"bucket": archiveBucket,
		"count":  len(entries),
		"images": entries,
	})
}
