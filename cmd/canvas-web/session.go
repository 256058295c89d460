package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dcarter/nova-canvas-studio/internal/filehandler"
)

// session owns the per-session mutable state: the output directory computed
// once at session start and the most recent generation's files. The UI
// submits at most one generation per session at a time, but the registry and
// each session are still guarded so concurrent gallery reads are safe.
type session struct {
	ID        string
	StartedAt time.Time
	OutputDir string

	mu           sync.Mutex
	lastFiles    []string
	archivedKeys []string
}

func (s *session) setLastFiles(files []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFiles = append([]string(nil), files...)
}

func (s *session) getLastFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lastFiles...)
}

func (s *session) addArchivedKeys(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archivedKeys = append(s.archivedKeys, keys...)
}

func (s *session) getArchivedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.archivedKeys...)
}

// Sessions are never evicted: this is a single-user local server where a
// session is a page load, and each entry is a few strings. Restarting the
// server clears the registry; the output directories on disk remain.
var (
	sessionsMu sync.Mutex
	sessions   = make(map[string]*session)
)

// newSession creates a session with its timestamped output directory. The
// directory itself is created lazily on first save.
func newSession() *session {
	now := time.Now()
	s := &session{
		ID:        uuid.NewString(),
		StartedAt: now,
		OutputDir: filehandler.SessionDir(outputBase, now),
	}

	sessionsMu.Lock()
	sessions[s.ID] = s
	sessionsMu.Unlock()

	log.Info().
		Str("session_id", s.ID).
		Str("output_dir", s.OutputDir).
		Msg("Session created")

	return s
}

func getSession(id string) (*session, bool) {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	s, ok := sessions[id]
	return s, ok
}

// POST /api/session
// Creates a new session and returns its ID and output directory.
func handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s := newSession()
	respondJSON(w, http.StatusOK, map[string]string{
		"sessionId": s.ID,
		"outputDir": s.OutputDir,
	})
}

// sessionFromRequest resolves the sessionId query/body value, writing an
// HTTP error and returning ok=false when it is missing or unknown.
func sessionFromRequest(w http.ResponseWriter, id string) (*session, bool) {
	if id == "" {
		httpError(w, http.StatusBadRequest, "sessionId is required")
		return nil, false
	}
	s, ok := getSession(id)
	if !ok {
		httpError(w, http.StatusNotFound, "unknown session")
		return nil, false
	}
	return s, true
}
