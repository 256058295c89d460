// Package filehandler persists decoded images to disk and loads local
// images for use as generation inputs.
package filehandler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// SessionDirLayout is the timestamp layout used for per-session output
// directories, e.g. output/2026-08-31_14-07-02.
const SessionDirLayout = "2006-01-02_15-04-05"

// SessionDir returns the output directory path for a session started at t.
// The path is computed once per session and reused for every request in it.
func SessionDir(base string, t time.Time) string {
	return filepath.Join(base, t.Format(SessionDirLayout))
}

// EnsureDir creates the directory (and parents) if absent. Calling it again
// for an existing directory is a no-op and never removes existing files.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// imageSortKey splits a filename like image_12.png into its stem and numeric
// suffix so saved batches list in save order rather than lexically, where
// image_10 would sort before image_2.
func imageSortKey(name string) (stem string, index int, ok bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndex(base, "_")
	if i < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return "", 0, false
	}
	return base[:i], n, true
}

// ListImages returns the image files in dir in numbered save order. Missing
// directories yield an empty list, not an error, so a session that has not
// generated anything yet renders as an empty gallery.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !IsImage(ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}

	sort.Slice(files, func(a, b int) bool {
		aStem, aIdx, aOK := imageSortKey(filepath.Base(files[a]))
		bStem, bIdx, bOK := imageSortKey(filepath.Base(files[b]))
		if aOK && bOK && aStem == bStem {
			return aIdx < bIdx
		}
		return files[a] < files[b]
	})

	log.Debug().Str("dir", dir).Int("images", len(files)).Msg("Listed session images")
	return files, nil
}
