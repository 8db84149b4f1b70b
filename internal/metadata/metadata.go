// Package metadata writes the hub's JSON metadata artifact described
// in spec.md §4.6/§6: a record written once at hub start, with a
// numeric -N suffix inserted on filename collision.
//
// Grounded on internal/fsutil's testable filesystem abstraction and
// internal/version's build-stamped artifact fields.
package metadata

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/prevo-go/recto/internal/fsutil"
	"github.com/prevo-go/recto/internal/version"
)

// Record is the JSON-shaped metadata artifact written next to a
// session's sinks (spec.md §6).
type Record struct {
	StartedAt  time.Time         `json:"started_at"`
	Version    string            `json:"version"`
	GitSHA     string            `json:"git_sha"`
	BuildTime  string            `json:"build_time"`
	Recordings []string          `json:"recordings"`
	SessionIDs map[string]string `json:"session_ids,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// NewRecord creates a Record stamped with the running binary's
// version fields, the current set of recording names, and the
// per-recording session UUID (github.com/google/uuid, generated once
// by internal/recording.New) that distinguishes this run's recordings
// from any prior run's of the same name.
func NewRecord(startedAt time.Time, recordings []string, sessionIDs map[string]string, properties map[string]string) Record {
	return Record{
		StartedAt:  startedAt,
		Version:    version.Version,
		GitSHA:     version.GitSHA,
		BuildTime:  version.BuildTime,
		Recordings: recordings,
		SessionIDs: sessionIDs,
		Properties: properties,
	}
}

// Write serializes rec as indented JSON and writes it under dir using
// baseName as the filename. If a file of that name already exists, a
// numeric suffix is appended before the extension (baseName-1.json,
// baseName-2.json, ...) until a free name is found (spec.md §4.6). It
// returns the path actually written.
func Write(fs fsutil.FileSystem, dir, baseName string, rec Record) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("metadata: marshal: %w", err)
	}

	path, err := freeName(fs, dir, baseName)
	if err != nil {
		return "", err
	}

	if err := fs.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("metadata: write %s: %w", path, err)
	}
	return path, nil
}

// freeName finds the first unused path under dir for baseName,
// trying baseName, then baseName-1, baseName-2, ... (spec.md §4.6).
func freeName(fs fsutil.FileSystem, dir, baseName string) (string, error) {
	ext := filepath.Ext(baseName)
	stem := strings.TrimSuffix(baseName, ext)

	candidate := filepath.Join(dir, baseName)
	for n := 1; fs.Exists(candidate); n++ {
		if n > 1<<20 {
			return "", fmt.Errorf("metadata: could not find a free filename for %s after %d attempts", baseName, n)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}
	return candidate, nil
}
