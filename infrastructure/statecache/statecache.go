// Package statecache persists the local date→tickers history cache between
// runs. The file is process-local and single-writer; it is always
// rebuildable from the published history artifacts, so a corrupt or missing
// file degrades to an empty cache instead of an error.
package statecache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FileCache stores the history cache as a single JSON document on disk.
type FileCache struct {
	path string
	log  zerolog.Logger
}

// NewFileCache creates a cache backed by the file at path.
func NewFileCache(path string, log zerolog.Logger) *FileCache {
	return &FileCache{
		path: path,
		log:  log.With().Str("component", "statecache").Logger(),
	}
}

type cacheFile struct {
	Dates map[string][]string `json:"dates"`
}

// Load reads the persisted cache. A missing file yields an empty cache; a
// file that fails to parse is logged and treated the same way.
func (c *FileCache) Load() map[string][]string {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("path", c.path).Msg("history cache unreadable, starting empty")
		}
		return map[string][]string{}
	}

	var doc cacheFile
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Dates == nil {
		c.log.Warn().Err(err).Str("path", c.path).Msg("history cache corrupt, rebuilding from empty")
		return map[string][]string{}
	}
	return doc.Dates
}

// Save writes the cache atomically: a temp file in the same directory is
// renamed over the target so a crash mid-write never leaves a torn file.
func (c *FileCache) Save(dates map[string][]string) error {
	raw, err := json.Marshal(cacheFile{Dates: dates})
	if err != nil {
		return fmt.Errorf("encode history cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".history-cache-*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
