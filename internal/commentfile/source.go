// Package commentfile reads comments from a local JSON file of the form
// [{"time": 1.5, "color": 16777215, "text": "..."}].
package commentfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
	"github.com/zjrosen/mpv-danmaku/internal/log"
)

// Load reads a comment file.
func Load(path string) ([]danmaku.Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is a CLI argument
	if err != nil {
		return nil, fmt.Errorf("reading comment file: %w", err)
	}
	var records []danmaku.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing comment file %s: %w", path, err)
	}
	log.Debug(log.CatFetch, "loaded comment file", "path", path, "count", len(records))
	return records, nil
}

// Save writes records in the format Load reads.
func Save(path string, records []danmaku.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding comments: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing comment file: %w", err)
	}
	return nil
}

// Source serves one fixed comment file regardless of the media path it is
// asked about.
type Source struct {
	Path string
}

// Fetch implements the session's comment fetcher.
func (s Source) Fetch(ctx context.Context, _ string) ([]danmaku.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Load(s.Path)
}
