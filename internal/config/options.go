package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/zjrosen/mpv-danmaku/internal/log"
)

// Options is the content of an mpv script-opts file: key=value lines, '#'
// comments, blank lines ignored. Later keys win.
type Options map[string]string

// ReadOptions parses the option file at path. A missing file yields empty
// options.
func ReadOptions(path string) (Options, error) {
	f, err := os.Open(path) //nolint:gosec // G304: option file path comes from mpv
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug(log.CatConfig, "no option file", "path", path)
		return Options{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening option file: %w", err)
	}
	defer func() { _ = f.Close() }()

	opts, err := ParseOptions(f)
	if err != nil {
		return nil, fmt.Errorf("reading option file %s: %w", path, err)
	}
	return opts, nil
}

// ParseOptions parses option lines from r. Lines without '=' are logged and
// skipped.
func ParseOptions(r io.Reader) (Options, error) {
	opts := Options{}
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			log.Warn(log.CatConfig, "ignoring option line without '='", "line", n)
			continue
		}
		opts[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return opts, nil
}

// FontSize returns the font_size option if it is a positive finite number.
func (o Options) FontSize() (float64, bool) {
	raw, ok := o["font_size"]
	if !ok {
		return 0, false
	}
	size, err := strconv.ParseFloat(raw, 64)
	if err != nil || size <= 0 || math.IsInf(size, 0) || math.IsNaN(size) {
		log.Warn(log.CatConfig, "ignoring invalid font_size", "value", raw)
		return 0, false
	}
	return size, true
}

// Apply overrides cfg with recognized options.
func (o Options) Apply(cfg *Config) {
	if size, ok := o.FontSize(); ok {
		cfg.FontSize = size
	}
}
