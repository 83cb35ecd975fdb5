package dandanplay

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// HashPrefixSize is how much of a file the match hash covers.
const HashPrefixSize = 16 << 20

// HashFile returns the hex md5 of the first HashPrefixSize bytes of the file.
// Shorter files are hashed whole.
func HashFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: media path comes from the player
	if err != nil {
		return "", fmt.Errorf("opening media file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := md5.New() //nolint:gosec // G401: md5 is what the API matches on
	if _, err := io.CopyN(h, f, HashPrefixSize); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("hashing media file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ParseP decodes the "time,mode,color,user" attribute of an API comment.
func ParseP(p string) (float64, uint32, error) {
	fields := strings.SplitN(p, ",", 4)
	if len(fields) < 3 {
		return 0, 0, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}
	t, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("time: %w", err)
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, 0, fmt.Errorf("time: %q is not a finite number", fields[0])
	}
	color, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("color: %w", err)
	}
	return t, uint32(color), nil
}
