package dandanplay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseP(t *testing.T) {
	tests := []struct {
		in      string
		time    float64
		color   uint32
		wantErr bool
	}{
		{in: "12.34,1,16777215,abc", time: 12.34, color: 0xFFFFFF},
		{in: "0,5,0", time: 0, color: 0},
		{in: "1,1,255,uid,with,commas", time: 1, color: 255},
		{in: "NaN,1,255", wantErr: true},
		{in: "+Inf,1,255", wantErr: true},
		{in: "1,1,-5", wantErr: true},
		{in: "1,1,99999999999", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tm, color, err := ParseP(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.time, tm)
			require.Equal(t, tt.color, color)
		})
	}
}

func TestHashFile_ShortFileHashedWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.mkv")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	got, err := HashFile(path)
	require.NoError(t, err)
	require.Equal(t, "5d41402abc4b2a76b9719d911017c592", got)
}

func TestHashFile_OnlyPrefixCounts(t *testing.T) {
	dir := t.TempDir()
	prefix := strings.Repeat("a", HashPrefixSize)
	a := filepath.Join(dir, "a.mkv")
	b := filepath.Join(dir, "b.mkv")
	require.NoError(t, os.WriteFile(a, []byte(prefix+"tail one"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte(prefix+"different tail"), 0o600))

	ha, err := HashFile(a)
	require.NoError(t, err)
	hb, err := HashFile(b)
	require.NoError(t, err)
	require.Equal(t, ha, hb)
}
