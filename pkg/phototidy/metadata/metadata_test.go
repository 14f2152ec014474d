package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

func TestExtract_FilesystemFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a real jpeg"), 0o644))

	modTime := time.Date(2022, 3, 15, 9, 0, 0, 0, time.UTC)

	capture := Extractor{}.Extract(path, modTime)

	assert.Equal(t, "2022-03-15_09-00-00", capture.Timestamp)
	assert.Equal(t, types.SourceFilesystem, capture.Source)
	assert.Empty(t, capture.CameraModel)
}

func TestExtract_SyntheticFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video bytes"), 0o644))

	now := time.Date(2024, 12, 1, 18, 30, 0, 0, time.UTC)
	e := Extractor{Now: func() time.Time { return now }}

	capture := e.Extract(path, time.Time{})

	assert.Equal(t, "2024-12-01_18-30-00", capture.Timestamp)
	assert.Equal(t, types.SourceSynthetic, capture.Source)
}

func TestExtract_MissingFile(t *testing.T) {
	modTime := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)

	capture := Extractor{}.Extract(filepath.Join(t.TempDir(), "gone.jpg"), modTime)

	// An unreadable file still yields a usable timestamp.
	assert.Equal(t, types.FormatTimestamp(modTime), capture.Timestamp)
	assert.Equal(t, types.SourceFilesystem, capture.Source)
}
