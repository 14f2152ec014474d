// Package metadata derives a capture timestamp for a media file from its
// embedded EXIF data, falling back to the filesystem modification time and
// finally to the current processing time. Extraction never fails the
// caller; the returned Capture always carries a usable timestamp together
// with its confidence.
package metadata

import (
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/phototidy/phototidy/pkg/phototidy/types"
)

// Capture is the best-effort capture metadata for one file.
type Capture struct {
	// Timestamp is in the canonical types.TimestampLayout.
	Timestamp string

	// Source records the confidence: embedded > filesystem > synthetic.
	Source types.TimestampSource

	// CameraModel, CameraMake and Artist come from EXIF when present.
	CameraModel string
	CameraMake  string
	Artist      string
}

// Extractor extracts capture metadata. The zero value is usable; Now is
// only overridden in tests.
type Extractor struct {
	// Now supplies the synthetic fallback time. Defaults to time.Now.
	Now func() time.Time
}

// Extract returns capture metadata for the file at path. modTime is the
// file's already-known modification time, used as the first fallback so
// extraction does not re-stat the file.
func (e Extractor) Extract(path string, modTime time.Time) Capture {
	capture := e.fromExif(path)
	if capture.Timestamp != "" {
		return capture
	}

	if !modTime.IsZero() {
		capture.Timestamp = types.FormatTimestamp(modTime)
		capture.Source = types.SourceFilesystem
		return capture
	}

	now := e.Now
	if now == nil {
		now = time.Now
	}
	capture.Timestamp = types.FormatTimestamp(now())
	capture.Source = types.SourceSynthetic
	return capture
}

// fromExif reads embedded EXIF data. Missing or unreadable EXIF is normal
// for many formats and returns an empty-timestamp Capture.
func (e Extractor) fromExif(path string) Capture {
	f, err := os.Open(path)
	if err != nil {
		return Capture{}
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return Capture{}
	}

	capture := Capture{
		CameraModel: tagString(x, exif.Model),
		CameraMake:  tagString(x, exif.Make),
		Artist:      tagString(x, exif.Artist),
	}

	if dt, err := x.DateTime(); err == nil {
		capture.Timestamp = types.FormatTimestamp(dt)
		capture.Source = types.SourceEmbedded
	}
	return capture
}

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}
