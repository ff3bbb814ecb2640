package renderer

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// The Sink interface is implemented by objects that persist rendered frames.
type Sink interface {
	// Persist a completed frame under the given target identifier.
	Persist(img image.Image, target string) error
}

type encoderFn func(w io.Writer, img image.Image) error

var encoders = map[string]encoderFn{
	"png": png.Encode,
	"jpeg": func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	},
	"bmp": bmp.Encode,
	"tiff": func(w io.Writer, img image.Image) error {
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	},
}

// Normalize an image format name or file extension.
func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	switch format {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	}
	return format
}

// Get the list of supported output formats.
func Formats() []string {
	return []string{"bmp", "jpeg", "png", "tiff"}
}

// A sink that encodes frames to files. The encoder is selected by Format or,
// if Format is empty, by the target file extension.
type FileSink struct {
	Format string
}

func (s FileSink) Persist(img image.Image, target string) error {
	format := s.Format
	if format == "" {
		format = filepath.Ext(target)
	}
	format = normalizeFormat(format)

	encode, supported := encoders[format]
	if !supported {
		return fmt.Errorf("renderer: unsupported output format %q for %q", format, target)
	}

	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	// Write to a temp file first so a failed encode never leaves a
	// truncated image behind.
	tmpFile := target + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	err = encode(f, img)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("renderer: could not encode %s image %q: %w", format, target, err)
	}

	return os.Rename(tmpFile, target)
}

// A sink that keeps frames in memory.
type MemorySink struct {
	sync.Mutex
	frames map[string]image.Image
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		frames: make(map[string]image.Image),
	}
}

func (s *MemorySink) Persist(img image.Image, target string) error {
	s.Lock()
	defer s.Unlock()
	s.frames[target] = img
	return nil
}

// Get a persisted frame.
func (s *MemorySink) Frame(target string) (image.Image, bool) {
	s.Lock()
	defer s.Unlock()
	img, exists := s.frames[target]
	return img, exists
}

// Get the number of persisted frames.
func (s *MemorySink) Len() int {
	s.Lock()
	defer s.Unlock()
	return len(s.frames)
}
