package source

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned by Open for files it cannot place on the stage.
var ErrUnsupported = errors.New("source: unsupported format")

// Source is an image handle placed on the stage.
type Source interface {
	Name() string
	// Dimensions returns the native pixel size of the image.
	Dimensions() (width, height float64, err error)
	Image() (image.Image, error)
	Close() error
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// IsImage reports whether path has a raster image extension known to File.
func IsImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Open picks a Source implementation by file extension. PDF files open their
// first page; use OpenPDFPage for the others.
func Open(path string) (Source, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".pdf"):
		return OpenPDFPage(path, 0, DefaultDPI)
	case IsImage(path):
		return OpenFile(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
}

// Static wraps an in-memory image
type Static struct {
	name string
	img  image.Image
}

func NewStatic(name string, img image.Image) *Static {
	return &Static{name: name, img: img}
}

func (s *Static) Name() string { return s.name }

func (s *Static) Dimensions() (float64, float64, error) {
	b := s.img.Bounds()
	return float64(b.Dx()), float64(b.Dy()), nil
}

func (s *Static) Image() (image.Image, error) { return s.img, nil }

func (s *Static) Close() error { return nil }
