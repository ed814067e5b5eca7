package source

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestFileDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wide.png")
	writePNG(t, path, 400, 100)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	if src.Name() != "wide.png" {
		t.Errorf("unexpected name %q", src.Name())
	}

	w, h, err := src.Dimensions()
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if w != 400 || h != 100 {
		t.Errorf("expected 400x100, got %vx%v", w, h)
	}

	img, err := src.Image()
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if img.Bounds().Dx() != 400 {
		t.Errorf("decoded width %d", img.Bounds().Dx())
	}
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("notes.txt")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestQR(t *testing.T) {
	q, err := NewQR("https://example.com", 128)
	if err != nil {
		t.Fatalf("NewQR failed: %v", err)
	}
	w, h, _ := q.Dimensions()
	if w != 128 || h != 128 {
		t.Errorf("expected 128x128, got %vx%v", w, h)
	}
	img, err := q.Image()
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if img.Bounds().Dx() != 128 {
		t.Errorf("QR image width %d", img.Bounds().Dx())
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic("mem", image.NewGray(image.Rect(0, 0, 30, 60)))
	w, h, err := s.Dimensions()
	if err != nil || w != 30 || h != 60 {
		t.Errorf("Dimensions = %v,%v,%v", w, h, err)
	}
}
