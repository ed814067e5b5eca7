package source

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// File is a raster image on disk
type File struct {
	path string
}

// OpenFile checks that path exists and is a regular file.
func OpenFile(path string) (*File, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &File{path: path}, nil
}

func (f *File) Name() string {
	return filepath.Base(f.path)
}

// Dimensions reads only the image header.
func (f *File) Dimensions() (float64, float64, error) {
	r, err := os.Open(f.path)
	if err != nil {
		return 0, 0, err
	}
	defer r.Close()

	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, fmt.Errorf("decode config %s: %w", f.path, err)
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

func (f *File) Image() (image.Image, error) {
	r, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return img, nil
}

func (f *File) Close() error {
	return nil
}
