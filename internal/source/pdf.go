package source

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
)

const DefaultDPI = 150

// PDFPage is a single page of a PDF document rendered as an image
type PDFPage struct {
	doc   *fitz.Document
	path  string
	index int
	dpi   int
}

func OpenPDFPage(path string, index, dpi int) (*PDFPage, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= doc.NumPage() {
		doc.Close()
		return nil, fmt.Errorf("%s: page %d out of range (%d pages)", path, index, doc.NumPage())
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &PDFPage{doc: doc, path: path, index: index, dpi: dpi}, nil
}

func (p *PDFPage) Name() string {
	return fmt.Sprintf("%s#%d", filepath.Base(p.path), p.index+1)
}

func (p *PDFPage) Dimensions() (float64, float64, error) {
	rect, err := p.doc.Bound(p.index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

func (p *PDFPage) Image() (image.Image, error) {
	return p.doc.ImageDPI(p.index, float64(p.dpi))
}

func (p *PDFPage) Close() error {
	return p.doc.Close()
}
