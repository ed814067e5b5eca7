package source

import (
	"image"

	"github.com/skip2/go-qrcode"
)

// QR is a generated QR code badge
type QR struct {
	content string
	size    int
	code    *qrcode.QRCode
}

// NewQR encodes content at medium recovery level. size is the edge length in pixels.
func NewQR(content string, size int) (*QR, error) {
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	return &QR{content: content, size: size, code: code}, nil
}

func (q *QR) Name() string {
	return "qr:" + q.content
}

func (q *QR) Dimensions() (float64, float64, error) {
	return float64(q.size), float64(q.size), nil
}

func (q *QR) Image() (image.Image, error) {
	return q.code.Image(q.size), nil
}

func (q *QR) Close() error {
	return nil
}
