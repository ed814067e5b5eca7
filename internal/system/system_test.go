package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	touch(t, filepath.Join(dir, "old.png"), base)
	touch(t, filepath.Join(dir, "new.JPG"), base.Add(time.Hour))
	touch(t, filepath.Join(dir, "newest.txt"), base.Add(2*time.Hour))
	touch(t, filepath.Join(dir, "doc.pdf"), base.Add(30*time.Minute))

	tests := []struct {
		name string
		path string
		exts []string
		want string
	}{
		{"images", dir, []string{".png", ".jpg"}, "new.JPG"},
		{"pdf", dir, []string{".pdf"}, "doc.pdf"},
		{"file path searches its directory", filepath.Join(dir, "old.png"), []string{".png"}, "old.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindLatest(tt.path, tt.exts...)
			if err != nil {
				t.Fatalf("FindLatest failed: %v", err)
			}
			if filepath.Base(got) != tt.want {
				t.Errorf("got %s, want %s", filepath.Base(got), tt.want)
			}
		})
	}

	if _, err := FindLatest(dir, ".webp"); err == nil {
		t.Error("expected error when nothing matches")
	}
	if _, err := FindLatest(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestPickEncoder(t *testing.T) {
	tests := []struct {
		listing string
		want    string
	}{
		{" V..... h264_nvenc  NVIDIA NVENC\n V..... libx264", "h264_nvenc"},
		{" V..... h264_videotoolbox\n V..... h264_nvenc", "h264_videotoolbox"},
		{" V..... libx264", "libx264"},
	}
	for _, tt := range tests {
		if got := pickEncoder(tt.listing); got != tt.want {
			t.Errorf("pickEncoder = %s, want %s", got, tt.want)
		}
	}
}

func TestImagePool(t *testing.T) {
	p := NewImagePool()
	rect := image.Rect(0, 0, 16, 8)

	img := p.Get(rect)
	if img.Rect != rect {
		t.Fatalf("got %v, want %v", img.Rect, rect)
	}
	p.Put(img)
	p.Put(nil)
	p.Put(image.NewRGBA(image.Rect(0, 0, 3, 3)))

	if got := p.Get(rect); got.Rect != rect {
		t.Errorf("got %v after Put", got.Rect)
	}
}

func TestReadProcessStats(t *testing.T) {
	st, err := ReadProcessStats()
	if err != nil {
		t.Skipf("process stats unavailable: %v", err)
	}
	if st.RSS == 0 {
		t.Error("expected non-zero RSS")
	}
	if st.String() == "" {
		t.Error("empty report")
	}
}
