package imaging

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// writePreview writes a solid w x h preview to dir/name. The encoder follows
// the extension, defaulting to PNG.
func writePreview(t *testing.T, dir, name string, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create preview: %v", err)
	}
	defer f.Close()

	switch filepath.Ext(name) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, nil)
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		t.Fatalf("failed to encode preview: %v", err)
	}
	return path
}

func TestThumbnailCache_FitsAndCaches(t *testing.T) {
	cache := NewThumbnailCache()
	path := writePreview(t, t.TempDir(), "scene.jpg", 400, 100, color.RGBA{30, 90, 160, 255})

	thumb, err := cache.Thumbnail(path, 64)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if b := thumb.Bounds(); b.Dx() != 64 || b.Dy() != 16 {
		t.Errorf("thumbnail is %dx%d, want 64x16", b.Dx(), b.Dy())
	}

	again, err := cache.Thumbnail(path, 64)
	if err != nil {
		t.Fatalf("second Thumbnail failed: %v", err)
	}
	if again != thumb {
		t.Error("second call did not return the cached thumbnail")
	}

	if _, err := cache.Thumbnail(path, 32); err != nil {
		t.Fatalf("Thumbnail at another size failed: %v", err)
	}
	if cache.Len() != 2 {
		t.Errorf("cache holds %d thumbnails, want 2 (one per size)", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("cache holds %d thumbnails after Clear", cache.Len())
	}
}

func TestThumbnailCache_SmallPreviewNotEnlarged(t *testing.T) {
	path := writePreview(t, t.TempDir(), "small.png", 20, 10, color.White)
	thumb, err := NewThumbnailCache().Thumbnail(path, 64)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if b := thumb.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("thumbnail is %dx%d, want the original 20x10", b.Dx(), b.Dy())
	}
}

func TestThumbnailCache_Errors(t *testing.T) {
	cache := NewThumbnailCache()
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		size int
	}{
		{"missing file", filepath.Join(dir, "missing.jpg"), 32},
		{"not an image", writeText(t, dir, "notes.jpg"), 32},
		{"zero size", writePreview(t, dir, "ok.png", 10, 10, color.Black), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := cache.Thumbnail(tt.path, tt.size); err == nil {
				t.Error("expected error")
			}
		})
	}
	if cache.Len() != 0 {
		t.Errorf("failed loads were cached: %d", cache.Len())
	}
}

func writeText(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestThumbnailCache_ConcurrentAccess(t *testing.T) {
	cache := NewThumbnailCache()
	path := writePreview(t, t.TempDir(), "scene.png", 80, 80, color.RGBA{200, 180, 120, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Thumbnail(path, 16); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Thumbnail error: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("cache holds %d thumbnails, want 1", cache.Len())
	}
}

func TestIsPreview(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.jpg", true},
		{"a.JPEG", true},
		{"a.png", true},
		{"a.tif", false},
		{"a.txt", false},
		{"jpg", false},
	}
	for _, tt := range tests {
		if got := IsPreview(tt.name); got != tt.want {
			t.Errorf("IsPreview(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFindPreviews(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"2023-01-05-13-55-31_S2_02_2023_S2_7_dup.jpg",
		"2023-01-05-13-55-31_S2_02_2023_S2_7.jpg",
		"2023-01-05-13-55-31_S2_02_2023_S2_7.txt",
		"2023-02-05-13-55-31_S2_02_2023_S2_7.jpg",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "2023-01-05-13-55-31_S2.jpg"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindPreviews(dir, "2023-01-05-13-55-31_S2")
	if err != nil {
		t.Fatalf("FindPreviews failed: %v", err)
	}
	want := []string{
		filepath.Join(dir, "2023-01-05-13-55-31_S2_02_2023_S2_7.jpg"),
		filepath.Join(dir, "2023-01-05-13-55-31_S2_02_2023_S2_7_dup.jpg"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("preview %d: got %s, want %s", i, got[i], want[i])
		}
	}

	none, err := FindPreviews(filepath.Join(dir, "missing"), "")
	if err != nil || none != nil {
		t.Errorf("missing dir: got %v, %v; want nil, nil", none, err)
	}
}
