package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ThumbnailCache decodes worker previews and keeps only their thumbnails.
//
// Previews are full scenes, several megapixels each, and a contact sheet only
// ever needs them at one size. The cache therefore fits every preview into a
// size x size square as soon as it is decoded and drops the full image. Entries
// are keyed by path and size, so asking for the same preview at two sizes
// decodes it twice.
//
// ThumbnailCache is safe for concurrent use by multiple goroutines.
//
//	cache := imaging.NewThumbnailCache()
//	defer cache.Clear()
//	thumb, err := cache.Thumbnail(path, 256)
type ThumbnailCache struct {
	mu     sync.RWMutex
	thumbs map[thumbKey]image.Image
}

type thumbKey struct {
	path string
	size int
}

// NewThumbnailCache returns an empty cache.
func NewThumbnailCache() *ThumbnailCache {
	return &ThumbnailCache{thumbs: make(map[thumbKey]image.Image)}
}

// Thumbnail returns the preview at path fitted into a size x size square,
// keeping its aspect ratio. EXIF orientation is applied and the format is
// sniffed from the content, not the extension.
func (c *ThumbnailCache) Thumbnail(path string, size int) (image.Image, error) {
	if size < 1 {
		return nil, fmt.Errorf("thumbnail size must be positive, got %d", size)
	}
	key := thumbKey{path: path, size: size}

	c.mu.RLock()
	thumb, ok := c.thumbs[key]
	c.mu.RUnlock()
	if ok {
		return thumb, nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode preview %s: %w", path, err)
	}
	thumb = imaging.Fit(img, size, size, imaging.Lanczos)

	c.mu.Lock()
	c.thumbs[key] = thumb
	c.mu.Unlock()
	return thumb, nil
}

// Len returns the number of cached thumbnails.
func (c *ThumbnailCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.thumbs)
}

// Clear drops every thumbnail.
func (c *ThumbnailCache) Clear() {
	c.mu.Lock()
	c.thumbs = make(map[thumbKey]image.Image)
	c.mu.Unlock()
}

// IsPreview reports whether name has an extension the worker writes previews
// with.
func IsPreview(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// FindPreviews lists the preview files in dir whose base name starts with
// prefix, sorted by name. A missing dir yields no previews and no error.
func FindPreviews(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list previews: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) || !IsPreview(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
