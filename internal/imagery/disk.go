package imagery

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ironsheep/shoreline-batch/internal/params"
)

// filenameTimeLayout is the timestamp prefix of every worker image file.
const filenameTimeLayout = "2006-01-02-15-04-05"

// DiskMetadata reads metadata from the worker's on-disk cache instead of
// asking the worker. Each retrieved image has a text file under
// <filepath>/<sitename>/<sensor>/meta/ holding tab-separated key/value lines.
type DiskMetadata struct{}

// LoadMetadata scans the cache of every requested sensor. Sensors without a
// meta directory yield no entry; a region with no cached image at all
// returns ErrNoImagery.
func (DiskMetadata) LoadMetadata(ctx context.Context, in params.Inputs) (Metadata, error) {
	md := make(Metadata)
	for _, sensor := range in.Sensors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := filepath.Join(in.SiteDir(), sensor, "meta")
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list metadata for %s: %w", sensor, err)
		}

		var images []Image
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
				continue
			}
			img, err := ReadMetaFile(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, err
			}
			images = append(images, img)
		}
		sort.Slice(images, func(i, j int) bool { return images[i].Filename < images[j].Filename })
		if len(images) > 0 {
			md[sensor] = images
		}
	}
	if md.Count() == 0 {
		return nil, fmt.Errorf("%w: nothing cached for %s", ErrNoImagery, in.SiteName)
	}
	return md, nil
}

// ReadMetaFile parses one cached metadata file.
func ReadMetaFile(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to open metadata: %w", err)
	}
	defer f.Close()

	var img Image
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "\t")
		if !ok {
			return Image{}, fmt.Errorf("%s: malformed line %q", path, line)
		}
		value = strings.TrimSpace(value)

		switch key {
		case "filename":
			img.Filename = value
		case "epsg":
			img.EPSG, err = strconv.Atoi(value)
		case "acc_georef":
			img.GeoAccuracy, err = ParseAccuracy(value)
		case "im_quality":
			img.Quality = value
		case "im_width":
			img.Width, err = strconv.Atoi(value)
		case "im_height":
			img.Height, err = strconv.Atoi(value)
		}
		if err != nil {
			return Image{}, fmt.Errorf("%s: invalid %s: %w", path, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Image{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	if img.Filename == "" {
		return Image{}, fmt.Errorf("%s: missing filename", path)
	}
	if len(img.Filename) >= len(filenameTimeLayout) {
		if t, err := time.Parse(filenameTimeLayout, img.Filename[:len(filenameTimeLayout)]); err == nil {
			img.Date = t
		}
	}
	return img, nil
}
