// Package imagery defines the contract with the external image worker.
//
// The worker owns acquisition, cloud masking, pan-sharpening and shoreline
// detection. This package holds the values exchanged with it (Metadata and
// Output) and the interfaces the batch pipeline consumes. Output is stored as
// one Shoreline record per image, so the index correspondence between the
// per-image fields can never drift once decoded.
package imagery

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"

	"github.com/ironsheep/shoreline-batch/internal/params"
)

// ErrNoImagery reports that no image matches the region's criteria. The
// pipeline skips the region and continues.
var ErrNoImagery = errors.New("no imagery matches the request")

// ErrMisaligned reports an extraction document whose per-image arrays differ
// in length.
var ErrMisaligned = errors.New("extraction output arrays differ in length")

// Acquirer checks for and retrieves imagery for a region.
type Acquirer interface {
	CheckAvailability(ctx context.Context, in params.Inputs) (bool, error)
	Retrieve(ctx context.Context, in params.Inputs) (Metadata, error)
}

// MetadataLoader reloads the metadata of already retrieved imagery.
type MetadataLoader interface {
	LoadMetadata(ctx context.Context, in params.Inputs) (Metadata, error)
}

// Preprocessor writes the cloud-masked preview images of a region.
type Preprocessor interface {
	GeneratePreviews(ctx context.Context, md Metadata, settings params.Settings) error
}

// Extractor maps every image of a region to a shoreline.
type Extractor interface {
	Extract(ctx context.Context, md Metadata, settings params.Settings) (Output, error)
}

// Worker is the full collaborator surface.
type Worker interface {
	Acquirer
	MetadataLoader
	Preprocessor
	Extractor
}

// Image describes one retrieved acquisition.
type Image struct {
	Filename    string
	EPSG        int
	GeoAccuracy Accuracy
	Quality     string
	Width       int
	Height      int
	Date        time.Time
}

// Metadata groups the retrieved images by sensor code.
type Metadata map[string][]Image

// Count returns the number of images across sensors.
func (m Metadata) Count() int {
	n := 0
	for _, images := range m {
		n += len(images)
	}
	return n
}

// Shoreline is the extraction result for one image.
type Shoreline struct {
	Points         orb.LineString
	Date           time.Time
	Filename       string
	Sensor         string
	CloudCover     float64
	GeoAccuracy    Accuracy
	Index          int
	MNDWIThreshold float64
}

// Output is the ordered extraction result of a region.
type Output []Shoreline

// Vertices returns the total number of shoreline points.
func (o Output) Vertices() int {
	n := 0
	for _, s := range o {
		n += len(s.Points)
	}
	return n
}
