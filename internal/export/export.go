// Package export turns a region's filtered shorelines into its output file.
//
// Each shoreline vertex becomes one headerless CSV row:
//
//	x, y, fecha, archivo, nubes, precision, indice, MNDWI
//
// x and y are reprojected into the target system, fecha and archivo come from
// the image file name, and the remaining columns repeat the image's quality
// metrics on every vertex.
package export

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ironsheep/shoreline-batch/internal/imagery"
)

// Columns names the output fields in order.
var Columns = []string{"x", "y", "fecha", "archivo", "nubes", "precision", "indice", "MNDWI"}

// Record is one output row.
type Record struct {
	X, Y        float64
	Timestamp   string
	Token       string
	CloudCover  float64
	GeoAccuracy imagery.Accuracy
	Index       int
	MNDWI       float64
}

// Fields formats the record as CSV fields.
func (r Record) Fields() []string {
	return []string{
		formatFloat(r.X),
		formatFloat(r.Y),
		r.Timestamp,
		r.Token,
		formatFloat(r.CloudCover),
		r.GeoAccuracy.String(),
		strconv.Itoa(r.Index),
		formatFloat(r.MNDWI),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// Exporter builds and writes output records.
type Exporter struct {
	proj     *Reprojector
	pattern  *FilenamePattern
	ext      string
	decimals int
}

// Options configures an Exporter. A zero Decimals rounds the MNDWI column to
// five places and an empty Extension means ".txt".
type Options struct {
	SourceEPSG      int
	TargetEPSG      int
	FilenamePattern string
	Extension       string
	Decimals        int
}

// New validates opts and returns an Exporter.
func New(opts Options) (*Exporter, error) {
	proj, err := NewReprojector(opts.SourceEPSG, opts.TargetEPSG)
	if err != nil {
		return nil, err
	}
	pattern, err := CompilePattern(opts.FilenamePattern)
	if err != nil {
		return nil, err
	}
	ext := opts.Extension
	if ext == "" {
		ext = ".txt"
	}
	decimals := opts.Decimals
	if decimals == 0 {
		decimals = 5
	}
	if decimals < 0 {
		return nil, fmt.Errorf("decimals must not be negative, got %d", decimals)
	}
	return &Exporter{proj: proj, pattern: pattern, ext: ext, decimals: decimals}, nil
}

// Pattern returns the filename pattern used for timestamps.
func (e *Exporter) Pattern() *FilenamePattern {
	return e.pattern
}

// Reprojector returns the coordinate conversion applied to every vertex.
func (e *Exporter) Reprojector() *Reprojector {
	return e.proj
}

// Extension returns the output file extension.
func (e *Exporter) Extension() string {
	return e.ext
}

// Records expands out into one record per vertex, in image then vertex order.
func (e *Exporter) Records(out imagery.Output) ([]Record, error) {
	records := make([]Record, 0, out.Vertices())
	for _, s := range out {
		acq, err := e.pattern.Parse(s.Filename)
		if err != nil {
			return nil, err
		}
		timestamp := acq.Timestamp()
		mndwi := Round(s.MNDWIThreshold, e.decimals)

		for _, p := range s.Points {
			q := e.proj.Forward(p)
			records = append(records, Record{
				X:           q[0],
				Y:           q[1],
				Timestamp:   timestamp,
				Token:       acq.Sensor,
				CloudCover:  s.CloudCover,
				GeoAccuracy: s.GeoAccuracy,
				Index:       s.Index,
				MNDWI:       mndwi,
			})
		}
	}
	return records, nil
}

// Path returns the output file of a site within dir.
func (e *Exporter) Path(dir, siteName string) string {
	return filepath.Join(dir, siteName+e.ext)
}

// Write exports out to <dir>/<siteName><ext> and returns the path and row
// count. The file is written to a temporary name and renamed into place.
func (e *Exporter) Write(dir, siteName string, out imagery.Output) (string, int, error) {
	records, err := e.Records(out)
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := e.Path(dir, siteName)
	tmp, err := os.CreateTemp(dir, siteName+".*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("failed to set output permissions: %w", err)
	}

	w := csv.NewWriter(tmp)
	for _, r := range records {
		if err := w.Write(r.Fields()); err != nil {
			tmp.Close()
			return "", 0, fmt.Errorf("failed to write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("failed to flush output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, fmt.Errorf("failed to move output into place: %w", err)
	}
	return path, len(records), nil
}
