// Package roi loads the regions of interest of a coastal zone.
package roi

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Region is one area of analysis: its identifier and the axis-aligned
// rectangle enclosing its polygon, as a closed ring of five points.
type Region struct {
	ID      string
	Polygon orb.Ring
}

// Coordinates returns the rectangle in the nested [ring][point][x,y] layout
// the image worker expects.
func (r Region) Coordinates() [][][2]float64 {
	ring := make([][2]float64, len(r.Polygon))
	for i, p := range r.Polygon {
		ring[i] = [2]float64{p[0], p[1]}
	}
	return [][][2]float64{ring}
}

// Load reads a GeoJSON FeatureCollection and returns one Region per feature,
// in file order. A missing file is an error.
func Load(path string) ([]Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ROI file: %w", err)
	}
	return Parse(data)
}

// Parse decodes GeoJSON bytes into regions.
func Parse(data []byte) ([]Region, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ROI collection: %w", err)
	}

	regions := make([]Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		id := featureID(f, i)

		exterior, err := exteriorRing(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", id, err)
		}

		regions = append(regions, Region{
			ID:      id,
			Polygon: SmallestRectangle(exterior),
		})
	}
	return regions, nil
}

// SmallestRectangle returns the axis-aligned bounding rectangle of a ring.
func SmallestRectangle(ring orb.Ring) orb.Ring {
	return ring.Bound().ToRing()
}

func exteriorRing(g orb.Geometry) (orb.Ring, error) {
	switch geom := g.(type) {
	case orb.Polygon:
		if len(geom) == 0 || len(geom[0]) == 0 {
			return nil, fmt.Errorf("empty polygon")
		}
		return geom[0], nil
	case orb.MultiPolygon:
		if len(geom) == 0 || len(geom[0]) == 0 || len(geom[0][0]) == 0 {
			return nil, fmt.Errorf("empty multipolygon")
		}
		return geom[0][0], nil
	case nil:
		return nil, fmt.Errorf("missing geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry type %s", g.GeoJSONType())
	}
}

// featureID prefers the "id" property, then the feature id, then the index.
func featureID(f *geojson.Feature, index int) string {
	if v, ok := f.Properties["id"]; ok && v != nil {
		return formatID(v)
	}
	if f.ID != nil {
		return formatID(f.ID)
	}
	return strconv.Itoa(index)
}

func formatID(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id == math.Trunc(id) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
