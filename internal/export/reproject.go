package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// EPSG codes with a registered projection.
const (
	EPSGWGS84        = 4326
	EPSGWebMercator  = 3857
	epsgGoogleLegacy = 900913
)

// Reprojector converts points between two spatial reference systems.
type Reprojector struct {
	From, To int
	forward  orb.Projection
	inverse  orb.Projection
}

type pair struct{ from, to int }

var projections = map[pair]orb.Projection{
	{EPSGWebMercator, EPSGWGS84}:  project.Mercator.ToWGS84,
	{EPSGWGS84, EPSGWebMercator}:  project.WGS84.ToMercator,
	{epsgGoogleLegacy, EPSGWGS84}: project.Mercator.ToWGS84,
	{EPSGWGS84, epsgGoogleLegacy}: project.WGS84.ToMercator,
}

func identity(p orb.Point) orb.Point { return p }

func lookup(from, to int) (orb.Projection, bool) {
	if from == to {
		return identity, true
	}
	proj, ok := projections[pair{from, to}]
	return proj, ok
}

// NewReprojector returns a reprojector between two EPSG codes. Both
// directions must be registered.
func NewReprojector(from, to int) (*Reprojector, error) {
	fwd, ok := lookup(from, to)
	if !ok {
		return nil, fmt.Errorf("no projection from EPSG:%d to EPSG:%d", from, to)
	}
	inv, ok := lookup(to, from)
	if !ok {
		return nil, fmt.Errorf("no projection from EPSG:%d to EPSG:%d", to, from)
	}
	return &Reprojector{From: from, To: to, forward: fwd, inverse: inv}, nil
}

// Forward projects p from the source to the target system.
func (r *Reprojector) Forward(p orb.Point) orb.Point {
	return r.forward(p)
}

// Inverse projects p from the target back to the source system.
func (r *Reprojector) Inverse(p orb.Point) orb.Point {
	return r.inverse(p)
}

// LineString projects every vertex of ls into a new line string.
func (r *Reprojector) LineString(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = r.forward(p)
	}
	return out
}
