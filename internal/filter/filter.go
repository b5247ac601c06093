// Package filter holds the post-extraction stages applied to a region's
// shorelines before export.
//
// A Stage maps an Output to a new Output without mutating its argument. Stages
// only ever drop whole records, so order and per-image consistency are kept.
package filter

import (
	"fmt"

	"github.com/ironsheep/shoreline-batch/internal/imagery"
)

// Stage transforms an extraction output.
type Stage struct {
	Name  string
	Apply func(imagery.Output) (imagery.Output, error)
}

// Chain applies stages in order.
type Chain []Stage

// Apply runs every stage, stopping at the first error.
func (c Chain) Apply(out imagery.Output) (imagery.Output, error) {
	var err error
	for _, s := range c {
		out, err = s.Apply(out)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", s.Name, err)
		}
	}
	return out, nil
}

// New builds the standard chain: duplicate removal (when enabled) followed by
// the georeference accuracy cut.
func New(removeDuplicates bool, maxGeoreference float64) Chain {
	var c Chain
	if removeDuplicates {
		c = append(c, RemoveDuplicates())
	}
	return append(c, RemoveInaccurate(maxGeoreference))
}

// RemoveDuplicates keeps one shoreline per sensor and UTC calendar day: the
// one with the most vertices, the earliest on ties. Surviving records keep
// their relative order.
func RemoveDuplicates() Stage {
	return Stage{
		Name: "remove-duplicates",
		Apply: func(out imagery.Output) (imagery.Output, error) {
			type key struct {
				sensor string
				day    string
			}
			best := make(map[key]int, len(out))
			for i, s := range out {
				k := key{s.Sensor, s.Date.UTC().Format("2006-01-02")}
				j, seen := best[k]
				if !seen || len(s.Points) > len(out[j].Points) {
					best[k] = i
				}
			}

			kept := make(imagery.Output, 0, len(best))
			for i, s := range out {
				if best[key{s.Sensor, s.Date.UTC().Format("2006-01-02")}] == i {
					kept = append(kept, s)
				}
			}
			return kept, nil
		},
	}
}

// RemoveInaccurate drops shorelines whose georeference error is unknown or
// exceeds maxMeters.
func RemoveInaccurate(maxMeters float64) Stage {
	return Stage{
		Name: "remove-inaccurate",
		Apply: func(out imagery.Output) (imagery.Output, error) {
			if maxMeters <= 0 {
				return nil, fmt.Errorf("max georeference error must be positive, got %v", maxMeters)
			}
			kept := make(imagery.Output, 0, len(out))
			for _, s := range out {
				if s.GeoAccuracy.Within(maxMeters) {
					kept = append(kept, s)
				}
			}
			return kept, nil
		},
	}
}
