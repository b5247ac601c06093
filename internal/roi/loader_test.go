package roi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
)

const collection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"id": 7},
      "geometry": {"type": "Polygon", "coordinates": [[[-57.5, -35.1], [-57.2, -35.0], [-57.3, -35.4], [-57.5, -35.1]]]}
    },
    {
      "type": "Feature",
      "id": "north",
      "properties": {},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[1, 1], [3, 1], [3, 2], [1, 1]]]]}
    },
    {
      "type": "Feature",
      "properties": {"id": "pier-2"},
      "geometry": {"type": "Polygon", "coordinates": [[[10, 10], [11, 10], [11, 12], [10, 12], [10, 10]]]}
    }
  ]
}`

func writeCollection(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "02-RDPLATA_ROi20.geojson")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write collection: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	regions, err := Load(writeCollection(t, collection))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(regions) != 3 {
		t.Fatalf("got %d regions, want 3", len(regions))
	}

	wantIDs := []string{"7", "north", "pier-2"}
	for i, r := range regions {
		if r.ID != wantIDs[i] {
			t.Errorf("region %d: ID = %q, want %q", i, r.ID, wantIDs[i])
		}
		if len(r.Polygon) != 5 {
			t.Errorf("region %d: rectangle has %d points, want 5", i, len(r.Polygon))
		}
		if r.Polygon[0] != r.Polygon[4] {
			t.Errorf("region %d: rectangle is not closed", i)
		}
	}

	want := orb.Ring{{-57.5, -35.4}, {-57.2, -35.4}, {-57.2, -35.0}, {-57.5, -35.0}, {-57.5, -35.4}}
	if diff := cmp.Diff(want, regions[0].Polygon); diff != "" {
		t.Errorf("rectangle mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.geojson")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `nope`},
		{"point geometry", `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"id":1},"geometry":{"type":"Point","coordinates":[1,2]}}]}`},
		{"null geometry", `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"id":1},"geometry":null}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParse_IndexFallback(t *testing.T) {
	body := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`
	regions, err := Parse([]byte(body))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if regions[0].ID != "0" {
		t.Errorf("ID = %q, want index fallback 0", regions[0].ID)
	}
}

func TestRegion_Coordinates(t *testing.T) {
	r := Region{ID: "1", Polygon: SmallestRectangle(orb.Ring{{0, 0}, {2, 1}, {1, 3}, {0, 0}})}
	got := r.Coordinates()
	want := [][][2]float64{{{0, 0}, {2, 0}, {2, 3}, {0, 3}, {0, 0}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}
}
