package imagery

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/shoreline-batch/internal/params"
)

const outputDoc = `{
  "dates": ["2023-01-05 13:55:31+00:00", "2023-02-10T13:55:29Z"],
  "satname": ["S2", "S2"],
  "shorelines": [[[1, 2], [3, 4], [5, 6]], [[7, 8]]],
  "filename": ["2023-01-05-13-55-31_S2_02_2023_S2_7_dup.tif", "2023-02-10-13-55-29_S2_02_2023_S2_7.tif"],
  "cloud_cover": [0.12, 0.3],
  "geoaccuracy": [5, "PASSED"],
  "idx": [3, 9],
  "MNDWI_threshold": [0.4231, -0.1]
}`

func TestOutput_UnmarshalJSON(t *testing.T) {
	var out Output
	require.NoError(t, json.Unmarshal([]byte(outputDoc), &out))
	require.Len(t, out, 2)

	first := out[0]
	assert.Equal(t, orb.LineString{{1, 2}, {3, 4}, {5, 6}}, first.Points)
	assert.Equal(t, time.Date(2023, 1, 5, 13, 55, 31, 0, time.UTC), first.Date)
	assert.Equal(t, "S2", first.Sensor)
	assert.Equal(t, 0.12, first.CloudCover)
	assert.Equal(t, Meters(5), first.GeoAccuracy)
	assert.Equal(t, 3, first.Index)
	assert.Equal(t, 0.4231, first.MNDWIThreshold)

	assert.Equal(t, "PASSED", out[1].GeoAccuracy.String())
	assert.Equal(t, 4, out.Vertices())
}

func TestOutput_UnmarshalJSON_Misaligned(t *testing.T) {
	doc := `{"dates":["2023-01-05"],"shorelines":[[[1,2]],[[3,4]]],"filename":["a","b"],
		"cloud_cover":[0.1,0.2],"geoaccuracy":[1,2],"idx":[0,1],"MNDWI_threshold":[0,0]}`

	var out Output
	err := json.Unmarshal([]byte(doc), &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMisaligned), "got %v", err)
}

func TestOutput_UnmarshalJSON_SensorFallback(t *testing.T) {
	doc := `{"dates":["2023-01-05"],"shorelines":[[[1,2]]],"filename":["2023-01-05-10-00-00_L8_site.tif"],
		"cloud_cover":[0.1],"geoaccuracy":[4.2],"idx":[0],"MNDWI_threshold":[0.2]}`

	var out Output
	require.NoError(t, json.Unmarshal([]byte(doc), &out))
	assert.Equal(t, "L8", out[0].Sensor)
}

func TestOutput_JSONRoundTrip(t *testing.T) {
	var out Output
	require.NoError(t, json.Unmarshal([]byte(outputDoc), &out))

	data, err := json.Marshal(out)
	require.NoError(t, err)

	var again Output
	require.NoError(t, json.Unmarshal(data, &again))
	if diff := cmp.Diff(out, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMetadata_JSON(t *testing.T) {
	doc := `{"S2": {"filenames": ["a.tif", "b.tif"], "epsg": [32721, 32721], "acc_georef": ["PASSED", 7.5],
		"im_quality": ["PASSED", "PASSED"], "im_dimensions": [[100, 200], [100, 200]],
		"dates": ["2023-01-05T13:55:31Z", "2023-01-06T13:55:31Z"]}}`

	var md Metadata
	require.NoError(t, json.Unmarshal([]byte(doc), &md))
	require.Len(t, md["S2"], 2)
	assert.Equal(t, 2, md.Count())
	assert.Equal(t, 200, md["S2"][0].Width)
	assert.Equal(t, 100, md["S2"][0].Height)
	assert.Equal(t, Meters(7.5), md["S2"][1].GeoAccuracy)

	data, err := json.Marshal(md)
	require.NoError(t, err)
	var again Metadata
	require.NoError(t, json.Unmarshal(data, &again))
	if diff := cmp.Diff(md, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	bad := `{"L8": {"filenames": ["a.tif"], "epsg": [], "acc_georef": [1], "dates": ["2023-01-05"]}}`
	assert.ErrorIs(t, json.Unmarshal([]byte(bad), &md), ErrMisaligned)
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		in      string
		known   bool
		within  bool // against 10 m
		printed string
	}{
		{"5", true, true, "5"},
		{"10", true, true, "10"},
		{"10.5", true, false, "10.5"},
		{"-1", false, false, "-1"},
		{"PASSED", true, true, "PASSED"},
		{"failed", false, false, "FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, err := ParseAccuracy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.known, a.Known())
			assert.Equal(t, tt.within, a.Within(10))
			assert.Equal(t, tt.printed, a.String())
		})
	}

	_, err := ParseAccuracy("approx")
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2023, 3, 1, 10, 20, 30, 0, time.UTC)
	for _, s := range []string{
		"2023-03-01T10:20:30Z",
		"2023-03-01 10:20:30+00:00",
		"2023-03-01T07:20:30-03:00",
		"2023-03-01 10:20:30",
	} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s parsed as %v", s, got)
	}
	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}

func writeMeta(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestDiskMetadata_LoadMetadata(t *testing.T) {
	root := t.TempDir()
	in := params.Inputs{SiteName: "02_2023_S2_7", FilePath: root, Sensors: []string{"S2", "L8"}}
	metaDir := filepath.Join(root, "02_2023_S2_7", "S2", "meta")

	writeMeta(t, metaDir, "b.txt", "filename\t2023-02-10-13-55-29_S2_02_2023_S2_7.tif\nepsg\t32721\nacc_georef\tPASSED\nim_quality\tPASSED\nim_width\t300\nim_height\t200\n")
	writeMeta(t, metaDir, "a.txt", "filename\t2023-01-05-13-55-31_S2_02_2023_S2_7.tif\nepsg\t32721\nacc_georef\t6.1\n")
	writeMeta(t, metaDir, "notes.md", "ignored")

	md, err := DiskMetadata{}.LoadMetadata(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, md["S2"], 2)
	assert.NotContains(t, md, "L8")

	first := md["S2"][0]
	assert.Equal(t, "2023-01-05-13-55-31_S2_02_2023_S2_7.tif", first.Filename)
	assert.Equal(t, 32721, first.EPSG)
	assert.Equal(t, Meters(6.1), first.GeoAccuracy)
	assert.Equal(t, time.Date(2023, 1, 5, 13, 55, 31, 0, time.UTC), first.Date)
	assert.Equal(t, 300, md["S2"][1].Width)
}

func TestDiskMetadata_Empty(t *testing.T) {
	in := params.Inputs{SiteName: "x", FilePath: t.TempDir(), Sensors: []string{"S2"}}
	_, err := DiskMetadata{}.LoadMetadata(context.Background(), in)
	assert.ErrorIs(t, err, ErrNoImagery)
}

func TestReadMetaFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "bad.txt", "filename x.tif\n")
	_, err := ReadMetaFile(filepath.Join(dir, "bad.txt"))
	assert.Error(t, err)

	writeMeta(t, dir, "epsg.txt", "filename\tx.tif\nepsg\tutm\n")
	_, err = ReadMetaFile(filepath.Join(dir, "epsg.txt"))
	assert.Error(t, err)
}
