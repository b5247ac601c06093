package imagery

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// The worker exchanges metadata and extraction results as column documents:
// one array per field, indexed by image. These types convert between that
// layout and the record layout used in Go.

type wireTime time.Time

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime accepts the timestamp forms emitted by the worker. Values without
// a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func (t wireTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339))
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = wireTime(parsed)
	return nil
}

type outputDocument struct {
	Dates          []wireTime     `json:"dates"`
	Sensors        []string       `json:"satname"`
	Shorelines     [][][2]float64 `json:"shorelines"`
	Filenames      []string       `json:"filename"`
	CloudCover     []float64      `json:"cloud_cover"`
	GeoAccuracy    []Accuracy     `json:"geoaccuracy"`
	Index          []int          `json:"idx"`
	MNDWIThreshold []float64      `json:"MNDWI_threshold"`
}

// MarshalJSON writes the column document.
func (o Output) MarshalJSON() ([]byte, error) {
	doc := outputDocument{
		Dates:          make([]wireTime, len(o)),
		Sensors:        make([]string, len(o)),
		Shorelines:     make([][][2]float64, len(o)),
		Filenames:      make([]string, len(o)),
		CloudCover:     make([]float64, len(o)),
		GeoAccuracy:    make([]Accuracy, len(o)),
		Index:          make([]int, len(o)),
		MNDWIThreshold: make([]float64, len(o)),
	}
	for i, s := range o {
		doc.Dates[i] = wireTime(s.Date)
		doc.Sensors[i] = s.Sensor
		pts := make([][2]float64, len(s.Points))
		for j, p := range s.Points {
			pts[j] = [2]float64{p[0], p[1]}
		}
		doc.Shorelines[i] = pts
		doc.Filenames[i] = s.Filename
		doc.CloudCover[i] = s.CloudCover
		doc.GeoAccuracy[i] = s.GeoAccuracy
		doc.Index[i] = s.Index
		doc.MNDWIThreshold[i] = s.MNDWIThreshold
	}
	return json.Marshal(doc)
}

// UnmarshalJSON reads the column document, rejecting ragged arrays with
// ErrMisaligned. A missing satname column is filled from the filenames' sensor
// token when the worker omits it.
func (o *Output) UnmarshalJSON(data []byte) error {
	var doc outputDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	n := len(doc.Shorelines)
	lengths := map[string]int{
		"dates":           len(doc.Dates),
		"filename":        len(doc.Filenames),
		"cloud_cover":     len(doc.CloudCover),
		"geoaccuracy":     len(doc.GeoAccuracy),
		"idx":             len(doc.Index),
		"MNDWI_threshold": len(doc.MNDWIThreshold),
	}
	if doc.Sensors != nil {
		lengths["satname"] = len(doc.Sensors)
	}
	for field, l := range lengths {
		if l != n {
			return fmt.Errorf("%w: %s has %d entries, shorelines has %d", ErrMisaligned, field, l, n)
		}
	}

	out := make(Output, n)
	for i := 0; i < n; i++ {
		pts := make(orb.LineString, len(doc.Shorelines[i]))
		for j, p := range doc.Shorelines[i] {
			pts[j] = orb.Point{p[0], p[1]}
		}
		sensor := ""
		if doc.Sensors != nil {
			sensor = doc.Sensors[i]
		} else {
			sensor = sensorFromFilename(doc.Filenames[i])
		}
		out[i] = Shoreline{
			Points:         pts,
			Date:           time.Time(doc.Dates[i]),
			Filename:       doc.Filenames[i],
			Sensor:         sensor,
			CloudCover:     doc.CloudCover[i],
			GeoAccuracy:    doc.GeoAccuracy[i],
			Index:          doc.Index[i],
			MNDWIThreshold: doc.MNDWIThreshold[i],
		}
	}
	*o = out
	return nil
}

// sensorFromFilename returns the token after the first underscore of a
// worker filename ("2023-01-05-13-55-31_S2_..." -> "S2").
func sensorFromFilename(name string) string {
	parts := strings.SplitN(name, "_", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

type sensorDocument struct {
	Filenames   []string   `json:"filenames"`
	EPSG        []int      `json:"epsg"`
	GeoAccuracy []Accuracy `json:"acc_georef"`
	Quality     []string   `json:"im_quality,omitempty"`
	Dimensions  [][2]int   `json:"im_dimensions,omitempty"`
	Dates       []wireTime `json:"dates"`
}

// MarshalJSON writes one column document per sensor.
func (m Metadata) MarshalJSON() ([]byte, error) {
	docs := make(map[string]sensorDocument, len(m))
	for sensor, images := range m {
		doc := sensorDocument{
			Filenames:   make([]string, len(images)),
			EPSG:        make([]int, len(images)),
			GeoAccuracy: make([]Accuracy, len(images)),
			Quality:     make([]string, len(images)),
			Dimensions:  make([][2]int, len(images)),
			Dates:       make([]wireTime, len(images)),
		}
		for i, img := range images {
			doc.Filenames[i] = img.Filename
			doc.EPSG[i] = img.EPSG
			doc.GeoAccuracy[i] = img.GeoAccuracy
			doc.Quality[i] = img.Quality
			doc.Dimensions[i] = [2]int{img.Height, img.Width}
			doc.Dates[i] = wireTime(img.Date)
		}
		docs[sensor] = doc
	}
	return json.Marshal(docs)
}

// UnmarshalJSON reads per-sensor column documents.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var docs map[string]sensorDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return err
	}

	out := make(Metadata, len(docs))
	for sensor, doc := range docs {
		n := len(doc.Filenames)
		if len(doc.EPSG) != n || len(doc.GeoAccuracy) != n || len(doc.Dates) != n {
			return fmt.Errorf("%w: metadata for %s", ErrMisaligned, sensor)
		}
		if (doc.Quality != nil && len(doc.Quality) != n) || (doc.Dimensions != nil && len(doc.Dimensions) != n) {
			return fmt.Errorf("%w: metadata for %s", ErrMisaligned, sensor)
		}
		images := make([]Image, n)
		for i := range images {
			images[i] = Image{
				Filename:    doc.Filenames[i],
				EPSG:        doc.EPSG[i],
				GeoAccuracy: doc.GeoAccuracy[i],
				Date:        time.Time(doc.Dates[i]),
			}
			if doc.Quality != nil {
				images[i].Quality = doc.Quality[i]
			}
			if doc.Dimensions != nil {
				images[i].Height = doc.Dimensions[i][0]
				images[i].Width = doc.Dimensions[i][1]
			}
		}
		out[sensor] = images
	}
	*m = out
	return nil
}
