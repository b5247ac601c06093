package imagery

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Accuracy is an estimated georeferencing error in metres. The worker reports
// either a number, -1 for unknown, or the labels PASSED and FAILED for sensors
// that only expose a quality flag. The original text is kept for output.
type Accuracy struct {
	Meters float64
	Label  string
}

// Meters builds a numeric accuracy.
func Meters(m float64) Accuracy {
	return Accuracy{Meters: m}
}

// Known reports whether the accuracy carries a usable estimate. PASSED counts
// as zero error.
func (a Accuracy) Known() bool {
	switch a.Label {
	case "PASSED":
		return true
	case "":
		return a.Meters >= 0
	default:
		return false
	}
}

// Within reports whether the estimate is known and does not exceed max.
func (a Accuracy) Within(max float64) bool {
	if !a.Known() {
		return false
	}
	return a.Label == "PASSED" || a.Meters <= max
}

func (a Accuracy) String() string {
	if a.Label != "" {
		return a.Label
	}
	return strconv.FormatFloat(a.Meters, 'f', -1, 64)
}

// ParseAccuracy reads the textual form used in worker metadata files.
func ParseAccuracy(s string) (Accuracy, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "PASSED", "FAILED":
		return Accuracy{Meters: -1, Label: strings.ToUpper(s)}.normalize(), nil
	}
	m, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Accuracy{}, fmt.Errorf("invalid georeference accuracy %q", s)
	}
	return Meters(m), nil
}

func (a Accuracy) normalize() Accuracy {
	if a.Label == "PASSED" {
		a.Meters = 0
	}
	return a
}

// MarshalJSON writes the number, or the label when there is one.
func (a Accuracy) MarshalJSON() ([]byte, error) {
	if a.Label != "" {
		return json.Marshal(a.Label)
	}
	return json.Marshal(a.Meters)
}

// UnmarshalJSON accepts a number or a label string.
func (a *Accuracy) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseAccuracy(s)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	}
	var m float64
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("georeference accuracy must be a number or label: %w", err)
	}
	*a = Meters(m)
	return nil
}
