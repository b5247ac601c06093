package export

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DefaultFilenamePattern matches worker image names such as
// "2023-01-05-13-55-31_S2_02_2023_S2_7_dup.tif".
const DefaultFilenamePattern = `^(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})-(?P<hour>\d{2})-(?P<minute>\d{2})-(?P<second>\d{2})_(?P<sensor>[A-Z0-9]{2})`

// TimestampLayout is the format of the fecha column.
const TimestampLayout = "02/01/2006 15:04:05"

var requiredGroups = []string{"year", "month", "day", "hour", "minute", "second", "sensor"}

// FilenamePattern extracts the acquisition time and sensor token from an
// image file name.
type FilenamePattern struct {
	re     *regexp.Regexp
	groups map[string]int
}

// Acquisition is what a file name declares about its image.
type Acquisition struct {
	Time   time.Time
	Sensor string
	// Prefix is the matched part of the name, shared by the image's previews.
	Prefix string
}

// Timestamp formats the acquisition time for output.
func (a Acquisition) Timestamp() string {
	return a.Time.Format(TimestampLayout)
}

// CompilePattern compiles expr, which must define every named group in
// requiredGroups. The empty string selects DefaultFilenamePattern.
func CompilePattern(expr string) (*FilenamePattern, error) {
	if expr == "" {
		expr = DefaultFilenamePattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filename pattern: %w", err)
	}

	groups := make(map[string]int)
	for i, name := range re.SubexpNames() {
		if name != "" {
			groups[name] = i
		}
	}
	for _, name := range requiredGroups {
		if _, ok := groups[name]; !ok {
			return nil, fmt.Errorf("filename pattern lacks group %q", name)
		}
	}
	return &FilenamePattern{re: re, groups: groups}, nil
}

// Parse reads the acquisition fields of name.
func (p *FilenamePattern) Parse(name string) (Acquisition, error) {
	m := p.re.FindStringSubmatch(name)
	if m == nil {
		return Acquisition{}, fmt.Errorf("image name %q does not match %s", name, p.re)
	}

	field := func(group string) (int, error) {
		v, err := strconv.Atoi(m[p.groups[group]])
		if err != nil {
			return 0, fmt.Errorf("image name %q: invalid %s: %w", name, group, err)
		}
		return v, nil
	}

	var parts [6]int
	for i, group := range requiredGroups[:6] {
		v, err := field(group)
		if err != nil {
			return Acquisition{}, err
		}
		parts[i] = v
	}

	t := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, time.UTC)
	// time.Date normalizes overflowing fields; a round trip exposes them.
	got := [6]int{t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()}
	if got != parts {
		return Acquisition{}, fmt.Errorf("image name %q: date out of range", name)
	}

	return Acquisition{
		Time:   t,
		Sensor: m[p.groups["sensor"]],
		Prefix: m[0],
	}, nil
}
