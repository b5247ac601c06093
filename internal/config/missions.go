package config

import "fmt"

// MissionWindow is the range of years a sensor has imagery for. A zero Last
// means the mission is still acquiring.
type MissionWindow struct {
	First int
	Last  int
}

// Covers reports whether the mission acquired imagery during year.
func (w MissionWindow) Covers(year int) bool {
	if year < w.First {
		return false
	}
	return w.Last == 0 || year <= w.Last
}

func (w MissionWindow) String() string {
	if w.Last == 0 {
		return fmt.Sprintf("%d-", w.First)
	}
	return fmt.Sprintf("%d-%d", w.First, w.Last)
}

// Missions lists the supported sensors.
var Missions = map[string]MissionWindow{
	"L5": {First: 1984, Last: 2012},
	"L7": {First: 1999, Last: 2021},
	"L8": {First: 2013},
	"L9": {First: 2021},
	"S2": {First: 2015},
}
