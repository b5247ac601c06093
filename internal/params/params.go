// Package params builds the per-region parameter sets sent to the image worker.
//
// Everything here is pure: no disk or network access. Inputs and Settings are
// values; a new pair is built for every region.
package params

import (
	"path/filepath"

	"github.com/ironsheep/shoreline-batch/internal/config"
	"github.com/ironsheep/shoreline-batch/internal/roi"
)

// RunSpec is the part of the run configuration shared by every region.
type RunSpec struct {
	ROIFile    string
	Dates      [2]string
	Sensors    []string
	Collection string
	OutputRoot string
}

// NewRunSpec derives the run spec from a validated configuration.
func NewRunSpec(cfg *config.Config, roiFile string) RunSpec {
	return RunSpec{
		ROIFile:    filepath.Base(roiFile),
		Dates:      cfg.Dates(),
		Sensors:    append([]string(nil), cfg.Sensors...),
		Collection: cfg.Collection,
		OutputRoot: cfg.OutputRoot,
	}
}

// Key is the run tag: zone prefix of the ROI file, start year, first sensor,
// e.g. "02_2023_S2".
func (s RunSpec) Key() string {
	sensor := ""
	if len(s.Sensors) > 0 {
		sensor = prefix(s.Sensors[0], 2)
	}
	return prefix(s.ROIFile, 2) + "_" + prefix(s.Dates[0], 4) + "_" + sensor
}

// Dir is the run directory every region writes into.
func (s RunSpec) Dir() string {
	return filepath.Join(s.OutputRoot, s.Key())
}

// Inputs identifies one region's acquisition request.
type Inputs struct {
	Polygon    [][][2]float64 `json:"polygon"`
	Dates      [2]string      `json:"dates"`
	Sensors    []string       `json:"sat_list"`
	SiteName   string         `json:"sitename"`
	FilePath   string         `json:"filepath"`
	Collection string         `json:"landsat_collection"`
}

// Build constructs the Inputs of one region.
func Build(spec RunSpec, region roi.Region) Inputs {
	return Inputs{
		Polygon:    region.Coordinates(),
		Dates:      spec.Dates,
		Sensors:    append([]string(nil), spec.Sensors...),
		SiteName:   spec.Key() + "_" + region.ID,
		FilePath:   spec.Dir(),
		Collection: spec.Collection,
	}
}

// Settings are the processing thresholds plus the region they apply to.
type Settings struct {
	CloudThresh     float64 `json:"cloud_thresh"`
	DistClouds      float64 `json:"dist_clouds"`
	OutputEPSG      int     `json:"output_epsg"`
	CheckDetection  bool    `json:"check_detection"`
	AdjustDetection bool    `json:"adjust_detection"`
	SaveFigure      bool    `json:"save_figure"`
	MinBeachArea    float64 `json:"min_beach_area"`
	MinLengthSL     float64 `json:"min_length_sl"`
	CloudMaskIssue  bool    `json:"cloud_mask_issue"`
	SandColor       string  `json:"sand_color"`
	PanOff          bool    `json:"pan_off"`
	S2CloudlessProb float64 `json:"s2cloudless_prob"`
	Inputs          Inputs  `json:"inputs"`
}

// NewSettings embeds in into the run's processing thresholds.
func NewSettings(proc config.ProcessingConfig, in Inputs) Settings {
	return Settings{
		CloudThresh:     proc.CloudThresh,
		DistClouds:      proc.DistClouds,
		OutputEPSG:      proc.OutputEPSG,
		CheckDetection:  proc.CheckDetection,
		AdjustDetection: proc.AdjustDetection,
		SaveFigure:      proc.SaveFigure,
		MinBeachArea:    proc.MinBeachArea,
		MinLengthSL:     proc.MinLengthSL,
		CloudMaskIssue:  proc.CloudMaskIssue,
		SandColor:       proc.SandColor,
		PanOff:          proc.PanOff,
		S2CloudlessProb: proc.S2CloudlessProb,
		Inputs:          in,
	}
}

// SiteDir is where the worker caches a region's downloads and previews.
func (in Inputs) SiteDir() string {
	return filepath.Join(in.FilePath, in.SiteName)
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
