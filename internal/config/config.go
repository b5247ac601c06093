// Package config holds the run configuration for a shoreline batch.
//
// A run is fully described by a Config value: the coastal zone to process, the
// acquisition year, the sensors, the processing thresholds handed to the image
// worker, and the export/archive/publish settings. DefaultConfig reproduces the
// production constants; Load overlays a YAML file and SHORELINE_* environment
// variables on top of them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete description of one batch run.
type Config struct {
	// Zone selects the ROI file through ROIFiles (e.g. "02").
	Zone string `yaml:"zone"`

	// Year bounds the acquisition window to [Year-01-01, Year-12-31].
	Year int `yaml:"year"`

	// Sensors is the list of missions to query (L5, L7, L8, L9, S2).
	Sensors []string `yaml:"sensors"`

	// Collection is the Landsat collection, C01 or C02.
	Collection string `yaml:"collection"`

	// ROIDir is the directory holding the zone GeoJSON files.
	ROIDir string `yaml:"roi_dir"`

	// ROIFiles maps zone codes to GeoJSON file names.
	ROIFiles map[string]string `yaml:"roi_files"`

	// OutputRoot is the parent of every run directory.
	OutputRoot string `yaml:"output_root"`

	Processing ProcessingConfig `yaml:"processing"`
	Filters    FilterConfig     `yaml:"filters"`
	Export     ExportConfig     `yaml:"export"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Worker     WorkerConfig     `yaml:"worker"`
	Synopsis   SynopsisConfig   `yaml:"synopsis"`
	Publish    PublishConfig    `yaml:"publish"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ProcessingConfig holds the thresholds passed to the worker with every region.
type ProcessingConfig struct {
	CloudThresh     float64 `yaml:"cloud_thresh"`
	DistClouds      float64 `yaml:"dist_clouds"`
	OutputEPSG      int     `yaml:"output_epsg"`
	CheckDetection  bool    `yaml:"check_detection"`
	AdjustDetection bool    `yaml:"adjust_detection"`
	SaveFigure      bool    `yaml:"save_figure"`
	MinBeachArea    float64 `yaml:"min_beach_area"`
	MinLengthSL     float64 `yaml:"min_length_sl"`
	CloudMaskIssue  bool    `yaml:"cloud_mask_issue"`
	SandColor       string  `yaml:"sand_color"`
	PanOff          bool    `yaml:"pan_off"`
	S2CloudlessProb float64 `yaml:"s2cloudless_prob"`
}

// FilterConfig configures the post-extraction stages.
type FilterConfig struct {
	RemoveDuplicates bool    `yaml:"remove_duplicates"`
	MaxGeoreference  float64 `yaml:"max_georeference_error"`
}

// ExportConfig configures the per-region output files.
type ExportConfig struct {
	TargetEPSG      int    `yaml:"target_epsg"`
	Extension       string `yaml:"extension"`
	FilenamePattern string `yaml:"filename_pattern"`
	Decimals        int    `yaml:"decimals"`
}

// ArchiveConfig configures the end-of-run cleanup and zip.
type ArchiveConfig struct {
	Enabled        bool     `yaml:"enabled"`
	KeepExtensions []string `yaml:"keep_extensions"`
	KeepDirs       []string `yaml:"keep_dirs"`
	RemoveSource   bool     `yaml:"remove_source"`
}

// WorkerConfig describes how the image worker is launched.
type WorkerConfig struct {
	Command []string `yaml:"command"`
	Dir     string   `yaml:"dir"`

	// MetadataSource is "worker" or "disk".
	MetadataSource string `yaml:"metadata_source"`
}

// SynopsisConfig toggles the per-region plot and contact sheet.
type SynopsisConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Plot         bool    `yaml:"plot"`
	ContactSheet bool    `yaml:"contact_sheet"`
	ThumbSize    int     `yaml:"thumb_size"`
	Columns      int     `yaml:"columns"`
	Contrast     float64 `yaml:"contrast"`
}

// PublishConfig configures the optional upload of the run archive.
type PublishConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// DefaultROIFiles is the zone code table of the Argentine coast.
func DefaultROIFiles() map[string]string {
	return map[string]string{
		"00": "00-ORIENTALES_ROi20.geojson",
		"01": "01-DELTA_ROi20.geojson",
		"02": "02-RDPLATA_ROi20.geojson",
		"03": "03-SAMBOROMBON_ROi20.geojson",
		"04": "04-MEDANOS_ROi20.geojson",
		"05": "05-NECOCHEA_ROi20.geojson",
		"06": "06-BBLANCA_ROi20.geojson",
		"07": "07-VIEDMA_ROi20.geojson",
		"08": "08-SJULIAN_ROi20.geojson",
		"09": "09-VALDES_ROi20.geojson",
		"10": "10-SJORGE_ROi20.geojson",
		"11": "11-DESEADO_ROi20.geojson",
		"12": "12-BGRANDE_ROi20.geojson",
		"13": "13-TDFUEGO_ROi20.geojson",
		"14": "14-ESTADOS_ROi20.geojson",
		"15": "15-MALVINAS_ROi20.geojson",
		"16": "16-GEORGIAS_ROi20.geojson",
		"17": "17-SANDWICH_ROi20.geojson",
	}
}

// DefaultConfig returns the production run configuration.
func DefaultConfig() *Config {
	return &Config{
		Zone:       "02",
		Year:       2023,
		Sensors:    []string{"S2"},
		Collection: "C02",
		ROIDir:     ".",
		ROIFiles:   DefaultROIFiles(),
		OutputRoot: "procesado",

		Processing: ProcessingConfig{
			CloudThresh:     1,
			DistClouds:      300,
			OutputEPSG:      3857,
			CheckDetection:  false,
			AdjustDetection: false,
			SaveFigure:      true,
			MinBeachArea:    4500,
			MinLengthSL:     200,
			CloudMaskIssue:  false,
			SandColor:       "default",
			PanOff:          false,
			S2CloudlessProb: 40,
		},

		Filters: FilterConfig{
			RemoveDuplicates: true,
			MaxGeoreference:  10,
		},

		Export: ExportConfig{
			TargetEPSG: 4326,
			Extension:  ".txt",
			Decimals:   5,
		},

		Archive: ArchiveConfig{
			Enabled:        true,
			KeepExtensions: []string{".txt"},
			RemoveSource:   true,
		},

		Worker: WorkerConfig{
			Command:        []string{"python3", "-m", "coastsat_worker"},
			MetadataSource: "worker",
		},

		Synopsis: SynopsisConfig{
			Enabled:      false,
			Plot:         true,
			ContactSheet: true,
			ThumbSize:    256,
			Columns:      4,
			Contrast:     0.2,
		},

		Publish: PublishConfig{
			Region: "us-east-1",
			Bucket: "shorelines",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("SHORELINE_ZONE"); v != "" {
		c.Zone = v
	}
	if v := os.Getenv("SHORELINE_YEAR"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SHORELINE_YEAR %q: %w", v, err)
		}
		c.Year = year
	}
	if v := os.Getenv("SHORELINE_SENSORS"); v != "" {
		c.Sensors = splitList(v)
	}
	if v := os.Getenv("SHORELINE_ROI_DIR"); v != "" {
		c.ROIDir = v
	}
	if v := os.Getenv("SHORELINE_OUTPUT_ROOT"); v != "" {
		c.OutputRoot = v
	}
	if v := os.Getenv("SHORELINE_WORKER"); v != "" {
		c.Worker.Command = strings.Fields(v)
	}
	if v := os.Getenv("SHORELINE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SHORELINE_MINIO_ENDPOINT"); v != "" {
		c.Publish.Endpoint = v
		c.Publish.Enabled = true
	}
	if v := os.Getenv("SHORELINE_MINIO_ACCESS_KEY"); v != "" {
		c.Publish.AccessKey = v
	}
	if v := os.Getenv("SHORELINE_MINIO_SECRET_KEY"); v != "" {
		c.Publish.SecretKey = v
	}
	if v := os.Getenv("SHORELINE_MINIO_BUCKET"); v != "" {
		c.Publish.Bucket = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ROIPath resolves the GeoJSON file of the configured zone.
func (c *Config) ROIPath() (string, error) {
	name, ok := c.ROIFiles[c.Zone]
	if !ok {
		return "", fmt.Errorf("unknown zone code %q", c.Zone)
	}
	return filepath.Join(c.ROIDir, name), nil
}

// Dates returns the inclusive acquisition window for the configured year.
func (c *Config) Dates() [2]string {
	return [2]string{
		fmt.Sprintf("%04d-01-01", c.Year),
		fmt.Sprintf("%04d-12-31", c.Year),
	}
}

// Zones lists the configured zone codes in order.
func (c *Config) Zones() []string {
	codes := make([]string, 0, len(c.ROIFiles))
	for code := range c.ROIFiles {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Validate checks that the configuration describes a runnable batch.
func (c *Config) Validate() error {
	if _, err := c.ROIPath(); err != nil {
		return err
	}
	if len(c.Sensors) == 0 {
		return errors.New("at least one sensor is required")
	}
	for _, s := range c.Sensors {
		window, ok := Missions[s]
		if !ok {
			return fmt.Errorf("unknown sensor %q", s)
		}
		if !window.Covers(c.Year) {
			return fmt.Errorf("sensor %s has no imagery for %d (%s)", s, c.Year, window)
		}
	}
	if c.Collection != "C01" && c.Collection != "C02" {
		return fmt.Errorf("landsat collection must be C01 or C02, got %q", c.Collection)
	}
	if strings.TrimSpace(c.OutputRoot) == "" {
		return errors.New("output root is required")
	}
	if c.Processing.OutputEPSG <= 0 || c.Export.TargetEPSG <= 0 {
		return errors.New("EPSG codes must be positive")
	}
	if !strings.HasPrefix(c.Export.Extension, ".") {
		return fmt.Errorf("export extension must start with a dot, got %q", c.Export.Extension)
	}
	if c.Filters.MaxGeoreference <= 0 {
		return errors.New("max georeference error must be positive")
	}
	switch c.Worker.MetadataSource {
	case "worker", "disk":
	default:
		return fmt.Errorf("metadata source must be worker or disk, got %q", c.Worker.MetadataSource)
	}
	if len(c.Worker.Command) == 0 {
		return errors.New("worker command is required")
	}
	if c.Publish.Enabled {
		if strings.TrimSpace(c.Publish.Endpoint) == "" || strings.TrimSpace(c.Publish.Bucket) == "" {
			return errors.New("publish requires endpoint and bucket")
		}
		if strings.Contains(c.Publish.Endpoint, "://") {
			return fmt.Errorf("endpoint must not include scheme: %q", c.Publish.Endpoint)
		}
	}
	return nil
}
