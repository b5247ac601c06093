package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/shoreline-batch/internal/config"
	"github.com/ironsheep/shoreline-batch/internal/logging"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	// Global flags
	configPath   string
	zone         string
	year         int
	sensors      []string
	outputRoot   string
	roiDir       string
	logLevel     string
	synopsisFlag bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shoreline-batch",
	Short: "Batch shoreline extraction for one coastal zone",
	Long: `shoreline-batch extracts satellite-derived shorelines for every region of
interest of a coastal zone and writes one CSV file per region.

Imagery retrieval and shoreline detection are delegated to an image worker
process started from the worker.command setting and spoken to over JSON-RPC
on its stdin/stdout. When every region is done the run directory is pruned
to its output files and zipped.

Configuration is read from --config (YAML), then SHORELINE_* environment
variables, then command-line flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runBatch,
}

// loadConfig layers flags the user set over the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("zone") {
		c.Zone = zone
	}
	if flags.Changed("year") {
		c.Year = year
	}
	if flags.Changed("sensor") {
		c.Sensors = sensors
	}
	if flags.Changed("output-root") {
		c.OutputRoot = outputRoot
	}
	if flags.Changed("roi-dir") {
		c.ROIDir = roiDir
	}
	if flags.Changed("log-level") {
		c.Logging.Level = logLevel
	}
	if flags.Changed("synopsis") {
		c.Synopsis.Enabled = synopsisFlag
	}
	return c, nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "shoreline.yaml", "Configuration file (missing file means defaults)")
	flags.StringVarP(&zone, "zone", "z", "", "Zone code, see the zones command")
	flags.IntVarP(&year, "year", "y", 0, "Acquisition year")
	flags.StringSliceVarP(&sensors, "sensor", "s", nil, "Sensor codes (L5, L7, L8, L9, S2)")
	flags.StringVar(&outputRoot, "output-root", "", "Parent directory of run directories")
	flags.StringVar(&roiDir, "roi-dir", "", "Directory holding the zone GeoJSON files")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVar(&synopsisFlag, "synopsis", false, "Render a shoreline plot and preview contact sheet per region")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(zonesCmd)
	rootCmd.AddCommand(regionsCmd)
	rootCmd.AddCommand(archiveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
