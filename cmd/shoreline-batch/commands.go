package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/shoreline-batch/internal/archive"
	"github.com/ironsheep/shoreline-batch/internal/roi"
	"github.com/ironsheep/shoreline-batch/internal/synopsis"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "shoreline-batch %s\n", Version)
		fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
	},
}

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "List the zone codes and their ROI files",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for _, code := range cfg.Zones() {
			mark := " "
			if code == cfg.Zone {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s  %s\n", mark, code, cfg.ROIFiles[code])
		}
	},
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the regions of the selected zone",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cfg.ROIPath()
		if err != nil {
			return err
		}
		regions, err := roi.Load(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, r := range regions {
			b := r.Polygon.Bound()
			fmt.Fprintf(out, "%-8s [%.5f %.5f] [%.5f %.5f]\n", r.ID, b.Min[0], b.Min[1], b.Max[0], b.Max[1])
		}
		fmt.Fprintf(out, "%d regions in %s\n", len(regions), path)
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive <dir>",
	Short: "Prune and zip a run directory left by an interrupted run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keep := append(append([]string(nil), cfg.Archive.KeepExtensions...), cfg.Export.Extension)
		keepDirs := cfg.Archive.KeepDirs
		if cfg.Synopsis.Enabled {
			keepDirs = append(append([]string(nil), keepDirs...), synopsis.Dir)
		}
		a := archive.New(keep, keepDirs, cfg.Archive.RemoveSource, logger.Named("archive"))
		path, err := a.Archive(args[0])
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s does not exist, nothing archived\n", args[0])
			return nil
		}
		logger.Info("archive written", zap.String("path", path))
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}
