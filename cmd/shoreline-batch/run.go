package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/shoreline-batch/internal/archive"
	"github.com/ironsheep/shoreline-batch/internal/bridge"
	"github.com/ironsheep/shoreline-batch/internal/config"
	"github.com/ironsheep/shoreline-batch/internal/export"
	"github.com/ironsheep/shoreline-batch/internal/filter"
	"github.com/ironsheep/shoreline-batch/internal/imagery"
	"github.com/ironsheep/shoreline-batch/internal/params"
	"github.com/ironsheep/shoreline-batch/internal/pipeline"
	"github.com/ironsheep/shoreline-batch/internal/publish"
	"github.com/ironsheep/shoreline-batch/internal/roi"
	"github.com/ironsheep/shoreline-batch/internal/synopsis"
)

// runBatch processes every region of the configured zone.
func runBatch(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	roiPath, err := cfg.ROIPath()
	if err != nil {
		return err
	}
	regions, err := roi.Load(roiPath)
	if err != nil {
		return err
	}
	logger.Info("regions loaded", zap.String("zone", cfg.Zone), zap.String("file", roiPath), zap.Int("count", len(regions)))

	worker, err := bridge.Start(ctx, cfg.Worker.Command, cfg.Worker.Dir, logger.Named("worker"))
	if err != nil {
		return err
	}
	defer func() {
		if err := worker.Close(); err != nil {
			logger.Warn("worker exited with error", zap.Error(err))
		}
	}()

	deps, err := buildDeps(cfg, worker, logger)
	if err != nil {
		return err
	}
	runner, err := pipeline.New(params.NewRunSpec(cfg, roiPath), cfg.Processing, deps)
	if err != nil {
		return err
	}

	report, err := runner.Run(ctx, regions)
	if report != nil {
		fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
	}
	return err
}

// buildDeps wires the pipeline collaborators from cfg around worker.
func buildDeps(cfg *config.Config, worker imagery.Worker, logger *zap.Logger) (pipeline.Deps, error) {
	exp, err := export.New(export.Options{
		SourceEPSG:      cfg.Processing.OutputEPSG,
		TargetEPSG:      cfg.Export.TargetEPSG,
		FilenamePattern: cfg.Export.FilenamePattern,
		Extension:       cfg.Export.Extension,
		Decimals:        cfg.Export.Decimals,
	})
	if err != nil {
		return pipeline.Deps{}, err
	}

	deps := pipeline.Deps{
		Acquirer:     worker,
		Metadata:     worker,
		Preprocessor: worker,
		Extractor:    worker,
		Filters:      filter.New(cfg.Filters.RemoveDuplicates, cfg.Filters.MaxGeoreference),
		Exporter:     exp,
		Logger:       logger,
	}
	if cfg.Worker.MetadataSource == "disk" {
		deps.Metadata = imagery.DiskMetadata{}
	}

	keepDirs := cfg.Archive.KeepDirs
	if cfg.Synopsis.Enabled {
		deps.Synopsis = synopsis.New(synopsis.Options{
			Plot:         cfg.Synopsis.Plot,
			ContactSheet: cfg.Synopsis.ContactSheet,
			ThumbSize:    cfg.Synopsis.ThumbSize,
			Columns:      cfg.Synopsis.Columns,
			Contrast:     cfg.Synopsis.Contrast,
		}, exp, logger.Named("synopsis"))
		keepDirs = append(append([]string(nil), keepDirs...), synopsis.Dir)
	}

	if cfg.Archive.Enabled {
		keep := append(append([]string(nil), cfg.Archive.KeepExtensions...), cfg.Export.Extension)
		deps.Archiver = archive.New(keep, keepDirs, cfg.Archive.RemoveSource, logger.Named("archive"))
	}

	if cfg.Publish.Enabled {
		client, err := publish.NewMinIOClient(cfg.Publish)
		if err != nil {
			return pipeline.Deps{}, fmt.Errorf("object store: %w", err)
		}
		deps.Publisher, err = publish.New(client, cfg.Publish, logger.Named("publish"))
		if err != nil {
			return pipeline.Deps{}, err
		}
	}
	return deps, nil
}
