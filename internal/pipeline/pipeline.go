// Package pipeline runs one batch: every region of a zone through the worker,
// the filters and the exporter, then the run directory through the archiver.
//
// Regions are processed strictly one after another. A region the worker has no
// imagery for is skipped; any other failure ends the run. The run directory is
// fixed before the first region, so archiving does not depend on which regions
// succeeded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/shoreline-batch/internal/archive"
	"github.com/ironsheep/shoreline-batch/internal/config"
	"github.com/ironsheep/shoreline-batch/internal/export"
	"github.com/ironsheep/shoreline-batch/internal/filter"
	"github.com/ironsheep/shoreline-batch/internal/imagery"
	"github.com/ironsheep/shoreline-batch/internal/params"
	"github.com/ironsheep/shoreline-batch/internal/publish"
	"github.com/ironsheep/shoreline-batch/internal/roi"
	"github.com/ironsheep/shoreline-batch/internal/synopsis"
)

// Status is the outcome of one region.
type Status string

const (
	StatusExported    Status = "exported"
	StatusUnavailable Status = "unavailable"
	StatusNoImagery   Status = "no-imagery"
)

// RegionResult summarizes one region.
type RegionResult struct {
	ID       string
	SiteName string
	Status   Status

	// Images is the number of retrieved images, Shorelines the number left
	// after filtering and Rows the number of exported vertices.
	Images     int
	Shorelines int
	Rows       int

	// Means over the exported shorelines. MeanGeoAccuracy only counts known
	// estimates; both are zero when nothing was exported.
	MeanCloudCover  float64
	MeanGeoAccuracy float64

	Output   string
	Synopsis synopsis.Result
	Elapsed  time.Duration
}

// Report summarizes a run.
type Report struct {
	RunID     string
	RunDir    string
	Regions   []RegionResult
	Archive   string
	Published string
	Started   time.Time
	Finished  time.Time
}

// Count returns the number of regions with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Regions {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Rows returns the number of rows exported across regions.
func (r *Report) Rows() int {
	n := 0
	for _, res := range r.Regions {
		n += res.Rows
	}
	return n
}

// Deps are the collaborators of a run. Synopsis, Archiver and Publisher are
// optional.
type Deps struct {
	Acquirer     imagery.Acquirer
	Metadata     imagery.MetadataLoader
	Preprocessor imagery.Preprocessor
	Extractor    imagery.Extractor
	Filters      filter.Chain
	Exporter     *export.Exporter

	Synopsis  *synopsis.Writer
	Archiver  *archive.Archiver
	Publisher *publish.Publisher

	Logger *zap.Logger
}

// Runner executes a batch.
type Runner struct {
	spec  params.RunSpec
	proc  config.ProcessingConfig
	deps  Deps
	newID func() string
}

// New checks deps and returns a Runner for spec.
func New(spec params.RunSpec, proc config.ProcessingConfig, deps Deps) (*Runner, error) {
	switch {
	case deps.Acquirer == nil:
		return nil, errors.New("pipeline: acquirer is required")
	case deps.Metadata == nil:
		return nil, errors.New("pipeline: metadata loader is required")
	case deps.Preprocessor == nil:
		return nil, errors.New("pipeline: preprocessor is required")
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: extractor is required")
	case len(deps.Filters) == 0:
		return nil, errors.New("pipeline: filter chain is required")
	case deps.Exporter == nil:
		return nil, errors.New("pipeline: exporter is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Runner{spec: spec, proc: proc, deps: deps, newID: uuid.NewString}, nil
}

// RunDir is the directory every region of the run writes into.
func (r *Runner) RunDir() string {
	return r.spec.Dir()
}

// Run processes regions in order, then archives and publishes the run
// directory. On failure the report holds the regions finished so far.
func (r *Runner) Run(ctx context.Context, regions []roi.Region) (*Report, error) {
	report := &Report{
		RunID:   r.newID(),
		RunDir:  r.RunDir(),
		Started: time.Now(),
	}
	logger := r.deps.Logger.With(zap.String("run_id", report.RunID))
	logger.Info("run started",
		zap.String("run_dir", report.RunDir),
		zap.Int("regions", len(regions)),
		zap.Strings("dates", r.spec.Dates[:]),
		zap.Strings("sensors", r.spec.Sensors))

	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := r.Region(ctx, region, logger)
		if err != nil {
			return report, fmt.Errorf("region %s: %w", region.ID, err)
		}
		report.Regions = append(report.Regions, res)
	}

	if r.deps.Archiver != nil {
		zipPath, err := r.deps.Archiver.Archive(report.RunDir)
		if err != nil {
			return report, fmt.Errorf("archive: %w", err)
		}
		report.Archive = zipPath
	}

	if r.deps.Publisher != nil && report.Archive != "" {
		key, err := r.deps.Publisher.Publish(ctx, report.Archive, report.RunID)
		if err != nil {
			return report, fmt.Errorf("publish: %w", err)
		}
		report.Published = key
	}

	report.Finished = time.Now()
	logger.Info("run finished",
		zap.Int("exported", report.Count(StatusExported)),
		zap.Int("unavailable", report.Count(StatusUnavailable)),
		zap.Int("no_imagery", report.Count(StatusNoImagery)),
		zap.Int("rows", report.Rows()),
		zap.String("archive", report.Archive),
		zap.Duration("elapsed", report.Finished.Sub(report.Started)))
	return report, nil
}

// Region runs one region through acquisition, preprocessing, extraction,
// filtering and export. ErrNoImagery from acquisition yields a skipped
// result; any other error is returned.
func (r *Runner) Region(ctx context.Context, region roi.Region, logger *zap.Logger) (RegionResult, error) {
	start := time.Now()
	in := params.Build(r.spec, region)
	settings := params.NewSettings(r.proc, in)
	res := RegionResult{ID: region.ID, SiteName: in.SiteName}
	logger = logger.With(zap.String("site", in.SiteName))

	skip := func(stage string, err error) (RegionResult, error) {
		if errors.Is(err, imagery.ErrNoImagery) {
			logger.Warn("no imagery, region skipped", zap.String("stage", stage), zap.Error(err))
			res.Status = StatusNoImagery
			res.Elapsed = time.Since(start)
			return res, nil
		}
		return res, fmt.Errorf("%s: %w", stage, err)
	}

	available, err := r.deps.Acquirer.CheckAvailability(ctx, in)
	if err != nil {
		return skip("check availability", err)
	}
	if !available {
		logger.Info("imagery unavailable, region skipped")
		res.Status = StatusUnavailable
		res.Elapsed = time.Since(start)
		return res, nil
	}

	if _, err := r.deps.Acquirer.Retrieve(ctx, in); err != nil {
		return skip("retrieve", err)
	}
	md, err := r.deps.Metadata.LoadMetadata(ctx, in)
	if err != nil {
		return skip("load metadata", err)
	}
	res.Images = md.Count()

	if err := r.deps.Preprocessor.GeneratePreviews(ctx, md, settings); err != nil {
		return res, fmt.Errorf("generate previews: %w", err)
	}

	out, err := r.deps.Extractor.Extract(ctx, md, settings)
	if err != nil {
		return res, fmt.Errorf("extract: %w", err)
	}
	extracted := len(out)

	out, err = r.deps.Filters.Apply(out)
	if err != nil {
		return res, err
	}
	res.Shorelines = len(out)

	path, rows, err := r.deps.Exporter.Write(in.FilePath, in.SiteName, out)
	if err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	res.Status = StatusExported
	res.Output = path
	res.Rows = rows
	res.MeanCloudCover, res.MeanGeoAccuracy = means(out)

	if r.deps.Synopsis != nil {
		syn, err := r.deps.Synopsis.Write(in.SiteDir(), in.SiteName, out)
		if err != nil {
			logger.Warn("synopsis failed", zap.Error(err))
		}
		res.Synopsis = syn
	}

	res.Elapsed = time.Since(start)
	logger.Info("region exported",
		zap.Int("images", res.Images),
		zap.Int("extracted", extracted),
		zap.Int("kept", res.Shorelines),
		zap.Int("rows", rows),
		zap.Float64("mean_cloud_cover", res.MeanCloudCover),
		zap.String("output", path),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

func means(out imagery.Output) (cloud, accuracy float64) {
	if len(out) == 0 {
		return 0, 0
	}
	clouds := make([]float64, len(out))
	var accs []float64
	for i, s := range out {
		clouds[i] = s.CloudCover
		if s.GeoAccuracy.Known() {
			accs = append(accs, s.GeoAccuracy.Meters)
		}
	}
	cloud = stat.Mean(clouds, nil)
	if len(accs) > 0 {
		accuracy = stat.Mean(accs, nil)
	}
	return cloud, accuracy
}
