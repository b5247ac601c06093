// Package synopsis renders a visual summary of each exported region: a plot
// of its shorelines and a contact sheet of the worker's previews.
//
// Summaries are a by-product of a run. The pipeline logs their failures and
// carries on; nothing downstream reads them.
package synopsis

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ironsheep/shoreline-batch/internal/export"
	"github.com/ironsheep/shoreline-batch/internal/imagery"
	"github.com/ironsheep/shoreline-batch/internal/imaging"
)

// Dir is the summary directory inside a site directory.
const Dir = "synopsis"

// PreviewDir is where the worker leaves a site's preprocessed previews,
// relative to the site directory.
var PreviewDir = filepath.Join("jpg_files", "preprocessed")

// Oldest and newest shorelines are drawn at the ends of this scale.
var (
	earliest = colorful.Color{R: 0.19, G: 0.21, B: 0.58}
	latest   = colorful.Color{R: 0.99, G: 0.68, B: 0.38}
)

// Options selects the summaries to render.
type Options struct {
	Plot         bool
	ContactSheet bool
	ThumbSize    int
	Columns      int
	Contrast     float64
}

// Result lists the files written for a region.
type Result struct {
	PlotPath  string
	SheetPath string
	Tiles     int
}

// Writer renders region summaries.
type Writer struct {
	opts    Options
	proj    *export.Reprojector
	pattern *export.FilenamePattern
	cache   *imaging.ThumbnailCache
	logger  *zap.Logger
}

// New returns a Writer that reprojects and names scenes the way exp does.
func New(opts Options, exp *export.Exporter, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		opts:    opts,
		proj:    exp.Reprojector(),
		pattern: exp.Pattern(),
		cache:   imaging.NewThumbnailCache(),
		logger:  logger,
	}
}

// Write renders the enabled summaries of out into <siteDir>/synopsis. An
// empty out writes nothing.
func (w *Writer) Write(siteDir, siteName string, out imagery.Output) (Result, error) {
	var res Result
	if len(out) == 0 {
		return res, nil
	}
	dir := filepath.Join(siteDir, Dir)

	if w.opts.Plot {
		path := filepath.Join(dir, siteName+"_shorelines.png")
		if err := w.Plot(path, siteName, out); err != nil {
			return res, err
		}
		res.PlotPath = path
	}

	if w.opts.ContactSheet {
		defer w.cache.Clear()
		path := filepath.Join(dir, siteName+"_previews.jpg")
		n, err := w.Sheet(filepath.Join(siteDir, PreviewDir), path, out)
		if err != nil {
			return res, err
		}
		if n > 0 {
			res.SheetPath = path
			res.Tiles = n
		}
	}
	return res, nil
}

// Plot draws one line per shoreline in target coordinates, colored from
// oldest to newest, and saves it to path.
func (w *Writer) Plot(path, title string, out imagery.Output) error {
	sorted := append(imagery.Output(nil), out...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = fmt.Sprintf("x (EPSG:%d)", w.proj.To)
	p.Y.Label.Text = fmt.Sprintf("y (EPSG:%d)", w.proj.To)
	p.Add(plotter.NewGrid())

	colors := imaging.Palette(len(sorted), earliest, latest)
	for i, s := range sorted {
		if len(s.Points) == 0 {
			continue
		}
		projected := w.proj.LineString(s.Points)
		pts := make(plotter.XYs, len(projected))
		for j, q := range projected {
			pts[j] = plotter.XY{X: q[0], Y: q[1]}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("shoreline %s: %w", s.Filename, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Date.UTC().Format("2006-01-02")+" "+s.Sensor, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save shoreline plot: %w", err)
	}
	return nil
}

// Sheet builds a contact sheet from the previews in previewDir that belong to
// the scenes in out and saves it to path. Scenes without a preview are left
// out; if none has one, nothing is written and Sheet returns 0.
func (w *Writer) Sheet(previewDir, path string, out imagery.Output) (int, error) {
	var tiles []imaging.Tile
	for _, s := range out {
		acq, err := w.pattern.Parse(s.Filename)
		if err != nil {
			return 0, err
		}
		previews, err := imaging.FindPreviews(previewDir, acq.Prefix)
		if err != nil {
			return 0, err
		}
		if len(previews) == 0 {
			w.logger.Debug("no preview for scene", zap.String("image", s.Filename))
			continue
		}
		tiles = append(tiles, imaging.Tile{
			Path:       previews[0],
			Label:      fmt.Sprintf("%s %d%%", acq.Time.Format("2006-01-02"), int(s.CloudCover*100+0.5)),
			CloudCover: s.CloudCover,
		})
	}
	if len(tiles) == 0 {
		return 0, nil
	}

	sheet, err := imaging.ContactSheet(w.cache, tiles, imaging.SheetOptions{
		ThumbSize: w.opts.ThumbSize,
		Columns:   w.opts.Columns,
		Contrast:  w.opts.Contrast,
	})
	if err != nil {
		return 0, err
	}
	if err := imaging.SaveSheet(sheet, path); err != nil {
		return 0, err
	}
	return len(tiles), nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}
