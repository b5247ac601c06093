package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Tile is one scene on a contact sheet.
type Tile struct {
	Path       string
	Label      string
	CloudCover float64
}

// SheetOptions controls contact sheet layout. Zero values take defaults.
type SheetOptions struct {
	// ThumbSize bounds the thumbnail's longer side in pixels (default 256).
	ThumbSize int

	// Columns is the number of tiles per row (default 4).
	Columns int

	// Border is the width of the cloud cover frame (default 4).
	Border int

	// Gap separates tiles and the sheet edge (default 8).
	Gap int

	// Contrast is passed to bild's adjust.Contrast; 0 leaves thumbnails
	// untouched, 0.3 is +30%. Worker previews are flat, so a small boost helps.
	Contrast float64

	Background color.Color
}

// labelHeight is the line height of basicfont.Face7x13.
const labelHeight = 13

func (o SheetOptions) withDefaults() (SheetOptions, error) {
	if o.ThumbSize == 0 {
		o.ThumbSize = 256
	}
	if o.Columns == 0 {
		o.Columns = 4
	}
	if o.Border == 0 {
		o.Border = 4
	}
	if o.Gap == 0 {
		o.Gap = 8
	}
	if o.Background == nil {
		o.Background = color.NRGBA{R: 245, G: 245, B: 240, A: 255}
	}
	if o.ThumbSize < 8 || o.Columns < 1 || o.Border < 0 || o.Gap < 0 {
		return o, fmt.Errorf("invalid sheet layout: thumb %d, columns %d, border %d, gap %d",
			o.ThumbSize, o.Columns, o.Border, o.Gap)
	}
	if o.Contrast <= -1 || o.Contrast >= 1 {
		return o, fmt.Errorf("contrast must be within (-1, 1), got %v", o.Contrast)
	}
	return o, nil
}

// ContactSheet lays tiles out row-major on a single image. Each thumbnail is
// fitted into a ThumbSize square, centered on a frame colored by CloudColor,
// and labelled underneath.
func ContactSheet(cache *ThumbnailCache, tiles []Tile, opts SheetOptions) (*image.NRGBA, error) {
	if len(tiles) == 0 {
		return nil, fmt.Errorf("contact sheet needs at least one tile")
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	cols := opts.Columns
	if len(tiles) < cols {
		cols = len(tiles)
	}
	rows := (len(tiles) + cols - 1) / cols

	cell := opts.ThumbSize + 2*opts.Border
	cellH := cell + labelHeight + 3
	width := cols*cell + (cols+1)*opts.Gap
	height := rows*cellH + (rows+1)*opts.Gap
	sheet := imaging.New(width, height, opts.Background)

	fg := color.NRGBA{R: 30, G: 30, B: 30, A: 255}
	bg := color.NRGBAModel.Convert(opts.Background).(color.NRGBA)

	for i, t := range tiles {
		thumb, err := cache.Thumbnail(t.Path, opts.ThumbSize)
		if err != nil {
			return nil, err
		}
		frame := framedThumbnail(thumb, t.CloudCover, opts)

		x := opts.Gap + (i%cols)*(cell+opts.Gap)
		y := opts.Gap + (i/cols)*(cellH+opts.Gap)
		draw.Draw(sheet, image.Rect(x, y, x+cell, y+cell), frame, image.Point{}, draw.Src)
		drawLabel(sheet, x+opts.Border, y+cell+2, t.Label, fg, bg)
	}
	return sheet, nil
}

func framedThumbnail(thumb image.Image, cloudCover float64, opts SheetOptions) *image.NRGBA {
	if opts.Contrast != 0 {
		thumb = adjust.Contrast(thumb, opts.Contrast)
	}

	cell := opts.ThumbSize + 2*opts.Border
	frame := imaging.New(cell, cell, CloudColor(cloudCover))
	b := thumb.Bounds()
	offset := image.Pt(opts.Border+(opts.ThumbSize-b.Dx())/2, opts.Border+(opts.ThumbSize-b.Dy())/2)
	return imaging.Paste(frame, thumb, offset)
}

// SaveSheet writes img to path, creating parent directories. The format
// follows the extension.
func SaveSheet(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create sheet directory: %w", err)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("failed to save contact sheet: %w", err)
	}
	return nil
}

// drawLabel draws text in basicfont's 7x13 face on a bg box whose top-left
// corner is (x, y). Pixels outside img are clipped.
func drawLabel(img draw.Image, x, y int, text string, fg, bg color.NRGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(fg), Face: face}

	box := image.Rect(x-1, y-1, x+d.MeasureString(text).Ceil()+1, y+labelHeight)
	draw.Draw(img, box.Intersect(img.Bounds()), image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dot = fixed.P(x, y+face.Ascent)
	d.DrawString(text)
}
