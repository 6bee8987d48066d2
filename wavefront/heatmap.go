package wavefront

import (
	"image/color"
	"io"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// HeatmapConfig places a potential raster in the world and sizes the image.
type HeatmapConfig struct {
	Title      string
	Resolution float64
	OriginX    float64
	OriginY    float64
	Width      vg.Length
	Height     vg.Length
}

// potentialGrid adapts a potential raster to plotter.GridXYZ. Unreached
// cells are NaN.
type potentialGrid struct {
	potential  []float32
	nx, ny     int
	resolution float64
	originX    float64
	originY    float64
}

func (g potentialGrid) Dims() (c, r int) { return g.nx, g.ny }

func (g potentialGrid) Z(c, r int) float64 {
	p := g.potential[r*g.nx+c]
	if p >= PotHigh {
		return math.NaN()
	}
	return float64(p)
}

func (g potentialGrid) X(c int) float64 { return g.originX + (float64(c)+0.5)*g.resolution }

func (g potentialGrid) Y(r int) float64 { return g.originY + (float64(r)+0.5)*g.resolution }

// WriteHeatmap renders the potential raster of the last expansion as a PNG.
func (e *Expander) WriteHeatmap(w io.Writer, config HeatmapConfig) error {
	if e.nx < 2 || e.ny < 2 {
		return errors.Errorf("cannot plot a %dx%d potential raster", e.nx, e.ny)
	}
	if config.Resolution <= 0 {
		config.Resolution = 1
	}
	if config.Width == 0 {
		config.Width = 6 * vg.Inch
	}
	if config.Height == 0 {
		config.Height = 6 * vg.Inch
	}

	grid := potentialGrid{
		potential:  e.potential,
		nx:         e.nx,
		ny:         e.ny,
		resolution: config.Resolution,
		originX:    config.OriginX,
		originY:    config.OriginY,
	}
	heat := plotter.NewHeatMap(grid, moreland.SmoothBlueRed().Palette(255))
	heat.NaN = color.Gray{Y: 32}

	summary := Summarize(e.potential)
	heat.Min, heat.Max = summary.Min, summary.Max
	if heat.Max <= heat.Min {
		heat.Max = heat.Min + 1
	}

	p := plot.New()
	p.Title.Text = config.Title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	p.Add(heat)

	wt, err := p.WriterTo(config.Width, config.Height, "png")
	if err != nil {
		return errors.Wrap(err, "rendering heatmap")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing heatmap")
	}
	return nil
}
