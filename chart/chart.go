// Package chart renders the class distribution bar chart with gonum/plot.
package chart

import (
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/nutriclass/dataset"
	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"github.com/YuminosukeSato/nutriclass/pkg/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// DefaultColors are cycled over the bars in order.
var DefaultColors = []color.Color{
	color.RGBA{R: 255, G: 255, A: 255}, // yellow
	color.RGBA{R: 255, A: 255},         // red
	color.RGBA{G: 128, A: 255},         // green
}

const (
	defaultWidth    = 6 * vg.Inch
	defaultHeight   = 4 * vg.Inch
	defaultBarWidth = 30
)

// Option configures ClassDistribution.
type Option func(*config)

type config struct {
	title  string
	xLabel string
	yLabel string
	colors []color.Color
}

// WithTitle sets the chart title.
func WithTitle(title string) Option {
	return func(c *config) { c.title = title }
}

// WithXLabel sets the X axis label, usually the label column name.
func WithXLabel(label string) Option {
	return func(c *config) { c.xLabel = label }
}

// WithColors replaces DefaultColors.
func WithColors(colors ...color.Color) Option {
	return func(c *config) { c.colors = colors }
}

// ClassDistribution builds one bar per class, in the order of counts.
func ClassDistribution(counts []dataset.ValueCount, opts ...Option) (*plot.Plot, error) {
	if len(counts) == 0 {
		return nil, errors.NewValueError("ClassDistribution", "no classes to plot")
	}
	cfg := config{yLabel: "count", colors: DefaultColors}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.colors) == 0 {
		return nil, errors.NewValidationError("colors", "at least one colour is required", len(cfg.colors))
	}

	p := plot.New()
	p.Title.Text = cfg.title
	p.X.Label.Text = cfg.xLabel
	p.Y.Label.Text = cfg.yLabel

	names := make([]string, len(counts))
	for i, vc := range counts {
		names[i] = vc.Label
		bar, err := plotter.NewBarChart(plotter.Values{float64(vc.Count)}, vg.Points(defaultBarWidth))
		if err != nil {
			return nil, errors.Wrapf(err, "bar for class %s", vc.Label)
		}
		bar.XMin = float64(i)
		bar.Color = cfg.colors[i%len(cfg.colors)]
		bar.LineStyle.Width = vg.Length(0)
		p.Add(bar)
	}
	p.NominalX(names...)
	return p, nil
}

// SavePNG writes the chart to path. The image format follows the file extension.
func SavePNG(p *plot.Plot, path string) error {
	if err := p.Save(defaultWidth, defaultHeight, path); err != nil {
		return errors.Wrapf(err, "save chart to %s", path)
	}
	log.GetLoggerWithName("chart").Debug("Chart saved",
		log.PathKey, path,
		"format", strings.TrimPrefix(filepath.Ext(path), "."),
	)
	return nil
}

// WritePNG renders the chart as PNG into w.
func WritePNG(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(defaultWidth, defaultHeight, "png")
	if err != nil {
		return errors.Wrap(err, "render chart")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write chart")
	}
	return nil
}
