package chart

import (
	"image/color"

	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/common"
	"github.com/uyouii/weather-calibration/model"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	width  = 10 * vg.Inch
	height = 5 * vg.Inch
)

var (
	observationColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	rawColor         = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	correctedColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bandColor        = color.RGBA{R: 31, G: 119, B: 180, A: 120}
)

// CorrectionChart plots observed, raw and corrected values against the report
// percentiles. The image format follows the extension of path.
func CorrectionChart(report *model.CorrectionReport, path string) error {
	if report == nil || report.PercentileComparison == nil {
		return errors.Wrap(common.ErrorInvalidValue, "correction report has no percentile comparison")
	}
	pc := report.PercentileComparison

	p := plot.New()
	p.Title.Text = "Quantile Mapping - " + report.FittedMethod
	p.X.Label.Text = "Percentile"
	p.Y.Label.Text = "Value"

	series := []struct {
		label  string
		values []float64
		color  color.Color
	}{
		{"observations", pc.Observations, observationColor},
		{"model raw", pc.ModelRaw, rawColor},
		{"model corrected", pc.ModelCorrected, correctedColor},
	}
	for _, s := range series {
		line, points, err := plotter.NewLinePoints(xys(pc.Percentiles, s.values))
		if err != nil {
			return errors.Wrapf(err, "plot %s", s.label)
		}
		line.Color = s.color
		line.Width = vg.Points(1.5)
		points.Color = s.color
		points.Shape = draw.CircleGlyph{}
		p.Add(line, points)
		p.Legend.Add(s.label, line, points)
	}
	legendTopLeft(p)

	if err := p.Save(width, height, path); err != nil {
		return errors.Wrap(err, "save correction chart")
	}
	return nil
}

// BmaChart plots the combined mean with its 95% bounds over the observations.
func BmaChart(observations []float64, prediction *model.BmaPrediction, path string) error {
	if prediction == nil || prediction.Len() == 0 {
		return errors.Wrap(common.ErrorInvalidValue, "bma prediction is empty")
	}
	steps := make([]float64, prediction.Len())
	for i := range steps {
		steps[i] = float64(i)
	}

	p := plot.New()
	p.Title.Text = "Bayesian Model Averaging"
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Value"

	mean, err := plotter.NewLine(xys(steps, prediction.Mean))
	if err != nil {
		return errors.Wrap(err, "plot mean")
	}
	mean.Color = correctedColor
	mean.Width = vg.Points(1.5)

	lower, err := plotter.NewLine(xys(steps, prediction.Lower95))
	if err != nil {
		return errors.Wrap(err, "plot lower bound")
	}
	upper, err := plotter.NewLine(xys(steps, prediction.Upper95))
	if err != nil {
		return errors.Wrap(err, "plot upper bound")
	}
	for _, l := range []*plotter.Line{lower, upper} {
		l.Color = bandColor
		l.Width = vg.Points(1)
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	}

	p.Add(lower, upper, mean)
	p.Legend.Add("bma mean", mean)
	p.Legend.Add("95% interval", lower)

	if len(observations) > 0 {
		n := min(len(observations), len(steps))
		obs, err := plotter.NewScatter(xys(steps[:n], observations[:n]))
		if err != nil {
			return errors.Wrap(err, "plot observations")
		}
		obs.Color = observationColor
		obs.Shape = draw.CircleGlyph{}
		p.Add(obs)
		p.Legend.Add("observations", obs)
	}
	legendTopLeft(p)

	if err := p.Save(width, height, path); err != nil {
		return errors.Wrap(err, "save bma chart")
	}
	return nil
}

func xys(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return pts
}

func legendTopLeft(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10
}
