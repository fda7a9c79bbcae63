package rimage

import (
	"fmt"
	"io"
	"math"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// finiteChannel returns the finite samples of channel c.
func finiteChannel(img *FloatImage, c int) ([]float64, error) {
	if c < 0 || c >= img.channels {
		return nil, errors.Errorf("channel %d out of range for a %d channel image", c, img.channels)
	}
	values := make([]float64, 0, img.Len())
	for i := c; i < len(img.data); i += img.channels {
		if v := img.data[i]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, errors.New("no finite samples to plot")
	}
	return values, nil
}

// SaveHistogram plots the distribution of channel c of img with the given number of bins and
// saves it to path. The output format follows the extension (png, svg, pdf, ...).
func SaveHistogram(img *FloatImage, c, bins int, title, path string) error {
	values, err := finiteChannel(img, c)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "value"
	p.Y.Label.Text = "texels"
	hist, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return errors.Wrap(err, "cannot build histogram")
	}
	p.Add(hist)
	return errors.Wrapf(p.Save(6*vg.Inch, 4*vg.Inch, path), "cannot save histogram to %q", path)
}

// FprintHistogram writes a text histogram of channel c of img to w, one line per bin, with bars at
// most width characters long. A channel holding a single value prints as one line.
func FprintHistogram(w io.Writer, img *FloatImage, c, bins, width int) error {
	values, err := finiteChannel(img, c)
	if err != nil {
		return err
	}
	if minV, maxV := floats.Min(values), floats.Max(values); minV == maxV {
		_, err := fmt.Fprintf(w, "%.4g %d\n", minV, len(values))
		return err
	}
	hist := histogram.Hist(bins, values)
	return histogram.Fprint(w, hist, histogram.Linear(width))
}
