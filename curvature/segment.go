package curvature

import (
	"math"
	"sort"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"github.com/pkg/errors"

	"github.com/felipeek/gimmesh/rimage"
	"github.com/felipeek/gimmesh/utils"
)

// texelCurvature is one texel of a curvature image, clustered by its normalized magnitude.
type texelCurvature struct {
	index     int
	magnitude float64
}

func (tc texelCurvature) Coordinates() clusters.Coordinates {
	return clusters.Coordinates{tc.magnitude}
}

func (tc texelCurvature) Distance(p clusters.Coordinates) float64 {
	return math.Abs(tc.magnitude - p[0])
}

// Segment partitions the texels of a curvature image into classes by the magnitude of their first
// channel using k-means. Labels are ordered by class center, so label 0 is the flattest class. It
// returns a one channel image of labels and the center magnitude of every class. Non-finite samples
// count as flat.
func Segment(kappa *rimage.FloatImage, classes int) (*rimage.FloatImage, []float64, error) {
	if classes < 1 {
		return nil, nil, errors.Errorf("need at least one class, got %d", classes)
	}
	if kappa.Len() < classes {
		return nil, nil, errors.Errorf("cannot split %d texels into %d classes", kappa.Len(), classes)
	}

	magnitudes := make([]float64, kappa.Len())
	maxMagnitude := 0.
	for i := range magnitudes {
		v := math.Abs(kappa.Data()[i*kappa.Channels()])
		if !utils.IsFinite(v) {
			v = 0
		}
		magnitudes[i] = v
		maxMagnitude = math.Max(maxMagnitude, v)
	}
	// kmeans seeds its centers in [0, 1)
	scale := 1.
	if maxMagnitude > 0 {
		scale = 1 / maxMagnitude
	}
	observations := make(clusters.Observations, len(magnitudes))
	for i, v := range magnitudes {
		observations[i] = texelCurvature{index: i, magnitude: v * scale}
	}

	partition, err := kmeans.New().Partition(observations, classes)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot partition curvature")
	}
	sort.SliceStable(partition, func(i, j int) bool {
		return partition[i].Center[0] < partition[j].Center[0]
	})

	labels := rimage.NewFloatImage(kappa.Width(), kappa.Height(), 1)
	centers := make([]float64, len(partition))
	for label, c := range partition {
		centers[label] = c.Center[0] / scale
		for _, o := range c.Observations {
			labels.Data()[o.(texelCurvature).index] = float64(label)
		}
	}
	return labels, centers, nil
}
