package cli

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/felipeek/gimmesh/config"
	"github.com/felipeek/gimmesh/curvature"
	"github.com/felipeek/gimmesh/filter"
	"github.com/felipeek/gimmesh/gim"
	"github.com/felipeek/gimmesh/logging"
	"github.com/felipeek/gimmesh/rimage"
)

const histogramBins = 64

// RunJob loads the job's input, runs its noise and filter stages in order and writes its outputs.
func RunJob(ctx context.Context, job *config.Job, logger logging.Logger) error {
	stages, err := job.Validate("")
	if err != nil {
		return err
	}

	start := time.Now()
	loaded, err := gim.Parse(job.Input)
	if err != nil {
		return err
	}
	loaded.Update3D()
	logger.Infow("loaded geometry image", "path", job.Input, "width", loaded.Width(), "height", loaded.Height())
	gim.Check(logger.Sublogger("input"), loaded.Img)

	current := loaded
	if job.Noise != nil {
		noise := filter.Noise{Intensity: job.Noise.Intensity, Seed: job.Noise.Seed}
		current, err = filter.NewEngine(logger.Sublogger("noise")).Apply(current, 1, noise)
		if err != nil {
			return err
		}
	}

	engine := filter.NewEngine(logger.Sublogger("filter"))
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		current, err = engine.Apply(current, stage.Iterations, stage.Config)
		if err != nil {
			return errors.Wrapf(err, "filter stage %d", i)
		}
	}

	if job.Outputs.Metrics {
		metrics, err := gim.Compare(loaded, current)
		if err != nil {
			return err
		}
		logger.Infow("displacement",
			"mean", metrics.Mean,
			"stddev", metrics.StdDev,
			"rms", metrics.RMS,
			"p95", metrics.P95,
			"max", metrics.Max,
			"surface_distance", metrics.MeanSurfaceDistance,
			"noise_before", gim.EstimateNoise(loaded),
			"noise_after", gim.EstimateNoise(current))
	}

	if err := WriteOutputs(ctx, current, &job.Outputs, logger); err != nil {
		return err
	}
	logger.Infow("job done", "took", time.Since(start).String())
	return nil
}

// WriteOutputs writes every output of outputs concurrently. g must be derived and is only read.
// Once one write fails the ones not yet started are skipped.
func WriteOutputs(ctx context.Context, g *gim.GeometryImage, outputs *config.Outputs, logger logging.Logger) error {
	errs, ctx := errgroup.WithContext(ctx)
	write := func(path string, f func() error) {
		if path == "" {
			return
		}
		errs.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f(); err != nil {
				return err
			}
			logger.Infow("wrote", "path", path)
			return nil
		})
	}

	write(outputs.Obj, func() error { return gim.ExportToObjFile(g, outputs.Obj) })
	write(outputs.PointCloud, func() error {
		if outputs.PointCloudTexture == "" {
			return gim.ExportToPointCloudFile(g, outputs.PointCloud)
		}
		texture, err := rimage.ReadFloatImageFromFile(outputs.PointCloudTexture, g.Width(), g.Height())
		if err != nil {
			return &gim.ExportError{Path: outputs.PointCloud, Err: err}
		}
		return gim.ExportTexturedPointCloudFile(g, outputs.PointCloud, texture)
	})
	write(outputs.Gim, func() error { return gim.ExportToGimFile(g, outputs.Gim) })
	write(outputs.Image, func() error { return gim.NormalizeAndSave(g, outputs.Image) })
	write(outputs.Normals, func() error {
		normals, err := gim.NormalsImage(g)
		if err == nil {
			err = rimage.WriteFloatImageToFile(outputs.Normals, normals)
		}
		if err != nil {
			return &gim.ExportError{Path: outputs.Normals, Err: err}
		}
		return nil
	})
	if c := outputs.Curvature; c != nil {
		write(c.Image, func() error { return writeCurvature(g, c, logger) })
	}
	return errs.Wait()
}

func writeCurvature(g *gim.GeometryImage, c *config.CurvatureOutput, logger logging.Logger) error {
	scale, weight := c.Scale, c.Weight
	if scale == 0 {
		scale = filter.DefaultCurvatureScale
	}
	if weight == 0 {
		weight = filter.DefaultCurvatureWeight
	}

	kappa := curvature.GenerateImageWithEstimator(g, scale, weight, &c.Blur, c.Estimator)
	texture := rimage.NormalizeForVisualization(kappa)
	if c.HeatMap {
		texture = rimage.Colorize(texture)
	}
	if err := rimage.WriteFloatImageToFile(c.Image, texture); err != nil {
		return &gim.ExportError{Path: c.Image, Err: err}
	}
	if c.Histogram != "" {
		title := c.Estimator.String() + " curvature"
		if err := rimage.SaveHistogram(kappa, 0, histogramBins, title, c.Histogram); err != nil {
			return &gim.ExportError{Path: c.Histogram, Err: err}
		}
	}
	if c.Segments != "" {
		if err := writeSegments(kappa, c.SegmentClasses(), c.HeatMap, c.Segments, logger); err != nil {
			return &gim.ExportError{Path: c.Segments, Err: err}
		}
	}
	return nil
}

// writeSegments writes the curvature classes of kappa as an image with the flattest class at 0.
func writeSegments(kappa *rimage.FloatImage, classes int, heatMap bool, path string, logger logging.Logger) error {
	labels, centers, err := curvature.Segment(kappa, classes)
	if err != nil {
		return err
	}
	logger.Debugw("curvature segments", "path", path, "centers", centers)
	if classes > 1 {
		data := labels.Data()
		for i := range data {
			data[i] /= float64(classes - 1)
		}
	}
	if heatMap {
		labels = rimage.Colorize(labels)
	}
	return rimage.WriteFloatImageToFile(path, labels)
}
