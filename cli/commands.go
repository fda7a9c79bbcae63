package cli

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/invopop/jsonschema"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/felipeek/gimmesh/config"
	"github.com/felipeek/gimmesh/curvature"
	"github.com/felipeek/gimmesh/filter"
	"github.com/felipeek/gimmesh/gim"
	"github.com/felipeek/gimmesh/logging"
	"github.com/felipeek/gimmesh/rimage"
)

// printf prints a message with a newline to w.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// FilterAction runs a single filter described by flags.
func FilterAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("filter needs exactly one input file")
	}
	mode, err := filter.ParseMode(c.String(filterFlagMode))
	if err != nil {
		return err
	}

	job := &config.Job{
		Input: c.Args().First(),
		Filters: []config.FilterStage{{
			Mode:       mode.String(),
			Iterations: lo.ToPtr(c.Int(filterFlagIterations)),
			Attributes: filterAttributes(c, mode),
		}},
	}
	if c.IsSet(filterFlagNoise) {
		job.Noise = &config.NoiseStage{Intensity: c.Float64(filterFlagNoise), Seed: c.Uint64(filterFlagSeed)}
	}
	for _, path := range c.StringSlice(filterFlagOutput) {
		if err := assignOutput(&job.Outputs, path); err != nil {
			return err
		}
	}
	job.Outputs.Metrics = c.Bool(filterFlagMetrics)
	job.Outputs.PointCloudTexture = c.Path(filterFlagTexture)
	return RunJob(c.Context, job, logging.Global())
}

// CurvatureAction writes the curvature map of a geometry image.
func CurvatureAction(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return errors.New("curvature needs an input file and an image file")
	}
	cfg, err := config.DecodeFilterConfig(filter.CurvatureFilter, curvatureAttributes(c))
	if err != nil {
		return err
	}
	curvatureCfg, ok := cfg.(filter.Curvature)
	if !ok {
		return errors.Errorf("unexpected curvature config %T", cfg)
	}

	job := &config.Job{
		Input: c.Args().Get(0),
		Outputs: config.Outputs{
			Curvature: &config.CurvatureOutput{
				Image:     c.Args().Get(1),
				Histogram: c.Path(curvatureFlagHistogram),
				HeatMap:   c.Bool(curvatureFlagHeatMap),
				Scale:     curvatureCfg.Scale,
				Weight:    curvatureCfg.Weight,
				Estimator: curvatureCfg.Estimator,
				Blur:      curvatureCfg.Blur,
			},
		},
	}
	return RunJob(c.Context, job, logging.Global())
}

// RunAction runs a job file.
func RunAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("run needs exactly one job file")
	}
	job, err := config.Read(c.Args().First())
	if err != nil {
		return err
	}
	config.UpdateJobDebug(job.Debug)
	return RunJob(c.Context, job, logging.Global())
}

// InfoAction prints a summary table of a geometry image.
func InfoAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("info needs exactly one input file")
	}
	path := c.Args().First()
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	g, err := gim.Parse(path)
	if err != nil {
		return err
	}
	g.Update3D()
	mesh, err := gim.ToMesh(g, color.NRGBA{A: 255})
	if err != nil {
		return err
	}

	const vertexBytes, normalBytes, indexBytes = 64, 24, 4
	inMemory := len(g.Img.Data())*8 + len(g.Vertices)*vertexBytes + len(g.Normals)*normalBytes + len(g.Indexes)*indexBytes

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRow(table.Row{"file", path})
	t.AppendRow(table.Row{"file size", units.HumanSize(float64(stat.Size()))})
	t.AppendRow(table.Row{"dimensions", fmt.Sprintf("%dx%d", g.Width(), g.Height())})
	t.AppendRow(table.Row{"vertices", len(g.Vertices)})
	t.AppendRow(table.Row{"triangles", mesh.NumTriangles()})
	t.AppendRow(table.Row{"in memory", units.BytesSize(float64(inMemory))})
	for ch, axis := range []string{"x", "y", "z"} {
		minV, maxV := rimage.ChannelRange(g.Img, ch)
		t.AppendRow(table.Row{axis + " range", fmt.Sprintf("%.6g .. %.6g", minV, maxV)})
	}
	cloud, err := gim.ToPointCloud(g, nil)
	if err != nil {
		return err
	}
	meta := cloud.MetaData()
	center := meta.Center()
	t.AppendRow(table.Row{"centroid", fmt.Sprintf("(%.6g, %.6g, %.6g)", center.X, center.Y, center.Z)})
	t.AppendRow(table.Row{"extent", fmt.Sprintf("%.6g", meta.MaxSideLength())})
	t.AppendRow(table.Row{"surface area", fmt.Sprintf("%.6g", mesh.SurfaceArea())})
	t.AppendRow(table.Row{"noise estimate", fmt.Sprintf("%.6g", gim.EstimateNoise(g))})
	printf(c.App.Writer, "%s", t.Render())

	if bins := c.Int(infoFlagBins); bins > 0 {
		kappa := curvature.GenerateImage(g, filter.DefaultCurvatureScale, filter.DefaultCurvatureWeight, nil)
		printf(c.App.Writer, "\nmean curvature")
		if err := rimage.FprintHistogram(c.App.Writer, kappa, 0, bins, c.Int(infoFlagWidth)); err != nil {
			return err
		}
	}
	return nil
}

// SchemaAction prints the job schema, or the attribute schema of the named filter mode.
func SchemaAction(c *cli.Context) error {
	var schema *jsonschema.Schema
	switch c.Args().Len() {
	case 0:
		schema = config.JobSchema()
	case 1:
		mode, err := filter.ParseMode(c.Args().First())
		if err != nil {
			return err
		}
		schema = config.FilterAttributeSchemas[mode]
	default:
		return errors.New("schema takes at most one filter mode")
	}
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return nil
}

func filterAttributes(c *cli.Context, mode filter.Mode) map[string]interface{} {
	switch mode {
	case filter.RecursiveFilter:
		return map[string]interface{}{"spatial": c.Float64(filterFlagSpatial)}
	case filter.DistanceFilter:
		return map[string]interface{}{"spatial": c.Float64(filterFlagSpatial), "range": c.Float64(filterFlagRange)}
	case filter.CurvatureFilter:
		attributes := curvatureAttributes(c)
		attributes["spatial"] = c.Float64(filterFlagSpatial)
		attributes["range"] = c.Float64(filterFlagRange)
		return attributes
	case filter.NoiseGenerator:
		return map[string]interface{}{"intensity": c.Float64(filterFlagSpatial), "seed": c.Uint64(filterFlagSeed)}
	default:
		return nil
	}
}

func curvatureAttributes(c *cli.Context) map[string]interface{} {
	blurMode := c.String(filterFlagBlur)
	return map[string]interface{}{
		"scale":     c.Float64(filterFlagScale),
		"weight":    c.Float64(filterFlagWeight),
		"estimator": c.String(filterFlagEstimator),
		"blur": map[string]interface{}{
			"use_blur":  blurMode != "",
			"blur_mode": lo.Ternary(blurMode == "", "recursive", blurMode),
			"ss":        c.Float64(filterFlagBlurSS),
			"sr":        c.Float64(filterFlagBlurSR),
		},
	}
}

// assignOutput files path under the output its extension names.
func assignOutput(outputs *config.Outputs, path string) error {
	var slot *string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		slot = &outputs.Obj
	case ".gim":
		slot = &outputs.Gim
	case ".pcd", ".las", ".xyz", ".txt":
		slot = &outputs.PointCloud
	case ".png", ".bmp", ".tif", ".tiff", ".ppm", ".qoi":
		slot = &outputs.Image
	default:
		return errors.Errorf("do not know what to write to %q", path)
	}
	if *slot != "" {
		return errors.Errorf("%q and %q are the same kind of output", *slot, path)
	}
	*slot = path
	return nil
}
