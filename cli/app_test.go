package cli

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/felipeek/gimmesh/config"
	"github.com/felipeek/gimmesh/gim"
	"github.com/felipeek/gimmesh/logging"
	"github.com/felipeek/gimmesh/rimage"
	"github.com/felipeek/gimmesh/testutils"
)

func writeBowl(t *testing.T, dir string, width, height int) string {
	t.Helper()
	img := testutils.Surface(width, height, func(x, y int) float64 {
		dx, dy := float64(x-width/2), float64(y-height/2)
		return 0.1*(dx*dx+dy*dy) + 0.01*math.Sin(float64(x*y))
	})
	return testutils.WriteGimFile(t, dir, "bowl.gim", img)
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"gimmesh"}, args...))
	return out.String(), err
}

func fileExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestFilterCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeBowl(t, dir, 6, 5)
	obj := filepath.Join(dir, "out.obj")
	out := filepath.Join(dir, "out.gim")
	cloud := filepath.Join(dir, "out.xyz")

	logFile := filepath.Join(dir, "gimmesh.log")
	_, err := runApp(t, "--log-file", logFile, "filter", "--mode", "distance", "--spatial", "1", "--range", "0.5",
		"--iterations", "2", "--noise", "0.01", "--seed", "4", "--metrics",
		"-o", obj, "-o", out, "-o", cloud, input)
	test.That(t, err, test.ShouldBeNil)
	fileExists(t, obj)
	fileExists(t, cloud)
	//nolint:gosec
	logs, err := os.ReadFile(logFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logs), test.ShouldContainSubstring, "filter done")

	g, err := gim.Parse(out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Width(), test.ShouldEqual, 6)
	test.That(t, g.Height(), test.ShouldEqual, 5)

	_, err = runApp(t, "filter", "--mode", "curvature", "--blur", "distance", "--blur-sr", "1",
		"-o", filepath.Join(dir, "curv.png"), input)
	test.That(t, err, test.ShouldBeNil)
	fileExists(t, filepath.Join(dir, "curv.png"))
}

func TestFilterCommandErrors(t *testing.T) {
	dir := t.TempDir()
	input := writeBowl(t, dir, 3, 3)

	_, err := runApp(t, "filter", "-o", filepath.Join(dir, "a.gim"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = runApp(t, "filter", "--mode", "median", "-o", filepath.Join(dir, "a.gim"), input)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "median")

	_, err = runApp(t, "filter", "-o", filepath.Join(dir, "a.ply"), input)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = runApp(t, "filter", "-o", filepath.Join(dir, "missing.gim"), filepath.Join(dir, "missing-input.gim"))
	test.That(t, err, test.ShouldNotBeNil)
	var parseErr *gim.ParseError
	test.That(t, errors.As(err, &parseErr), test.ShouldBeTrue)
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	writeBowl(t, dir, 7, 7)
	job := `{
		"input": "bowl.gim",
		"noise": {"intensity": 0.02, "seed": 1},
		"filters": [
			{"mode": "recursive", "iterations": 2, "attributes": {"spatial": 0.8}},
			{"mode": "curvature", "attributes": {"spatial": 1, "range": 0.3, "blur": {"use_blur": true, "blur_mode": "recursive", "ss": 1}}}
		],
		"outputs": {
			"gim": "out/result.gim",
			"point_cloud": "out/cloud.pcd",
			"point_cloud_texture": "texture.png",
			"normals": "out/normals.png",
			"image": "out/positions.bmp",
			"curvature": {"image": "out/curvature.ppm", "histogram": "out/histogram.png", "segments": "out/segments.png", "heat_map": true, "blur": {}},
			"metrics": true
		}
	}`
	test.That(t, os.MkdirAll(filepath.Join(dir, "out"), 0o750), test.ShouldBeNil)
	texture := rimage.NewFloatImage(2, 2, 3)
	texture.SetVec3(1, 1, r3.Vector{X: 1})
	test.That(t, rimage.WriteFloatImageToFile(filepath.Join(dir, "texture.png"), texture), test.ShouldBeNil)
	jobPath := filepath.Join(dir, "job.json")
	test.That(t, os.WriteFile(jobPath, []byte(job), 0o600), test.ShouldBeNil)

	_, err := runApp(t, "run", jobPath)
	test.That(t, err, test.ShouldBeNil)
	//nolint:gosec
	cloud, err := os.ReadFile(filepath.Join(dir, "out", "cloud.pcd"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(cloud), test.ShouldContainSubstring, "FIELDS x y z rgb")
	for _, name := range []string{"result.gim", "normals.png", "positions.bmp", "curvature.ppm", "histogram.png", "segments.png"} {
		fileExists(t, filepath.Join(dir, "out", name))
	}

	_, err = runApp(t, "run")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = runApp(t, "run", filepath.Join(dir, "nope.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCurvatureCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeBowl(t, dir, 5, 5)
	image := filepath.Join(dir, "k.png")
	histogram := filepath.Join(dir, "h.png")
	segments := filepath.Join(dir, "s.png")

	_, err := runApp(t, "curvature", "--estimator", "variation", "--heat-map", "--histogram", histogram,
		"--segments", segments, "--classes", "3", input, image)
	test.That(t, err, test.ShouldBeNil)
	fileExists(t, image)
	fileExists(t, histogram)
	fileExists(t, segments)

	_, err = runApp(t, "curvature", "--segments", segments, "--classes", "-1", input, image)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = runApp(t, "curvature", "--estimator", "gauss", input, image)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = runApp(t, "curvature", input)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInfoCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeBowl(t, dir, 4, 3)

	out, err := runApp(t, "info", input)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "4x3")
	test.That(t, out, test.ShouldContainSubstring, "triangles")
	test.That(t, out, test.ShouldContainSubstring, "surface area")
	test.That(t, out, test.ShouldContainSubstring, "centroid")
	test.That(t, out, test.ShouldContainSubstring, "mean curvature")

	out, err = runApp(t, "info", "--bins", "0", input)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldNotContainSubstring, "mean curvature")

	_, err = runApp(t, "info", filepath.Join(dir, "missing.gim"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSchemaCommand(t *testing.T) {
	out, err := runApp(t, "schema")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "filters")

	out, err = runApp(t, "schema", "curvature")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "estimator")

	_, err = runApp(t, "schema", "median")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = runApp(t, "schema", "a", "b")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRunJobMetrics(t *testing.T) {
	dir := t.TempDir()
	logger, logs := logging.NewObservedTestLogger(t)
	job := &config.Job{
		Input:   writeBowl(t, dir, 6, 6),
		Filters: []config.FilterStage{{Mode: "recursive", Attributes: map[string]interface{}{"spatial": 1.0}}},
		Outputs: config.Outputs{Metrics: true},
	}
	test.That(t, RunJob(context.Background(), job, logger), test.ShouldBeNil)
	test.That(t, logs.FilterMessage("displacement").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("filter done").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("job done").Len(), test.ShouldEqual, 1)
}

func TestWriteOutputsFailure(t *testing.T) {
	dir := t.TempDir()
	g, err := gim.Parse(writeBowl(t, dir, 3, 3))
	test.That(t, err, test.ShouldBeNil)
	g.Update3D()

	outputs := &config.Outputs{
		Gim: filepath.Join(dir, "no", "such", "dir", "out.gim"),
		Obj: filepath.Join(dir, "ok.obj"),
	}
	err = WriteOutputs(context.Background(), g, outputs, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	var exportErr *gim.ExportError
	test.That(t, errors.As(err, &exportErr), test.ShouldBeTrue)
	test.That(t, exportErr.Path, test.ShouldEqual, outputs.Gim)
}

func TestAssignOutput(t *testing.T) {
	var outputs config.Outputs
	for _, path := range []string{"a.obj", "b.GIM", "c.las", "d.tiff"} {
		test.That(t, assignOutput(&outputs, path), test.ShouldBeNil)
	}
	test.That(t, outputs, test.ShouldResemble, config.Outputs{Obj: "a.obj", Gim: "b.GIM", PointCloud: "c.las", Image: "d.tiff"})
	test.That(t, assignOutput(&outputs, "e.pcd"), test.ShouldNotBeNil)
	test.That(t, assignOutput(&outputs, "f.stl"), test.ShouldNotBeNil)
}
