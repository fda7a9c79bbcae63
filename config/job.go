// Package config describes batch jobs: load a geometry image, optionally perturb it, run a chain of
// filters over it and export the result.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	goutils "go.viam.com/utils"

	"github.com/felipeek/gimmesh/curvature"
	"github.com/felipeek/gimmesh/filter"
)

// A Job is the JSON description of one run.
type Job struct {
	// Input is a .gim file, an organized .pcd file or a .las file.
	Input   string        `json:"input"`
	Noise   *NoiseStage   `json:"noise,omitempty"`
	Filters []FilterStage `json:"filters,omitempty"`
	Outputs Outputs       `json:"outputs"`
	Debug   bool          `json:"debug,omitempty"`

	// ConfigFilePath is where the job was read from, if anywhere.
	ConfigFilePath string `json:"-"`
}

// NoiseStage perturbs the input once before any filter runs.
type NoiseStage struct {
	Intensity float64 `json:"intensity"`
	Seed      uint64  `json:"seed,omitempty"`
}

// FilterStage runs one filter mode for a number of iterations. Attributes are the fields of the
// mode's filter.Config, keyed by their json names.
type FilterStage struct {
	Mode string `json:"mode"`
	// Iterations defaults to 1 when unset. 0 passes the surface through unchanged.
	Iterations *int                   `json:"iterations,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Outputs lists what to write once every stage has run. Empty paths are skipped.
type Outputs struct {
	Obj        string           `json:"obj,omitempty"`
	PointCloud string           `json:"point_cloud,omitempty"`
	Gim        string           `json:"gim,omitempty"`
	Image      string           `json:"image,omitempty"`
	Normals    string           `json:"normals,omitempty"`
	Curvature  *CurvatureOutput `json:"curvature,omitempty"`
	// PointCloudTexture is an image stretched over the surface to color the point cloud.
	PointCloudTexture string `json:"point_cloud_texture,omitempty"`
	// Metrics logs the displacement between the loaded and the filtered surface.
	Metrics bool `json:"metrics,omitempty"`
}

// CurvatureOutput writes the curvature map of the result and optionally its histogram and a
// segmentation of the surface into curvature classes.
type CurvatureOutput struct {
	Image     string `json:"image"`
	Histogram string `json:"histogram,omitempty"`
	Segments  string `json:"segments,omitempty"`
	// Classes is the number of segments, 2 when unset.
	Classes   int                       `json:"classes,omitempty"`
	HeatMap   bool                      `json:"heat_map,omitempty"`
	Scale     float64                   `json:"scale,omitempty"`
	Weight    float64                   `json:"weight,omitempty"`
	Estimator curvature.Estimator       `json:"estimator,omitempty"`
	Blur      curvature.BlurInformation `json:"blur"`
}

// A Stage is a validated FilterStage.
type Stage struct {
	Config     filter.Config
	Iterations int
}

// Read reads and validates the job at path. Relative paths inside the job are taken relative to the
// job file.
func Read(path string) (*Job, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read job %q", path)
	}
	job, err := FromReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid job %q", path)
	}
	job.ConfigFilePath = path
	job.ResolvePaths(filepath.Dir(path))
	return job, nil
}

// FromReader decodes and validates a job. Jobs are JSON5, so comments and trailing commas are
// allowed. Enumerations may be given by name ("mean", "distance") or by number, and unknown keys are
// rejected.
func FromReader(r io.Reader) (*Job, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read job")
	}
	var raw map[string]interface{}
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "cannot parse job")
	}

	job := &Job{}
	if err := decode(raw, job); err != nil {
		return nil, err
	}
	if _, err := job.Validate(""); err != nil {
		return nil, err
	}
	return job, nil
}

// ResolvePaths makes every relative path of the job relative to dir.
func (j *Job) ResolvePaths(dir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	resolve(&j.Input)
	resolve(&j.Outputs.Obj)
	resolve(&j.Outputs.PointCloud)
	resolve(&j.Outputs.Gim)
	resolve(&j.Outputs.Image)
	resolve(&j.Outputs.Normals)
	resolve(&j.Outputs.PointCloudTexture)
	if j.Outputs.Curvature != nil {
		resolve(&j.Outputs.Curvature.Image)
		resolve(&j.Outputs.Curvature.Histogram)
		resolve(&j.Outputs.Curvature.Segments)
	}
}

// Paths returns every output path the job writes.
func (o *Outputs) Paths() []string {
	paths := []string{o.Obj, o.PointCloud, o.Gim, o.Image, o.Normals}
	if o.Curvature != nil {
		paths = append(paths, o.Curvature.Image, o.Curvature.Histogram, o.Curvature.Segments)
	}
	return lo.Compact(paths)
}

// Validate checks the job and returns its filter chain. path prefixes field names in errors.
func (j *Job) Validate(path string) ([]Stage, error) {
	if j.Input == "" {
		return nil, goutils.NewConfigValidationFieldRequiredError(path, "input")
	}
	if j.Noise != nil {
		if err := (filter.Noise{Intensity: j.Noise.Intensity}).Validate(); err != nil {
			return nil, goutils.NewConfigValidationError(joinPath(path, "noise"), err)
		}
	}

	stages := make([]Stage, 0, len(j.Filters))
	for i := range j.Filters {
		stagePath := joinPath(path, fmt.Sprintf("filters.%d", i))
		stage, err := j.Filters[i].Stage(stagePath)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}

	if err := j.Outputs.Validate(joinPath(path, "outputs")); err != nil {
		return nil, err
	}
	if j.Outputs.Metrics && len(stages) == 0 && j.Noise == nil {
		return nil, goutils.NewConfigValidationError(joinPath(path, "outputs"),
			errors.New("metrics need at least one noise or filter stage"))
	}
	return stages, nil
}

// Validate checks the outputs name distinct files and that there is at least one.
func (o *Outputs) Validate(path string) error {
	paths := o.Paths()
	if len(paths) == 0 && !o.Metrics {
		return goutils.NewConfigValidationError(path, errors.New("nothing to output"))
	}
	if dups := lo.FindDuplicates(paths); len(dups) > 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("files written more than once: %v", dups))
	}
	if o.PointCloudTexture != "" && o.PointCloud == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "point_cloud")
	}
	if c := o.Curvature; c != nil {
		if c.Image == "" {
			return goutils.NewConfigValidationFieldRequiredError(path, "curvature.image")
		}
		if c.Classes < 0 {
			return goutils.NewConfigValidationError(joinPath(path, "curvature"),
				errors.Errorf("classes must not be negative, got %d", c.Classes))
		}
		if err := (filter.Curvature{Scale: c.Scale, Weight: c.Weight, Estimator: c.Estimator, Blur: c.Blur}).Validate(); err != nil {
			return goutils.NewConfigValidationError(joinPath(path, "curvature"), err)
		}
	}
	return nil
}

// Stage decodes the attributes into the filter.Config of the stage's mode. Iterations default to 1.
func (s *FilterStage) Stage(path string) (Stage, error) {
	if s.Mode == "" {
		return Stage{}, goutils.NewConfigValidationFieldRequiredError(path, "mode")
	}
	mode, err := filter.ParseMode(s.Mode)
	if err != nil {
		return Stage{}, goutils.NewConfigValidationError(path, err)
	}
	iterations := lo.FromPtrOr(s.Iterations, 1)
	if iterations < 0 {
		return Stage{}, goutils.NewConfigValidationError(path, errors.Errorf("iterations must not be negative, got %d", iterations))
	}

	cfg, err := DecodeFilterConfig(mode, s.Attributes)
	if err != nil {
		return Stage{}, goutils.NewConfigValidationError(joinPath(path, "attributes"), err)
	}
	if err := cfg.Validate(); err != nil {
		return Stage{}, goutils.NewConfigValidationError(joinPath(path, "attributes"), err)
	}
	return Stage{Config: cfg, Iterations: iterations}, nil
}

// DecodeFilterConfig converts attributes into the filter.Config for mode. Missing attributes keep
// their zero value.
func DecodeFilterConfig(mode filter.Mode, attributes map[string]interface{}) (filter.Config, error) {
	var cfg filter.Config
	switch mode {
	case filter.RecursiveFilter:
		cfg = &filter.Recursive{}
	case filter.DistanceFilter:
		cfg = &filter.Distance{}
	case filter.CurvatureFilter:
		cfg = &filter.Curvature{}
	case filter.NoiseGenerator:
		cfg = &filter.Noise{}
	default:
		return nil, errors.Wrapf(filter.ErrInvalidConfiguration, "unknown filter mode %v", mode)
	}
	if err := decode(attributes, cfg); err != nil {
		return nil, err
	}
	// the engine switches on value types
	return reflect.ValueOf(cfg).Elem().Interface().(filter.Config), nil
}

func decode(from map[string]interface{}, to interface{}) error {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     to,
		Metadata:   &md,
		DecodeHook: enumHook,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(from); err != nil {
		return err
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return errors.Errorf("unknown fields %v", md.Unused)
	}
	return nil
}

var (
	estimatorType = reflect.TypeOf(curvature.Estimator(0))
	blurModeType  = reflect.TypeOf(curvature.BlurMode(0))
)

// enumHook lets estimators and blur modes be written by name.
func enumHook(_, to reflect.Type, data interface{}) (interface{}, error) {
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	switch to {
	case estimatorType:
		return curvature.ParseEstimator(s)
	case blurModeType:
		return curvature.ParseBlurMode(s)
	default:
		return data, nil
	}
}

// DefaultSegmentClasses is the number of curvature classes when none is given.
const DefaultSegmentClasses = 2

// SegmentClasses returns Classes, or DefaultSegmentClasses when unset.
func (c *CurvatureOutput) SegmentClasses() int {
	if c.Classes == 0 {
		return DefaultSegmentClasses
	}
	return c.Classes
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
