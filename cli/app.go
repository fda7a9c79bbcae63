// Package cli contains the gimmesh command line interface.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/felipeek/gimmesh/config"
	"github.com/felipeek/gimmesh/logging"
)

const (
	debugFlag   = "debug"
	logFileFlag = "log-file"

	filterFlagMode       = "mode"
	filterFlagIterations = "iterations"
	filterFlagSpatial    = "spatial"
	filterFlagRange      = "range"
	filterFlagScale      = "scale"
	filterFlagWeight     = "weight"
	filterFlagEstimator  = "estimator"
	filterFlagBlur       = "blur"
	filterFlagBlurSS     = "blur-ss"
	filterFlagBlurSR     = "blur-sr"
	filterFlagNoise      = "noise"
	filterFlagSeed       = "seed"
	filterFlagOutput     = "output"
	filterFlagMetrics    = "metrics"
	filterFlagTexture    = "texture"

	curvatureFlagHeatMap   = "heat-map"
	curvatureFlagHistogram = "histogram"
	curvatureFlagSegments  = "segments"
	curvatureFlagClasses   = "classes"

	infoFlagBins  = "bins"
	infoFlagWidth = "width"
)

func curvatureFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:  filterFlagScale,
			Usage: "factor applied to the raw curvature before the contrast curve (0 means 100)",
		},
		&cli.Float64Flag{
			Name:  filterFlagWeight,
			Usage: "exponent of the contrast curve applied to the scaled curvature (0 means 1)",
		},
		&cli.StringFlag{
			Name:  filterFlagEstimator,
			Value: "mean",
			Usage: "curvature estimator: mean or variation",
		},
		&cli.StringFlag{
			Name:  filterFlagBlur,
			Usage: "smooth positions before estimating curvature: recursive or distance",
		},
		&cli.Float64Flag{
			Name:  filterFlagBlurSS,
			Value: 1,
			Usage: "spatial sigma of the pre-blur",
		},
		&cli.Float64Flag{
			Name:  filterFlagBlurSR,
			Usage: "range sigma of the pre-blur, distance blur only",
		},
	}
}

// logFile is the appender installed by --log-file, closed once the command returns.
var logFile *logging.FileAppender

var app = &cli.App{
	Name:            "gimmesh",
	Usage:           "filter and analyze surfaces stored as geometry images",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.PathFlag{
			Name:  logFileFlag,
			Usage: "also write logs to `FILE`, rotated as it grows",
		},
	},
	Before: func(c *cli.Context) error {
		logger := logging.NewLogger("gimmesh")
		if path := c.Path(logFileFlag); path != "" {
			logFile = logging.NewFileAppender(path)
			logger.AddAppender(logFile)
		}
		config.InitLoggingSettings(logger, c.Bool(debugFlag))
		return nil
	},
	After: func(c *cli.Context) error {
		err := logging.Global().Sync()
		if logFile != nil {
			err = multierr.Append(err, logFile.Close())
			logFile = nil
		}
		return err
	},
	Commands: []*cli.Command{
		{
			Name:      "filter",
			Usage:     "run one filter over a geometry image and export the result",
			ArgsUsage: "<input.gim|input.pcd|input.las>",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:  filterFlagMode,
					Value: "recursive",
					Usage: "filter mode: recursive, distance, curvature or noise",
				},
				&cli.IntFlag{
					Name:  filterFlagIterations,
					Value: 1,
					Usage: "number of times the filter is applied",
				},
				&cli.Float64Flag{
					Name:  filterFlagSpatial,
					Value: 1,
					Usage: "spatial sigma in texels, or the intensity in noise mode",
				},
				&cli.Float64Flag{
					Name:  filterFlagRange,
					Usage: "range sigma of the distance and curvature modes",
				},
				&cli.Float64Flag{
					Name:  filterFlagNoise,
					Usage: "perturb the input by this much before filtering",
				},
				&cli.Uint64Flag{
					Name:  filterFlagSeed,
					Usage: "seed for the noise, 0 picks one",
				},
				&cli.StringSliceFlag{
					Name:     filterFlagOutput,
					Aliases:  []string{"o"},
					Required: true,
					Usage: "file to write, by extension: .obj mesh, .gim, .pcd/.las/.xyz point cloud, " +
						".png/.bmp/.tiff/.ppm/.qoi normalized positions",
				},
				&cli.BoolFlag{
					Name:  filterFlagMetrics,
					Usage: "log how far the result moved from the input",
				},
				&cli.PathFlag{
					Name:  filterFlagTexture,
					Usage: "color the point cloud output with the image `FILE`, stretched over the surface",
				},
			}, curvatureFlags()...),
			Action: FilterAction,
		},
		{
			Name:      "curvature",
			Usage:     "write the curvature map of a geometry image",
			ArgsUsage: "<input.gim|input.pcd|input.las> <image>",
			Flags: append([]cli.Flag{
				&cli.BoolFlag{
					Name:  curvatureFlagHeatMap,
					Usage: "color the map from blue to red instead of gray",
				},
				&cli.PathFlag{
					Name:  curvatureFlagHistogram,
					Usage: "also plot the distribution of curvature values to `FILE`",
				},
				&cli.PathFlag{
					Name:  curvatureFlagSegments,
					Usage: "also write the surface split into curvature classes to `FILE`",
				},
				&cli.IntFlag{
					Name:  curvatureFlagClasses,
					Value: config.DefaultSegmentClasses,
					Usage: "number of curvature classes written with --segments",
				},
			}, curvatureFlags()...),
			Action: CurvatureAction,
		},
		{
			Name:      "run",
			Usage:     "run a JSON job file",
			ArgsUsage: "<job.json>",
			Action:    RunAction,
		},
		{
			Name:      "info",
			Usage:     "print the size and extent of a geometry image",
			ArgsUsage: "<input.gim|input.pcd|input.las>",
			Action:    InfoAction,
		},
		{
			Name:      "schema",
			Usage:     "print the JSON schema of job files, or of one filter mode's attributes",
			ArgsUsage: "[mode]",
			Action:    SchemaAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
