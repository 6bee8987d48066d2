// Package main is a command line tool that builds a costmap from recorded
// point clouds and writes its diagnostics.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/geo/r2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gopkg.in/natefinch/lumberjack.v2"

	"go.viam.com/costmap/config"
	"go.viam.com/costmap/logging"
	"go.viam.com/costmap/navigator"
	"go.viam.com/costmap/wavefront"
)

const (
	flagConfig   = "config"
	flagDebug    = "debug"
	flagDebugKey = "debug-key"
	flagLogFile  = "log-file"
	flagOut      = "out"
	flagX        = "x"
	flagY        = "y"
	flagYaw      = "yaw"
	flagGoalX    = "goal-x"
	flagGoalY    = "goal-y"
	flagTimeout  = "timeout"
	flagFull     = "full"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "costmap",
		Usage: "build occupancy costmaps and navigation potentials from recorded sensor data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagConfig,
				Aliases:  []string{"c"},
				Usage:    "load configuration from `FILE`",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagDebugKey,
				Usage: "log this run's debug output at any level, tagged with `KEY`",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "write logs to a rotated `FILE` instead of stdout",
			},
			&cli.StringFlag{
				Name:  flagOut,
				Usage: "write outputs to `DIR`",
				Value: ".",
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Usage: "how long to wait for every observation source to report",
				Value: 10 * time.Second,
			},
			&cli.Float64Flag{Name: flagX, Usage: "robot x position in meters"},
			&cli.Float64Flag{Name: flagY, Usage: "robot y position in meters"},
			&cli.Float64Flag{Name: flagYaw, Usage: "robot heading in radians"},
		},
		Commands: []*cli.Command{
			{
				Name:   "map",
				Usage:  "run one map update and save the costmap as a P2 image with YAML metadata",
				Action: mapAction,
			},
			{
				Name:  "plan",
				Usage: "run one map update, expand a potential from the goal and save it as a PNG heatmap",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: flagGoalX, Usage: "goal x position in meters", Required: true},
					&cli.Float64Flag{Name: flagGoalY, Usage: "goal y position in meters", Required: true},
					&cli.BoolFlag{Name: flagFull, Usage: "expand over the whole map instead of stopping at the robot"},
				},
				Action: planAction,
			},
		},
	}
}

type session struct {
	// ctx carries the debug key of this run, if any.
	ctx     context.Context
	nav     *navigator.Navigator
	logger  logging.Logger
	logFile *lumberjack.Logger
	pose    navigator.Pose
	outDir  string
}

func newLogger(c *cli.Context, cfg *config.Config) (logging.Logger, *lumberjack.Logger, error) {
	level := logging.INFO
	if cfg.LogLevel != "" {
		var err error
		if level, err = logging.LevelFromString(cfg.LogLevel); err != nil {
			return nil, nil, err
		}
	}
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}

	if path := c.String(flagLogFile); path != "" {
		logFile := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    64,
			MaxBackups: 3,
			Compress:   true,
		}
		return logging.NewWriterLogger("costmap", level, logFile), logFile, nil
	}
	logger := logging.NewLogger("costmap")
	logger.SetLevel(level)
	return logger, nil, nil
}

// openSession loads the config, builds a navigator and runs one map update
// once every source has reported.
func openSession(c *cli.Context) (*session, error) {
	cfg, err := config.Read(c.String(flagConfig))
	if err != nil {
		return nil, err
	}

	logger, logFile, err := newLogger(c, cfg)
	if err != nil {
		return nil, err
	}

	nav, err := navigator.New(c.Context, cfg, navigator.Options{Registerer: prometheus.NewRegistry()}, logger)
	if err != nil {
		if logFile != nil {
			err = multierr.Combine(err, logFile.Close())
		}
		return nil, err
	}
	ctx := c.Context
	if key := c.String(flagDebugKey); key != "" {
		ctx = logging.WithDebugKey(ctx, key)
	}
	s := &session{
		ctx:     ctx,
		nav:     nav,
		logger:  logger,
		logFile: logFile,
		pose:    navigator.Pose{X: c.Float64(flagX), Y: c.Float64(flagY), Yaw: c.Float64(flagYaw)},
		outDir:  c.String(flagOut),
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.Duration(flagTimeout))
	defer cancel()
	if err := nav.AwaitObservations(waitCtx); err != nil {
		return nil, multierr.Combine(err, s.close(c.Context))
	}
	bounds, err := nav.UpdateMapAt(ctx, s.pose)
	if err != nil {
		return nil, multierr.Combine(err, s.close(c.Context))
	}
	logger.Infow("map updated",
		"min_x", bounds.MinX, "min_y", bounds.MinY,
		"max_x", bounds.MaxX, "max_y", bounds.MaxY,
		"current", nav.Layer().IsCurrent())
	return s, nil
}

func (s *session) close(ctx context.Context) error {
	err := s.nav.Close(ctx)
	if s.logFile != nil {
		err = multierr.Combine(err, s.logger.Sync(), s.logFile.Close())
	}
	return err
}

func (s *session) create(name string) (*os.File, error) {
	if err := os.MkdirAll(s.outDir, 0o750); err != nil {
		return nil, err
	}
	//nolint:gosec
	return os.Create(filepath.Join(s.outDir, name))
}

func mapAction(c *cli.Context) (err error) {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Combine(err, s.close(c.Context)) }()

	const imageName = "costmap.pgm"
	img, err := s.create(imageName)
	if err != nil {
		return err
	}
	if err := s.nav.Costmap().SaveMap(img); err != nil {
		return multierr.Combine(err, img.Close())
	}
	if err := img.Close(); err != nil {
		return err
	}

	meta, err := s.create("costmap.yaml")
	if err != nil {
		return err
	}
	snap := s.nav.Costmap().Snapshot()
	if err := snap.SaveMapMetadata(meta, imageName); err != nil {
		return multierr.Combine(err, meta.Close())
	}
	if err := meta.Close(); err != nil {
		return err
	}
	s.logger.Infow("saved costmap", "image", filepath.Join(s.outDir, imageName),
		"width", snap.SizeInCellsX(), "height", snap.SizeInCellsY())
	return nil
}

func planAction(c *cli.Context) (err error) {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Combine(err, s.close(c.Context)) }()

	goal := r2.Point{X: c.Float64(flagGoalX), Y: c.Float64(flagGoalY)}
	var pot navigator.Potential
	if c.Bool(flagFull) {
		pot, err = s.nav.ComputeNavigationFunction(s.ctx, goal)
	} else {
		pot, err = s.nav.ComputePotential(s.ctx, goal, r2.Point{X: s.pose.X, Y: s.pose.Y})
	}
	if err != nil {
		return err
	}
	if !pot.Reached {
		s.logger.Warnw("wavefront did not reach its target within the cycle budget",
			"cycles", pot.Stats.Cycles, "visited", pot.Stats.CellsVisited)
	}

	out, err := s.create("potential.png")
	if err != nil {
		return err
	}
	if err := s.nav.WriteHeatmap(out, "potential"); err != nil {
		return multierr.Combine(errors.Wrap(err, "rendering potential"), out.Close())
	}
	if err := out.Close(); err != nil {
		return err
	}
	s.logger.Infow("saved potential", "image", filepath.Join(s.outDir, "potential.png"))
	_, err = io.WriteString(c.App.Writer, potentialTable(pot)+"\n")
	return err
}

// potentialTable renders the expansion statistics and the spread of the
// reached potentials.
func potentialTable(pot navigator.Potential) string {
	summary := wavefront.Summarize(pot.Field)
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Reached", "Cycles", "Visited", "Queued", "Widest Tier", "Cells Reached", "Min", "Max", "Mean", "Std Dev"})
	t.AppendRow(table.Row{
		pot.Reached,
		pot.Stats.Cycles,
		pot.Stats.CellsVisited,
		pot.Stats.CellsQueued,
		pot.Stats.WidestTier,
		summary.Reached,
		fmt.Sprintf("%.1f", summary.Min),
		fmt.Sprintf("%.1f", summary.Max),
		fmt.Sprintf("%.1f", summary.Mean),
		fmt.Sprintf("%.1f", summary.StdDev),
	})
	return t.Render()
}
