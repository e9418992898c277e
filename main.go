package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/lepinkainen/equirender/cmd"
	"github.com/lepinkainen/equirender/config"
	"github.com/lepinkainen/equirender/logging"
	"github.com/lepinkainen/equirender/types"
)

var Version = "dev"

type CLI struct {
	Config   string           `short:"c" help:"Configuration file (default: search ./equirender.yaml, ~/.equirender, /etc/equirender)" type:"path"`
	LogLevel string           `help:"Log level (error, warning, info, verbose)"`
	LogFile  string           `help:"Write structured logs to this file instead of stderr" type:"path"`
	LogJSON  bool             `name:"log-json" help:"Write logs as JSON"`
	Version  kong.VersionFlag `help:"Show version and exit"`

	Convert   cmd.ConvertCmd   `cmd:"" help:"Convert 360 captures to equirectangular MP4"`
	Preview   cmd.PreviewCmd   `cmd:"" help:"Render a key-frame preview of one capture"`
	Snapshot  cmd.SnapshotCmd  `cmd:"" help:"Extract evenly spaced reprojected frames"`
	Thumbnail cmd.ThumbnailCmd `cmd:"" help:"Generate thumbnails for input videos"`
	Info      cmd.InfoCmd      `cmd:"" help:"Probe input videos and report whether they can be converted"`
	Codecs    cmd.CodecsCmd    `cmd:"" help:"List the codecs and containers of the installed ffmpeg"`
	History   cmd.HistoryCmd   `cmd:"" help:"Show recent conversions"`
	Watch     cmd.WatchCmd     `cmd:"" help:"Convert new captures as they appear in a directory"`
}

// NewAppContext loads the configuration, applies the global flags and builds
// the logger. The returned func flushes the logger and closes the log file.
func (cli *CLI) NewAppContext() (*types.AppContext, func(), error) {
	cfg, path, err := config.Load(cli.Config)
	if err != nil {
		return nil, nil, err
	}

	if cli.LogLevel != "" {
		if !logging.ValidLevel(cli.LogLevel) {
			return nil, nil, fmt.Errorf("invalid log level %q", cli.LogLevel)
		}
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFile != "" {
		cfg.Log.File = cli.LogFile
	}
	if cli.LogJSON {
		cfg.Log.JSON = true
	}

	var out io.Writer = os.Stderr
	var logFile *os.File
	if cfg.Log.File != "" {
		logFile, err = os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = logFile
	}

	logger := logging.New(logging.Options{
		Name:   "equirender",
		Level:  cfg.Log.Level,
		Output: out,
		JSON:   cfg.Log.JSON,
	})
	if path != "" {
		logger.Verbose("loaded configuration", "path", path)
	}

	cleanup := func() {
		_ = logger.Flush()
		if logFile != nil {
			_ = logFile.Close()
		}
	}

	return &types.AppContext{
		Version:    Version,
		Config:     cfg,
		ConfigPath: path,
		Logger:     logger,
	}, cleanup, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("equirender"),
		kong.Description("Convert 360 EAC captures to equirectangular video with ffmpeg and exiftool."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	app, cleanup, err := cli.NewAppContext()
	ctx.FatalIfErrorf(err)

	err = ctx.Run(app)
	cleanup()
	ctx.FatalIfErrorf(err)
}
