package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/lepinkainen/equirender/config"
	"github.com/lepinkainen/equirender/logging"
	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/pool"
	"github.com/lepinkainen/equirender/process"
	"github.com/lepinkainen/equirender/queue"
	"github.com/lepinkainen/equirender/transcode"
	"github.com/lepinkainen/equirender/types"
	"github.com/lepinkainen/equirender/ui"
	"github.com/lepinkainen/equirender/utils"
	"github.com/lepinkainen/equirender/video"
)

func appConfig(app *types.AppContext) *config.Config {
	if app == nil || app.Config == nil {
		return config.DefaultConfig()
	}
	return app.Config
}

func appLogger(app *types.AppContext) logging.Logger {
	if app == nil || app.Logger == nil {
		return logging.Discard()
	}
	return app.Logger
}

func appLauncher(app *types.AppContext) process.Launcher {
	if app == nil || app.Launcher == nil {
		return process.ExecLauncher{}
	}
	return app.Launcher
}

// checkTools validates the binaries a command needs. Tests that inject a
// launcher skip the PATH lookup.
func checkTools(app *types.AppContext, tools utils.ToolPaths) error {
	if app != nil && app.Launcher != nil {
		return nil
	}
	return utils.ValidateToolDependencies(tools)
}

func newOrchestrator(app *types.AppContext, cfg *config.Config, notifier *queue.Notifier) *transcode.Orchestrator {
	return transcode.New(transcode.Options{
		Launcher:        appLauncher(app),
		FFmpeg:          cfg.Tools.FFmpeg,
		Tagger:          cfg.Tools.Tagger,
		TempDir:         cfg.Tools.TempDir,
		OutputDir:       cfg.Output.Directory,
		FilenamePattern: cfg.Output.FilenamePattern,
		Encoder: transcode.EncoderSettings{
			VideoCodec: cfg.Output.VideoCodec,
			CRF:        cfg.Output.CRF,
			Preset:     cfg.Output.Preset,
		},
		SnapshotWidth: cfg.Snapshots.Width,
		Notifier:      notifier,
		Logger:        appLogger(app),
	})
}

// probeInputs expands args to input files and probes them concurrently.
func probeInputs(ctx context.Context, app *types.AppContext, args []string) ([]media.InputVideoInfo, error) {
	files, err := video.ExpandInputs(args)
	if err != nil {
		return nil, fmt.Errorf("failed to expand inputs: %w", err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	cfg := appConfig(app)
	prober := video.NewProber(appLauncher(app), cfg.Tools.FFprobe)
	limit := utils.ThumbnailWorkerLimit(files, config.DetectWorkers())
	return prober.ProbeAll(ctx, files, limit)
}

// buildPool adds every valid input to a new pool. Inputs that do not look
// like dual-track cubemap captures are added disabled.
func buildPool(infos []media.InputVideoInfo, log logging.Logger) *pool.Pool {
	p := pool.New()
	for _, info := range infos {
		if !info.IsValid {
			fmt.Printf("%s\n", ui.ErrorStyle.Render(fmt.Sprintf("❌ Skipping %s: %v", info.Filename, info.Issues)))
			log.Warning("skipping invalid input", "file", info.Filename, "issues", info.Issues)
			continue
		}

		v := p.AddVideo(info)
		if !info.MatchesFormat {
			v.SetEnabled(false)
			fmt.Printf("%s\n", ui.WarningStyle.Render(fmt.Sprintf("⚠️  %s does not look like a 360 capture, disabled: %v", info.Filename, info.Issues)))
		}
	}
	return p
}

// applyEdits sets the same rotation and crop on every video in p.
func applyEdits(p *pool.Pool, rot media.FrameRotation, start, end float64) {
	for _, v := range p.Videos() {
		v.SetRotation(rot)
		crop := media.TimelineCrop{}
		if start > 0 {
			crop.Start = media.Seconds(start)
		}
		if end > 0 {
			crop.End = media.Seconds(end)
		}
		v.SetCrop(crop)
	}
}

// onInterrupt calls fn on the first SIGINT or SIGTERM. The returned func stops
// listening.
func onInterrupt(fn func()) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigChan:
			fmt.Println("\n\n⚠️  Interrupt received, cleaning up...")
			fn()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// loggingListener records the render lifecycle in the structured log.
func loggingListener(log logging.Logger) queue.Listener {
	return queue.ListenerFuncs{
		OnQueueStarted:  func() { log.Info("render queue started") },
		OnQueueFinished: func() { log.Info("render queue finished") },
		OnEntryStarted: func(e *queue.Entry) {
			log.Info("rendering", "file", e.Video().Filename())
		},
		OnEntrySucceeded: func(e *queue.Entry) {
			log.Info("rendered", "file", e.Video().Filename(), "output", e.Output(), "elapsed", e.Elapsed())
		},
		OnEntryFailed: func(e *queue.Entry, err error) {
			log.Error("render failed", "file", e.Video().Filename(), "error", err)
		},
		OnEntryCanceled: func(e *queue.Entry) {
			log.Verbose("render canceled", "file", e.Video().Filename())
		},
	}
}
