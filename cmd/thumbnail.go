package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lepinkainen/equirender/pool"
	"github.com/lepinkainen/equirender/thumbnail"
	"github.com/lepinkainen/equirender/types"
	"github.com/lepinkainen/equirender/ui"
	"github.com/lepinkainen/equirender/utils"
)

// ThumbnailCmd writes one key-frame thumbnail per input video.
type ThumbnailCmd struct {
	Files     []string `arg:"" name:"files" help:"Input videos or directories" type:"path"`
	OutputDir string   `short:"o" help:"Directory for the thumbnails" type:"path" default:"."`
	Position  float64  `help:"Position in percent of the duration (-1 = from config)" default:"-1"`
	Workers   int      `help:"Maximum parallel ffmpeg processes (0 = from config)"`
}

func (cmd *ThumbnailCmd) Run(app *types.AppContext) error {
	cfg := appConfig(app)
	position := cmd.Position
	if position < 0 {
		position = cfg.Thumbnails.PositionPercent
	}
	if position > 100 {
		return fmt.Errorf("position must be between 0 and 100, got %.1f", position)
	}

	if err := checkTools(app, utils.ToolPaths{FFmpeg: cfg.Tools.FFmpeg, FFprobe: cfg.Tools.FFprobe}); err != nil {
		return err
	}

	log := appLogger(app)
	ctx := context.Background()

	infos, err := probeInputs(ctx, app, cmd.Files)
	if err != nil {
		return err
	}
	p := buildPool(infos, log)
	if p.Len() == 0 {
		fmt.Println("🎯 No input videos found.")
		return nil
	}

	workers := cmd.Workers
	if workers <= 0 {
		workers = cfg.EffectiveThumbnailWorkers()
	}
	files := make([]string, 0, p.Len())
	for _, v := range p.Videos() {
		files = append(files, v.Filename())
	}
	if limited := utils.ThumbnailWorkerLimit(files, workers); limited < workers {
		fmt.Printf("⚠️  Network drive detected, using %d worker for optimal performance\n", limited)
		workers = limited
	}

	gen := thumbnail.New(thumbnail.Options{
		Launcher:   appLauncher(app),
		FFmpeg:     cfg.Tools.FFmpeg,
		MaxWorkers: func() int { return workers },
		TempDir:    cfg.Tools.TempDir,
		Width:      cfg.Thumbnails.Width,
		Logger:     log,
	})
	defer gen.Close()
	stop := onInterrupt(gen.Close)
	defer stop()

	if err := os.MkdirAll(cmd.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fmt.Println(ui.ProcessingStyle.Render(fmt.Sprintf("🖼  Generating %d thumbnails with %d workers:", p.Len(), workers)))

	videos := p.Videos()
	results := make([]<-chan []byte, len(videos))
	for i, v := range videos {
		results[i] = gen.QueueVideo(v, position)
	}

	var written, failed int
	for i, v := range videos {
		data := <-results[i]
		if data == nil {
			fmt.Printf("%s\n", ui.ErrorStyle.Render(fmt.Sprintf("❌ %s: thumbnail generation failed", v.Filename())))
			failed++
			continue
		}
		name := thumbnailPath(cmd.OutputDir, v)
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		fmt.Printf("%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ %s", name)))
		written++
	}

	log.Info("thumbnails generated", "written", written, "failed", failed, "peak_workers", gen.PeakWorkers())
	fmt.Printf("\n%s\n", ui.InfoStyle.Render(fmt.Sprintf("✅ Written: %d, ❌ Failed: %d", written, failed)))
	return nil
}

func thumbnailPath(dir string, v *pool.Video) string {
	base := filepath.Base(v.Filename())
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".jpg")
}
