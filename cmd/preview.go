package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/queue"
	"github.com/lepinkainen/equirender/types"
	"github.com/lepinkainen/equirender/ui"
	"github.com/lepinkainen/equirender/utils"
)

// PreviewCmd renders a key-frame-only equirectangular preview of one capture.
type PreviewCmd struct {
	File   string `arg:"" name:"file" help:"Input video" type:"existingfile"`
	Output string `short:"o" help:"Preview file (default: <source>-keyframes.mp4 next to the source)" type:"path"`
	Yaw    int    `help:"Yaw rotation in degrees"`
	Pitch  int    `help:"Pitch rotation in degrees"`
	Roll   int    `help:"Roll rotation in degrees"`
}

// DefaultOutput is where the preview goes when --output is not given.
func (cmd *PreviewCmd) DefaultOutput() string {
	if cmd.Output != "" {
		return cmd.Output
	}
	base := strings.TrimSuffix(cmd.File, filepath.Ext(cmd.File))
	return base + "-keyframes.mp4"
}

func (cmd *PreviewCmd) Run(app *types.AppContext) error {
	cfg := appConfig(app)
	if err := checkTools(app, utils.ToolPaths{FFmpeg: cfg.Tools.FFmpeg, FFprobe: cfg.Tools.FFprobe, Tagger: cfg.Tools.Tagger}); err != nil {
		return err
	}

	log := appLogger(app).Named("preview")
	ctx := context.Background()

	infos, err := probeInputs(ctx, app, []string{cmd.File})
	if err != nil {
		return err
	}
	p := buildPool(infos, log)
	if p.Len() == 0 {
		return fmt.Errorf("%s is not a usable input video", cmd.File)
	}
	v := p.Videos()[0]
	v.SetRotation(media.FrameRotation{Yaw: cmd.Yaw, Pitch: cmd.Pitch, Roll: cmd.Roll})

	orch := newOrchestrator(app, cfg, queue.NewNotifier())
	stop := onInterrupt(orch.CancelAll)
	defer stop()

	bar := newBar(os.Stdout, "🎞  Key frames")
	kf, err := orch.GenerateKeyFrameVideo(ctx, v, func(percent float64) { _ = bar.Set(int(percent)) })
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}

	output := cmd.DefaultOutput()
	if err := moveFile(kf.Path, output); err != nil {
		_ = os.Remove(kf.Path)
		return err
	}

	fmt.Printf("%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ Preview written to %s", output)))
	return nil
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to write %s", dst), err)
	}
	return os.Remove(src)
}
