package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/queue"
	"github.com/lepinkainen/equirender/types"
	"github.com/lepinkainen/equirender/ui"
	"github.com/lepinkainen/equirender/utils"
	"github.com/lepinkainen/equirender/video"
)

// SnapshotCmd extracts evenly spaced reprojected frames from one capture.
type SnapshotCmd struct {
	File      string `arg:"" name:"file" help:"Input video" type:"existingfile"`
	OutputDir string `short:"o" help:"Directory for the frames" type:"path" default:"."`
	Frames    int    `short:"n" help:"Number of frames (0 = from config)"`
	Yaw       int    `help:"Yaw rotation in degrees"`
	Pitch     int    `help:"Pitch rotation in degrees"`
	Roll      int    `help:"Roll rotation in degrees"`
	Dedupe    bool   `help:"Drop frames that look like the previous kept frame"`
	Threshold int    `help:"Hamming distance threshold for --dedupe (0-64)" default:"10"`
	Sheet     string `help:"Also write a PNG contact sheet to this file" type:"path"`
	Columns   int    `help:"Contact sheet columns" default:"4"`
	TileWidth int    `help:"Contact sheet tile width in pixels" default:"480"`
}

func (cmd *SnapshotCmd) Run(app *types.AppContext) error {
	cfg := appConfig(app)
	frames := cmd.Frames
	if frames <= 0 {
		frames = cfg.Snapshots.FrameCount
	}

	if err := checkTools(app, utils.ToolPaths{FFmpeg: cfg.Tools.FFmpeg, FFprobe: cfg.Tools.FFprobe}); err != nil {
		return err
	}

	log := appLogger(app).Named("snapshot")
	ctx := context.Background()

	infos, err := probeInputs(ctx, app, []string{cmd.File})
	if err != nil {
		return err
	}
	if len(infos) == 0 || !infos[0].IsValid {
		return fmt.Errorf("%s is not a usable input video", cmd.File)
	}
	info := infos[0]

	orch := newOrchestrator(app, cfg, queue.NewNotifier())
	stop := onInterrupt(orch.CancelAll)
	defer stop()

	bar := newBar(os.Stdout, fmt.Sprintf("📸 %d frames", frames))
	rot := media.FrameRotation{Yaw: cmd.Yaw, Pitch: cmd.Pitch, Roll: cmd.Roll}
	images, err := orch.GenerateSnapshotFrames(ctx, info, rot, frames, func(percent float64) { _ = bar.Set(int(percent)) })
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("failed to generate snapshot frames: %w", err)
	}

	if cmd.Dedupe {
		kept, _, err := video.DedupeFrames(images, cmd.Threshold)
		if err != nil {
			return err
		}
		if dropped := len(images) - len(kept); dropped > 0 {
			fmt.Printf("⏭️  Dropped %d near-duplicate frames\n", dropped)
		}
		images = kept
	}

	if err := os.MkdirAll(cmd.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for i, img := range images {
		name := filepath.Join(cmd.OutputDir, fmt.Sprintf("frame%04d.jpg", i+1))
		if err := os.WriteFile(name, img, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	log.Info("snapshot frames written", "file", info.Filename, "frames", len(images), "directory", cmd.OutputDir)
	fmt.Printf("%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ Wrote %d frames to %s", len(images), cmd.OutputDir)))

	if cmd.Sheet != "" {
		sheet, err := video.ContactSheet(images, cmd.Columns, cmd.TileWidth)
		if err != nil {
			return fmt.Errorf("failed to build contact sheet: %w", err)
		}
		if err := os.WriteFile(cmd.Sheet, sheet, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cmd.Sheet, err)
		}
		fmt.Printf("%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ Contact sheet written to %s", cmd.Sheet)))
	}

	return nil
}
