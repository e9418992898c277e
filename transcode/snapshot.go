package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lepinkainen/equirender/filter"
	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/process"
)

const framePattern = "frame%04d.jpg"

// GenerateSnapshotFrames extracts frameCount evenly spaced key frames from
// info, reprojected with rot, and returns the encoded JPEG bytes in order.
func (o *Orchestrator) GenerateSnapshotFrames(ctx context.Context, info media.InputVideoInfo, rot media.FrameRotation, frameCount int, progress ProgressFunc) ([][]byte, error) {
	if frameCount < 2 {
		return nil, fmt.Errorf("%w: frame count must be at least 2, got %d", ErrInvalidArgument, frameCount)
	}
	if info.Duration <= 0 {
		return nil, fmt.Errorf("%w: %s has no usable duration", ErrInvalidArgument, info.Filename)
	}

	ctx, release := o.register(ctx, nil)
	defer release()

	dir, err := os.MkdirTemp(o.tempDir(), "equirender-snapshot-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	spacing := info.Duration / float64(frameCount-1)
	vf := filter.BuildAvFilter(&filter.SelectCondition{KeyFramesOnly: true, MinFrameDistance: &spacing}, &rot)

	width := o.opts.SnapshotWidth
	args := []string{
		"-hide_banner", "-nostats", "-loglevel", "error", "-y",
		"-skip_frame", "nokey",
		"-i", info.Filename,
		"-filter_complex", vf,
		"-map", filter.OutputLabel,
		"-vsync", "vfr",
		"-frames:v", strconv.Itoa(frameCount),
		"-s", fmt.Sprintf("%dx%d", width, width/2),
		"-q:v", "2",
		"-progress", "pipe:1",
		filepath.Join(dir, framePattern),
	}

	o.log.Verbose("generating snapshot frames", "file", info.Filename, "frames", frameCount, "spacing", spacing)

	parser := frameProgress{total: frameCount}
	if err := process.Run(ctx, o.opts.Launcher, o.ffmpeg, args, progressLine(parser.parse, progress)); err != nil {
		o.logFailure("snapshot generation", err, "file", info.Filename)
		return nil, err
	}

	frames, err := collectFrames(dir)
	if err != nil {
		return nil, err
	}
	o.log.Info("snapshot frames generated", "file", info.Filename, "frames", len(frames))
	return frames, nil
}

// collectFrames reads and deletes the numbered frames in dir in frame order.
func collectFrames(dir string) ([][]byte, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "frame*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	// frame10000.jpg sorts before frame1001.jpg by name
	sort.SliceStable(paths, func(i, j int) bool {
		return frameNumber(paths[i]) < frameNumber(paths[j])
	})

	frames := make([][]byte, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read frame %s: %w", filepath.Base(path), err)
		}
		_ = os.Remove(path)
		frames = append(frames, data)
	}
	return frames, nil
}

// frameNumber parses the index ffmpeg wrote into a frame file name. Names
// that do not parse sort first.
func frameNumber(path string) int {
	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "frame"), ".jpg")
	n, err := strconv.Atoi(name)
	if err != nil {
		return -1
	}
	return n
}
