package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/lepinkainen/equirender/filter"
	"github.com/lepinkainen/equirender/pool"
	"github.com/lepinkainen/equirender/process"
)

// GenerateKeyFrameVideo renders a short preview made only of key frames,
// using the video's rotation at call time, and tags it as spherical.
func (o *Orchestrator) GenerateKeyFrameVideo(ctx context.Context, v *pool.Video, progress ProgressFunc) (*KeyFrameVideo, error) {
	if v == nil || v.Kind() == pool.KindPlaceholder {
		return nil, fmt.Errorf("%w: no video selected", ErrInvalidArgument)
	}
	s := v.Settings()
	if s.Info.Duration <= 0 {
		return nil, fmt.Errorf("%w: %s has no usable duration", ErrInvalidArgument, s.Info.Filename)
	}

	ctx, release := o.register(ctx, nil)
	defer release()

	output := filepath.Join(o.tempDir(), "equirender-keyframes-"+uuid.NewString()+".mp4")
	vf := filter.BuildAvFilter(&filter.SelectCondition{KeyFramesOnly: true}, &s.Rotation)

	args := []string{
		"-hide_banner", "-nostats", "-loglevel", "error", "-y",
		"-skip_frame", "nokey",
		"-i", s.Info.Filename,
		"-filter_complex", vf,
		"-map", filter.OutputLabel,
		"-vsync", "vfr",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "28",
		"-an",
		"-progress", "pipe:1",
		output,
	}

	o.log.Verbose("rendering key-frame preview", "file", s.Info.Filename, "output", output)

	parser := timeProgress{duration: s.Info.Duration, ceiling: taggingHeadroom}
	if err := process.Run(ctx, o.opts.Launcher, o.ffmpeg, args, progressLine(parser.parse, progress)); err != nil {
		_ = os.Remove(output)
		o.logFailure("key-frame preview", err, "file", s.Info.Filename)
		return nil, err
	}

	if err := o.tagSpherical(ctx, output); err != nil {
		_ = os.Remove(output)
		o.logFailure("key-frame preview tagging", err, "file", s.Info.Filename)
		return nil, err
	}

	if progress != nil {
		progress(100)
	}
	o.log.Info("key-frame preview ready", "file", s.Info.Filename, "output", output)
	return &KeyFrameVideo{Path: output, Source: v}, nil
}
