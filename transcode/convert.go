package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/lepinkainen/equirender/filter"
	"github.com/lepinkainen/equirender/naming"
	"github.com/lepinkainen/equirender/pool"
	"github.com/lepinkainen/equirender/process"
	"github.com/lepinkainen/equirender/queue"
)

// ConvertVideos renders the entries of q in order. Entries that already
// succeeded are skipped unless renderAll is set, and entries whose video is
// disabled are skipped. A failing or canceled entry does not stop the queue;
// CancelAll or canceling ctx does, and then an ErrCanceled error is returned.
func (o *Orchestrator) ConvertVideos(ctx context.Context, q *queue.Queue, renderAll bool) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrQueueBusy
	}
	runCtx, stop := context.WithCancel(ctx)
	o.running = true
	o.stopQueue = stop
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.stopQueue = nil
		o.mu.Unlock()
		stop()
	}()

	entries := q.Entries()
	notifier := o.opts.Notifier

	o.log.Info("conversion queue started", "entries", len(entries), "render_all", renderAll)
	notifier.QueueStarted()
	defer notifier.QueueFinished()

	var converted, failed, canceled int
	for _, e := range entries {
		if runCtx.Err() != nil {
			break
		}
		if e.Success() && !renderAll {
			continue
		}
		if !e.Video().Enabled() {
			o.log.Verbose("skipping disabled video", "file", e.Video().Filename())
			continue
		}

		e.Reset()
		switch o.convertEntry(runCtx, e) {
		case queue.StateCompletedSuccessfully:
			converted++
		case queue.StateCompletedWithErrors:
			failed++
		case queue.StateCanceled:
			canceled++
		}
	}

	o.log.Info("conversion queue finished", "converted", converted, "failed", failed, "canceled", canceled)

	if err := runCtx.Err(); err != nil {
		return fmt.Errorf("conversion queue: %w: %w", process.ErrCanceled, err)
	}
	return nil
}

func (o *Orchestrator) convertEntry(runCtx context.Context, e *queue.Entry) queue.State {
	ctx, release := o.register(runCtx, e)
	defer release()

	notifier := o.opts.Notifier
	if !e.Begin() {
		return e.State()
	}
	notifier.EntryStarted(e)

	s := e.Video().Settings()
	output, err := o.convert(ctx, s, func(p float64) {
		e.UpdateProgress(p)
		notifier.EntryProgress(e, p)
	})

	switch {
	case err == nil:
		e.Succeed(output)
		o.log.Info("conversion finished", "file", s.Info.Filename, "output", output, "elapsed", e.Elapsed())
		notifier.EntrySucceeded(e)
	case process.IsCanceled(err):
		e.Cancel()
		o.logFailure("conversion", err, "file", s.Info.Filename)
		notifier.EntryCanceled(e)
	default:
		e.Fail(err)
		o.logFailure("conversion", err, "file", s.Info.Filename)
		notifier.EntryFailed(e, err)
	}
	return e.State()
}

// OutputPath is where the conversion of s is written.
func (o *Orchestrator) OutputPath(s pool.Settings) string {
	dir := o.opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(s.Info.Filename)
	}
	return filepath.Join(dir, naming.GetFilenameFromPattern(o.opts.FilenamePattern, s)+".mp4")
}

// convert runs one full conversion plus tagging. The file is rendered under a
// partial name and moved into place only after tagging succeeds.
func (o *Orchestrator) convert(ctx context.Context, s pool.Settings, progress ProgressFunc) (string, error) {
	if !s.Info.IsValid {
		return "", fmt.Errorf("%w: %s is not a valid input", ErrInvalidArgument, s.Info.Filename)
	}

	output := o.OutputPath(s)
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	partial := output + "." + uuid.NewString() + ".partial.mp4"

	start, _ := s.Crop.Bounds(s.Info.Duration)
	length := s.Crop.Length(s.Info.Duration)

	args := []string{"-hide_banner", "-nostats", "-loglevel", "error", "-y"}
	if start > 0 {
		args = append(args, "-ss", formatSeconds(start))
	}
	if s.Crop.End != nil || start > 0 {
		args = append(args, "-t", formatSeconds(length))
	}
	args = append(args,
		"-i", s.Info.Filename,
		"-filter_complex", filter.BuildAvFilter(nil, &s.Rotation),
		"-map", filter.OutputLabel,
		"-map", "0:a:0?",
		"-c:v", o.opts.Encoder.VideoCodec,
		"-preset", o.opts.Encoder.Preset,
		"-crf", strconv.Itoa(o.opts.Encoder.CRF),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-progress", "pipe:1",
		partial,
	)

	o.log.Verbose("converting", "file", s.Info.Filename, "output", output, "start", start, "length", length)

	parser := timeProgress{duration: length, ceiling: taggingHeadroom}
	if err := process.Run(ctx, o.opts.Launcher, o.ffmpeg, args, progressLine(parser.parse, progress)); err != nil {
		_ = os.Remove(partial)
		return "", err
	}

	if err := o.tagSpherical(ctx, partial); err != nil {
		_ = os.Remove(partial)
		return "", err
	}

	if err := os.Rename(partial, output); err != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("failed to move output into place: %w", err)
	}

	if progress != nil {
		progress(100)
	}
	return output, nil
}
