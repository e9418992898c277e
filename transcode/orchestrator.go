// Package transcode drives ffmpeg and exiftool for snapshot frames, key-frame
// previews and full conversions, with per-job and global cancellation.
package transcode

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/lepinkainen/equirender/logging"
	"github.com/lepinkainen/equirender/pool"
	"github.com/lepinkainen/equirender/process"
	"github.com/lepinkainen/equirender/queue"
)

var (
	// ErrInvalidArgument is returned before any tool is launched.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrQueueBusy is returned when a conversion run is already in progress.
	ErrQueueBusy = errors.New("conversion queue is already running")
)

// EncoderSettings controls the full conversion encode.
type EncoderSettings struct {
	VideoCodec string
	CRF        int
	Preset     string
}

// Options configures an Orchestrator.
type Options struct {
	Launcher process.Launcher
	FFmpeg   string
	Tagger   string
	// TempDir holds intermediate files. Empty means os.TempDir().
	TempDir string
	// OutputDir receives converted files. Empty means next to the source.
	OutputDir       string
	FilenamePattern string
	Encoder         EncoderSettings
	SnapshotWidth   int
	Notifier        *queue.Notifier
	Logger          logging.Logger
}

// KeyFrameVideo is a rendered key-frame preview. The caller owns Path.
type KeyFrameVideo struct {
	Path   string
	Source *pool.Video
}

// Orchestrator runs transcoding jobs. It is safe for concurrent use.
type Orchestrator struct {
	opts   Options
	ffmpeg process.Tool
	tagger process.Tool
	log    logging.Logger

	mu          sync.Mutex
	nextToken   uint64
	tokens      map[uint64]context.CancelFunc
	entryTokens map[*queue.Entry]uint64
	running     bool
	stopQueue   context.CancelFunc
}

// New creates an Orchestrator. Zero-valued options get defaults.
func New(opts Options) *Orchestrator {
	if opts.Launcher == nil {
		opts.Launcher = process.ExecLauncher{}
	}
	if opts.FFmpeg == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if opts.Tagger == "" {
		opts.Tagger = "exiftool"
	}
	if opts.Encoder.VideoCodec == "" {
		opts.Encoder.VideoCodec = "libx264"
	}
	if opts.Encoder.Preset == "" {
		opts.Encoder.Preset = "medium"
	}
	if opts.Encoder.CRF == 0 {
		opts.Encoder.CRF = 20
	}
	if opts.SnapshotWidth <= 0 {
		opts.SnapshotWidth = 1920
	}
	if opts.Notifier == nil {
		opts.Notifier = queue.NewNotifier()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	return &Orchestrator{
		opts:        opts,
		ffmpeg:      process.Tool{Name: "ffmpeg", Path: opts.FFmpeg},
		tagger:      process.Tool{Name: "exiftool", Path: opts.Tagger},
		log:         log.Named("transcode"),
		tokens:      make(map[uint64]context.CancelFunc),
		entryTokens: make(map[*queue.Entry]uint64),
	}
}

// Notifier returns the lifecycle notifier used by ConvertVideos.
func (o *Orchestrator) Notifier() *queue.Notifier { return o.opts.Notifier }

// CancelAll cancels every running operation and stops the conversion queue.
func (o *Orchestrator) CancelAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, cancel := range o.tokens {
		cancel()
	}
	if o.stopQueue != nil {
		o.stopQueue()
	}
	o.log.Info("cancel requested for all operations", "active", len(o.tokens))
}

// CancelEntry cancels the conversion of e only. It reports whether e was running.
func (o *Orchestrator) CancelEntry(e *queue.Entry) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	id, ok := o.entryTokens[e]
	if !ok {
		return false
	}
	o.tokens[id]()
	o.log.Info("cancel requested for entry", "file", e.Video().Filename())
	return true
}

// Active is the number of operations currently running.
func (o *Orchestrator) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.tokens)
}

// register derives a cancellable context tracked by CancelAll. The returned
// func must be called when the operation ends.
func (o *Orchestrator) register(ctx context.Context, e *queue.Entry) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	id := o.nextToken
	o.nextToken++
	o.tokens[id] = cancel
	if e != nil {
		o.entryTokens[e] = id
	}
	o.mu.Unlock()

	return ctx, func() {
		o.mu.Lock()
		delete(o.tokens, id)
		if e != nil {
			delete(o.entryTokens, e)
		}
		o.mu.Unlock()
		cancel()
	}
}

func (o *Orchestrator) tempDir() string {
	if o.opts.TempDir != "" {
		return o.opts.TempDir
	}
	return os.TempDir()
}

// logFailure logs err at error level, or verbose level for cancellations.
func (o *Orchestrator) logFailure(msg string, err error, args ...interface{}) {
	args = append(args, "error", err)
	if process.IsCanceled(err) {
		o.log.Verbose(msg+" canceled", args...)
		return
	}
	o.log.Error(msg+" failed", args...)
}
