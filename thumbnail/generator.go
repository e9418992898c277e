// Package thumbnail renders single-frame previews on a bounded set of workers
// and caches them by filename.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/lepinkainen/equirender/filter"
	"github.com/lepinkainen/equirender/logging"
	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/pool"
	"github.com/lepinkainen/equirender/process"
)

// Options configures a Generator.
type Options struct {
	Launcher process.Launcher
	FFmpeg   string
	// MaxWorkers is read on every top-up so the limit can change at runtime.
	MaxWorkers func() int
	TempDir    string
	// Width of the rendered thumbnail; height is half of it.
	Width  int
	Logger logging.Logger
}

type job struct {
	info     media.InputVideoInfo
	atMillis int64
	result   chan []byte
}

// Generator owns the thumbnail job queue, its workers and the cache.
type Generator struct {
	opts   Options
	ffmpeg process.Tool
	log    logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	jobs  []*job
	live  int
	peak  int
	total int

	cacheMu sync.RWMutex
	cache   map[string][]byte

	placeholder []byte
}

// New creates a Generator with the placeholder thumbnail already cached.
func New(opts Options) *Generator {
	if opts.Launcher == nil {
		opts.Launcher = process.ExecLauncher{}
	}
	if opts.FFmpeg == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if opts.MaxWorkers == nil {
		opts.MaxWorkers = runtime.NumCPU
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Width <= 0 {
		opts.Width = 320
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Generator{
		opts:   opts,
		ffmpeg: process.Tool{Name: "ffmpeg", Path: opts.FFmpeg},
		log:    log.Named("thumbnail"),
		ctx:    ctx,
		cancel: cancel,
		cache:  make(map[string][]byte),
	}
	g.placeholder = placeholderJPEG(opts.Width, opts.Width/2)
	g.cache[media.PlaceholderFilename] = g.placeholder
	return g
}

// Queue schedules a thumbnail of info at atMillis. The returned channel
// yields the JPEG bytes, or nil if generation failed, and is then closed.
func (g *Generator) Queue(info media.InputVideoInfo, atMillis int64) <-chan []byte {
	j := &job{info: info, atMillis: atMillis, result: make(chan []byte, 1)}

	g.mu.Lock()
	g.jobs = append(g.jobs, j)
	g.topUpLocked()
	g.mu.Unlock()

	return j.result
}

// QueueVideo schedules a thumbnail of v at the given percentage of its duration.
func (g *Generator) QueueVideo(v *pool.Video, positionPercent float64) <-chan []byte {
	info := v.Info()
	at := int64(info.Duration * positionPercent / 100 * 1000)
	return g.Queue(info, at)
}

// topUpLocked starts workers while below the limit. g.mu must be held.
func (g *Generator) topUpLocked() {
	limit := g.opts.MaxWorkers()
	if limit < 1 {
		limit = 1
	}
	for g.live < limit {
		g.live++
		g.total++
		if g.live > g.peak {
			g.peak = g.live
		}
		go g.work()
	}
}

// work drains the queue and exits once it is empty.
func (g *Generator) work() {
	for {
		g.mu.Lock()
		if len(g.jobs) == 0 {
			g.live--
			g.mu.Unlock()
			return
		}
		j := g.jobs[0]
		g.jobs[0] = nil
		g.jobs = g.jobs[1:]
		g.mu.Unlock()

		j.result <- g.run(j)
		close(j.result)
	}
}

func (g *Generator) run(j *job) []byte {
	if j.info.IsPlaceholder() {
		return g.placeholder
	}

	data, err := g.extract(j)
	if err != nil {
		g.log.Verbose("thumbnail generation failed", "file", j.info.Filename, "at_ms", j.atMillis, "error", err)
		return nil
	}

	g.cacheMu.Lock()
	g.cache[j.info.Filename] = data
	g.cacheMu.Unlock()

	g.log.Verbose("thumbnail generated", "file", j.info.Filename, "bytes", len(data))
	return data
}

func (g *Generator) extract(j *job) ([]byte, error) {
	tmp := filepath.Join(g.opts.TempDir, "equirender-thumb-"+uuid.NewString()+".jpg")
	defer func() { _ = os.Remove(tmp) }()

	width := g.opts.Width
	args := []string{
		"-hide_banner", "-nostats", "-loglevel", "error", "-y",
		"-skip_frame", "nokey",
		"-ss", fmt.Sprintf("%.3f", float64(j.atMillis)/1000),
		"-i", j.info.Filename,
		"-filter_complex", filter.BuildAvFilter(&filter.SelectCondition{KeyFramesOnly: true}, nil),
		"-map", filter.OutputLabel,
		"-frames:v", "1",
		"-s", fmt.Sprintf("%dx%d", width, width/2),
		"-f", "image2",
		tmp,
	}

	if err := process.Run(g.ctx, g.opts.Launcher, g.ffmpeg, args, nil); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to read thumbnail: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty thumbnail for %s", j.info.Filename)
	}
	return data, nil
}

// Cached returns the cached thumbnail for filename, or nil.
func (g *Generator) Cached(filename string) []byte {
	g.cacheMu.RLock()
	defer g.cacheMu.RUnlock()
	return g.cache[filename]
}

// CachedFor returns the cached thumbnail for v, or nil.
func (g *Generator) CachedFor(v *pool.Video) []byte {
	return g.Cached(v.Filename())
}

// ClearCache drops every cached thumbnail except the placeholder.
func (g *Generator) ClearCache() {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()
	g.cache = map[string][]byte{media.PlaceholderFilename: g.placeholder}
}

// LiveWorkers is the number of running workers.
func (g *Generator) LiveWorkers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live
}

// PeakWorkers is the highest number of simultaneously running workers.
func (g *Generator) PeakWorkers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

// Spawned is the number of workers started over the generator's lifetime.
func (g *Generator) Spawned() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.total
}

// Pending is the number of jobs waiting for a worker.
func (g *Generator) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.jobs)
}

// Close kills running extractions. Queued and future jobs resolve to nil.
func (g *Generator) Close() {
	g.cancel()
}

// placeholderJPEG renders a flat grey frame.
func placeholderJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	grey := color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: grey}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80})
	return buf.Bytes()
}
