package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lepinkainen/equirender/logging"
	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/pool"
	"github.com/lepinkainen/equirender/queue"
	"github.com/lepinkainen/equirender/transcode"
	"github.com/lepinkainen/equirender/types"
	"github.com/lepinkainen/equirender/ui"
	"github.com/lepinkainen/equirender/utils"
	"github.com/lepinkainen/equirender/video"
)

// WatchCmd converts 360 captures as they appear in a directory.
type WatchCmd struct {
	Directory string        `arg:"" name:"directory" help:"Directory to watch" type:"existingdir" default:"."`
	Debounce  time.Duration `help:"Quiet period after the last change before converting" default:"5s"`
	Existing  bool          `help:"Also convert captures already in the directory"`
	Yaw       int           `help:"Yaw rotation in degrees"`
	Pitch     int           `help:"Pitch rotation in degrees"`
	Roll      int           `help:"Roll rotation in degrees"`
}

// Watches reports whether a change to path should trigger a conversion.
func (cmd *WatchCmd) Watches(path string) bool {
	return video.IsNativeCapture(path) && !video.IsIntermediate(path)
}

// pendingSet collects changed paths until the debounce timer fires.
type pendingSet map[string]struct{}

func (s pendingSet) add(path string) { s[path] = struct{}{} }

// drain returns the collected paths in order and empties the set.
func (s pendingSet) drain() []string {
	files := make([]string, 0, len(s))
	for path := range s {
		files = append(files, path)
		delete(s, path)
	}
	sort.Strings(files)
	return files
}

type watchSession struct {
	app  *types.AppContext
	log  logging.Logger
	rot  media.FrameRotation
	pool *pool.Pool
	q    *queue.Queue
	orch *transcode.Orchestrator
	// videos maps source paths to their pool entry so a file is enqueued once
	videos map[string]*pool.Video
}

func (cmd *WatchCmd) Run(app *types.AppContext) error {
	cfg := *appConfig(app)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := checkTools(app, utils.ToolPaths{FFmpeg: cfg.Tools.FFmpeg, FFprobe: cfg.Tools.FFprobe, Tagger: cfg.Tools.Tagger}); err != nil {
		return err
	}

	log := appLogger(app).Named("watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(cmd.Directory); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cmd.Directory, err)
	}

	notifier := queue.NewNotifier(loggingListener(log), newPlainListener(os.Stdout))
	if store := openHistory(&cfg, log); store != nil {
		defer func() { _ = store.Close() }()
		notifier.Subscribe(store.Recorder())
	}

	s := &watchSession{
		app:    app,
		log:    log,
		rot:    media.FrameRotation{Yaw: cmd.Yaw, Pitch: cmd.Pitch, Roll: cmd.Roll},
		pool:   pool.New(),
		q:      queue.New(),
		orch:   newOrchestrator(app, &cfg, notifier),
		videos: make(map[string]*pool.Video),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("equirender %s", app.VersionOrDefault())))
	fmt.Println(ui.ProcessingStyle.Render(fmt.Sprintf("👀 Watching %s for new captures (Ctrl+C to stop)", cmd.Directory)))

	pending := pendingSet{}
	if cmd.Existing {
		entries, err := os.ReadDir(cmd.Directory)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", cmd.Directory, err)
		}
		for _, e := range entries {
			path := filepath.Join(cmd.Directory, e.Name())
			if !e.IsDir() && cmd.Watches(path) {
				pending.add(path)
			}
		}
	}

	timer := time.NewTimer(cmd.Debounce)
	if len(pending) == 0 {
		timer.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !cmd.Watches(event.Name) {
				continue
			}
			log.Verbose("file system event", "operation", event.Op, "path", event.Name)
			pending.add(event.Name)
			timer.Reset(cmd.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("file watcher error", "error", err)

		case <-timer.C:
			if err := s.convert(ctx, pending.drain()); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error("conversion run failed", "error", err)
			}
		}
	}
}

// convert adds the settled files to the session and runs the queue. Entries
// that already succeeded are not rendered again.
func (s *watchSession) convert(ctx context.Context, files []string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}

	infos, err := probeInputs(ctx, s.app, present)
	if err != nil {
		return err
	}

	added := 0
	for _, info := range infos {
		if _, ok := s.videos[info.Filename]; ok {
			continue
		}
		if !info.MatchesFormat {
			s.log.Warning("ignoring unconvertible capture", "file", info.Filename, "issues", info.Issues)
			continue
		}
		v := s.pool.AddVideo(info)
		v.SetRotation(s.rot)
		s.videos[info.Filename] = v
		s.q.Enqueue(v)
		added++
	}
	if added == 0 {
		return nil
	}

	fmt.Println(ui.ProcessingStyle.Render(fmt.Sprintf("🎬 %d new captures queued", added)))
	return s.orch.ConvertVideos(ctx, s.q, false)
}
