package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lepinkainen/equirender/config"
	"github.com/lepinkainen/equirender/history"
	"github.com/lepinkainen/equirender/logging"
	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/process"
	"github.com/lepinkainen/equirender/queue"
	"github.com/lepinkainen/equirender/transcode"
	"github.com/lepinkainen/equirender/types"
	"github.com/lepinkainen/equirender/ui"
	"github.com/lepinkainen/equirender/utils"
)

// ConvertCmd renders 360 captures to equirectangular MP4 files.
type ConvertCmd struct {
	Files      []string `arg:"" name:"files" help:"Input videos or directories" type:"path"`
	OutputDir  string   `short:"o" help:"Directory for converted files (default: next to the source)" type:"path"`
	Pattern    string   `help:"Output filename pattern, e.g. %o_%c"`
	Yaw        int      `help:"Yaw rotation in degrees"`
	Pitch      int      `help:"Pitch rotation in degrees"`
	Roll       int      `help:"Roll rotation in degrees"`
	Start      float64  `help:"Crop start in seconds (0 = from the beginning)"`
	End        float64  `help:"Crop end in seconds (0 = to the end)"`
	Codec      string   `help:"Output video codec (default from config)"`
	CRF        int      `help:"Constant Rate Factor (0-51, -1 = from config)" default:"-1"`
	Preset     string   `help:"Encoder preset (default from config)"`
	Review     bool     `help:"Review the videos interactively before rendering"`
	Plain      bool     `help:"Print plain progress bars instead of the TUI"`
	RenderAll  bool     `help:"Render entries again even if they already succeeded"`
	SaveConfig string   `help:"Write the effective configuration to this file" type:"path"`
}

// ApplyTo overlays the flags set on the command line onto cfg.
func (cmd *ConvertCmd) ApplyTo(cfg *config.Config) {
	if cmd.OutputDir != "" {
		cfg.Output.Directory = cmd.OutputDir
	}
	if cmd.Pattern != "" {
		cfg.Output.FilenamePattern = cmd.Pattern
	}
	if cmd.Codec != "" {
		cfg.Output.VideoCodec = cmd.Codec
	}
	if cmd.CRF >= 0 {
		cfg.Output.CRF = cmd.CRF
	}
	if cmd.Preset != "" {
		cfg.Output.Preset = cmd.Preset
	}
}

// Run probes the inputs, builds the pool and queue, and renders every enabled
// video.
func (cmd *ConvertCmd) Run(app *types.AppContext) error {
	cfg := *appConfig(app)
	cmd.ApplyTo(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cmd.End > 0 && cmd.Start >= cmd.End {
		return fmt.Errorf("crop start %.2fs must be before crop end %.2fs", cmd.Start, cmd.End)
	}

	if cmd.SaveConfig != "" {
		if err := config.SaveConfigFile(&cfg, cmd.SaveConfig); err != nil {
			return err
		}
		fmt.Printf("💾 Saved configuration to %s\n", cmd.SaveConfig)
	}

	if err := checkTools(app, utils.ToolPaths{FFmpeg: cfg.Tools.FFmpeg, FFprobe: cfg.Tools.FFprobe, Tagger: cfg.Tools.Tagger}); err != nil {
		return err
	}

	log := appLogger(app).Named("convert")
	ctx := context.Background()

	infos, err := probeInputs(ctx, app, cmd.Files)
	if err != nil {
		return err
	}
	p := buildPool(infos, log)
	if p.Len() == 0 {
		fmt.Println("🎯 No input videos to convert.")
		return nil
	}
	applyEdits(p, media.FrameRotation{Yaw: cmd.Yaw, Pitch: cmd.Pitch, Roll: cmd.Roll}, cmd.Start, cmd.End)

	if cmd.Review {
		final, err := tea.NewProgram(ui.NewPoolModel(p, cfg.Output.FilenamePattern), tea.WithAltScreen()).Run()
		if err != nil {
			return fmt.Errorf("review failed: %w", err)
		}
		if m, ok := final.(ui.PoolModel); !ok || !m.Confirmed() {
			fmt.Println("Review aborted, nothing rendered.")
			return nil
		}
	}

	q := queue.New()
	for _, v := range p.Enabled() {
		q.Enqueue(v)
	}
	if q.Len() == 0 {
		fmt.Println("🎯 No videos selected for conversion.")
		return nil
	}

	notifier := queue.NewNotifier(loggingListener(log))
	if store := openHistory(&cfg, log); store != nil {
		defer func() { _ = store.Close() }()
		notifier.Subscribe(store.Recorder())
	}

	orch := newOrchestrator(app, &cfg, notifier)

	fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("equirender %s", app.VersionOrDefault())))
	fmt.Println(ui.ProcessingStyle.Render(fmt.Sprintf("🎬 Converting %d videos with %s (CRF %d, %s):",
		q.Len(), cfg.Output.VideoCodec, cfg.Output.CRF, cfg.Output.Preset)))

	return runQueue(ctx, app, orch, q, cmd.RenderAll, cmd.Plain)
}

// openHistory opens the conversion history when enabled. Failures are logged
// and conversion continues without history.
func openHistory(cfg *config.Config, log logging.Logger) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(cfg.History.Database, log)
	if err != nil {
		log.Warning("conversion history disabled", "database", cfg.History.Database, "error", err)
		return nil
	}
	return store
}

// runQueue renders q with the TUI on a terminal, and with plain progress bars
// otherwise.
func runQueue(ctx context.Context, app *types.AppContext, orch *transcode.Orchestrator, q *queue.Queue, renderAll, plain bool) error {
	var err error
	if plain || !isTerminal() {
		err = runPlain(ctx, orch, q, renderAll)
	} else {
		err = runTUI(ctx, app, orch, q, renderAll)
	}

	if process.IsCanceled(err) {
		fmt.Printf("%s\n", ui.ErrorStyle.Render("⏹ Conversion canceled"))
		return nil
	}
	return err
}

func runPlain(ctx context.Context, orch *transcode.Orchestrator, q *queue.Queue, renderAll bool) error {
	unsubscribe := orch.Notifier().Subscribe(newPlainListener(os.Stdout))
	defer unsubscribe()

	stop := onInterrupt(orch.CancelAll)
	defer stop()

	return orch.ConvertVideos(ctx, q, renderAll)
}

func runTUI(ctx context.Context, app *types.AppContext, orch *transcode.Orchestrator, q *queue.Queue, renderAll bool) error {
	program := tea.NewProgram(ui.NewQueueModel(q, orch, app.VersionOrDefault()))
	unsubscribe := orch.Notifier().Subscribe(ui.NewProgramListener(program))
	defer unsubscribe()

	errCh := make(chan error, 1)
	go func() {
		errCh <- orch.ConvertVideos(ctx, q, renderAll)
	}()

	if _, err := program.Run(); err != nil {
		orch.CancelAll()
		<-errCh
		return fmt.Errorf("progress display failed: %w", err)
	}
	err := <-errCh

	counts := q.Counts()
	fmt.Printf("\n%s\n", ui.InfoStyle.Render(fmt.Sprintf("✅ Converted: %d, ❌ Failed: %d, ⏹ Canceled: %d",
		counts[queue.StateCompletedSuccessfully], counts[queue.StateCompletedWithErrors], counts[queue.StateCanceled])))
	return err
}
