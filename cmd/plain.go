package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/lepinkainen/equirender/queue"
	"github.com/lepinkainen/equirender/ui"
)

func newBar(out io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

// plainListener prints one progress bar per entry for non-interactive output.
type plainListener struct {
	out io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar

	succeeded int
	failed    int
	canceled  int
}

func newPlainListener(out io.Writer) *plainListener {
	return &plainListener{out: out}
}

func (l *plainListener) QueueStarted() {}

func (l *plainListener) QueueFinished() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "\n%s\n", ui.InfoStyle.Render(fmt.Sprintf("✅ Converted: %d, ❌ Failed: %d, ⏹ Canceled: %d",
		l.succeeded, l.failed, l.canceled)))
}

func (l *plainListener) EntryStarted(e *queue.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bar = newBar(l.out, fmt.Sprintf("🎬 %s", filepath.Base(e.Video().Filename())))
}

func (l *plainListener) EntryProgress(e *queue.Entry, percent float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bar != nil {
		_ = l.bar.Set(int(percent))
	}
}

func (l *plainListener) EntrySucceeded(e *queue.Entry) {
	l.finish(func() {
		l.succeeded++
		fmt.Fprintf(l.out, "%s\n", ui.StateStyle(e.State()).Render(fmt.Sprintf("✅ %s → %s", e.Video().Filename(), e.Output())))
	})
}

func (l *plainListener) EntryFailed(e *queue.Entry, err error) {
	l.finish(func() {
		l.failed++
		fmt.Fprintf(l.out, "%s\n", ui.StateStyle(e.State()).Render(fmt.Sprintf("❌ %s: %v", e.Video().Filename(), err)))
	})
}

func (l *plainListener) EntryCanceled(e *queue.Entry) {
	l.finish(func() {
		l.canceled++
		fmt.Fprintf(l.out, "%s\n", ui.StateStyle(e.State()).Render(fmt.Sprintf("⏹  %s canceled", e.Video().Filename())))
	})
}

func (l *plainListener) finish(report func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bar != nil {
		_ = l.bar.Finish()
		l.bar = nil
	}
	report()
}
