package cmd

import (
	"fmt"

	"github.com/lepinkainen/equirender/history"
	"github.com/lepinkainen/equirender/types"
	"github.com/lepinkainen/equirender/ui"
)

// HistoryCmd shows recent conversions from the history database.
type HistoryCmd struct {
	Limit  int    `short:"n" help:"Number of records to show" default:"20"`
	Source string `help:"Only show conversions of this input file" type:"path"`
}

func (cmd *HistoryCmd) Run(app *types.AppContext) error {
	cfg := appConfig(app)
	if cfg.History.Database == "" {
		return fmt.Errorf("no history database configured")
	}

	store, err := history.Open(cfg.History.Database, appLogger(app))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var records []history.Record
	if cmd.Source != "" {
		records, err = store.ForSource(cmd.Source)
	} else {
		records, err = store.Recent(cmd.Limit)
	}
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No conversions recorded yet.")
	}
	for _, r := range records {
		fmt.Println(formatRecord(r))
	}

	summary, err := store.Summary()
	if err != nil {
		return fmt.Errorf("failed to summarize history: %w", err)
	}
	fmt.Printf("\n%s\n", ui.InfoStyle.Render(fmt.Sprintf("Total: %d, ✅ Succeeded: %d, ❌ Failed: %d, ⏹ Canceled: %d",
		summary.Total, summary.Succeeded, summary.Failed, summary.Canceled)))
	return nil
}

func formatRecord(r history.Record) string {
	when := r.CreatedAt.Format("2006-01-02 15:04:05")
	switch r.Status {
	case history.StatusSucceeded:
		return ui.SuccessStyle.Render(fmt.Sprintf("✅ %s %s → %s (%.1fs)", when, r.Source, r.Output, float64(r.DurationMS)/1000))
	case history.StatusFailed:
		return ui.ErrorStyle.Render(fmt.Sprintf("❌ %s %s: %s", when, r.Source, r.Error))
	default:
		return fmt.Sprintf("⏹  %s %s canceled", when, r.Source)
	}
}
